// Package tui is a terminal chat that talks to the bot router the same way
// the Telegram adapter does, for local use without a bot token.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/expensesbot/internal/bot"
	"github.com/Veraticus/expensesbot/internal/tui/themes"
)

// photoCommand sends a local image as a receipt photo.
const photoCommand = "/photo "

// Handler processes router events.
type Handler interface {
	HandleText(ctx context.Context, msg bot.Text) bot.Reply
	HandlePhoto(ctx context.Context, photo bot.Photo) bot.Reply
	HandleCallback(ctx context.Context, cb bot.Callback) bot.Reply
}

type speaker int

const (
	speakerUser speaker = iota
	speakerBot
	speakerInfo
	speakerError
)

type entry struct {
	text string
	from speaker
}

// Model holds the chat state.
type Model struct {
	ctx      context.Context
	handler  Handler
	theme    themes.Theme
	keymap   KeyMap
	config   Config
	entries  []entry
	buttons  [][]bot.Button
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	cursor   int
	width    int
	height   int
	waiting  bool
	quitting bool
}

// New creates a chat model bound to handler.
func New(ctx context.Context, handler Handler, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	input := textinput.New()
	input.Placeholder = "coffee 3.50, /help, or /photo receipt.jpg"
	input.CharLimit = 500
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(cfg.Theme.Primary)

	m := Model{
		ctx:      ctx,
		handler:  handler,
		theme:    cfg.Theme,
		keymap:   DefaultKeyMap(),
		config:   cfg,
		input:    input,
		viewport: viewport.New(cfg.Width, 1),
		spinner:  s,
		help:     help.New(),
	}
	m.resize(cfg.Width, cfg.Height)
	return m
}

// Init starts the conversation the way a new Telegram chat does.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.sendText("/start"))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		m.waiting = false
		m.showReply(msg)
		return m, nil

	case errorMsg:
		m.waiting = false
		m.appendEntry(speakerError, msg.err.Error())
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.PageUp), key.Matches(msg, m.keymap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case m.waiting:
		// One request at a time, as in a chat.
		return m, nil

	case key.Matches(msg, m.keymap.NextButton):
		if n := m.buttonCount(); n > 0 {
			m.cursor = (m.cursor + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keymap.PrevButton):
		if n := m.buttonCount(); n > 0 {
			m.cursor = (m.cursor + n - 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keymap.Send):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the typed text, or presses the selected button when the
// input is empty.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	var cmd tea.Cmd
	switch {
	case text == "":
		b, ok := m.selectedButton()
		if !ok {
			return m, nil
		}
		m.appendEntry(speakerUser, "["+b.Label+"]")
		cmd = m.pressButton(b.Data)
	case strings.HasPrefix(text, photoCommand):
		path := strings.TrimSpace(strings.TrimPrefix(text, photoCommand))
		m.appendEntry(speakerUser, "📷 "+path)
		cmd = m.sendPhoto(path)
	default:
		m.appendEntry(speakerUser, text)
		cmd = m.sendText(text)
	}

	m.waiting = true
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) showReply(msg replyMsg) {
	if msg.reply.Text != "" {
		m.appendEntry(speakerBot, msg.reply.Text)
	}
	switch {
	case msg.saveErr != nil:
		m.appendEntry(speakerError, msg.saveErr.Error())
	case msg.saved != "":
		m.appendEntry(speakerInfo, "📎 saved "+msg.saved)
	}

	m.buttons = msg.reply.Buttons
	if len(m.buttons) == 0 && msg.reply.Menu {
		m.buttons = bot.MainMenu
	}
	m.cursor = 0
	m.resize(m.width, m.height)
}

func (m *Model) appendEntry(from speaker, text string) {
	m.entries = append(m.entries, entry{from: from, text: text})
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

func (m Model) buttonCount() int {
	n := 0
	for _, row := range m.buttons {
		n += len(row)
	}
	return n
}

func (m Model) selectedButton() (bot.Button, bool) {
	i := m.cursor
	for _, row := range m.buttons {
		if i < len(row) {
			return row[i], true
		}
		i -= len(row)
	}
	return bot.Button{}, false
}

// resize gives the transcript whatever the header, buttons, input and help
// lines leave over.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-4, 10)
	m.help.Width = width

	m.viewport.Width = width
	m.viewport.Height = max(height-3-len(m.buttons)-2, 3)
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}
