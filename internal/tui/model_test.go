package tui

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/bot"
)

type scriptedHandler struct {
	replies []bot.Reply
	texts   []bot.Text
	photos  []bot.Photo
	calls   []bot.Callback
	mu      sync.Mutex
}

func (h *scriptedHandler) next() bot.Reply {
	if len(h.replies) == 0 {
		return bot.Reply{Text: "ok"}
	}
	r := h.replies[0]
	h.replies = h.replies[1:]
	return r
}

func (h *scriptedHandler) HandleText(_ context.Context, msg bot.Text) bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts = append(h.texts, msg)
	return h.next()
}

func (h *scriptedHandler) HandlePhoto(_ context.Context, photo bot.Photo) bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.photos = append(h.photos, photo)
	return h.next()
}

func (h *scriptedHandler) HandleCallback(_ context.Context, cb bot.Callback) bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, cb)
	return h.next()
}

func newTestModel(t *testing.T, h Handler) Model {
	t.Helper()
	return New(context.Background(), h, WithSize(100, 30), WithOutputDir(t.TempDir()))
}

// settle runs cmd and feeds every resulting message back into the model,
// skipping spinner animation frames.
func settle(m Model, cmd tea.Cmd) Model {
	for _, msg := range collect(cmd) {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case spinner.TickMsg:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func TestModel_SendText(t *testing.T) {
	h := &scriptedHandler{replies: []bot.Reply{{Text: "✓ Added: coffee"}}}
	m := newTestModel(t, h)

	m = typeText(m, "coffee 3.50")
	m, cmd := press(m, tea.KeyEnter)
	assert.True(t, m.waiting)
	assert.Empty(t, m.input.Value())

	m = settle(m, cmd)

	assert.False(t, m.waiting)
	assert.Equal(t, []bot.Text{{UserID: "local", Text: "coffee 3.50"}}, h.texts)
	require.Len(t, m.entries, 2)
	assert.Equal(t, entry{from: speakerUser, text: "coffee 3.50"}, m.entries[0])
	assert.Equal(t, entry{from: speakerBot, text: "✓ Added: coffee"}, m.entries[1])
	assert.Contains(t, m.View(), "Added: coffee")
}

func TestModel_InitSendsStart(t *testing.T) {
	h := &scriptedHandler{replies: []bot.Reply{{Text: "Welcome", Menu: true}}}
	m := newTestModel(t, h)

	m = settle(m, m.Init())

	require.Len(t, h.texts, 1)
	assert.Equal(t, "/start", h.texts[0].Text)
	assert.Equal(t, bot.MainMenu, m.buttons)
}

func TestModel_EmptyEnterPressesSelectedButton(t *testing.T) {
	h := &scriptedHandler{replies: []bot.Reply{
		{Text: "Choose format", Buttons: [][]bot.Button{
			{{Label: "CSV", Data: "export_csv"}, {Label: "PDF", Data: "export_pdf"}},
			{{Label: "Back", Data: "back_main"}},
		}},
	}}
	m := newTestModel(t, h)

	m = typeText(m, "/export")
	m, cmd := press(m, tea.KeyEnter)
	m = settle(m, cmd)
	require.Equal(t, 3, m.buttonCount())

	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyShiftTab)
	assert.Equal(t, 2, m.cursor)
	m, _ = press(m, tea.KeyShiftTab)

	m, cmd = press(m, tea.KeyEnter)
	m = settle(m, cmd)

	assert.Equal(t, []bot.Callback{{UserID: "local", Data: "export_pdf"}}, h.calls)
	assert.Contains(t, m.entries, entry{from: speakerUser, text: "[PDF]"})
	assert.Empty(t, m.buttons)
}

func TestModel_EmptyEnterWithoutButtonsDoesNothing(t *testing.T) {
	h := &scriptedHandler{}
	m := newTestModel(t, h)

	m, cmd := press(m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.False(t, m.waiting)
	assert.Empty(t, h.texts)
}

func TestModel_IgnoresInputWhileWaiting(t *testing.T) {
	h := &scriptedHandler{}
	m := newTestModel(t, h)

	m = typeText(m, "first")
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.waiting)

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Len(t, m.entries, 1)
}

func TestModel_DocumentIsSaved(t *testing.T) {
	h := &scriptedHandler{replies: []bot.Reply{{
		Text:     "CSV export ready",
		Document: &bot.Document{Name: "expenses_2024-03-15.csv", Data: []byte("Date,Store\n")},
	}}}
	m := newTestModel(t, h)

	m = typeText(m, "/export csv")
	m, cmd := press(m, tea.KeyEnter)
	m = settle(m, cmd)

	path := filepath.Join(m.config.OutputDir, "expenses_2024-03-15.csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Store\n", string(data))
	assert.Equal(t, entry{from: speakerInfo, text: "📎 saved " + path}, m.entries[len(m.entries)-1])
}

func TestModel_PhotoCommand(t *testing.T) {
	tests := []struct {
		name      string
		write     bool
		wantPhoto bool
		wantLast  speaker
	}{
		{name: "existing file", write: true, wantPhoto: true, wantLast: speakerBot},
		{name: "missing file", write: false, wantPhoto: false, wantLast: speakerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lunch.jpg")
			if tt.write {
				require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))
			}
			h := &scriptedHandler{replies: []bot.Reply{{Text: "✓ Receipt saved"}}}
			m := newTestModel(t, h)

			m = typeText(m, "/photo "+path)
			m, cmd := press(m, tea.KeyEnter)
			m = settle(m, cmd)

			if tt.wantPhoto {
				require.Len(t, h.photos, 1)
				assert.Equal(t, bot.Photo{UserID: "local", FileID: "lunch", Image: []byte("jpeg")}, h.photos[0])
			} else {
				assert.Empty(t, h.photos)
			}
			assert.Empty(t, h.texts)
			assert.False(t, m.waiting)
			assert.Equal(t, tt.wantLast, m.entries[len(m.entries)-1].from)
		})
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &scriptedHandler{})

	m, cmd := press(m, tea.KeyCtrlC)

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestModel_ResizeLeavesRoomForButtons(t *testing.T) {
	m := newTestModel(t, &scriptedHandler{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(Model)
	without := m.viewport.Height

	m.showReply(replyMsg{reply: bot.Reply{Text: "menu", Menu: true}})

	assert.Equal(t, without-len(bot.MainMenu), m.viewport.Height)
	assert.Equal(t, 60, m.viewport.Width)
}
