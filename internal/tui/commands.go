package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/expensesbot/internal/bot"
)

// sendText forwards typed text to the router.
func (m Model) sendText(text string) tea.Cmd {
	return m.ask(func(ctx context.Context) bot.Reply {
		return m.handler.HandleText(ctx, bot.Text{UserID: m.config.UserID, Text: text})
	})
}

// pressButton forwards a button press to the router.
func (m Model) pressButton(data string) tea.Cmd {
	return m.ask(func(ctx context.Context) bot.Reply {
		return m.handler.HandleCallback(ctx, bot.Callback{UserID: m.config.UserID, Data: data})
	})
}

// sendPhoto reads an image from disk and forwards it as a photo.
func (m Model) sendPhoto(path string) tea.Cmd {
	return func() tea.Msg {
		image, err := os.ReadFile(path)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to read photo: %w", err)}
		}
		base := filepath.Base(path)
		photo := bot.Photo{
			UserID: m.config.UserID,
			FileID: strings.TrimSuffix(base, filepath.Ext(base)),
			Image:  image,
		}
		return m.ask(func(ctx context.Context) bot.Reply {
			return m.handler.HandlePhoto(ctx, photo)
		})()
	}
}

func (m Model) ask(call func(ctx context.Context) bot.Reply) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.config.RequestTimeout)
		defer cancel()

		msg := replyMsg{reply: call(ctx)}
		if doc := msg.reply.Document; doc != nil {
			msg.saved, msg.saveErr = m.saveDocument(doc)
		}
		return msg
	}
}

func (m Model) saveDocument(doc *bot.Document) (string, error) {
	if err := os.MkdirAll(m.config.OutputDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(m.config.OutputDir, filepath.Base(doc.Name))
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", doc.Name, err)
	}
	return path, nil
}
