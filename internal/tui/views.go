package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the chat.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}
	if buttons := m.renderButtons(); buttons != "" {
		sections = append(sections, buttons)
	}
	sections = append(sections, m.renderInput(), m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("💰 expensesbot")
	user := m.theme.Subtitle.Render("  user " + m.config.UserID)
	rule := lipgloss.NewStyle().Foreground(m.theme.Border).Render(strings.Repeat("─", max(m.width, 1)))
	return lipgloss.JoinVertical(lipgloss.Left, title+user, rule)
}

func (m Model) renderEntries() string {
	body := lipgloss.NewStyle().Width(max(m.viewport.Width-2, 10))

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.from {
		case speakerUser:
			b.WriteString(m.theme.UserLabel.Render("you › "))
			b.WriteString(m.theme.Normal.Render(e.text))
		case speakerBot:
			b.WriteString(m.theme.BotLabel.Render("bot ›"))
			b.WriteString("\n")
			b.WriteString(body.Render(e.text))
		case speakerInfo:
			b.WriteString(m.theme.StatusInfo.Render(e.text))
		case speakerError:
			b.WriteString(m.theme.StatusError.Render("✗ " + e.text))
		}
	}
	return b.String()
}

func (m Model) renderButtons() string {
	if len(m.buttons) == 0 {
		return ""
	}

	rows := make([]string, 0, len(m.buttons))
	i := 0
	for _, row := range m.buttons {
		cells := make([]string, 0, len(row))
		for _, b := range row {
			style := m.theme.Button
			if i == m.cursor && !m.waiting {
				style = m.theme.Selected
			}
			cells = append(cells, style.Render(b.Label))
			i++
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderInput() string {
	if m.waiting {
		return m.spinner.View() + m.theme.StatusPending.Render(" thinking...")
	}
	return m.input.View()
}
