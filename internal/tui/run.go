package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts an interactive chat and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, handler Handler, opts ...Option) error {
	if handler == nil {
		return fmt.Errorf("chat handler is required")
	}

	p := tea.NewProgram(New(ctx, handler, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}
