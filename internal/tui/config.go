package tui

import (
	"time"

	"github.com/Veraticus/expensesbot/internal/tui/themes"
)

// Config holds chat configuration.
type Config struct {
	Theme          themes.Theme
	UserID         string
	OutputDir      string
	Width          int
	Height         int
	RequestTimeout time.Duration
}

// Option is a functional option for configuring the chat.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:          themes.Default,
		UserID:         "local",
		OutputDir:      ".",
		Width:          80,
		Height:         24,
		RequestTimeout: 90 * time.Second,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithUserID sets the user the chat speaks for.
func WithUserID(id string) Option {
	return func(c *Config) {
		if id != "" {
			c.UserID = id
		}
	}
}

// WithOutputDir sets where exported documents are written.
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.OutputDir = dir
		}
	}
}

// WithRequestTimeout bounds how long a single message may take to answer.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RequestTimeout = d
		}
	}
}
