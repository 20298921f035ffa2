package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the chat.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Selected      lipgloss.Style
	Button        lipgloss.Style
	UserLabel     lipgloss.Style
	BotLabel      lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary: lipgloss.Color("#7c3aed"),
	Muted:   lipgloss.Color("#737373"),
	Border:  lipgloss.Color("#404040"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#7c3aed")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true).
		Padding(0, 1),
	Button: lipgloss.NewStyle().
		Background(lipgloss.Color("#404040")).
		Foreground(lipgloss.Color("#fafafa")).
		Padding(0, 1),
	UserLabel: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")).
		Bold(true),
	BotLabel: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7c3aed")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3b82f6")),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
	StatusPending: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		Italic(true),
}

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = Theme{
	Primary: lipgloss.Color("#cba6f7"),
	Muted:   lipgloss.Color("#6c7086"),
	Border:  lipgloss.Color("#45475a"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#cdd6f4")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a6adc8")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#cdd6f4")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#cdd6f4")),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#cba6f7")).
		Foreground(lipgloss.Color("#1e1e2e")).
		Bold(true).
		Padding(0, 1),
	Button: lipgloss.NewStyle().
		Background(lipgloss.Color("#45475a")).
		Foreground(lipgloss.Color("#cdd6f4")).
		Padding(0, 1),
	UserLabel: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a6e3a1")).
		Bold(true),
	BotLabel: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#cba6f7")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#89dceb")),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f38ba8")).
		Bold(true),
	StatusPending: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6c7086")).
		Italic(true),
}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
