// Package cli holds the terminal output helpers shared by the commands:
// styled status lines, tables, progress and the monthly report.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#7c3aed")
	green  = lipgloss.Color("#4ECDC4")
	amber  = lipgloss.Color("#FFE66D")
	red    = lipgloss.Color("#FF6B6B")
	muted  = lipgloss.Color("#95E1D3")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	infoStyle    = lipgloss.NewStyle().Foreground(muted)

	// WarningStyle marks pending or degraded values in tables.
	WarningStyle = lipgloss.NewStyle().Foreground(amber)

	// TableHeaderStyle is used for table column names.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ChartIcon   = "📊"
	FolderIcon  = "🗄️"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return successStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return errorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return infoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle renders a section title.
func FormatTitle(title string) string {
	return titleStyle.Render(title)
}
