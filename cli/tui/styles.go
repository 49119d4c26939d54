// Package tui provides Bubble Tea TUI components for the inquire CLI.
//
// TUI is opt-in (--tui) and limited to read-only views. A TUI view renders
// the same payload as the json/table/yaml output and nothing more.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
	textColor      = lipgloss.Color("#FFFFFF")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Text styles.
var (
	TitleStyle   = fg(primaryColor).Bold(true).MarginBottom(1)
	LabelStyle   = fg(mutedColor).Width(16)
	ValueStyle   = fg(textColor)
	HelpStyle    = fg(mutedColor).MarginTop(1)
	CursorStyle  = fg(highlightColor).Bold(true)
	SuccessStyle = fg(successColor)
	WarningStyle = fg(warningColor)
	ErrorStyle   = fg(errorColor)
)

// Container styles.
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// StatBoxStyle frames one counter of the stats view; the border color
	// is set per counter.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)
	StatLabelStyle = fg(mutedColor).Align(lipgloss.Center)
	StatValueStyle = fg(textColor).Bold(true).Align(lipgloss.Center)
)

// StateStyle colors a run outcome, query status or protocol message type.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "success", "FinalResultMessage":
		return SuccessStyle
	case "partial", "pending", "PartialUpdateMessage", "StartExecutionMessage":
		return WarningStyle
	case "failed", "canceled", "FailureMessage":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
