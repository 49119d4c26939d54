package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/inquire/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_metrics":
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Export Metrics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Run:"), ValueStyle.Render(data.RunID))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Data source:"), ValueStyle.Render(data.LDS))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Recorded:"), ValueStyle.Render(data.Ts))
	fmt.Fprintf(&b, "%s %s\n\n", LabelStyle.Render("Policy:"),
		ValueStyle.Render(fmt.Sprintf("%s (api v%d, %s)", data.Policy, data.APIVersion, data.StorageBackend)))

	queries := []string{
		m.renderStatBox("Selected", data.QueriesSelected, highlightColor),
		m.renderStatBox("Succeeded", data.QueriesSucceeded, successColor),
		m.renderStatBox("Failed", data.QueriesFailed, errorColor),
		m.renderStatBox("Skipped", data.QueriesSkipped, mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, queries...))
	b.WriteString("\n")

	protocol := []string{
		m.renderStatBox("Submits", data.Submits, highlightColor),
		m.renderStatBox("Polls", data.Polls, highlightColor),
		m.renderStatBox("Rows", data.RowsPersisted, successColor),
		m.renderStatBox("Timeouts", data.NetworkTimeouts, warningColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, protocol...))

	if len(data.FailuresByKind) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Failures by kind"))
		b.WriteString("\n")
		kinds := make([]string, 0, len(data.FailuresByKind))
		for k := range data.FailuresByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "%s %s\n",
				LabelStyle.Render(k+":"),
				ErrorStyle.Render(fmt.Sprintf("%d", data.FailuresByKind[k])))
		}
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
