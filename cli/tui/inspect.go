package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/inquire/cli/reader"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_transcript":
		content = m.renderInspectTranscript()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectTranscript() string {
	data, ok := m.data.(*reader.TranscriptSummary)
	if !ok {
		return "Invalid data type for inspect_transcript"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Transcript"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Run ID", data.RunID},
		{"Data source", data.LDS},
		{"Records", fmt.Sprintf("%d", data.Records)},
		{"Submits", fmt.Sprintf("%d", data.Submits)},
		{"Polls", fmt.Sprintf("%d", data.Polls)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}
	if data.Errors > 0 {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Errors:"), ErrorStyle.Render(fmt.Sprintf("%d", data.Errors)))
	}
	if data.Skipped > 0 {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Skipped:"), WarningStyle.Render(fmt.Sprintf("%d frames", data.Skipped)))
	}

	if len(data.Executions) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Executions"))
		b.WriteString("\n")
		for _, e := range data.Executions {
			id := e.ExecutionID
			if id == "" {
				id = "(none)"
			}
			state := e.Final
			if e.ErrorKind != "" {
				state = "failed"
			}
			fmt.Fprintf(&b, "  • %s %s %s\n",
				ValueStyle.Render(e.Query),
				LabelStyle.Render(id),
				StateStyle(state).Render(fmt.Sprintf("%s, %d polls, %dms", displayState(e), e.Polls, e.DurationMs)))
		}
	}

	return BoxStyle.Render(b.String())
}

func displayState(e reader.TranscriptExecution) string {
	switch {
	case e.ErrorKind != "":
		return e.ErrorKind
	case e.Final != "":
		return strings.TrimSuffix(e.Final, "Message")
	default:
		return "pending"
	}
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
