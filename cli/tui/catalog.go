package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/inquire/cli/reader"
)

// CatalogModel is a Bubble Tea model for browsing the shared query catalog.
type CatalogModel struct {
	viewType string
	entries  []reader.CatalogEntry
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewCatalogModel creates a new catalog model. Data other than
// []reader.CatalogEntry renders as an empty catalog.
func NewCatalogModel(viewType string, data any) CatalogModel {
	entries, _ := data.([]reader.CatalogEntry)
	return CatalogModel{
		viewType: viewType,
		entries:  entries,
	}
}

// Init implements tea.Model.
func (m CatalogModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m CatalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m CatalogModel) View() string {
	if m.quitting {
		return ""
	}
	if m.viewType != "catalog_list" {
		return fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Shared Queries (%d)", len(m.entries))))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(LabelStyle.Render("(no results)"))
		b.WriteString("\n")
	}
	for i, e := range m.entries {
		marker := "  "
		style := ValueStyle
		if i == m.cursor {
			marker = "> "
			style = CursorStyle
		}
		name := style.Render(e.Name)
		if e.Excluded {
			name += " " + WarningStyle.Render("(excluded)")
		}
		b.WriteString(marker + name + "\n")
	}

	if m.cursor < len(m.entries) {
		sel := m.entries[m.cursor]
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("ID:"), ValueStyle.Render(sel.ID))
		if sel.Description != "" {
			fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Description:"), ValueStyle.Render(sel.Description))
		}
	}

	help := HelpStyle.Render("↑/↓ to move, q or Ctrl+C to quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

// RunCatalogTUI runs the catalog TUI.
func RunCatalogTUI(viewType string, data any) error {
	if _, ok := data.([]reader.CatalogEntry); !ok {
		return fmt.Errorf("invalid data type for %s", viewType)
	}
	model := NewCatalogModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderCatalogStatic renders the catalog without full TUI (for fallback).
func RenderCatalogStatic(viewType string, data any) string {
	model := NewCatalogModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
