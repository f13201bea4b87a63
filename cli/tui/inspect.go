package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/typings/cli/reader"
)

// headerLines is the height reserved above the file list.
const headerLines = 14

// InspectModel is a Bubble Tea model for inspect views. The file list
// scrolls in a viewport.
type InspectModel struct {
	viewType string
	data     any
	files    viewport.Model
	ready    bool
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
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)
	return m, cmd
}

func (m *InspectModel) resize(width, height int) {
	h := max(height-headerLines, 3)
	if !m.ready {
		m.files = viewport.New(width, h)
		m.ready = true
	} else {
		m.files.Width = width
		m.files.Height = h
	}
	if data, ok := m.data.(*reader.InspectResolutionResponse); ok {
		m.files.SetContent(renderFileList(data.Files))
	}
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectResolution:
		content = m.renderInspectResolution()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll • q quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectResolution() string {
	data, ok := m.data.(*reader.InspectResolutionResponse)
	if !ok {
		return "Invalid data type for inspect_resolution"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Resolution " + data.Package))
	b.WriteString("\n")

	outcome := "resolved"
	if data.Stub {
		outcome = "stub"
	}
	rows := [][2]string{
		{"Resolved From", data.ResolvedFrom},
		{"Source", data.Source},
		{"Main Entry", data.MainEntryPath},
		{"From Cache", fmt.Sprintf("%t", data.FromCache)},
		{"Files", fmt.Sprintf("%d", len(data.Files))},
	}
	if data.ResolvedAt != "" {
		rows = append(rows, [2]string{"Resolved At", data.ResolvedAt})
	}

	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Outcome:"), OutcomeStyle(data.Stub).Render(outcome))
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}

	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.files.View())
	} else {
		b.WriteString(renderFileList(data.Files))
	}

	return BoxStyle.Render(b.String())
}

func renderFileList(files []reader.FileItem) string {
	if len(files) == 0 {
		return LabelStyle.Render("(no files)")
	}
	var b strings.Builder
	for _, f := range files {
		tag := lipgloss.NewStyle().
			Foreground(ProvenanceColor(f.Source)).
			Width(14).
			Render(f.Source)
		fmt.Fprintf(&b, "%s %s %s\n", tag, ValueStyle.Render(f.Path),
			LabelStyle.UnsetWidth().Render(fmt.Sprintf("(%d B)", f.Bytes)))
	}
	return b.String()
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
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
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
