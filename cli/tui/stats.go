package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/typings/cli/reader"
	"github.com/pithecene-io/typings/types"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
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
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
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
	case ViewStatsResolution:
		content = m.renderStatsResolution()
	case ViewStatsMetrics:
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsResolution() string {
	data, ok := m.data.(*reader.ResolutionStats)
	if !ok {
		return "Invalid data type for stats_resolution"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s (via %s)", data.Package, data.ResolvedFrom)))
	b.WriteString("\n\n")

	summary := []string{
		renderStatBox("Files", int64(data.Files), primaryColor),
		renderStatBox("Bytes", int64(data.TotalBytes), highlightColor),
	}
	if data.Stub {
		summary = append(summary, renderStatBox("Stub", 1, warningColor))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, summary...))
	b.WriteString("\n")

	// One box per provenance, in discovery-precedence order.
	var boxes []string
	for _, p := range types.AllProvenances() {
		n, ok := data.ByProvenance[string(p)]
		if !ok {
			continue
		}
		boxes = append(boxes, renderStatBox(string(p), int64(n), ProvenanceColor(string(p))))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	return b.String()
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*reader.MetricsView)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Resolver Metrics"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Resolves", data.ResolvesStarted, primaryColor),
		renderStatBox("Cache Hits", data.CacheHits, successColor),
		renderStatBox("Cache Misses", data.CacheMisses, warningColor),
		renderStatBox("Stubs", data.StubsSynthesized, errorColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Files Fetched", data.FileFetchSuccess, successColor),
		renderStatBox("Fetch Misses", data.FileFetchFailure, mutedColor),
		renderStatBox("Alias Hits", data.AliasHits, highlightColor),
	))

	if len(data.ArtifactsByProvenance) > 0 {
		names := make([]string, 0, len(data.ArtifactsByProvenance))
		for name := range data.ArtifactsByProvenance {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\n\n")
		for _, name := range names {
			fmt.Fprintf(&b, "%s %s\n",
				LabelStyle.Render(name+":"),
				ValueStyle.Render(fmt.Sprintf("%d", data.ArtifactsByProvenance[name])))
		}
	}

	return b.String()
}

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
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
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
