package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// refreshInterval is how often the monitor polls its source.
const refreshInterval = time.Second

type tickMsg time.Time

// MonitorModel is a Bubble Tea model that polls a Source.
type MonitorModel struct {
	source   Source
	status   Status
	width    int
	height   int
	quitting bool
}

// NewMonitorModel creates a monitor over src.
func NewMonitorModel(src Source) MonitorModel {
	return MonitorModel{source: src, status: src()}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.status = m.source()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			m.status = m.source()
			return m, nil
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m MonitorModel) View() string {
	if m.quitting {
		return ""
	}
	st := m.status

	var b strings.Builder
	title := "logbook"
	if st.Admiral != "" {
		title = fmt.Sprintf("logbook: %s (Lv.%d)", st.Admiral, st.Level)
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	c := st.Counters
	errs := c.DecodeErrors + c.FoldErrors + c.UpstreamErrors
	boxes := []string{
		m.renderStatBox("Captured", c.Captured, highlightColor),
		m.renderStatBox("Classified", c.Classified, primaryColor),
		m.renderStatBox("Folds", c.Folds, successColor),
		m.renderStatBox("Errors", errs, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")

	panels := []string{m.renderDocks(), m.renderResources()}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	b.WriteString("\n")

	if st.Battle != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Battle:"), WarningStyle.Render(st.Battle)))
	}
	b.WriteString(m.renderRecent())

	help := HelpStyle.Render("Press r to refresh, q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func (m MonitorModel) renderHeader() string {
	st := m.status
	rows := [][]string{
		{"Session", st.SessionID},
		{"Listen", st.Listen},
		{"API hosts", strings.Join(st.APIHosts, ", ")},
		{"Uptime", st.Uptime},
		{"World", fmt.Sprintf("v%d", st.WorldVersion)},
	}
	var b strings.Builder
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1])))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m MonitorModel) renderDocks() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Fleets"))
	if len(m.status.Docks) == 0 {
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("waiting for port"))
	}
	for _, d := range m.status.Docks {
		state := dockState(d)
		label := state
		if state == "expedition" {
			label = fmt.Sprintf("expedition %d", d.Mission)
		}
		b.WriteString(fmt.Sprintf("\n%d %-14s %d ships %s", d.ID, d.Name, d.Ships, StateStyle(state).Render(label)))
	}
	return BoxStyle.Render(b.String())
}

func dockState(d DockLine) string {
	switch {
	case d.Sortie:
		return "sortie"
	case d.Mission > 0:
		return "expedition"
	default:
		return "port"
	}
}

func (m MonitorModel) renderResources() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Resources"))
	if len(m.status.Resources) == 0 {
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("no samples"))
	}
	for _, r := range m.status.Resources {
		b.WriteString(fmt.Sprintf("\n%s %s", ResourceStyle(r.Resource).Render(r.Resource), ValueStyle.Render(fmt.Sprintf("%6d", r.Value))))
	}
	return BoxStyle.Render(b.String())
}

func (m MonitorModel) renderRecent() string {
	if len(m.status.Recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render("Recent:"))
	for _, line := range m.status.Recent {
		b.WriteString("\n  ")
		b.WriteString(ValueStyle.Render(line))
	}
	return b.String()
}

func (m MonitorModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
}

// RunMonitorTUI runs the monitor until the user quits or ctx is done.
func RunMonitorTUI(ctx context.Context, src Source) error {
	p := tea.NewProgram(NewMonitorModel(src), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// RenderStatic renders a status without full TUI (for fallback).
func RenderStatic(st Status) string {
	model := NewMonitorModel(func() Status { return st })
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
