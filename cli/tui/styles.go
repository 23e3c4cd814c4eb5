// Package tui provides Bubble Tea TUI components for the logbook CLI.
//
// TUI rules:
//   - TUI is opt-in only (--tui flag)
//   - TUI is read-only (serve monitor, replay summary)
//   - TUI renders the same Status as the plain renderers
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Counters use the first group; fleet states and resources have
// their own colors so the panels read at a glance.
var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
	textColor      = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}

	resourceColors = map[string]lipgloss.Color{
		"fuel":    lipgloss.Color("#16A34A"),
		"ammo":    lipgloss.Color("#A16207"),
		"steel":   lipgloss.Color("#9CA3AF"),
		"bauxite": lipgloss.Color("#EA580C"),
	}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Foreground(textColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// BoxStyle frames the fleet and resource panels.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1).
			MinWidth(30)

	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(16).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true)
)

// StateStyle returns the style of a fleet state label.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "port":
		return lipgloss.NewStyle().Foreground(successColor)
	case "sortie":
		return WarningStyle.Bold(true)
	case "expedition":
		return lipgloss.NewStyle().Foreground(highlightColor)
	default:
		return ValueStyle
	}
}

// ResourceStyle returns the style of a resource name. Secondary resources
// share the muted color.
func ResourceStyle(name string) lipgloss.Style {
	if c, ok := resourceColors[name]; ok {
		return LabelStyle.Foreground(c)
	}
	return LabelStyle
}
