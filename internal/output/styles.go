package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/filewatch/internal/domain"
)

// Styles holds all lipgloss styles for text output
var Styles = struct {
	// Line kinds
	Content     lipgloss.Style
	Truncated   lipgloss.Style
	Unavailable lipgloss.Style
	Down        lipgloss.Style

	// Summary styles
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style

	// TUI styles
	StatusBar lipgloss.Style
	Prompt    lipgloss.Style
	Highlight lipgloss.Style
}{
	Content:     lipgloss.NewStyle(),
	Truncated:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true), // Gray italic
	Unavailable: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),   // Orange bold
	Down:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),   // Red bold

	Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value:   lipgloss.NewStyle().Bold(true),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),  // Green
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true), // Orange
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red

	StatusBar: lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("252")),
	Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	Highlight: lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("230")).Bold(true),
}

// sourcePalette colours sources in command-line order, cycling when there
// are more sources than colours.
var sourcePalette = []lipgloss.Color{"39", "142", "33", "170", "208", "43", "141", "220"}

// SourceStyle returns the foreground style for a source's content lines.
func SourceStyle(id domain.SourceID) lipgloss.Style {
	n := len(sourcePalette)
	return lipgloss.NewStyle().Foreground(sourcePalette[((int(id)%n)+n)%n])
}

// KindStyle returns the style for system lines; content lines use the style
// of their source.
func KindStyle(kind domain.LineKind, source domain.SourceID) lipgloss.Style {
	switch kind {
	case domain.LineTruncated:
		return Styles.Truncated
	case domain.LineUnavailable:
		return Styles.Unavailable
	case domain.LineSourceDown:
		return Styles.Down
	default:
		return SourceStyle(source)
	}
}

// StateStyle returns a style based on a tailer's final state
func StateStyle(state domain.SourceState, errors uint64) lipgloss.Style {
	switch {
	case state == domain.StateClosed:
		return Styles.Danger
	case errors > 0 || state == domain.StateRetrying:
		return Styles.Warning
	default:
		return Styles.Success
	}
}
