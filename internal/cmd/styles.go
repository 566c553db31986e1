package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/loomctl/loom/internal/conflict"
	"github.com/loomctl/loom/internal/merge"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// severityStyle colors a severity label by how much attention it needs.
func severityStyle(s conflict.Severity) lipgloss.Style {
	switch s {
	case conflict.SeverityHigh:
		return errorStyle
	case conflict.SeverityMedium:
		return warnStyle
	case conflict.SeverityLow:
		return accentStyle
	default:
		return dimStyle
	}
}

// decisionStyle colors a merge decision label.
func decisionStyle(d merge.Decision) lipgloss.Style {
	switch d {
	case merge.DecisionFailed:
		return errorStyle
	case merge.DecisionNeedsHumanReview:
		return warnStyle
	case merge.DecisionAIMerged:
		return accentStyle
	default:
		return successStyle
	}
}
