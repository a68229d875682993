package main

import (
	"github.com/charmbracelet/lipgloss"

	"scorenet/internal/score"
)

var (
	colorSuccess = lipgloss.Color("#8BC34A")
	colorDanger  = lipgloss.Color("#e53935")
	colorMuted   = lipgloss.Color("#6b7785")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	goodStyle   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	badStyle    = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	nameStyle   = lipgloss.NewStyle().Width(32)
	indentStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// renderScore colors a score by feasibility.
func renderScore(s score.Score) string {
	if s.IsFeasible() {
		return goodStyle.Render(s.String())
	}
	return badStyle.Render(s.String())
}
