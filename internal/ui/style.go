// Package ui renders taskboard collections for the terminal.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/models"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	inProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	doneStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Status renders a task status in its colour.
func Status(status models.TaskStatus) string {
	switch status {
	case models.StatusPending:
		return pendingStyle.Render(status.Label())
	case models.StatusInProgress:
		return inProgressStyle.Render(status.Label())
	case models.StatusDone:
		return doneStyle.Render(status.Label())
	default:
		return errorStyle.Render(string(status))
	}
}

// Muted renders secondary text.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Error renders an error line.
func Error(s string) string {
	return errorStyle.Render(s)
}
