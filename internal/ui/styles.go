package ui

import (
	"github.com/charmbracelet/lipgloss"

	"skillguard/internal/finding"
)

// This file centralizes the lipgloss styles used across the TUI.

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("63")). // Purple
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")) // Pink

	detailHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205"))

	severityStyles = map[finding.Severity]lipgloss.Style{
		finding.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red
		finding.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),            // Orange
		finding.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),            // Yellow
		finding.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),            // Light gray
	}
)

func severityBadge(sev finding.Severity) string {
	return severityStyles[sev].Render(string(sev))
}
