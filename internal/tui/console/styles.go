package console

import "github.com/charmbracelet/lipgloss"

var (
	colorSelected = lipgloss.Color("39")
	colorMuted    = lipgloss.Color("242")
	colorWarn     = lipgloss.Color("214")
	colorErr      = lipgloss.Color("203")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Bold(true)

	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Foreground(colorErr).Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(colorSelected)
)
