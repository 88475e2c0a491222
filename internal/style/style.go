// Package style holds the lipgloss styles and the plain table renderer used
// by regctl's command output.
package style

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/regdesk/regctl/internal/agentdb"
)

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "244", Dark: "243"})
	Success = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})
	Warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "172", Dark: "214"})
	Error   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})
	Info    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "75"})
	Header  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "236", Dark: "252"})
)

// Health colors a health value.
func Health(h agentdb.Health) string {
	if h == agentdb.HealthOK {
		return Success.Render(string(h))
	}
	return Error.Render(string(h))
}

// Trans colors a transaction summary.
func Trans(s agentdb.TransStatus) string {
	switch s {
	case agentdb.TransDone, agentdb.TransEmpty:
		return Success.Render(string(s))
	case agentdb.TransPending:
		return Warning.Render(string(s))
	default:
		return Error.Render(string(s))
	}
}

// Shift colors a shift status. Only a closed shift is safe for maintenance.
func Shift(s string) string {
	if s == agentdb.ShiftClosed {
		return Success.Render(s)
	}
	return Warning.Render(s)
}

// Running renders the running flag.
func Running(running bool) string {
	if running {
		return Success.Render("yes")
	}
	return Dim.Render("no")
}
