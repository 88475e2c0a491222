package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal returns true if stdout is connected to a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInteractive returns true when both stdin and stdout are terminals, which
// the console needs to take keyboard input.
func IsInteractive() bool {
	return IsTerminal() && term.IsTerminal(int(os.Stdin.Fd()))
}

// ShouldUseColor determines if ANSI color codes should be used.
// Respects NO_COLOR (https://no-color.org/), CLICOLOR, and CLICOLOR_FORCE conventions.
func ShouldUseColor() bool {
	// NO_COLOR takes precedence - any value disables color
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	// CLICOLOR=0 disables color
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}

	// CLICOLOR_FORCE enables color even in non-TTY
	if _, exists := os.LookupEnv("CLICOLOR_FORCE"); exists {
		return true
	}

	return IsTerminal()
}

// ShouldUseEmoji determines if emoji decorations should be used.
// Disabled in non-TTY mode to keep output machine-readable.
func ShouldUseEmoji() bool {
	if _, exists := os.LookupEnv("REGCTL_NO_EMOJI"); exists {
		return false
	}
	return IsTerminal()
}

// ApplyColorProfile points lipgloss at the profile the environment allows.
// Old Windows consoles report no color support; CLICOLOR_FORCE still wins.
func ApplyColorProfile() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.EnvColorProfile()
	if profile == termenv.Ascii {
		profile = termenv.ANSI
	}
	lipgloss.SetColorProfile(profile)
	lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
}
