package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/exitcode"
	"github.com/regdesk/regctl/internal/tui/console"
	"github.com/regdesk/regctl/internal/ui"
)

const consoleLockFile = "console.lock"

var consoleCmd = &cobra.Command{
	Use:     "console",
	GroupID: GroupInstances,
	Short:   "Open the interactive maintenance console",
	Long: `Open the full-screen console listing every instance.

Only one console may run per user at a time. Press ? inside the console for
key bindings.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// runDefault opens the console on a terminal and prints the list otherwise.
func runDefault(cmd *cobra.Command, args []string) error {
	if ui.IsInteractive() {
		return runConsole(cmd, args)
	}
	return runList(cmd, args)
}

func runConsole(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	lock := flock.New(filepath.Join(a.stateDir, consoleLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring console lock: %w", err)
	}
	if !locked {
		return exitcode.Busy("console")
	}
	defer func() { _ = lock.Unlock() }()

	ctx := cmd.Context()
	a.log.Info().Msg("console opened")
	p := tea.NewProgram(
		console.New(ctx, a.ctl, ui.ShouldUseColor()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	a.log.Info().Msg("console closed")
	return nil
}
