// Package cmd provides CLI commands for the regctl tool.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/config"
	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/exitcode"
	"github.com/regdesk/regctl/internal/process"
	"github.com/regdesk/regctl/internal/shift"
	"github.com/regdesk/regctl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "regctl",
	Short:   "RegDesk maintenance console",
	Version: version.Version,
	Long: `regctl finds every RegDesk cash-register instance on this machine and
reports its health: database integrity, transaction backlog, shift state,
fiscal number and version.

Instances are discovered from the manager's manifest, from running agent
processes and, when no agent is running, from a bounded search of the disk.
Instances the manager does not list are marked [ext].

Run without arguments for the interactive console.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	Args:              cobra.NoArgs,
	RunE:              runDefault,
}

var (
	cfgFile  string
	debugLog bool
	noCache  bool
)

// Commands that run without loading configuration or discovery.
var setupExemptCommands = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
	"path":       true,
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	return 0
}

// exitRules maps domain errors to exit codes.
var exitRules = []exitcode.Rule{
	exitcode.Is(discovery.ErrInstanceNotFound, exitcode.ErrInstanceNotFound),
	exitcode.Is(discovery.ErrManagerNotFound, exitcode.ErrManagerNotFound),
	exitcode.Is(process.ErrNotRunning, exitcode.ErrNotRunning),
	exitcode.Is(os.ErrNotExist, exitcode.ErrFileNotFound),
	exitcode.Is(os.ErrPermission, exitcode.ErrPermission),
	exitcode.Is(config.ErrNoWebServer, exitcode.ErrNetwork),
	exitcode.As[*shift.StatusError](exitcode.ErrNetwork),
	{Code: exitcode.ErrUsage, Match: isUsageError},
}

func exitCodeFor(err error) int {
	return exitcode.Classify(err, exitRules...)
}

func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "accepts ", "requires ", "invalid argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupInstances = "instances"
	GroupProcess   = "process"
	GroupConfig    = "config"
	GroupDiag      = "diag"
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupInstances, Title: "Instances:"},
		&cobra.Group{ID: GroupProcess, Title: "Process Control:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default <state dir>/regctl.toml, or $REGCTL_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "ignore cached discovery results")
}

// buildCommandPath walks the command hierarchy to build the full command path.
func buildCommandPath(cmd *cobra.Command) string {
	var parts []string
	for c := cmd; c != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return strings.Join(parts, " ")
}

// requireSubcommand returns a RunE function for parent commands that require
// a subcommand. Without this, Cobra silently shows help and exits 0 for
// unknown subcommands like "regctl config foobar", masking errors.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return exitcode.Newf(exitcode.ErrUsage, "requires a subcommand\n\nRun '%s --help' for usage", buildCommandPath(cmd))
	}
	return exitcode.Newf(exitcode.ErrUsage, "unknown command %q for %q\n\nRun '%s --help' for available commands",
		args[0], buildCommandPath(cmd), buildCommandPath(cmd))
}
