package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/style"
)

var stopCmd = &cobra.Command{
	Use:     "stop <name|path>",
	GroupID: GroupProcess,
	Short:   "Stop the agent processes of an instance",
	Long: `Ask every agent process running from the instance directory to exit.

With --force the processes are killed instead. Exits 12 when no agent is
running from the instance.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

var suspendCmd = &cobra.Command{
	Use:     "suspend <name|path>",
	GroupID: GroupProcess,
	Short:   "Suspend the agent processes of an instance",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, args[0], "Suspended", func(a *app, inst discovery.Instance) (int, error) {
			return a.ctl.Suspend(inst)
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:     "resume <name|path>",
	GroupID: GroupProcess,
	Short:   "Resume suspended agent processes of an instance",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, args[0], "Resumed", func(a *app, inst discovery.Instance) (int, error) {
			return a.ctl.Resume(inst)
		})
	},
}

var stopForce bool

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill instead of asking the process to exit")

	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(suspendCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	verb := "Stopped"
	if stopForce {
		verb = "Killed"
	}
	return runControl(cmd, args[0], verb, func(a *app, inst discovery.Instance) (int, error) {
		return a.ctl.Stop(inst, stopForce)
	})
}

// runControl resolves query and applies fn to the instance it names.
func runControl(cmd *cobra.Command, query, verb string, fn func(*app, discovery.Instance) (int, error)) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	inst, err := a.findInstance(cmd.Context(), query)
	if err != nil {
		return err
	}
	n, err := fn(a, inst)
	if n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d process(es) of %s\n", style.Success.Render("✓"), verb, n, inst.Name)
	}
	return err
}
