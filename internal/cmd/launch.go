package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/style"
)

var launchCmd = &cobra.Command{
	Use:     "launch <name|path|manager>",
	GroupID: GroupProcess,
	Short:   "Start an instance agent or the manager",
	Long: `Start the agent executable of an instance from its own directory.

Pass "manager" to start the RegDesk manager instead. Discovery results are
refreshed after a successful launch.

Examples:
  regctl launch till1
  regctl launch manager`,
	Args: cobra.ExactArgs(1),
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if strings.EqualFold(args[0], "manager") {
		pid, err := a.ctl.LaunchManager()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Manager started (pid %d)\n", style.Success.Render("✓"), pid)
		return nil
	}

	inst, err := a.findInstance(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	pid, err := a.ctl.Launch(inst)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Started %s (pid %d)\n", style.Success.Render("✓"), inst.Name, pid)
	return nil
}
