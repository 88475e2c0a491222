package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/exitcode"
)

var managerCmd = &cobra.Command{
	Use:     "manager",
	GroupID: GroupInstances,
	Short:   "Print the manager installation directory",
	Long: `Print the directory of the RegDesk manager.

The manager is looked up through its running process first, then in the
well-known install locations, then on every drive. Exits 11 when it cannot
be found.`,
	Args: cobra.NoArgs,
	RunE: runManager,
}

func init() {
	rootCmd.AddCommand(managerCmd)
}

func runManager(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if noCache {
		a.ctl.Invalidate()
	}
	dir, err := a.ctl.ManagerDir()
	if err != nil {
		return exitcode.ManagerNotFound()
	}
	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}
