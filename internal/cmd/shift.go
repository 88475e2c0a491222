package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/style"
)

var refreshShiftCmd = &cobra.Command{
	Use:     "refresh-shift <name|path>",
	Aliases: []string{"shift"},
	GroupID: GroupProcess,
	Short:   "Ask a running instance to reload its shift state",
	Long: `Send a shift refresh request to the web server of a running instance.

The address comes from the instance's own configuration file. Exits 30 when
the instance has no web server configured or rejects the request.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefreshShift,
}

func init() {
	rootCmd.AddCommand(refreshShiftCmd)
}

func runRefreshShift(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	inst, err := a.findInstance(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	res, err := a.ctl.RefreshShift(cmd.Context(), inst)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Shift refresh accepted by %s (%d)\n", style.Success.Render("✓"), inst.Name, res.Status)
	return nil
}
