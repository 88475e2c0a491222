package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/regdesk/regctl/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <name|path>",
	GroupID: GroupInstances,
	Short:   "Show one instance in detail",
	Long: `Show everything regctl knows about one instance.

The instance is matched by display name (with or without the [ext] prefix)
or by directory path.

Examples:
  regctl show till1
  regctl show 'C:\RegDesk\profiles\till1'`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var showJSON bool

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	inst, err := a.findInstance(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(inst)
	}

	width := 0
	if ui.IsTerminal() {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	out, err := a.ctl.Detail(inst, width, ui.ShouldUseColor())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
