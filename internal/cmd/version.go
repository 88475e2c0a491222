package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Print version information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
