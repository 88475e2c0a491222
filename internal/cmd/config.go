package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/config"
	"github.com/regdesk/regctl/internal/exitcode"
	"github.com/regdesk/regctl/internal/style"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupConfig,
	Short:   "Inspect and create the regctl settings file",
	RunE:    requireSubcommand,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.Path(cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", a.cfgPath)
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(a.cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	Long: `Write the built-in defaults to the settings file so they can be edited.

Refuses to overwrite an existing file unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing settings file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if !configInitForce {
		if _, err := os.Stat(a.cfgPath); err == nil {
			return exitcode.Newf(exitcode.ErrAlreadyExists, "%s already exists (use --force to overwrite)", a.cfgPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := config.Save(a.cfgPath, config.Default()); err != nil {
		return err
	}
	a.log.Info().Str("path", a.cfgPath).Msg("settings file written")
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", style.Success.Render("✓"), a.cfgPath)
	return nil
}
