package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/style"
	"github.com/regdesk/regctl/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: GroupInstances,
	Short:   "List discovered instances and their health",
	Long: `List every cash-register instance found on this machine.

Columns:
  NAME     directory name; [ext] marks instances the manager does not list
  RUN      whether an agent process is running from the directory
  HEALTH   OK when the database passed its integrity check
  TRANS    EMPTY, DONE, PENDING or ERROR across all recorded transactions
  SHIFT    status of the newest shift (CLOSED when no shift exists)
  SOURCE   manifest, process or filesystem: where the instance was found

Examples:
  regctl list
  regctl list --json
  regctl list --no-cache`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")

	rootCmd.AddCommand(listCmd)
}

// listOutput is the JSON shape of regctl list.
type listOutput struct {
	ManagerDir      string               `json:"manager_dir"`
	ManifestOutcome string               `json:"manifest"`
	ManifestEmpty   bool                 `json:"manifest_empty"`
	Instances       []discovery.Instance `json:"instances"`
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	res := a.ctl.Instances(cmd.Context(), !noCache)
	a.log.Info().
		Str("manager", res.ManagerDir).
		Str("manifest", res.Manifest.Outcome.String()).
		Int("instances", len(res.Instances)).
		Msg("instances resolved")

	out := cmd.OutOrStdout()
	if listJSON {
		return outputListJSON(out, res)
	}
	outputListTable(out, res)
	return nil
}

func outputListJSON(w io.Writer, res discovery.Result) error {
	instances := res.Instances
	if instances == nil {
		instances = []discovery.Instance{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listOutput{
		ManagerDir:      res.ManagerDir,
		ManifestOutcome: res.Manifest.Outcome.String(),
		ManifestEmpty:   res.ManifestEmpty,
		Instances:       instances,
	})
}

func outputListTable(w io.Writer, res discovery.Result) {
	if res.ManagerDir == "" {
		fmt.Fprintln(w, style.Warning.Render("Manager not found; showing instances found on disk."))
	} else {
		fmt.Fprintf(w, "%s %s\n", style.Bold.Render("Manager:"), res.ManagerDir)
	}
	printManifestWarning(w, res)
	fmt.Fprintln(w)

	if len(res.Instances) == 0 {
		fmt.Fprintln(w, "No instances found")
		return
	}

	tbl := style.NewTable(
		style.Column{Name: "NAME", Width: 22},
		style.Column{Name: "RUN", Width: 3},
		style.Column{Name: "VERSION", Width: 10},
		style.Column{Name: "HEALTH", Width: 6},
		style.Column{Name: "TRANS", Width: 7},
		style.Column{Name: "SHIFT", Width: 8},
		style.Column{Name: "FISCAL", Width: 16},
		style.Column{Name: "SOURCE", Width: 10},
		style.Column{Name: "PATH", Width: 48},
	)
	for _, inst := range res.Instances {
		tbl.AddRow(
			inst.Name,
			style.Running(inst.Running),
			inst.Version,
			style.Health(inst.Health),
			style.Trans(inst.TransStatus),
			style.Shift(inst.ShiftStatus),
			inst.FiscalNumber,
			strings.ToLower(inst.Source.String()),
			style.Dim.Render(inst.Path),
		)
	}
	fmt.Fprint(w, tbl.Render())

	if external := countExternal(res.Instances); external > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %d instance(s) are not listed in the manager's manifest\n", warnMark(), external)
	}
}

func printManifestWarning(w io.Writer, res discovery.Result) {
	switch res.Manifest.Outcome {
	case discovery.ManifestEmpty:
		fmt.Fprintf(w, "%s %s\n", warnMark(),
			style.Warning.Render("The manager's manifest lists no instances. Check the manager configuration."))
	case discovery.ManifestInvalid:
		fmt.Fprintf(w, "%s %s %s\n", warnMark(),
			style.Warning.Render("The manager's manifest could not be read:"), res.Manifest.Path)
	}
}

func countExternal(instances []discovery.Instance) int {
	n := 0
	for _, inst := range instances {
		if inst.External {
			n++
		}
	}
	return n
}

func warnMark() string {
	if ui.ShouldUseEmoji() {
		return "⚠️ "
	}
	return style.Warning.Render("!")
}
