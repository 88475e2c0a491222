package control

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/regdesk/regctl/internal/discovery"
)

// Markdown describes one instance as a markdown document.
func Markdown(inst discovery.Instance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", inst.Name)
	if inst.External {
		b.WriteString("> Not listed in the manager's manifest.\n\n")
	}
	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		fmt.Fprintf(&b, "| %s | %s |\n", k, strings.ReplaceAll(v, "|", `\|`))
	}
	row("Path", "`"+inst.Path+"`")
	row("Source", inst.Source.String())
	row("Running", yesNo(inst.Running))
	row("Version", inst.Version)
	row("Health", string(inst.Health))
	row("Transactions", string(inst.TransStatus))
	row("Shift", inst.ShiftStatus)
	row("Fiscal number", inst.FiscalNumber)
	return b.String()
}

// RenderMarkdown renders md for a terminal of the given width. Plain
// output is returned unchanged when styling is off.
func RenderMarkdown(md string, width int, styled bool) (string, error) {
	if !styled {
		return md, nil
	}
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering: %w", err)
	}
	return out, nil
}

// Detail renders the description of inst.
func (c *Controller) Detail(inst discovery.Instance, width int, styled bool) (string, error) {
	return RenderMarkdown(Markdown(inst), width, styled)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
