package console

import (
	"strings"

	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/style"
)

func (m *Model) renderView() string {
	if m.detail {
		return m.viewport.View() + "\n" + mutedStyle.Render("esc back • q quit")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("RegDesk maintenance console"))
	b.WriteString("\n")

	if m.loaded {
		b.WriteString(m.renderManager())
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + m.busyLabel + "...")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(m.status)
	}
	if m.busy && m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderManager() string {
	var b strings.Builder
	if m.result.ManagerDir == "" {
		b.WriteString(warnStyle.Render("Manager not found; showing instances found on disk."))
	} else {
		b.WriteString(mutedStyle.Render("Manager: ") + m.result.ManagerDir)
	}
	b.WriteString("\n")
	switch m.result.Manifest.Outcome {
	case discovery.ManifestEmpty:
		b.WriteString(warnStyle.Render("The manager's manifest lists no instances. Check the manager configuration."))
		b.WriteString("\n")
	case discovery.ManifestInvalid:
		b.WriteString(warnStyle.Render("The manager's manifest could not be read: " + m.result.Manifest.Path))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderList() string {
	if len(m.result.Instances) == 0 {
		return mutedStyle.Render("No instances found.") + "\n"
	}

	tbl := style.NewTable(
		style.Column{Name: "NAME", Width: 20},
		style.Column{Name: "RUN", Width: 3},
		style.Column{Name: "VERSION", Width: 10},
		style.Column{Name: "HEALTH", Width: 6},
		style.Column{Name: "TRANS", Width: 7},
		style.Column{Name: "SHIFT", Width: 8},
		style.Column{Name: "FISCAL", Width: 16},
	).SetIndent("")
	for _, inst := range m.result.Instances {
		tbl.AddRow(
			inst.Name,
			style.Running(inst.Running),
			inst.Version,
			style.Health(inst.Health),
			style.Trans(inst.TransStatus),
			style.Shift(inst.ShiftStatus),
			inst.FiscalNumber,
		)
	}

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	// Header and separator precede the rows.
	for i := range lines {
		row := i - 2
		prefix := "  "
		if row == m.selected {
			prefix = "> "
			lines[i] = selectedRowStyle.Render(lines[i])
		}
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n") + "\n"
}
