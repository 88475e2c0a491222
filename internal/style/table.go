package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Align is a column's horizontal alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Column describes one table column. Width is in terminal cells.
type Column struct {
	Name  string
	Width int
	Align Align
}

// Table renders fixed-width rows of possibly styled cells.
type Table struct {
	columns   []Column
	rows      [][]string
	indent    string
	headerSep bool
}

// NewTable returns a table with a header separator and a two-space indent.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:   columns,
		indent:    "  ",
		headerSep: true,
	}
}

// SetIndent sets the prefix of every rendered line.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator toggles the rule under the header.
func (t *Table) SetHeaderSeparator(on bool) *Table {
	t.headerSep = on
	return t
}

// AddRow appends a row, padding missing cells with "".
func (t *Table) AddRow(values ...string) *Table {
	row := make([]string, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
	return t
}

// Render returns the table, one line per row, each ending in a newline.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}
	var b strings.Builder

	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		name := truncate(col.Name, col.Width)
		cells[i] = t.pad(Header.Render(name), name, col.Width, col.Align)
	}
	t.line(&b, cells)

	if t.headerSep {
		for i, col := range t.columns {
			cells[i] = Dim.Render(strings.Repeat("─", col.Width))
		}
		t.line(&b, cells)
	}

	for _, row := range t.rows {
		for i, col := range t.columns {
			styled := truncate(row[i], col.Width)
			plain := stripAnsi(styled)
			cells[i] = t.pad(styled, plain, col.Width, col.Align)
		}
		t.line(&b, cells)
	}
	return b.String()
}

func (t *Table) line(b *strings.Builder, cells []string) {
	b.WriteString(t.indent)
	b.WriteString(strings.TrimRight(strings.Join(cells, " "), " "))
	b.WriteByte('\n')
}

// pad aligns styled within width, measuring by plain.
func (t *Table) pad(styled, plain string, width int, align Align) string {
	w := lipgloss.Width(plain)
	if w >= width {
		return styled
	}
	gap := width - w
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + styled
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", gap-left)
	default:
		return styled + strings.Repeat(" ", gap)
	}
}

// truncate cuts s to width terminal cells, keeping any styling and
// ending in "..." when there is room for it.
func truncate(s string, width int) string {
	if ansi.StringWidth(s) <= width {
		return s
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	return ansi.Truncate(s, width, tail)
}

func stripAnsi(s string) string {
	return ansi.Strip(s)
}
