package ui

import (
	"strings"
)

// Column is a table column. Width 0 sizes the column to its widest cell.
type Column struct {
	Title string
	Width int
}

type Row []string

// Table renders rows as aligned plain columns with a styled header.
type Table struct {
	Columns []Column
	Rows    []Row
}

func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols}
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, Row(cells))
}

func (t *Table) widths() []int {
	w := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		if c.Width > 0 {
			w[i] = c.Width
			continue
		}
		w[i] = len(c.Title)
		for _, r := range t.Rows {
			if i < len(r) && len(r[i]) > w[i] {
				w[i] = len(r[i])
			}
		}
	}
	return w
}

func (t *Table) Render() string {
	widths := t.widths()
	var sb strings.Builder

	cells := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cells[i] = StyleHeader.Render(fit(c.Title, widths[i]))
	}
	sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")

	for i := range t.Columns {
		cells[i] = StyleMeta.Render(strings.Repeat("─", widths[i]))
	}
	sb.WriteString(strings.Join(cells, "  ") + "\n")

	for _, r := range t.Rows {
		for i := range t.Columns {
			v := ""
			if i < len(r) {
				v = r[i]
			}
			cells[i] = fit(v, widths[i])
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")
	}
	return sb.String()
}

// fit pads or truncates s to exactly n runes.
func fit(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		if n <= 1 {
			return string(r[:n])
		}
		return string(r[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-len(r))
}

// KV is one line of a KeyValueBlock.
type KV struct {
	Key   string
	Value string
}

// KeyValueBlock renders pairs in a bordered box, keys dimmed and aligned.
func KeyValueBlock(title string, pairs []KV) string {
	keyWidth := 0
	for _, p := range pairs {
		keyWidth = max(keyWidth, len(p.Key)+1)
	}
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for i, p := range pairs {
		sb.WriteString(StyleMeta.Render(padR(p.Key+":", keyWidth)) + "  " + StyleValue.Render(p.Value))
		if i < len(pairs)-1 {
			sb.WriteString("\n")
		}
	}
	return StyleBorder.Render(sb.String())
}
