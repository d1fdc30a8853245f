package table

import (
	"strings"
	"unicode/utf8"
)

// Render draws the table as a fixed-width box for humans. Columns appear in
// alphabetical order; each is as wide as its name or its widest cell,
// counted in runes.
//
//	______________
//	| id | name  |
//	|----+-------|
//	| 1  | Ada   |
//	| 2  | Grace |
//	|____________|
func (t *Table) Render() string {
	names := t.ColumnNames()
	widths := make([]int, len(names))
	total := 0
	for i, name := range names {
		w := utf8.RuneCountInString(name)
		for _, v := range t.columns[name].Cells() {
			if n := utf8.RuneCountInString(v.String()); n > w {
				w = n
			}
		}
		widths[i] = w
		total += w
	}
	width := total + 3*len(names) + 1

	var sb strings.Builder
	sb.Grow((t.rows + 4) * (width + 1))

	sb.WriteString(strings.Repeat("_", width))
	sb.WriteString("\n")
	writeRenderRow(&sb, names, widths)

	sb.WriteString("|")
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("+")
		}
		sb.WriteString(strings.Repeat("-", w+2))
	}
	sb.WriteString("|\n")

	cells := make([]string, len(names))
	for row := 0; row < t.rows; row++ {
		for i, name := range names {
			cells[i] = t.columns[name].Get(row).String()
		}
		writeRenderRow(&sb, cells, widths)
	}

	sb.WriteString("|")
	if width > 2 {
		sb.WriteString(strings.Repeat("_", width-2))
	}
	sb.WriteString("|\n")
	return sb.String()
}

func writeRenderRow(sb *strings.Builder, cells []string, widths []int) {
	sb.WriteString("|")
	for i, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(c)
		sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c)))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

// String implements fmt.Stringer using Render.
func (t *Table) String() string { return t.Render() }
