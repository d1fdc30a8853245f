package table

import (
	"sort"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
)

// Table is an immutable collection of named, equal-length columns.
type Table struct {
	columns map[string]*columnar.Column
	rows    int
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{columns: map[string]*columnar.Column{}}
}

// New creates a table from columns. All columns must have the same length.
// The map is copied; the columns are shared.
func New(columns map[string]*columnar.Column) (*Table, error) {
	t := &Table{columns: make(map[string]*columnar.Column, len(columns))}
	first := true
	for name, col := range columns {
		if first {
			t.rows = col.Len()
			first = false
		} else if col.Len() != t.rows {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"column %q has %d rows, expected %d", name, col.Len(), t.rows).
				WithDetail("column", name)
		}
		t.columns[name] = col
	}
	return t, nil
}

// FromColumns builds a table from names and per-column cell slices.
func FromColumns(names []string, cells [][]string) (*Table, error) {
	if len(names) != len(cells) {
		return nil, errors.ColumnCountMismatch(len(names), len(cells))
	}
	cols := make(map[string]*columnar.Column, len(names))
	for i, name := range names {
		cols[name] = columnar.NewColumnFromStrings(cells[i])
	}
	return New(cols)
}

// with returns a table sharing every column of t, with room for extra.
func (t *Table) with(extra int) *Table {
	cols := make(map[string]*columnar.Column, len(t.columns)+extra)
	for name, col := range t.columns {
		cols[name] = col
	}
	return &Table{columns: cols, rows: t.rows}
}

// set stores col under name, overwriting any existing column. It only
// updates the row count when the table had no columns.
func (t *Table) set(name string, col *columnar.Column) {
	if len(t.columns) == 0 {
		t.rows = col.Len()
	}
	t.columns[name] = col
}

// RowCount returns the number of rows. A table with no columns has zero rows.
func (t *Table) RowCount() int { return t.rows }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// ColumnNames returns the column names sorted alphabetically.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.columns))
	for name := range t.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*columnar.Column, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, errors.MissingColumn(name)
	}
	return col, nil
}

// Row returns the i-th row as a name to value map. It panics if i is out of
// range.
func (t *Table) Row(i int) map[string]string {
	if i < 0 || i >= t.rows {
		panic("table: row index out of range")
	}
	row := make(map[string]string, len(t.columns))
	for name, col := range t.columns {
		row[name] = col.Get(i).String()
	}
	return row
}

// Values returns the cells of row i in the order of names.
func (t *Table) Values(i int, names []string) ([]string, error) {
	out := make([]string, len(names))
	for j, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out[j] = col.Get(i).String()
	}
	return out, nil
}

// Clone returns a table sharing every column of t.
func (t *Table) Clone() *Table { return t.with(0) }

// remap applies positions to every column.
func (t *Table) remap(positions []int) *Table {
	cols := make(map[string]*columnar.Column, len(t.columns))
	for name, col := range t.columns {
		cols[name] = col.Remap(positions)
	}
	rows := len(positions)
	if len(cols) == 0 {
		rows = 0
	}
	return &Table{columns: cols, rows: rows}
}
