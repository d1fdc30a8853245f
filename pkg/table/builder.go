package table

import (
	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
)

// Builder accumulates rows for a fixed list of column names.
//
// Builder is not safe for concurrent use.
type Builder struct {
	names []string
	cells [][]columnar.Value
}

// NewBuilder creates a builder for the given column names, in order.
// Repeated names keep the last declared column's cells.
func NewBuilder(names ...string) *Builder {
	cells := make([][]columnar.Value, len(names))
	return &Builder{names: names, cells: cells}
}

// Names returns the declared column names.
func (b *Builder) Names() []string { return b.names }

// Len returns the number of rows added so far.
func (b *Builder) Len() int {
	if len(b.cells) == 0 {
		return 0
	}
	return len(b.cells[0])
}

// AddRow appends one row. The row must have exactly one cell per declared
// column.
func (b *Builder) AddRow(cells ...string) error {
	if len(cells) != len(b.names) {
		return errors.ColumnCountMismatch(len(b.names), len(cells))
	}
	for i, c := range cells {
		b.cells[i] = append(b.cells[i], columnar.Value(c))
	}
	return nil
}

// AddValues appends one row of values.
func (b *Builder) AddValues(values []columnar.Value) error {
	if len(values) != len(b.names) {
		return errors.ColumnCountMismatch(len(b.names), len(values))
	}
	for i, v := range values {
		b.cells[i] = append(b.cells[i], v)
	}
	return nil
}

// Build materializes one column per declared name. The builder must not be
// used afterwards.
func (b *Builder) Build() *Table {
	t := &Table{
		columns: make(map[string]*columnar.Column, len(b.names)),
		rows:    b.Len(),
	}
	for i, name := range b.names {
		t.columns[name] = columnar.NewColumn(b.cells[i])
	}
	b.cells = nil
	return t
}
