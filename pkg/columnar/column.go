package columnar

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
)

// Index maps each distinct value of a column to its positions, ascending.
type Index map[Value][]int

// Column is an immutable sequence of values plus a cached Index.
type Column struct {
	cells []Value

	once  sync.Once
	built atomic.Bool
	index Index
}

// NewColumn creates a column over cells. The column takes ownership of the
// slice; callers must not modify it afterwards.
func NewColumn(cells []Value) *Column {
	return &Column{cells: cells}
}

// NewColumnFromStrings creates a column holding a copy of ss.
func NewColumnFromStrings(ss []string) *Column {
	return NewColumn(Values(ss...))
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.cells) }

// Cells returns the cells in order. The slice is shared with the column and
// must be treated as read-only.
func (c *Column) Cells() []Value { return c.cells }

// Get returns the cell at position i.
func (c *Column) Get(i int) Value { return c.cells[i] }

// Strings returns a copy of the cells as strings.
func (c *Column) Strings() []string {
	out := make([]string, len(c.cells))
	for i, v := range c.cells {
		out[i] = string(v)
	}
	return out
}

// Remap returns a new column whose i-th cell is c.Get(positions[i]).
// Positions may repeat or appear in any order. The index is not carried over.
func (c *Column) Remap(positions []int) *Column {
	cells := make([]Value, len(positions))
	for i, p := range positions {
		cells[i] = c.cells[p]
	}
	return NewColumn(cells)
}

// Index returns the value-to-positions index, building it on first use.
// The returned map is shared and must not be modified.
func (c *Column) Index() Index {
	c.once.Do(func() {
		idx := make(Index)
		for i, v := range c.cells {
			idx[v] = append(idx[v], i)
		}
		c.index = idx
		c.built.Store(true)

		metrics.IndexBuilds.Inc()
		logger.Debug("column index built",
			zap.Int("rows", len(c.cells)),
			zap.Int("distinct", len(idx)))
	})
	return c.index
}

// HasIndex reports whether the index has already been built.
func (c *Column) HasIndex() bool { return c.built.Load() }

// Positions returns the positions holding v, ascending. It builds the index
// if needed.
func (c *Column) Positions(v Value) []int { return c.Index()[v] }

// Distinct returns the number of distinct values, building the index if
// needed.
func (c *Column) Distinct() int { return len(c.Index()) }
