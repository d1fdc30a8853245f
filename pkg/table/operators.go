package table

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
)

// SelectColumns returns a table holding only the named columns.
func (t *Table) SelectColumns(names ...string) (*Table, error) {
	defer metrics.ObserveOperation("select", time.Now())

	out := &Table{columns: make(map[string]*columnar.Column, len(names))}
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out.set(name, col)
	}
	return out, nil
}

// DeselectColumn returns a table without the named column.
func (t *Table) DeselectColumn(name string) (*Table, error) {
	defer metrics.ObserveOperation("deselect", time.Now())

	if !t.HasColumn(name) {
		return nil, errors.MissingColumn(name)
	}
	out := t.with(0)
	delete(out.columns, name)
	if len(out.columns) == 0 {
		out.rows = 0
	}
	return out, nil
}

// RenameColumn returns a table where column oldName is called newName. If
// newName already names another column, that column is replaced.
func (t *Table) RenameColumn(oldName, newName string) (*Table, error) {
	defer metrics.ObserveOperation("rename", time.Now())

	col, err := t.Column(oldName)
	if err != nil {
		return nil, err
	}
	out := t.with(0)
	delete(out.columns, oldName)
	out.columns[newName] = col
	return out, nil
}

// FilterColumn keeps the rows whose value in column name satisfies keep,
// preserving their order. When every row is kept the result shares all
// columns with t.
func (t *Table) FilterColumn(name string, keep func(string) bool) (*Table, error) {
	defer metrics.ObserveOperation("filter", time.Now())

	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	positions := make([]int, 0, col.Len())
	for i, v := range col.Cells() {
		if keep(v.String()) {
			positions = append(positions, i)
		}
	}
	if len(positions) == t.rows {
		return t.Clone(), nil
	}
	return t.remap(positions), nil
}

// DiffOnColumns keeps the rows of t whose selfKey value does not occur in
// other's otherKey column.
func (t *Table) DiffOnColumns(selfKey string, other *Table, otherKey string) (*Table, error) {
	defer metrics.ObserveOperation("diff", time.Now())

	selfCol, err := t.Column(selfKey)
	if err != nil {
		return nil, err
	}
	otherCol, err := other.Column(otherKey)
	if err != nil {
		return nil, err
	}
	index := otherCol.Index()
	positions := make([]int, 0, selfCol.Len())
	for i, v := range selfCol.Cells() {
		if _, found := index[v]; !found {
			positions = append(positions, i)
		}
	}
	return t.remap(positions), nil
}

// MapColumn replaces every value of column name with fn(value).
func (t *Table) MapColumn(name string, fn func(string) string) (*Table, error) {
	defer metrics.ObserveOperation("map", time.Now())

	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	cells := make([]columnar.Value, col.Len())
	for i, v := range col.Cells() {
		cells[i] = columnar.Value(fn(v.String()))
	}
	out := t.with(0)
	out.columns[name] = columnar.NewColumn(cells)
	return out, nil
}

// DistinctColumn keeps the first row holding each distinct value of column
// name, in order of first occurrence.
func (t *Table) DistinctColumn(name string) (*Table, error) {
	defer metrics.ObserveOperation("distinct", time.Now())

	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[columnar.Value]struct{}, col.Len())
	positions := make([]int, 0, col.Len())
	for i, v := range col.Cells() {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		positions = append(positions, i)
	}
	return t.remap(positions), nil
}

// Head returns the first n rows of t. t itself is returned when it has no
// more than n rows.
func (t *Table) Head(n int) *Table {
	if n >= t.rows {
		return t
	}
	if n < 0 {
		n = 0
	}
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return t.remap(positions)
}

// SortColumn orders rows by the byte-wise value of column name. Rows with
// equal values keep their relative order.
func (t *Table) SortColumn(name string) (*Table, error) {
	defer metrics.ObserveOperation("sort", time.Now())

	return t.sortBy(name, strings.Compare)
}

// SortColumnBy orders rows by column name using cmp, which returns a
// negative number, zero or a positive number as a sorts before, with or
// after b. The sort is stable.
func (t *Table) SortColumnBy(name string, cmp func(a, b string) int) (*Table, error) {
	defer metrics.ObserveOperation("sort", time.Now())

	return t.sortBy(name, cmp)
}

func (t *Table) sortBy(name string, cmp func(a, b string) int) (*Table, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	cells := col.Cells()
	positions := make([]int, len(cells))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return cmp(cells[positions[i]].String(), cells[positions[j]].String()) < 0
	})
	return t.remap(positions), nil
}

// Concatenate appends the rows of other below the rows of t. other must have
// every column of t; its extra columns are ignored.
func (t *Table) Concatenate(other *Table) (*Table, error) {
	defer metrics.ObserveOperation("concatenate", time.Now())

	rows := t.rows + other.rows
	out := &Table{columns: make(map[string]*columnar.Column, len(t.columns))}
	for _, name := range t.ColumnNames() {
		otherCol, ok := other.columns[name]
		if !ok {
			return nil, errors.ConcatenateColumnMismatch(name)
		}
		cells := make([]columnar.Value, 0, rows)
		cells = append(cells, t.columns[name].Cells()...)
		cells = append(cells, otherCol.Cells()...)
		out.set(name, columnar.NewColumn(cells))
	}
	return out, nil
}

// CreateFixedColumn adds a column called name holding value in every row,
// replacing any existing column of that name.
func (t *Table) CreateFixedColumn(name, value string) *Table {
	defer metrics.ObserveOperation("fixed", time.Now())

	v := columnar.Value(value)
	cells := make([]columnar.Value, t.rows)
	for i := range cells {
		cells[i] = v
	}
	out := t.with(1)
	out.columns[name] = columnar.NewColumn(cells)
	return out
}

// CreateColumn adds the column op.Output whose value in each row is op.Fn
// applied to that row's values of op.Inputs. An existing column called
// op.Output is replaced.
func (t *Table) CreateColumn(op MiOp) (*Table, error) {
	defer metrics.ObserveOperation("derive", time.Now())

	inputs := make([]*columnar.Column, len(op.Inputs))
	for i, name := range op.Inputs {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		inputs[i] = col
	}

	cells := make([]columnar.Value, t.rows)
	for row := range cells {
		// op.Fn may keep args, so each row gets its own slice.
		args := make([]string, len(inputs))
		for i, col := range inputs {
			args[i] = col.Get(row).String()
		}
		cells[row] = columnar.Value(op.Fn(args))
	}
	out := t.with(1)
	out.columns[op.Output] = columnar.NewColumn(cells)
	return out, nil
}

// ConcatenateColumns adds the column newName holding col1 + separator + col2
// for every row.
func (t *Table) ConcatenateColumns(col1, separator, col2, newName string) (*Table, error) {
	defer metrics.ObserveOperation("concat_columns", time.Now())

	a, err := t.Column(col1)
	if err != nil {
		return nil, err
	}
	b, err := t.Column(col2)
	if err != nil {
		return nil, err
	}
	cells := make([]columnar.Value, t.rows)
	var sb strings.Builder
	for i := range cells {
		x, y := a.Get(i).String(), b.Get(i).String()
		sb.Grow(len(x) + len(separator) + len(y))
		sb.WriteString(x)
		sb.WriteString(separator)
		sb.WriteString(y)
		cells[i] = columnar.Value(sb.String())
		sb.Reset()
	}
	out := t.with(1)
	out.columns[newName] = columnar.NewColumn(cells)
	return out, nil
}

// JoinOnColumns returns the inner equi-join of t and other on
// t.selfKey == other.otherKey. Every matching pair of rows yields one output
// row. The result holds the columns of both tables; when both have a column
// of the same name, the probed side's column wins.
//
// The key column that already has an index is used as the indexed side. If
// neither has one, the side with fewer rows is indexed (t on a tie). Every
// row of the other side is then probed against that index.
func (t *Table) JoinOnColumns(selfKey string, other *Table, otherKey string) (*Table, error) {
	defer metrics.ObserveOperation("join", time.Now())

	selfCol, err := t.Column(selfKey)
	if err != nil {
		return nil, err
	}
	otherCol, err := other.Column(otherKey)
	if err != nil {
		return nil, err
	}

	if selfCol.HasIndex() || (!otherCol.HasIndex() && selfCol.Len() <= otherCol.Len()) {
		return join(t, selfCol, other, otherCol, "self"), nil
	}
	return join(other, otherCol, t, selfCol, "other"), nil
}

// join indexes indexedCol, probes probeCol and merges the remapped tables.
func join(indexed *Table, indexedCol *columnar.Column, probe *Table, probeCol *columnar.Column, side string) *Table {
	reuse := "built"
	if indexedCol.HasIndex() {
		reuse = "reused"
	}
	metrics.JoinStrategy.WithLabelValues(side, reuse).Inc()
	logger.Debug("join strategy",
		zap.String("indexed", side),
		zap.String("index", reuse),
		zap.Int("indexed_rows", indexedCol.Len()),
		zap.Int("probe_rows", probeCol.Len()))

	index := indexedCol.Index()
	indexedPositions := make([]int, 0, indexedCol.Len())
	probePositions := make([]int, 0, indexedCol.Len())
	for pos, v := range probeCol.Cells() {
		matches, found := index[v]
		if !found {
			continue
		}
		indexedPositions = append(indexedPositions, matches...)
		for range matches {
			probePositions = append(probePositions, pos)
		}
	}

	out := indexed.remap(indexedPositions)
	probed := probe.remap(probePositions)
	for name, col := range probed.columns {
		out.set(name, col)
	}
	return out
}

// GroupByColumn returns one row per distinct value of column name, in order
// of first occurrence. For each op, the op's column holds op.Fn applied to
// the group's values in row order; a later op on the same column replaces an
// earlier one. Every other column holds its value from the first row of the
// group.
func (t *Table) GroupByColumn(name string, ops ...Op) (*Table, error) {
	defer metrics.ObserveOperation("group_by", time.Now())

	groupCol, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	aggregates := make(map[string]Func, len(ops))
	for _, op := range ops {
		if _, err := t.Column(op.Column); err != nil {
			return nil, err
		}
		aggregates[op.Column] = op.Fn
	}

	index := groupCol.Index()
	groups := make([][]int, 0, len(index))
	for i, v := range groupCol.Cells() {
		if positions := index[v]; positions[0] == i {
			groups = append(groups, positions)
		}
	}
	representatives := make([]int, len(groups))
	for g, positions := range groups {
		representatives[g] = positions[0]
	}

	out := &Table{columns: make(map[string]*columnar.Column, len(t.columns))}
	for colName, col := range t.columns {
		fn, ok := aggregates[colName]
		if !ok {
			out.set(colName, col.Remap(representatives))
			continue
		}
		cells := make([]columnar.Value, len(groups))
		for g, positions := range groups {
			values := make([]string, len(positions))
			for i, p := range positions {
				values[i] = col.Get(p).String()
			}
			cells[g] = columnar.Value(fn(values))
		}
		out.set(colName, columnar.NewColumn(cells))
	}
	return out, nil
}
