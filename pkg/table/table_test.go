package table

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
)

// build creates a table from a header and rows.
func build(t *testing.T, names []string, rows ...[]string) *Table {
	t.Helper()
	b := NewBuilder(names...)
	for _, r := range rows {
		require.NoError(t, b.AddRow(r...))
	}
	return b.Build()
}

func cells(t *testing.T, tbl *Table, name string) []string {
	t.Helper()
	col, err := tbl.Column(name)
	require.NoError(t, err)
	return col.Strings()
}

func people(t *testing.T) *Table {
	return build(t, []string{"id", "name"},
		[]string{"1", "Alice"},
		[]string{"2", "Bob"},
	)
}

func useTestLogger(t *testing.T) {
	prev := logger.Get()
	logger.SetLogger(zaptest.NewLogger(t))
	t.Cleanup(func() { logger.SetLogger(prev) })
}

func TestAccessors(t *testing.T) {
	tbl := people(t)
	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, 2, tbl.ColumnCount())
	assert.Equal(t, []string{"id", "name"}, tbl.ColumnNames())
	assert.True(t, tbl.HasColumn("id"))
	assert.False(t, tbl.HasColumn("age"))
	assert.Equal(t, map[string]string{"id": "2", "name": "Bob"}, tbl.Row(1))

	vals, err := tbl.Values(0, []string{"name", "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "1"}, vals)

	_, err = tbl.Column("age")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
	assert.Panics(t, func() { tbl.Row(2) })

	empty := Empty()
	assert.Equal(t, 0, empty.RowCount())
	assert.Empty(t, empty.ColumnNames())
}

func TestNewRejectsUnequalColumns(t *testing.T) {
	_, err := New(map[string]*columnar.Column{
		"a": columnar.NewColumnFromStrings([]string{"1", "2"}),
		"b": columnar.NewColumnFromStrings([]string{"1"}),
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	tbl, err := FromColumns([]string{"a", "b"}, [][]string{{"1", "2"}, {"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.RowCount())

	_, err = FromColumns([]string{"a"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnCountMismatch))
}

func TestCloneSharesColumns(t *testing.T) {
	tbl := people(t)
	clone := tbl.Clone()
	a, _ := tbl.Column("id")
	b, _ := clone.Column("id")
	assert.Same(t, a, b)
}

func TestProjection(t *testing.T) {
	tbl := people(t)

	sel, err := tbl.SelectColumns("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, sel.ColumnNames())
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, sel, "name"))

	_, err = tbl.SelectColumns("name", "age")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))

	none, err := tbl.SelectColumns()
	require.NoError(t, err)
	assert.Equal(t, 0, none.RowCount())

	des, err := tbl.DeselectColumn("id")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, des.ColumnNames())
	assert.Equal(t, 2, tbl.ColumnCount())

	_, err = tbl.DeselectColumn("age")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestRenameColumn(t *testing.T) {
	tbl := people(t)

	renamed, err := tbl.RenameColumn("name", "first")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "id"}, renamed.ColumnNames())
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, renamed, "first"))

	overwritten, err := tbl.RenameColumn("name", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, overwritten.ColumnNames())
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, overwritten, "id"))

	_, err = tbl.RenameColumn("age", "years")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestFilterColumn(t *testing.T) {
	tbl := build(t, []string{"k", "v"},
		[]string{"a", "1"}, []string{"b", "2"}, []string{"a", "3"}, []string{"c", "4"})

	got, err := tbl.FilterColumn("k", func(v string) bool { return v != "b" })
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "4"}, cells(t, got, "v"))
	assert.LessOrEqual(t, got.RowCount(), tbl.RowCount())

	all, err := tbl.FilterColumn("k", func(string) bool { return true })
	require.NoError(t, err)
	before, _ := tbl.Column("v")
	after, _ := all.Column("v")
	assert.Same(t, before, after)

	none, err := tbl.FilterColumn("k", func(string) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, 0, none.RowCount())
	assert.Equal(t, 2, none.ColumnCount())

	_, err = tbl.FilterColumn("missing", func(string) bool { return true })
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestDiffOnColumns(t *testing.T) {
	left := build(t, []string{"id"}, []string{"1"}, []string{"2"}, []string{"3"}, []string{"2"})
	right := build(t, []string{"ref"}, []string{"2"}, []string{"9"})

	got, err := left.DiffOnColumns("id", right, "ref")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, cells(t, got, "id"))

	self, err := left.DiffOnColumns("id", left, "id")
	require.NoError(t, err)
	assert.Equal(t, 0, self.RowCount())

	_, err = left.DiffOnColumns("id", right, "id")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestMapColumn(t *testing.T) {
	tbl := people(t)
	got, err := tbl.MapColumn("name", strings.ToUpper)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALICE", "BOB"}, cells(t, got, "name"))
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, tbl, "name"))

	before, _ := tbl.Column("id")
	after, _ := got.Column("id")
	assert.Same(t, before, after)

	_, err = tbl.MapColumn("age", strings.ToUpper)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestDistinctColumn(t *testing.T) {
	tbl := build(t, []string{"k", "pos"},
		[]string{"b", "0"}, []string{"a", "1"}, []string{"b", "2"}, []string{"c", "3"}, []string{"a", "4"})

	got, err := tbl.DistinctColumn("k")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, cells(t, got, "k"))
	assert.Equal(t, []string{"0", "1", "3"}, cells(t, got, "pos"))
}

func TestSortColumnIsStable(t *testing.T) {
	tbl := build(t, []string{"k", "pos"},
		[]string{"b", "0"}, []string{"a", "1"}, []string{"b", "2"}, []string{"B", "3"}, []string{"a", "4"})

	got, err := tbl.SortColumn("k")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "a", "a", "b", "b"}, cells(t, got, "k"))
	assert.Equal(t, []string{"3", "1", "4", "0", "2"}, cells(t, got, "pos"))

	byLen, err := tbl.SortColumnBy("pos", Descending(NumericOrder))
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2", "1", "0"}, cells(t, byLen, "pos"))

	_, err = tbl.SortColumn("missing")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestConcatenate(t *testing.T) {
	a := people(t)
	b := build(t, []string{"name", "id", "extra"}, []string{"Carol", "3", "x"})

	got, err := a.Concatenate(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, got.ColumnNames())
	assert.Equal(t, []string{"1", "2", "3"}, cells(t, got, "id"))
	assert.Equal(t, 3, got.RowCount())

	_, err = b.Concatenate(a)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConcatenateColumnMismatch))
	assert.Equal(t, "extra", err.(*errors.Error).Detail("column"))
}

func TestDerivedColumns(t *testing.T) {
	tbl := people(t)

	fixed := tbl.CreateFixedColumn("country", "IT")
	assert.Equal(t, []string{"IT", "IT"}, cells(t, fixed, "country"))
	assert.False(t, tbl.HasColumn("country"))

	overwritten := tbl.CreateFixedColumn("id", "0")
	assert.Equal(t, []string{"0", "0"}, cells(t, overwritten, "id"))

	emptyFixed := Empty().CreateFixedColumn("x", "1")
	assert.Equal(t, 0, emptyFixed.RowCount())

	derived, err := tbl.CreateColumn(NewMiOp([]string{"name", "id"}, "label", func(v []string) string {
		return v[0] + "#" + v[1]
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice#1", "Bob#2"}, cells(t, derived, "label"))

	_, err = tbl.CreateColumn(NewMiOp([]string{"age"}, "x", First()))
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))

	joined, err := tbl.ConcatenateColumns("id", "-", "name", "key")
	require.NoError(t, err)
	assert.Equal(t, []string{"1-Alice", "2-Bob"}, cells(t, joined, "key"))

	_, err = tbl.ConcatenateColumns("id", "-", "age", "key")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestCreateColumnArgsOutliveRow(t *testing.T) {
	tbl := build(t, []string{"v"}, []string{"x"}, []string{"y"})

	var kept [][]string
	_, err := tbl.CreateColumn(NewMiOp([]string{"v"}, "out", func(v []string) string {
		kept = append(kept, v)
		return v[0]
	}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"y"}}, kept)
}

func TestHead(t *testing.T) {
	tbl := build(t, []string{"id", "name"},
		[]string{"1", "Alice"}, []string{"2", "Bob"}, []string{"3", "Carol"})

	got := tbl.Head(2)
	assert.Equal(t, []string{"id", "name"}, got.ColumnNames())
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, got, "name"))
	assert.Equal(t, 3, tbl.RowCount())

	assert.Same(t, tbl, tbl.Head(3))
	assert.Same(t, tbl, tbl.Head(10))
	assert.Equal(t, 0, tbl.Head(0).RowCount())
	assert.Equal(t, 0, tbl.Head(-1).RowCount())
}

func TestPeopleScenario(t *testing.T) {
	tbl := people(t)

	names, err := tbl.SelectColumns("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, names, "name"))

	first, err := tbl.FilterColumn("id", func(v string) bool { return v == "1" })
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "1", "name": "Alice"}, first.Row(0))
	assert.Equal(t, 1, first.RowCount())

	self, err := tbl.JoinOnColumns("id", tbl, "id")
	require.NoError(t, err)
	assert.Equal(t, 2, self.RowCount())
	assert.Equal(t, []string{"1", "2"}, cells(t, self, "id"))
	assert.Equal(t, []string{"Alice", "Bob"}, cells(t, self, "name"))
}

func TestJoinCardinality(t *testing.T) {
	useTestLogger(t)

	left := build(t, []string{"k", "l"},
		[]string{"a", "l0"}, []string{"a", "l1"}, []string{"b", "l2"}, []string{"x", "l3"})
	right := build(t, []string{"key", "r"},
		[]string{"a", "r0"}, []string{"b", "r1"}, []string{"b", "r2"}, []string{"a", "r3"}, []string{"y", "r4"})

	got, err := left.JoinOnColumns("k", right, "key")
	require.NoError(t, err)

	// a: 2x2, b: 1x2
	assert.Equal(t, 6, got.RowCount())
	assert.Equal(t, []string{"k", "key", "l", "r"}, got.ColumnNames())
	for i := 0; i < got.RowCount(); i++ {
		row := got.Row(i)
		assert.Equal(t, row["k"], row["key"])
	}

	// left is smaller, so it is indexed and right is probed in row order
	assert.Equal(t, []string{"r0", "r0", "r1", "r2", "r3", "r3"}, cells(t, got, "r"))
	assert.Equal(t, []string{"l0", "l1", "l2", "l2", "l0", "l1"}, cells(t, got, "l"))

	_, err = left.JoinOnColumns("missing", right, "key")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
	_, err = left.JoinOnColumns("k", right, "missing")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestJoinStrategy(t *testing.T) {
	useTestLogger(t)

	small := build(t, []string{"k", "v"}, []string{"a", "small"})
	large := build(t, []string{"k", "v"},
		[]string{"a", "large0"}, []string{"b", "large1"}, []string{"a", "large2"})

	builtOther := testutil.ToFloat64(metrics.JoinStrategy.WithLabelValues("other", "built"))
	got, err := large.JoinOnColumns("k", small, "k")
	require.NoError(t, err)
	assert.Equal(t, builtOther+1, testutil.ToFloat64(metrics.JoinStrategy.WithLabelValues("other", "built")))

	// large is probed, so its columns win the name collision
	assert.Equal(t, []string{"large0", "large2"}, cells(t, got, "v"))

	smallKey, _ := small.Column("k")
	largeKey, _ := large.Column("k")
	assert.True(t, smallKey.HasIndex())
	assert.False(t, largeKey.HasIndex())

	// an existing index wins over size
	largeKey.Index()
	reusedSelf := testutil.ToFloat64(metrics.JoinStrategy.WithLabelValues("self", "reused"))
	got, err = large.JoinOnColumns("k", small, "k")
	require.NoError(t, err)
	assert.Equal(t, reusedSelf+1, testutil.ToFloat64(metrics.JoinStrategy.WithLabelValues("self", "reused")))
	assert.Equal(t, []string{"small", "small"}, cells(t, got, "v"))
}

func TestGroupByColumn(t *testing.T) {
	tbl := build(t, []string{"k", "v", "note"},
		[]string{"a", "1", "first-a"},
		[]string{"b", "3", "first-b"},
		[]string{"a", "2", "second-a"},
	)

	got, err := tbl.GroupByColumn("k", NewOp("v", Join(",")))
	require.NoError(t, err)
	assert.Equal(t, 2, got.RowCount())
	assert.Equal(t, []string{"a", "b"}, cells(t, got, "k"))
	assert.Equal(t, []string{"1,2", "3"}, cells(t, got, "v"))
	assert.Equal(t, []string{"first-a", "first-b"}, cells(t, got, "note"))

	counted, err := tbl.GroupByColumn("k", NewOp("v", Join(",")), NewOp("v", Count()))
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, cells(t, counted, "v"))

	_, err = tbl.GroupByColumn("missing")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
	_, err = tbl.GroupByColumn("k", NewOp("missing", Count()))
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingColumn))
}

func TestGroupByScenario(t *testing.T) {
	tbl := build(t, []string{"k", "v"},
		[]string{"a", "1"}, []string{"a", "2"}, []string{"b", "3"})

	got, err := tbl.GroupByColumn("k", NewOp("v", func(values []string) string {
		return strings.Join(values, ",")
	}))
	require.NoError(t, err)

	groups := map[string]string{}
	for i := 0; i < got.RowCount(); i++ {
		row := got.Row(i)
		groups[row["k"]] = row["v"]
	}
	assert.Equal(t, map[string]string{"a": "1,2", "b": "3"}, groups)
}

func TestGroupByPartitionsCoverRows(t *testing.T) {
	tbl := build(t, []string{"k"},
		[]string{"x"}, []string{"y"}, []string{"x"}, []string{"z"}, []string{"y"}, []string{"x"})

	got, err := tbl.GroupByColumn("k", NewOp("k", Count()))
	require.NoError(t, err)
	col, _ := tbl.Column("k")
	assert.Equal(t, col.Distinct(), got.RowCount())

	total := 0
	for _, c := range cells(t, got, "k") {
		switch c {
		case "3":
			total += 3
		case "2":
			total += 2
		case "1":
			total++
		}
	}
	assert.Equal(t, tbl.RowCount(), total)
}

func TestOperatorsLeaveReceiverUnchanged(t *testing.T) {
	tbl := people(t)
	snapshot := tbl.Render()

	_, _ = tbl.RenameColumn("id", "key")
	_, _ = tbl.MapColumn("name", strings.ToLower)
	_ = tbl.CreateFixedColumn("x", "y")
	_, _ = tbl.SortColumnBy("name", Descending(Lexical))
	_, _ = tbl.GroupByColumn("name")

	assert.Equal(t, snapshot, tbl.Render())
}
