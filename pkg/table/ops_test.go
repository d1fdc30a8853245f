package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
)

func TestStockAggregates(t *testing.T) {
	values := []string{"10", "9", "x", "10"}

	tests := []struct {
		name string
		fn   Func
		want string
	}{
		{"count", Count(), "4"},
		{"count distinct", CountDistinct(), "3"},
		{"sum skips non numeric", Sum(), "29"},
		{"min lexical", Min(Lexical), "10"},
		{"max lexical", Max(Lexical), "x"},
		{"min numeric", Min(NumericOrder), "9"},
		{"max numeric", Max(NumericOrder), "x"},
		{"first", First(), "10"},
		{"last", Last(), "10"},
		{"join", Join("|"), "10|9|x|10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(values))
		})
	}
}

func TestAggregatesOnEmptyInput(t *testing.T) {
	for _, fn := range []Func{First(), Last(), Min(Lexical), Max(Lexical), Join(",")} {
		assert.Equal(t, "", fn(nil))
	}
	assert.Equal(t, "0", Count()(nil))
	assert.Equal(t, "0", Sum()(nil))
}

func TestSumFractional(t *testing.T) {
	assert.Equal(t, "3.75", Sum()([]string{"1", "2.5", " 0.25 "}))
	assert.Equal(t, "123456789012345678901234567890",
		Sum()([]string{"123456789012345678901234567889", "1"}))
}

func TestNumericOrder(t *testing.T) {
	assert.Equal(t, -1, NumericOrder("9", "10"))
	assert.Equal(t, 1, NumericOrder("10", "9"))
	assert.Equal(t, 0, NumericOrder("1.0", "1"))
	assert.Equal(t, -1, NumericOrder("5", "abc"))
	assert.Equal(t, 1, NumericOrder("abc", "5"))
	assert.Equal(t, -1, NumericOrder("abc", "abd"))
	assert.Equal(t, 1, Descending(NumericOrder)("9", "10"))
}

func TestAggregateByName(t *testing.T) {
	for _, name := range AggregateNames() {
		fn, err := AggregateByName(name, ",")
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}

	join, err := AggregateByName("join", "/")
	require.NoError(t, err)
	assert.Equal(t, "a/b", join([]string{"a", "b"}))

	_, err = AggregateByName("median", "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestOrderByName(t *testing.T) {
	cmp, err := OrderByName("numeric-desc")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp("2", "10"))

	cmp, err = OrderByName("")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp("10", "2"))

	_, err = OrderByName("random")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder("a", "b")
	assert.Equal(t, []string{"a", "b"}, b.Names())
	require.NoError(t, b.AddRow("1", "2"))
	require.NoError(t, b.AddValues([]columnar.Value{"3", "4"}))

	err := b.AddRow("only")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnCountMismatch))
	assert.Equal(t, "2", err.(*errors.Error).Detail("expected"))
	assert.Equal(t, "1", err.(*errors.Error).Detail("actual"))
	assert.Equal(t, 2, b.Len())

	tbl := b.Build()
	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, []string{"2", "4"}, cells(t, tbl, "b"))

	empty := NewBuilder("x").Build()
	assert.Equal(t, 0, empty.RowCount())
	assert.Equal(t, 1, empty.ColumnCount())
}
