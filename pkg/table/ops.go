package table

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/tabula/pkg/errors"
)

// Func reduces or combines raw cell values into one value.
type Func func(values []string) string

// Op aggregates the values of Column within each group of GroupByColumn.
type Op struct {
	Column string
	Fn     Func
}

// NewOp creates an Op.
func NewOp(column string, fn Func) Op {
	return Op{Column: column, Fn: fn}
}

// MiOp derives Output from the values of Inputs in each row, in the order
// the inputs are listed.
type MiOp struct {
	Inputs []string
	Output string
	Fn     Func
}

// NewMiOp creates a MiOp.
func NewMiOp(inputs []string, output string, fn Func) MiOp {
	return MiOp{Inputs: inputs, Output: output, Fn: fn}
}

// Count returns the number of values.
func Count() Func {
	return func(values []string) string {
		return strconv.Itoa(len(values))
	}
}

// Sum adds values as decimal numbers. Values that do not parse are skipped.
// Integers are summed exactly; any fractional input switches to float64.
func Sum() Func {
	return func(values []string) string {
		total := new(big.Int)
		var ftotal float64
		fractional := false
		for _, v := range values {
			v = strings.TrimSpace(v)
			if n, ok := new(big.Int).SetString(v, 10); ok && !fractional {
				total.Add(total, n)
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if !fractional {
				fractional = true
				ftotal, _ = new(big.Float).SetInt(total).Float64()
			}
			ftotal += f
		}
		if fractional {
			return strconv.FormatFloat(ftotal, 'f', -1, 64)
		}
		return total.String()
	}
}

// Min returns the smallest value under cmp, or "" for no values.
func Min(cmp func(a, b string) int) Func {
	return func(values []string) string {
		if len(values) == 0 {
			return ""
		}
		best := values[0]
		for _, v := range values[1:] {
			if cmp(v, best) < 0 {
				best = v
			}
		}
		return best
	}
}

// Max returns the largest value under cmp, or "" for no values.
func Max(cmp func(a, b string) int) Func {
	return func(values []string) string {
		if len(values) == 0 {
			return ""
		}
		best := values[0]
		for _, v := range values[1:] {
			if cmp(v, best) > 0 {
				best = v
			}
		}
		return best
	}
}

// First returns the first value in row order.
func First() Func {
	return func(values []string) string {
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
}

// Last returns the last value in row order.
func Last() Func {
	return func(values []string) string {
		if len(values) == 0 {
			return ""
		}
		return values[len(values)-1]
	}
}

// Join concatenates the values in row order separated by sep.
func Join(sep string) Func {
	return func(values []string) string {
		return strings.Join(values, sep)
	}
}

// CountDistinct returns the number of distinct values.
func CountDistinct() Func {
	return func(values []string) string {
		seen := make(map[string]struct{}, len(values))
		for _, v := range values {
			seen[v] = struct{}{}
		}
		return strconv.Itoa(len(seen))
	}
}

// Lexical orders strings byte-wise.
func Lexical(a, b string) int { return strings.Compare(a, b) }

// NumericOrder orders decimal numbers by value. Strings that do not parse
// as numbers sort after all numbers, byte-wise among themselves.
func NumericOrder(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Descending reverses cmp.
func Descending(cmp func(a, b string) int) func(a, b string) int {
	return func(a, b string) int { return cmp(b, a) }
}

// OrderByName returns the comparator registered under name: "lexical"
// (or ""), "numeric", with an optional "-desc" suffix.
func OrderByName(name string) (func(a, b string) int, error) {
	desc := strings.HasSuffix(name, "-desc")
	base := strings.TrimSuffix(name, "-desc")
	var cmp func(a, b string) int
	switch base {
	case "", "lexical":
		cmp = Lexical
	case "numeric":
		cmp = NumericOrder
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown sort order %q", name)
	}
	if desc {
		cmp = Descending(cmp)
	}
	return cmp, nil
}

// AggregateByName returns the stock aggregate registered under name.
// arg is the separator for "join" and is ignored otherwise.
func AggregateByName(name, arg string) (Func, error) {
	switch name {
	case "count":
		return Count(), nil
	case "count_distinct":
		return CountDistinct(), nil
	case "sum":
		return Sum(), nil
	case "min":
		return Min(Lexical), nil
	case "max":
		return Max(Lexical), nil
	case "min_numeric":
		return Min(NumericOrder), nil
	case "max_numeric":
		return Max(NumericOrder), nil
	case "first":
		return First(), nil
	case "last":
		return Last(), nil
	case "join":
		return Join(arg), nil
	}
	return nil, errors.Newf(errors.ErrorTypeValidation, "unknown aggregate %q", name).
		WithDetail("aggregates", strings.Join(AggregateNames(), ","))
}

// AggregateNames lists the names accepted by AggregateByName.
func AggregateNames() []string {
	names := []string{
		"count", "count_distinct", "sum", "min", "max",
		"min_numeric", "max_numeric", "first", "last", "join",
	}
	sort.Strings(names)
	return names
}
