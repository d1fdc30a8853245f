package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ajitpratap0/tabula/pkg/compression"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/formats"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// DefaultWorkers bounds concurrent loads and writes when a Document leaves
// Workers unset.
const DefaultWorkers = 4

// stepFunc computes a step's table from the tables defined so far.
type stepFunc func(tables map[string]*table.Table) (*table.Table, error)

// Plan is a validated pipeline ready to run.
type Plan struct {
	doc   *Document
	steps []stepFunc
}

// Document returns the document the plan was compiled from.
func (p *Plan) Document() *Document { return p.doc }

// Compile checks every input, step and output of doc and compiles the
// steps. All problems are reported together.
func Compile(doc *Document) (*Plan, error) {
	c := &compiler{defined: map[string]string{}}
	c.check(doc)
	if len(c.problems) > 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"invalid pipeline %q: %s", doc.Name, strings.Join(c.problems, "; ")).
			WithDetail("problems", len(c.problems))
	}
	return &Plan{doc: doc, steps: c.steps}, nil
}

type compiler struct {
	problems []string
	// defined maps table names to what defined them.
	defined map[string]string
	steps   []stepFunc
}

func (c *compiler) addf(format string, args ...interface{}) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *compiler) define(name, by string) {
	if name == "" {
		c.addf("%s: missing table name", by)
		return
	}
	if prev, ok := c.defined[name]; ok {
		c.addf("%s: table %q already defined by %s", by, name, prev)
		return
	}
	c.defined[name] = by
}

func (c *compiler) ref(name, by string) {
	if name == "" {
		c.addf("%s: missing table reference", by)
		return
	}
	if _, ok := c.defined[name]; !ok {
		c.addf("%s: unknown table %q", by, name)
	}
}

func (c *compiler) check(doc *Document) {
	if doc.Workers < 0 {
		c.addf("workers must not be negative")
	}
	if len(doc.Inputs) == 0 {
		c.addf("at least one input is required")
	}
	for i, in := range doc.Inputs {
		c.checkInput(i, in)
	}
	for i, st := range doc.Steps {
		by := "step " + strconv.Itoa(i+1) + " (" + st.Op + ")"
		fn, err := compileStep(st)
		if err != nil {
			c.addf("%s: %s", by, errorMessage(err))
		}
		c.ref(st.Input, by)
		if needsOther(st.Op) {
			c.ref(st.Other, by)
		}
		c.define(st.As, by)
		c.steps = append(c.steps, fn)
	}
	for i, out := range doc.Outputs {
		c.checkOutput(i, out)
	}
}

func (c *compiler) checkInput(i int, in Input) {
	by := "input " + strconv.Itoa(i+1)
	if in.Name != "" {
		by = "input " + in.Name
	}
	sources := 0
	if in.URI != "" {
		sources++
	}
	if in.SQL != nil {
		sources++
		if err := in.SQL.Validate(); err != nil {
			c.addf("%s: %s", by, errorMessage(err))
		}
	}
	if in.Mongo != nil {
		sources++
		if err := in.Mongo.Validate(); err != nil {
			c.addf("%s: %s", by, errorMessage(err))
		}
	}
	if sources != 1 {
		c.addf("%s: exactly one of uri, sql and mongo is required", by)
	}
	if in.URI != "" {
		c.checkFormat(by, in.Format, in.URI)
		c.checkCompression(by, in.Compression)
	}
	if in.SkipLines != nil && *in.SkipLines < 0 {
		c.addf("%s: skip_lines must not be negative", by)
	}
	c.define(in.Name, by)
}

func (c *compiler) checkOutput(i int, out Output) {
	by := "output " + strconv.Itoa(i+1)
	c.ref(out.Table, by)
	switch {
	case out.URI != "" && out.Kafka != nil:
		c.addf("%s: uri and kafka are mutually exclusive", by)
	case out.Kafka != nil:
		if err := out.Kafka.Validate(); err != nil {
			c.addf("%s: %s", by, errorMessage(err))
		}
	case out.URI != "":
		c.checkFormat(by, out.Format, out.URI)
		c.checkCompression(by, out.Compression)
	default:
		c.addf("%s: one of uri and kafka is required", by)
	}
}

func (c *compiler) checkFormat(by, format, uri string) {
	var err error
	if format != "" {
		_, err = formats.Lookup(formats.Format(format))
	} else {
		_, err = formats.Detect(uri)
	}
	if err != nil {
		c.addf("%s: %s", by, errorMessage(err))
	}
}

func (c *compiler) checkCompression(by, name string) {
	if _, err := compression.ParseAlgorithm(name); err != nil {
		c.addf("%s: %v", by, err)
	}
}

func errorMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func needsOther(op string) bool {
	switch op {
	case "diff", "join", "concatenate":
		return true
	}
	return false
}

// compileStep turns st into a stepFunc after checking the fields its op
// requires.
func compileStep(st Step) (stepFunc, error) {
	need := func(field, value string) error {
		if value == "" {
			return errors.Newf(errors.ErrorTypeValidation, "%s requires %s", st.Op, field)
		}
		return nil
	}
	input := func(tables map[string]*table.Table) *table.Table { return tables[st.Input] }
	other := func(tables map[string]*table.Table) *table.Table { return tables[st.Other] }

	switch st.Op {
	case "select":
		if len(st.Columns) == 0 {
			return nil, need("columns", "")
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).SelectColumns(st.Columns...)
		}, nil

	case "deselect":
		cols := st.Columns
		if st.Column != "" {
			cols = append([]string{st.Column}, cols...)
		}
		if len(cols) == 0 {
			return nil, need("column", "")
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			t := input(ts)
			for _, name := range cols {
				var err error
				if t, err = t.DeselectColumn(name); err != nil {
					return nil, err
				}
			}
			return t, nil
		}, nil

	case "rename":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		if err := need("to", st.To); err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).RenameColumn(st.Column, st.To)
		}, nil

	case "filter":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		keep, err := Predicate(st.Predicate, st.Value, st.Values)
		if err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).FilterColumn(st.Column, keep)
		}, nil

	case "diff", "join":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		otherCol := st.OtherColumn
		if otherCol == "" {
			otherCol = st.Column
		}
		if st.Op == "diff" {
			return func(ts map[string]*table.Table) (*table.Table, error) {
				return input(ts).DiffOnColumns(st.Column, other(ts), otherCol)
			}, nil
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).JoinOnColumns(st.Column, other(ts), otherCol)
		}, nil

	case "map":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		fn, err := Transform(st.Transform, st.Value, st.With)
		if err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).MapColumn(st.Column, fn)
		}, nil

	case "distinct":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).DistinctColumn(st.Column)
		}, nil

	case "sort":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		cmp, err := table.OrderByName(st.Order)
		if err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).SortColumnBy(st.Column, cmp)
		}, nil

	case "concatenate":
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).Concatenate(other(ts))
		}, nil

	case "fixed":
		if err := need("output", st.Output); err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).CreateFixedColumn(st.Output, st.Value), nil
		}, nil

	case "derive":
		if err := need("output", st.Output); err != nil {
			return nil, err
		}
		if len(st.Columns) == 0 {
			return nil, need("columns", "")
		}
		op := table.NewMiOp(st.Columns, st.Output, func(values []string) string {
			return strings.Join(values, st.Separator)
		})
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).CreateColumn(op)
		}, nil

	case "concat_columns":
		if len(st.Columns) != 2 {
			return nil, errors.New(errors.ErrorTypeValidation, "concat_columns requires exactly two columns")
		}
		if err := need("output", st.Output); err != nil {
			return nil, err
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).ConcatenateColumns(st.Columns[0], st.Separator, st.Columns[1], st.Output)
		}, nil

	case "group_by":
		if err := need("column", st.Column); err != nil {
			return nil, err
		}
		ops := make([]table.Op, 0, len(st.Aggregates))
		for _, agg := range st.Aggregates {
			if agg.Column == "" {
				return nil, errors.New(errors.ErrorTypeValidation, "aggregate requires column")
			}
			fn, err := table.AggregateByName(agg.Function, agg.Arg)
			if err != nil {
				return nil, err
			}
			ops = append(ops, table.NewOp(agg.Column, fn))
		}
		return func(ts map[string]*table.Table) (*table.Table, error) {
			return input(ts).GroupByColumn(st.Column, ops...)
		}, nil

	case "":
		return nil, errors.New(errors.ErrorTypeValidation, "op is required")
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown op %q", st.Op)
	}
}

// Predicate returns the filter predicate registered under name.
func Predicate(name, value string, values []string) (func(string) bool, error) {
	switch name {
	case "equals", "":
		return func(v string) bool { return v == value }, nil
	case "not_equals":
		return func(v string) bool { return v != value }, nil
	case "prefix":
		return func(v string) bool { return strings.HasPrefix(v, value) }, nil
	case "contains":
		return func(v string) bool { return strings.Contains(v, value) }, nil
	case "matches":
		re, err := regexp.Compile(value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid pattern")
		}
		return re.MatchString, nil
	case "in":
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		return func(v string) bool {
			_, ok := set[v]
			return ok
		}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown predicate %q", name)
	}
}

// Transform returns the cell transform registered under name. value is the
// affix of prefix and suffix and the search string of replace; with is the
// replacement.
func Transform(name, value, with string) (func(string) string, error) {
	switch name {
	case "upper":
		return strings.ToUpper, nil
	case "lower":
		return strings.ToLower, nil
	case "trim":
		return strings.TrimSpace, nil
	case "prefix":
		return func(v string) string { return value + v }, nil
	case "suffix":
		return func(v string) string { return v + value }, nil
	case "replace":
		if value == "" {
			return nil, errors.New(errors.ErrorTypeValidation, "replace requires value")
		}
		return func(v string) string { return strings.ReplaceAll(v, value, with) }, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown transform %q", name)
	}
}
