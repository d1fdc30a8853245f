// Package jsontable reads and writes tables as a single JSON document:
//
//	{"columns":["id","name"],"rows":[["1","Alice"],["2","Bob"]]}
//
// Cells are written as strings. On read, numbers and booleans are kept in
// their literal form and null becomes the empty string.
package jsontable

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/json"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/pool"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// FormatName labels rows loaded and written by this package.
const FormatName = "json"

type document struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Read decodes one document from r.
func Read(r io.Reader) (*table.Table, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode json table")
	}
	if doc.Columns == nil {
		return nil, errors.MissingHeader()
	}

	intern := pool.NewStringInternPool(pool.DefaultInternLimit)
	b := table.NewBuilder(doc.Columns...)
	row := make([]columnar.Value, len(doc.Columns))
	for _, cells := range doc.Rows {
		if len(cells) != len(row) {
			return nil, errors.ColumnCountMismatch(len(row), len(cells))
		}
		for i, c := range cells {
			row[i] = columnar.Value(intern.Intern(cellString(c)))
		}
		if err := b.AddValues(row); err != nil {
			return nil, err
		}
	}

	metrics.RowsLoaded.WithLabelValues(FormatName).Add(float64(b.Len()))
	return b.Build(), nil
}

func cellString(c interface{}) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []interface{}, map[string]interface{}:
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(out)
	default:
		return fmt.Sprint(v)
	}
}

// Write encodes t with the given header columns, in order. A nil header
// selects every column alphabetically.
func Write(w io.Writer, t *table.Table, header []string) error {
	if header == nil {
		header = t.ColumnNames()
	}
	cols := make([]*columnar.Column, len(header))
	for i, name := range header {
		col, err := t.Column(name)
		if err != nil {
			return err
		}
		cols[i] = col
	}

	bw := bufio.NewWriter(w)
	head, err := json.MarshalNoEscape(header)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode json header")
	}
	_, _ = bw.WriteString(`{"columns":`)
	_, _ = bw.Write(head)
	_, _ = bw.WriteString(`,"rows":[`)
	line := make([]string, len(cols))
	for r := 0; r < t.RowCount(); r++ {
		if r > 0 {
			_ = bw.WriteByte(',')
		}
		for i, col := range cols {
			line[i] = col.Get(r).String()
		}
		out, err := json.MarshalNoEscape(line)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode json row")
		}
		_, _ = bw.Write(out)
	}
	_, _ = bw.WriteString("]}\n")
	if err := bw.Flush(); err != nil {
		if errors.Is(err, errors.ErrIO) {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write json table")
	}

	metrics.RowsWritten.WithLabelValues(FormatName).Add(float64(t.RowCount()))
	return nil
}
