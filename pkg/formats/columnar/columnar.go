// Package columnar reads and writes tables in the Arrow IPC file, Parquet
// and Avro object container formats.
//
// Every column is written as a UTF-8 string field in header order. Reading
// accepts any field type: cells are converted to their string form and
// nulls become the empty string.
package columnar

import (
	"context"
	"fmt"
	"io"
	"strings"

	tabcol "github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is the Apache Arrow IPC file format
	Arrow Format = "arrow"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Avro is Apache Avro object container format
	Avro Format = "avro"
)

// ParseFormat returns the format called name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case Arrow, Parquet, Avro:
		return f, nil
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "unsupported columnar format: %s", name)
}

// WriteOptions configures writers.
type WriteOptions struct {
	// Header lists the columns to write, in order. Nil selects every
	// column alphabetically.
	Header []string
	// BatchSize is the number of rows per Arrow record batch, Parquet row
	// group or Avro block.
	BatchSize int
	// Codec names the format's internal compression: snappy (default),
	// none, or deflate for Avro; gzip, zstd or brotli for Parquet.
	Codec string
}

// DefaultBatchSize is used when WriteOptions.BatchSize is not positive.
const DefaultBatchSize = 64 * 1024

// DefaultWriteOptions returns default writer configuration
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{BatchSize: DefaultBatchSize, Codec: "snappy"}
}

// Read decodes a table in format f from r.
func Read(ctx context.Context, r io.Reader, f Format) (*table.Table, error) {
	var (
		t   *table.Table
		err error
	)
	switch f {
	case Arrow:
		t, err = readArrow(r)
	case Parquet:
		t, err = readParquet(ctx, r)
	case Avro:
		t, err = readAvro(r)
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported columnar format: %s", f)
	}
	if err != nil {
		return nil, err
	}
	metrics.RowsLoaded.WithLabelValues(string(f)).Add(float64(t.RowCount()))
	return t, nil
}

// Write encodes t in format f to w.
func Write(w io.Writer, f Format, t *table.Table, opts WriteOptions) error {
	header := opts.Header
	if header == nil {
		header = t.ColumnNames()
	}
	cols := make([]*tabcol.Column, len(header))
	for i, name := range header {
		col, err := t.Column(name)
		if err != nil {
			return err
		}
		cols[i] = col
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	src := source{names: header, cols: cols, rows: t.RowCount()}
	var err error
	switch f {
	case Arrow:
		err = writeArrow(w, src, opts)
	case Parquet:
		err = writeParquet(w, src, opts)
	case Avro:
		err = writeAvro(w, src, opts)
	default:
		return errors.Newf(errors.ErrorTypeValidation, "unsupported columnar format: %s", f)
	}
	if err != nil {
		return err
	}
	metrics.RowsWritten.WithLabelValues(string(f)).Add(float64(t.RowCount()))
	return nil
}

// source is a table projected onto the header being written.
type source struct {
	names []string
	cols  []*tabcol.Column
	rows  int
}

// batches calls fn with consecutive [start, end) row ranges of at most size
// rows. A table without rows yields no range.
func (s source) batches(size int, fn func(start, end int) error) error {
	for start := 0; start < s.rows; start += size {
		end := start + size
		if end > s.rows {
			end = s.rows
		}
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

func dataError(f Format, op string, err error) error {
	if errors.Is(err, errors.ErrIO) {
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeData, fmt.Sprintf("failed to %s %s", op, f))
}
