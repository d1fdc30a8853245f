// Package tsv reads and writes tables as tab-separated text.
//
// The first non-empty line after the skipped lines is the header. Every
// later non-empty line is a row with exactly one field per header column.
// Fields are trimmed of surrounding whitespace. Lines end in "\n" with an
// optional "\r" before it.
package tsv

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/compression"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/pool"
	"github.com/ajitpratap0/tabula/pkg/storage"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// FormatName labels rows loaded and written by this package.
const FormatName = "tsv"

// MaxLineSize bounds a single line. Longer lines fail the read.
const MaxLineSize = 64 * 1024 * 1024

// Parse builds a table from TSV text after skipping skipLines lines.
func Parse(input string, skipLines int) (*table.Table, error) {
	return Read(strings.NewReader(input), skipLines)
}

// Read builds a table from TSV read from r after skipping skipLines lines.
// Repeated cell values share one string.
func Read(r io.Reader, skipLines int) (*table.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	intern := pool.NewStringInternPool(pool.DefaultInternLimit)

	for skipped := 0; skipped < skipLines; skipped++ {
		if !sc.Scan() {
			break
		}
	}

	var b *table.Builder
	var row []columnar.Value
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		fields := bytes.Split(line, []byte{'\t'})
		if b == nil {
			names := make([]string, len(fields))
			for i, f := range fields {
				names[i] = intern.InternBytes(bytes.TrimSpace(f))
			}
			b = table.NewBuilder(names...)
			row = make([]columnar.Value, len(names))
			continue
		}
		if len(fields) != len(row) {
			return nil, errors.ColumnCountMismatch(len(row), len(fields))
		}
		for i, f := range fields {
			row[i] = columnar.Value(intern.InternBytes(bytes.TrimSpace(f)))
		}
		if err := b.AddValues(row); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan tsv input")
	}
	if b == nil {
		return nil, errors.MissingHeader()
	}

	metrics.RowsLoaded.WithLabelValues(FormatName).Add(float64(b.Len()))
	return b.Build(), nil
}

// Format serializes t with the given header columns, in order. A nil header
// selects every column alphabetically. The result has no trailing newline.
func Format(t *table.Table, header []string) (string, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := Write(buf, t, header); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write serializes t to w exactly as Format does.
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
	writeLine(bw, header)
	line := make([]string, len(cols))
	for r := 0; r < t.RowCount(); r++ {
		for i, col := range cols {
			line[i] = col.Get(r).String()
		}
		_ = bw.WriteByte('\n')
		writeLine(bw, line)
	}
	if err := bw.Flush(); err != nil {
		if errors.Is(err, errors.ErrIO) {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write tsv output")
	}

	metrics.RowsWritten.WithLabelValues(FormatName).Add(float64(t.RowCount()))
	return nil
}

func writeLine(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			_ = bw.WriteByte('\t')
		}
		_, _ = bw.WriteString(f)
	}
}

// Load reads the TSV file at path, decompressing it when its extension
// names a compression algorithm.
func Load(path string, skipLines int) (*table.Table, error) {
	return LoadContext(context.Background(), storage.Default(), path, skipLines)
}

// LoadContext reads TSV from any URI the store serves.
func LoadContext(ctx context.Context, store *storage.Store, uri string, skipLines int) (*table.Table, error) {
	r, err := store.OpenDecompressed(ctx, uri, compression.Auto)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, err := Read(r, skipLines)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeData) {
			return nil, errors.IoFailure(uri, err)
		}
		return nil, err
	}

	logger.WithContext(ctx).Debug("loaded tsv",
		zap.String("uri", uri),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", t.ColumnCount()))
	return t, nil
}

// Save writes t to path, compressing it when its extension names a
// compression algorithm.
func Save(t *table.Table, path string, header []string) error {
	return SaveContext(context.Background(), storage.Default(), path, t, header, compression.Default)
}

// SaveContext writes t as TSV to any URI the store serves. uri is not
// opened until the whole table has been serialized.
func SaveContext(ctx context.Context, store *storage.Store, uri string, t *table.Table, header []string, level compression.Level) error {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := Write(buf, t, header); err != nil {
		return err
	}

	w, err := store.CreateCompressed(ctx, uri, compression.Auto, level)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		_ = w.Close()
		return storage.AsIoFailure(uri, err)
	}
	return storage.AsIoFailure(uri, w.Close())
}
