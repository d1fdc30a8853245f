// Package formats loads and saves tables in any supported file format on
// any URI the storage layer serves.
//
// The format comes from an explicit name or from the URI extension:
//
//	.tsv .txt     tsv
//	.json         json
//	.arrow .ipc   arrow
//	.parquet      parquet
//	.avro         avro
//
// Each may be followed by a compression extension such as .gz or .zst, so
// "s3://bucket/users.tsv.zst" is zstd-compressed TSV.
package formats

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/compression"
	"github.com/ajitpratap0/tabula/pkg/config"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/formats/columnar"
	"github.com/ajitpratap0/tabula/pkg/formats/jsontable"
	"github.com/ajitpratap0/tabula/pkg/formats/tsv"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/pool"
	"github.com/ajitpratap0/tabula/pkg/storage"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// Format names a table file format.
type Format string

// Built-in formats.
const (
	TSV     Format = "tsv"
	JSON    Format = "json"
	Arrow   Format = "arrow"
	Parquet Format = "parquet"
	Avro    Format = "avro"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// Format overrides extension detection when set.
	Format Format
	// SkipLines is the number of leading lines the TSV reader ignores.
	SkipLines int
	// Compression overrides extension detection when not Auto.
	Compression compression.Algorithm
}

// SaveOptions configures Save.
type SaveOptions struct {
	Format Format
	// Header lists the columns to write, in order. Nil writes every column
	// alphabetically.
	Header      []string
	Compression compression.Algorithm
	Level       compression.Level
	// Codec is the internal compression of Parquet and Avro files.
	Codec string
	// BatchSize is the row group or block size of columnar files.
	BatchSize int
}

// LoadOptionsFromConfig returns load defaults from the io section.
func LoadOptionsFromConfig(cfg config.IOConfig) LoadOptions {
	return LoadOptions{
		SkipLines:   cfg.SkipLines,
		Compression: compression.Algorithm(cfg.Compression),
	}
}

// SaveOptionsFromConfig returns save defaults from the io section.
func SaveOptionsFromConfig(cfg config.IOConfig) SaveOptions {
	return SaveOptions{
		Compression: compression.Algorithm(cfg.Compression),
		Level:       compression.LevelOf(cfg.CompressionLevel),
	}
}

// Codec reads and writes one format on uncompressed streams.
type Codec interface {
	Read(ctx context.Context, r io.Reader, opts LoadOptions) (*table.Table, error)
	Write(ctx context.Context, w io.Writer, t *table.Table, opts SaveOptions) error
}

var (
	mu         sync.RWMutex
	codecs     = map[Format]Codec{}
	extensions = map[string]Format{}
)

func init() {
	Register(TSV, tsvCodec{}, ".tsv", ".txt")
	Register(JSON, jsonCodec{}, ".json")
	Register(Arrow, columnarCodec{columnar.Arrow}, ".arrow", ".ipc")
	Register(Parquet, columnarCodec{columnar.Parquet}, ".parquet")
	Register(Avro, columnarCodec{columnar.Avro}, ".avro")
}

// Register installs c for format f and the given file extensions,
// replacing any earlier registration.
func Register(f Format, c Codec, exts ...string) {
	mu.Lock()
	defer mu.Unlock()
	codecs[f] = c
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = f
	}
}

// Names lists the registered formats alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(codecs))
	for f := range codecs {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Lookup returns the codec for format f.
func Lookup(f Format) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := codecs[Format(strings.ToLower(string(f)))]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported format %q", f)
	}
	return c, nil
}

// Detect returns the format implied by the extension of uri, ignoring a
// trailing compression extension.
func Detect(uri string) (Format, error) {
	_, inner := compression.FromExtension(uri)
	ext := strings.ToLower(path.Ext(inner))

	mu.RLock()
	defer mu.RUnlock()
	f, ok := extensions[ext]
	if !ok {
		return "", errors.Newf(errors.ErrorTypeValidation,
			"cannot detect format of %q; name one explicitly", uri).WithDetail("path", uri)
	}
	return f, nil
}

func resolve(f Format, uri string) (Format, Codec, error) {
	if f == "" {
		var err error
		if f, err = Detect(uri); err != nil {
			return "", nil, err
		}
	}
	c, err := Lookup(f)
	if err != nil {
		return "", nil, err
	}
	return f, c, nil
}

// Load reads the table at uri.
func Load(ctx context.Context, store *storage.Store, uri string, opts LoadOptions) (*table.Table, error) {
	defer metrics.ObserveOperation("load", time.Now())

	f, c, err := resolve(opts.Format, uri)
	if err != nil {
		return nil, err
	}
	r, err := store.OpenDecompressed(ctx, uri, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, err := c.Read(ctx, r, opts)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeData) {
			return nil, errors.IoFailure(uri, err)
		}
		return nil, err
	}

	logger.WithContext(ctx).Info("loaded table",
		zap.String("uri", uri),
		zap.String("format", string(f)),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", t.ColumnCount()))
	return t, nil
}

// Save writes t to uri, replacing any existing object.
func Save(ctx context.Context, store *storage.Store, uri string, t *table.Table, opts SaveOptions) error {
	defer metrics.ObserveOperation("save", time.Now())

	f, c, err := resolve(opts.Format, uri)
	if err != nil {
		return err
	}

	// Encode before opening uri so a failed encode leaves it untouched.
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := c.Write(ctx, buf, t, opts); err != nil {
		return err
	}

	w, err := store.CreateCompressed(ctx, uri, opts.Compression, opts.Level)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		_ = w.Close()
		return storage.AsIoFailure(uri, err)
	}
	if err := w.Close(); err != nil {
		return storage.AsIoFailure(uri, err)
	}

	logger.WithContext(ctx).Info("saved table",
		zap.String("uri", uri),
		zap.String("format", string(f)),
		zap.Int("rows", t.RowCount()))
	return nil
}

type tsvCodec struct{}

func (tsvCodec) Read(_ context.Context, r io.Reader, opts LoadOptions) (*table.Table, error) {
	return tsv.Read(r, opts.SkipLines)
}

func (tsvCodec) Write(_ context.Context, w io.Writer, t *table.Table, opts SaveOptions) error {
	return tsv.Write(w, t, opts.Header)
}

type jsonCodec struct{}

func (jsonCodec) Read(_ context.Context, r io.Reader, _ LoadOptions) (*table.Table, error) {
	return jsontable.Read(r)
}

func (jsonCodec) Write(_ context.Context, w io.Writer, t *table.Table, opts SaveOptions) error {
	return jsontable.Write(w, t, opts.Header)
}

type columnarCodec struct {
	format columnar.Format
}

func (c columnarCodec) Read(ctx context.Context, r io.Reader, _ LoadOptions) (*table.Table, error) {
	return columnar.Read(ctx, r, c.format)
}

func (c columnarCodec) Write(_ context.Context, w io.Writer, t *table.Table, opts SaveOptions) error {
	return columnar.Write(w, c.format, t, columnar.WriteOptions{
		Header:    opts.Header,
		BatchSize: opts.BatchSize,
		Codec:     opts.Codec,
	})
}
