package columnar

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/tabula/pkg/table"
)

func parquetCodec(name string) compress.Compression {
	switch strings.ToLower(name) {
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "brotli":
		return compress.Codecs.Brotli
	default:
		return compress.Codecs.Snappy
	}
}

// closeShield keeps the parquet writer from closing the caller's writer.
type closeShield struct{ io.Writer }

func writeParquet(w io.Writer, src source, opts WriteOptions) error {
	mem := memory.NewGoAllocator()
	schema := stringSchema(src.names)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(parquetCodec(opts.Codec)),
		parquet.WithMaxRowGroupLength(int64(opts.BatchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
	)

	fw, err := pqarrow.NewFileWriter(schema, closeShield{w}, props, arrowProps)
	if err != nil {
		return dataError(Parquet, "create", err)
	}
	err = src.batches(opts.BatchSize, func(start, end int) error {
		rec := buildRecord(mem, schema, src, start, end)
		defer rec.Release()
		return fw.Write(rec)
	})
	if err != nil {
		_ = fw.Close()
		return dataError(Parquet, "write", err)
	}
	if err := fw.Close(); err != nil {
		return dataError(Parquet, "close", err)
	}
	return nil
}

func readParquet(ctx context.Context, r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, dataError(Parquet, "read", err)
	}
	fr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, dataError(Parquet, "open", err)
	}
	defer fr.Close()

	mem := memory.NewGoAllocator()
	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, dataError(Parquet, "open", err)
	}
	tbl, err := ar.ReadTable(ctx)
	if err != nil {
		return nil, dataError(Parquet, "read", err)
	}
	defer tbl.Release()

	acc := newAccumulator(fieldNames(tbl.Schema()))
	for c := 0; c < int(tbl.NumCols()); c++ {
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			acc.appendArray(c, chunk)
		}
	}
	return acc.table()
}
