package columnar

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/linkedin/goavro/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/table"
)

func people(t *testing.T) *table.Table {
	t.Helper()
	b := table.NewBuilder("id", "name", "team")
	require.NoError(t, b.AddRow("1", "Alice", "red"))
	require.NoError(t, b.AddRow("2", "Bob", ""))
	require.NoError(t, b.AddRow("3", "Carol", "red"))
	return b.Build()
}

func assertSameRows(t *testing.T, want, got *table.Table) {
	t.Helper()
	require.Equal(t, want.ColumnNames(), got.ColumnNames())
	require.Equal(t, want.RowCount(), got.RowCount())
	for i := 0; i < want.RowCount(); i++ {
		assert.Equal(t, want.Row(i), got.Row(i), "row %d", i)
	}
}

func TestRoundTrip(t *testing.T) {
	src := people(t)
	for _, f := range []Format{Arrow, Parquet, Avro} {
		for _, batch := range []int{1, 2, DefaultBatchSize} {
			t.Run(string(f), func(t *testing.T) {
				var buf bytes.Buffer
				opts := DefaultWriteOptions()
				opts.BatchSize = batch
				require.NoError(t, Write(&buf, f, src, opts))

				back, err := Read(context.Background(), &buf, f)
				require.NoError(t, err)
				assertSameRows(t, src, back)
			})
		}
	}
}

func TestRoundTripEmptyTable(t *testing.T) {
	src := table.NewBuilder("id", "name").Build()
	for _, f := range []Format{Arrow, Parquet, Avro} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, f, src, WriteOptions{}))
			back, err := Read(context.Background(), &buf, f)
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name"}, back.ColumnNames())
			assert.Equal(t, 0, back.RowCount())
		})
	}
}

func TestWriteHeaderProjection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Avro, people(t), WriteOptions{Header: []string{"name"}, Codec: "deflate"}))
	back, err := Read(context.Background(), &buf, Avro)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, back.ColumnNames())
	assert.Equal(t, 3, back.RowCount())

	err = Write(&buf, Arrow, people(t), WriteOptions{Header: []string{"age"}})
	assert.ErrorIs(t, err, errors.ErrMissingColumn)
}

func TestAvroRejectsInvalidFieldNames(t *testing.T) {
	b := table.NewBuilder("first name")
	require.NoError(t, b.AddRow("Alice"))
	err := Write(&bytes.Buffer{}, Avro, b.Build(), WriteOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReadArrowTypedColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
	}, nil)
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	rb.Field(0).(*array.Int64Builder).AppendValues([]int64{7, 0}, []bool{true, false})
	rb.Field(1).(*array.BooleanBuilder).AppendValues([]bool{true, false}, nil)
	rec := rb.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	fw, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	require.NoError(t, err)
	require.NoError(t, fw.Write(rec))
	require.NoError(t, fw.Close())

	tbl, err := Read(context.Background(), &buf, Arrow)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"n": "7", "ok": "true"}, tbl.Row(0))
	assert.Equal(t, map[string]string{"n": "", "ok": "false"}, tbl.Row(1))
}

func TestReadAvroUnionsAndScalars(t *testing.T) {
	codec, err := goavro.NewCodec(`{"type":"record","name":"Event","fields":[
		{"name":"id","type":"long"},
		{"name":"label","type":["null","string"]}
	]}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: &buf, Codec: codec})
	require.NoError(t, err)
	require.NoError(t, w.Append([]interface{}{
		map[string]interface{}{"id": int64(1), "label": goavro.Union("string", "first")},
		map[string]interface{}{"id": int64(2), "label": nil},
	}))

	tbl, err := Read(context.Background(), &buf, Avro)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "1", "label": "first"}, tbl.Row(0))
	assert.Equal(t, map[string]string{"id": "2", "label": ""}, tbl.Row(1))
}

func TestReadCorruptInput(t *testing.T) {
	for _, f := range []Format{Arrow, Parquet, Avro} {
		_, err := Read(context.Background(), bytes.NewReader([]byte("not a table")), f)
		assert.True(t, errors.IsType(err, errors.ErrorTypeData), string(f))
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Parquet")
	require.NoError(t, err)
	assert.Equal(t, Parquet, f)

	_, err = ParseFormat("orc")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRowMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.RowsWritten.WithLabelValues("arrow"))
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Arrow, people(t), WriteOptions{}))
	assert.Equal(t, before+3, testutil.ToFloat64(metrics.RowsWritten.WithLabelValues("arrow")))
}
