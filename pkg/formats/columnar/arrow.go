package columnar

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	tabcol "github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/pool"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// stringSchema declares one non-nullable utf8 field per name.
func stringSchema(names []string) *arrow.Schema {
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String}
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord copies rows [start, end) of src into a record. The caller
// releases it.
func buildRecord(mem memory.Allocator, schema *arrow.Schema, src source, start, end int) arrow.Record {
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, col := range src.cols {
		sb := rb.Field(i).(*array.StringBuilder)
		sb.Reserve(end - start)
		for r := start; r < end; r++ {
			sb.Append(col.Get(r).String())
		}
	}
	return rb.NewRecord()
}

func writeArrow(w io.Writer, src source, opts WriteOptions) error {
	mem := memory.NewGoAllocator()
	schema := stringSchema(src.names)

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return dataError(Arrow, "create", err)
	}
	err = src.batches(opts.BatchSize, func(start, end int) error {
		rec := buildRecord(mem, schema, src, start, end)
		defer rec.Release()
		return fw.Write(rec)
	})
	if err != nil {
		_ = fw.Close()
		return dataError(Arrow, "write", err)
	}
	if err := fw.Close(); err != nil {
		return dataError(Arrow, "close", err)
	}
	return nil
}

func readArrow(r io.Reader) (*table.Table, error) {
	// The file footer sits at the end, so the reader needs random access.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, dataError(Arrow, "read", err)
	}
	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, dataError(Arrow, "open", err)
	}
	defer fr.Close()

	acc := newAccumulator(fieldNames(fr.Schema()))
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, dataError(Arrow, "read", err)
		}
		for c := 0; c < int(rec.NumCols()); c++ {
			acc.appendArray(c, rec.Column(c))
		}
	}
	return acc.table()
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i := range names {
		names[i] = schema.Field(i).Name
	}
	return names
}

// accumulator gathers cells per field until the table is built.
type accumulator struct {
	names  []string
	cells  [][]tabcol.Value
	intern *pool.StringInternPool
}

func newAccumulator(names []string) *accumulator {
	return &accumulator{
		names:  names,
		cells:  make([][]tabcol.Value, len(names)),
		intern: pool.NewStringInternPool(pool.DefaultInternLimit),
	}
}

func (a *accumulator) append(i int, s string) {
	a.cells[i] = append(a.cells[i], tabcol.Value(a.intern.Intern(s)))
}

// appendArray appends every cell of arr to field i.
func (a *accumulator) appendArray(i int, arr arrow.Array) {
	if strs, ok := arr.(*array.String); ok {
		for j := 0; j < strs.Len(); j++ {
			if strs.IsNull(j) {
				a.append(i, "")
				continue
			}
			a.append(i, strs.Value(j))
		}
		return
	}
	for j := 0; j < arr.Len(); j++ {
		if arr.IsNull(j) {
			a.append(i, "")
			continue
		}
		a.append(i, arr.ValueStr(j))
	}
}

// table builds the result. Repeated field names keep the last field.
func (a *accumulator) table() (*table.Table, error) {
	cols := make(map[string]*tabcol.Column, len(a.names))
	for i, name := range a.names {
		cols[name] = tabcol.NewColumn(a.cells[i])
	}
	return table.New(cols)
}
