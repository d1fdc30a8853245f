package columnar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/json"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// AvroRecordName names the record schema written for every table.
const AvroRecordName = "Row"

func avroCodec(name string) string {
	switch strings.ToLower(name) {
	case "none", "null":
		return goavro.CompressionNullLabel
	case "deflate":
		return goavro.CompressionDeflateLabel
	default:
		return goavro.CompressionSnappyLabel
	}
}

// avroSchema declares one string field per name. Avro restricts names to
// [A-Za-z_][A-Za-z0-9_]*, so other column names fail codec creation.
func avroSchema(names []string) (string, error) {
	fields := make([]map[string]interface{}, len(names))
	for i, name := range names {
		fields[i] = map[string]interface{}{"name": name, "type": "string"}
	}
	out, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   AvroRecordName,
		"fields": fields,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func writeAvro(w io.Writer, src source, opts WriteOptions) error {
	schema, err := avroSchema(src.names)
	if err != nil {
		return dataError(Avro, "encode schema for", err)
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "column names are not valid avro field names")
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: avroCodec(opts.Codec),
	})
	if err != nil {
		return dataError(Avro, "create", err)
	}

	return src.batches(opts.BatchSize, func(start, end int) error {
		block := make([]interface{}, 0, end-start)
		for r := start; r < end; r++ {
			native := make(map[string]interface{}, len(src.names))
			for i, col := range src.cols {
				native[src.names[i]] = col.Get(r).String()
			}
			block = append(block, native)
		}
		if err := ocf.Append(block); err != nil {
			return dataError(Avro, "write", err)
		}
		return nil
	})
}

func readAvro(r io.Reader) (*table.Table, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, dataError(Avro, "open", err)
	}
	names, err := avroFieldNames(ocf.Codec().Schema())
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(names)
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, dataError(Avro, "read", err)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "avro datum is %T, not a record", datum)
		}
		for i, name := range names {
			acc.append(i, avroString(rec[name]))
		}
	}
	if err := ocf.Err(); err != nil {
		return nil, dataError(Avro, "read", err)
	}
	return acc.table()
}

func avroFieldNames(schema string) ([]string, error) {
	var decl struct {
		Type   interface{} `json:"type"`
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(schema), &decl); err != nil {
		return nil, dataError(Avro, "parse schema of", err)
	}
	if decl.Type != "record" {
		return nil, errors.Newf(errors.ErrorTypeData, "avro schema type is %v, not record", decl.Type)
	}
	names := make([]string, len(decl.Fields))
	for i, f := range decl.Fields {
		names[i] = f.Name
	}
	return names, nil
}

// avroString converts a decoded avro value to a cell. Unions decode as a
// single-entry map keyed by the branch type.
func avroString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case map[string]interface{}:
		if len(x) == 1 {
			for _, inner := range x {
				return avroString(inner)
			}
		}
		out, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(out)
	case []interface{}:
		out, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(out)
	default:
		return fmt.Sprint(x)
	}
}
