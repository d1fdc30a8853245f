// Package json wraps github.com/goccy/go-json with the settings tabula uses
// everywhere: no HTML escaping on encode and exact numbers on decode.
package json

import (
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/tabula/pkg/pool"
)

// Marshal is a drop-in replacement for encoding/json.Marshal.
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalNoEscape is Marshal without HTML escaping.
func MarshalNoEscape(v interface{}) ([]byte, error) {
	return gojson.MarshalNoEscape(v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// NewEncoder returns an encoder writing to w that leaves <, > and & alone.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder returns a decoder reading from r that keeps numbers as
// json.Number.
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// MarshalObject encodes names and values as one JSON object whose keys keep
// the order of names. Later duplicates of a name are dropped.
func MarshalObject(names, values []string) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	seen := make(map[string]struct{}, len(names))
	buf.WriteByte('{')
	for i, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if len(seen) > 1 {
			buf.WriteByte(',')
		}
		k, err := gojson.MarshalNoEscape(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		var v string
		if i < len(values) {
			v = values[i]
		}
		val, err := gojson.MarshalNoEscape(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
