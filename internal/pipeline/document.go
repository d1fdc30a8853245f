// Package pipeline runs declarative table pipelines.
//
// A pipeline document names its inputs, a list of steps that each derive a
// new table from earlier ones, and the outputs to write:
//
//	name: active-users
//	inputs:
//	  - name: users
//	    uri: s3://bucket/users.tsv.gz
//	  - name: orders
//	    sql:
//	      driver: postgres
//	      dsn: ${ORDERS_DSN}
//	      query: select user_id, total from orders
//	steps:
//	  - op: filter
//	    input: users
//	    column: status
//	    predicate: equals
//	    value: active
//	    as: active
//	  - op: join
//	    input: active
//	    column: id
//	    other: orders
//	    other_column: user_id
//	    as: active_orders
//	outputs:
//	  - table: active_orders
//	    uri: out/active_orders.parquet
//
// The whole document is checked before anything is loaded. Inputs load
// concurrently, steps run in order, and outputs are written concurrently.
package pipeline

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/tabula/pkg/connector/kafkasink"
	"github.com/ajitpratap0/tabula/pkg/connector/mongosource"
	"github.com/ajitpratap0/tabula/pkg/connector/sqlsource"
	"github.com/ajitpratap0/tabula/pkg/errors"
)

// Document is a pipeline document.
type Document struct {
	Name string `yaml:"name" json:"name"`
	// Workers bounds concurrent input loads and output writes; 0 uses 4.
	Workers int      `yaml:"workers" json:"workers"`
	Inputs  []Input  `yaml:"inputs" json:"inputs"`
	Steps   []Step   `yaml:"steps" json:"steps"`
	Outputs []Output `yaml:"outputs" json:"outputs"`
}

// Input names a table and says where it comes from. Exactly one of
// URI, SQL and Mongo is set.
type Input struct {
	Name string `yaml:"name" json:"name"`

	URI         string `yaml:"uri" json:"uri"`
	Format      string `yaml:"format" json:"format"`
	SkipLines   *int   `yaml:"skip_lines" json:"skip_lines"`
	Compression string `yaml:"compression" json:"compression"`

	SQL   *sqlsource.Config   `yaml:"sql" json:"sql"`
	Mongo *mongosource.Config `yaml:"mongo" json:"mongo"`
}

// Kind reports the input's source: file, sql or mongo.
func (in Input) Kind() string {
	switch {
	case in.SQL != nil:
		return "sql"
	case in.Mongo != nil:
		return "mongo"
	default:
		return "file"
	}
}

// Step is one operator application. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op" json:"op"`
	// Input is the table the step reads; As names the result.
	Input string `yaml:"input" json:"input"`
	As    string `yaml:"as" json:"as"`
	// Other is the second table of diff, join and concatenate.
	Other       string `yaml:"other" json:"other"`
	OtherColumn string `yaml:"other_column" json:"other_column"`

	Column  string   `yaml:"column" json:"column"`
	Columns []string `yaml:"columns" json:"columns"`
	// To is the new name of a renamed column.
	To string `yaml:"to" json:"to"`
	// Output names the column created by fixed, derive and concat_columns.
	Output string `yaml:"output" json:"output"`

	Predicate string   `yaml:"predicate" json:"predicate"`
	Transform string   `yaml:"transform" json:"transform"`
	Value     string   `yaml:"value" json:"value"`
	Values    []string `yaml:"values" json:"values"`
	With      string   `yaml:"with" json:"with"`
	Separator string   `yaml:"separator" json:"separator"`
	Order     string   `yaml:"order" json:"order"`

	Aggregates []Aggregate `yaml:"aggregates" json:"aggregates"`
}

// Name identifies the step in logs and spans.
func (s Step) Name() string {
	return s.Op + ":" + s.As
}

// Aggregate applies a named aggregate to one column of a group_by.
type Aggregate struct {
	Column   string `yaml:"column" json:"column"`
	Function string `yaml:"function" json:"function"`
	// Arg is the separator of join.
	Arg string `yaml:"arg" json:"arg"`
}

// Output writes one table to a URI or a Kafka topic.
type Output struct {
	Table string `yaml:"table" json:"table"`

	URI         string   `yaml:"uri" json:"uri"`
	Format      string   `yaml:"format" json:"format"`
	Header      []string `yaml:"header" json:"header"`
	Compression string   `yaml:"compression" json:"compression"`
	Level       int      `yaml:"level" json:"level"`

	Kafka *kafkasink.Config `yaml:"kafka" json:"kafka"`
}

// Target describes where the output goes.
func (o Output) Target() string {
	if o.Kafka != nil {
		return "kafka://" + o.Kafka.Topic
	}
	return o.URI
}

// Parse decodes a pipeline document, expanding ${VAR} references from the
// environment first.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse pipeline")
	}
	return &doc, nil
}

// LoadFile reads and decodes the pipeline document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IoFailure(path, err)
	}
	return Parse(data)
}
