// Package tabula is an embeddable in-memory relational table engine.
//
// A table is an immutable set of equally long string columns addressed by
// name. Every operator returns a new table and shares unchanged columns
// with its input, so copies are cheap and tables are safe to read from many
// goroutines.
//
// # Quick Start
//
// Load a TSV file, filter it, keep two columns and join it with itself:
//
//	import (
//	    "github.com/ajitpratap0/tabula/pkg/formats/tsv"
//	)
//
//	t, err := tsv.Load("people.tsv", 0)
//	if err != nil {
//	    return err
//	}
//	active, _ := t.FilterColumn("status", func(v string) bool { return v == "active" })
//	sel, _ := active.SelectColumns("id", "name")
//	joined, _ := sel.JoinOnColumns("id", sel, "id")
//	fmt.Print(joined.Render())
//
// # Key Packages
//
//	pkg/columnar     - Values, columns and their lazily built value index
//	pkg/table        - Tables, the relational operators and stock aggregates
//	pkg/formats      - TSV, JSON, Arrow, Parquet and Avro on any storage URI
//	pkg/storage      - Local files, s3:// and gs:// objects, mem:// for tests
//	pkg/compression  - gzip, zstd, lz4, snappy and s2 chosen by extension
//	pkg/connector    - SQL and MongoDB sources, Kafka sink
//	internal/pipeline - Declarative YAML pipelines of table operators
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus metrics
//
// # Operators
//
// Select, deselect, rename, filter, diff, map, distinct, sort, concatenate,
// fixed and derived columns, column concatenation, equi-join and group-by.
// Join and diff build a hash index on the smaller key column unless either
// side already has one.
//
// # Configuration
//
// The tabula command reads an optional YAML file with logging, io,
// observability and storage sections. TABULA_* environment variables
// override it and ${VAR_NAME} references inside it are expanded.
//
//	tabula show s3://bucket/users.tsv.gz --columns id,name
//	tabula convert users.tsv users.parquet
//	tabula run pipeline.yaml --metrics-out - --stats
package tabula
