// Package table implements the Tabula relational engine: immutable tables of
// named, equal-length string columns and the operators that transform them.
//
// # Overview
//
// A Table maps column names to *columnar.Column values. Every operator
// returns a new Table and leaves its receiver untouched; columns an operator
// does not change are shared by pointer with the result, so chains of
// projections, renames and derived columns never copy cells.
//
// Row-subsetting and row-reordering operators (filter, diff, distinct, sort,
// join, group-by) go through a single remap primitive that applies one
// position list to every column.
//
// # Operators
//
//   - Projection: SelectColumns, DeselectColumn, RenameColumn
//   - Row selection: FilterColumn, DiffOnColumns, DistinctColumn
//   - Ordering: SortColumn, SortColumnBy
//   - Derivation: MapColumn, CreateFixedColumn, CreateColumn, ConcatenateColumns
//   - Combination: Concatenate, JoinOnColumns
//   - Aggregation: GroupByColumn with Op descriptors
//
// # Indexes
//
// DiffOnColumns, JoinOnColumns and GroupByColumn use the lazily built index
// of a key column. Because columns are shared, an index built for one table
// is reused by every table holding the same column. JoinOnColumns indexes
// whichever key column already has an index; if neither does, it indexes the
// side with fewer rows and probes the other.
//
// # Ordering Guarantees
//
//   - ColumnNames is sorted alphabetically.
//   - GroupByColumn emits groups in order of the first occurrence of each
//     grouping value.
//   - JoinOnColumns emits rows ordered by probe-side position, then by
//     indexed-side position.
//
// # Errors
//
// Fallible operators return *errors.Error values from pkg/errors. A
// reference to an absent column yields ErrorTypeMissingColumn; a builder row
// of the wrong width yields ErrorTypeColumnCountMismatch; concatenating a
// table that lacks a column yields ErrorTypeConcatenateColumnMismatch.
//
// # Usage Example
//
//	b := table.NewBuilder("id", "name")
//	b.AddRow("1", "Ada")
//	b.AddRow("2", "Grace")
//	t := b.Build()
//
//	ada, _ := t.FilterColumn("name", func(v string) bool { return v == "Ada" })
//	joined, _ := t.JoinOnColumns("id", ada, "id")
//	fmt.Print(joined)
package table
