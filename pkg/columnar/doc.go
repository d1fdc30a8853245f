// Package columnar implements the storage layer of the Tabula table engine:
// string-backed scalar values and immutable columns with a lazily built,
// cached hash index.
//
// # Overview
//
// A Column is a fixed-length sequence of Values. Columns never change after
// construction, so tables share them by pointer: projecting, renaming or
// joining a table copies column pointers, not cells.
//
// Each column can build an index mapping every distinct value to the
// ascending list of positions holding it. The index is computed on the first
// call to Index and cached for the lifetime of the column, so every table
// sharing the column reuses it. Joins use HasIndex to prefer a side whose
// index already exists.
//
// # Concurrency
//
// Columns are safe for concurrent readers. The index build runs at most once
// per column; concurrent callers of Index block until it is complete and then
// observe the same map. HasIndex reports true only after the build has
// finished.
//
// # Usage Example
//
//	col := columnar.NewColumnFromStrings([]string{"a", "b", "a"})
//	col.Index()[columnar.Value("a")] // [0 2]
//
//	head := col.Remap([]int{2, 2, 1}) // a a b, no index yet
package columnar
