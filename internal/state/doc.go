// Package state is the versioned diagnostic state store.
//
// A Cell holds the findings of one analyzer for one artifact (a project or a
// document) at one Kind (syntax, document, project). Each cell carries a text
// version and a semantic version Stamp next to its records. Cells are read
// with Existing, which returns an explicit Absent/Present value, and written
// with Persist, which replaces the content atomically.
//
// An Index bundles the three cells of one (analyzer, artifact) pair and a
// Registry hands indices out over a Store. Three stores are provided:
//
//   - MemoryStore: process memory, copy on read and write.
//   - DiskStore: one msgpack file per cell, temp file + rename.
//   - SQLiteStore: one table, records as a msgpack blob.
//
// No component here serialises writers. Persisting the same cell from two
// goroutines at once is a caller error; different cells may be persisted
// concurrently.
package state
