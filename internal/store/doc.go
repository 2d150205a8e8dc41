// Package store provides flat-file durable storage for a proposition graph.
//
// The store owns five tables, each persisted as one delimited text file:
//   - Nodes: (id, text) of every entity
//   - Relations: (id, text) of every relation
//   - Propositions: (source, relation, target, weight) edges
//   - NodeStyle / RelationStyle: one visual-attribute row per element
//
// # Critical Patterns
//
// Single writer:
//   - Every access goes through Store.Update or Store.View, which hold one
//     store-wide mutex. At most one writer exists system-wide, whichever
//     task channel it runs on.
//
// No partial commit:
//   - Update loads all tables into a Tx and only writes back the tables the
//     callback touched, after the callback returned nil. A callback error
//     leaves every file as it was.
//
// Crash-safe rewrite:
//   - Each dirty table is written to a temporary file and renamed over the
//     original, so a crash mid-write never leaves a truncated table.
//
// Referential integrity:
//   - Proposition ids always resolve; a node or relation lives exactly as
//     long as some proposition references it (CascadeDelete).
//   - Style rows stay synchronized with their owners by id and label.
//
// # File Format
//
// Fields are separated by '§' (U+00A7), rows end in CRLF, the first row is the
// header. Files are validated against their schema on every load.
//
// The filesystem is a hackpadfs.FS: the OS in production, an in-memory FS in
// tests.
package store
