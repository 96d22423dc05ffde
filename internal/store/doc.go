// Package store provides a SQLite-backed log of rewrite runs.
//
// Each run is one row in runs (seed, final state, terminal payload, step
// count, limit, guard scope and trace hash) plus one row per rewrite step
// in steps. The log is append-only: writing a run ID that already exists
// is a no-op.
//
// # Ordering
//
// Runs are listed in insertion order. Every query ends with
// ORDER BY seq ASC, id COLLATE BINARY ASC so listings are identical
// across SQLite versions and connections. Steps are always read back in
// idx order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Filters passed to ListRuns are built from the sealed Predicate types in
// query.go and always compile to parameterized SQL.
package store
