// Package store is the SQLite reference backend of the query engine.
//
// It implements every provider the planner consumes through internal/graph:
// atoms and types, value lookup, part, target and direct-value indexes,
// incidence sets and subgraph membership.
//
// # Snapshots
//
// Reads go through a Snapshot backed by one read transaction, so a query
// observes a single consistent view for as long as its cursors live. Every
// result set is read completely and returned as an in-memory cursor sorted
// by handle, which makes random access seeks binary searches and lets
// concurrent cursors share the snapshot.
//
// # Ordering
//
// Handles are stored as 16-byte blobs and values as order-preserving key
// encodings (ir.EncodeKey), so ORDER BY ... COLLATE BINARY yields handle
// order and value order directly. All SQL is produced by internal/querysql
// from internal/queryir descriptions.
//
// # Index maintenance
//
// An atom is entered into the indexes defined on its type and on every
// supertype. Defining an index or a subsumption backfills existing atoms.
//
// # Database Configuration
//
//   - WAL mode: readers do not block the writer
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
