// Package store provides SQLite-backed durable storage for a pool ledger.
//
// The store holds:
//   - pool: the single row of pool aggregates
//   - harvest_records: the densely indexed growth factors
//   - positions: one row per joined account
//   - operations: the append-only journal of committed operations
//   - sim_source: the simulated yield source, when one is tracked
//
// # Critical Patterns
//
// One Transaction Per Operation
//   - Commit writes a ledger.Changeset atomically
//   - The ledger applies the changeset in memory only after Commit succeeds
//
// Logical Identity and Time
//   - Journal ordering uses seq INTEGER (logical clock), never timestamps
//   - Operation ids are unique; re-committing an id is a no-op in the journal
//
// Exact Values
//   - Stakes and growth factors are 16-byte big-endian Q64.64 BLOBs
//   - uint64 quantities are bit-cast into SQLite's signed INTEGER
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
