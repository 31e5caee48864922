// Package engine serializes operations on a pool ledger.
//
// ARCHITECTURE:
//
// Single-Writer Request Loop:
// Every mutating operation goes through one FIFO queue drained by exactly
// one Run goroutine. Submit is safe from any goroutine and blocks until the
// operation's result is ready. Read-only queries go straight to the ledger.
//
// Request Processing Flow:
// 1. Submit enqueues the request with a reply channel
// 2. Run dequeues requests one at a time
// 3. Execute stamps seq and operation id, then dispatches by kind
// 4. The ledger stages, calls out, persists, and applies
// 5. The result is sent back on the reply channel
//
// One-shot callers (the CLI) may call Execute directly instead of running
// the loop.
//
// CRITICAL PATTERNS:
//
// Logical Clock
// Every operation is stamped with a monotonic seq from Clock.Next().
// Rejected operations consume a seq too, so the journal may have gaps.
// NEVER use wall-clock timestamps for ordering.
//
// Deterministic Ids
// Operation ids are UUIDv7 in production. FixedGenerator makes them
// reproducible for golden traces.
package engine
