// Package ledger implements the pool ledger of an auto-compounding staking
// pool.
//
// A Ledger owns exactly one Pool, the pool's harvest log, and one Position per
// participant. Harvests never touch positions: each harvest appends one growth
// factor to the log, and a position replays the factors it has not observed
// the next time its owner interacts with the pool.
//
// Every mutating operation runs as a staged transaction:
//
//  1. copy the pool aggregates, open an overlay on the harvest log, and stage
//     copies of the positions it touches
//  2. validate inputs, timing, and the caller's fee escrow
//  3. perform the external calls (claim, swap, stake, unstake)
//  4. settle fees and hand the resulting Changeset to the Persister
//  5. apply the changeset to memory
//
// A failure at any step discards the staged state, so no partial operation is
// ever visible. Effects already produced at external collaborators by a
// failed operation are the host's to reconcile; the ledger only guarantees
// that its own state is unchanged.
//
// Lifecycle of a pool:
//
//	init -> live -> ended -> deletable -> torn down
//
// Setup moves a pool from init to live. The end round closes staking, the
// claim period or an empty pool makes it deletable, and DeletePool tears it
// down once every harvest record has been purged.
package ledger
