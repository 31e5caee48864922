// Package harness runs conformance scenarios against a real pool ledger.
//
// Each scenario gets a fresh ledger persisted to an in-memory SQLite store,
// with a simulated yield source and swap venue, deterministic operation ids,
// and a logical clock starting at zero. Traces are therefore reproducible
// and compared against golden files.
//
// # Scenario Format
//
//	name: scheduled_harvest
//	description: "What this scenario validates"
//	pool:
//	  admin: admin
//	  start_round: 100
//	  end_round: 1000
//	  claim_period_rounds: 100
//	  base_reserve: 100000
//	setup:
//	  - { op: setup, caller: admin, round: 10, escrow: 100000 }
//	flow:
//	  - op: trigger
//	    caller: carol
//	    round: 550
//	    yield: [128]
//	    expect:
//	      outcome: ok
//	      result: { growth_factor: "1.125" }
//	assertions:
//	  - type: final_state
//	    table: positions
//	    where: { account: alice }
//	    expect: { balance: 288 }
//
// # Assertion Types
//
//   - trace_contains: an event matches op, and caller and outcome if given
//   - trace_order: the first committed occurrences of ops appear in order
//   - trace_count: exactly count events match
//   - final_state: one row of the pool, positions, or harvests view matches
//   - journal_count: the store journaled exactly count operations
//   - audit: realizable balances never exceed the total stake
package harness
