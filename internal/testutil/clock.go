// Package testutil provides deterministic helpers shared by package tests.
package testutil

import "sync"

// Rounds is a manually driven round clock.
//
// It stands in for the chain's round counter in keeper and harness tests.
// All methods are safe for concurrent use.
type Rounds struct {
	mu    sync.Mutex
	round uint64
}

// NewRounds creates a clock at round start.
func NewRounds(start uint64) *Rounds {
	return &Rounds{round: start}
}

// Round returns the current round.
func (r *Rounds) Round() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

// Advance moves the clock forward by n rounds and returns the new round.
func (r *Rounds) Advance(n uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round += n
	return r.round
}

// Set jumps to round. Rounds never move backwards; an earlier round is
// ignored.
func (r *Rounds) Set(round uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if round > r.round {
		r.round = round
	}
}
