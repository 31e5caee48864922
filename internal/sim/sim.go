// Package sim provides deterministic in-process stand-ins for the pool's yield
// source and swap venue. The CLI and the scenario harness run against them.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// BasisPoints is the denominator of every rate in this package.
const BasisPoints = 10_000

// ErrInjected is returned by a call that was told to fail.
var ErrInjected = errors.New("sim: injected failure")

// SourceState is the persisted form of a Source.
type SourceState struct {
	Staked       uint64   `json:"staked" yaml:"staked"`
	RateBPS      uint64   `json:"rate_bps" yaml:"rate_bps"`
	Pending      []uint64 `json:"pending,omitempty" yaml:"pending,omitempty"`
	TotalClaimed uint64   `json:"total_claimed" yaml:"total_claimed"`
}

// Source is a simulated yield source. Each Claim pays the next queued yield
// or, with an empty queue, RateBPS of the staked amount.
type Source struct {
	mu    sync.Mutex
	state SourceState
	fail  map[string]bool
}

// NewSource returns a source paying rateBPS per claim.
func NewSource(rateBPS uint64) *Source {
	return &Source{state: SourceState{RateBPS: rateBPS}, fail: map[string]bool{}}
}

// RestoreSource rebuilds a source from persisted state.
func RestoreSource(s SourceState) *Source {
	s.Pending = append([]uint64(nil), s.Pending...)
	return &Source{state: s, fail: map[string]bool{}}
}

// State returns a copy of the source's current state.
func (s *Source) State() SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Pending = append([]uint64(nil), s.state.Pending...)
	return out
}

// Queue schedules exact yields for the next claims, in order.
func (s *Source) Queue(yields ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pending = append(s.state.Pending, yields...)
}

// FailNext makes the next call to method ("claim", "stake", "unstake") fail.
func (s *Source) FailNext(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = true
}

// Checkpoint captures the source's state. The returned function restores it,
// undoing every claim, stake and unstake made since. Armed failures are not
// part of the state and stay consumed.
func (s *Source) Checkpoint() func() {
	saved := s.State()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.state = saved
	}
}

func (s *Source) injected(method string) bool {
	if s.fail[method] {
		delete(s.fail, method)
		return true
	}
	return false
}

// Claim pays the next queued yield, or RateBPS of the staked amount when the
// queue is empty.
func (s *Source) Claim(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.injected("claim") {
		return 0, ErrInjected
	}

	var yield uint64
	if len(s.state.Pending) > 0 {
		yield = s.state.Pending[0]
		s.state.Pending = s.state.Pending[1:]
	} else {
		hi, lo := bits.Mul64(s.state.Staked, s.state.RateBPS)
		if hi >= BasisPoints {
			return 0, fmt.Errorf("sim: yield on %d overflows", s.state.Staked)
		}
		yield, _ = bits.Div64(hi, lo, BasisPoints)
	}
	s.state.TotalClaimed += yield
	return yield, nil
}

// StakeMore adds amount to the staked balance.
func (s *Source) StakeMore(ctx context.Context, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.injected("stake") {
		return ErrInjected
	}
	sum, carry := bits.Add64(s.state.Staked, amount, 0)
	if carry != 0 {
		return fmt.Errorf("sim: staked amount overflows")
	}
	s.state.Staked = sum
	return nil
}

// Unstake removes amount from the staked balance.
func (s *Source) Unstake(ctx context.Context, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.injected("unstake") {
		return ErrInjected
	}
	if amount > s.state.Staked {
		return fmt.Errorf("sim: unstake %d exceeds staked %d", amount, s.state.Staked)
	}
	s.state.Staked -= amount
	return nil
}

// Venue is a simulated swap venue returning RateBPS of every deposit.
type Venue struct {
	mu      sync.Mutex
	rateBPS uint64
	swaps   int
	failing bool
}

// NewVenue returns a venue converting at rateBPS.
func NewVenue(rateBPS uint64) *Venue {
	return &Venue{rateBPS: rateBPS}
}

// Swaps returns how many deposits the venue accepted.
func (v *Venue) Swaps() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.swaps
}

// FailNext makes the next deposit fail.
func (v *Venue) FailNext() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failing = true
}

// Checkpoint captures the venue's swap count. The returned function restores
// it.
func (v *Venue) Checkpoint() func() {
	v.mu.Lock()
	saved := v.swaps
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.swaps = saved
	}
}

// SingleSidedDeposit converts amount of asset at RateBPS.
func (v *Venue) SingleSidedDeposit(ctx context.Context, asset string, amount uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		v.failing = false
		return 0, ErrInjected
	}
	hi, lo := bits.Mul64(amount, v.rateBPS)
	if hi >= BasisPoints {
		return 0, fmt.Errorf("sim: swap of %d %s overflows", amount, asset)
	}
	out, _ := bits.Div64(hi, lo, BasisPoints)
	v.swaps++
	return out, nil
}
