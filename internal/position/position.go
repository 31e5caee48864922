// Package position holds a participant's fractional stake and the harvest
// index it last observed, and replays missed harvests onto it.
package position

import (
	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fixedpoint"
	"github.com/roach88/compound/internal/harvestlog"
)

// Position is one participant's share of the pool.
//
// Position is a value type: copying it yields an independent position, which
// the ledger relies on to stage changes before commit.
type Position struct {
	// Stake is the fractional stake in base units.
	Stake fixedpoint.Value

	// LastObserved is the highest harvest index already applied to Stake.
	LastObserved uint64
}

// New returns an empty position that has observed every harvest through observed.
func New(observed uint64) Position {
	return Position{LastObserved: observed}
}

// Realizable returns the whole base units the position can withdraw.
func (p Position) Realizable() uint64 {
	return p.Stake.Floor()
}

// Stale reports whether harvests beyond LastObserved exist in a log of length head.
func (p Position) Stale(head uint64) bool {
	return p.LastObserved != head
}

// CatchUp applies records LastObserved+1 through `through` one at a time, in
// index order. Calling it with through == LastObserved is a no-op.
//
// On error the position may have advanced partway; callers that need
// all-or-nothing behavior catch up a copy.
func (p *Position) CatchUp(log harvestlog.Reader, through uint64) error {
	if p.LastObserved > log.Len() {
		return fault.New(fault.CodeHistoryPurged, "position observed harvest %d but the log now ends at %d", p.LastObserved, log.Len()).
			With("last_observed", p.LastObserved).
			With("highest", log.Len())
	}
	if through < p.LastObserved {
		return fault.New(fault.CodeCatchUpOutOfOrder, "cannot catch up backward from %d to %d", p.LastObserved, through).
			With("last_observed", p.LastObserved).
			With("through", through)
	}
	if through > log.Len() {
		return fault.New(fault.CodeCatchUpBeyondAvailable, "cannot catch up to %d, only %d harvests recorded", through, log.Len()).
			With("through", through).
			With("highest", log.Len())
	}

	for i := p.LastObserved + 1; i <= through; i++ {
		rec, err := log.Get(i)
		if err != nil {
			return err
		}
		next, err := p.Stake.Mul(rec.GrowthFactor)
		if err != nil {
			return fault.Wrap(fault.CodeOf(err), err, "apply harvest %d", i)
		}
		p.Stake = next
		p.LastObserved = i
	}
	return nil
}

// Project returns the stake the position would hold once caught up with the
// whole log, leaving p untouched.
func (p Position) Project(log harvestlog.Reader) (fixedpoint.Value, error) {
	if err := p.CatchUp(log, log.Len()); err != nil {
		return fixedpoint.Zero, err
	}
	return p.Stake, nil
}

// FastForward marks every harvest through `to` as observed without replay.
// Only a position whose floored stake is zero may skip replay.
func (p *Position) FastForward(to uint64) error {
	if p.Realizable() != 0 {
		return fault.New(fault.CodeMustCatchUpFirst, "position holds %d units and must replay harvests %d..%d", p.Realizable(), p.LastObserved+1, to)
	}
	if to < p.LastObserved {
		return fault.New(fault.CodeCatchUpOutOfOrder, "cannot fast-forward backward from %d to %d", p.LastObserved, to)
	}
	p.LastObserved = to
	return nil
}

// Deposit adds whole base units to the stake.
func (p *Position) Deposit(amount uint64) error {
	next, err := p.Stake.Add(fixedpoint.FromInt(amount))
	if err != nil {
		return err
	}
	p.Stake = next
	return nil
}

// Debit removes whole base units, failing if amount exceeds the realizable balance.
func (p *Position) Debit(amount uint64) error {
	if amount > p.Realizable() {
		return fault.New(fault.CodeInsufficientStake, "withdraw %d exceeds realizable stake %d", amount, p.Realizable()).
			With("requested", amount).
			With("realizable", p.Realizable())
	}
	next, err := p.Stake.Sub(fixedpoint.FromInt(amount))
	if err != nil {
		return err
	}
	p.Stake = next
	return nil
}
