package ledger

import (
	"context"
	"math/bits"

	"github.com/roach88/compound/internal/fault"
)

// Conversion is the outcome of turning claimed yield into stake.
type Conversion struct {
	// Credited is the staking asset added to the pool by this harvest.
	Credited uint64

	// Retained is raw yield carried over to the next harvest.
	Retained uint64

	// Swapped reports whether the swap venue was called.
	Swapped bool
}

// YieldConversionStrategy converts claimed yield into restakeable stake.
type YieldConversionStrategy interface {
	// Convert receives the amount just claimed plus any yield retained by
	// earlier harvests.
	Convert(ctx context.Context, claimed, retained uint64) (Conversion, error)

	// MaySwap reports whether Convert can call an external venue, which the
	// worst-case harvest fee must cover.
	MaySwap() bool
}

// Identity restakes claimed yield unchanged.
type Identity struct{}

// Convert credits claimed plus retained yield in full.
func (Identity) Convert(_ context.Context, claimed, retained uint64) (Conversion, error) {
	sum, carry := bits.Add64(claimed, retained, 0)
	if carry != 0 {
		return Conversion{}, fault.New(fault.CodeArithmeticOverflow, "claimed yield overflows")
	}
	return Conversion{Credited: sum}, nil
}

// MaySwap is always false.
func (Identity) MaySwap() bool { return false }

// SwapThenRestake swaps raw reward tokens through a venue once they reach a
// dust threshold; below it the raw yield is kept for the next harvest.
type SwapThenRestake struct {
	Venue     SwapVenue
	Asset     string
	Threshold uint64
}

// Convert swaps claimed plus retained raw yield once it reaches Threshold and
// credits what the venue returns. Below the threshold nothing is credited and
// the raw yield is retained.
func (s SwapThenRestake) Convert(ctx context.Context, claimed, retained uint64) (Conversion, error) {
	raw, carry := bits.Add64(claimed, retained, 0)
	if carry != 0 {
		return Conversion{}, fault.New(fault.CodeArithmeticOverflow, "raw yield overflows")
	}
	if raw == 0 || raw < s.Threshold {
		return Conversion{Retained: raw}, nil
	}
	received, err := s.Venue.SingleSidedDeposit(ctx, s.Asset, raw)
	if err != nil {
		return Conversion{}, fault.Wrap(fault.CodeExternalCallFailed, err, "swap %d %s", raw, s.Asset)
	}
	return Conversion{Credited: received, Swapped: true}, nil
}

// MaySwap is always true.
func (SwapThenRestake) MaySwap() bool { return true }

// Checkpoint forwards to the venue when it can be checkpointed.
func (s SwapThenRestake) Checkpoint() func() {
	return CheckpointOf(s.Venue)
}
