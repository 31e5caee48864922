package engine

import (
	"context"
	"time"

	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/metrics"
)

// ObservedSource records call metrics around a YieldSource.
type ObservedSource struct {
	next    ledger.YieldSource
	metrics *metrics.External
}

// ObserveSource wraps src.
func ObserveSource(src ledger.YieldSource) *ObservedSource {
	return &ObservedSource{next: src, metrics: metrics.NewExternal("source")}
}

// Claim times the wrapped Claim.
func (o *ObservedSource) Claim(ctx context.Context) (uint64, error) {
	started := time.Now()
	amount, err := o.next.Claim(ctx)
	o.metrics.Observe("claim", err, started)
	return amount, err
}

// StakeMore times the wrapped StakeMore.
func (o *ObservedSource) StakeMore(ctx context.Context, amount uint64) error {
	started := time.Now()
	err := o.next.StakeMore(ctx, amount)
	o.metrics.Observe("stake", err, started)
	return err
}

// Unstake times the wrapped Unstake.
func (o *ObservedSource) Unstake(ctx context.Context, amount uint64) error {
	started := time.Now()
	err := o.next.Unstake(ctx, amount)
	o.metrics.Observe("unstake", err, started)
	return err
}

// Checkpoint forwards to the wrapped source.
func (o *ObservedSource) Checkpoint() func() {
	return ledger.CheckpointOf(o.next)
}

// ObservedVenue records call metrics around a SwapVenue.
type ObservedVenue struct {
	next    ledger.SwapVenue
	metrics *metrics.External
}

// ObserveVenue wraps v.
func ObserveVenue(v ledger.SwapVenue) *ObservedVenue {
	return &ObservedVenue{next: v, metrics: metrics.NewExternal("venue")}
}

// SingleSidedDeposit times the wrapped deposit.
func (o *ObservedVenue) SingleSidedDeposit(ctx context.Context, asset string, amount uint64) (uint64, error) {
	started := time.Now()
	out, err := o.next.SingleSidedDeposit(ctx, asset, amount)
	o.metrics.Observe("swap", err, started)
	return out, err
}

// Checkpoint forwards to the wrapped venue.
func (o *ObservedVenue) Checkpoint() func() {
	return ledger.CheckpointOf(o.next)
}
