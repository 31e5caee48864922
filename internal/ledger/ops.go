package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/position"
)

func (l *Ledger) requireAdmin(call Call) error {
	if call.Caller != l.pool.Admin {
		return fault.New(fault.CodeUnauthorized, "%q is not the pool admin", call.Caller).
			With("caller", call.Caller).
			With("admin", l.pool.Admin)
	}
	return nil
}

func requireCaller(call Call) error {
	if call.Caller == "" {
		return fault.New(fault.CodeInvalidInput, "caller identity is empty")
	}
	return nil
}

func requireAmount(amount uint64) error {
	if amount == 0 {
		return fault.New(fault.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

// Setup primes the pool so the first harvest slot is measured from the start
// round. Only the admin may call it, once. The pool's fee balance, including
// the escrow supplied now, must cover the base reserve.
func (l *Ledger) Setup(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpSetup, call)
	if err != nil {
		return Receipt{}, err
	}
	if err := l.requireAdmin(call); err != nil {
		return Receipt{}, err
	}
	if t.pool.SetUp() {
		return Receipt{}, fault.New(fault.CodeAlreadySetUp, "pool was set up at round %d", t.pool.LastHarvestRound)
	}
	if t.pool.FeeBalance+call.Escrow < t.pool.BaseReserve {
		return Receipt{}, fee.Validate(t.pool.FeeBalance+call.Escrow, t.pool.BaseReserve)
	}
	t.pool.LastHarvestRound = t.pool.StartRound
	return t.commit(ctx, 0, 0)
}

// Join opens a position for the caller that has observed every existing harvest.
func (l *Ledger) Join(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpJoin, call)
	if err != nil {
		return Receipt{}, err
	}
	if err := requireCaller(call); err != nil {
		return Receipt{}, err
	}
	if t.exists(call.Caller) {
		return Receipt{}, fault.New(fault.CodeAlreadyJoined, "account %q already joined", call.Caller)
	}
	if !t.pool.SetUp() {
		return Receipt{}, fault.New(fault.CodeJoinWindowClosed, "pool is not set up")
	}
	if call.Round >= t.pool.EndRound {
		return Receipt{}, fault.New(fault.CodeJoinWindowClosed, "round %d is at or past end round %d", call.Round, t.pool.EndRound)
	}

	t.create(call.Caller, position.New(t.pool.HarvestCount))
	t.pool.StakerCount++
	return t.commit(ctx, 0, 0)
}

// Leave closes the caller's position, which must hold less than one whole unit.
func (l *Ledger) Leave(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpLeave, call)
	if err != nil {
		return Receipt{}, err
	}
	p, err := t.position(call.Caller)
	if err != nil {
		return Receipt{}, err
	}
	if p.Realizable() != 0 {
		return Receipt{}, fault.New(fault.CodeNonZeroBalance, "account %q still holds %d units", call.Caller, p.Realizable()).
			With("realizable", p.Realizable())
	}
	t.remove(call.Caller)
	t.pool.StakerCount--
	return t.commit(ctx, 0, 0)
}

// ForceLeave closes the caller's position regardless of its balance. The
// stake is forfeited: it stays in the pool's total stake and is never paid out
// to the caller.
func (l *Ledger) ForceLeave(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpForceLeave, call)
	if err != nil {
		return Receipt{}, err
	}
	p, err := t.position(call.Caller)
	if err != nil {
		return Receipt{}, err
	}
	forfeited := p.Realizable()
	t.remove(call.Caller)
	t.pool.StakerCount--

	r, err := t.commit(ctx, forfeited, 0)
	if err == nil && forfeited > 0 {
		l.logger.Warn("position forfeited", zap.String("account", call.Caller.String()), zap.Uint64("stake", forfeited))
	}
	return r, err
}

// Stake deposits amount for the caller.
//
// When the pool is live and already holds stake, a harvest runs first in the
// same operation, restaking the new amount together with the claimed yield;
// the caller's existing stake then observes that harvest before the deposit
// is added. Otherwise the amount is staked directly.
func (l *Ledger) Stake(ctx context.Context, call Call, amount uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpStake, call)
	if err != nil {
		return Receipt{}, err
	}
	defer t.guard()()
	if err := requireAmount(amount); err != nil {
		return Receipt{}, err
	}
	p, err := t.position(call.Caller)
	if err != nil {
		return Receipt{}, err
	}
	if call.Round >= t.pool.EndRound {
		return Receipt{}, fault.New(fault.CodePoolClosed, "round %d is at or past end round %d", call.Round, t.pool.EndRound)
	}
	if p.Stale(t.pool.HarvestCount) {
		if p.Realizable() != 0 {
			return Receipt{}, fault.New(fault.CodeMustCatchUpFirst, "account %q observed harvest %d of %d", call.Caller, p.LastObserved, t.pool.HarvestCount).
				With("last_observed", p.LastObserved).
				With("harvest_count", t.pool.HarvestCount)
		}
		if err := p.FastForward(t.pool.HarvestCount); err != nil {
			return Receipt{}, err
		}
	}

	bundled := call.Round > t.pool.StartRound && t.pool.TotalStake > 0
	required := t.pool.HarvestCost() + t.pool.Costs.Stake
	if bundled {
		required = 2 * t.pool.HarvestCost()
	}
	if err := fee.Validate(call.Escrow, required); err != nil {
		return Receipt{}, err
	}

	if bundled {
		if _, err := t.doHarvest(ctx, amount, fee.FromPool); err != nil {
			return Receipt{}, err
		}
		if err := t.catchUpAll(p); err != nil {
			return Receipt{}, err
		}
	} else {
		if err := l.source.StakeMore(ctx, amount); err != nil {
			return Receipt{}, external(err, "stake %d", amount)
		}
		t.plan.Add(fee.StepStake, fee.FromPool)
		if err := t.addStake(amount); err != nil {
			return Receipt{}, err
		}
	}
	if err := p.Deposit(amount); err != nil {
		return Receipt{}, err
	}
	return t.commit(ctx, amount, 0)
}

// Withdraw pays out amount whole units of the caller's stake and returns the
// amount realized. Requesting the entire realizable balance while a harvest
// runs as part of the withdrawal pays out that harvest's growth as well.
func (l *Ledger) Withdraw(ctx context.Context, call Call, amount uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpWithdraw, call)
	if err != nil {
		return Receipt{}, err
	}
	defer t.guard()()
	if err := requireAmount(amount); err != nil {
		return Receipt{}, err
	}
	p, err := t.position(call.Caller)
	if err != nil {
		return Receipt{}, err
	}
	if err := t.catchUpAll(p); err != nil {
		return Receipt{}, err
	}
	before := p.Realizable()
	if amount > before {
		return Receipt{}, fault.New(fault.CodeInsufficientStake, "withdraw %d exceeds realizable stake %d", amount, before).
			With("requested", amount).
			With("realizable", before)
	}

	realized := amount
	switch {
	case call.Round < t.pool.StartRound:
		if err := fee.Validate(call.Escrow, t.pool.Costs.Unstake); err != nil {
			return Receipt{}, err
		}
		if err := l.source.Unstake(ctx, amount); err != nil {
			return Receipt{}, external(err, "unstake %d", amount)
		}
		t.plan.Add(fee.StepUnstake, fee.FromPool)

	case call.Round <= t.pool.EndRound || !t.pool.FinalHarvestDone:
		if err := fee.Validate(call.Escrow, t.pool.HarvestCost()+t.pool.Costs.Unstake); err != nil {
			return Receipt{}, err
		}
		if _, err := t.doHarvest(ctx, 0, fee.FromPool); err != nil {
			return Receipt{}, err
		}
		if err := t.catchUpAll(p); err != nil {
			return Receipt{}, err
		}
		if amount == before {
			realized = p.Realizable()
		}

		unstake := realized
		terminal := call.Round > t.pool.EndRound
		if terminal {
			unstake = t.pool.TotalStake
		}
		if err := l.source.Unstake(ctx, unstake); err != nil {
			return Receipt{}, external(err, "unstake %d", unstake)
		}
		t.plan.Add(fee.StepUnstake, fee.FromPool)
		if terminal {
			t.pool.FinalHarvestDone = true
			l.logger.Info("terminal harvest done",
				zap.Uint64("round", call.Round),
				zap.Uint64("unstaked", unstake),
			)
		}
	}

	if err := p.Debit(realized); err != nil {
		return Receipt{}, err
	}
	if err := t.subStake(realized); err != nil {
		return Receipt{}, err
	}
	return t.commit(ctx, amount, realized)
}

// TriggerHarvest runs a scheduled harvest paid from the pool's fee balance.
// Anyone may call it once the schedule says a harvest is due.
func (l *Ledger) TriggerHarvest(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpTrigger, call)
	if err != nil {
		return Receipt{}, err
	}
	defer t.guard()()
	if t.pool.FinalHarvestDone {
		return Receipt{}, fault.New(fault.CodePoolClosed, "terminal harvest already done")
	}
	due := nextDue(t.pool, call.Round)
	if !due.Ready() {
		return Receipt{}, fault.New(fault.CodeNotDue, "harvest not due at round %d: %s", call.Round, due.Status).
			With("status", due.Status).
			With("next_round", due.Round)
	}
	if call.Round <= t.pool.StartRound {
		return Receipt{}, fault.New(fault.CodePoolNotYetLive, "round %d is not after start round %d", call.Round, t.pool.StartRound)
	}
	if err := t.pool.Budget().Covers(t.pool.HarvestCost()); err != nil {
		return Receipt{}, err
	}
	rec, err := t.doHarvest(ctx, 0, fee.FromPool)
	if err != nil {
		return Receipt{}, err
	}
	l.logger.Info("harvest triggered",
		zap.Uint64("index", rec.Index),
		zap.Uint64("round", call.Round),
		zap.Uint64("realized", rec.Realized),
		zap.String("growth_factor", rec.GrowthFactor.String()),
	)
	return t.commit(ctx, 0, 0)
}

// CompoundNow runs an extra harvest while the pool is live, paid by the
// caller's escrow.
func (l *Ledger) CompoundNow(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpCompoundNow, call)
	if err != nil {
		return Receipt{}, err
	}
	defer t.guard()()
	if call.Round >= t.pool.EndRound {
		return Receipt{}, fault.New(fault.CodePoolClosed, "round %d is at or past end round %d", call.Round, t.pool.EndRound)
	}
	if call.Round <= t.pool.StartRound {
		return Receipt{}, fault.New(fault.CodePoolNotYetLive, "round %d is not after start round %d", call.Round, t.pool.StartRound)
	}
	if err := fee.Validate(call.Escrow, t.pool.HarvestCost()); err != nil {
		return Receipt{}, err
	}
	if _, err := t.doHarvest(ctx, 0, fee.FromPool); err != nil {
		return Receipt{}, err
	}
	return t.commit(ctx, 0, 0)
}

// FundTriggers credits the caller's escrow to the pool's fee balance, which
// buys more scheduled harvests.
func (l *Ledger) FundTriggers(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpFundTriggers, call)
	if err != nil {
		return Receipt{}, err
	}
	if err := requireAmount(call.Escrow); err != nil {
		return Receipt{}, err
	}
	return t.commit(ctx, call.Escrow, 0)
}

// LocalClaim replays harvests onto the caller's position through the given index.
func (l *Ledger) LocalClaim(ctx context.Context, call Call, through uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpLocalClaim, call)
	if err != nil {
		return Receipt{}, err
	}
	p, err := t.position(call.Caller)
	if err != nil {
		return Receipt{}, err
	}
	if err := p.CatchUp(t.log, through); err != nil {
		return Receipt{}, err
	}
	return t.commit(ctx, through, 0)
}

func (l *Ledger) requireDeletable(call Call) error {
	if !l.pool.Deletable(call.Round) {
		return fault.New(fault.CodePrecondInvalid, "pool is not deletable at round %d", call.Round).
			With("stakers", l.pool.StakerCount).
			With("end_round", l.pool.EndRound).
			With("claim_period", l.pool.ClaimPeriodRounds)
	}
	return nil
}

// PurgeHarvests deletes every harvest record above downTo, highest first,
// releasing their reserve deposits. Admin only, under the teardown timing rule.
func (l *Ledger) PurgeHarvests(ctx context.Context, call Call, downTo uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpPurge, call)
	if err != nil {
		return Receipt{}, err
	}
	if err := l.requireAdmin(call); err != nil {
		return Receipt{}, err
	}
	if err := l.requireDeletable(call); err != nil {
		return Receipt{}, err
	}
	if downTo > t.pool.HarvestCount {
		return Receipt{}, fault.New(fault.CodePrecondInvalid, "cannot purge down to %d above highest record %d", downTo, t.pool.HarvestCount)
	}
	purged := t.pool.HarvestCount - downTo
	t.pool.HarvestCount = downTo
	t.purgedDownTo = &downTo

	r, err := t.commit(ctx, downTo, purged)
	if err == nil {
		l.logger.Info("harvest records purged", zap.Uint64("down_to", downTo), zap.Uint64("purged", purged))
	}
	return r, err
}

// DeletePool tears the pool down and returns every residual asset to the
// admin. All harvest records must have been purged. If the terminal harvest
// never ran, the remaining yield is claimed and the total stake unstaked,
// with those fees pooled by the admin.
func (l *Ledger) DeletePool(ctx context.Context, call Call) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.begin(OpDeletePool, call)
	if err != nil {
		return Receipt{}, err
	}
	defer t.guard()()
	if err := l.requireAdmin(call); err != nil {
		return Receipt{}, err
	}
	if err := l.requireDeletable(call); err != nil {
		return Receipt{}, err
	}
	if t.pool.HarvestCount != 0 {
		return Receipt{}, fault.New(fault.CodePrecondInvalid, "%d harvest records must be purged first", t.pool.HarvestCount).
			With("harvest_count", t.pool.HarvestCount)
	}

	s := &Settlement{Stake: t.pool.TotalStake, Retained: t.pool.RetainedYield}
	if !t.pool.FinalHarvestDone {
		required := t.pool.Costs.Claim
		if t.pool.TotalStake > 0 {
			required += t.pool.Costs.Unstake
		}
		if err := fee.Validate(call.Escrow, required); err != nil {
			return Receipt{}, err
		}
		claimed, err := l.source.Claim(ctx)
		if err != nil {
			return Receipt{}, external(err, "claim yield")
		}
		t.plan.Add(fee.StepClaim, fee.PooledByCaller)
		s.Yield = claimed
		if t.pool.TotalStake > 0 {
			if err := l.source.Unstake(ctx, t.pool.TotalStake); err != nil {
				return Receipt{}, external(err, "unstake %d", t.pool.TotalStake)
			}
			t.plan.Add(fee.StepUnstake, fee.PooledByCaller)
		}
		t.pool.FinalHarvestDone = true
	}

	t.settlement = s
	t.teardown = true
	t.pool.Deleted = true
	t.pool.TotalStake = 0
	t.pool.StakerCount = 0
	t.pool.RetainedYield = 0
	for _, id := range sortedAccounts(l.positions) {
		t.remove(id)
	}

	r, err := t.commit(ctx, 0, 0)
	if err == nil {
		l.logger.Info("pool deleted",
			zap.Uint64("stake", s.Stake),
			zap.Uint64("yield", s.Yield),
			zap.Uint64("retained", s.Retained),
			zap.Uint64("fees", s.Fees),
		)
	}
	return r, err
}
