package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/fixedpoint"
	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/position"
)

// tx stages one operation. Nothing it touches is visible to the ledger until
// commit has persisted the changeset.
type tx struct {
	l    *Ledger
	call Call
	kind OpKind

	pool    Pool
	log     *harvestlog.Overlay
	touched map[AccountID]*position.Position
	removed map[AccountID]bool
	plan    *fee.Plan

	purgedDownTo *uint64
	teardown     bool
	harvest      *harvestlog.Record
	settlement   *Settlement

	undo      []func()
	committed bool
}

func (l *Ledger) begin(kind OpKind, call Call) (*tx, error) {
	if l.pool.Deleted {
		return nil, fault.New(fault.CodePoolDeleted, "pool has been torn down")
	}
	return &tx{
		l:       l,
		call:    call,
		kind:    kind,
		pool:    l.pool,
		log:     l.log.Overlay(),
		touched: make(map[AccountID]*position.Position),
		removed: make(map[AccountID]bool),
		plan:    fee.NewPlan(l.pool.Costs),
	}, nil
}

// guard checkpoints the source and the conversion strategy before any
// external call. The returned release restores them, newest first, unless
// the operation committed, so a failed composite operation moves nothing at
// the collaborators either.
func (t *tx) guard() (release func()) {
	for _, c := range []any{t.l.source, t.l.strategy} {
		if restore := CheckpointOf(c); restore != nil {
			t.undo = append(t.undo, restore)
		}
	}
	return func() {
		if t.committed || len(t.undo) == 0 {
			return
		}
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		t.l.logger.Debug("collaborator calls rolled back",
			zap.String("op", string(t.kind)),
			zap.Uint64("seq", t.call.Seq),
		)
	}
}

// position returns the staged copy of the caller's position.
func (t *tx) position(account AccountID) (*position.Position, error) {
	if p, ok := t.touched[account]; ok {
		return p, nil
	}
	if t.removed[account] {
		return nil, fault.New(fault.CodeNotJoined, "account %q has not joined", account)
	}
	stored, ok := t.l.positions[account]
	if !ok {
		return nil, fault.New(fault.CodeNotJoined, "account %q has not joined", account)
	}
	p := stored
	t.touched[account] = &p
	return &p, nil
}

func (t *tx) exists(account AccountID) bool {
	if t.removed[account] {
		return false
	}
	if _, ok := t.touched[account]; ok {
		return true
	}
	_, ok := t.l.positions[account]
	return ok
}

func (t *tx) create(account AccountID, p position.Position) {
	delete(t.removed, account)
	t.touched[account] = &p
}

func (t *tx) remove(account AccountID) {
	delete(t.touched, account)
	t.removed[account] = true
}

func (t *tx) catchUpAll(p *position.Position) error {
	return p.CatchUp(t.log, t.log.Len())
}

func external(err error, format string, args ...any) error {
	var fe *fault.Error
	if errors.As(err, &fe) && fe.Code == fault.CodeExternalCallFailed {
		return err
	}
	return fault.Wrap(fault.CodeExternalCallFailed, err, format, args...)
}

// doHarvest claims yield, converts it, appends a growth record over the
// pre-harvest total stake, and restakes the credited yield plus restake.
// Steps are charged in mode.
func (t *tx) doHarvest(ctx context.Context, restake uint64, mode fee.PayMode) (harvestlog.Record, error) {
	if t.pool.TotalStake == 0 {
		return harvestlog.Record{}, fault.New(fault.CodeNothingStaked, "cannot harvest an empty pool")
	}

	claimed, err := t.l.source.Claim(ctx)
	if err != nil {
		return harvestlog.Record{}, external(err, "claim yield")
	}
	t.plan.Add(fee.StepClaim, mode)

	conv, err := t.l.strategy.Convert(ctx, claimed, t.pool.RetainedYield)
	if err != nil {
		if fault.ClassOf(err) == fault.ClassArithmetic {
			return harvestlog.Record{}, err
		}
		return harvestlog.Record{}, external(err, "convert yield")
	}
	if conv.Swapped {
		t.plan.Add(fee.StepSwap, mode)
	}
	t.pool.RetainedYield = conv.Retained

	gf, err := fixedpoint.GrowthFactor(conv.Credited, t.pool.TotalStake)
	if err != nil {
		return harvestlog.Record{}, err
	}
	rec := harvestlog.Record{
		GrowthFactor: gf,
		Round:        t.call.Round,
		Realized:     conv.Credited,
		StakeBefore:  t.pool.TotalStake,
	}
	rec.Index = t.log.Append(rec)
	t.pool.HarvestCount = t.log.Len()
	t.plan.Add(fee.StepRecordWrite, mode)

	stakeAmt, carry := bits.Add64(conv.Credited, restake, 0)
	if carry != 0 {
		return harvestlog.Record{}, fault.New(fault.CodeArithmeticOverflow, "restake amount overflows")
	}
	if stakeAmt > 0 {
		if err := t.l.source.StakeMore(ctx, stakeAmt); err != nil {
			return harvestlog.Record{}, external(err, "stake %d", stakeAmt)
		}
		t.plan.Add(fee.StepStake, mode)
		if err := t.addStake(stakeAmt); err != nil {
			return harvestlog.Record{}, err
		}
	}

	if t.call.Round > t.pool.LastHarvestRound {
		t.pool.LastHarvestRound = t.call.Round
	}
	t.harvest = &rec
	return rec, nil
}

func (t *tx) addStake(amount uint64) error {
	sum, carry := bits.Add64(t.pool.TotalStake, amount, 0)
	if carry != 0 {
		return fault.New(fault.CodeArithmeticOverflow, "total stake overflows")
	}
	t.pool.TotalStake = sum
	return nil
}

func (t *tx) subStake(amount uint64) error {
	if amount > t.pool.TotalStake {
		return fault.New(fault.CodeArithmeticUnderflow, "withdraw %d exceeds total stake %d", amount, t.pool.TotalStake)
	}
	t.pool.TotalStake -= amount
	return nil
}

// commit settles fees, persists the changeset, and applies it.
func (t *tx) commit(ctx context.Context, amount, result uint64) (Receipt, error) {
	// Record charges grow the reserve from its pre-operation level; a purge
	// has already shrunk it.
	budget := fee.Budget{Balance: t.pool.FeeBalance, Reserve: t.l.pool.Reserve()}
	if t.purgedDownTo != nil {
		budget.Reserve = t.pool.Reserve()
	}
	if err := budget.Settle(t.call.Escrow, t.plan); err != nil {
		return Receipt{}, err
	}
	t.pool.FeeBalance = budget.Balance
	if t.teardown {
		t.settlement.Fees = t.pool.FeeBalance
		t.pool.FeeBalance = 0
	}

	op := OpRecord{
		ID:     t.call.OpID,
		Seq:    t.call.Seq,
		Kind:   t.kind,
		Caller: t.call.Caller,
		Round:  t.call.Round,
		Escrow: t.call.Escrow,
		Amount: amount,
		Result: result,
	}
	cs := Changeset{
		Op:           op,
		Pool:         t.pool,
		Appended:     t.log.Pending(),
		PurgedDownTo: t.purgedDownTo,
		Teardown:     t.teardown,
	}
	for _, id := range sortedKeys(t.touched) {
		cs.Positions = append(cs.Positions, PositionChange{Account: id, Position: *t.touched[id]})
	}
	for _, id := range sortedKeys(t.removed) {
		cs.Positions = append(cs.Positions, PositionChange{Account: id, Removed: true})
	}

	if err := t.l.persister.Commit(ctx, cs); err != nil {
		return Receipt{}, fmt.Errorf("persist %s: %w", t.kind, err)
	}
	t.committed = true
	if err := t.apply(cs); err != nil {
		return Receipt{}, err
	}

	t.l.logger.Debug("operation committed",
		zap.String("op", string(t.kind)),
		zap.String("op_id", op.ID),
		zap.Uint64("seq", op.Seq),
		zap.Uint64("round", op.Round),
		zap.Uint64("total_stake", t.pool.TotalStake),
		zap.Uint64("harvest_count", t.pool.HarvestCount),
	)
	return Receipt{Op: op, Harvest: t.harvest, Settlement: t.settlement}, nil
}

func (t *tx) apply(cs Changeset) error {
	if cs.PurgedDownTo != nil {
		if _, err := t.l.log.DeleteHighest(*cs.PurgedDownTo); err != nil {
			return err
		}
	} else if err := t.l.log.Commit(t.log); err != nil {
		return err
	}
	if cs.Teardown {
		t.l.positions = map[AccountID]position.Position{}
	}
	for _, c := range cs.Positions {
		if c.Removed {
			delete(t.l.positions, c.Account)
			continue
		}
		t.l.positions[c.Account] = c.Position
	}
	t.l.pool = cs.Pool
	return nil
}

func sortedKeys[V any](m map[AccountID]V) []AccountID {
	keys := make([]AccountID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedAccounts(m map[AccountID]position.Position) []AccountID {
	return sortedKeys(m)
}
