package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/fixedpoint"
	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/position"
	"github.com/roach88/compound/internal/sim"
)

func TestCommit_RoundTripsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	gf, err := fixedpoint.GrowthFactor(128, 1024)
	require.NoError(t, err)
	done := ledger.Changeset{
		Op:       ledger.OpRecord{ID: "op-1", Seq: 1, Kind: ledger.OpTrigger, Caller: "keeper", Round: 550},
		Pool:     createTestPool(),
		Appended: []harvestlog.Record{{Index: 1, GrowthFactor: gf, Round: 550, Realized: 128, StakeBefore: 1024}},
		Positions: []ledger.PositionChange{
			{Account: "alice", Position: position.Position{Stake: fixedpoint.FromInt(256)}},
			{Account: "bob", Position: position.Position{Stake: fixedpoint.FromInt(768), LastObserved: 1}},
		},
	}
	done.Pool.TotalStake = 1152
	done.Pool.StakerCount = 2
	done.Pool.HarvestCount = 1
	require.NoError(t, s.Commit(ctx, done))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, done.Pool, snap.Pool)
	assert.Equal(t, done.Appended, snap.Records)
	assert.Equal(t, map[ledger.AccountID]position.Position{
		"alice": {Stake: fixedpoint.FromInt(256)},
		"bob":   {Stake: fixedpoint.FromInt(768), LastObserved: 1},
	}, snap.Positions)
}

func TestCommit_RemovalsPurgeAndTeardown(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	p := createTestPool()
	p.HarvestCount = 3
	p.StakerCount = 2
	var records []harvestlog.Record
	for i := uint64(1); i <= 3; i++ {
		records = append(records, harvestlog.Record{Index: i, GrowthFactor: fixedpoint.One, Round: 100 + i, StakeBefore: 10})
	}
	require.NoError(t, s.Commit(ctx, ledger.Changeset{
		Op:       ledger.OpRecord{ID: "op-1", Seq: 1, Kind: ledger.OpCompoundNow},
		Pool:     p,
		Appended: records,
		Positions: []ledger.PositionChange{
			{Account: "alice", Position: position.New(0)},
			{Account: "bob", Position: position.New(0)},
		},
	}))

	p.StakerCount = 1
	downTo := uint64(1)
	p.HarvestCount = downTo
	require.NoError(t, s.Commit(ctx, ledger.Changeset{
		Op:           ledger.OpRecord{ID: "op-2", Seq: 2, Kind: ledger.OpPurge},
		Pool:         p,
		PurgedDownTo: &downTo,
		Positions:    []ledger.PositionChange{{Account: "bob", Removed: true}},
	}))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, uint64(1), snap.Records[0].Index)
	assert.Contains(t, snap.Positions, ledger.AccountID("alice"))
	assert.NotContains(t, snap.Positions, ledger.AccountID("bob"))

	p.Deleted = true
	p.StakerCount = 0
	p.HarvestCount = 0
	zero := uint64(0)
	require.NoError(t, s.Commit(ctx, ledger.Changeset{
		Op:           ledger.OpRecord{ID: "op-3", Seq: 3, Kind: ledger.OpDeletePool},
		Pool:         p,
		PurgedDownTo: &zero,
		Teardown:     true,
	}))

	snap, err = s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Pool.Deleted)
	assert.Empty(t, snap.Records)
	assert.Empty(t, snap.Positions)
}

func TestCommit_DuplicateRecordRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := harvestlog.Record{Index: 1, GrowthFactor: fixedpoint.One, StakeBefore: 1}
	p := createTestPool()
	p.HarvestCount = 1
	require.NoError(t, s.Commit(ctx, ledger.Changeset{
		Op: ledger.OpRecord{ID: "op-1", Seq: 1}, Pool: p, Appended: []harvestlog.Record{rec},
	}))

	p.HarvestCount = 2
	p.FeeBalance = 1
	err := s.Commit(ctx, ledger.Changeset{
		Op: ledger.OpRecord{ID: "op-2", Seq: 2}, Pool: p, Appended: []harvestlog.Record{rec},
	})
	require.Error(t, err)

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Pool.HarvestCount, "pool row must roll back with the failed insert")
	assert.Equal(t, uint64(100_000), snap.Pool.FeeBalance)

	ops, err := s.ReadOperations(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestCreatePool(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoPool)

	require.NoError(t, s.CreatePool(ctx, createTestPool()))
	err = s.CreatePool(ctx, createTestPool())
	assert.True(t, fault.HasCode(err, fault.CodeAlreadyExists))
}

func TestCommit_LargeValuesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	p := createTestPool()
	p.FeeBalance = ^uint64(0)
	p.Costs = fee.Costs{RecordWrite: 1, Claim: 2, Swap: 3, Stake: 4, Unstake: 5}
	require.NoError(t, s.Commit(ctx, ledger.Changeset{Op: ledger.OpRecord{ID: "op-1", Seq: 1}, Pool: p}))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), snap.Pool.FeeBalance)
	assert.Equal(t, p.Costs, snap.Pool.Costs)
}

func TestStore_PersistsLedgerAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pool.db")
	s, err := Open(path)
	require.NoError(t, err)

	src := sim.NewSource(0)
	s.TrackSource(src.State)
	cfg := ledger.Config{
		Admin: "admin", Variant: ledger.VariantDirect,
		StartRound: 100, EndRound: 1000, ClaimPeriodRounds: 100,
		BaseReserve: 100_000, Costs: fee.DefaultCosts(),
	}
	l, err := ledger.New(cfg, ledger.Deps{Source: src, Persister: s})
	require.NoError(t, err)
	require.NoError(t, s.CreatePool(ctx, l.Pool()))

	seq := uint64(0)
	call := func(who ledger.AccountID, round, escrow uint64) ledger.Call {
		seq++
		return ledger.Call{OpID: fmt.Sprintf("op-%d", seq), Seq: seq, Caller: who, Round: round, Escrow: escrow}
	}
	_, err = l.Setup(ctx, call("admin", 10, 100_000))
	require.NoError(t, err)
	_, err = l.Join(ctx, call("alice", 50, 0))
	require.NoError(t, err)
	_, err = l.Stake(ctx, call("alice", 50, 22_100), 1024)
	require.NoError(t, err)
	src.Queue(128)
	_, err = l.CompoundNow(ctx, call("alice", 200, 19_100))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	state, ok, err := reopened.LoadSource(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1152), state.Staked)

	restored, err := ledger.Restore(snap, ledger.Deps{Source: sim.RestoreSource(state), Persister: reopened})
	require.NoError(t, err)
	assert.Equal(t, l.Pool(), restored.Pool())
	units, _, err := restored.Balance("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1152), units)

	last, err := reopened.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), last)

	ops, err := reopened.ReadOperations(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, ledger.OpStake, ops[0].Kind)
	assert.Equal(t, uint64(1024), ops[0].Amount)
	assert.Equal(t, ledger.OpCompoundNow, ops[1].Kind)
}
