package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_RateAndQueue(t *testing.T) {
	ctx := context.Background()
	s := NewSource(1000) // 10% per claim

	require.NoError(t, s.StakeMore(ctx, 1000))
	got, err := s.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got)

	s.Queue(7, 0)
	got, err = s.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)
	got, err = s.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	assert.Equal(t, uint64(107), s.State().TotalClaimed)
}

func TestSource_Unstake(t *testing.T) {
	ctx := context.Background()
	s := NewSource(0)
	require.NoError(t, s.StakeMore(ctx, 50))
	require.NoError(t, s.Unstake(ctx, 20))
	assert.Equal(t, uint64(30), s.State().Staked)
	assert.Error(t, s.Unstake(ctx, 31))
}

func TestSource_FailNext(t *testing.T) {
	ctx := context.Background()
	s := NewSource(0)
	s.FailNext("stake")
	assert.ErrorIs(t, s.StakeMore(ctx, 1), ErrInjected)
	require.NoError(t, s.StakeMore(ctx, 1), "only the next call fails")
}

func TestSource_RestoreCopiesQueue(t *testing.T) {
	state := SourceState{Staked: 10, RateBPS: 5, Pending: []uint64{1, 2}}
	s := RestoreSource(state)
	state.Pending[0] = 99

	got, err := s.Claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
	assert.Equal(t, []uint64{2}, s.State().Pending)
}

func TestVenue(t *testing.T) {
	ctx := context.Background()
	v := NewVenue(5000)
	out, err := v.SingleSidedDeposit(ctx, "REWARD", 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), out)
	assert.Equal(t, 1, v.Swaps())

	v.FailNext()
	_, err = v.SingleSidedDeposit(ctx, "REWARD", 300)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 1, v.Swaps())
}

func TestSource_CheckpointRestores(t *testing.T) {
	ctx := context.Background()
	s := NewSource(0)
	require.NoError(t, s.StakeMore(ctx, 100))
	s.Queue(40)
	before := s.State()

	restore := s.Checkpoint()
	_, err := s.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, s.StakeMore(ctx, 40))
	s.FailNext("unstake")
	assert.ErrorIs(t, s.Unstake(ctx, 10), ErrInjected)
	restore()

	assert.Equal(t, before, s.State())
	got, err := s.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), got, "restored claim is paid again")
	require.NoError(t, s.Unstake(ctx, 10), "consumed failure stays consumed")
}

func TestVenue_CheckpointRestores(t *testing.T) {
	ctx := context.Background()
	v := NewVenue(5000)
	restore := v.Checkpoint()
	_, err := v.SingleSidedDeposit(ctx, "REWARD", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Swaps())
	restore()
	assert.Equal(t, 0, v.Swaps())
}
