package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fixedpoint"
	"github.com/roach88/compound/internal/harvestlog"
)

func logOf(t *testing.T, yields ...[2]uint64) *harvestlog.Log {
	t.Helper()
	l := harvestlog.New()
	for _, y := range yields {
		gf, err := fixedpoint.GrowthFactor(y[0], y[1])
		require.NoError(t, err)
		l.Append(harvestlog.Record{GrowthFactor: gf, Realized: y[0], StakeBefore: y[1]})
	}
	return l
}

func staked(t *testing.T, observed, amount uint64) Position {
	t.Helper()
	p := New(observed)
	require.NoError(t, p.Deposit(amount))
	return p
}

func TestCatchUp_TenPercentHarvest(t *testing.T) {
	l := logOf(t, [2]uint64{100, 1000})
	p := staked(t, 0, 200)

	require.NoError(t, p.CatchUp(l, 1))
	assert.Equal(t, uint64(1), p.LastObserved)
	assert.Equal(t, "219.999999999999", p.Stake.String())
	assert.Equal(t, uint64(219), p.Realizable())
}

func TestCatchUp_ExactGrowth(t *testing.T) {
	l := logOf(t, [2]uint64{128, 1024}, [2]uint64{128, 1024})
	p := staked(t, 0, 256)

	require.NoError(t, p.CatchUp(l, 2))
	// 256 * 1.125 * 1.125 = 324
	assert.Equal(t, uint64(324), p.Realizable())
	assert.Zero(t, p.Stake.Frac())
}

func TestCatchUp_MatchesStepwiseReplay(t *testing.T) {
	l := logOf(t,
		[2]uint64{7, 1000},
		[2]uint64{13, 333},
		[2]uint64{1, 3},
		[2]uint64{250, 999},
	)

	whole := staked(t, 0, 777)
	require.NoError(t, whole.CatchUp(l, l.Len()))

	stepwise := staked(t, 0, 777)
	for i := uint64(1); i <= l.Len(); i++ {
		require.NoError(t, stepwise.CatchUp(l, i))
	}

	manual := fixedpoint.FromInt(777)
	for i := uint64(1); i <= l.Len(); i++ {
		rec, err := l.Get(i)
		require.NoError(t, err)
		manual, err = manual.Mul(rec.GrowthFactor)
		require.NoError(t, err)
	}

	assert.Equal(t, 0, whole.Stake.Cmp(stepwise.Stake))
	assert.Equal(t, 0, whole.Stake.Cmp(manual))
}

func TestCatchUp_Idempotent(t *testing.T) {
	l := logOf(t, [2]uint64{100, 1000})
	p := staked(t, 0, 200)
	require.NoError(t, p.CatchUp(l, 1))
	before := p

	require.NoError(t, p.CatchUp(l, 1))
	assert.Equal(t, before, p)
}

func TestCatchUp_Rejections(t *testing.T) {
	l := logOf(t, [2]uint64{1, 10}, [2]uint64{1, 10})

	tests := []struct {
		name     string
		observed uint64
		through  uint64
		code     fault.Code
	}{
		{name: "backward", observed: 2, through: 1, code: fault.CodeCatchUpOutOfOrder},
		{name: "beyond log", observed: 0, through: 3, code: fault.CodeCatchUpBeyondAvailable},
		{name: "purged history", observed: 5, through: 5, code: fault.CodeHistoryPurged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := staked(t, tt.observed, 10)
			err := p.CatchUp(l, tt.through)
			require.Error(t, err)
			assert.True(t, fault.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.observed, p.LastObserved)
		})
	}
}

func TestCatchUp_Partial(t *testing.T) {
	l := logOf(t, [2]uint64{1, 10}, [2]uint64{1, 10}, [2]uint64{1, 10})
	p := staked(t, 0, 100)

	require.NoError(t, p.CatchUp(l, 1))
	assert.Equal(t, uint64(1), p.LastObserved)
	assert.Equal(t, "109.999999999999", p.Stake.String())
	assert.True(t, p.Stale(l.Len()))

	require.NoError(t, p.CatchUp(l, 3))
	assert.False(t, p.Stale(l.Len()))
}

func TestProject_DoesNotMutate(t *testing.T) {
	l := logOf(t, [2]uint64{128, 1024})
	p := staked(t, 0, 200)

	projected, err := p.Project(l)
	require.NoError(t, err)
	assert.Equal(t, uint64(225), projected.Floor())
	assert.Equal(t, uint64(0), p.LastObserved)
	assert.Equal(t, uint64(200), p.Realizable())
}

func TestNew_ObservesExistingHarvests(t *testing.T) {
	l := logOf(t, [2]uint64{1, 10}, [2]uint64{1, 10}, [2]uint64{1, 10}, [2]uint64{1, 10}, [2]uint64{1, 10})
	p := New(l.Len())
	assert.Equal(t, uint64(5), p.LastObserved)
	assert.False(t, p.Stale(l.Len()))

	require.NoError(t, p.Deposit(50))
	projected, err := p.Project(l)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), projected.Floor(), "a new joiner owes nothing for earlier harvests")
}

func TestFastForward(t *testing.T) {
	p := New(1)
	require.NoError(t, p.FastForward(4))
	assert.Equal(t, uint64(4), p.LastObserved)

	nonZero := staked(t, 1, 1)
	err := nonZero.FastForward(4)
	assert.True(t, fault.HasCode(err, fault.CodeMustCatchUpFirst))

	// Dust below one unit still counts as zero.
	dust := Position{Stake: fixedpoint.FromRaw(12345), LastObserved: 1}
	require.NoError(t, dust.FastForward(3))
	assert.Equal(t, uint64(3), dust.LastObserved)
}

func TestDebit(t *testing.T) {
	p := staked(t, 0, 10)

	err := p.Debit(11)
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodeInsufficientStake))

	require.NoError(t, p.Debit(4))
	assert.Equal(t, uint64(6), p.Realizable())
}

func TestDebit_KeepsDust(t *testing.T) {
	l := logOf(t, [2]uint64{1, 3})
	p := staked(t, 0, 3)
	require.NoError(t, p.CatchUp(l, 1))
	// 3 * (1 + 1/3 truncated) lands just below 4.
	require.Equal(t, uint64(3), p.Realizable())

	require.NoError(t, p.Debit(3))
	assert.Equal(t, uint64(0), p.Realizable())
	assert.False(t, p.Stake.IsZero(), "sub-unit dust stays in the position")
}
