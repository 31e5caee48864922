package harvestlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fixedpoint"
)

func growth(t *testing.T, realized, before uint64) fixedpoint.Value {
	t.Helper()
	gf, err := fixedpoint.GrowthFactor(realized, before)
	require.NoError(t, err)
	return gf
}

func TestLog_AppendAssignsDenseIndices(t *testing.T) {
	l := New()
	assert.Equal(t, uint64(0), l.Len())

	for want := uint64(1); want <= 3; want++ {
		got := l.Append(Record{Index: 99, GrowthFactor: growth(t, want, 100)})
		assert.Equal(t, want, got)
	}
	assert.Equal(t, uint64(3), l.Len())

	r, err := l.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.Index)
	assert.Equal(t, growth(t, 2, 100), r.GrowthFactor)
}

func TestLog_GetOutOfRange(t *testing.T) {
	l := New()
	l.Append(Record{GrowthFactor: fixedpoint.One})

	for _, idx := range []uint64{0, 2, 100} {
		_, err := l.Get(idx)
		require.Error(t, err)
		assert.True(t, fault.HasCode(err, fault.CodeNotFound), "index %d", idx)
	}
}

func TestLog_DeleteHighest(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		l.Append(Record{GrowthFactor: fixedpoint.One})
	}

	removed, err := l.DeleteHighest(2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 4, 3}, removed)
	assert.Equal(t, uint64(2), l.Len())

	_, err = l.Get(3)
	assert.True(t, fault.HasCode(err, fault.CodeNotFound))

	// Deleting down to the current head is a no-op.
	removed, err = l.DeleteHighest(2)
	require.NoError(t, err)
	assert.Empty(t, removed)

	// Appends resume densely after a purge.
	assert.Equal(t, uint64(3), l.Append(Record{GrowthFactor: fixedpoint.One}))
}

func TestLog_DeleteHighest_AboveHead(t *testing.T) {
	l := New()
	l.Append(Record{GrowthFactor: fixedpoint.One})

	_, err := l.DeleteHighest(4)
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodePrecondInvalid))
	assert.Equal(t, uint64(1), l.Len())
}

func TestLog_DeleteAll(t *testing.T) {
	l := New()
	l.Append(Record{GrowthFactor: fixedpoint.One})
	l.Append(Record{GrowthFactor: fixedpoint.One})

	removed, err := l.DeleteHighest(0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1}, removed)
	assert.Equal(t, uint64(0), l.Len())
}

func TestLoad_RejectsGaps(t *testing.T) {
	_, err := Load([]Record{{Index: 1}, {Index: 3}})
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodePrecondInvalid))

	l, err := Load([]Record{{Index: 1}, {Index: 2}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), l.Len())
}

func TestLog_Range(t *testing.T) {
	l := New()
	for i := 0; i < 4; i++ {
		l.Append(Record{GrowthFactor: fixedpoint.One})
	}

	got := l.Range(2, 3)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Index)
	assert.Equal(t, uint64(3), got[1].Index)

	assert.Len(t, l.Range(0, 100), 4)
	assert.Empty(t, l.Range(5, 9))
}

func TestOverlay_StagesUntilCommit(t *testing.T) {
	l := New()
	l.Append(Record{GrowthFactor: growth(t, 1, 10)})

	o := l.Overlay()
	idx := o.Append(Record{GrowthFactor: growth(t, 2, 10)})
	assert.Equal(t, uint64(2), idx)
	assert.Equal(t, uint64(2), o.Len())
	assert.Equal(t, uint64(1), l.Len(), "base log unchanged before commit")

	staged, err := o.Get(2)
	require.NoError(t, err)
	assert.Equal(t, growth(t, 2, 10), staged.GrowthFactor)

	base, err := o.Get(1)
	require.NoError(t, err)
	assert.Equal(t, growth(t, 1, 10), base.GrowthFactor)

	_, err = o.Get(3)
	assert.True(t, fault.HasCode(err, fault.CodeNotFound))

	require.NoError(t, l.Commit(o))
	assert.Equal(t, uint64(2), l.Len())
	assert.Empty(t, o.Pending())
}

func TestOverlay_DiscardedOnFailure(t *testing.T) {
	l := New()
	o := l.Overlay()
	o.Append(Record{GrowthFactor: fixedpoint.One})
	assert.Len(t, o.Pending(), 1)
	// Dropping the overlay leaves the log untouched.
	assert.Equal(t, uint64(0), l.Len())
}

func TestOverlay_CommitRejectsMovedBase(t *testing.T) {
	l := New()
	o := l.Overlay()
	o.Append(Record{GrowthFactor: fixedpoint.One})

	l.Append(Record{GrowthFactor: fixedpoint.One})

	err := l.Commit(o)
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodePrecondInvalid))
	assert.Equal(t, uint64(1), l.Len())
}
