// Package harvestlog implements the append-only, densely indexed log of
// harvest growth factors.
//
// Record i (1-based) holds the multiplicative growth one unit of stake gained
// from the i-th harvest. Accounts replay the records they have not observed
// yet, so a harvest costs O(1) regardless of how many accounts exist, and an
// account's catch-up costs O(records missed).
//
// Indices are dense: the log always holds exactly the records 1..Len().
// Records are only ever removed from the top, so no gap can appear.
package harvestlog

import (
	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fixedpoint"
)

// Record is one harvest event. It is immutable once appended.
type Record struct {
	// Index is the 1-based position in the log.
	Index uint64

	// GrowthFactor is 1 + Realized/StakeBefore.
	GrowthFactor fixedpoint.Value

	// Round is the round the harvest committed in.
	Round uint64

	// Realized is the stake increase credited by the harvest (after conversion).
	Realized uint64

	// StakeBefore is the pool's total stake the factor was computed against.
	StakeBefore uint64
}

// Reader is the read side consumed by catch-up.
type Reader interface {
	// Len returns the highest retained index (0 when empty).
	Len() uint64

	// Get returns the record at index or a NotFound fault.
	Get(index uint64) (Record, error)
}

// Log is an arena of records indexed by a monotonically increasing counter.
// Log is not safe for concurrent mutation; the ledger serializes access.
type Log struct {
	records []Record
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Load rebuilds a log from persisted records, which must be dense from 1.
func Load(records []Record) (*Log, error) {
	l := &Log{records: make([]Record, 0, len(records))}
	for i, r := range records {
		want := uint64(i + 1)
		if r.Index != want {
			return nil, fault.New(fault.CodePrecondInvalid, "harvest log has a gap: found index %d at position %d", r.Index, want)
		}
		l.records = append(l.records, r)
	}
	return l, nil
}

// Len returns the highest retained index.
func (l *Log) Len() uint64 {
	return uint64(len(l.records))
}

// Append assigns the next sequential index to r, stores it, and returns the index.
// Any Index already set on r is overwritten.
func (l *Log) Append(r Record) uint64 {
	r.Index = l.Len() + 1
	l.records = append(l.records, r)
	return r.Index
}

// Get returns the record at index.
func (l *Log) Get(index uint64) (Record, error) {
	if index == 0 || index > l.Len() {
		return Record{}, fault.New(fault.CodeNotFound, "harvest record %d not retained", index).
			With("index", index).
			With("highest", l.Len())
	}
	return l.records[index-1], nil
}

// Range returns a copy of records in [from, to], clamped to the retained range.
func (l *Log) Range(from, to uint64) []Record {
	if from == 0 {
		from = 1
	}
	if to > l.Len() {
		to = l.Len()
	}
	if from > to {
		return []Record{}
	}
	out := make([]Record, to-from+1)
	copy(out, l.records[from-1:to])
	return out
}

// DeleteHighest removes every record with index in (downToExclusive, Len()],
// highest first. It returns the removed indices in deletion order.
func (l *Log) DeleteHighest(downToExclusive uint64) ([]uint64, error) {
	if downToExclusive > l.Len() {
		return nil, fault.New(fault.CodePrecondInvalid, "cannot delete down to %d above highest record %d", downToExclusive, l.Len())
	}
	removed := make([]uint64, 0, l.Len()-downToExclusive)
	for idx := l.Len(); idx > downToExclusive; idx-- {
		removed = append(removed, idx)
		l.records[idx-1] = Record{}
	}
	l.records = l.records[:downToExclusive]
	return removed, nil
}
