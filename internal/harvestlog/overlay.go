package harvestlog

import (
	"github.com/roach88/compound/internal/fault"
)

// Overlay stages appends on top of a base log. Staged records are visible
// through the overlay immediately but reach the base log only on Commit,
// which lets an operation that fails midway discard its appends.
type Overlay struct {
	base    *Log
	baseLen uint64
	pending []Record
}

// Overlay starts a staging view over l.
func (l *Log) Overlay() *Overlay {
	return &Overlay{base: l, baseLen: l.Len()}
}

// Len returns the highest index visible through the overlay.
func (o *Overlay) Len() uint64 {
	return o.baseLen + uint64(len(o.pending))
}

// Append stages r at the next index and returns it.
func (o *Overlay) Append(r Record) uint64 {
	r.Index = o.Len() + 1
	o.pending = append(o.pending, r)
	return r.Index
}

// Get returns a base or staged record.
func (o *Overlay) Get(index uint64) (Record, error) {
	if index > o.baseLen && index <= o.Len() {
		return o.pending[index-o.baseLen-1], nil
	}
	if index > o.Len() {
		return Record{}, fault.New(fault.CodeNotFound, "harvest record %d not retained", index).
			With("index", index).
			With("highest", o.Len())
	}
	return o.base.Get(index)
}

// Pending returns the staged records in index order.
func (o *Overlay) Pending() []Record {
	out := make([]Record, len(o.pending))
	copy(out, o.pending)
	return out
}

// Commit appends the overlay's staged records to l.
// It fails if l changed since the overlay was created.
func (l *Log) Commit(o *Overlay) error {
	if o.base != l || l.Len() != o.baseLen {
		return fault.New(fault.CodePrecondInvalid, "harvest log moved from %d to %d under a staged overlay", o.baseLen, l.Len())
	}
	l.records = append(l.records, o.pending...)
	o.baseLen = l.Len()
	o.pending = nil
	return nil
}
