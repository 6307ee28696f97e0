// Package rreg contains the indexed subscriber registry
// shared by hubs and cells.
//
// Subscribers live in an arena of slots.
// A bitset tracks which slots are active,
// and freed slots are reused by later additions.
// Snapshots copy the active entries out of the arena,
// so callers can iterate them after releasing their lock.
//
// Registry is not safe for concurrent use;
// owners guard it with their own mutex.
package rreg

import (
	"iter"

	"github.com/bits-and-blooms/bitset"
)

// Registry is an arena of entries of type E,
// addressed by a stable slot index.
type Registry[E any] struct {
	slots  []E
	active *bitset.BitSet
	n      int
}

// New returns an empty registry
// with room for sizeHint entries before growing.
func New[E any](sizeHint uint) *Registry[E] {
	return &Registry[E]{
		slots:  make([]E, 0, sizeHint),
		active: bitset.New(sizeHint),
	}
}

// Add stores e in the lowest free slot and returns that slot's index.
func (r *Registry[E]) Add(e E) uint {
	idx, ok := r.active.NextClear(0)
	if !ok || idx >= uint(len(r.slots)) {
		idx = uint(len(r.slots))
		r.slots = append(r.slots, e)
	} else {
		r.slots[idx] = e
	}

	r.active.Set(idx)
	r.n++
	return idx
}

// Remove frees the slot at idx.
// It reports whether the slot had been active.
func (r *Registry[E]) Remove(idx uint) bool {
	if !r.active.Test(idx) {
		return false
	}

	r.active.Clear(idx)

	// Drop the reference so the entry can be collected.
	var zero E
	r.slots[idx] = zero

	r.n--
	return true
}

// Get returns the entry at idx, if that slot is active.
func (r *Registry[E]) Get(idx uint) (E, bool) {
	if !r.active.Test(idx) {
		var zero E
		return zero, false
	}
	return r.slots[idx], true
}

// Len returns the number of active entries.
func (r *Registry[E]) Len() int {
	return r.n
}

// Snapshot appends the active entries to dst, in slot order,
// and returns the extended slice.
// The returned entries are independent of later Add or Remove calls.
func (r *Registry[E]) Snapshot(dst []E) []E {
	for idx := range r.All() {
		dst = append(dst, r.slots[idx])
	}
	return dst
}

// All iterates the indices of active slots in increasing order.
func (r *Registry[E]) All() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		for idx, ok := r.active.NextSet(0); ok; idx, ok = r.active.NextSet(idx + 1) {
			if !yield(idx) {
				return
			}
		}
	}
}

// Clear removes every entry, returning them in slot order.
func (r *Registry[E]) Clear() []E {
	out := r.Snapshot(nil)

	clear(r.slots)
	r.slots = r.slots[:0]
	r.active.ClearAll()
	r.n = 0

	return out
}
