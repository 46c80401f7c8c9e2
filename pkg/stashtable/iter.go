package stashtable

// KeySeq is the iterator type returned by [Stash.Keys].
//
// It matches the shape of iter.Seq2[K, SlotRef] so callers can range over
// it directly; the package avoids depending on iter itself.
type KeySeq[K comparable] func(yield func(K, SlotRef) bool)

// Keys returns a sequence of (key, slot) pairs for the live entries.
//
// The walk takes no locks and is never blocked by writers. It observes a
// possibly inconsistent view: keys that never coexisted can both appear,
// a key deleted mid-walk can still be yielded, and a yielded key may be
// gone by the time it is used — re-verify through [Stash.WithFound].
// Enumeration order is slot order, which equals insertion order only if no
// deletion has ever recycled a slot.
func (s *Stash[K, V]) Keys() KeySeq[K] {
	return func(yield func(K, SlotRef) bool) {
		n := s.frontier.Load()
		for i := int32(0); i < n; i++ {
			sl := &s.slots[i]
			if sl.home.Load() == vacant {
				continue
			}

			if !yield(sl.key, SlotRef(i)) {
				return
			}
		}
	}
}
