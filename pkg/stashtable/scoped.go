package stashtable

// WithFound runs body with the value stored at ref, if ref still holds key.
//
// The slot lock is acquired first and occupancy and key are re-verified, so
// a stale ref (the slot was deleted, or deleted and reused for another key)
// skips the body and returns false. While body runs the slot is pinned: no
// other goroutine can delete, overwrite or relocate it, and body may block
// for as long as it needs. The structural lock is not held, so operations
// on other slots proceed concurrently.
//
// The value pointer is valid only for the duration of the call. See the
// package documentation for the nesting prohibition.
func (s *Stash[K, V]) WithFound(key K, ref SlotRef, body func(value *V)) bool {
	if ref < 0 || int(ref) >= len(s.slots) {
		return false
	}

	sl := &s.slots[ref]
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.home.Load() == vacant || sl.key != key {
		return false
	}

	body(&sl.value)

	return true
}

// WithValue looks key up and runs body with its value pinned, combining
// [Stash.FindIndex] and [Stash.WithFound]. It returns whether body ran;
// false means the key was absent, either at lookup time or by the time the
// slot lock was acquired. Callers needing an else-branch test the result:
//
//	if !s.WithValue(k, func(v *int) { *v++ }) {
//	    // absent
//	}
func (s *Stash[K, V]) WithValue(key K, body func(value *V)) bool {
	return s.WithFound(key, s.FindIndex(key), body)
}
