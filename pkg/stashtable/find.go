package stashtable

// FindIndex returns the slot currently holding key, or [NotInStash].
//
// It never blocks: bucket metadata and slot fields are read without taking
// any lock. The returned ref is advisory — a concurrent Delete can
// invalidate it at any moment — so callers act on it only through
// [Stash.WithFound], which re-verifies under the slot lock. Comparing the
// result against [NotInStash] is the only way to distinguish "absent".
func (s *Stash[K, V]) FindIndex(key K) SlotRef {
	i := s.lookup(key, s.homeOf(key))
	if i < 0 {
		return NotInStash
	}

	return SlotRef(i)
}

// lookup probes bucket h for key and returns the slot index, or -1.
//
// The probe order is endpoints first, then a counted scan of the span
// interior: the member counter lets the scan stop as soon as every slot
// homed in h has been seen, even though members are physically interleaved
// with other buckets' slots.
//
// Safe to call with or without the structural lock. Without it the reads
// are racy by design: occupancy is loaded atomically, the key compare may
// see a torn value, and the result can be stale before it returns. Under
// the structural lock the result is exact, which is what the mutating
// operations rely on.
func (s *Stash[K, V]) lookup(key K, h int32) int32 {
	b := &s.buckets[h]

	n := b.count.Load()
	if n <= 0 {
		return -1
	}

	first := b.first.Load()
	if first < 0 || first >= int32(len(s.slots)) {
		// Metadata caught mid-update; the advisory contract allows a miss.
		return -1
	}

	if sl := &s.slots[first]; sl.home.Load() == h && sl.key == key {
		return first
	}

	last := b.last.Load()
	if last < 0 || last >= int32(len(s.slots)) {
		return -1
	}

	if sl := &s.slots[last]; sl.home.Load() == h && sl.key == key {
		return last
	}

	if n < 3 {
		return -1
	}

	// Both endpoints are members, so the interior holds n-2 more.
	seen := int32(2)

	for i := first + 1; i < last; i++ {
		sl := &s.slots[i]
		if sl.home.Load() != h {
			continue
		}

		if sl.key == key {
			return i
		}

		seen++
		if seen >= n {
			return -1
		}
	}

	return -1
}
