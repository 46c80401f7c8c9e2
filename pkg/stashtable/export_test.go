package stashtable

import "fmt"

// Test-only views of internal state, following the export_test pattern so
// the external test package can assert on bucket spans and allocation
// bookkeeping without widening the public API.

// BucketState is a snapshot of one bucket directory entry.
type BucketState struct {
	Count int32
	First int32
	Last  int32
}

// Vacant is the internal sentinel, exported for test assertions.
const Vacant = vacant

// BucketOf returns the bucket id key hashes to.
func (s *Stash[K, V]) BucketOf(key K) int32 {
	return s.homeOf(key)
}

// BucketState returns the current state of bucket h.
func (s *Stash[K, V]) BucketState(h int32) BucketState {
	b := &s.buckets[h]

	return BucketState{
		Count: b.count.Load(),
		First: b.first.Load(),
		Last:  b.last.Load(),
	}
}

// FrontierIndex returns the allocation frontier.
func (s *Stash[K, V]) FrontierIndex() int32 {
	return s.frontier.Load()
}

// FreedLen returns the depth of the deletion stack.
func (s *Stash[K, V]) FreedLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.freed)
}

// CheckInvariants verifies the structural invariants of a quiescent table:
// span bracketing, the live-count accounting identity, key uniqueness, and
// the vacancy rules for the frontier and the deletion stack.
func (s *Stash[K, V]) CheckInvariants() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frontier := s.frontier.Load()

	freed := make(map[int32]bool, len(s.freed))
	for _, i := range s.freed {
		if freed[i] {
			return fmt.Errorf("slot %d on deletion stack twice", i)
		}

		freed[i] = true

		if i >= frontier {
			return fmt.Errorf("freed slot %d at or beyond frontier %d", i, frontier)
		}

		if s.slots[i].home.Load() != vacant {
			return fmt.Errorf("freed slot %d is occupied", i)
		}
	}

	live := 0
	seen := make(map[K]int32)
	perBucket := make(map[int32]int32)

	for i := range s.slots {
		h := s.slots[i].home.Load()

		if int32(i) >= frontier {
			if h != vacant {
				return fmt.Errorf("slot %d beyond frontier %d is occupied", i, frontier)
			}

			continue
		}

		if h == vacant {
			if !freed[int32(i)] {
				return fmt.Errorf("vacant slot %d below frontier is not on the deletion stack", i)
			}

			continue
		}

		if h < 0 || int(h) >= len(s.buckets) {
			return fmt.Errorf("slot %d has invalid bucket id %d", i, h)
		}

		if prev, dup := seen[s.slots[i].key]; dup {
			return fmt.Errorf("key of slot %d already present at slot %d", i, prev)
		}

		seen[s.slots[i].key] = int32(i)
		perBucket[h]++
		live++

		b := &s.buckets[h]
		first := b.first.Load()
		last := b.last.Load()

		if last == vacant {
			last = first
		}

		if int32(i) < first || int32(i) > last {
			return fmt.Errorf("slot %d outside bucket %d span [%d, %d]", i, h, first, last)
		}
	}

	if want := int(frontier) - len(s.freed); live != want {
		return fmt.Errorf("live count %d != frontier %d - freed %d", live, frontier, len(s.freed))
	}

	for h := range s.buckets {
		if got, want := s.buckets[h].count.Load(), perBucket[int32(h)]; got != want {
			return fmt.Errorf("bucket %d count %d, occupied slots %d", h, got, want)
		}
	}

	return nil
}
