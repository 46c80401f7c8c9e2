// Package model provides a deliberately simple, single-goroutine state
// model of stashtable's publicly observable behavior.
//
// The model is intentionally easy to audit: it favors clarity over
// performance and mirrors only what callers can observe — which slot a key
// lands in (allocation is deterministic: freed slots reuse LIFO, otherwise
// the frontier advances), capacity refusal, and the live contents.
package model

import "github.com/olliNiinivaara/stashtable/pkg/stashtable"

// Slot is one modeled storage cell.
type Slot[K comparable, V any] struct {
	Occupied bool
	Key      K
	Value    V
}

// Stash models one table.
type Stash[K comparable, V any] struct {
	Capacity int
	Slots    []Slot[K, V]
	Frontier int
	Freed    []int
}

// New returns an empty model of the given capacity.
func New[K comparable, V any](capacity int) *Stash[K, V] {
	return &Stash[K, V]{
		Capacity: capacity,
		Slots:    make([]Slot[K, V], capacity),
	}
}

// Clone makes a deep copy so tests can fork the exact same state.
func (m *Stash[K, V]) Clone() *Stash[K, V] {
	slots := make([]Slot[K, V], len(m.Slots))
	copy(slots, m.Slots)

	var freed []int
	if m.Freed != nil {
		freed = make([]int, len(m.Freed))
		copy(freed, m.Freed)
	}

	return &Stash[K, V]{
		Capacity: m.Capacity,
		Slots:    slots,
		Frontier: m.Frontier,
		Freed:    freed,
	}
}

// Len returns the number of live entries.
func (m *Stash[K, V]) Len() int {
	return m.Frontier - len(m.Freed)
}

// FindIndex returns the slot index holding key, or [stashtable.NotInStash].
func (m *Stash[K, V]) FindIndex(key K) stashtable.SlotRef {
	for i := 0; i < m.Frontier; i++ {
		if m.Slots[i].Occupied && m.Slots[i].Key == key {
			return stashtable.SlotRef(i)
		}
	}

	return stashtable.NotInStash
}

// Insert mirrors [stashtable.Stash.Insert].
func (m *Stash[K, V]) Insert(key K, value V) (stashtable.SlotRef, bool) {
	if ref := m.FindIndex(key); ref != stashtable.NotInStash {
		return ref, false
	}

	i, ok := m.reserve()
	if !ok {
		return stashtable.NotInStash, false
	}

	m.Slots[i] = Slot[K, V]{Occupied: true, Key: key, Value: value}

	return stashtable.SlotRef(i), true
}

// Upsert mirrors [stashtable.Stash.Upsert].
func (m *Stash[K, V]) Upsert(key K, value V) (stashtable.SlotRef, bool) {
	if ref := m.FindIndex(key); ref != stashtable.NotInStash {
		m.Slots[ref].Value = value

		return ref, false
	}

	i, ok := m.reserve()
	if !ok {
		return stashtable.NotInStash, false
	}

	m.Slots[i] = Slot[K, V]{Occupied: true, Key: key, Value: value}

	return stashtable.SlotRef(i), true
}

// Set mirrors [stashtable.Stash.Set].
func (m *Stash[K, V]) Set(key K, value V) {
	m.Upsert(key, value)
}

// Delete mirrors [stashtable.Stash.Delete], including the frontier-retreat
// versus stack-push split.
func (m *Stash[K, V]) Delete(key K) {
	ref := m.FindIndex(key)
	if ref == stashtable.NotInStash {
		return
	}

	i := int(ref)
	m.Slots[i] = Slot[K, V]{}

	if i == m.Frontier-1 {
		m.Frontier--
	} else {
		m.Freed = append(m.Freed, i)
	}
}

// Clear mirrors [stashtable.Stash.Clear].
func (m *Stash[K, V]) Clear() {
	for i := range m.Slots {
		m.Slots[i] = Slot[K, V]{}
	}

	m.Frontier = 0
	m.Freed = nil
}

// Get returns the value stored under key.
func (m *Stash[K, V]) Get(key K) (V, bool) {
	ref := m.FindIndex(key)
	if ref == stashtable.NotInStash {
		var zero V

		return zero, false
	}

	return m.Slots[ref].Value, true
}

// Keys returns the live keys mapped to their slots. The result is a map,
// so it carries no order.
func (m *Stash[K, V]) Keys() map[K]stashtable.SlotRef {
	out := make(map[K]stashtable.SlotRef)

	for i := 0; i < m.Frontier; i++ {
		if m.Slots[i].Occupied {
			out[m.Slots[i].Key] = stashtable.SlotRef(i)
		}
	}

	return out
}

func (m *Stash[K, V]) reserve() (int, bool) {
	if n := len(m.Freed); n > 0 {
		i := m.Freed[n-1]
		m.Freed = m.Freed[:n-1]

		return i, true
	}

	if m.Frontier < m.Capacity {
		i := m.Frontier
		m.Frontier++

		return i, true
	}

	return 0, false
}
