// Package stashtable provides a fixed-capacity concurrent hash table whose
// values can be pinned and mutated in place while other goroutines keep
// inserting and deleting.
//
// A [Stash] stores key/value pairs in a flat array of capacity slots. Each
// slot carries its own lock, so a goroutine can hold one value for as long
// as it likes (including across blocking I/O) without stalling operations
// on other keys. A single structural lock serializes the mutations that
// rearrange the table: inserts, deletes, clears and bulk copies.
//
// # Basic Usage
//
//	s := stashtable.New[string, int](1024)
//
//	ref, inserted := s.Insert("a", 1)
//
//	// Read or mutate in place while the slot is pinned.
//	s.WithValue("a", func(v *int) { *v++ })
//
//	// Lock-free lookup; the result is advisory until re-verified.
//	ref = s.FindIndex("a")
//	s.WithFound("a", ref, func(v *int) { fmt.Println(*v) })
//
//	s.Delete("a")
//
// # Concurrency
//
// All methods are safe for concurrent use. Three levels exist:
//
//   - FindIndex and Keys take no locks at all. They read slot and bucket
//     metadata atomically and tolerate concurrent mutation; their results
//     are advisory and may be stale by the time they are used.
//   - WithFound and WithValue take exactly one slot lock. While the body
//     runs the slot is pinned: no other goroutine can delete, overwrite or
//     relocate it. The table's structural lock is not held, so unrelated
//     inserts and deletes proceed concurrently.
//   - Insert, Upsert, Set, Delete, Clear, AddAll and Len take the
//     structural lock (plus at most one slot lock per touched slot).
//
// # Caller Contract
//
// The value pointer passed to a scoped-access body is valid only for the
// duration of the call. Do not retain it.
//
// From inside a scoped-access body, do not open a second scoped access on
// a different key and do not call any structural operation (Insert, Upsert,
// Set, Delete, Clear, AddAll, Len) on the same table. Either acquires a
// lock above the one already held and will deadlock. These violations are
// not detected.
//
// Keys of any comparable type are accepted. FindIndex compares keys
// without holding the slot lock; a concurrently rewritten key may be
// observed torn, which is harmless because every lookup result is
// re-verified under the slot lock before the value is exposed.
//
// # Capacity
//
// Capacity is fixed at construction. When the table is full, Insert and
// Upsert return ([NotInStash], false) and AddAll returns false; the table
// stays fully usable and any Delete frees a slot for reuse. To grow,
// allocate a larger table, AddAll into it, and swap references at the
// application level.
package stashtable
