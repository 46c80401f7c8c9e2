package stashtable_test

import (
	"flag"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/olliNiinivaara/stashtable/pkg/stashtable"
)

// Duration for stress-style concurrency tests.
// Override via: go test ./pkg/stashtable -stashtable.concurrency-stress=10s.
var flagConcurrencyStress = flag.Duration("stashtable.concurrency-stress", 1*time.Second, "duration for stashtable concurrency stress tests")

func Test_Concurrent_Distinct_Key_Inserts_All_Land(t *testing.T) {
	t.Parallel()

	const (
		perWriter = 10_000
		writers   = 2
	)

	s := stashtable.New[string, int](32_768)

	var wg sync.WaitGroup

	wg.Add(writers)

	for w := range writers {
		go func() {
			defer wg.Done()

			for i := range perWriter {
				key := fmt.Sprintf("w%d-%d", w, i)

				if _, inserted := s.Insert(key, w*perWriter+i); !inserted {
					t.Errorf("Insert(%q) refused with capacity to spare", key)

					return
				}
			}
		}()
	}

	wg.Wait()

	if got := s.Len(); got != writers*perWriter {
		t.Fatalf("Len() = %d, want %d", got, writers*perWriter)
	}

	for w := range writers {
		for i := range perWriter {
			key := fmt.Sprintf("w%d-%d", w, i)
			want := w*perWriter + i

			var got int

			if !s.WithValue(key, func(v *int) { got = *v }) {
				t.Fatalf("key %q missing after join", key)
			}

			if got != want {
				t.Fatalf("value of %q = %d, want %d", key, got, want)
			}
		}
	}

	if err := s.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func Test_Pinned_Slot_Does_Not_Block_Operations_On_Other_Keys(t *testing.T) {
	t.Parallel()

	s := stashtable.New[string, int](1024)
	s.Insert("pinned", 0)

	inBody := make(chan struct{})
	release := make(chan struct{})
	holderDone := make(chan struct{})

	go func() {
		defer close(holderDone)

		s.WithValue("pinned", func(v *int) {
			close(inBody)
			// Simulate long-running work on the pinned value; the slot
			// stays locked until release.
			<-release
			*v = 1
		})
	}()

	<-inBody

	// While the slot is pinned, a full insert/find/delete cycle on other
	// keys must run to completion without waiting on the holder.
	otherDone := make(chan struct{})

	go func() {
		defer close(otherDone)

		for i := range 500 {
			key := fmt.Sprintf("other-%d", i)
			s.Insert(key, i)

			if s.FindIndex(key) == stashtable.NotInStash {
				t.Errorf("FindIndex(%q) missed a just-inserted key", key)

				return
			}

			s.Delete(key)
		}
	}()

	select {
	case <-otherDone:
	case <-time.After(5 * time.Second):
		t.Fatal("operations on other keys blocked behind a pinned slot")
	}

	close(release)
	<-holderDone

	var got int

	s.WithValue("pinned", func(v *int) { got = *v })

	if got != 1 {
		t.Fatalf("pinned value = %d, want 1", got)
	}
}

func Test_Lockfree_Readers_Survive_Concurrent_Churn(t *testing.T) {
	t.Parallel()

	duration := *flagConcurrencyStress
	if testing.Short() {
		duration = 100 * time.Millisecond
	}

	const keySpace = 128

	// Each key's value is derived from the key, so any pinned read must
	// observe exactly the derived value no matter which writer stored it.
	valueOf := func(i int) int { return i * 31 }

	s := stashtable.New[int, int](256)

	stop := make(chan struct{})

	var wg sync.WaitGroup

	// Churning writers.
	for w := range 2 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			i := w

			for {
				select {
				case <-stop:
					return
				default:
				}

				k := i % keySpace
				s.Upsert(k, valueOf(k))
				s.Delete((i + keySpace/2) % keySpace)

				i++
			}
		}()
	}

	// Lock-free readers re-verifying through WithFound.
	for range 2 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			i := 0

			for {
				select {
				case <-stop:
					return
				default:
				}

				k := i % keySpace

				ref := s.FindIndex(k)
				s.WithFound(k, ref, func(v *int) {
					if *v != valueOf(k) {
						t.Errorf("pinned read of key %d saw %d, want %d", k, *v, valueOf(k))
					}
				})

				i++
			}
		}()
	}

	// Lock-free iteration alongside the churn.
	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case <-stop:
				return
			default:
			}

			for k, ref := range s.Keys() {
				s.WithFound(k, ref, func(v *int) {
					if *v != valueOf(k) {
						t.Errorf("iterated read of key %d saw %d, want %d", k, *v, valueOf(k))
					}
				})
			}
		}
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	if err := s.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func Test_Concurrent_AddAll_In_Both_Directions_Does_Not_Deadlock(t *testing.T) {
	t.Parallel()

	a := stashtable.New[string, int](512)
	b := stashtable.New[string, int](512)

	for i := range 128 {
		a.Insert(fmt.Sprintf("a-%d", i), i)
		b.Insert(fmt.Sprintf("b-%d", i), i)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		var wg sync.WaitGroup

		wg.Add(2)

		go func() {
			defer wg.Done()

			for range 50 {
				a.AddAll(b, true)
			}
		}()

		go func() {
			defer wg.Done()

			for range 50 {
				b.AddAll(a, true)
			}
		}()

		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposite-direction AddAll calls deadlocked")
	}

	if err := a.CheckInvariants(); err != nil {
		t.Fatal(err)
	}

	if err := b.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}
