package testutil

import (
	"hash/maphash"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/olliNiinivaara/stashtable/pkg/stashtable"
	"github.com/olliNiinivaara/stashtable/pkg/stashtable/model"
)

// Harness wires together a real table and the reference model.
//
// This is intentionally small: it applies each op to both sides, checks
// that the returned refs/flags agree, and can compare the full observable
// state on demand. Because allocation is deterministic (LIFO reuse, then
// the frontier), the model predicts exact slot indices, not just contents.
type Harness struct {
	TB    testing.TB
	Real  *stashtable.Stash[string, int]
	Model *model.Stash[string, int]
}

// NewHarness creates a harness around a fresh table of the given capacity.
func NewHarness(tb testing.TB, capacity int) *Harness {
	tb.Helper()

	return &Harness{
		TB:    tb,
		Real:  stashtable.NewSeeded[string, int](capacity, maphash.MakeSeed()),
		Model: model.New[string, int](capacity),
	}
}

// Apply runs op against the real table and the model and fails the test if
// the observable results diverge.
func (h *Harness) Apply(op Op) {
	h.TB.Helper()

	switch op.Kind {
	case OpInsert:
		gotRef, gotIns := h.Real.Insert(op.Key, op.Value)
		wantRef, wantIns := h.Model.Insert(op.Key, op.Value)
		h.checkRef(op, gotRef, wantRef)

		if gotIns != wantIns {
			h.TB.Fatalf("%v: inserted=%v, model says %v", op, gotIns, wantIns)
		}
	case OpUpsert:
		gotRef, gotIns := h.Real.Upsert(op.Key, op.Value)
		wantRef, wantIns := h.Model.Upsert(op.Key, op.Value)
		h.checkRef(op, gotRef, wantRef)

		if gotIns != wantIns {
			h.TB.Fatalf("%v: inserted=%v, model says %v", op, gotIns, wantIns)
		}
	case OpSet:
		h.Real.Set(op.Key, op.Value)
		h.Model.Set(op.Key, op.Value)
	case OpDelete:
		h.Real.Delete(op.Key)
		h.Model.Delete(op.Key)
	case OpFind:
		h.checkRef(op, h.Real.FindIndex(op.Key), h.Model.FindIndex(op.Key))
	case OpLen:
		if got, want := h.Real.Len(), h.Model.Len(); got != want {
			h.TB.Fatalf("Len() = %d, model says %d", got, want)
		}
	case OpClear:
		h.Real.Clear()
		h.Model.Clear()
	default:
		h.TB.Fatalf("unknown op kind %d", op.Kind)
	}
}

// CompareState diffs the full observable state: live keys with their slot
// assignments and values, plus the live count.
func (h *Harness) CompareState() {
	h.TB.Helper()

	type entry struct {
		Ref   stashtable.SlotRef
		Value int
	}

	got := make(map[string]entry)

	for key, ref := range h.Real.Keys() {
		e := entry{Ref: ref}

		if !h.Real.WithFound(key, ref, func(v *int) { e.Value = *v }) {
			h.TB.Fatalf("Keys() yielded (%q, %v) but WithFound rejected it on a quiescent table", key, ref)
		}

		got[key] = e
	}

	want := make(map[string]entry)
	for key, ref := range h.Model.Keys() {
		value, _ := h.Model.Get(key)
		want[key] = entry{Ref: ref, Value: value}
	}

	if diff := cmp.Diff(want, got); diff != "" {
		h.TB.Fatalf("table state diverged from model (-model +real):\n%s", diff)
	}

	if got, want := h.Real.Len(), h.Model.Len(); got != want {
		h.TB.Fatalf("Len() = %d, model says %d", got, want)
	}
}

func (h *Harness) checkRef(op Op, got, want stashtable.SlotRef) {
	h.TB.Helper()

	if got != want {
		h.TB.Fatalf("%v: ref %v, model says %v", op, got, want)
	}
}
