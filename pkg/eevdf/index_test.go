package eevdf

import (
	"testing"

	"eevdf/pkg/eevdf/fixed"
)

func newTestEntity(id EntityID, deadline int64, seq uint64) *Entity {
	return &Entity{
		ID:      id,
		Weight:  1,
		Slice:   fixed.FromInt64(1),
		Request: Request{Deadline: fixed.FromInt64(deadline)},
		seq:     seq,
	}
}

func allEligible(*Entity) bool { return true }

func TestIndexImplementations(t *testing.T) {
	constructors := map[string]func() RequestIndex{
		"heap":  NewHeapIndex,
		"treap": NewTreapIndex,
	}

	for name, newIdx := range constructors {
		t.Run(name, func(t *testing.T) {
			idx := newIdx()

			e1 := newTestEntity(1, 10, 0)
			e2 := newTestEntity(2, 5, 1)
			e3 := newTestEntity(3, 5, 2)

			idx.Insert(e1)
			idx.Insert(e2)
			idx.Insert(e3)

			if idx.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", idx.Len())
			}

			got, ok := idx.PickEligibleMinDeadline(allEligible)
			if !ok || got.ID != 2 {
				t.Fatalf("PickEligibleMinDeadline = %v (ok=%v), want entity 2 (earliest seq at min deadline)", got, ok)
			}

			idx.Remove(2)
			if idx.Len() != 2 {
				t.Fatalf("Len() after remove = %d, want 2", idx.Len())
			}

			got, ok = idx.PickEligibleMinDeadline(allEligible)
			if !ok || got.ID != 3 {
				t.Fatalf("PickEligibleMinDeadline after remove = %v (ok=%v), want entity 3", got, ok)
			}
		})
	}
}

func TestIndexPicksFirstEligible(t *testing.T) {
	for name, newIdx := range map[string]func() RequestIndex{
		"heap":  NewHeapIndex,
		"treap": NewTreapIndex,
	} {
		t.Run(name, func(t *testing.T) {
			idx := newIdx()
			e1 := newTestEntity(1, 1, 0)
			e2 := newTestEntity(2, 2, 1)
			e3 := newTestEntity(3, 3, 2)
			idx.Insert(e1)
			idx.Insert(e2)
			idx.Insert(e3)

			eligible := func(e *Entity) bool { return e.ID != 1 && e.ID != 2 }

			got, ok := idx.PickEligibleMinDeadline(eligible)
			if !ok || got.ID != 3 {
				t.Fatalf("PickEligibleMinDeadline = %v (ok=%v), want entity 3", got, ok)
			}

			// All entries must still be present after the skip-and-restore scan.
			if idx.Len() != 3 {
				t.Fatalf("Len() after scan = %d, want 3 (scan must not drop entries)", idx.Len())
			}
		})
	}
}

func TestIndexEmptyReturnsNotOK(t *testing.T) {
	for name, newIdx := range map[string]func() RequestIndex{
		"heap":  NewHeapIndex,
		"treap": NewTreapIndex,
	} {
		t.Run(name, func(t *testing.T) {
			idx := newIdx()
			if _, ok := idx.PickEligibleMinDeadline(allEligible); ok {
				t.Fatal("PickEligibleMinDeadline on empty index returned ok=true")
			}
		})
	}
}
