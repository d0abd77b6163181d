package shardedrq

import (
	"testing"

	"eevdf/pkg/eevdf"
	"eevdf/pkg/eevdf/fixed"
)

func newTestRegistry(t *testing.T, n int) *Registry {
	t.Helper()
	return New(n, func(label string) *eevdf.RunQueue {
		return eevdf.NewRunQueue(eevdf.VariantWeighted, eevdf.DefaultOptions(), eevdf.NewHeapIndex())
	})
}

func TestRouteIsStableAcrossCalls(t *testing.T) {
	reg := newTestRegistry(t, 4)
	for id := eevdf.EntityID(0); id < 200; id++ {
		first := reg.Route(id)
		second := reg.Route(id)
		if first != second {
			t.Fatalf("Route(%d) not stable: %d then %d", id, first, second)
		}
	}
}

func TestRouteSpreadsAcrossShards(t *testing.T) {
	reg := newTestRegistry(t, 4)
	counts := make(map[int]int)
	for id := eevdf.EntityID(0); id < 400; id++ {
		counts[reg.Route(id)]++
	}
	if len(counts) != 4 {
		t.Fatalf("expected entities to land on all 4 shards, got %d distinct shards: %v", len(counts), counts)
	}
}

func TestRunQueueForRoutesToTheSameShardAsRoute(t *testing.T) {
	reg := newTestRegistry(t, 3)
	id := eevdf.EntityID(42)
	want := reg.Shard(reg.Route(id)).RQ
	got := reg.RunQueueFor(id)
	if got != want {
		t.Errorf("RunQueueFor returned a different RunQueue than Shard(Route(id))")
	}
}

// TestAddMostlyPreservesExistingRouting checks the defining property of
// rendezvous hashing: adding a shard only moves a minority of keys, it does
// not reshuffle the whole population the way a modulo scheme would.
func TestAddMostlyPreservesExistingRouting(t *testing.T) {
	reg := newTestRegistry(t, 4)

	const population = 1000
	before := make(map[eevdf.EntityID]int, population)
	for id := eevdf.EntityID(0); id < population; id++ {
		before[id] = reg.Route(id)
	}

	reg.Add(func(label string) *eevdf.RunQueue {
		return eevdf.NewRunQueue(eevdf.VariantWeighted, eevdf.DefaultOptions(), eevdf.NewHeapIndex())
	})

	moved := 0
	for id, oldShard := range before {
		if reg.Route(id) != oldShard {
			moved++
		}
	}

	// Adding a 5th shard to 4 should move roughly 1/5 of keys, not all of
	// them; tolerate generous slack since FNV over 1000 keys is not
	// perfectly uniform.
	if moved == 0 || moved > population/2 {
		t.Errorf("Add moved %d/%d keys, want a minority (roughly population/5)", moved, population)
	}
}

func TestPlaceOnRoutedShardIsReachableByPick(t *testing.T) {
	reg := newTestRegistry(t, 2)

	e, err := eevdf.NewEntity(7, 1024, fixed.FromInt64(1000))
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	rq := reg.RunQueueFor(e.ID)
	if err := rq.Place(e, fixed.Zero); err != nil {
		t.Fatalf("Place: %v", err)
	}

	picked, err := rq.Pick()
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if picked != e.ID {
		t.Errorf("Pick() = %d, want %d", picked, e.ID)
	}
}

func TestLenReportsShardCount(t *testing.T) {
	reg := newTestRegistry(t, 6)
	if got := reg.Len(); got != 6 {
		t.Errorf("Len() = %d, want 6", got)
	}
}

func TestForEachVisitsAllShardsInOrder(t *testing.T) {
	reg := newTestRegistry(t, 3)
	var seen []string
	reg.ForEach(func(i int, s *Shard) {
		seen = append(seen, s.Label)
	})
	want := []string{"0", "1", "2"}
	if len(seen) != len(want) {
		t.Fatalf("ForEach visited %d shards, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("ForEach order[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
}
