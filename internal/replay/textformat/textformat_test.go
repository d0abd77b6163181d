package textformat

import (
	"strings"
	"testing"

	"eevdf/internal/replay"
)

func TestParseLineUpdateCurr(t *testing.T) {
	line := "update_curr 7: delta exec: 4000000, vruntime: 123"
	ev, ok, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if !ok {
		t.Fatalf("ParseLine did not recognize an update_curr line")
	}
	if ev.Kind != replay.EventTick {
		t.Errorf("Kind = %v, want EventTick", ev.Kind)
	}
	if ev.PID != 7 {
		t.Errorf("PID = %d, want 7", ev.PID)
	}
	if ev.Delta.Int64() != 4000000 {
		t.Errorf("Delta = %d, want 4000000", ev.Delta.Int64())
	}
}

func TestParseLinePickNextEntity(t *testing.T) {
	line := "pick_next_entity new_curr: 12 deadline: 99"
	ev, ok, err := ParseLine(line)
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if ev.Kind != replay.EventPick || ev.NewCurr != 12 {
		t.Errorf("got %+v, want Kind=EventPick NewCurr=12", ev)
	}
}

func TestParseLinePlaceEntity(t *testing.T) {
	line := "place_entity placing se: 5, weight: 1024, lag: 0"
	ev, ok, err := ParseLine(line)
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if ev.Kind != replay.EventPlace || ev.PID != 5 || ev.Weight != 1024 {
		t.Errorf("got %+v, want Kind=EventPlace PID=5 Weight=1024", ev)
	}
}

func TestParseLineDequeueEntity(t *testing.T) {
	line := "dequeue_entity task being dequeued 5, lag: 10"
	ev, ok, err := ParseLine(line)
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if ev.Kind != replay.EventDequeue || ev.PID != 5 {
		t.Errorf("got %+v, want Kind=EventDequeue PID=5", ev)
	}
}

func TestParseLineExtractsNewVirtTimeWhenPresent(t *testing.T) {
	line := "pick_next_entity new_curr: 12 deadline: 99, new virt_time: 4000000"
	ev, ok, err := ParseLine(line)
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if !ev.HasV {
		t.Fatalf("HasV = false, want true for a line carrying new virt_time")
	}
	if ev.V.Int64() != 4000000 {
		t.Errorf("V = %d, want 4000000", ev.V.Int64())
	}
}

func TestParseLineWithoutNewVirtTimeLeavesHasVFalse(t *testing.T) {
	line := "pick_next_entity new_curr: 12 deadline: 99"
	ev, ok, err := ParseLine(line)
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if ev.HasV {
		t.Errorf("HasV = true for a line with no new virt_time field")
	}
}

func TestParseLineUnrecognizedIsSkippedNotError(t *testing.T) {
	ev, ok, err := ParseLine("some unrelated log noise")
	if err != nil {
		t.Fatalf("ParseLine on noise returned an error: %v", err)
	}
	if ok {
		t.Errorf("ParseLine recognized a line it shouldn't have: %+v", ev)
	}
}

func TestReaderSkipsUnrecognizedLines(t *testing.T) {
	input := strings.Join([]string{
		"irrelevant banner line",
		"place_entity placing se: 1, weight: 100, lag: 0",
		"update_curr 1: delta exec: 2000000, vruntime: 1",
		"pick_next_entity new_curr: 1 deadline: 5",
	}, "\n")

	r := NewReader(strings.NewReader(input))
	var kinds []replay.Kind
	for {
		ev, err := r.Next()
		if err != nil {
			break
		}
		kinds = append(kinds, ev.Kind)
	}
	want := []replay.Kind{replay.EventPlace, replay.EventTick, replay.EventPick}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}
