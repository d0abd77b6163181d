package replay

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"eevdf/pkg/eevdf/fixed"
)

func TestMockSourceYieldsInOrderThenEOF(t *testing.T) {
	events := []Event{{Kind: EventPlace, PID: 1}, {Kind: EventPick, NewCurr: 1}}
	src := NewMockSource(events)

	for i, want := range events {
		got, err := src.Next()
		if err != nil {
			t.Fatalf("Next(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("Next(%d) = %+v, want %+v", i, got, want)
		}
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after exhaustion: got %v, want io.EOF", err)
	}
}

func TestFileSourceDecodesJSONLAndSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")
	content := `{"kind":"place_entity","pid":1,"weight":1024}

{"kind":"update_curr","pid":1,"delta":4000000}
{"kind":"pick_next_entity","new_curr":1}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()

	var kinds []Kind
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		kinds = append(kinds, ev.Kind)
	}
	want := []Kind{EventPlace, EventTick, EventPick}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestFileSourceRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")
	if err := os.WriteFile(path, []byte(`{"kind":"bogus"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()
	if _, err := src.Next(); err == nil {
		t.Error("Next on unknown kind: want error, got nil")
	}
}

func TestFileSourceDecodesNewVirtTimeWhenPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")
	content := `{"kind":"pick_next_entity","new_curr":1,"new_virt_time":4000000}
{"kind":"update_curr","pid":1,"delta":1000}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()

	withV, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !withV.HasV {
		t.Fatalf("HasV = false, want true for a line carrying new_virt_time")
	}
	if withV.V != fixed.FromInt64(4000000) {
		t.Errorf("V = %v, want %v", withV.V.Float64(), fixed.FromInt64(4000000).Float64())
	}

	withoutV, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if withoutV.HasV {
		t.Errorf("HasV = true for a line with no new_virt_time field")
	}
}

func TestBuildSourceDispatchesByAdapterName(t *testing.T) {
	if _, err := BuildSource("mock", "", RedisSourceOptions{}); err != nil {
		t.Errorf("BuildSource(mock): %v", err)
	}
	if _, err := BuildSource("file", "", RedisSourceOptions{}); err == nil {
		t.Error("BuildSource(file) with empty path: want error, got nil")
	}
	if _, err := BuildSource("bogus", "", RedisSourceOptions{}); err == nil {
		t.Error("BuildSource(bogus): want error, got nil")
	}
}
