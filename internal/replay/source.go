// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"eevdf/pkg/eevdf/fixed"
)

// fromRawUnits converts a trace's raw integer real-time delta (nanosecond
// scale, as a recorded "delta exec" field carries it) to Q. The trace's
// units are whole numbers; the fractional part only ever appears inside
// the scheduler's own virtual-time arithmetic.
func fromRawUnits(n int64) fixed.Q {
	return fixed.FromInt64(n)
}

// TraceSource yields decoded Events one at a time. Next returns io.EOF once
// the trace is exhausted.
type TraceSource interface {
	Next() (Event, error)
	Close() error
}

// jsonEvent is the on-the-wire shape for file- and Redis-backed sources: one
// JSON object per line, field names matching Event. NewVirtTime is a
// pointer so a line that omits it decodes as "this trace didn't report a V
// for this event" rather than as a reported zero.
type jsonEvent struct {
	Kind        string `json:"kind"`
	PID         uint64 `json:"pid"`
	Delta       int64  `json:"delta,omitempty"`
	Weight      int64  `json:"weight,omitempty"`
	NewCurr     uint64 `json:"new_curr,omitempty"`
	NewVirtTime *int64 `json:"new_virt_time,omitempty"`
}

func kindFromString(s string) (Kind, error) {
	switch s {
	case "update_curr":
		return EventTick, nil
	case "pick_next_entity":
		return EventPick, nil
	case "place_entity":
		return EventPlace, nil
	case "dequeue_entity":
		return EventDequeue, nil
	default:
		return 0, fmt.Errorf("replay: unknown event kind %q", s)
	}
}

func decodeLine(line []byte) (Event, error) {
	var je jsonEvent
	if err := json.Unmarshal(line, &je); err != nil {
		return Event{}, fmt.Errorf("replay: decode event: %w", err)
	}
	kind, err := kindFromString(je.Kind)
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		Kind:    kind,
		PID:     je.PID,
		Delta:   fromRawUnits(je.Delta),
		Weight:  je.Weight,
		NewCurr: je.NewCurr,
	}
	if je.NewVirtTime != nil {
		ev.V = fromRawUnits(*je.NewVirtTime)
		ev.HasV = true
	}
	return ev, nil
}

// FileSource reads newline-delimited JSON events from an *os.File, the same
// JSONL-per-line shape used elsewhere in this codebase for other
// append-only record kinds.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
	owned   bool
}

// NewFileSource opens path and returns a TraceSource over its lines.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return newFileSource(f, true), nil
}

// NewStdinSource adapts os.Stdin into a TraceSource; Close is a no-op since
// the caller owns os.Stdin's lifecycle.
func NewStdinSource() *FileSource {
	return newFileSource(os.Stdin, false)
}

func newFileSource(f *os.File, owned bool) *FileSource {
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<16)
	scanner.Buffer(buf, 1<<24)
	return &FileSource{f: f, scanner: scanner, owned: owned}
}

// Next returns the next decoded event, or io.EOF when the file is exhausted.
func (s *FileSource) Next() (Event, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		return decodeLine(line)
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Close closes the underlying file if this source opened it.
func (s *FileSource) Close() error {
	if !s.owned {
		return nil
	}
	return s.f.Close()
}

// MockSource replays a fixed, in-memory slice of events. Useful for tests
// and for the demo build's dependency-free default, the same role
// persistence.LoggingRedisEvaler plays for the rate limiter.
type MockSource struct {
	events []Event
	pos    int
}

// NewMockSource returns a TraceSource that yields events in order.
func NewMockSource(events []Event) *MockSource {
	return &MockSource{events: events}
}

func (m *MockSource) Next() (Event, error) {
	if m.pos >= len(m.events) {
		return Event{}, io.EOF
	}
	e := m.events[m.pos]
	m.pos++
	return e, nil
}

func (m *MockSource) Close() error { return nil }

// BuildSource constructs a TraceSource for the demo based on a string
// selector, mirroring persistence.BuildPersister's adapter-by-name factory.
// Supported adapters: "file" (path required), "stdin", "mock" (default,
// empty trace), "redis" (see source_redis.go).
func BuildSource(adapter string, path string, redisOpts RedisSourceOptions) (TraceSource, error) {
	switch adapter {
	case "", "mock":
		return NewMockSource(nil), nil
	case "file":
		if path == "" {
			return nil, fmt.Errorf("replay: file adapter requires a path")
		}
		return NewFileSource(path)
	case "stdin":
		return NewStdinSource(), nil
	case "redis":
		return NewRedisSource(redisOpts)
	default:
		return nil, fmt.Errorf("replay: unknown trace source adapter: %s", adapter)
	}
}
