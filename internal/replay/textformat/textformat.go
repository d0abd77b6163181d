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

// Package textformat turns raw kernel scheduler trace lines into
// replay.Event values. It is kept separate from internal/replay so that the
// replay harness and its TraceSource adapters never take on a dependency on
// the surface syntax of any particular trace log; this package is the only
// place that syntax is allowed to live.
package textformat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"eevdf/internal/replay"
	"eevdf/pkg/eevdf/fixed"
)

// val extracts the substring of line between the first occurrence of start
// and the following occurrence of end (or end of line, if end never
// appears), trimmed of surrounding whitespace.
func val(line, start, end string) (string, bool) {
	si := strings.Index(line, start)
	if si < 0 {
		return "", false
	}
	si += len(start)
	ei := strings.Index(line[si:], end)
	if ei < 0 {
		return strings.TrimSpace(line[si:]), true
	}
	return strings.TrimSpace(line[si : si+ei]), true
}

// withVirtTime looks for a "new virt_time: " field on line and, if present,
// sets ev.V/ev.HasV from it. Not every trace line annotates its virtual
// time, so a missing field is not an error.
func withVirtTime(ev replay.Event, line string) replay.Event {
	raw, ok := val(line, "new virt_time: ", ",")
	if !ok {
		return ev
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ev
	}
	ev.V = fixed.FromInt64(n)
	ev.HasV = true
	return ev
}

// ParseLine decodes one trace line into an Event. ok is false for lines
// that don't match any recognized event tag (blank lines, comments, or
// unrelated log noise); callers should skip those rather than treat them
// as an error.
func ParseLine(line string) (ev replay.Event, ok bool, err error) {
	switch {
	case strings.Contains(line, "update_curr"):
		deltaStr, ok1 := val(line, "delta exec: ", ",")
		pidStr, ok2 := val(line, "update_curr ", ":")
		if !ok1 || !ok2 {
			return replay.Event{}, false, fmt.Errorf("textformat: malformed update_curr line: %q", line)
		}
		delta, err := strconv.ParseInt(deltaStr, 10, 64)
		if err != nil {
			return replay.Event{}, false, fmt.Errorf("textformat: delta exec: %w", err)
		}
		pid, err := strconv.ParseUint(pidStr, 10, 64)
		if err != nil {
			return replay.Event{}, false, fmt.Errorf("textformat: update_curr pid: %w", err)
		}
		ev := replay.Event{Kind: replay.EventTick, PID: pid, Delta: fixed.FromInt64(delta)}
		return withVirtTime(ev, line), true, nil

	case strings.Contains(line, "pick_next_entity"):
		pidStr, ok1 := val(line, "new_curr: ", " ")
		if !ok1 {
			return replay.Event{}, false, fmt.Errorf("textformat: malformed pick_next_entity line: %q", line)
		}
		pid, err := strconv.ParseUint(pidStr, 10, 64)
		if err != nil {
			return replay.Event{}, false, fmt.Errorf("textformat: new_curr: %w", err)
		}
		ev := replay.Event{Kind: replay.EventPick, NewCurr: pid}
		return withVirtTime(ev, line), true, nil

	case strings.Contains(line, "place_entity"):
		pidStr, ok1 := val(line, "placing se: ", ", ")
		weightStr, ok2 := val(line, "weight: ", ", ")
		if !ok1 || !ok2 {
			return replay.Event{}, false, fmt.Errorf("textformat: malformed place_entity line: %q", line)
		}
		pid, err := strconv.ParseUint(pidStr, 10, 64)
		if err != nil {
			return replay.Event{}, false, fmt.Errorf("textformat: placing se pid: %w", err)
		}
		weight, err := strconv.ParseInt(weightStr, 10, 64)
		if err != nil {
			return replay.Event{}, false, fmt.Errorf("textformat: place weight: %w", err)
		}
		ev := replay.Event{Kind: replay.EventPlace, PID: pid, Weight: weight}
		return withVirtTime(ev, line), true, nil

	case strings.Contains(line, "dequeue_entity"):
		pidStr, ok1 := val(line, " task being dequeued ", ", ")
		if !ok1 {
			return replay.Event{}, false, fmt.Errorf("textformat: malformed dequeue_entity line: %q", line)
		}
		pid, err := strconv.ParseUint(pidStr, 10, 64)
		if err != nil {
			return replay.Event{}, false, fmt.Errorf("textformat: task being dequeued pid: %w", err)
		}
		ev := replay.Event{Kind: replay.EventDequeue, PID: pid}
		return withVirtTime(ev, line), true, nil

	default:
		return replay.Event{}, false, nil
	}
}

// Reader adapts an io.Reader of raw trace lines into a replay.TraceSource,
// skipping lines ParseLine doesn't recognize.
type Reader struct {
	sc *bufio.Scanner
}

// NewReader wraps r as a replay.TraceSource.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r)}
}

// Next implements replay.TraceSource.
func (r *Reader) Next() (replay.Event, error) {
	for r.sc.Scan() {
		ev, ok, err := ParseLine(r.sc.Text())
		if err != nil {
			return replay.Event{}, err
		}
		if ok {
			return ev, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return replay.Event{}, err
	}
	return replay.Event{}, io.EOF
}

// Close implements replay.TraceSource; Reader does not own r.
func (r *Reader) Close() error { return nil }
