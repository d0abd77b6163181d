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

// Package replay drives a pkg/eevdf.RunQueue from a sequence of already
// decoded scheduling events and checks that the queue's choices agree with
// what a recorded trace says actually happened. It accepts Event values
// only; turning a raw kernel trace log's text lines into Events is a
// separate, narrower concern left to internal/replay/textformat.
package replay

import "eevdf/pkg/eevdf/fixed"

// Kind identifies which of the four recorded scheduling transitions an
// Event carries.
type Kind int

const (
	// EventTick corresponds to a trace's "update_curr" line: delta real-time
	// units were charged to whichever entity was running.
	EventTick Kind = iota
	// EventPick corresponds to "pick_next_entity": the trace's own chooser
	// settled on NewCurr as the next entity to run.
	EventPick
	// EventPlace corresponds to "place_entity": PID (re)joined the run
	// queue with the given Weight.
	EventPlace
	// EventDequeue corresponds to "dequeue_entity": PID left the run queue.
	EventDequeue
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case EventTick:
		return "update_curr"
	case EventPick:
		return "pick_next_entity"
	case EventPlace:
		return "place_entity"
	case EventDequeue:
		return "dequeue_entity"
	default:
		return "unknown"
	}
}

// Event is one line of a decoded scheduling trace. Only the fields relevant
// to Kind are populated; the rest are left zero.
type Event struct {
	Kind Kind

	// PID identifies the entity the event concerns, for every Kind except
	// EventTick where it is optional (see Harness.Apply's pid-fallback
	// handling of a nil current entity).
	PID uint64

	// Delta is the real-time amount charged by an EventTick.
	Delta fixed.Q

	// Weight is the entity weight carried by an EventPlace.
	Weight int64

	// NewCurr is the entity the trace itself picked, carried by EventPick.
	// The harness compares this against what pkg/eevdf.Pick chooses.
	NewCurr uint64

	// V is the trace's own reported virtual time immediately after this
	// event, when the trace line carried one. HasV distinguishes "the trace
	// didn't report a virtual time for this line" from "it reported zero",
	// since not every trace format annotates every line.
	V    fixed.Q
	HasV bool
}

// Discrepancy records a point where the replayed trace and the run queue's
// own decision disagreed. Field names which comparison failed ("pick" or
// "virt_time"); only the Expected/Got pair relevant to that Field is
// populated, the other is left zero.
type Discrepancy struct {
	Index    int
	Event    Event
	Field    string
	Expected uint64
	Got      uint64
	// ExpectedV and GotV hold the compared virtual times when Field is
	// "virt_time".
	ExpectedV fixed.Q
	GotV      fixed.Q
}
