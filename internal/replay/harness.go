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
	"errors"
	"fmt"
	"io"

	"eevdf/pkg/eevdf"
	"eevdf/pkg/eevdf/fixed"

	"go.uber.org/zap"
)

// Harness drives a single eevdf.RunQueue from a TraceSource, tracking the
// correspondence between trace pids and live Entity values and comparing
// the queue's own Pick decisions against what the trace recorded.
type Harness struct {
	RQ     *eevdf.RunQueue
	Source TraceSource
	Report *Report

	// Logger receives a warning for every discrepancy Run finds, in
	// addition to whatever Report records. A nil Logger is replaced with
	// zap.NewNop() so callers that don't care about logging can leave it
	// unset.
	Logger *zap.Logger

	// Tolerance bounds how far RQ.V() may drift from an event's reported V
	// before it counts as a discrepancy. Zero (the default) requires an
	// exact match.
	Tolerance fixed.Q

	entities map[uint64]*eevdf.Entity
	// departed holds the carried lag of an entity that left the run queue
	// and may be re-placed by a later EventPlace for the same pid, mirroring
	// the reference's pid_to_se_and_lag dict.
	departed map[uint64]carriedDeparture

	index int
}

type carriedDeparture struct {
	weight int64
	slice  fixed.Q
	lag    fixed.Q
}

// NewHarness builds a Harness over rq, reading events from src and, if
// report is non-nil, appending every discrepancy Run finds to it.
func NewHarness(rq *eevdf.RunQueue, src TraceSource, report *Report) *Harness {
	return &Harness{
		RQ:       rq,
		Source:   src,
		Report:   report,
		Logger:   zap.NewNop(),
		entities: make(map[uint64]*eevdf.Entity),
		departed: make(map[uint64]carriedDeparture),
	}
}

func (h *Harness) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// defaultSlice is used when a re-placed entity's original slice is unknown
// (a plain place_entity line with no prior departure on record).
const defaultSlice = 4_000_000

// Run consumes every event from the Source until it is exhausted, applying
// each to RQ. It returns the discrepancies recorded, in order; if a non-nil
// Report was configured each discrepancy was also appended there as it was
// found.
func (h *Harness) Run() ([]Discrepancy, error) {
	var discrepancies []Discrepancy
	for {
		ev, err := h.Source.Next()
		if errors.Is(err, io.EOF) {
			return discrepancies, nil
		}
		if err != nil {
			return discrepancies, err
		}

		found, err := h.Apply(ev)
		if err != nil {
			return discrepancies, err
		}
		for _, d := range found {
			discrepancies = append(discrepancies, d)
			h.logger().Warn("replay discrepancy",
				zap.Int("index", d.Index),
				zap.String("field", d.Field),
				zap.Uint64("expected", d.Expected),
				zap.Uint64("got", d.Got),
				zap.Float64("expected_v", d.ExpectedV.Float64()),
				zap.Float64("got_v", d.GotV.Float64()),
			)
			if h.Report != nil {
				if rerr := h.Report.Append(d); rerr != nil {
					return discrepancies, rerr
				}
			}
		}
		h.index++
	}
}

// Apply applies a single event to the run queue and returns every
// Discrepancy it produced: an EventPick whose NewCurr disagrees with what RQ
// itself would choose, and/or -- for any event carrying a reported virtual
// time -- RQ's post-event V drifting from it by more than Tolerance.
func (h *Harness) Apply(ev Event) ([]Discrepancy, error) {
	var err error
	var discrepancies []Discrepancy

	switch ev.Kind {
	case EventPlace:
		err = h.applyPlace(ev)
	case EventDequeue:
		err = h.applyDequeue(ev)
	case EventTick:
		err = h.applyTick(ev)
	case EventPick:
		var d *Discrepancy
		d, err = h.applyPick(ev)
		if d != nil {
			discrepancies = append(discrepancies, *d)
		}
	default:
		err = fmt.Errorf("replay: event %d: unhandled kind %v", h.index, ev.Kind)
	}
	if err != nil {
		return discrepancies, err
	}

	if ev.HasV {
		if d := h.checkV(ev); d != nil {
			discrepancies = append(discrepancies, *d)
		}
	}
	return discrepancies, nil
}

// checkV compares RQ's current V against ev.V, returning a "virt_time"
// Discrepancy if they differ by more than Tolerance.
func (h *Harness) checkV(ev Event) *Discrepancy {
	got := h.RQ.V()
	diff := got.Sub(ev.V).Abs()
	if diff.Cmp(h.Tolerance) <= 0 {
		return nil
	}
	return &Discrepancy{
		Index:     h.index,
		Event:     ev,
		Field:     "virt_time",
		ExpectedV: ev.V,
		GotV:      got,
	}
}

func (h *Harness) applyPlace(ev Event) error {
	weight := ev.Weight
	lag := fixed.Zero
	slice := fixed.FromInt64(defaultSlice)
	if prior, ok := h.departed[ev.PID]; ok {
		weight = prior.weight
		slice = prior.slice
		lag = prior.lag
		delete(h.departed, ev.PID)
	}
	if weight <= 0 {
		weight = 1
	}

	e, err := eevdf.NewEntity(eevdf.EntityID(ev.PID), weight, slice)
	if err != nil {
		return fmt.Errorf("replay: event %d: new entity for pid %d: %w", h.index, ev.PID, err)
	}
	if err := h.RQ.Place(e, lag); err != nil {
		return fmt.Errorf("replay: event %d: place pid %d: %w", h.index, ev.PID, err)
	}
	h.entities[ev.PID] = e
	return nil
}

func (h *Harness) applyDequeue(ev Event) error {
	e, ok := h.entities[ev.PID]
	if !ok {
		return fmt.Errorf("replay: event %d: dequeue unknown pid %d", h.index, ev.PID)
	}
	lag, err := h.RQ.Dequeue(e.ID)
	if err != nil {
		return fmt.Errorf("replay: event %d: dequeue pid %d: %w", h.index, ev.PID, err)
	}
	delete(h.entities, ev.PID)
	h.departed[ev.PID] = carriedDeparture{weight: e.Weight, slice: e.Slice, lag: lag}
	return nil
}

// applyTick charges an EventTick's delta to the current entity. Per the
// reference simulator's run_curr, when the run queue has no current entity
// but the event names a pid, the trace means "this proc is about to be
// re-placed as curr" -- the harness resolves curr by id lookup itself
// before calling Tick, rather than asking pkg/eevdf.Tick to do so. Tick's
// own "missing current" contract (a no-op reported through
// Observer.OnMissingCurrent) is unchanged for every other caller.
func (h *Harness) applyTick(ev Event) error {
	if _, ok := h.RQ.Curr(); !ok && ev.PID != 0 {
		if _, known := h.entities[ev.PID]; known {
			if err := h.RQ.Resume(eevdf.EntityID(ev.PID)); err != nil {
				return fmt.Errorf("replay: event %d: resuming curr for pid %d: %w", h.index, ev.PID, err)
			}
		}
	}
	if _, err := h.RQ.Tick(ev.Delta); err != nil {
		return fmt.Errorf("replay: event %d: tick: %w", h.index, err)
	}
	return nil
}

func (h *Harness) applyPick(ev Event) (*Discrepancy, error) {
	picked, err := h.RQ.Pick()
	if err != nil {
		return nil, fmt.Errorf("replay: event %d: pick: %w", h.index, err)
	}
	if uint64(picked) != ev.NewCurr {
		return &Discrepancy{
			Index:    h.index,
			Event:    ev,
			Expected: ev.NewCurr,
			Got:      uint64(picked),
			Field:    "pick",
		}, nil
	}
	return nil, nil
}
