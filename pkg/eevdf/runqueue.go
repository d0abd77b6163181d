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

package eevdf

import (
	"sync"

	"eevdf/pkg/eevdf/fixed"
)

// Observer receives notifications of run queue state transitions. All
// methods are optional; embed NoopObserver to satisfy the interface without
// implementing every method. Implementations must not call back into the
// RunQueue that invoked them -- the queue's mutex is held during dispatch.
type Observer interface {
	OnPlace(e *Entity, lag fixed.Q)
	OnDequeue(e *Entity, lag fixed.Q)
	OnTick(delta fixed.Q, v fixed.Q)
	OnNewRequest(e *Entity, req Request)
	OnPick(e *Entity)
	OnChangeWeight(e *Entity, oldWeight, newWeight int64)
	// OnMissingCurrent is called when Tick is invoked with no current
	// entity. This is a warning condition, not an error: Tick no-ops
	// rather than returning an error, so a caller racing a Dequeue of curr
	// against a Tick does not need special-case error handling.
	OnMissingCurrent()
}

// NoopObserver is an embeddable Observer whose methods do nothing. Callers
// that only care about one or two events embed this and override the rest.
type NoopObserver struct{}

func (NoopObserver) OnPlace(*Entity, fixed.Q)             {}
func (NoopObserver) OnDequeue(*Entity, fixed.Q)           {}
func (NoopObserver) OnTick(fixed.Q, fixed.Q)              {}
func (NoopObserver) OnNewRequest(*Entity, Request)        {}
func (NoopObserver) OnPick(*Entity)                       {}
func (NoopObserver) OnChangeWeight(*Entity, int64, int64) {}
func (NoopObserver) OnMissingCurrent()                    {}

// RunQueue is one scheduling domain: a single V clock, its set of member
// entities, and whichever one is current.
//
// A RunQueue guards its state with a mutex even though the core operations
// assume a single-threaded cooperative caller; the mutex-guarded
// struct-with-small-methods shape lets a RunQueue safely back a sharded
// registry addressed from multiple goroutines without a second layer of
// locking.
type RunQueue struct {
	mu sync.Mutex

	variant Variant
	opts    Options
	obs     Observer

	v fixed.Q

	// totalWeight is the sum of member weights, the weighted variant's
	// "total_load".
	totalWeight int64
	// runningCount is the member count, the averaged variant's
	// "num_running".
	runningCount int64

	curr    *Entity
	members map[EntityID]*Entity
	index   RequestIndex
	nextSeq uint64
}

// NewRunQueue constructs an empty RunQueue. index must be non-nil; use
// NewHeapIndex or NewTreapIndex.
func NewRunQueue(variant Variant, opts Options, index RequestIndex) *RunQueue {
	obs := opts.Observer
	if obs == nil {
		obs = NoopObserver{}
	}
	return &RunQueue{
		variant: variant,
		opts:    opts,
		obs:     obs,
		members: make(map[EntityID]*Entity),
		index:   index,
	}
}

// V returns the run queue's current virtual time.
func (rq *RunQueue) V() fixed.Q {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.v
}

// Len reports the number of member entities, including curr.
func (rq *RunQueue) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return len(rq.members)
}

// Curr returns the currently running entity's id and true, or false if the
// run queue has no current entity.
func (rq *RunQueue) Curr() (EntityID, bool) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.curr == nil {
		return 0, false
	}
	return rq.curr.ID, true
}

// lag computes an entity's current lag under the configured variant: the
// gap between the service it should ideally have received by now and the
// service it has actually received.
func (rq *RunQueue) lag(e *Entity) fixed.Q {
	switch rq.variant {
	case VariantAveraged:
		return rq.v.Sub(e.VRuntime)
	default:
		ideal := rq.v.Sub(e.VirtTimePlaced).MulInt64(e.Weight)
		return ideal.Sub(e.RuntimeSincePlaced)
	}
}

// eligible reports whether e's request has opened: either V has reached
// the request's Eligible mark, or the entity is carrying positive lag (it
// was shortchanged and may run immediately).
func (rq *RunQueue) eligible(e *Entity) bool {
	return rq.v.GreaterThanOrEqual(e.Request.Eligible) || rq.lag(e).Positive()
}

// recomputeAveragedV recomputes V as the mean vruntime across all members.
// The averaged variant recomputes the average from scratch on membership
// change rather than nudge it incrementally the way the weighted variant's
// total-weight-scaled lag transfer does.
func (rq *RunQueue) recomputeAveragedV() {
	if rq.runningCount == 0 {
		return
	}
	var sum fixed.Q
	for _, e := range rq.members {
		sum = sum.Add(e.VRuntime)
	}
	rq.v = sum.DivInt64(rq.runningCount)
}
