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

import "eevdf/pkg/eevdf/fixed"

// Place adds e to the run queue, honoring a carried lag from a prior
// Dequeue of the same entity when Options.PlaceLag is set. lag is ignored
// (treated as zero) when PlaceLag is unset. It is an error to place an
// entity already a member of this run queue, or one with a non-positive
// weight or slice.
func (rq *RunQueue) Place(e *Entity, lag fixed.Q) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if e.Weight <= 0 {
		return ErrInvalidWeight
	}
	if e.Slice.Cmp(fixed.Zero) <= 0 {
		return ErrInvalidSlice
	}
	if _, exists := rq.members[e.ID]; exists {
		return ErrAlreadyPlaced
	}

	effLag := fixed.Zero
	if rq.opts.PlaceLag {
		effLag = rq.opts.clampLag(lag, e.Slice)
	}

	e.seq = rq.nextSeq
	rq.nextSeq++

	rq.members[e.ID] = e
	rq.totalWeight += e.Weight
	rq.runningCount++

	switch rq.variant {
	case VariantAveraged:
		e.VRuntime = rq.v.Sub(effLag)
		rq.recomputeAveragedV()
	default:
		e.RuntimeSincePlaced = fixed.Zero
		e.VirtTimePlaced = rq.v.Sub(effLag.DivInt64(e.Weight))
		rq.v = rq.v.Add(rq.placementShift(effLag))
	}

	if e.relDeadline {
		// Re-anchor a deadline carried relative across a dequeue back to
		// an absolute V value, then recompute Eligible so
		// deadline-eligible == slice/weight holds under the new weight.
		e.Request.Deadline = e.Request.Deadline.Add(rq.v)
		e.Request.Eligible = e.Request.Deadline.Sub(e.Slice.DivInt64(e.Weight))
		e.relDeadline = false
	} else {
		e.Request.Eligible = rq.v.Sub(e.TimeGottenInSlice.DivInt64(e.Weight))
		e.Request.Deadline = e.Request.Eligible.Add(e.Slice.DivInt64(e.Weight))
	}

	rq.index.Insert(e)
	rq.obs.OnPlace(e, effLag)
	return nil
}

// Dequeue removes the entity with the given id, returning the lag it
// carries at the moment of removal so the caller can hand it back to a
// later Place of the same entity. If the entity is currently running, it
// stops being curr.
func (rq *RunQueue) Dequeue(id EntityID) (fixed.Q, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	e, ok := rq.members[id]
	if !ok {
		return fixed.Zero, ErrUnknownEntity
	}
	if rq.curr == e {
		rq.curr = nil
	}

	lag := rq.lag(e)

	delete(rq.members, id)
	rq.index.Remove(id)
	rq.totalWeight -= e.Weight
	rq.runningCount--

	switch rq.variant {
	case VariantAveraged:
		rq.recomputeAveragedV()
	default:
		rq.v = rq.v.Add(rq.dequeueShift(lag))
	}

	if rq.opts.PlaceRelDeadline {
		e.Request.Deadline = e.Request.Deadline.Sub(rq.v)
		e.relDeadline = true
	}

	rq.obs.OnDequeue(e, lag)
	return lag, nil
}

// ChangeWeight reweights a member in place, preserving its lag (for the
// weighted variant) or leaving it unchanged (for the averaged variant,
// whose lag formula does not depend on weight) and reissuing the member's
// deadline span under the new weight.
func (rq *RunQueue) ChangeWeight(id EntityID, newWeight int64) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if newWeight <= 0 {
		return ErrInvalidWeight
	}
	e, ok := rq.members[id]
	if !ok {
		return ErrUnknownEntity
	}
	oldWeight := e.Weight
	if oldWeight == newWeight {
		return nil
	}

	if rq.variant != VariantAveraged {
		curLag := rq.lag(e)
		e.VirtTimePlaced = rq.v.Sub(curLag.DivInt64(newWeight))
		e.RuntimeSincePlaced = fixed.Zero
	}

	rq.totalWeight += newWeight - oldWeight
	e.Weight = newWeight

	rq.index.Remove(id)
	e.Request.Deadline = e.Request.Eligible.Add(e.Slice.DivInt64(newWeight))
	rq.index.Insert(e)

	rq.obs.OnChangeWeight(e, oldWeight, newWeight)
	return nil
}

// Tick charges delta real-time units to the current entity, advances V,
// and reissues the current entity's request if its slice is exhausted. It
// reports whether a new request was issued. If the run queue has no
// current entity, Tick is a no-op that reports the condition through
// Observer.OnMissingCurrent rather than returning an error.
func (rq *RunQueue) Tick(delta fixed.Q) (bool, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if rq.curr == nil {
		rq.obs.OnMissingCurrent()
		return false, nil
	}
	if delta.Cmp(fixed.Zero) <= 0 {
		return false, ErrInvalidDelta
	}

	c := rq.curr
	c.RuntimeSincePlaced = c.RuntimeSincePlaced.Add(delta)
	c.TimeGottenInSlice = c.TimeGottenInSlice.Add(delta)
	if rq.variant == VariantAveraged {
		c.VRuntime = c.VRuntime.Add(delta)
	}

	rq.advance(delta)
	rq.obs.OnTick(delta, rq.v)

	return rq.updateDeadline(c), nil
}

// updateDeadline reissues c's request once its slice is exhausted. It runs
// at most once per Tick call even if delta overshoots the slice by more
// than one slice's worth.
func (rq *RunQueue) updateDeadline(c *Entity) bool {
	if c.TimeGottenInSlice.Add(rq.opts.DeadlineTolerance).LessThan(c.Slice) {
		return false
	}

	// Remove before rewriting the deadline that keys the index: a
	// deadline-keyed structure like treapIndex navigates to the existing
	// node using the entity's current key, so mutating the key first can
	// send Remove down the wrong subtree.
	rq.index.Remove(c.ID)

	c.Request.Eligible = c.Request.Deadline
	c.Request.Deadline = c.Request.Eligible.Add(c.Slice.DivInt64(c.Weight))

	c.TimeGottenInSlice = c.TimeGottenInSlice.Sub(c.Slice)
	if c.TimeGottenInSlice.Cmp(fixed.Zero) < 0 {
		c.TimeGottenInSlice = fixed.Zero
	}

	rq.index.Insert(c)
	rq.obs.OnNewRequest(c, c.Request)
	return true
}

// Pick selects the member with the smallest deadline among those eligible
// and makes it curr. If no member is eligible, it falls back to the member
// with the smallest deadline regardless of eligibility. Pick requires at
// least one member.
func (rq *RunQueue) Pick() (EntityID, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if len(rq.members) == 0 {
		return 0, ErrEmptyRunQueue
	}

	cand, ok := rq.index.PickEligibleMinDeadline(rq.eligible)
	if !ok {
		cand = rq.minDeadlineMember()
	}

	rq.curr = cand
	rq.obs.OnPick(cand)
	return cand.ID, nil
}

// Resume makes the member with the given id curr directly, bypassing the
// eligible-minimum-deadline selection Pick performs. It exists for callers
// that already know which entity must run next from an external source
// (for example a trace replay harness resolving a missing curr by id
// before calling Tick) rather than letting this run queue choose.
func (rq *RunQueue) Resume(id EntityID) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	e, ok := rq.members[id]
	if !ok {
		return ErrUnknownEntity
	}
	rq.curr = e
	rq.obs.OnPick(e)
	return nil
}

func (rq *RunQueue) minDeadlineMember() *Entity {
	var best *Entity
	for _, e := range rq.members {
		if best == nil || e.Request.Deadline.Cmp(best.Request.Deadline) < 0 {
			best = e
		}
	}
	return best
}
