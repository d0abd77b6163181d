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

// Package eevdf implements an earliest-eligible-virtual-deadline-first run
// queue: entities carry a weight and a slice, each accrues a (eligible,
// deadline) request against a virtual clock, and the queue always picks
// the eligible entity with the smallest deadline to run next. Two V-clock
// bookkeeping variants are provided (see Variant) and a RunQueue may use
// either interchangeably with either RequestIndex implementation.
package eevdf

import "eevdf/pkg/eevdf/fixed"

// EntityID opaquely identifies a schedulable unit: a process, thread, or
// any other caller-defined participant. It is caller-assigned; the
// scheduler never generates one.
type EntityID uint64

// Request is one fetchable job of an entity: a window [Eligible, Deadline)
// in virtual time during which the entity is due a slice of service.
type Request struct {
	// Eligible is the V value at which this request becomes runnable.
	Eligible fixed.Q
	// Deadline is the V value by which this request should complete.
	Deadline fixed.Q
}

// span returns Deadline-Eligible, which should equal slice/weight
// immediately after a request is (re)issued.
func (r Request) span() fixed.Q {
	return r.Deadline.Sub(r.Eligible)
}

// Entity is a runnable participant: a process or thread carrying weight,
// slice, per-era statistics, and its current Request.
//
// An Entity is born outside any RunQueue, is placed into one via Place, may
// run as curr, and is dequeued via Dequeue, which returns its accumulated
// lag for the caller to hand back to the next Place of the same entity.
type Entity struct {
	// ID is the caller-assigned opaque identifier.
	ID EntityID

	// Weight is the entity's proportional share factor; higher weight means
	// a higher rate of ideal service. Must stay positive.
	Weight int64

	// Slice is the entity's base time budget per request, independent of
	// weight. Must stay positive.
	Slice fixed.Q

	// RuntimeSincePlaced is the real service the entity has received since
	// its most recent Place (or ChangeWeight, which resets it), used by the
	// weighted variant's lag formula.
	RuntimeSincePlaced fixed.Q

	// VirtTimePlaced is the V reference of the weighted variant's lag
	// formula. Place sets it to V minus the applied lag divided by weight
	// (V itself when that lag is zero); ChangeWeight rebases it so the
	// entity's lag is unchanged under the new weight.
	VirtTimePlaced fixed.Q

	// VRuntime accumulates real run time directly (not scaled by weight);
	// used only by the averaged variant's lag formula.
	VRuntime fixed.Q

	// TimeGottenInSlice is the real service received toward the current
	// request's slice. It carries, with overshoot subtracted, across
	// request reissues, and across eras when the entity is re-placed.
	TimeGottenInSlice fixed.Q

	// Request is the entity's current outstanding (eligible, deadline) job.
	Request Request

	// relDeadline records, while the entity is not a member of any
	// RunQueue, whether Request.Deadline is stored relative to V rather
	// than absolute, pending re-anchoring at the next Place. Meaningless
	// while placed.
	relDeadline bool

	// seq is the insertion order assigned by the RunQueue on the most
	// recent Place; the RequestIndex uses it to break deadline ties
	// deterministically.
	seq uint64
}

// NewEntity constructs an unplaced Entity with the given id, weight, and
// slice, validating that both are positive.
func NewEntity(id EntityID, weight int64, slice fixed.Q) (*Entity, error) {
	if weight <= 0 {
		return nil, ErrInvalidWeight
	}
	if slice.Cmp(fixed.Zero) <= 0 {
		return nil, ErrInvalidSlice
	}
	return &Entity{ID: id, Weight: weight, Slice: slice}, nil
}
