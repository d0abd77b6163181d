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

import "container/heap"

// RequestIndex is the ordered collaborator a RunQueue uses to hold its
// waiting members and answer "which eligible request has the smallest
// deadline" in better than linear time. This package ships two
// implementations (index.go, index_treap.go) to show the contract is
// genuinely substitutable; a RunQueue does not care which one it is handed.
//
// Implementations need not be safe for concurrent use; RunQueue serializes
// all access under its own mutex.
type RequestIndex interface {
	// Insert adds e, keyed by its current Request.Deadline. e must not
	// already be present.
	Insert(e *Entity)

	// Remove drops the entity with the given id. It is a no-op if absent.
	Remove(id EntityID)

	// Len reports the number of indexed entities.
	Len() int

	// PickEligibleMinDeadline returns the indexed entity with the smallest
	// deadline among those for which eligible returns true, or ok=false if
	// none qualify (including when the index is empty).
	PickEligibleMinDeadline(eligible func(e *Entity) bool) (e *Entity, ok bool)
}

// heapIndex is a RequestIndex backed by container/heap, ordered by
// Request.Deadline with Entity.seq breaking ties. It answers
// PickEligibleMinDeadline by popping entries in deadline order, setting
// aside any that fail the eligibility test, and restoring everything
// (including the winner) before returning -- an O(k log n) scan where k is
// the rank of the first eligible entry, which is 1 in the common case where
// the earliest deadline is already eligible.
type heapIndex struct {
	h slotHeap
	// slot maps an entity id to its position in h.items, kept current by
	// the heap.Interface Swap method.
	slot map[EntityID]int
}

// NewHeapIndex constructs an empty heap-backed RequestIndex.
func NewHeapIndex() RequestIndex {
	slot := make(map[EntityID]int)
	idx := &heapIndex{h: slotHeap{slot: slot}, slot: slot}
	heap.Init(&idx.h)
	return idx
}

func (idx *heapIndex) Insert(e *Entity) {
	heap.Push(&idx.h, e)
}

func (idx *heapIndex) Remove(id EntityID) {
	i, ok := idx.slot[id]
	if !ok {
		return
	}
	heap.Remove(&idx.h, i)
}

func (idx *heapIndex) Len() int { return len(idx.h.items) }

func (idx *heapIndex) PickEligibleMinDeadline(eligible func(e *Entity) bool) (*Entity, bool) {
	var setAside []*Entity
	var winner *Entity
	for idx.h.Len() > 0 {
		cand := heap.Pop(&idx.h).(*Entity)
		if eligible(cand) {
			winner = cand
			break
		}
		setAside = append(setAside, cand)
	}
	if winner != nil {
		setAside = append(setAside, winner)
	}
	for _, e := range setAside {
		heap.Push(&idx.h, e)
	}
	return winner, winner != nil
}

// slotHeap implements heap.Interface over *Entity ordered by
// (Request.Deadline, seq), and keeps an external slot map current across
// Swap calls so Remove can locate an arbitrary element in O(log n).
type slotHeap struct {
	items []*Entity
	slot  map[EntityID]int
}

func (h slotHeap) Len() int { return len(h.items) }

func (h slotHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	switch a.Request.Deadline.Cmp(b.Request.Deadline) {
	case -1:
		return true
	case 1:
		return false
	default:
		return a.seq < b.seq
	}
}

func (h slotHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.slot[h.items[i].ID] = i
	h.slot[h.items[j].ID] = j
}

func (h *slotHeap) Push(x any) {
	e := x.(*Entity)
	h.slot[e.ID] = len(h.items)
	h.items = append(h.items, e)
}

func (h *slotHeap) Pop() any {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	delete(h.slot, e.ID)
	return e
}
