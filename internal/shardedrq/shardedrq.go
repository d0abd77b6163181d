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

// Package shardedrq fans a population of entities out across a fixed number
// of independent run queues, one per simulated core. Routing is by
// rendezvous hashing: a given entity id always lands on the same shard for
// a given shard count, and adding or removing a shard only reshuffles the
// entities that hashed nearest the changed shard, not the whole population.
// The registry does not migrate entities between shards and does not load
// balance; callers that need rebalancing make their own Dequeue-then-Place
// calls against a different shard.
package shardedrq

import (
	"hash/fnv"
	"strconv"
	"sync"

	"eevdf/pkg/eevdf"

	rendezvous "github.com/dgryski/go-rendezvous"
)

// hashString is the Hasher rendezvous.New requires. FNV-1a is adequate here:
// the only property routing depends on is that it spreads entity ids evenly
// across shard labels, not that it resists adversarial input.
func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Shard pairs a run queue with the label it was registered under.
type Shard struct {
	Label string
	RQ    *eevdf.RunQueue
}

// Registry is a fixed-size set of shards addressed by rendezvous hashing.
// Safe for concurrent use: Route, Shard and Len read under a shared lock,
// Add rebuilds the hash ring under the exclusive lock, and each Shard's
// RunQueue guards its own state.
type Registry struct {
	mu     sync.RWMutex
	shards []*Shard
	byLbl  map[string]int
	rv     *rendezvous.Rendezvous
}

// New builds a registry of n shards. newRQ constructs the RunQueue for a
// given shard label (labels are "0".."n-1"); callers typically close over a
// shared Options and RequestIndex constructor, attaching a distinct
// telemetry Observer per label (see internal/metrics.NewObserver).
func New(n int, newRQ func(label string) *eevdf.RunQueue) *Registry {
	if n <= 0 {
		panic("shardedrq: n must be positive")
	}
	labels := make([]string, n)
	shards := make([]*Shard, n)
	byLbl := make(map[string]int, n)
	for i := 0; i < n; i++ {
		label := strconv.Itoa(i)
		labels[i] = label
		shards[i] = &Shard{Label: label, RQ: newRQ(label)}
		byLbl[label] = i
	}
	return &Registry{
		shards: shards,
		byLbl:  byLbl,
		rv:     rendezvous.New(labels, hashString),
	}
}

// Route returns the shard index entityID is pinned to.
func (r *Registry) Route(id eevdf.EntityID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	label := r.rv.Lookup(strconv.FormatUint(uint64(id), 10))
	return r.byLbl[label]
}

// Shard returns the i'th shard. It panics if i is out of range, the same
// contract as a slice index.
func (r *Registry) Shard(i int) *Shard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shards[i]
}

// Len returns the number of shards in the registry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shards)
}

// RunQueueFor is a convenience wrapper around Route+Shard: it returns the
// run queue entityID is pinned to.
func (r *Registry) RunQueueFor(id eevdf.EntityID) *eevdf.RunQueue {
	return r.Shard(r.Route(id)).RQ
}

// ForEach invokes f once per shard, in index order. It iterates over a
// snapshot of the shard list taken before the first call, without holding
// the registry lock, so shards added by f are not visited.
func (r *Registry) ForEach(f func(i int, s *Shard)) {
	r.mu.RLock()
	shards := make([]*Shard, len(r.shards))
	copy(shards, r.shards)
	r.mu.RUnlock()
	for i, s := range shards {
		f(i, s)
	}
}

// Add appends a new shard built by newRQ and re-keys the hash ring. Entities
// already pinned elsewhere are unaffected except for the fraction rendezvous
// hashing reassigns to the new label; the registry performs no migration of
// their state, so callers that want the new shard to pick up live entities
// must Dequeue and re-Place them against their new Route themselves.
func (r *Registry) Add(newRQ func(label string) *eevdf.RunQueue) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := strconv.Itoa(len(r.shards))
	r.shards = append(r.shards, &Shard{Label: label, RQ: newRQ(label)})
	r.byLbl[label] = len(r.shards) - 1
	r.rebuildRing()
	return label
}

func (r *Registry) rebuildRing() {
	labels := make([]string, len(r.shards))
	for i, s := range r.shards {
		labels[i] = s.Label
	}
	r.rv = rendezvous.New(labels, hashString)
}
