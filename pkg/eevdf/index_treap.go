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

import "math/rand"

// treapIndex is a second RequestIndex implementation, a randomized
// treap keyed by (Request.Deadline, seq) with heap-ordered random
// priorities for balance. It demonstrates that the RequestIndex contract
// does not commit a caller to any one structure: RunQueue treats heapIndex
// and treapIndex interchangeably.
//
// PickEligibleMinDeadline walks the tree leftmost-first (in increasing
// deadline order) and returns the first node that passes the eligibility
// test, without removing or reordering anything.
type treapIndex struct {
	root *treapNode
	node map[EntityID]*treapNode
	rng  *rand.Rand
}

type treapNode struct {
	entity   *Entity
	priority int64
	left     *treapNode
	right    *treapNode
}

// NewTreapIndex constructs an empty treap-backed RequestIndex.
func NewTreapIndex() RequestIndex {
	return &treapIndex{
		node: make(map[EntityID]*treapNode),
		rng:  rand.New(rand.NewSource(0x45455644)),
	}
}

func (t *treapIndex) less(a, b *Entity) bool {
	switch a.Request.Deadline.Cmp(b.Request.Deadline) {
	case -1:
		return true
	case 1:
		return false
	default:
		return a.seq < b.seq
	}
}

func (t *treapIndex) Insert(e *Entity) {
	n := &treapNode{entity: e, priority: t.rng.Int63()}
	t.node[e.ID] = n
	t.root = t.insert(t.root, n)
}

func (t *treapIndex) insert(root, n *treapNode) *treapNode {
	if root == nil {
		return n
	}
	if t.less(n.entity, root.entity) {
		root.left = t.insert(root.left, n)
		if root.left.priority > root.priority {
			root = t.rotateRight(root)
		}
	} else {
		root.right = t.insert(root.right, n)
		if root.right.priority > root.priority {
			root = t.rotateLeft(root)
		}
	}
	return root
}

func (t *treapIndex) rotateRight(root *treapNode) *treapNode {
	l := root.left
	root.left = l.right
	l.right = root
	return l
}

func (t *treapIndex) rotateLeft(root *treapNode) *treapNode {
	r := root.right
	root.right = r.left
	r.left = root
	return r
}

func (t *treapIndex) Remove(id EntityID) {
	n, ok := t.node[id]
	if !ok {
		return
	}
	t.root = t.remove(t.root, n.entity)
	delete(t.node, id)
}

func (t *treapIndex) remove(root *treapNode, target *Entity) *treapNode {
	if root == nil {
		return nil
	}
	if root.entity.ID == target.ID {
		return t.merge(root.left, root.right)
	}
	if t.less(target, root.entity) {
		root.left = t.remove(root.left, target)
	} else {
		root.right = t.remove(root.right, target)
	}
	return root
}

func (t *treapIndex) merge(left, right *treapNode) *treapNode {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if left.priority > right.priority {
		left.right = t.merge(left.right, right)
		return left
	}
	right.left = t.merge(left, right.left)
	return right
}

func (t *treapIndex) Len() int { return len(t.node) }

func (t *treapIndex) PickEligibleMinDeadline(eligible func(e *Entity) bool) (*Entity, bool) {
	return t.scan(t.root, eligible)
}

// scan performs an in-order (leftmost-first) traversal, returning the first
// eligible entity it finds. It stops descending into a subtree as soon as
// an answer is found further left, so the common case (earliest deadline is
// eligible) costs O(log n).
func (t *treapIndex) scan(n *treapNode, eligible func(e *Entity) bool) (*Entity, bool) {
	if n == nil {
		return nil, false
	}
	if e, ok := t.scan(n.left, eligible); ok {
		return e, true
	}
	if eligible(n.entity) {
		return n.entity, true
	}
	return t.scan(n.right, eligible)
}
