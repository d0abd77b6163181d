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

import "errors"

// Sentinel errors returned by the public operations. Callers should compare
// with errors.Is; operations that return one of these leave the run queue
// and entity state unchanged.
var (
	// ErrInvalidWeight is returned when a weight is not a positive value.
	ErrInvalidWeight = errors.New("eevdf: weight must be positive")

	// ErrInvalidSlice is returned when a slice is not a positive value.
	ErrInvalidSlice = errors.New("eevdf: slice must be positive")

	// ErrAlreadyPlaced is returned by Place when the entity is already a
	// member of the run queue.
	ErrAlreadyPlaced = errors.New("eevdf: entity already placed")

	// ErrUnknownEntity is returned by Dequeue or ChangeWeight when the
	// entity is not a member of the run queue.
	ErrUnknownEntity = errors.New("eevdf: unknown entity")

	// ErrEmptyRunQueue is returned by Pick when there are no members to
	// choose from.
	ErrEmptyRunQueue = errors.New("eevdf: run queue is empty")

	// ErrInvalidDelta is returned by Tick when the real-time delta is not
	// a positive value.
	ErrInvalidDelta = errors.New("eevdf: tick delta must be positive")
)
