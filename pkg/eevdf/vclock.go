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

// advance moves V forward by the per-variant increment for a real-time
// delta: the weighted variant divides by total weight, the averaged
// variant by the running count. It is a no-op when the divisor is zero,
// which only happens with no members placed and is unreachable from Tick
// (Tick requires a curr).
func (rq *RunQueue) advance(delta fixed.Q) {
	switch rq.variant {
	case VariantAveraged:
		if rq.runningCount == 0 {
			return
		}
		rq.v = rq.v.Add(delta.DivInt64(rq.runningCount))
	default:
		if rq.totalWeight == 0 {
			return
		}
		rq.v = rq.v.Add(delta.DivInt64(rq.totalWeight))
	}
}

// placementShift computes the V shift applied when an entity carrying lag
// joins the run queue: the weighted variant distributes -lag/total_weight
// across V; the averaged variant instead recomputes V as the plain mean of
// member vruntimes (recomputeAveragedV), so this only applies to the
// weighted variant.
func (rq *RunQueue) placementShift(lag fixed.Q) fixed.Q {
	if rq.totalWeight == 0 {
		return fixed.Zero
	}
	return lag.DivInt64(rq.totalWeight).Neg()
}

// dequeueShift computes the V shift applied when an entity carrying lag
// leaves the run queue under the weighted variant.
func (rq *RunQueue) dequeueShift(lag fixed.Q) fixed.Q {
	if rq.totalWeight == 0 {
		return fixed.Zero
	}
	return lag.DivInt64(rq.totalWeight)
}
