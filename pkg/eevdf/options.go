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

// Variant selects the virtual-time bookkeeping rule a RunQueue uses. The two
// variants coexist here only for comparison; a given RunQueue is constructed
// with exactly one and never switches.
type Variant int

const (
	// VariantWeighted advances V at dV = delta/total_weight. This matches
	// the current upstream kernel design.
	VariantWeighted Variant = iota

	// VariantAveraged advances V at dV = delta/running_count.
	VariantAveraged
)

// String implements fmt.Stringer for log-friendly variant names.
func (v Variant) String() string {
	switch v {
	case VariantWeighted:
		return "weighted"
	case VariantAveraged:
		return "averaged"
	default:
		return "unknown"
	}
}

// Options configures a RunQueue's construction. The zero value is the
// faithful default: variant A, no carried lag on place, absolute deadlines,
// zero tolerance, no lag clamping.
type Options struct {
	// Variant selects the V-clock rule.
	Variant Variant

	// PlaceLag, when true, honors an entity's carried lag on Place. When
	// false, carried lag is ignored and the entity starts each era with
	// lag 0.
	PlaceLag bool

	// PlaceRelDeadline, when true, stores a dequeued entity's deadline
	// relative to V and re-anchors it at the next Place.
	PlaceRelDeadline bool

	// DeadlineTolerance is added to time_gotten_in_slice when testing the
	// slice boundary in update_deadline, absorbing accumulated rounding.
	// Zero means a strict comparison.
	DeadlineTolerance fixed.Q

	// LagClampFactor, when positive, clamps a carried lag to
	// [-LagClampFactor*slice, +LagClampFactor*slice] before it is applied.
	// Zero (the default) disables clamping.
	LagClampFactor int64

	// Observer, if non-nil, is notified of state transitions as they
	// happen. Higher layers wire this to metrics and trace-replay
	// comparison; this package takes no dependency on either.
	Observer Observer
}

// DefaultOptions returns the zero-value Options explicitly, for call sites
// that want to be clear they mean "faithful defaults" rather than an
// omitted argument.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) clampLag(lag fixed.Q, slice fixed.Q) fixed.Q {
	if o.LagClampFactor <= 0 {
		return lag
	}
	limit := slice.MulInt64(o.LagClampFactor)
	if lag.GreaterThanOrEqual(limit.Neg()) && limit.GreaterThanOrEqual(lag) {
		return lag
	}
	if lag.Cmp(limit) > 0 {
		return limit
	}
	return limit.Neg()
}
