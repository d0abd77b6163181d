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

// Package fixed implements the Q44.20 fixed-point rational used throughout
// pkg/eevdf for virtual time, deadlines, and lag. A fixed representation
// gives bit-exact, reproducible arithmetic across runs, which the trace
// replay harness depends on when comparing virtual-time values against a
// reference within a fixed tolerance.
package fixed

import "strconv"

// fracBits is the number of fractional bits. 20 bits (~1e-6 precision)
// comfortably resolves nanosecond-scale real-time deltas divided by
// four-to-six-digit weights without overflowing int64 for the value ranges
// this simulator deals with (real times up to ~1e9, weights down to 2).
const fracBits = 20

// Scale is the fixed-point scale factor: Q(1) == Scale.
const Scale int64 = 1 << fracBits

// Q is a signed fixed-point number stored as raw*2^-fracBits.
type Q int64

// Zero is the additive identity.
const Zero Q = 0

// FromInt64 converts a whole number to Q.
func FromInt64(n int64) Q {
	return Q(n << fracBits)
}

// FromRatio returns num/den as Q. den must be non-zero.
func FromRatio(num, den int64) Q {
	return Q((num << fracBits) / den)
}

// Int64 rounds q down (toward negative infinity) to a whole number.
func (q Q) Int64() int64 {
	return int64(q) >> fracBits
}

// Float64 converts q to a float64, for logging and test comparisons only;
// no scheduling decision may depend on the result.
func (q Q) Float64() float64 {
	return float64(q) / float64(Scale)
}

// Add returns q+o.
func (q Q) Add(o Q) Q { return q + o }

// Sub returns q-o.
func (q Q) Sub(o Q) Q { return q - o }

// Neg returns -q.
func (q Q) Neg() Q { return -q }

// Abs returns the absolute value of q.
func (q Q) Abs() Q {
	if q < 0 {
		return -q
	}
	return q
}

// MulInt64 returns q*n for a plain (unscaled) integer n.
func (q Q) MulInt64(n int64) Q { return Q(int64(q) * n) }

// DivInt64 returns q/n for a plain (unscaled) integer n, truncated toward zero.
func (q Q) DivInt64(n int64) Q { return Q(int64(q) / n) }

// Cmp returns -1, 0, or 1 as q is less than, equal to, or greater than o.
func (q Q) Cmp(o Q) int {
	switch {
	case q < o:
		return -1
	case q > o:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether q < o.
func (q Q) LessThan(o Q) bool { return q < o }

// GreaterThanOrEqual reports whether q >= o.
func (q Q) GreaterThanOrEqual(o Q) bool { return q >= o }

// IsZero reports whether q is exactly zero.
func (q Q) IsZero() bool { return q == 0 }

// Positive reports whether q > 0.
func (q Q) Positive() bool { return q > 0 }

// String renders q in plain decimal notation using the fewest digits that
// round-trip its float64 value; it is not capped at a fixed digit count.
func (q Q) String() string {
	return strconv.FormatFloat(q.Float64(), 'f', -1, 64)
}
