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

package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// Report appends Discrepancies to a shared file as JSON lines. It
// file-locks the path before every append so that two replay runs against
// the same report path -- for example a weighted-variant run and an
// averaged-variant run launched side by side for comparison -- don't
// interleave writes.
type Report struct {
	path string
	lock *flock.Flock
}

// NewReport returns a Report writing to path. The file is created on first
// Append if it does not already exist.
func NewReport(path string) *Report {
	return &Report{path: path, lock: flock.New(path + ".lock")}
}

// reportLine is a Discrepancy's on-disk shape.
type reportLine struct {
	Time      string  `json:"time"`
	Index     int     `json:"index"`
	Kind      string  `json:"kind"`
	PID       uint64  `json:"pid"`
	Field     string  `json:"field"`
	Expected  uint64  `json:"expected,omitempty"`
	Got       uint64  `json:"got,omitempty"`
	ExpectedV float64 `json:"expected_v,omitempty"`
	GotV      float64 `json:"got_v,omitempty"`
}

// Append locks the report file, appends d as one JSON line, and unlocks.
func (r *Report) Append(d Discrepancy) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	locked, err := r.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("replay: lock report %s: %w", r.path, err)
	}
	if !locked {
		return fmt.Errorf("replay: could not acquire lock on %s", r.path)
	}
	defer r.lock.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	line := reportLine{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Index:     d.Index,
		Kind:      d.Event.Kind.String(),
		PID:       d.Event.PID,
		Field:     d.Field,
		Expected:  d.Expected,
		Got:       d.Got,
		ExpectedV: d.ExpectedV.Float64(),
		GotV:      d.GotV.Float64(),
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(&line); err != nil {
		return err
	}
	return w.Flush()
}
