// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import "time"

// Stats counts extension outcomes during one load pass. A pass runs on a
// single goroutine, so Stats is not safe for concurrent use.
type Stats struct {
	startTime time.Time

	discovered int64
	loaded     int64
	failed     int64
	skipped    int64
	outcomes   []Outcome
}

// Outcome is the result of one extension in a load pass.
type Outcome struct {
	Extension string
	Entry     string
	Module    string
	Result    Result
	Reason    string // set for Rejected
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// Record counts one activation result.
func (s *Stats) Record(r Result) {
	switch r {
	case Loaded:
		s.loaded++
	case SkippedNoEntry, Rejected:
		s.skipped++
	default:
		s.failed++
	}
}

// Observe counts o and keeps it for the summary.
func (s *Stats) Observe(o Outcome) {
	s.discovered++
	s.Record(o.Result)
	s.outcomes = append(s.outcomes, o)
}

// Summary is a point-in-time copy of Stats.
type Summary struct {
	Discovered int64
	Loaded     int64
	Failed     int64
	Skipped    int64
	Elapsed    time.Duration
	Outcomes   []Outcome // in discovery order
}

// Snapshot returns current stats. The returned Outcomes do not alias
// later observations.
func (s *Stats) Snapshot() Summary {
	return Summary{
		Discovered: s.discovered,
		Loaded:     s.loaded,
		Failed:     s.failed,
		Skipped:    s.skipped,
		Elapsed:    time.Since(s.startTime),
		Outcomes:   append([]Outcome(nil), s.outcomes...),
	}
}
