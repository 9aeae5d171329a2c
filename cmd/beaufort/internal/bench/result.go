// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"fmt"
	"time"
	"unicode"
)

// =============================================================================
// Result
// =============================================================================

// Result is one row of a finished matrix: the measurements for a single
// case. Improvement and status are derived on demand, never stored, so
// the two can never disagree with the durations they summarize.
//
// Thread Safety: Immutable after the orchestrator returns it.
type Result struct {
	// Case is the matrix case name.
	Case string `json:"case"`

	// Category is the case category, carried through for report
	// sectioning.
	Category string `json:"category,omitempty"`

	// Project is the fixture project the case actually ran against,
	// after any fallback.
	Project string `json:"project"`

	// CandidateDuration is the candidate wall-clock time.
	CandidateDuration time.Duration `json:"candidate_duration"`

	// BaselineDuration is the baseline wall-clock time.
	BaselineDuration time.Duration `json:"baseline_duration"`

	// CandidateSuccess is true iff the candidate exited zero in time.
	CandidateSuccess bool `json:"candidate_success"`

	// BaselineSuccess is true iff the baseline exited zero in time.
	BaselineSuccess bool `json:"baseline_success"`

	// Notes carries case context plus any annotations the orchestrator
	// added, such as an incomplete restore.
	Notes string `json:"notes,omitempty"`
}

// Succeeded reports whether both sides completed successfully.
func (r *Result) Succeeded() bool {
	return r.CandidateSuccess && r.BaselineSuccess
}

// Improvement returns how many times faster the candidate was than the
// baseline: baseline duration over candidate duration. Returns 0 unless
// both durations are positive, so degenerate measurements never produce
// a ratio.
func (r *Result) Improvement() float64 {
	if r.CandidateDuration <= 0 || r.BaselineDuration <= 0 {
		return 0
	}
	return r.BaselineDuration.Seconds() / r.CandidateDuration.Seconds()
}

// =============================================================================
// Status
// =============================================================================

// Status classifies a result for reporting. Failure classifications win
// over ratio classifications, and the candidate side is checked first.
type Status int

const (
	// StatusCandidateFailed marks a case where the candidate failed.
	StatusCandidateFailed Status = iota

	// StatusBaselineFailed marks a case where only the baseline failed.
	StatusBaselineFailed

	// StatusFaster marks a successful case with ratio above 1.
	StatusFaster

	// StatusSlower marks a successful case with ratio below 1.
	StatusSlower

	// StatusEqual marks a successful case with ratio exactly 1, and the
	// degenerate ratio-0 measurement.
	StatusEqual
)

// String returns the log form of the status.
func (s Status) String() string {
	switch s {
	case StatusCandidateFailed:
		return "candidate-failed"
	case StatusBaselineFailed:
		return "baseline-failed"
	case StatusFaster:
		return "faster"
	case StatusSlower:
		return "slower"
	case StatusEqual:
		return "equal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Status derives the classification for this result.
func (r *Result) Status() Status {
	if !r.CandidateSuccess {
		return StatusCandidateFailed
	}
	if !r.BaselineSuccess {
		return StatusBaselineFailed
	}

	ratio := r.Improvement()
	switch {
	case ratio > 1:
		return StatusFaster
	case ratio > 0 && ratio < 1:
		return StatusSlower
	default:
		return StatusEqual
	}
}

// StatusLabel renders the human-readable status cell for report tables,
// naming the tools involved.
//
// # Example
//
//	r.StatusLabel("lectern", "composer")
//	// "🚀 9.6x faster", "⚡ 2.1x slower", "❌ Lectern Failed", ...
func (r *Result) StatusLabel(candidate, baseline string) string {
	switch r.Status() {
	case StatusCandidateFailed:
		return fmt.Sprintf("❌ %s Failed", DisplayName(candidate))
	case StatusBaselineFailed:
		return fmt.Sprintf("⚠️ %s Failed", DisplayName(baseline))
	case StatusFaster:
		return fmt.Sprintf("🚀 %.1fx faster", r.Improvement())
	case StatusSlower:
		return fmt.Sprintf("⚡ %.1fx slower", 1/r.Improvement())
	default:
		return "🟰 Similar performance"
	}
}

// DisplayName uppercases the first rune so tool names read as labels in
// status cells and report headings.
func DisplayName(tool string) string {
	runes := []rune(tool)
	if len(runes) == 0 {
		return tool
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// =============================================================================
// Buckets
// =============================================================================

// Bucket bands a successful result's improvement ratio for analysis.
// Failed results are never bucketed; they are reported as issues.
type Bucket int

const (
	// BucketLarge holds ratios of 10x and above.
	BucketLarge Bucket = iota

	// BucketModerate holds ratios from 2x up to but excluding 10x.
	BucketModerate

	// BucketComparable holds ratios from 0.5x up to but excluding 2x.
	BucketComparable

	// BucketSlower holds ratios below 0.5x. These are reported
	// alongside the comparable band, never dropped.
	BucketSlower
)

// String returns the report form of the bucket.
func (b Bucket) String() string {
	switch b {
	case BucketLarge:
		return "large speedup"
	case BucketModerate:
		return "moderate speedup"
	case BucketComparable:
		return "comparable"
	case BucketSlower:
		return "slower"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// BucketFor bands an improvement ratio.
func BucketFor(ratio float64) Bucket {
	switch {
	case ratio >= 10:
		return BucketLarge
	case ratio >= 2:
		return BucketModerate
	case ratio >= 0.5:
		return BucketComparable
	default:
		return BucketSlower
	}
}

// Bucket bands this result's improvement ratio.
func (r *Result) Bucket() Bucket {
	return BucketFor(r.Improvement())
}

// =============================================================================
// RunInfo
// =============================================================================

// RunInfo identifies one matrix run for reports and exports.
type RunInfo struct {
	// RunID is a short unique identifier for this run.
	RunID string `json:"run_id"`

	// Candidate is the candidate tool name.
	Candidate string `json:"candidate"`

	// Baseline is the baseline tool name.
	Baseline string `json:"baseline"`

	// Projects lists the fixture projects the suite references.
	Projects []string `json:"projects"`

	// StartedAt is when the matrix run began, in UTC.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration"`
}
