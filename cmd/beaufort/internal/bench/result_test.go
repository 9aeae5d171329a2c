// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func successResult(candidate, baseline time.Duration) Result {
	return Result{
		Case:              "Install Dependencies",
		CandidateDuration: candidate,
		BaselineDuration:  baseline,
		CandidateSuccess:  true,
		BaselineSuccess:   true,
	}
}

// TestImprovement_Ratio verifies improvement is baseline over candidate.
func TestImprovement_Ratio(t *testing.T) {
	r := successResult(500*time.Millisecond, 5*time.Second)
	assert.InDelta(t, 10.0, r.Improvement(), 1e-9, "0.5s vs 5.0s is a 10x speedup")

	r = successResult(2*time.Second, time.Second)
	assert.InDelta(t, 0.5, r.Improvement(), 1e-9)
}

// TestImprovement_DegenerateDurations verifies non-positive durations
// yield ratio 0 rather than infinity or a panic.
func TestImprovement_DegenerateDurations(t *testing.T) {
	r := successResult(0, 5*time.Second)
	assert.Zero(t, r.Improvement(), "Zero candidate duration yields no ratio")

	r = successResult(500*time.Millisecond, 0)
	assert.Zero(t, r.Improvement(), "Zero baseline duration yields no ratio")

	r = successResult(-time.Second, 5*time.Second)
	assert.Zero(t, r.Improvement(), "Negative duration yields no ratio")
}

// TestStatus_FailurePrecedence verifies failure classification wins over
// any ratio, and the candidate side is checked first.
func TestStatus_FailurePrecedence(t *testing.T) {
	r := successResult(500*time.Millisecond, 5*time.Second)
	r.CandidateSuccess = false
	assert.Equal(t, StatusCandidateFailed, r.Status(), "Candidate failure beats a 10x ratio")

	r = successResult(500*time.Millisecond, 5*time.Second)
	r.BaselineSuccess = false
	assert.Equal(t, StatusBaselineFailed, r.Status())

	r = successResult(500*time.Millisecond, 5*time.Second)
	r.CandidateSuccess = false
	r.BaselineSuccess = false
	assert.Equal(t, StatusCandidateFailed, r.Status(), "Candidate side is checked first")
}

// TestStatus_RatioBands verifies the faster/slower/equal classification.
func TestStatus_RatioBands(t *testing.T) {
	r := successResult(time.Second, 2*time.Second)
	assert.Equal(t, StatusFaster, r.Status())

	r = successResult(2*time.Second, time.Second)
	assert.Equal(t, StatusSlower, r.Status())

	r = successResult(time.Second, time.Second)
	assert.Equal(t, StatusEqual, r.Status())
}

// TestStatus_DegenerateRatio verifies a ratio of 0 with both sides
// successful lands on equal instead of slower, where the slower label
// would divide by zero.
func TestStatus_DegenerateRatio(t *testing.T) {
	r := successResult(0, 0)
	assert.Equal(t, StatusEqual, r.Status())
	assert.Equal(t, "🟰 Similar performance", r.StatusLabel("lectern", "composer"))
}

// TestStatusLabel verifies the rendered report cells.
func TestStatusLabel(t *testing.T) {
	r := successResult(500*time.Millisecond, 5*time.Second)
	assert.Equal(t, "🚀 10.0x faster", r.StatusLabel("lectern", "composer"))

	r = successResult(2*time.Second, time.Second)
	assert.Equal(t, "⚡ 2.0x slower", r.StatusLabel("lectern", "composer"))

	r = successResult(time.Second, time.Second)
	assert.Equal(t, "🟰 Similar performance", r.StatusLabel("lectern", "composer"))

	r = successResult(time.Second, time.Second)
	r.CandidateSuccess = false
	assert.Equal(t, "❌ Lectern Failed", r.StatusLabel("lectern", "composer"))

	r = successResult(time.Second, time.Second)
	r.BaselineSuccess = false
	assert.Equal(t, "⚠️ Composer Failed", r.StatusLabel("lectern", "composer"))
}

// TestStatusString verifies the log form of each status.
func TestStatusString(t *testing.T) {
	assert.Equal(t, "candidate-failed", StatusCandidateFailed.String())
	assert.Equal(t, "baseline-failed", StatusBaselineFailed.String())
	assert.Equal(t, "faster", StatusFaster.String())
	assert.Equal(t, "slower", StatusSlower.String())
	assert.Equal(t, "equal", StatusEqual.String())
}

// TestSucceeded verifies both sides must pass.
func TestSucceeded(t *testing.T) {
	r := successResult(time.Second, time.Second)
	assert.True(t, r.Succeeded())

	r.BaselineSuccess = false
	assert.False(t, r.Succeeded())
}

// TestBucketFor verifies the band boundaries, which are inclusive on
// the lower edge.
func TestBucketFor(t *testing.T) {
	assert.Equal(t, BucketLarge, BucketFor(25.0))
	assert.Equal(t, BucketLarge, BucketFor(10.0), "10x is the floor of the large band")
	assert.Equal(t, BucketModerate, BucketFor(9.99))
	assert.Equal(t, BucketModerate, BucketFor(2.0))
	assert.Equal(t, BucketComparable, BucketFor(1.99))
	assert.Equal(t, BucketComparable, BucketFor(0.5))
	assert.Equal(t, BucketSlower, BucketFor(0.49))
	assert.Equal(t, BucketSlower, BucketFor(0))
}

// TestBucketString verifies the report form of each band.
func TestBucketString(t *testing.T) {
	assert.Equal(t, "large speedup", BucketLarge.String())
	assert.Equal(t, "moderate speedup", BucketModerate.String())
	assert.Equal(t, "comparable", BucketComparable.String())
	assert.Equal(t, "slower", BucketSlower.String())
}

// TestResultBucket verifies bucketing runs off the derived ratio.
func TestResultBucket(t *testing.T) {
	r := successResult(500*time.Millisecond, 5*time.Second)
	assert.Equal(t, BucketLarge, r.Bucket())

	r = successResult(5*time.Second, time.Second)
	assert.Equal(t, BucketSlower, r.Bucket())
}

// TestDisplayName verifies label casing handles unicode and empty names.
func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Lectern", DisplayName("lectern"))
	assert.Equal(t, "Überbau", DisplayName("überbau"))
	assert.Equal(t, "", DisplayName(""))
}
