// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/runner"
)

// scriptedRunner serves canned outcomes keyed by the joined argv. The
// doctor probes tools concurrently, so access is locked.
type scriptedRunner struct {
	mu       sync.Mutex
	outcomes map[string]runner.Outcome
	calls    []string
}

// Compile-time interface satisfaction check.
var _ runner.Runner = (*scriptedRunner)(nil)

func (s *scriptedRunner) Run(_ context.Context, argv []string, _ string, _ int) runner.Outcome {
	key := strings.Join(argv, " ")
	s.mu.Lock()
	s.calls = append(s.calls, key)
	out, ok := s.outcomes[key]
	s.mu.Unlock()
	if ok {
		return out
	}
	return runner.Outcome{Success: true, Output: "version 9.9.9", Duration: 5 * time.Millisecond}
}

func (s *scriptedRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// doctorSuite uses path-style commands so binary resolution goes
// through the working directory instead of PATH.
func doctorSuite() *matrix.Suite {
	return &matrix.Suite{
		Version: 1,
		Candidate: matrix.ToolSpec{
			Name:    "lectern",
			Command: []string{"./bin/lectern"},
			Build:   []string{"sh", "-c", "true"},
		},
		Baseline: matrix.ToolSpec{
			Name:       "composer",
			Command:    []string{"./bin/composer"},
			MinVersion: "2.0.0",
		},
		ProjectsDir:    "benchmarks",
		DefaultProject: "complex-app",
		Cases: []matrix.Case{
			{Name: "Show Status", Args: []string{"status"}},
		},
	}
}

// doctorWorkDir builds a working directory containing the given binary
// files and fixture project directories.
func doctorWorkDir(t *testing.T, binaries []string, projects ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	for _, b := range binaries {
		require.NoError(t, os.WriteFile(filepath.Join(dir, b), []byte("#!/bin/sh\n"), 0o755))
	}
	for _, p := range projects {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "benchmarks", p), 0o755))
	}
	return dir
}

func newDoctor(t *testing.T, r runner.Runner, workDir string) *Doctor {
	t.Helper()
	d, err := New(r, workDir)
	require.NoError(t, err)
	return d
}

// TestNew_Validation verifies constructor guards.
func TestNew_Validation(t *testing.T) {
	_, err := New(nil, ".")
	assert.ErrorContains(t, err, "runner must not be nil")

	d, err := New(&scriptedRunner{}, "")
	require.NoError(t, err)
	assert.NotNil(t, d)
}

// TestExamine_AllHealthy verifies the full check set passes in a
// complete environment and that only gated tools get version probes.
func TestExamine_AllHealthy(t *testing.T) {
	r := &scriptedRunner{}
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, r, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)
	require.Len(t, checks, 4)

	assert.Equal(t, "candidate tool (lectern)", checks[0].Name)
	assert.Equal(t, StatusPass, checks[0].Status)
	assert.Equal(t, "executable present", checks[0].Detail)

	assert.Equal(t, "baseline tool (composer)", checks[1].Name)
	assert.Equal(t, StatusPass, checks[1].Status)
	assert.Contains(t, checks[1].Detail, "9.9.9 meets minimum 2.0.0")

	assert.Equal(t, "fixture projects", checks[2].Name)
	assert.Equal(t, StatusPass, checks[2].Status)

	assert.Equal(t, "tracked files", checks[3].Name)
	assert.Equal(t, StatusPass, checks[3].Status)
	assert.Equal(t, "no mutating cases; nothing to protect", checks[3].Detail)

	assert.True(t, Healthy(checks))
	assert.Equal(t, 1, r.callCount(), "only the version-gated tool should be probed")
}

// TestExamine_MissingBinaryBuilderPresent verifies a missing candidate
// with a viable build step is a warning, not a failure.
func TestExamine_MissingBinaryBuilderPresent(t *testing.T) {
	dir := doctorWorkDir(t, []string{"bin/composer"}, "complex-app")

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusWarn, checks[0].Status)
	assert.Contains(t, checks[0].Detail, "build step")
	assert.True(t, Healthy(checks))
}

// TestExamine_MissingBinaryNoBuilder verifies a missing tool with no
// build step fails the check.
func TestExamine_MissingBinaryNoBuilder(t *testing.T) {
	dir := doctorWorkDir(t, []string{"bin/lectern"}, "complex-app")

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusFail, checks[1].Status)
	assert.Contains(t, checks[1].Detail, "executable not found at")
	assert.False(t, Healthy(checks))
}

// TestExamine_MissingBuilder verifies a missing binary whose builder is
// also absent fails the check.
func TestExamine_MissingBuilder(t *testing.T) {
	suite := doctorSuite()
	suite.Candidate.Build = []string{"no-such-builder-zz9", "build"}
	dir := doctorWorkDir(t, []string{"bin/composer"}, "complex-app")

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, StatusFail, checks[0].Status)
	assert.Contains(t, checks[0].Detail, "not on PATH")
}

// TestExamine_BareCommandOnPath verifies bare command names resolve
// through PATH.
func TestExamine_BareCommandOnPath(t *testing.T) {
	suite := doctorSuite()
	suite.Baseline = matrix.ToolSpec{Name: "composer", Command: []string{"sh"}}
	dir := doctorWorkDir(t, []string{"bin/lectern"}, "complex-app")

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, StatusPass, checks[1].Status)
}

// TestExamine_VersionBelowMinimum verifies a confirmed older version
// fails the gate.
func TestExamine_VersionBelowMinimum(t *testing.T) {
	r := &scriptedRunner{outcomes: map[string]runner.Outcome{
		"./bin/composer --version": {Success: true, Output: "Composer version 1.9.0 2019-11-01"},
	}}
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, r, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusFail, checks[1].Status)
	assert.Contains(t, checks[1].Detail, "1.9.0 is below minimum 2.0.0")
}

// TestExamine_VersionPrefixTolerated verifies v-prefixed versions on
// either side still compare.
func TestExamine_VersionPrefixTolerated(t *testing.T) {
	suite := doctorSuite()
	suite.Baseline.MinVersion = "v2.0.0"
	r := &scriptedRunner{outcomes: map[string]runner.Outcome{
		"./bin/composer --version": {Success: true, Output: "composer 2.7.1"},
	}}
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, r, dir).Examine(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, StatusPass, checks[1].Status)
	assert.Contains(t, checks[1].Detail, "2.7.1")
}

// TestExamine_VersionProbeFailure verifies a failed probe is only a
// warning; the binary exists even if --version misbehaves.
func TestExamine_VersionProbeFailure(t *testing.T) {
	r := &scriptedRunner{outcomes: map[string]runner.Outcome{
		"./bin/composer --version": {Success: false, Output: "segfault\ncore dumped"},
	}}
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, r, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusWarn, checks[1].Status)
	assert.Contains(t, checks[1].Detail, "version probe failed: segfault")
	assert.True(t, Healthy(checks))
}

// TestExamine_VersionUnparseable verifies output with no version token
// degrades to a warning.
func TestExamine_VersionUnparseable(t *testing.T) {
	r := &scriptedRunner{outcomes: map[string]runner.Outcome{
		"./bin/composer --version": {Success: true, Output: "latest and greatest"},
	}}
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, r, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusWarn, checks[1].Status)
	assert.Contains(t, checks[1].Detail, "could not parse a version")
}

// TestExamine_MissingDefaultProject verifies a missing default fixture
// fails, since it is the fallback for everything else.
func TestExamine_MissingDefaultProject(t *testing.T) {
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"})

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), doctorSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusFail, checks[2].Status)
	assert.Contains(t, checks[2].Detail, `default project "complex-app" missing`)
	assert.False(t, Healthy(checks))
}

// TestExamine_MissingSecondaryProject verifies a missing non-default
// fixture warns and names the fallback.
func TestExamine_MissingSecondaryProject(t *testing.T) {
	suite := doctorSuite()
	suite.Cases = append(suite.Cases, matrix.Case{
		Name:    "Status On Simple",
		Args:    []string{"status"},
		Project: "simple-test",
	})
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, StatusWarn, checks[2].Status)
	assert.Contains(t, checks[2].Detail, "simple-test")
	assert.Contains(t, checks[2].Detail, "fall back to complex-app")
}

// mutatingSuite returns doctorSuite plus a mutating install case on
// the simple-test fixture with tracked composer files.
func mutatingSuite() *matrix.Suite {
	suite := doctorSuite()
	suite.TrackedFiles = []string{"composer.json", "composer.lock"}
	suite.Cases = append(suite.Cases, matrix.Case{
		Name:     "Install Dependencies",
		Args:     []string{"install"},
		Project:  "simple-test",
		Mutating: true,
	})
	return suite
}

// TestExamine_TrackedFilesPresent verifies tracked files found in every
// mutated fixture pass the check.
func TestExamine_TrackedFilesPresent(t *testing.T) {
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app", "simple-test")
	for _, name := range []string{"composer.json", "composer.lock"} {
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "benchmarks", "simple-test", name), []byte("{}\n"), 0o644))
	}

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), mutatingSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusPass, checks[3].Status)
	assert.Equal(t, "all 2 tracked files present in mutated fixtures", checks[3].Detail)
}

// TestExamine_TrackedFileMissing verifies a missing tracked file warns
// and names the fixture-relative path.
func TestExamine_TrackedFileMissing(t *testing.T) {
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app", "simple-test")
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "benchmarks", "simple-test", "composer.json"), []byte("{}\n"), 0o644))

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), mutatingSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusWarn, checks[3].Status)
	assert.Contains(t, checks[3].Detail, "simple-test/composer.lock")
	assert.True(t, Healthy(checks))
}

// TestExamine_TrackedFilesNoFixture verifies the check warns instead of
// double-reporting when the mutated fixture directory itself is gone.
func TestExamine_TrackedFilesNoFixture(t *testing.T) {
	dir := doctorWorkDir(t, []string{"bin/lectern", "bin/composer"}, "complex-app")

	checks, err := newDoctor(t, &scriptedRunner{}, dir).Examine(context.Background(), mutatingSuite())
	require.NoError(t, err)

	assert.Equal(t, StatusWarn, checks[2].Status, "fixture check owns the missing directory")
	assert.Equal(t, StatusWarn, checks[3].Status)
	assert.Contains(t, checks[3].Detail, "no mutated fixture present")
}

// TestExamine_NilSuite verifies the nil-suite guard.
func TestExamine_NilSuite(t *testing.T) {
	_, err := newDoctor(t, &scriptedRunner{}, ".").Examine(context.Background(), nil)
	assert.ErrorContains(t, err, "suite must not be nil")
}

// TestHealthy verifies warnings pass and failures do not.
func TestHealthy(t *testing.T) {
	assert.True(t, Healthy(nil))
	assert.True(t, Healthy([]Check{{Status: StatusPass}, {Status: StatusWarn}}))
	assert.False(t, Healthy([]Check{{Status: StatusPass}, {Status: StatusFail}}))
}

// TestStatusString verifies the log form of each status.
func TestStatusString(t *testing.T) {
	assert.Equal(t, "pass", StatusPass.String())
	assert.Equal(t, "warn", StatusWarn.String())
	assert.Equal(t, "fail", StatusFail.String())
}

// TestFirstLine verifies probe output trimming.
func TestFirstLine(t *testing.T) {
	assert.Equal(t, "hello", firstLine("\n  hello\nworld"))
	assert.Equal(t, "(no output)", firstLine(""))
	assert.Equal(t, "(no output)", firstLine("\n \n"))
}
