// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package doctor runs preflight checks against a benchmark suite:
// tool binaries resolvable, version gates met, fixture projects
// present. Check failures are data for the caller to present, never
// errors; a matrix run with a missing baseline should fail fast with a
// readable diagnosis instead of producing thirteen failed cases.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/runner"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// versionProbeTimeoutSeconds bounds the --version subprocess. A
	// tool that cannot print its version inside this window is not
	// going to survive a benchmark either.
	versionProbeTimeoutSeconds = 30
)

// versionPattern extracts the first semver-looking token from version
// probe output, tolerating banner text around it.
var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?`)

// =============================================================================
// Checks
// =============================================================================

// Status classifies a preflight check outcome.
type Status int

const (
	// StatusPass means the check found nothing wrong.
	StatusPass Status = iota

	// StatusWarn means the run can proceed but may degrade, such as a
	// candidate binary that the build step still has to produce.
	StatusWarn

	// StatusFail means the run cannot produce meaningful results.
	StatusFail
)

// String returns the log form of the status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	default:
		return "fail"
	}
}

// Check is one named preflight finding.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Healthy reports whether a check set contains no failures. Warnings
// do not block a run.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// =============================================================================
// Doctor
// =============================================================================

// Doctor examines the environment a suite is about to run in.
//
// Thread Safety: Safe for concurrent use.
type Doctor struct {
	runner  runner.Runner
	workDir string
}

// New creates a Doctor rooted at workDir. The runner is used for
// version probes only.
func New(r runner.Runner, workDir string) (*Doctor, error) {
	if r == nil {
		return nil, errors.New("New: runner must not be nil")
	}
	if workDir == "" {
		workDir = "."
	}
	return &Doctor{runner: r, workDir: workDir}, nil
}

// Examine runs all preflight checks for a suite.
//
// # Description
//
//	Probes both tool binaries concurrently and verifies the fixture
//	projects and tracked files exist. The returned checks are in a
//	fixed order: candidate tool, baseline tool, fixture projects,
//	tracked files. Findings are reported through check statuses; the
//	error return covers only invalid input.
//
// # Inputs
//
//   - ctx: bounds the version probe subprocesses.
//   - suite: a validated suite. Must not be nil.
//
// # Outputs
//
//   - []Check: one entry per check, in fixed order.
//   - error: nil unless the suite is nil.
func (d *Doctor) Examine(ctx context.Context, suite *matrix.Suite) ([]Check, error) {
	if suite == nil {
		return nil, errors.New("Examine: suite must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	checks := make([]Check, 4)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checks[0] = d.checkTool(gCtx, "candidate", suite.Candidate)
		return nil
	})
	g.Go(func() error {
		checks[1] = d.checkTool(gCtx, "baseline", suite.Baseline)
		return nil
	})
	g.Go(func() error {
		checks[2] = d.checkFixtures(suite)
		return nil
	})
	g.Go(func() error {
		checks[3] = d.checkTrackedFiles(suite)
		return nil
	})

	// Check findings are data, not errors; nothing to propagate.
	_ = g.Wait()

	for _, c := range checks {
		slog.Debug("preflight check",
			slog.String("check", c.Name),
			slog.String("status", c.Status.String()),
			slog.String("detail", c.Detail))
	}
	return checks, nil
}

// =============================================================================
// Individual checks
// =============================================================================

// checkTool verifies a tool binary resolves and, when the suite pins a
// minimum version, that the installed version meets it.
func (d *Doctor) checkTool(ctx context.Context, role string, spec matrix.ToolSpec) Check {
	check := Check{Name: fmt.Sprintf("%s tool (%s)", role, spec.Name)}
	if len(spec.Command) == 0 {
		check.Status = StatusFail
		check.Detail = "no command configured"
		return check
	}

	if detail, ok := d.resolveBinary(spec); !ok {
		if len(spec.Build) > 0 {
			if _, err := exec.LookPath(spec.Build[0]); err == nil {
				check.Status = StatusWarn
				check.Detail = fmt.Sprintf("binary missing; build step %q provides it", strings.Join(spec.Build, " "))
				return check
			}
			check.Status = StatusFail
			check.Detail = fmt.Sprintf("binary missing and builder %q not on PATH", spec.Build[0])
			return check
		}
		check.Status = StatusFail
		check.Detail = detail
		return check
	}

	if spec.MinVersion == "" {
		check.Status = StatusPass
		check.Detail = "executable present"
		return check
	}
	return d.checkVersion(ctx, check, spec)
}

// resolveBinary locates the tool executable. Commands containing a
// path separator resolve relative to the working directory; bare names
// resolve through PATH.
func (d *Doctor) resolveBinary(spec matrix.ToolSpec) (string, bool) {
	cmd := spec.Command[0]
	if strings.ContainsRune(cmd, '/') {
		target := cmd
		if !filepath.IsAbs(target) {
			target = filepath.Join(d.workDir, target)
		}
		if _, err := os.Stat(target); err != nil {
			return fmt.Sprintf("executable not found at %s", target), false
		}
		return "", true
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return fmt.Sprintf("%q not found on PATH", cmd), false
	}
	return "", true
}

// checkVersion runs the tool's --version and gates it against the
// suite minimum. Probe problems are warnings; only a confirmed older
// version fails the check.
func (d *Doctor) checkVersion(ctx context.Context, check Check, spec matrix.ToolSpec) Check {
	argv := make([]string, 0, len(spec.Command)+1)
	argv = append(argv, spec.Command...)
	argv = append(argv, "--version")

	out := d.runner.Run(ctx, argv, d.workDir, versionProbeTimeoutSeconds)
	if !out.Success {
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("version probe failed: %s", firstLine(out.Output))
		return check
	}

	found := versionPattern.FindString(out.Output)
	if found == "" {
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("could not parse a version from %q", firstLine(out.Output))
		return check
	}

	got := "v" + strings.TrimPrefix(found, "v")
	want := "v" + strings.TrimPrefix(spec.MinVersion, "v")
	if !semver.IsValid(got) || !semver.IsValid(want) {
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("cannot compare version %s against minimum %s", found, spec.MinVersion)
		return check
	}

	if semver.Compare(got, want) < 0 {
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("version %s is below minimum %s", found, spec.MinVersion)
		return check
	}
	check.Status = StatusPass
	check.Detail = fmt.Sprintf("version %s meets minimum %s", found, spec.MinVersion)
	return check
}

// checkFixtures verifies the fixture projects referenced by the suite
// exist. A missing default project fails the check because it is also
// the fallback for every other missing fixture.
func (d *Doctor) checkFixtures(suite *matrix.Suite) Check {
	check := Check{Name: "fixture projects"}

	root := suite.ProjectsDir
	if !filepath.IsAbs(root) {
		root = filepath.Join(d.workDir, root)
	}

	var missing []string
	defaultMissing := false
	projects := suite.Projects()
	for _, p := range projects {
		info, err := os.Stat(filepath.Join(root, p))
		if err != nil || !info.IsDir() {
			missing = append(missing, p)
			if p == suite.DefaultProject {
				defaultMissing = true
			}
		}
	}

	switch {
	case defaultMissing:
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("default project %q missing under %s", suite.DefaultProject, root)
	case len(missing) > 0:
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("missing fixture projects: %s (cases fall back to %s)",
			strings.Join(missing, ", "), suite.DefaultProject)
	default:
		check.Status = StatusPass
		check.Detail = fmt.Sprintf("all %d fixture projects present", len(projects))
	}
	return check
}

// checkTrackedFiles verifies the files the snapshot bracket protects
// exist in every fixture a mutating case targets. Missing files are
// warnings, not failures; missing fixture directories are reported by
// the fixture check, not repeated here.
func (d *Doctor) checkTrackedFiles(suite *matrix.Suite) Check {
	check := Check{Name: "tracked files"}

	projects := mutatedProjects(suite)
	if len(projects) == 0 {
		check.Status = StatusPass
		check.Detail = "no mutating cases; nothing to protect"
		return check
	}

	root := suite.ProjectsDir
	if !filepath.IsAbs(root) {
		root = filepath.Join(d.workDir, root)
	}

	var missing []string
	checked := 0
	for _, p := range projects {
		dir := filepath.Join(root, p)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		for _, name := range suite.TrackedFiles {
			checked++
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				missing = append(missing, p+"/"+name)
			}
		}
	}

	switch {
	case len(missing) > 0:
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("missing in mutated fixtures: %s (will be captured as absent)",
			strings.Join(missing, ", "))
	case checked == 0:
		check.Status = StatusWarn
		check.Detail = "no mutated fixture present to check"
	default:
		check.Status = StatusPass
		check.Detail = fmt.Sprintf("all %d tracked files present in mutated fixtures", checked)
	}
	return check
}

// mutatedProjects lists the fixture projects mutating cases target,
// sorted and without duplicates.
func mutatedProjects(suite *matrix.Suite) []string {
	set := map[string]struct{}{}
	for _, c := range suite.Cases {
		if c.Mutating {
			set[suite.ProjectFor(c)] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// firstLine trims probe output to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "(no output)"
}
