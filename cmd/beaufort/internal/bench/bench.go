// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench runs a benchmark matrix and collects its results.
//
// The orchestrator walks the suite in declared order, one case at a
// time, and produces exactly one Result per case. A failing command is
// a measurement, not an error: nothing a tool does can halt the matrix.
// The only fatal paths are a failed tool build before the matrix starts
// and cancellation of the run context.
//
// Mutating cases run inside a snapshot bracket: capture the tracked
// files, run the candidate, restore, run the baseline, restore again.
// Both sides therefore see the fixture in its captured state, and the
// fixture leaves the run as it entered it.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/runner"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/snapshot"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrBuildFailed indicates a tool build command failed before the
	// matrix started.
	ErrBuildFailed = errors.New("tool build failed")

	// ErrInterrupted indicates the run context was canceled between
	// cases. Results collected up to that point are still returned.
	ErrInterrupted = errors.New("matrix run interrupted")
)

// =============================================================================
// Observer
// =============================================================================

// Observer receives case lifecycle notifications during a matrix run.
// Implementations must not block; the run is single-threaded and every
// callback delays the next case.
type Observer interface {
	// CaseStarted fires before a case runs. Index is zero-based.
	CaseStarted(index, total int, c matrix.Case)

	// CaseFinished fires after a case produced its result.
	CaseFinished(index, total int, res Result)
}

// =============================================================================
// Orchestrator
// =============================================================================

// Config assembles an Orchestrator.
type Config struct {
	// Runner executes tool commands. Must not be nil.
	Runner runner.Runner

	// Snapshots protects tracked files around mutating cases. Must not
	// be nil.
	Snapshots snapshot.Manager

	// Suite is the validated matrix to run. Must not be nil.
	Suite *matrix.Suite

	// WorkDir is the directory the suite's relative paths resolve
	// against. Empty means the current directory.
	WorkDir string

	// SkipBuild skips tool build commands, for runs against
	// already-built binaries.
	SkipBuild bool

	// Observer receives case notifications. May be nil.
	Observer Observer
}

// Orchestrator runs benchmark matrices.
//
// Thread Safety: Not safe for concurrent use. One matrix run owns the
// fixture directories exclusively; running two matrices at once would
// interleave mutating cases on shared fixtures.
type Orchestrator struct {
	runner    runner.Runner
	snapshots snapshot.Manager
	suite     *matrix.Suite
	workDir   string
	skipBuild bool
	observer  Observer
}

// NewOrchestrator validates the config and returns an orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("NewOrchestrator: runner must not be nil")
	}
	if cfg.Snapshots == nil {
		return nil, fmt.Errorf("NewOrchestrator: snapshot manager must not be nil")
	}
	if cfg.Suite == nil {
		return nil, fmt.Errorf("NewOrchestrator: suite must not be nil")
	}

	return &Orchestrator{
		runner:    cfg.Runner,
		snapshots: cfg.Snapshots,
		suite:     cfg.Suite,
		workDir:   cfg.WorkDir,
		skipBuild: cfg.SkipBuild,
		observer:  cfg.Observer,
	}, nil
}

// MatrixRun bundles the results of one matrix run with its identity.
type MatrixRun struct {
	Info    RunInfo  `json:"info"`
	Results []Result `json:"results"`
}

// RunMatrix builds the tools, then runs every case in declared order.
//
// # Description
//
//	Produces exactly one Result per suite case, in suite order. Case
//	failures of any kind are recorded in the Result and never halt the
//	run. The returned error is non-nil only for a failed build
//	(ErrBuildFailed) or a canceled context (ErrInterrupted); on
//	interruption the results collected so far are still returned.
//
// # Inputs
//
//	ctx - Governs the whole run. Must not be nil.
//
// # Outputs
//
//	*MatrixRun - Run identity plus per-case results. Nil only when the
//	             build fails or ctx is nil.
//	error - ErrBuildFailed, ErrInterrupted, or nil.
func (o *Orchestrator) RunMatrix(ctx context.Context) (*MatrixRun, error) {
	if ctx == nil {
		return nil, fmt.Errorf("RunMatrix: ctx must not be nil")
	}

	start := time.Now()
	run := &MatrixRun{
		Info: RunInfo{
			RunID:     uuid.NewString()[:12],
			Candidate: o.suite.Candidate.Name,
			Baseline:  o.suite.Baseline.Name,
			Projects:  o.suite.Projects(),
			StartedAt: start.UTC(),
		},
		Results: make([]Result, 0, len(o.suite.Cases)),
	}

	slog.Info("Matrix run starting",
		slog.String("run_id", run.Info.RunID),
		slog.String("candidate", run.Info.Candidate),
		slog.String("baseline", run.Info.Baseline),
		slog.Int("cases", len(o.suite.Cases)))

	if err := o.buildTool(ctx, o.suite.Candidate); err != nil {
		return nil, err
	}
	if err := o.buildTool(ctx, o.suite.Baseline); err != nil {
		return nil, err
	}

	total := len(o.suite.Cases)
	for i, c := range o.suite.Cases {
		if ctx.Err() != nil {
			run.Info.Duration = time.Since(start)
			return run, fmt.Errorf("%w: after %d of %d cases: %v",
				ErrInterrupted, i, total, ctx.Err())
		}

		if o.observer != nil {
			o.observer.CaseStarted(i, total, c)
		}

		res := o.runCase(ctx, c)
		run.Results = append(run.Results, res)

		if o.observer != nil {
			o.observer.CaseFinished(i, total, res)
		}
	}

	run.Info.Duration = time.Since(start)

	slog.Info("Matrix run finished",
		slog.String("run_id", run.Info.RunID),
		slog.Int("results", len(run.Results)),
		slog.Duration("elapsed", run.Info.Duration))

	return run, nil
}

// buildTool runs a tool's build command, if it declares one.
func (o *Orchestrator) buildTool(ctx context.Context, spec matrix.ToolSpec) error {
	if len(spec.Build) == 0 {
		return nil
	}
	if o.skipBuild {
		slog.Info("Skipping tool build", slog.String("tool", spec.Name))
		return nil
	}

	slog.Info("Building tool",
		slog.String("tool", spec.Name),
		slog.String("command", strings.Join(spec.Build, " ")))

	out := o.runner.Run(ctx, spec.Build, o.workDir, spec.BuildTimeout())
	if !out.Success {
		return fmt.Errorf("%w: %s: %s",
			ErrBuildFailed, spec.Name, strings.TrimSpace(out.Output))
	}

	slog.Info("Tool built",
		slog.String("tool", spec.Name),
		slog.Duration("elapsed", out.Duration))

	return nil
}

// runCase executes one case: snapshot bracket, candidate, baseline.
// Never fails; every outcome becomes part of the Result.
func (o *Orchestrator) runCase(ctx context.Context, c matrix.Case) Result {
	project, dir := o.resolveFixture(c)
	timeout := o.suite.TimeoutFor(c)

	slog.Info("Case starting",
		slog.String("case", c.Name),
		slog.String("project", project),
		slog.Int("timeout_seconds", timeout),
		slog.Bool("mutating", c.Mutating))

	var snap *snapshot.Snapshot
	if c.Mutating {
		var err error
		snap, err = o.snapshots.Capture(dir, o.suite.TrackedFiles)
		if err != nil {
			// Partial captures are still restorable for the files they
			// hold; the failure is logged, not fatal.
			slog.Warn("Snapshot capture incomplete",
				slog.String("case", c.Name),
				slog.String("error", err.Error()))
		}
	}

	cand := o.runner.Run(ctx, o.suite.CandidateArgv(c), dir, timeout)
	o.logOutcome(c.Name, o.suite.Candidate.Name, cand)
	restoreFailed := !o.restore(c, dir, snap)

	base := o.runner.Run(ctx, o.suite.BaselineArgv(c), dir, timeout)
	o.logOutcome(c.Name, o.suite.Baseline.Name, base)
	if !o.restore(c, dir, snap) {
		restoreFailed = true
	}

	notes := c.Notes
	if restoreFailed {
		notes = joinNotes(notes, "restore incomplete: tracked files may be stale")
	}

	return Result{
		Case:              c.Name,
		Category:          c.Category,
		Project:           project,
		CandidateDuration: cand.Duration,
		BaselineDuration:  base.Duration,
		CandidateSuccess:  cand.Success,
		BaselineSuccess:   base.Success,
		Notes:             notes,
	}
}

// resolveFixture returns the project name and directory a case runs in,
// falling back to the default project when the named fixture is missing
// on disk.
func (o *Orchestrator) resolveFixture(c matrix.Case) (string, string) {
	project := o.suite.ProjectFor(c)
	dir := filepath.Join(o.projectsRoot(), project)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return project, dir
	}

	slog.Warn("Fixture project missing, using default",
		slog.String("case", c.Name),
		slog.String("project", project),
		slog.String("fallback", o.suite.DefaultProject))

	project = o.suite.DefaultProject
	return project, filepath.Join(o.projectsRoot(), project)
}

func (o *Orchestrator) projectsRoot() string {
	if filepath.IsAbs(o.suite.ProjectsDir) {
		return o.suite.ProjectsDir
	}
	return filepath.Join(o.workDir, o.suite.ProjectsDir)
}

// restore puts tracked files back after a mutating side ran. Returns
// true when there was nothing to restore or the restore completed.
func (o *Orchestrator) restore(c matrix.Case, dir string, snap *snapshot.Snapshot) bool {
	if !c.Mutating || snap == nil {
		return true
	}

	if err := o.snapshots.Restore(dir, snap); err != nil {
		slog.Warn("Snapshot restore incomplete",
			slog.String("case", c.Name),
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		return false
	}

	return true
}

func (o *Orchestrator) logOutcome(caseName, tool string, out runner.Outcome) {
	if out.Success {
		slog.Debug("Command succeeded",
			slog.String("case", caseName),
			slog.String("tool", tool),
			slog.Duration("elapsed", out.Duration))
		return
	}

	slog.Warn("Command failed",
		slog.String("case", caseName),
		slog.String("tool", tool),
		slog.Duration("elapsed", out.Duration),
		slog.Int("exit_code", out.ExitCode),
		slog.Bool("timed_out", out.TimedOut))
}

func joinNotes(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + "; " + extra
}
