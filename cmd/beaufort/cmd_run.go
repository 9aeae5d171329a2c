// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/bench"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/charts"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/report"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/runner"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/snapshot"
	"github.com/AleutianAI/beaufort/pkg/ux"
)

// =============================================================================
// Progress
// =============================================================================

// matrixProgress bridges orchestrator callbacks to terminal output.
type matrixProgress struct {
	candidate string
	baseline  string
}

// Compile-time interface satisfaction check.
var _ bench.Observer = (*matrixProgress)(nil)

func (p *matrixProgress) CaseStarted(index, total int, c matrix.Case) {
	ux.Info(fmt.Sprintf("[%d/%d] %s", index+1, total, c.Name))
}

func (p *matrixProgress) CaseFinished(index, total int, res bench.Result) {
	icon := ux.IconSuccess
	if !res.Succeeded() {
		icon = ux.IconError
	}
	ux.CaseStatus(res.Case, icon, res.StatusLabel(p.candidate, p.baseline))
	ux.Muted(ux.ProgressBar(index+1, total, 28))
}

// =============================================================================
// Command implementation
// =============================================================================

// runBenchmark executes the run command.
//
// # Description
//
// Loads the suite, checks the environment, runs the full matrix, and
// writes the markdown report plus charts. Case failures are recorded
// in the report and never stop the run; an interrupt (Ctrl-C) stops
// between cases and still reports what finished.
//
// # Exit Codes
//
//	0 - Matrix ran and the report was written
//	1 - Suite invalid, environment not ready, build failed, or the
//	    report could not be produced
func runBenchmark(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite, err := loadSuite()
	if err != nil {
		ux.Error(fmt.Sprintf("Suite load failed: %v", err))
		os.Exit(1)
	}

	if timeoutOverride > 0 {
		// Per-case timeouts still win; this only replaces the suite default.
		suite.TimeoutSeconds = timeoutOverride
	}

	if onlyProject != "" {
		filterProject(suite, onlyProject)
		if len(suite.Cases) == 0 {
			ux.Error(fmt.Sprintf("No cases target project %q", onlyProject))
			os.Exit(1)
		}
	}

	banner(suite)

	if !skipPreflight {
		if !runPreflight(ctx, suite) {
			ux.Error("Preflight failed. Fix the findings above or pass --skip-preflight.")
			os.Exit(1)
		}
	}

	orch, err := bench.NewOrchestrator(bench.Config{
		Runner:    runner.NewExecRunner(),
		Snapshots: snapshot.NewFileManager(),
		Suite:     suite,
		WorkDir:   workDir,
		SkipBuild: skipBuild,
		Observer: &matrixProgress{
			candidate: suite.Candidate.Name,
			baseline:  suite.Baseline.Name,
		},
	})
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	run, err := orch.RunMatrix(ctx)
	switch {
	case errors.Is(err, bench.ErrBuildFailed):
		ux.Error(fmt.Sprintf("Build failed: %v", err))
		os.Exit(1)
	case errors.Is(err, bench.ErrInterrupted):
		ux.WarningBox("Interrupted", "Reporting the cases that finished.")
	case err != nil:
		ux.Error(err.Error())
		os.Exit(1)
	}

	writeReport(run)
}

// banner prints the run configuration before the matrix starts.
func banner(suite *matrix.Suite) {
	content := fmt.Sprintf("%s vs %s\nCases:    %d\nProjects: %s\nWorkdir:  %s",
		bench.DisplayName(suite.Candidate.Name),
		bench.DisplayName(suite.Baseline.Name),
		len(suite.Cases),
		strings.Join(suite.Projects(), ", "),
		workDir)
	ux.Box("Benchmark Matrix", content)
}

// filterProject narrows the suite to cases resolving to one fixture
// project, preserving declared order.
func filterProject(suite *matrix.Suite, project string) {
	var kept []matrix.Case
	for _, c := range suite.Cases {
		if suite.ProjectFor(c) == project {
			kept = append(kept, c)
		}
	}
	suite.Cases = kept
}

// writeReport renders and persists the report for a finished run.
func writeReport(run *bench.MatrixRun) {
	gen := report.NewGenerator(report.Config{
		Charts: charts.NewChartRenderer(),
		OutDir: outputDir,
	})

	var md string
	if err := ux.WithSpinner("Rendering report", func() error {
		var genErr error
		md, genErr = gen.Generate(run, !noCharts)
		return genErr
	}); err != nil {
		// The spinner already printed the failure.
		os.Exit(1)
	}
	path, err := gen.Write(md, reportName)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	if withJSON {
		jsonPath, err := gen.ExportJSON(run)
		if err != nil {
			ux.Warning(err.Error())
		} else {
			ux.Muted("Raw results: " + jsonPath)
		}
	}

	succeeded := 0
	for _, r := range run.Results {
		if r.Succeeded() {
			succeeded++
		}
	}
	ux.Summary(succeeded, len(run.Results)-succeeded, len(run.Results))
	ux.Success("Report written to " + path)
}
