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

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/doctor"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/runner"
	"github.com/AleutianAI/beaufort/pkg/ux"
)

// loadSuite resolves the --suite flag into a validated suite.
func loadSuite() (*matrix.Suite, error) {
	if suitePath == "" {
		return matrix.DefaultSuite()
	}
	return matrix.Load(suitePath)
}

// statusIcon maps a preflight status to its terminal icon.
func statusIcon(s doctor.Status) ux.Icon {
	switch s {
	case doctor.StatusPass:
		return ux.IconSuccess
	case doctor.StatusWarn:
		return ux.IconWarning
	default:
		return ux.IconError
	}
}

// runPreflight executes the doctor checks and prints the findings.
// Returns false when the environment cannot support a run.
func runPreflight(ctx context.Context, suite *matrix.Suite) bool {
	doc, err := doctor.New(runner.NewExecRunner(), workDir)
	if err != nil {
		ux.Error(err.Error())
		return false
	}

	// Version probes can take a while when a tool hangs on --version.
	spin := ux.NewSpinner("Probing tools and fixtures")
	spin.Start()
	checks, err := doc.Examine(ctx, suite)
	spin.Stop()
	if err != nil {
		ux.Error(err.Error())
		return false
	}
	for _, c := range checks {
		ux.CaseStatus(c.Name, statusIcon(c.Status), c.Detail)
	}
	return doctor.Healthy(checks)
}
