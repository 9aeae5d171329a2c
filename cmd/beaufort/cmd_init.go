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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/pkg/ux"
)

// runInitSuite executes the init command.
//
// # Description
//
// Walks through an interactive form and writes a suite YAML the run
// command can consume. The generated suite is validated before it is
// written, so a suite produced here always loads.
//
// # Exit Codes
//
//	0 - Suite written, or the form was aborted
//	1 - Target exists without --force, terminal is not interactive,
//	    or the suite could not be written
func runInitSuite(cmd *cobra.Command, args []string) {
	target := "beaufort.yaml"
	if len(args) > 0 {
		target = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(target); err == nil && !force {
		ux.Error(fmt.Sprintf("%s already exists. Pass --force to overwrite.", target))
		os.Exit(1)
	}

	if !ux.IsInteractive() {
		ux.Error("beaufort init needs an interactive terminal.")
		os.Exit(1)
	}

	var (
		candidateName    = "lectern"
		candidateCommand = "./target/release/lectern"
		candidateBuild   = "cargo build --release"
		baselineName     = "composer"
		baselineCommand  = "composer"
		projectsDir      = "benchmarks"
		defaultProject   = "complex-app"
		trackedFiles     = "composer.json, composer.lock"
		timeoutSeconds   = 300
		useStandardCases = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Candidate tool name").
				Description("The tool under test.").
				Value(&candidateName).
				Validate(nonEmpty),
			huh.NewInput().
				Title("Candidate command").
				Description("Shell-style command, for example ./target/release/lectern.").
				Value(&candidateCommand).
				Validate(nonEmpty),
			huh.NewInput().
				Title("Candidate build command").
				Description("Leave empty when the binary is prebuilt.").
				Value(&candidateBuild),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Baseline tool name").
				Value(&baselineName).
				Validate(nonEmpty),
			huh.NewInput().
				Title("Baseline command").
				Value(&baselineCommand).
				Validate(nonEmpty),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Fixture projects directory").
				Value(&projectsDir).
				Validate(nonEmpty),
			huh.NewInput().
				Title("Default fixture project").
				Description("Cases without an explicit project run here.").
				Value(&defaultProject).
				Validate(nonEmpty),
			huh.NewInput().
				Title("Tracked files").
				Description("Comma-separated files to snapshot around mutating cases.").
				Value(&trackedFiles),
			huh.NewSelect[int]().
				Title("Default case timeout").
				Options(
					huh.NewOption("1 minute", 60),
					huh.NewOption("5 minutes", 300),
					huh.NewOption("10 minutes", 600),
				).
				Value(&timeoutSeconds),
			huh.NewConfirm().
				Title("Start from the standard case set?").
				Description("Thirteen cases covering install, update, search, and status flows.").
				Value(&useStandardCases),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			ux.Warning("Init aborted; nothing written.")
			return
		}
		ux.Error(err.Error())
		os.Exit(1)
	}

	suite := &matrix.Suite{
		Candidate: matrix.ToolSpec{
			Name:    candidateName,
			Command: strings.Fields(candidateCommand),
			Build:   strings.Fields(candidateBuild),
		},
		Baseline: matrix.ToolSpec{
			Name:    baselineName,
			Command: strings.Fields(baselineCommand),
		},
		ProjectsDir:    projectsDir,
		DefaultProject: defaultProject,
		TrackedFiles:   splitList(trackedFiles),
		TimeoutSeconds: timeoutSeconds,
	}

	if useStandardCases {
		if std, err := matrix.DefaultSuite(); err == nil {
			suite.Cases = std.Cases
		}
	}
	if len(suite.Cases) == 0 {
		suite.Cases = []matrix.Case{{
			Name:     "Show Status",
			Args:     []string{"status"},
			Category: matrix.CategoryAnalysis,
		}}
	}

	suite.EnsureDefaults()
	if err := suite.Validate(); err != nil {
		ux.Error(fmt.Sprintf("Generated suite is invalid: %v", err))
		os.Exit(1)
	}

	data, err := yaml.Marshal(suite)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		ux.Error(fmt.Sprintf("Could not write %s: %v", target, err))
		os.Exit(1)
	}

	ux.Success("Wrote " + target)
	ux.Muted(fmt.Sprintf("Run it with: beaufort run --suite %s", target))
}

// nonEmpty rejects blank form values.
func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value required")
	}
	return nil
}

// splitList parses a comma-separated form value into trimmed entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
