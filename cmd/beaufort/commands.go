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
	"github.com/AleutianAI/beaufort/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	logLevel         string // minimum log level (debug/info/warn/error)
	logDir           string // directory for JSON log files, empty disables
	personalityLevel string // UX personality level (full/standard/minimal/machine)
	suitePath        string // suite YAML path, empty means the embedded default
	workDir          string // directory suite-relative paths resolve against

	outputDir       string // where the report, charts, and exports land
	reportName      string // report file name override
	noCharts        bool   // skip chart rendering entirely
	skipBuild       bool   // skip tool build steps
	skipPreflight   bool   // skip the environment checks before the matrix
	withJSON        bool   // also export raw results as JSON
	onlyProject     string // narrow the matrix to one fixture project
	timeoutOverride int    // suite default timeout override, 0 keeps the suite value

	rootCmd = &cobra.Command{
		Use:     "beaufort",
		Short:   "A/B benchmark harness for package manager CLIs",
		Version: appVersion,
		Long: `Beaufort runs a benchmark matrix between a candidate tool and a
				baseline tool, protecting fixture projects around mutating cases,
				and renders the measurements as a markdown report with charts.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging()
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	// --- Benchmarking ---
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark matrix and write the report",
		Run:   runBenchmark, // Defined in cmd_run.go
	}

	casesCmd = &cobra.Command{
		Use:   "cases",
		Short: "List the cases the suite would run, in order",
		Run:   runCases, // Defined in cmd_cases.go
	}

	// --- Environment ---
	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, versions, and fixture projects before a run",
		Run:   runDoctor, // Defined in cmd_doctor.go
	}

	initCmd = &cobra.Command{
		Use:   "init [file]",
		Short: "Create a suite file interactively",
		Args:  cobra.MaximumNArgs(1),
		Run:   runInitSuite, // Defined in cmd_init.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Also write JSON logs into this directory")
	rootCmd.PersistentFlags().StringVarP(&suitePath, "suite", "s", "",
		"Suite YAML to run (default: the embedded suite)")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", ".",
		"Directory suite-relative paths resolve against")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "benchmark-results",
		"Directory for the report, charts, and exports")
	runCmd.Flags().StringVar(&reportName, "report-name", "",
		"Report file name (default: beaufort_report_{timestamp}.md)")
	runCmd.Flags().BoolVar(&noCharts, "no-charts", false,
		"Skip chart rendering and embed no images")
	runCmd.Flags().BoolVar(&skipBuild, "skip-build", false,
		"Skip tool build steps and use existing binaries")
	runCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false,
		"Skip the environment checks before the matrix")
	runCmd.Flags().BoolVar(&withJSON, "json", false,
		"Also export the raw results as JSON")
	runCmd.Flags().StringVar(&onlyProject, "project", "",
		"Run only cases that target this fixture project")
	runCmd.Flags().IntVar(&timeoutOverride, "timeout", 0,
		"Override the suite default case timeout, in seconds")

	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(doctorCmd)

	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing suite file")
}
