// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matrix defines the benchmark suite schema and its loader.
//
// A suite names the two tools under comparison and declares the case
// matrix: which subcommands run, against which fixture project, with
// which timeout, and whether the case mutates tracked files. Cases run
// in declared order and the declared order is the report order, so the
// schema is deliberately a flat list rather than a grouped tree.
//
// Suites load from YAML. When no suite file is given, the embedded
// default suite compares lectern against composer across the standard
// fixture projects.
package matrix

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// maxSuiteFileSize caps suite files at 1MB. A case matrix has no
	// business being larger than that.
	maxSuiteFileSize = 1024 * 1024

	// defaultProjectsDir is where fixture projects live relative to the
	// working directory.
	defaultProjectsDir = "benchmarks"

	// defaultTimeoutSeconds bounds cases that set no timeout of their
	// own when the suite also sets none.
	defaultTimeoutSeconds = 300

	// defaultBuildTimeoutSeconds bounds tool build commands. Release
	// builds on a cold cache can take several minutes.
	defaultBuildTimeoutSeconds = 600

	// currentVersion is the suite schema version this build understands.
	currentVersion = 1
)

// Case categories, used by the report to pick which rows feed the core
// command analysis section.
const (
	CategoryCore       = "core"
	CategoryAnalysis   = "analysis"
	CategoryDependency = "dependency"
	CategoryProject    = "project"
)

// =============================================================================
// Embedded Default Suite
// =============================================================================

//go:embed default_suite.yaml
var defaultSuiteYAML []byte

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrSuiteRead indicates the suite file could not be read.
	ErrSuiteRead = errors.New("suite file read failed")

	// ErrSuiteParse indicates the suite file is not valid YAML for the
	// suite schema.
	ErrSuiteParse = errors.New("suite file parse failed")

	// ErrSuiteInvalid indicates the suite parsed but violates the
	// schema constraints.
	ErrSuiteInvalid = errors.New("suite validation failed")
)

// =============================================================================
// Validator
// =============================================================================

var suiteValidate *validator.Validate

func init() {
	suiteValidate = validator.New()
}

// =============================================================================
// Types
// =============================================================================

// ToolSpec identifies one side of the comparison.
type ToolSpec struct {
	// Name labels the tool in progress output and the report.
	Name string `yaml:"name" validate:"required"`

	// Command is the base argument vector the tool is invoked with.
	// Case arguments are appended to it.
	Command []string `yaml:"command" validate:"min=1,dive,required"`

	// Build, when set, is run once before the matrix to produce the
	// tool binary. Typically a release build of the candidate.
	Build []string `yaml:"build,omitempty"`

	// BuildTimeoutSeconds bounds the build command. Zero selects the
	// package default.
	BuildTimeoutSeconds int `yaml:"build_timeout_seconds,omitempty" validate:"gte=0"`

	// MinVersion, when set, is the minimum tool version the doctor
	// command accepts, in semver form with or without the v prefix.
	MinVersion string `yaml:"min_version,omitempty"`
}

// Case is one row of the benchmark matrix.
type Case struct {
	// Name identifies the case in progress output and report rows.
	// Names must be unique within a suite.
	Name string `yaml:"name" validate:"required"`

	// Args is shorthand for cases where both tools take the same
	// arguments. CandidateArgs and BaselineArgs override it per side.
	Args []string `yaml:"args,omitempty"`

	// CandidateArgs are the candidate-side arguments when they differ
	// from Args.
	CandidateArgs []string `yaml:"candidate_args,omitempty"`

	// BaselineArgs are the baseline-side arguments when they differ
	// from Args.
	BaselineArgs []string `yaml:"baseline_args,omitempty"`

	// Project selects the fixture project. Empty means the suite
	// default project.
	Project string `yaml:"project,omitempty"`

	// Mutating marks cases that rewrite tracked files. Mutating cases
	// run under snapshot protection: capture before the candidate,
	// restore before the baseline, restore again after.
	Mutating bool `yaml:"mutating,omitempty"`

	// Category groups the case for report analysis.
	Category string `yaml:"category,omitempty" validate:"omitempty,oneof=core analysis dependency project"`

	// TimeoutSeconds bounds this case. Zero falls back to the suite
	// timeout.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" validate:"gte=0"`

	// Notes is free-form context carried into the report.
	Notes string `yaml:"notes,omitempty"`
}

// Suite is a full benchmark matrix definition.
//
// Thread Safety: Immutable after Load or DefaultSuite returns.
type Suite struct {
	// Version is the schema version. Only currentVersion is accepted.
	Version int `yaml:"version" validate:"gte=0"`

	// Candidate is the tool whose performance is being measured.
	Candidate ToolSpec `yaml:"candidate"`

	// Baseline is the established tool the candidate is compared
	// against.
	Baseline ToolSpec `yaml:"baseline"`

	// ProjectsDir is the directory holding fixture projects, relative
	// to the working directory unless absolute.
	ProjectsDir string `yaml:"projects_dir,omitempty"`

	// DefaultProject is the fixture used by cases that name none, and
	// the fallback when a named fixture is missing on disk.
	DefaultProject string `yaml:"default_project" validate:"required"`

	// TrackedFiles are the files snapshot protection captures and
	// restores around mutating cases.
	TrackedFiles []string `yaml:"tracked_files,omitempty" validate:"dive,required"`

	// TimeoutSeconds is the suite-wide case timeout. Zero selects the
	// package default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" validate:"gte=0"`

	// Cases is the matrix in execution order.
	Cases []Case `yaml:"cases" validate:"min=1,dive"`
}

// =============================================================================
// Defaults and Validation
// =============================================================================

// EnsureDefaults fills optional suite fields with their package
// defaults. Called by Load before validation; call it yourself when
// constructing a Suite in code.
func (s *Suite) EnsureDefaults() {
	if s.Version == 0 {
		s.Version = currentVersion
	}
	if s.ProjectsDir == "" {
		s.ProjectsDir = defaultProjectsDir
	}
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = defaultTimeoutSeconds
	}
}

// Validate checks the suite against the schema constraints.
//
// # Description
//
//	Runs struct tag validation, then the cross-field checks tags cannot
//	express: the schema version gate, per-case argument resolution,
//	case name uniqueness, and tracked file presence for suites with
//	mutating cases.
//
// # Outputs
//
//	error - Non-nil when the suite is unusable, wrapping ErrSuiteInvalid.
func (s *Suite) Validate() error {
	if err := suiteValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrSuiteInvalid, err)
	}

	if s.Version != currentVersion {
		return fmt.Errorf("%w: unsupported version %d (want %d)",
			ErrSuiteInvalid, s.Version, currentVersion)
	}

	seen := make(map[string]int, len(s.Cases))
	hasMutating := false
	for i := range s.Cases {
		c := &s.Cases[i]
		if prev, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: case %d reuses name %q from case %d",
				ErrSuiteInvalid, i, c.Name, prev)
		}
		seen[c.Name] = i

		if len(c.candidateArgs()) == 0 {
			return fmt.Errorf("%w: case %q has no candidate arguments",
				ErrSuiteInvalid, c.Name)
		}
		if len(c.baselineArgs()) == 0 {
			return fmt.Errorf("%w: case %q has no baseline arguments",
				ErrSuiteInvalid, c.Name)
		}
		if c.Mutating {
			hasMutating = true
		}
	}

	if hasMutating && len(s.TrackedFiles) == 0 {
		return fmt.Errorf("%w: suite has mutating cases but no tracked_files",
			ErrSuiteInvalid)
	}

	return nil
}

// =============================================================================
// Resolution
// =============================================================================

func (c *Case) candidateArgs() []string {
	if len(c.CandidateArgs) > 0 {
		return c.CandidateArgs
	}
	return c.Args
}

func (c *Case) baselineArgs() []string {
	if len(c.BaselineArgs) > 0 {
		return c.BaselineArgs
	}
	return c.Args
}

// CandidateArgv returns the full candidate argument vector for a case:
// the candidate base command followed by the case arguments.
func (s *Suite) CandidateArgv(c Case) []string {
	argv := make([]string, 0, len(s.Candidate.Command)+len(c.candidateArgs()))
	argv = append(argv, s.Candidate.Command...)
	return append(argv, c.candidateArgs()...)
}

// BaselineArgv returns the full baseline argument vector for a case.
func (s *Suite) BaselineArgv(c Case) []string {
	argv := make([]string, 0, len(s.Baseline.Command)+len(c.baselineArgs()))
	argv = append(argv, s.Baseline.Command...)
	return append(argv, c.baselineArgs()...)
}

// TimeoutFor resolves the effective timeout for a case: the case
// timeout when set, otherwise the suite timeout, otherwise the package
// default.
func (s *Suite) TimeoutFor(c Case) int {
	if c.TimeoutSeconds > 0 {
		return c.TimeoutSeconds
	}
	if s.TimeoutSeconds > 0 {
		return s.TimeoutSeconds
	}
	return defaultTimeoutSeconds
}

// ProjectFor resolves the fixture project name for a case. Whether that
// project exists on disk is the orchestrator's concern, not the
// schema's.
func (s *Suite) ProjectFor(c Case) string {
	if c.Project != "" {
		return c.Project
	}
	return s.DefaultProject
}

// Projects returns every fixture project the suite references, sorted
// and without duplicates.
func (s *Suite) Projects() []string {
	set := map[string]struct{}{s.DefaultProject: {}}
	for i := range s.Cases {
		set[s.ProjectFor(s.Cases[i])] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildTimeout resolves the build timeout for a tool.
func (t *ToolSpec) BuildTimeout() int {
	if t.BuildTimeoutSeconds > 0 {
		return t.BuildTimeoutSeconds
	}
	return defaultBuildTimeoutSeconds
}

// =============================================================================
// Loading
// =============================================================================

// Load reads, parses, and validates a suite file.
//
// # Description
//
//	Reads the YAML suite at path, fills defaults, and validates it.
//	Oversized files are rejected before reading.
//
// # Inputs
//
//	path - Suite file path. Must not be empty.
//
// # Outputs
//
//	*Suite - The validated suite. Nil on error.
//	error - Wraps ErrSuiteRead, ErrSuiteParse, or ErrSuiteInvalid.
//
// # Example
//
//	suite, err := matrix.Load("bench.yaml")
//	if err != nil {
//	    return fmt.Errorf("loading suite: %w", err)
//	}
func Load(path string) (*Suite, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSuiteRead)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuiteRead, err)
	}
	if info.Size() > maxSuiteFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)",
			ErrSuiteRead, path, info.Size(), maxSuiteFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuiteRead, err)
	}

	suite, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Debug("Loaded benchmark suite",
		slog.String("path", path),
		slog.String("candidate", suite.Candidate.Name),
		slog.String("baseline", suite.Baseline.Name),
		slog.Int("cases", len(suite.Cases)))

	return suite, nil
}

// DefaultSuite returns the embedded lectern-versus-composer suite.
func DefaultSuite() (*Suite, error) {
	suite, err := parse(defaultSuiteYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded default suite: %w", err)
	}

	slog.Debug("Using embedded default suite",
		slog.Int("cases", len(suite.Cases)))

	return suite, nil
}

func parse(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuiteParse, err)
	}

	suite.EnsureDefaults()
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	return &suite, nil
}
