// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/doctor"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
	"github.com/AleutianAI/beaufort/pkg/ux"
)

// TestCommandWiring verifies every subcommand is registered and the
// run command carries its flags.
func TestCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "cases", "doctor", "init"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"suite", "workdir", "personality", "log-level", "log-dir"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "missing persistent flag %q", flag)
	}
	for _, flag := range []string{"output", "report-name", "no-charts", "skip-build", "skip-preflight", "json", "project", "timeout"} {
		assert.NotNil(t, runCmd.Flags().Lookup(flag), "missing run flag %q", flag)
	}
	assert.NotNil(t, initCmd.Flags().Lookup("force"))
}

// TestLoadSuite_Default verifies an empty --suite resolves to the
// embedded suite.
func TestLoadSuite_Default(t *testing.T) {
	old := suitePath
	suitePath = ""
	t.Cleanup(func() { suitePath = old })

	suite, err := loadSuite()
	require.NoError(t, err)
	assert.NotEmpty(t, suite.Cases)
	assert.Equal(t, "lectern", suite.Candidate.Name)
}

// TestLoadSuite_File verifies --suite loads a file instead.
func TestLoadSuite_File(t *testing.T) {
	content := `
candidate:
  name: newtool
  command: ["./newtool"]
baseline:
  name: oldtool
  command: ["oldtool"]
default_project: demo
cases:
  - name: List
    args: ["list"]
`
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	old := suitePath
	suitePath = path
	t.Cleanup(func() { suitePath = old })

	suite, err := loadSuite()
	require.NoError(t, err)
	assert.Equal(t, "newtool", suite.Candidate.Name)
	require.Len(t, suite.Cases, 1)
}

// TestFilterProject verifies narrowing keeps only cases resolving to
// the requested fixture, in declared order.
func TestFilterProject(t *testing.T) {
	suite := &matrix.Suite{
		DefaultProject: "complex-app",
		Cases: []matrix.Case{
			{Name: "A"},
			{Name: "B", Project: "simple-test"},
			{Name: "C"},
			{Name: "D", Project: "simple-test"},
		},
	}

	filterProject(suite, "simple-test")
	require.Len(t, suite.Cases, 2)
	assert.Equal(t, "B", suite.Cases[0].Name)
	assert.Equal(t, "D", suite.Cases[1].Name)
}

// TestFilterProject_DefaultFixture verifies cases without an explicit
// project match the default fixture.
func TestFilterProject_DefaultFixture(t *testing.T) {
	suite := &matrix.Suite{
		DefaultProject: "complex-app",
		Cases: []matrix.Case{
			{Name: "A"},
			{Name: "B", Project: "simple-test"},
		},
	}

	filterProject(suite, "complex-app")
	require.Len(t, suite.Cases, 1)
	assert.Equal(t, "A", suite.Cases[0].Name)
}

// TestStatusIcon verifies the preflight status to icon mapping.
func TestStatusIcon(t *testing.T) {
	assert.Equal(t, ux.IconSuccess, statusIcon(doctor.StatusPass))
	assert.Equal(t, ux.IconWarning, statusIcon(doctor.StatusWarn))
	assert.Equal(t, ux.IconError, statusIcon(doctor.StatusFail))
}

// TestSplitList verifies comma parsing drops blanks and trims spaces.
func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"composer.json", "composer.lock"}, splitList("composer.json, composer.lock"))
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b ,,c "))
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
}

// TestNonEmpty verifies blank form values are rejected.
func TestNonEmpty(t *testing.T) {
	assert.NoError(t, nonEmpty("lectern"))
	assert.Error(t, nonEmpty(""))
	assert.Error(t, nonEmpty("   "))
}
