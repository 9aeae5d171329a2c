// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner executes external commands with a hard timeout and
// converts every failure mode into data.
//
// The runner is the only component in beaufort allowed to spawn
// processes. Timeouts and launch failures are never surfaced as Go
// errors; they are downgraded into a failed Outcome so that a broken
// command becomes a data point in the benchmark matrix instead of
// aborting it.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// DefaultTimeoutSeconds bounds commands that do not carry an
	// explicit per-case timeout.
	DefaultTimeoutSeconds = 300

	// launchExitCode is reported when no process exit status exists
	// (spawn failure or kill by timeout).
	launchExitCode = -1
)

// =============================================================================
// Outcome
// =============================================================================

// Outcome is the observed result of one command execution.
//
// Thread Safety: Immutable after creation by the runner.
type Outcome struct {
	// Duration is wall-clock time from just before spawn until the
	// process exited, was killed, or failed to launch.
	Duration time.Duration `json:"duration"`

	// Success is true iff the process exited normally with status zero
	// before the timeout.
	Success bool `json:"success"`

	// Output is stdout followed by stderr as one text blob. On timeout
	// it holds a literal timeout note; on launch failure it holds the
	// error text.
	Output string `json:"output"`

	// ExitCode is the process exit status, or -1 when the process was
	// killed or never started.
	ExitCode int `json:"exit_code"`

	// TimedOut is true when the command was killed by the timeout.
	TimedOut bool `json:"timed_out"`
}

// =============================================================================
// Runner Interface
// =============================================================================

// Runner executes one external command to completion.
//
// # Description
//
// Run starts argv[0] with the remaining argv elements as arguments in
// the given working directory, bounded by timeoutSeconds. All failure
// modes (non-zero exit, timeout, missing executable, permission error)
// are reported through the returned Outcome, never as a raised error.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use, though the
// benchmark matrix itself runs commands strictly sequentially.
type Runner interface {
	Run(ctx context.Context, argv []string, dir string, timeoutSeconds int) Outcome
}

// =============================================================================
// ExecRunner
// =============================================================================

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Compile-time interface satisfaction check
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a process-backed Runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and reports the outcome.
//
// # Description
//
// Captures stdout and stderr into buffers, measures elapsed wall-clock
// time around the process lifetime, and classifies the result:
//
//   - normal zero exit         -> Success true, combined output
//   - non-zero exit            -> Success false, combined output, exit code
//   - timeout                  -> Success false, literal timeout note, TimedOut
//   - spawn failure            -> Success false, error text as output
//
// # Inputs
//
//   - ctx: Parent context. The runner derives its own timeout from it.
//   - argv: Argument vector; argv[0] is the executable.
//   - dir: Working directory for the process.
//   - timeoutSeconds: Kill the process after this many seconds. Values
//     <= 0 fall back to DefaultTimeoutSeconds.
//
// # Outputs
//
//   - Outcome: The observed execution result. Never an error.
func (r *ExecRunner) Run(ctx context.Context, argv []string, dir string, timeoutSeconds int) Outcome {
	if len(argv) == 0 {
		return Outcome{
			Success:  false,
			Output:   "empty argument vector",
			ExitCode: launchExitCode,
		}
	}

	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		slog.Warn("Command timed out",
			slog.String("command", argv[0]),
			slog.Int("timeout_seconds", timeoutSeconds),
			slog.Duration("elapsed", elapsed),
		)
		return Outcome{
			Duration: elapsed,
			Success:  false,
			Output:   fmt.Sprintf("Command timed out after %ds", timeoutSeconds),
			ExitCode: launchExitCode,
			TimedOut: true,
		}
	}

	output := stdout.String() + stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Debug("Command exited non-zero",
				slog.String("command", argv[0]),
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.Duration("elapsed", elapsed),
			)
			return Outcome{
				Duration: elapsed,
				Success:  false,
				Output:   output,
				ExitCode: exitErr.ExitCode(),
			}
		}

		// Spawn failed: missing executable, permission error, bad dir.
		slog.Warn("Command failed to launch",
			slog.String("command", argv[0]),
			slog.String("error", err.Error()),
		)
		return Outcome{
			Duration: elapsed,
			Success:  false,
			Output:   err.Error(),
			ExitCode: launchExitCode,
		}
	}

	slog.Debug("Command completed",
		slog.String("command", argv[0]),
		slog.Duration("elapsed", elapsed),
	)

	return Outcome{
		Duration: elapsed,
		Success:  true,
		Output:   output,
		ExitCode: 0,
	}
}
