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
	"log/slog"
	"os"

	"github.com/AleutianAI/beaufort/pkg/logging"
)

// appVersion is reported by --version.
const appVersion = "0.3.0"

// logger is rebuilt from persistent flags before any command runs;
// Close flushes the optional log file.
var logger *logging.Logger

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Close()
	}
	if err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initLogging installs the flag-configured logger as the slog default
// so every package logs through it.
func initLogging() {
	logger = logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		LogDir:  logDir,
		Service: "beaufort",
	})
	slog.SetDefault(logger.Slog())
}
