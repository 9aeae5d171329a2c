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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beaufort/pkg/ux"
)

// runDoctor executes the standalone preflight command. The same checks
// run automatically before every benchmark unless --skip-preflight is
// set.
func runDoctor(cmd *cobra.Command, _ []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	suite, err := loadSuite()
	if err != nil {
		ux.Error(fmt.Sprintf("Suite load failed: %v", err))
		os.Exit(1)
	}

	ux.Title("Preflight")
	if !runPreflight(ctx, suite) {
		ux.Error("Environment is not ready to benchmark.")
		os.Exit(1)
	}
	ux.Success("Environment is ready to benchmark.")
}
