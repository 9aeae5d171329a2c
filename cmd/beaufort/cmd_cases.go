package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/bench"
	"github.com/AleutianAI/beaufort/pkg/ux"
)

// runCases lists the suite cases in the order the matrix would run
// them, with the resolved project and timeout for each.
func runCases(cmd *cobra.Command, _ []string) {
	suite, err := loadSuite()
	if err != nil {
		ux.Error(fmt.Sprintf("Suite load failed: %v", err))
		os.Exit(1)
	}

	ux.Title(fmt.Sprintf("%s vs %s: %d cases",
		bench.DisplayName(suite.Candidate.Name),
		bench.DisplayName(suite.Baseline.Name),
		len(suite.Cases)))

	for i, c := range suite.Cases {
		icon := ux.IconBullet
		if c.Mutating {
			// Mutating cases rewrite tracked files and run inside a
			// snapshot bracket.
			icon = ux.IconWarning
		}

		category := c.Category
		if category == "" {
			category = "uncategorized"
		}
		detail := fmt.Sprintf("%s, %s, %ds", suite.ProjectFor(c), category, suite.TimeoutFor(c))
		ux.CaseStatus(fmt.Sprintf("%2d. %s", i+1, c.Name), icon, detail)
	}
}
