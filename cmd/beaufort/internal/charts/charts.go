// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package charts renders benchmark results as PNG charts for embedding
// in reports.
//
// Chart rendering is strictly best-effort: a chart that fails to render
// is logged and skipped, and the report degrades to a placeholder when
// nothing could be drawn. Only successful results are charted, with the
// exception of the success-rate pie, which exists to show the split.
package charts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/bench"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoData indicates no successful results exist to chart.
	ErrNoData = errors.New("no successful results to chart")
)

// =============================================================================
// Palette
// =============================================================================

var (
	candidateColor  = drawing.ColorFromHex("FF6B35")
	baselineColor   = drawing.ColorFromHex("2E86AB")
	largeColor      = drawing.ColorFromHex("00C851")
	moderateColor   = drawing.ColorFromHex("FF8800")
	comparableColor = drawing.ColorFromHex("FF4444")
	slowerColor     = drawing.ColorFromHex("757575")
)

func bucketColor(b bench.Bucket) drawing.Color {
	switch b {
	case bench.BucketLarge:
		return largeColor
	case bench.BucketModerate:
		return moderateColor
	case bench.BucketComparable:
		return comparableColor
	default:
		return slowerColor
	}
}

// =============================================================================
// Artifacts
// =============================================================================

// Artifact describes one rendered chart file.
type Artifact struct {
	// Kind is the stable chart identifier, also the file stem.
	Kind string

	// Title is the section heading the report uses for this chart.
	Title string

	// Description is the explanatory paragraph under the heading.
	Description string

	// FileName is the bare file name inside the charts directory.
	FileName string

	// Path is where the file was written.
	Path string
}

// Renderer renders a chart set for a finished matrix run.
type Renderer interface {
	// Render writes chart PNGs into dir and describes the ones that
	// rendered. A non-nil error with a non-empty artifact list means
	// some charts were skipped; ErrNoData means nothing could be drawn.
	Render(dir string, results []bench.Result, info bench.RunInfo) ([]Artifact, error)
}

// =============================================================================
// ChartRenderer
// =============================================================================

// ChartRenderer is the go-chart PNG implementation of Renderer.
//
// Thread Safety: Safe for concurrent use; the renderer holds no state.
type ChartRenderer struct{}

// Compile-time interface satisfaction check.
var _ Renderer = (*ChartRenderer)(nil)

// NewChartRenderer returns a PNG chart renderer.
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{}
}

// Render writes the chart set for a run.
//
// # Description
//
//	Renders the execution time comparison, per-case improvement factors,
//	speedup band distribution, category averages, and the success-rate
//	pie. Each chart renders independently; one failure never blocks the
//	others.
//
// # Inputs
//
//	dir - Directory to write PNGs into. Created if missing.
//	results - The full result set, in matrix order.
//	info - Run identity, used for chart titles.
//
// # Outputs
//
//	[]Artifact - Charts that rendered, in a fixed presentation order.
//	error - ErrNoData when no successful results exist, otherwise the
//	        joined render failures, if any.
func (r *ChartRenderer) Render(dir string, results []bench.Result, info bench.RunInfo) ([]Artifact, error) {
	successes := successfulResults(results)
	if len(successes) == 0 {
		return nil, ErrNoData
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart dir: %w", err)
	}

	var (
		artifacts []Artifact
		errs      []error
	)

	render := func(kind, title, description string, draw func(io.Writer) error) {
		fileName := kind + ".png"
		path := filepath.Join(dir, fileName)

		if err := renderToFile(path, draw); err != nil {
			slog.Warn("Chart render failed",
				slog.String("kind", kind),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			return
		}

		artifacts = append(artifacts, Artifact{
			Kind:        kind,
			Title:       title,
			Description: description,
			FileName:    fileName,
			Path:        path,
		})
	}

	render("time_comparison",
		"Execution Time Comparison",
		fmt.Sprintf("Side-by-side execution times per command: %s in orange, %s in blue. Shorter bars are faster.",
			info.Candidate, info.Baseline),
		func(w io.Writer) error {
			c := timeComparisonChart(successes, info)
			return c.Render(chart.PNG, w)
		})

	render("improvement_factors",
		"Per-Command Improvement Factors",
		fmt.Sprintf("How many times faster %s ran than %s on each command, colored by speedup band.",
			info.Candidate, info.Baseline),
		func(w io.Writer) error {
			c := improvementChart(successes)
			return c.Render(chart.PNG, w)
		})

	render("bucket_distribution",
		"Speedup Band Distribution",
		"How the successful commands distribute across the speedup bands.",
		func(w io.Writer) error {
			c := bucketDistributionChart(successes)
			return c.Render(chart.PNG, w)
		})

	render("category_performance",
		"Category Performance Analysis",
		"Average improvement factor per command category.",
		func(w io.Writer) error {
			c := categoryChart(successes)
			return c.Render(chart.PNG, w)
		})

	render("success_rate",
		"Success Rate",
		"How many commands completed successfully on both tools.",
		func(w io.Writer) error {
			c := successRateChart(results)
			return c.Render(chart.PNG, w)
		})

	return artifacts, errors.Join(errs...)
}

func successfulResults(results []bench.Result) []bench.Result {
	successes := make([]bench.Result, 0, len(results))
	for _, res := range results {
		if res.Succeeded() {
			successes = append(successes, res)
		}
	}
	return successes
}

func renderToFile(path string, draw func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := draw(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}

	return f.Close()
}

// =============================================================================
// Chart Builders
// =============================================================================

func secondsFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.1fs", f)
	}
	return ""
}

func ratioFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.1fx", f)
	}
	return ""
}

func countFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}

// timeComparisonChart pairs candidate and baseline duration bars per
// case. The case label sits under the candidate bar of each pair.
func timeComparisonChart(successes []bench.Result, info bench.RunInfo) chart.BarChart {
	bars := make([]chart.Value, 0, len(successes)*2)
	for _, res := range successes {
		bars = append(bars,
			chart.Value{
				Label: res.Case,
				Value: res.CandidateDuration.Seconds(),
				Style: chart.Style{FillColor: candidateColor, StrokeColor: candidateColor},
			},
			chart.Value{
				Label: "",
				Value: res.BaselineDuration.Seconds(),
				Style: chart.Style{FillColor: baselineColor, StrokeColor: baselineColor},
			},
		)
	}

	return chart.BarChart{
		Title:      fmt.Sprintf("%s (orange) vs %s (blue): execution time", info.Candidate, info.Baseline),
		Width:      1600,
		Height:     600,
		BarWidth:   30,
		BarSpacing: 12,
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			ValueFormatter: secondsFormatter,
		},
		Bars: bars,
	}
}

// improvementChart draws one ratio bar per case, colored by band.
func improvementChart(successes []bench.Result) chart.BarChart {
	bars := make([]chart.Value, 0, len(successes))
	for _, res := range successes {
		color := bucketColor(res.Bucket())
		bars = append(bars, chart.Value{
			Label: res.Case,
			Value: res.Improvement(),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	return chart.BarChart{
		Title:      "Improvement factor per command",
		Width:      1280,
		Height:     600,
		BarWidth:   48,
		BarSpacing: 16,
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			ValueFormatter: ratioFormatter,
		},
		Bars: bars,
	}
}

// bucketDistributionChart counts successful cases per speedup band.
func bucketDistributionChart(successes []bench.Result) chart.BarChart {
	counts := map[bench.Bucket]int{}
	for _, res := range successes {
		counts[res.Bucket()]++
	}

	order := []bench.Bucket{
		bench.BucketLarge,
		bench.BucketModerate,
		bench.BucketComparable,
		bench.BucketSlower,
	}

	bars := make([]chart.Value, 0, len(order))
	for _, b := range order {
		color := bucketColor(b)
		bars = append(bars, chart.Value{
			Label: b.String(),
			Value: float64(counts[b]),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	return chart.BarChart{
		Title:      "Commands per speedup band",
		Width:      1024,
		Height:     512,
		BarWidth:   80,
		BarSpacing: 24,
		YAxis: chart.YAxis{
			ValueFormatter: countFormatter,
		},
		Bars: bars,
	}
}

type categoryStat struct {
	label string
	sum   float64
	count int
}

// groupByCategory averages improvements per category, preserving the
// order categories first appear in the results.
func groupByCategory(successes []bench.Result) []categoryStat {
	index := map[string]int{}
	var stats []categoryStat

	for _, res := range successes {
		label := categoryLabel(res.Category)
		i, ok := index[label]
		if !ok {
			i = len(stats)
			index[label] = i
			stats = append(stats, categoryStat{label: label})
		}
		stats[i].sum += res.Improvement()
		stats[i].count++
	}

	return stats
}

func (s categoryStat) average() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

func categoryLabel(category string) string {
	if category == "" {
		return "Uncategorized"
	}
	runes := []rune(category)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// categoryChart draws the average improvement per command category.
func categoryChart(successes []bench.Result) chart.BarChart {
	stats := groupByCategory(successes)

	bars := make([]chart.Value, 0, len(stats))
	for _, s := range stats {
		avg := s.average()
		color := bucketColor(bench.BucketFor(avg))
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%d)", s.label, s.count),
			Value: avg,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	return chart.BarChart{
		Title:      "Average improvement by category",
		Width:      1024,
		Height:     512,
		BarWidth:   80,
		BarSpacing: 24,
		YAxis: chart.YAxis{
			ValueFormatter: ratioFormatter,
		},
		Bars: bars,
	}
}

// successRateChart splits the full result set into succeeded and failed
// slices. This is the one chart fed all results, not just successes.
func successRateChart(results []bench.Result) chart.PieChart {
	succeeded := 0
	for _, res := range results {
		if res.Succeeded() {
			succeeded++
		}
	}
	failed := len(results) - succeeded

	values := []chart.Value{
		{
			Label: fmt.Sprintf("Succeeded (%d)", succeeded),
			Value: float64(succeeded),
			Style: chart.Style{FillColor: largeColor, StrokeColor: largeColor},
		},
	}
	if failed > 0 {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("Failed (%d)", failed),
			Value: float64(failed),
			Style: chart.Style{FillColor: comparableColor, StrokeColor: comparableColor},
		})
	}

	return chart.PieChart{
		Title:  "Command success rate",
		Width:  600,
		Height: 600,
		Values: values,
	}
}
