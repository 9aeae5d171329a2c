// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders a finished benchmark matrix into a markdown
// report, with optional embedded charts and a raw JSON export of the
// run data.
//
// The report template draws exclusively from the typed Fields schema.
// Every placeholder resolves against a struct field, so a placeholder
// that no longer matches the schema fails the render instead of
// leaking into the output as literal text. A failed render is fatal to
// the caller; a failed chart is not, and degrades to a placeholder
// line inside an otherwise complete report.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/bench"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/charts"
	"github.com/AleutianAI/beaufort/cmd/beaufort/internal/matrix"
)

//go:embed template.md
var reportTemplateMD string

// reportTmpl is parsed once at startup; the template ships with the
// binary, so a parse failure is a build defect, not a runtime case.
var reportTmpl = template.Must(template.New("report").Parse(reportTemplateMD))

// =============================================================================
// Constants
// =============================================================================

const (
	// defaultOutDir is where reports, exports, and charts land unless
	// the caller overrides it.
	defaultOutDir = "benchmark-results"

	// chartsDirName is the charts subdirectory under the output
	// directory. Report image links are relative to the report file,
	// so the report and this directory must stay siblings.
	chartsDirName = "charts"

	// stampLayout names output files down to the second.
	stampLayout = "20060102_150405"

	// chartsPlaceholder replaces the charts section when nothing could
	// be rendered.
	chartsPlaceholder = "\n*Charts could not be generated due to an error.*\n"

	// defaultCaseNotes fills the notes line for core commands that
	// carry no annotations.
	defaultCaseNotes = "Standard operation"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrTemplate indicates the report template failed to render.
	ErrTemplate = errors.New("report template rendering failed")

	// ErrWrite indicates the report file could not be written.
	ErrWrite = errors.New("report write failed")

	// ErrExport indicates the JSON results export could not be written.
	ErrExport = errors.New("results export failed")
)

// =============================================================================
// Fields
// =============================================================================

// Fields is the complete value schema the report template renders
// from. Aggregates are computed over successful results only; a case
// where either tool failed contributes a table row and an issue entry
// but never an improvement figure.
type Fields struct {
	// GeneratedAt is the report creation time, to the second.
	GeneratedAt string

	// TestDate is the date the matrix ran.
	TestDate string

	// RunID identifies the run the report describes.
	RunID string

	// Candidate is the candidate tool display name.
	Candidate string

	// Baseline is the baseline tool display name.
	Baseline string

	// Elapsed is the wall-clock time of the whole run.
	Elapsed string

	// TotalCases counts every case in the matrix.
	TotalCases int

	// SuccessfulCases counts cases where both tools succeeded.
	SuccessfulCases int

	// FailedCases counts cases where either tool failed.
	FailedCases int

	// AvgImprovement is the mean improvement ratio across successful
	// cases with a positive ratio, or 0 when there are none.
	AvgImprovement float64

	// BestImprovement is the largest such ratio, or 0.
	BestImprovement float64

	// ResultsTable holds one markdown table row per case, in case
	// order, failures included.
	ResultsTable string

	// LargeCount and LargeList describe cases at 10x and above.
	LargeCount int
	LargeList  string

	// ModerateCount and ModerateList describe cases from 2x to 10x.
	ModerateCount int
	ModerateList  string

	// ComparableCount and ComparableList describe cases from 0.5x to
	// 2x.
	ComparableCount int
	ComparableList  string

	// SlowerCount and SlowerList describe cases below 0.5x. Slower
	// cases get their own section rather than disappearing from the
	// breakdown.
	SlowerCount int
	SlowerList  string

	// CoreAnalysis holds the per-command breakdown of core cases.
	CoreAnalysis string

	// IssuesSection describes failed cases, or is empty when every
	// case succeeded.
	IssuesSection string

	// ChartsSection embeds rendered charts, holds the placeholder when
	// rendering failed, or is empty when charts were not requested.
	ChartsSection string

	// Projects is the comma-joined list of fixture projects.
	Projects string
}

// =============================================================================
// Generator
// =============================================================================

// Config carries the report generator dependencies.
type Config struct {
	// Charts renders the visualization set. With a nil renderer a
	// charts request degrades to the placeholder.
	Charts charts.Renderer

	// OutDir is the output directory for reports, exports, and
	// charts. Empty means defaultOutDir.
	OutDir string
}

// Generator turns matrix runs into markdown reports and JSON exports.
//
// Thread Safety: Safe for concurrent use; the generator holds only
// immutable configuration.
type Generator struct {
	charts charts.Renderer
	outDir string
	tmpl   *template.Template
}

// NewGenerator returns a report generator for the given configuration.
func NewGenerator(cfg Config) *Generator {
	outDir := cfg.OutDir
	if outDir == "" {
		outDir = defaultOutDir
	}
	return &Generator{
		charts: cfg.Charts,
		outDir: outDir,
		tmpl:   reportTmpl,
	}
}

// OutDir returns the directory the generator writes into.
func (g *Generator) OutDir() string {
	return g.outDir
}

// Generate renders the markdown report for a run.
//
// # Description
//
//	Builds the typed field set from the run, optionally renders charts
//	into the charts subdirectory, and executes the report template.
//	Failed cases appear in the results table and the issues section but
//	are excluded from every aggregate. Chart rendering is best-effort;
//	template execution is not, and an execution failure is returned to
//	the caller.
//
// # Inputs
//
//   - run: the finished matrix run. Must not be nil.
//   - includeCharts: whether to render and embed charts.
//
// # Outputs
//
//   - string: the rendered markdown report.
//   - error: nil, or a render failure wrapping ErrTemplate.
//
// # Example
//
//	gen := report.NewGenerator(report.Config{Charts: charts.NewChartRenderer()})
//	md, err := gen.Generate(run, true)
func (g *Generator) Generate(run *bench.MatrixRun, includeCharts bool) (string, error) {
	if run == nil {
		return "", errors.New("Generate: run must not be nil")
	}

	fields := g.buildFields(run, g.chartsSection(run, includeCharts))

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	slog.Debug("report rendered",
		slog.String("run_id", run.Info.RunID),
		slog.Int("cases", len(run.Results)),
		slog.Bool("charts", includeCharts))
	return buf.String(), nil
}

// Write persists a rendered report under the output directory and
// returns its path. An empty name gets a timestamped default.
func (g *Generator) Write(markdown, name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("beaufort_report_%s.md", time.Now().Format(stampLayout))
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	outPath := filepath.Join(g.outDir, name)
	if err := os.WriteFile(outPath, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	slog.Info("report written", slog.String("path", outPath))
	return outPath, nil
}

// ExportJSON persists the raw run data as indented JSON under the
// output directory and returns its path.
func (g *Generator) ExportJSON(run *bench.MatrixRun) (string, error) {
	if run == nil {
		return "", errors.New("ExportJSON: run must not be nil")
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExport, err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExport, err)
	}

	name := fmt.Sprintf("beaufort_results_%s.json", time.Now().Format(stampLayout))
	outPath := filepath.Join(g.outDir, name)
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExport, err)
	}

	slog.Info("results exported", slog.String("path", outPath))
	return outPath, nil
}

// =============================================================================
// Field assembly
// =============================================================================

func (g *Generator) buildFields(run *bench.MatrixRun, chartsSection string) Fields {
	info := run.Info
	succ := successful(run.Results)

	var avg, best float64
	if ratios := positiveRatios(succ); len(ratios) > 0 {
		var sum float64
		for _, r := range ratios {
			sum += r
			if r > best {
				best = r
			}
		}
		avg = sum / float64(len(ratios))
	}

	large, moderate, comparable, slower := partitionBuckets(succ)

	return Fields{
		GeneratedAt:     time.Now().Format("2006-01-02 15:04:05"),
		TestDate:        info.StartedAt.Format("2006-01-02"),
		RunID:           info.RunID,
		Candidate:       bench.DisplayName(info.Candidate),
		Baseline:        bench.DisplayName(info.Baseline),
		Elapsed:         info.Duration.Round(time.Second).String(),
		TotalCases:      len(run.Results),
		SuccessfulCases: len(succ),
		FailedCases:     len(run.Results) - len(succ),
		AvgImprovement:  avg,
		BestImprovement: best,
		ResultsTable:    resultsTable(run.Results, info),
		LargeCount:      len(large),
		LargeList:       speedupLines(large),
		ModerateCount:   len(moderate),
		ModerateList:    speedupLines(moderate),
		ComparableCount: len(comparable),
		ComparableList:  ratioLines(comparable),
		SlowerCount:     len(slower),
		SlowerList:      ratioLines(slower),
		CoreAnalysis:    coreAnalysis(run.Results, info),
		IssuesSection:   issuesSection(run.Results, info),
		ChartsSection:   chartsSection,
		Projects:        strings.Join(info.Projects, ", "),
	}
}

// successful filters to cases where both tools succeeded, preserving
// case order.
func successful(results []bench.Result) []bench.Result {
	var out []bench.Result
	for _, r := range results {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// positiveRatios collects the improvement ratios that carry signal.
func positiveRatios(results []bench.Result) []float64 {
	var out []float64
	for _, r := range results {
		if ratio := r.Improvement(); ratio > 0 {
			out = append(out, ratio)
		}
	}
	return out
}

// partitionBuckets splits successful results into the four speedup
// bands, preserving case order within each band.
func partitionBuckets(results []bench.Result) (large, moderate, comparable, slower []bench.Result) {
	for _, r := range results {
		switch r.Bucket() {
		case bench.BucketLarge:
			large = append(large, r)
		case bench.BucketModerate:
			moderate = append(moderate, r)
		case bench.BucketComparable:
			comparable = append(comparable, r)
		default:
			slower = append(slower, r)
		}
	}
	return large, moderate, comparable, slower
}

// =============================================================================
// Section builders
// =============================================================================

// resultsTable renders one row per case, failures included.
func resultsTable(results []bench.Result, info bench.RunInfo) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %.3fs | %.3fs | %.1fx | %s |\n",
			r.Case,
			r.CandidateDuration.Seconds(),
			r.BaselineDuration.Seconds(),
			r.Improvement(),
			r.StatusLabel(info.Candidate, info.Baseline))
	}
	return strings.TrimRight(b.String(), "\n")
}

// speedupLines renders the list entries for the large and moderate
// bands, showing the baseline-to-candidate time drop.
func speedupLines(results []bench.Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- **%s**: %.1fx faster (%.3fs → %.3fs)\n",
			r.Case,
			r.Improvement(),
			r.BaselineDuration.Seconds(),
			r.CandidateDuration.Seconds())
	}
	return strings.TrimRight(b.String(), "\n")
}

// ratioLines renders the list entries for the comparable and slower
// bands, where a directional arrow would overstate the difference.
func ratioLines(results []bench.Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- **%s**: %.1fx (%.3fs vs %.3fs)\n",
			r.Case,
			r.Improvement(),
			r.CandidateDuration.Seconds(),
			r.BaselineDuration.Seconds())
	}
	return strings.TrimRight(b.String(), "\n")
}

// coreAnalysis renders a detail block for every core-category case,
// failures included so a broken core command stays visible.
func coreAnalysis(results []bench.Result, info bench.RunInfo) string {
	var b strings.Builder
	for _, r := range results {
		if r.Category != matrix.CategoryCore {
			continue
		}
		notes := r.Notes
		if notes == "" {
			notes = defaultCaseNotes
		}
		fmt.Fprintf(&b, "#### %s\n\n", r.Case)
		fmt.Fprintf(&b, "- **Performance**: %.1fx faster\n", r.Improvement())
		fmt.Fprintf(&b, "- **%s**: %.3fs\n", bench.DisplayName(info.Candidate), r.CandidateDuration.Seconds())
		fmt.Fprintf(&b, "- **%s**: %.3fs\n", bench.DisplayName(info.Baseline), r.BaselineDuration.Seconds())
		fmt.Fprintf(&b, "- **Status**: %s\n", r.StatusLabel(info.Candidate, info.Baseline))
		fmt.Fprintf(&b, "- **Notes**: %s\n\n", notes)
	}
	if b.Len() == 0 {
		return "_No core commands in this run._"
	}
	return strings.TrimRight(b.String(), "\n")
}

// issuesSection renders a block per failed case, or nothing when every
// case succeeded.
func issuesSection(results []bench.Result, info bench.RunInfo) string {
	var failed []bench.Result
	for _, r := range results {
		if !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Issues Found\n\nThe following cases encountered problems:\n")
	for _, r := range failed {
		fmt.Fprintf(&b, "\n### %s\n\n", r.Case)
		fmt.Fprintf(&b, "- **%s Success**: %s\n", bench.DisplayName(info.Candidate), passMark(r.CandidateSuccess))
		fmt.Fprintf(&b, "- **%s Success**: %s\n", bench.DisplayName(info.Baseline), passMark(r.BaselineSuccess))
		if r.Notes != "" {
			fmt.Fprintf(&b, "- **Notes**: %s\n", r.Notes)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func passMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// chartsSection renders charts into the charts subdirectory and builds
// the embed section. Any outcome short of at least one rendered chart
// degrades to the placeholder; nothing here fails the report.
func (g *Generator) chartsSection(run *bench.MatrixRun, includeCharts bool) string {
	if !includeCharts {
		return ""
	}
	if g.charts == nil {
		slog.Warn("no chart renderer configured, using placeholder")
		return chartsPlaceholder
	}

	dir := filepath.Join(g.outDir, chartsDirName)
	artifacts, err := g.charts.Render(dir, run.Results, run.Info)
	if err != nil {
		slog.Warn("chart rendering degraded",
			slog.String("error", err.Error()),
			slog.Int("rendered", len(artifacts)))
	}
	if len(artifacts) == 0 {
		return chartsPlaceholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Performance Visualizations\n\nThe charts below compare %s and %s across the matrix:\n",
		bench.DisplayName(run.Info.Candidate), bench.DisplayName(run.Info.Baseline))
	for _, a := range artifacts {
		fmt.Fprintf(&b, "\n### %s\n\n", a.Title)
		if a.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", a.Description)
		}
		fmt.Fprintf(&b, "![%s](%s)\n", a.Title, path.Join(chartsDirName, a.FileName))
	}
	return strings.TrimRight(b.String(), "\n")
}
