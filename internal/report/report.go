// Package report filters, orders, and renders analysis results, and decides
// the process exit code.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/refract-sh/refract/internal/output"
	"github.com/refract-sh/refract/pkg/models"
)

// Exit codes. A run with nothing to analyze is distinct from a clean run so
// CI configuration mistakes (wrong path, over-broad excludes) fail loudly.
const (
	ExitClean      = 0
	ExitViolations = 1
	ExitNoInput    = 2
)

// Options control what the report includes.
type Options struct {
	All     bool // list every function, not just threshold violations
	Average bool // also emit the mean cyclomatic complexity
	Verbose bool // include the score statistics table
}

// Finding is one reported function with its file path.
type Finding struct {
	Path     string                `json:"path"`
	Function models.FunctionResult `json:"function"`
}

// Report renders an analysis for one output format.
type Report struct {
	analysis *models.Analysis
	opts     Options
}

// New creates a report over an analysis.
func New(analysis *models.Analysis, opts Options) *Report {
	return &Report{analysis: analysis, opts: opts}
}

// Findings returns the functions the report lists: violations only, or every
// function with Options.All. Ordered by descending cyclomatic complexity,
// cognitive complexity breaking ties, then by location for determinism.
func (r *Report) Findings() []Finding {
	var findings []Finding
	for _, f := range r.analysis.Files {
		for _, fn := range f.Functions {
			if r.opts.All || fn.Metrics.Exceeds(r.analysis.Thresholds) {
				findings = append(findings, Finding{Path: f.Path, Function: fn})
			}
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i].Function.Metrics, findings[j].Function.Metrics
		if a.Cyclomatic != b.Cyclomatic {
			return a.Cyclomatic > b.Cyclomatic
		}
		if a.Cognitive != b.Cognitive {
			return a.Cognitive > b.Cognitive
		}
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Function.StartLine < findings[j].Function.StartLine
	})

	return findings
}

// violationCount counts functions over any threshold, regardless of
// Options.All.
func (r *Report) violationCount() int {
	n := 0
	for _, f := range r.analysis.Files {
		for _, fn := range f.Functions {
			if fn.Metrics.Exceeds(r.analysis.Thresholds) {
				n++
			}
		}
	}
	return n
}

// ExitCode maps the analysis outcome to the process exit code.
func (r *Report) ExitCode() int {
	if r.analysis.TotalFunctions() == 0 {
		return ExitNoInput
	}
	if r.violationCount() > 0 {
		return ExitViolations
	}
	return ExitClean
}

// RenderData returns the full analysis for JSON output; the summary already
// carries the mean scores, so Options.Average needs no separate shape.
func (r *Report) RenderData() any {
	return r.analysis
}

// RenderText writes the grep-friendly text report.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	t := r.analysis.Thresholds
	for _, finding := range r.Findings() {
		fn := finding.Function
		line := fmt.Sprintf("%s:%d: %s cyclomatic=%d cognitive=%d",
			finding.Path, fn.StartLine, fn.Name, fn.Metrics.Cyclomatic, fn.Metrics.Cognitive)
		if colored {
			line = output.ScoreColor(fn.Metrics.Exceeds(t), line)
		}
		fmt.Fprintln(w, line)

		for _, v := range fn.Metrics.Violations(t) {
			fmt.Fprintf(w, "    over limit: %s\n", v)
		}
		for _, s := range fn.Suggestions {
			fmt.Fprintf(w, "    %s (lines %d-%d): %s [cyclomatic %d->%d, cognitive %d->%d]\n",
				s.Pattern.Title(), s.StartLine, s.EndLine, s.Rationale,
				s.Before.Cyclomatic, s.After.Cyclomatic, s.Before.Cognitive, s.After.Cognitive)
		}
	}

	// Parse failures are part of the report, not a verbose extra.
	for _, skipped := range r.analysis.SkippedUnits() {
		msg := fmt.Sprintf("%s:%d: skipped", skipped.Path, skipped.Line)
		if skipped.Name != "" {
			msg += " " + skipped.Name
		}
		msg += ": " + skipped.Reason
		if colored {
			msg = color.YellowString(msg)
		}
		fmt.Fprintln(w, msg)
	}

	if r.opts.Verbose {
		r.summaryTable().RenderText(w, colored)
	}

	if r.opts.Average {
		fmt.Fprintf(w, "average cyclomatic complexity: %.2f (%d functions)\n",
			r.analysis.Summary.MeanCyclomatic, r.analysis.Summary.Functions)
	}

	fmt.Fprintln(w, r.summaryLine())
	return nil
}

// summaryLine is the closing count line shared by the text and markdown
// renderers.
func (r *Report) summaryLine() string {
	line := fmt.Sprintf("%d functions analyzed, %d over thresholds",
		r.analysis.Summary.Functions, r.violationCount())
	if n := len(r.analysis.SkippedUnits()); n > 0 {
		line += fmt.Sprintf(", %d skipped", n)
	}
	return line
}

// RenderMarkdown writes the report as a markdown table.
func (r *Report) RenderMarkdown(w io.Writer) error {
	findings := r.Findings()
	table := &output.Table{
		Title:   "Complexity Findings",
		Headers: []string{"Location", "Function", "Cyclomatic", "Cognitive", "Nesting", "Lines", "Suggestions"},
	}
	for _, finding := range findings {
		fn := finding.Function
		var patterns []string
		for _, s := range fn.Suggestions {
			patterns = append(patterns, s.Pattern.Title())
		}
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%s:%d", finding.Path, fn.StartLine),
			fn.Name,
			fmt.Sprintf("%d", fn.Metrics.Cyclomatic),
			fmt.Sprintf("%d", fn.Metrics.Cognitive),
			fmt.Sprintf("%d", fn.Metrics.MaxNesting),
			fmt.Sprintf("%d", fn.Metrics.Lines),
			strings.Join(patterns, ", "),
		})
	}
	if err := table.RenderMarkdown(w); err != nil {
		return err
	}

	if r.opts.Verbose {
		if err := r.summaryTable().RenderMarkdown(w); err != nil {
			return err
		}
	}

	if r.opts.Average {
		fmt.Fprintf(w, "Average cyclomatic complexity: **%.2f** (%d functions)\n\n",
			r.analysis.Summary.MeanCyclomatic, r.analysis.Summary.Functions)
	}

	fmt.Fprintln(w, r.summaryLine())
	return nil
}

// summaryTable builds the score statistics table.
func (r *Report) summaryTable() *output.Table {
	s := r.analysis.Summary
	return &output.Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Mean", "P50", "P90", "Max"},
		Rows: [][]string{
			{
				"Cyclomatic",
				fmt.Sprintf("%.2f", s.MeanCyclomatic),
				fmt.Sprintf("%.0f", s.P50Cyclomatic),
				fmt.Sprintf("%.0f", s.P90Cyclomatic),
				fmt.Sprintf("%d", s.MaxCyclomatic),
			},
			{
				"Cognitive",
				fmt.Sprintf("%.2f", s.MeanCognitive),
				fmt.Sprintf("%.0f", s.P50Cognitive),
				fmt.Sprintf("%.0f", s.P90Cognitive),
				fmt.Sprintf("%d", s.MaxCognitive),
			},
		},
	}
}
