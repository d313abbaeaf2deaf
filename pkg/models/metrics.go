// Package models defines the shared result and configuration types exchanged
// between the parser, the scorers, the advisor, and the report layer.
package models

import (
	"fmt"
	"time"
)

// FunctionMetrics holds the complexity scores for a single function.
type FunctionMetrics struct {
	Cyclomatic uint32 `json:"cyclomatic"`  // decision points + 1
	Cognitive  uint32 `json:"cognitive"`   // nesting-weighted readability score
	MaxNesting int    `json:"max_nesting"` // deepest control-structure nesting
	Lines      int    `json:"lines"`       // physical lines, first to last
}

// Exceeds reports whether any metric is strictly above its limit.
func (m FunctionMetrics) Exceeds(t Thresholds) bool {
	return len(m.Violations(t)) > 0
}

// Violations lists each metric over its limit in a fixed order, formatted for
// the text report.
func (m FunctionMetrics) Violations(t Thresholds) []string {
	var v []string
	if m.Cyclomatic > t.Cyclomatic {
		v = append(v, fmt.Sprintf("cyclomatic %d > %d", m.Cyclomatic, t.Cyclomatic))
	}
	if m.Cognitive > t.Cognitive {
		v = append(v, fmt.Sprintf("cognitive %d > %d", m.Cognitive, t.Cognitive))
	}
	if m.MaxNesting > t.Nesting {
		v = append(v, fmt.Sprintf("nesting %d > %d", m.MaxNesting, t.Nesting))
	}
	if m.Lines > t.Lines {
		v = append(v, fmt.Sprintf("lines %d > %d", m.Lines, t.Lines))
	}
	return v
}

// FunctionResult is one analyzed function with its scores and any matching
// refactoring suggestions.
type FunctionResult struct {
	Name        string          `json:"name"`
	StartLine   uint32          `json:"start_line"`
	EndLine     uint32          `json:"end_line"`
	Parameters  int             `json:"parameters"`
	Metrics     FunctionMetrics `json:"metrics"`
	Suggestions []Suggestion    `json:"suggestions,omitempty"`
}

// SkippedUnit records a function or file dropped from analysis because its
// source did not parse.
type SkippedUnit struct {
	Path   string `json:"path"`
	Name   string `json:"name,omitempty"` // empty when the whole file was skipped
	Line   uint32 `json:"line"`
	Reason string `json:"reason"`
}

// FileResult is the analysis of one source file.
type FileResult struct {
	Path      string           `json:"path"`
	Functions []FunctionResult `json:"functions"`
	Skipped   []SkippedUnit    `json:"skipped,omitempty"`
}

// Summary aggregates score statistics across all analyzed functions.
type Summary struct {
	Functions      int     `json:"functions"`
	Files          int     `json:"files"`
	MeanCyclomatic float64 `json:"mean_cyclomatic"`
	MaxCyclomatic  uint32  `json:"max_cyclomatic"`
	P50Cyclomatic  float64 `json:"p50_cyclomatic"`
	P90Cyclomatic  float64 `json:"p90_cyclomatic"`
	MeanCognitive  float64 `json:"mean_cognitive"`
	MaxCognitive   uint32  `json:"max_cognitive"`
	P50Cognitive   float64 `json:"p50_cognitive"`
	P90Cognitive   float64 `json:"p90_cognitive"`
}

// Analysis is the full result of one run.
type Analysis struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Thresholds  Thresholds   `json:"thresholds"`
	Files       []FileResult `json:"files"`
	Summary     Summary      `json:"summary"`
}

// TotalFunctions counts analyzed functions across all files.
func (a *Analysis) TotalFunctions() int {
	n := 0
	for _, f := range a.Files {
		n += len(f.Functions)
	}
	return n
}

// SkippedUnits flattens per-file skip records in file order.
func (a *Analysis) SkippedUnits() []SkippedUnit {
	var skipped []SkippedUnit
	for _, f := range a.Files {
		skipped = append(skipped, f.Skipped...)
	}
	return skipped
}

// Thresholds are the per-metric limits a function must stay within.
type Thresholds struct {
	Cyclomatic uint32 `json:"cyclomatic" koanf:"cyclomatic" toml:"cyclomatic"`
	Cognitive  uint32 `json:"cognitive" koanf:"cognitive" toml:"cognitive"`
	Nesting    int    `json:"nesting" koanf:"nesting" toml:"nesting"`
	Lines      int    `json:"lines" koanf:"lines" toml:"lines"`
}

// DefaultThresholds returns the limits used when no configuration overrides
// them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Cyclomatic: 10,
		Cognitive:  15,
		Nesting:    3,
		Lines:      50,
	}
}
