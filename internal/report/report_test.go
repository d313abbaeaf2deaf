package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refract-sh/refract/pkg/models"
)

func fn(name string, line uint32, cyclo, cog uint32) models.FunctionResult {
	return models.FunctionResult{
		Name:      name,
		StartLine: line,
		EndLine:   line + 10,
		Metrics: models.FunctionMetrics{
			Cyclomatic: cyclo,
			Cognitive:  cog,
			MaxNesting: 1,
			Lines:      11,
		},
	}
}

func testAnalysis() *models.Analysis {
	return &models.Analysis{
		GeneratedAt: time.Now(),
		Thresholds:  models.DefaultThresholds(),
		Files: []models.FileResult{
			{
				Path: "a.go",
				Functions: []models.FunctionResult{
					fn("clean", 5, 3, 2),
					fn("tangled", 30, 14, 22),
				},
			},
			{
				Path: "b.go",
				Functions: []models.FunctionResult{
					fn("worse", 8, 18, 9),
					fn("tied", 60, 14, 25),
				},
			},
		},
		Summary: models.Summary{Functions: 4, Files: 2, MeanCyclomatic: 12.25},
	}
}

func TestFindingsFiltersToViolations(t *testing.T) {
	r := New(testAnalysis(), Options{})
	findings := r.Findings()

	require.Len(t, findings, 3)
	for _, f := range findings {
		assert.NotEqual(t, "clean", f.Function.Name)
	}
}

func TestFindingsOrderedByScore(t *testing.T) {
	r := New(testAnalysis(), Options{})
	findings := r.Findings()

	require.Len(t, findings, 3)
	// Descending cyclomatic first, cognitive breaking the 14/14 tie.
	assert.Equal(t, "worse", findings[0].Function.Name)
	assert.Equal(t, "tied", findings[1].Function.Name)
	assert.Equal(t, "tangled", findings[2].Function.Name)
}

func TestFindingsAllIncludesCleanFunctions(t *testing.T) {
	r := New(testAnalysis(), Options{All: true})
	findings := r.Findings()

	require.Len(t, findings, 4)
	assert.Equal(t, "clean", findings[3].Function.Name)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitViolations, New(testAnalysis(), Options{}).ExitCode())

	clean := &models.Analysis{
		Thresholds: models.DefaultThresholds(),
		Files: []models.FileResult{
			{Path: "a.go", Functions: []models.FunctionResult{fn("ok", 1, 2, 1)}},
		},
		Summary: models.Summary{Functions: 1, Files: 1},
	}
	assert.Equal(t, ExitClean, New(clean, Options{}).ExitCode())

	empty := &models.Analysis{Thresholds: models.DefaultThresholds()}
	assert.Equal(t, ExitNoInput, New(empty, Options{}).ExitCode())
}

func TestExitCodeIgnoresAllOption(t *testing.T) {
	clean := &models.Analysis{
		Thresholds: models.DefaultThresholds(),
		Files: []models.FileResult{
			{Path: "a.go", Functions: []models.FunctionResult{fn("ok", 1, 2, 1)}},
		},
		Summary: models.Summary{Functions: 1, Files: 1},
	}
	// Listing every function does not turn a clean run into a failure.
	assert.Equal(t, ExitClean, New(clean, Options{All: true}).ExitCode())
}

func TestRenderTextLineFormat(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, New(testAnalysis(), Options{}).RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "b.go:8: worse cyclomatic=18 cognitive=9\n")
	assert.Contains(t, out, "a.go:30: tangled cyclomatic=14 cognitive=22\n")
	assert.Contains(t, out, "over limit: cyclomatic 18 > 10")
	assert.Contains(t, out, "4 functions analyzed, 3 over thresholds\n")
	assert.NotContains(t, out, "clean")
}

func TestRenderTextAverage(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, New(testAnalysis(), Options{Average: true}).RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "average cyclomatic complexity: 12.25 (4 functions)")
	// The mean is additive; the per-function listing stays.
	assert.Contains(t, out, "b.go:8: worse cyclomatic=18 cognitive=9\n")
	assert.Contains(t, out, "a.go:30: tangled cyclomatic=14 cognitive=22\n")
}

func TestRenderTextSuggestions(t *testing.T) {
	analysis := testAnalysis()
	analysis.Files[1].Functions[0].Suggestions = []models.Suggestion{
		{
			Pattern:   models.PatternGuardClause,
			StartLine: 10,
			EndLine:   18,
			Rationale: "invert the condition and return early",
			Before:    models.Estimate{Cyclomatic: 18, Cognitive: 9},
			After:     models.Estimate{Cyclomatic: 18, Cognitive: 7},
		},
	}

	var buf strings.Builder
	require.NoError(t, New(analysis, Options{}).RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "(lines 10-18)")
	assert.Contains(t, out, "[cyclomatic 18->18, cognitive 9->7]")
}

func TestRenderTextShowsSkippedByDefault(t *testing.T) {
	analysis := testAnalysis()
	analysis.Files[0].Skipped = []models.SkippedUnit{
		{Path: "a.go", Name: "broken", Line: 90, Reason: "syntax error in function body"},
	}

	var buf strings.Builder
	require.NoError(t, New(analysis, Options{}).RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "a.go:90: skipped broken: syntax error in function body")
	assert.Contains(t, out, "4 functions analyzed, 3 over thresholds, 1 skipped\n")
}

func TestRenderTextVerboseIncludesSummaryTable(t *testing.T) {
	analysis := testAnalysis()
	analysis.Files[0].Skipped = []models.SkippedUnit{
		{Path: "a.go", Name: "broken", Line: 90, Reason: "syntax error"},
	}

	var buf strings.Builder
	require.NoError(t, New(analysis, Options{Verbose: true}).RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "a.go:90: skipped broken: syntax error")
	assert.Contains(t, out, "Summary")
}

func TestRenderDataAverage(t *testing.T) {
	analysis := testAnalysis()
	// The summary already carries the mean; JSON output is unchanged.
	data := New(analysis, Options{Average: true}).RenderData()
	assert.Equal(t, analysis, data)
}

func TestRenderDataFull(t *testing.T) {
	analysis := testAnalysis()
	data := New(analysis, Options{}).RenderData()
	assert.Equal(t, analysis, data)
}

func TestRenderMarkdown(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, New(testAnalysis(), Options{}).RenderMarkdown(&buf))

	out := buf.String()
	assert.Contains(t, out, "| Location |")
	assert.Contains(t, out, "b.go:8")
	assert.Contains(t, out, "4 functions analyzed, 3 over thresholds")
}
