// Package analyzer orchestrates a run: parse files, extract function units,
// score them, match refactoring patterns, and aggregate the results.
package analyzer

import (
	"context"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/refract-sh/refract/internal/cache"
	"github.com/refract-sh/refract/internal/fileproc"
	"github.com/refract-sh/refract/pkg/analyzer/advisor"
	"github.com/refract-sh/refract/pkg/analyzer/complexity"
	"github.com/refract-sh/refract/pkg/models"
	"github.com/refract-sh/refract/pkg/parser"
)

// Analyzer runs the full per-function pipeline. Safe for concurrent use;
// parsers are created per worker, never shared.
type Analyzer struct {
	thresholds models.Thresholds
	advisor    *advisor.Advisor
	cache      *cache.Cache
	onProgress fileproc.ProgressFunc
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThresholds sets the per-metric limits used for advisor preconditions
// and recorded in the result.
func WithThresholds(t models.Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithCache reuses stored results for files whose content and thresholds
// have not changed.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithProgress registers a callback invoked once per completed file.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// New creates an analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{thresholds: models.DefaultThresholds()}
	for _, opt := range opts {
		opt(a)
	}
	a.advisor = advisor.New(advisor.WithThresholds(a.thresholds))
	return a
}

// Analyze runs the pipeline over the given files in parallel. Unparseable
// units are recorded as skipped, never failing the run; a canceled context
// returns the results completed so far along with the context error.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*models.Analysis, error) {
	results, procErrs := fileproc.MapFiles(ctx, files, func(p *parser.Parser, path string) (models.FileResult, error) {
		return a.analyzeFile(ctx, p, path)
	}, a.onProgress)

	// Workers finish in arbitrary order; reports need a stable layout.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	analysis := &models.Analysis{
		GeneratedAt: time.Now(),
		Thresholds:  a.thresholds,
		Files:       results,
		Summary:     summarize(results),
	}

	if err := ctx.Err(); err != nil {
		return analysis, err
	}
	if procErrs != nil && procErrs.HasErrors() {
		// Unreadable files become file-level skip records; the analysis
		// itself still succeeds.
		for _, pe := range procErrs.Errors {
			analysis.Files = append(analysis.Files, models.FileResult{
				Path: pe.Path,
				Skipped: []models.SkippedUnit{
					{Path: pe.Path, Reason: pe.Err.Error()},
				},
			})
		}
		sort.Slice(analysis.Files, func(i, j int) bool {
			return analysis.Files[i].Path < analysis.Files[j].Path
		})
	}

	return analysis, nil
}

// AnalyzeFile runs the pipeline over a single file with a caller-owned
// parser.
func (a *Analyzer) AnalyzeFile(p *parser.Parser, path string) (models.FileResult, error) {
	return a.analyzeFile(context.Background(), p, path)
}

func (a *Analyzer) analyzeFile(ctx context.Context, p *parser.Parser, path string) (models.FileResult, error) {
	var key, hash string
	if a.cache != nil {
		var err error
		if hash, err = cache.HashFile(path); err == nil {
			key = cache.Key(path, a.thresholds)
			if cached, ok := a.cache.Get(key, hash); ok {
				return cached, nil
			}
		}
	}

	parsed, err := p.ParseFile(path)
	if err != nil {
		return models.FileResult{}, err
	}

	units, failed := parser.Functions(parsed)

	result := models.FileResult{Path: path}
	for _, pe := range failed {
		result.Skipped = append(result.Skipped, models.SkippedUnit{
			Path:   pe.Path,
			Name:   pe.Name,
			Line:   pe.Line,
			Reason: pe.Err.Error(),
		})
	}

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		metrics := complexity.Score(unit, parsed.Source)
		result.Functions = append(result.Functions, models.FunctionResult{
			Name:        unit.Name,
			StartLine:   unit.StartLine,
			EndLine:     unit.EndLine,
			Parameters:  len(unit.Parameters),
			Metrics:     metrics,
			Suggestions: a.advisor.Suggest(unit, parsed.Source, metrics),
		})
	}

	if a.cache != nil && key != "" {
		// cache failures never fail the analysis
		_ = a.cache.Set(key, hash, result)
	}

	return result, nil
}

// summarize computes the score statistics across all analyzed functions.
func summarize(files []models.FileResult) models.Summary {
	s := models.Summary{Files: len(files)}

	var cyclomatic, cognitive []float64
	for _, f := range files {
		for _, fn := range f.Functions {
			cyclomatic = append(cyclomatic, float64(fn.Metrics.Cyclomatic))
			cognitive = append(cognitive, float64(fn.Metrics.Cognitive))
			if fn.Metrics.Cyclomatic > s.MaxCyclomatic {
				s.MaxCyclomatic = fn.Metrics.Cyclomatic
			}
			if fn.Metrics.Cognitive > s.MaxCognitive {
				s.MaxCognitive = fn.Metrics.Cognitive
			}
		}
	}

	s.Functions = len(cyclomatic)
	if s.Functions == 0 {
		return s
	}

	sort.Float64s(cyclomatic)
	sort.Float64s(cognitive)

	s.MeanCyclomatic = stat.Mean(cyclomatic, nil)
	s.P50Cyclomatic = stat.Quantile(0.5, stat.Empirical, cyclomatic, nil)
	s.P90Cyclomatic = stat.Quantile(0.9, stat.Empirical, cyclomatic, nil)
	s.MeanCognitive = stat.Mean(cognitive, nil)
	s.P50Cognitive = stat.Quantile(0.5, stat.Empirical, cognitive, nil)
	s.P90Cognitive = stat.Quantile(0.9, stat.Empirical, cognitive, nil)

	return s
}
