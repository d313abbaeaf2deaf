// Package advisor matches function trees against refactoring-pattern
// preconditions and emits ranked suggestions with estimated complexity
// deltas.
package advisor

import (
	"sort"

	"github.com/refract-sh/refract/pkg/models"
	"github.com/refract-sh/refract/pkg/parser"
)

// Advisor evaluates refactoring patterns against analyzed functions.
// The checkers are independent predicates over the same tree; all are run and
// any number may match. Safe for concurrent use.
type Advisor struct {
	limits models.Thresholds
}

// Option is a functional option for configuring Advisor.
type Option func(*Advisor)

// WithThresholds sets the limits checkers consult (line limit for Extract
// Function).
func WithThresholds(t models.Thresholds) Option {
	return func(a *Advisor) {
		a.limits = t
	}
}

// New creates an advisor with the given options.
func New(opts ...Option) *Advisor {
	a := &Advisor{limits: models.DefaultThresholds()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// checker inspects one function and returns a suggestion or nil. Checkers
// never mutate the tree.
type checker func(*checkContext) *models.Suggestion

// checkContext carries everything a checker needs for one function.
type checkContext struct {
	unit    parser.FunctionUnit
	source  []byte
	metrics models.FunctionMetrics
	limits  models.Thresholds
}

// checkers run in a fixed order; final ranking is by pattern invasiveness
// (models.Pattern.Rank), so evaluation order only decides among equal ranks.
var checkers = []checker{
	checkGuardClause,
	checkDecomposeConditional,
	checkExtractFunction,
	checkInvertExpression,
	checkConsolidateConditional,
	checkRemoveControlFlag,
	checkTableDriven,
	checkScopedCleanup,
}

// Suggest evaluates all pattern preconditions against one function and
// returns the matching suggestions, ranked by ascending invasiveness.
func (a *Advisor) Suggest(unit parser.FunctionUnit, source []byte, metrics models.FunctionMetrics) []models.Suggestion {
	if unit.Body == nil {
		return nil
	}

	ctx := &checkContext{
		unit:    unit,
		source:  source,
		metrics: metrics,
		limits:  a.limits,
	}

	var suggestions []models.Suggestion
	for _, check := range checkers {
		if s := check(ctx); s != nil {
			suggestions = append(suggestions, *s)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Pattern.Rank() < suggestions[j].Pattern.Rank()
	})

	return suggestions
}

// before returns the function's current scores as an estimate pair.
func (c *checkContext) before() models.Estimate {
	return models.Estimate{
		Cyclomatic: c.metrics.Cyclomatic,
		Cognitive:  c.metrics.Cognitive,
	}
}

// clampSub subtracts without wrapping below zero.
func clampSub(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}
