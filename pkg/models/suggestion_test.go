package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternRanksAreDistinct(t *testing.T) {
	all := []Pattern{
		PatternGuardClause,
		PatternDecomposeConditional,
		PatternExtractFunction,
		PatternInvertExpression,
		PatternConsolidateConditional,
		PatternRemoveControlFlag,
		PatternTableDriven,
		PatternScopedCleanup,
	}

	seen := make(map[int]Pattern, len(all))
	for _, p := range all {
		r := p.Rank()
		if prev, dup := seen[r]; dup {
			t.Errorf("%s and %s share rank %d", prev, p, r)
		}
		seen[r] = p
	}

	assert.Equal(t, 0, PatternGuardClause.Rank(), "guard clause is the least invasive")
	assert.Equal(t, 7, PatternScopedCleanup.Rank(), "scoped cleanup is the most invasive")
}

func TestUnknownPatternSortsLast(t *testing.T) {
	unknown := Pattern("something_new")
	for p := range patternRank {
		assert.Greater(t, unknown.Rank(), p.Rank())
	}
}

func TestPatternTitles(t *testing.T) {
	assert.Equal(t, "Guard Clause", PatternGuardClause.Title())
	assert.Equal(t, "Table-Driven Dispatch", PatternTableDriven.Title())
	// Unknown patterns fall back to their raw name.
	assert.Equal(t, "custom", Pattern("custom").Title())
}
