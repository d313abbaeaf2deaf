package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refract-sh/refract/pkg/models"
	"github.com/refract-sh/refract/pkg/parser"
)

// scoreFor parses a single-function file and returns its metrics.
func scoreFor(t *testing.T, code string) models.FunctionMetrics {
	t.Helper()
	p := parser.New()
	t.Cleanup(p.Close)

	result, err := p.Parse([]byte(code), "test.go")
	require.NoError(t, err)

	units, failed := parser.Functions(result)
	require.Empty(t, failed)
	require.Len(t, units, 1)

	return Score(units[0], result.Source)
}

func TestStraightLineScoresZero(t *testing.T) {
	m := scoreFor(t, `package main

func f(a, b int) int {
	x := a + b
	return x
}
`)
	assert.Equal(t, uint32(0), m.Cognitive)
	assert.Equal(t, uint32(1), m.Cyclomatic)
	assert.Equal(t, 0, m.MaxNesting)
	assert.Equal(t, 4, m.Lines)
}

func TestNestingPenalty(t *testing.T) {
	m := scoreFor(t, `package main

func f(items []int) int {
	for _, v := range items {
		if v > 0 {
			return v
		}
	}
	return 0
}
`)
	// loop at depth 0 scores 1, the if at depth 1 scores 2.
	assert.Equal(t, uint32(3), m.Cognitive)
	assert.Equal(t, 2, m.MaxNesting)
}

func TestSwitchIsFlat(t *testing.T) {
	m := scoreFor(t, `package main

func f(x int) string {
	switch x {
	case 1:
		return "one"
	case 2:
		return "two"
	case 3:
		return "three"
	case 4:
		return "four"
	case 5:
		return "five"
	}
	return "many"
}
`)
	assert.Equal(t, uint32(1), m.Cognitive)
	assert.Equal(t, uint32(6), m.Cyclomatic)
}

func TestElseIfChainStaysLevel(t *testing.T) {
	m := scoreFor(t, `package main

func f(x int) string {
	if x > 100 {
		return "big"
	} else if x > 10 {
		return "medium"
	} else {
		return "small"
	}
}
`)
	// Two tests at depth 0; the bare else adds nothing.
	assert.Equal(t, uint32(2), m.Cognitive)
}

func TestLogicalRun(t *testing.T) {
	single := scoreFor(t, `package main

func f(a, b, c bool) bool {
	if a && b && c {
		return true
	}
	return false
}
`)
	// if(1) + one run of a single operator kind(1).
	assert.Equal(t, uint32(2), single.Cognitive)

	mixed := scoreFor(t, `package main

func f(a, b, c bool) bool {
	if a && b || c {
		return true
	}
	return false
}
`)
	// if(1) + run(1) + one operator-kind transition(1).
	assert.Equal(t, uint32(3), mixed.Cognitive)
}

func TestParenthesesStartNewRun(t *testing.T) {
	m := scoreFor(t, `package main

func f(a, b, c bool) bool {
	if (a && b) || c {
		return true
	}
	return false
}
`)
	// Outer run over ||(1) plus the parenthesized && run(1) plus if(1).
	assert.Equal(t, uint32(3), m.Cognitive)
}

func TestDirectRecursion(t *testing.T) {
	m := scoreFor(t, `package main

func fact(n int) int {
	if n <= 1 {
		return 1
	}
	return n * fact(n-1)
}
`)
	// if(1) + recursive call site(1).
	assert.Equal(t, uint32(2), m.Cognitive)
}

func TestMethodRecursionUsesSimpleName(t *testing.T) {
	m := scoreFor(t, `package main

func (n *Node) Depth() int {
	if n.parent == nil {
		return 0
	}
	return 1 + n.parent.Depth()
}
`)
	assert.Equal(t, uint32(2), m.Cognitive)
}

func TestLabeledJumpScores(t *testing.T) {
	labeled := scoreFor(t, `package main

func f(grid [][]int) int {
outer:
	for _, row := range grid {
		for _, v := range row {
			if v < 0 {
				break outer
			}
		}
	}
	return 0
}
`)
	// for(1) + for(2) + if(3) + labeled break(1).
	assert.Equal(t, uint32(7), labeled.Cognitive)

	unlabeled := scoreFor(t, `package main

func f(grid [][]int) int {
	for _, row := range grid {
		for _, v := range row {
			if v < 0 {
				break
			}
		}
	}
	return 0
}
`)
	// An unlabeled break is free.
	assert.Equal(t, uint32(6), unlabeled.Cognitive)
}

func TestGotoScores(t *testing.T) {
	m := scoreFor(t, `package main

func f(x int) int {
	if x < 0 {
		goto done
	}
	x *= 2
done:
	return x
}
`)
	// if(1) + goto(1).
	assert.Equal(t, uint32(2), m.Cognitive)
}

func TestFuncLiteralNestsWithoutScoring(t *testing.T) {
	m := scoreFor(t, `package main

func f(items []int) func() int {
	return func() int {
		if len(items) > 0 {
			return items[0]
		}
		return 0
	}
}
`)
	// The literal itself is free; the if inside it sits at depth 1.
	assert.Equal(t, uint32(2), m.Cognitive)
	assert.Equal(t, 2, m.MaxNesting)
}

func TestScoreIsDeterministic(t *testing.T) {
	code := `package main

func f(items []int) int {
	total := 0
	for _, v := range items {
		if v > 0 && v < 100 {
			total += v
		}
	}
	return total
}
`
	first := scoreFor(t, code)
	second := scoreFor(t, code)
	assert.Equal(t, first, second)
}

func TestNilBodyScores(t *testing.T) {
	// Body-less declarations still produce the baseline record.
	m := models.FunctionMetrics{Cyclomatic: 1}
	unit := parser.FunctionUnit{Name: "external", StartLine: 1, EndLine: 1}
	got := Score(unit, nil)
	assert.Equal(t, m.Cyclomatic, got.Cyclomatic)
	assert.Equal(t, uint32(0), got.Cognitive)
}

func TestAtScoresSubtreeAtDepth(t *testing.T) {
	p := parser.New()
	t.Cleanup(p.Close)

	result, err := p.Parse([]byte(`package main

func f(x int) int {
	if x > 0 {
		return x
	}
	return 0
}
`), "test.go")
	require.NoError(t, err)

	units, _ := parser.Functions(result)
	require.Len(t, units, 1)

	stmt := units[0].Body.NamedChild(0)
	require.Equal(t, "if_statement", stmt.Type())

	assert.Equal(t, uint32(1), At(stmt, result.Source, "", 0))
	assert.Equal(t, uint32(3), At(stmt, result.Source, "", 2))
}
