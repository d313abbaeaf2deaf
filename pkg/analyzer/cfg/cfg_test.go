package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refract-sh/refract/pkg/parser"
)

// buildFor parses a file with a single function and builds its graph.
func buildFor(t *testing.T, code string) *Graph {
	t.Helper()
	p := parser.New()
	t.Cleanup(p.Close)

	result, err := p.Parse([]byte(code), "test.go")
	require.NoError(t, err)

	units, failed := parser.Functions(result)
	require.Empty(t, failed)
	require.Len(t, units, 1)

	return Build(units[0].Body, result.Source)
}

func TestStraightLineIsOne(t *testing.T) {
	g := buildFor(t, `package main

func f(a, b int) int {
	x := a + b
	return x * 2
}
`)
	assert.Equal(t, uint32(1), g.Cyclomatic())
	assert.Equal(t, uint32(0), g.DecisionPoints())
	assert.True(t, g.Connected())
}

func TestIfElse(t *testing.T) {
	g := buildFor(t, `package main

func f(x int) int {
	if x > 0 {
		return x
	} else {
		return -x
	}
}
`)
	// One test, both branches return: still one decision even though the
	// join block is unreachable.
	assert.Equal(t, uint32(2), g.Cyclomatic())
	assert.True(t, g.Connected())
}

func TestShortCircuitChain(t *testing.T) {
	g := buildFor(t, `package main

func f(a, b bool) bool {
	if (a && b) || !a {
		return true
	}
	return false
}
`)
	// Each leaf test is a decision: a, b, !a.
	assert.Equal(t, uint32(4), g.Cyclomatic())
}

func TestSwitchCases(t *testing.T) {
	g := buildFor(t, `package main

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
	assert.Equal(t, uint32(6), g.Cyclomatic())
}

func TestSwitchDefaultNotCounted(t *testing.T) {
	g := buildFor(t, `package main

func f(x int) string {
	switch x {
	case 1:
		return "one"
	default:
		return "other"
	}
}
`)
	assert.Equal(t, uint32(2), g.Cyclomatic())
}

func TestRangeLoopNotADecision(t *testing.T) {
	g := buildFor(t, `package main

func f(items []int) int {
	total := 0
	for _, v := range items {
		total += v
	}
	return total
}
`)
	assert.Equal(t, uint32(1), g.Cyclomatic())
	assert.True(t, g.Connected())
}

func TestInfiniteLoopNotADecision(t *testing.T) {
	g := buildFor(t, `package main

func f(ch chan int) int {
	for {
		v := <-ch
		if v > 0 {
			return v
		}
	}
}
`)
	// Only the if counts; the unconditional loop header does not.
	assert.Equal(t, uint32(2), g.Cyclomatic())
}

func TestConstantTrueConditionNotADecision(t *testing.T) {
	g := buildFor(t, `package main

func f(ch chan int) int {
	for true {
		v := <-ch
		if v > 0 {
			return v
		}
	}
	return 0
}
`)
	assert.Equal(t, uint32(2), g.Cyclomatic())
}

func TestConditionalLoop(t *testing.T) {
	g := buildFor(t, `package main

func f(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += i
	}
	return total
}
`)
	assert.Equal(t, uint32(2), g.Cyclomatic())
}

func TestLogicalOperatorsInStraightLineCode(t *testing.T) {
	g := buildFor(t, `package main

func f(a, b bool) bool {
	ok := a && b
	return ok
}
`)
	assert.Equal(t, uint32(2), g.Cyclomatic())
}

func TestFuncLiteralDecisionsFoldIn(t *testing.T) {
	g := buildFor(t, `package main

func f(items []int) func() int {
	pick := func() int {
		if len(items) > 0 {
			return items[0]
		}
		return 0
	}
	return pick()
}
`)
	assert.Equal(t, uint32(2), g.Cyclomatic())
}

func TestLabeledBreakTargets(t *testing.T) {
	g := buildFor(t, `package main

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
	// Two range loops (no decisions) plus one if.
	assert.Equal(t, uint32(2), g.Cyclomatic())
	assert.True(t, g.Connected())
}

func TestMonotoneUnderAddedConstructs(t *testing.T) {
	base := buildFor(t, `package main

func f(x int) int {
	if x > 0 {
		return x
	}
	return 0
}
`)
	grown := buildFor(t, `package main

func f(x int) int {
	if x > 0 {
		return x
	}
	for i := 0; i < x; i++ {
		x--
	}
	return 0
}
`)
	assert.Greater(t, grown.Cyclomatic(), base.Cyclomatic())
}

func TestNilBody(t *testing.T) {
	g := Build(nil, nil)
	assert.Equal(t, uint32(1), g.Cyclomatic())
	assert.True(t, g.Connected())
}

func TestCountDecisionsSubtree(t *testing.T) {
	p := parser.New()
	t.Cleanup(p.Close)

	result, err := p.Parse([]byte(`package main

func f(x int) int {
	if x > 0 {
		if x > 10 {
			return 2
		}
		return 1
	}
	return 0
}
`), "test.go")
	require.NoError(t, err)

	units, _ := parser.Functions(result)
	require.Len(t, units, 1)

	outer := units[0].Body.NamedChild(0)
	require.Equal(t, "if_statement", outer.Type())

	assert.Equal(t, uint32(2), CountDecisions(outer, result.Source))
	assert.Equal(t, uint32(1), CountDecisions(outer.ChildByFieldName("consequence"), result.Source))
}
