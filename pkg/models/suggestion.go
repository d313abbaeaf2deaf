package models

// Pattern identifies a refactoring pattern the advisor can recommend.
type Pattern string

const (
	PatternGuardClause            Pattern = "guard_clause"
	PatternDecomposeConditional   Pattern = "decompose_conditional"
	PatternExtractFunction        Pattern = "extract_function"
	PatternInvertExpression       Pattern = "invert_expression"
	PatternConsolidateConditional Pattern = "consolidate_conditional"
	PatternRemoveControlFlag      Pattern = "remove_control_flag"
	PatternTableDriven            Pattern = "table_driven"
	PatternScopedCleanup          Pattern = "scoped_cleanup"
)

// patternRank orders patterns by how invasive the rewrite is; suggestions are
// presented least-invasive first.
var patternRank = map[Pattern]int{
	PatternGuardClause:            0,
	PatternDecomposeConditional:   1,
	PatternExtractFunction:        2,
	PatternInvertExpression:       3,
	PatternConsolidateConditional: 4,
	PatternRemoveControlFlag:      5,
	PatternTableDriven:            6,
	PatternScopedCleanup:          7,
}

// Rank returns the pattern's invasiveness rank; unknown patterns sort last.
func (p Pattern) Rank() int {
	if r, ok := patternRank[p]; ok {
		return r
	}
	return len(patternRank)
}

var patternTitles = map[Pattern]string{
	PatternGuardClause:            "Guard Clause",
	PatternDecomposeConditional:   "Decompose Conditional",
	PatternExtractFunction:        "Extract Function",
	PatternInvertExpression:       "Invert Expression",
	PatternConsolidateConditional: "Consolidate Conditional",
	PatternRemoveControlFlag:      "Remove Control Flag",
	PatternTableDriven:            "Table-Driven Dispatch",
	PatternScopedCleanup:          "Scoped Cleanup",
}

// Title returns the human-readable pattern name.
func (p Pattern) Title() string {
	if t, ok := patternTitles[p]; ok {
		return t
	}
	return string(p)
}

// Estimate is a cyclomatic/cognitive score pair, used for the before and
// after sides of a suggestion.
type Estimate struct {
	Cyclomatic uint32 `json:"cyclomatic"`
	Cognitive  uint32 `json:"cognitive"`
}

// Suggestion is one refactoring recommendation for a function, with the line
// range it targets and the estimated score change.
type Suggestion struct {
	Pattern   Pattern  `json:"pattern"`
	StartLine uint32   `json:"start_line"`
	EndLine   uint32   `json:"end_line"`
	Rationale string   `json:"rationale"`
	Before    Estimate `json:"before"`
	After     Estimate `json:"after"`
}
