// Package complexity scores function bodies: cyclomatic complexity via the
// control-flow graph, cognitive complexity via a nesting-aware tree walk, and
// the structural metrics (max nesting, line count) observed along the way.
package complexity

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/refract-sh/refract/pkg/analyzer/cfg"
	"github.com/refract-sh/refract/pkg/models"
	"github.com/refract-sh/refract/pkg/parser"
)

// Score computes the full metric record for one function unit.
func Score(unit parser.FunctionUnit, source []byte) models.FunctionMetrics {
	m := models.FunctionMetrics{
		Cyclomatic: 1,
		Lines:      unit.LineCount(),
	}

	if unit.Body == nil {
		return m
	}

	g := cfg.Build(unit.Body, source)
	m.Cyclomatic = g.Cyclomatic()

	cog, nesting := Cognitive(unit.Body, source, unit.SimpleName())
	m.Cognitive = cog
	m.MaxNesting = nesting

	return m
}

// Cognitive walks a function body and returns its cognitive complexity along
// with the maximum nesting depth the walk reached. The depth is threaded
// through the recursion by value; there is no shared counter, so concurrent
// per-function scoring is race-free.
func Cognitive(body *sitter.Node, source []byte, selfName string) (uint32, int) {
	w := &walker{source: source, self: selfName}
	w.visit(body, 0)
	return w.score, w.maxDepth
}

// At scores a subtree as if it appeared at the given nesting depth. The
// advisor uses this to re-score rewritten shapes (a dedented guard body, an
// extracted block) without mutating the tree.
func At(node *sitter.Node, source []byte, selfName string, depth int) uint32 {
	w := &walker{source: source, self: selfName}
	w.visit(node, depth)
	return w.score
}

type walker struct {
	source   []byte
	self     string
	score    uint32
	maxDepth int
}

// enter records that the walk is about to descend to the given depth.
func (w *walker) enter(depth int) {
	if depth > w.maxDepth {
		w.maxDepth = depth
	}
}

func (w *walker) visit(n *sitter.Node, depth int) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "if_statement":
		w.ifStmt(n, depth)
	case "for_statement":
		w.score += uint32(1 + depth)
		body := n.ChildByFieldName("body")
		w.visitHeader(n, body, depth)
		w.enter(depth + 1)
		w.visit(body, depth+1)
	case "expression_switch_statement", "type_switch_statement", "select_statement":
		// Flat cost regardless of case count; the body still nests.
		w.score++
		w.enter(depth + 1)
		w.visitChildren(n, depth+1)
	case "func_literal":
		w.enter(depth + 1)
		w.visit(n.ChildByFieldName("body"), depth+1)
	case "goto_statement":
		w.score++
	case "break_statement", "continue_statement":
		if hasLabel(n) {
			w.score++
		}
	case "binary_expression":
		if isLogical(n) {
			w.logicalRun(n, depth)
			return
		}
		w.visitChildren(n, depth)
	case "call_expression":
		if calleeName(n, w.source) == w.self && w.self != "" {
			w.score++
		}
		w.visitChildren(n, depth)
	default:
		w.visitChildren(n, depth)
	}
}

func (w *walker) visitChildren(n *sitter.Node, depth int) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.visit(n.NamedChild(i), depth)
	}
}

func (w *walker) ifStmt(n *sitter.Node, depth int) {
	// The nesting penalty is the level at the point the construct appears,
	// before incrementing for its own body.
	w.score += uint32(1 + depth)

	if init := n.ChildByFieldName("initializer"); init != nil {
		w.visit(init, depth)
	}
	w.visit(n.ChildByFieldName("condition"), depth)

	w.enter(depth + 1)
	w.visit(n.ChildByFieldName("consequence"), depth+1)

	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if alt.Type() == "if_statement" {
			// else-if appears at the same level as its predecessor.
			w.ifStmt(alt, depth)
		} else {
			w.visit(alt, depth+1)
		}
	}
}

// visitHeader walks a for statement's clauses (everything except the body) at
// the loop's own depth.
func (w *walker) visitHeader(n, body *sitter.Node, depth int) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == body || c.Type() == "block" {
			continue
		}
		w.visit(c, depth)
	}
}

// logicalRun scores a maximal sequence of short-circuit operators: 1 for the
// run plus 1 per change of operator kind, then visits the leaf operands.
// Parenthesized sub-expressions are opaque and start their own run.
func (w *walker) logicalRun(n *sitter.Node, depth int) {
	var ops []string
	var leaves []*sitter.Node
	flattenLogical(n, &ops, &leaves)

	if len(ops) > 0 {
		w.score++
		for i := 1; i < len(ops); i++ {
			if ops[i] != ops[i-1] {
				w.score++
			}
		}
	}

	for _, leaf := range leaves {
		w.visit(leaf, depth)
	}
}

func flattenLogical(n *sitter.Node, ops *[]string, leaves *[]*sitter.Node) {
	if op := logicalOperator(n); op != "" {
		flattenLogical(n.ChildByFieldName("left"), ops, leaves)
		*ops = append(*ops, op)
		flattenLogical(n.ChildByFieldName("right"), ops, leaves)
		return
	}
	*leaves = append(*leaves, n)
}

func isLogical(n *sitter.Node) bool {
	return logicalOperator(n) != ""
}

func logicalOperator(n *sitter.Node) string {
	if n == nil || n.Type() != "binary_expression" {
		return ""
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		switch op.Type() {
		case "&&", "||":
			return op.Type()
		}
		return ""
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "&&", "||":
			return n.Child(i).Type()
		}
	}
	return ""
}

func hasLabel(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "label_name" {
			return true
		}
	}
	return false
}

// calleeName extracts the called function's simple name for recursion
// detection. Only direct self-calls are detected; mutual recursion across
// functions is out of scope.
func calleeName(call *sitter.Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, source)
	case "selector_expression":
		return parser.GetNodeText(fn.ChildByFieldName("field"), source)
	}
	return ""
}
