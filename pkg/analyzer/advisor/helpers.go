package advisor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/refract-sh/refract/pkg/parser"
)

// depthVisitor receives each node with the nesting level at the point the
// node appears. Returning false skips the node's children.
type depthVisitor func(n *sitter.Node, depth int) bool

// walkDepth traverses a subtree threading the nesting level the same way the
// cognitive scorer does: conditional bodies, loop bodies, switch bodies, and
// function literal bodies increment it; else-if chains stay level.
func walkDepth(n *sitter.Node, depth int, visit depthVisitor) {
	if n == nil {
		return
	}
	if !visit(n, depth) {
		return
	}

	switch n.Type() {
	case "if_statement":
		walkDepth(n.ChildByFieldName("initializer"), depth, visit)
		walkDepth(n.ChildByFieldName("condition"), depth, visit)
		walkDepth(n.ChildByFieldName("consequence"), depth+1, visit)
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "if_statement" {
				walkDepth(alt, depth, visit)
			} else {
				walkDepth(alt, depth+1, visit)
			}
		}
	case "for_statement":
		body := n.ChildByFieldName("body")
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c == body {
				walkDepth(c, depth+1, visit)
			} else {
				walkDepth(c, depth, visit)
			}
		}
	case "expression_switch_statement", "type_switch_statement", "select_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walkDepth(n.NamedChild(i), depth+1, visit)
		}
	case "func_literal":
		walkDepth(n.ChildByFieldName("body"), depth+1, visit)
	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walkDepth(n.NamedChild(i), depth, visit)
		}
	}
}

// namedChildren returns the named children of a node.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// text is shorthand for the node's source text.
func (c *checkContext) text(n *sitter.Node) string {
	return parser.GetNodeText(n, c.source)
}

// span returns a node's 1-based line range.
func span(n *sitter.Node) (uint32, uint32) {
	return n.StartPoint().Row + 1, n.EndPoint().Row + 1
}

// lineSpan is a node's inclusive physical line count.
func lineSpan(n *sitter.Node) int {
	return int(n.EndPoint().Row - n.StartPoint().Row + 1)
}

// logicalOpCount counts short-circuit operators anywhere in an expression,
// looking through parentheses.
func logicalOpCount(n *sitter.Node) uint32 {
	if n == nil {
		return 0
	}
	var count uint32
	if isLogicalExpr(n) {
		count++
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		count += logicalOpCount(n.NamedChild(i))
	}
	return count
}

func isLogicalExpr(n *sitter.Node) bool {
	if n.Type() != "binary_expression" {
		return false
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type() == "&&" || op.Type() == "||"
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "&&", "||":
			return true
		}
	}
	return false
}

// unparen strips parenthesized_expression wrappers.
func unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = n.NamedChild(0)
	}
	return n
}

// collectTerms gathers the atomic terms of a boolean expression, recursing
// through short-circuit operators and parentheses. Negated terms are recorded
// with their inner expression text.
func collectTerms(n *sitter.Node, source []byte, positive, negated map[string]bool) {
	n = unparen(n)
	if n == nil {
		return
	}
	if isLogicalExpr(n) {
		collectTerms(n.ChildByFieldName("left"), source, positive, negated)
		collectTerms(n.ChildByFieldName("right"), source, positive, negated)
		return
	}
	if n.Type() == "unary_expression" {
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "!" {
			inner := unparen(n.ChildByFieldName("operand"))
			negated[parser.GetNodeText(inner, source)] = true
			return
		}
	}
	positive[parser.GetNodeText(n, source)] = true
}

// identifiers collects the set of identifier texts in a subtree.
func identifiers(n *sitter.Node, source []byte) map[string]int {
	counts := make(map[string]int)
	parser.WalkTyped(n, source, func(node *sitter.Node, nodeType string, src []byte) bool {
		if nodeType == "identifier" {
			counts[parser.GetNodeText(node, src)]++
		}
		return true
	})
	return counts
}

// isLastStmt reports whether n is the final named statement of its parent
// block.
func isLastStmt(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || parent.Type() != "block" {
		return false
	}
	count := int(parent.NamedChildCount())
	return count > 0 && parent.NamedChild(count-1) == n
}
