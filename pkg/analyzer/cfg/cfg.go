// Package cfg builds per-function control-flow graphs and derives cyclomatic
// complexity from them. Graphs are transient: built, scored, and discarded
// once per function. Blocks live in a flat arena and edges are index pairs,
// so nothing is shared or mutated concurrently with reads.
package cfg

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// BlockKind classifies a basic block.
type BlockKind uint8

const (
	BlockEntry BlockKind = iota
	BlockExit
	BlockBody
	BlockCond
)

// Block is a maximal straight-line region with one entry and one exit.
type Block struct {
	Kind      BlockKind
	StartLine uint32
	EndLine   uint32
}

// Edge is a possible transfer of control between two blocks.
type Edge struct {
	From, To int
}

// Graph is a function's control-flow graph.
type Graph struct {
	Blocks []Block
	Edges  []Edge
	Entry  int
	Exit   int

	decisions uint32
}

// DecisionPoints returns the number of branching points recorded while the
// graph was built: if tests, conditional loop tests, non-default switch
// cases, and short-circuit operators. A loop with a constant-true or absent
// continuation condition (for {}, for range) has a back edge but is not a
// decision.
func (g *Graph) DecisionPoints() uint32 {
	return g.decisions
}

// Cyclomatic returns V(G) = decision points + 1, the minimum number of
// linearly independent paths through the function.
func (g *Graph) Cyclomatic() uint32 {
	return g.decisions + 1
}

// Connected reports whether the exit block is reachable from the entry block.
func (g *Graph) Connected() bool {
	seen := make([]bool, len(g.Blocks))
	queue := []int{g.Entry}
	seen[g.Entry] = true
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if b == g.Exit {
			return true
		}
		for _, e := range g.Edges {
			if e.From == b && !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return false
}

// CountDecisions returns the decision points contributed by a single
// statement subtree, using the same counting rules as Build. The advisor uses
// it to estimate the cyclomatic cost of a region without building the full
// function graph.
func CountDecisions(stmt *sitter.Node, source []byte) uint32 {
	if stmt == nil {
		return 0
	}
	g := &Graph{}
	b := &builder{g: g, source: source}
	g.Entry = b.newBlock(BlockEntry, stmt)
	g.Exit = b.newBlock(BlockExit, stmt)
	b.cur = g.Entry
	b.stmt(stmt)
	return g.decisions
}

// none marks the current block as terminated (dead flow after return/jump).
const none = -1

// loopFrame tracks jump targets for break and continue.
type loopFrame struct {
	brk   int
	cont  int // none for switch frames
	label string
}

type builder struct {
	g      *Graph
	source []byte
	cur    int
	frames []loopFrame
	label  string // pending label from a labeled_statement
}

// Build constructs the control-flow graph for a function body. A nil body
// yields the trivial graph with cyclomatic complexity 1.
func Build(body *sitter.Node, source []byte) *Graph {
	g := &Graph{}
	b := &builder{g: g, source: source}

	g.Entry = b.newBlock(BlockEntry, body)
	g.Exit = b.newBlock(BlockExit, body)
	b.cur = g.Entry

	if body != nil {
		b.blockStmts(body)
	}
	b.closeTo(g.Exit)

	return g
}

func (b *builder) newBlock(kind BlockKind, node *sitter.Node) int {
	blk := Block{Kind: kind}
	if node != nil {
		blk.StartLine = node.StartPoint().Row + 1
		blk.EndLine = node.EndPoint().Row + 1
	}
	b.g.Blocks = append(b.g.Blocks, blk)
	return len(b.g.Blocks) - 1
}

func (b *builder) edge(from, to int) {
	if from == none {
		return
	}
	b.g.Edges = append(b.g.Edges, Edge{From: from, To: to})
}

// closeTo ends the current block with an edge to the target, unless flow
// already terminated.
func (b *builder) closeTo(target int) {
	if b.cur != none {
		b.edge(b.cur, target)
	}
	b.cur = none
}

// ensure gives dead flow a fresh (unreachable) block so statements after a
// return still land somewhere.
func (b *builder) ensure(node *sitter.Node) {
	if b.cur == none {
		b.cur = b.newBlock(BlockBody, node)
	}
}

func (b *builder) blockStmts(block *sitter.Node) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		b.stmt(block.NamedChild(i))
	}
}

func (b *builder) stmt(n *sitter.Node) {
	switch n.Type() {
	case "if_statement":
		b.ifStmt(n)
	case "for_statement":
		b.forStmt(n)
	case "expression_switch_statement", "type_switch_statement", "select_statement":
		b.switchStmt(n)
	case "block":
		b.blockStmts(n)
	case "labeled_statement":
		b.labeledStmt(n)
	case "return_statement":
		b.ensure(n)
		b.scanExpr(n)
		b.closeTo(b.g.Exit)
	case "goto_statement":
		// Target block is unknown without label resolution across the whole
		// body; conservatively route to exit so flow still terminates here.
		b.ensure(n)
		b.closeTo(b.g.Exit)
	case "break_statement":
		b.ensure(n)
		b.closeTo(b.jumpTarget(n, true))
	case "continue_statement":
		b.ensure(n)
		b.closeTo(b.jumpTarget(n, false))
	default:
		b.ensure(n)
		b.scanExpr(n)
	}
}

func (b *builder) labeledStmt(n *sitter.Node) {
	label := ""
	if l := childOfType(n, "label_name"); l != nil {
		label = string(b.source[l.StartByte():l.EndByte()])
	}
	b.label = label
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "label_name" {
			b.stmt(c)
		}
	}
	b.label = ""
}

func (b *builder) ifStmt(n *sitter.Node) {
	b.ensure(n)
	if init := n.ChildByFieldName("initializer"); init != nil {
		b.scanExpr(init)
	}

	cons := n.ChildByFieldName("consequence")
	alt := n.ChildByFieldName("alternative")

	thenB := b.newBlock(BlockBody, cons)
	join := b.newBlock(BlockBody, n)

	falseTarget := join
	elseB := none
	if alt != nil {
		elseB = b.newBlock(BlockBody, alt)
		falseTarget = elseB
	}

	b.cond(n.ChildByFieldName("condition"), thenB, falseTarget)

	b.cur = thenB
	if cons != nil {
		b.blockStmts(cons)
	}
	b.closeTo(join)

	if alt != nil {
		b.cur = elseB
		if alt.Type() == "if_statement" {
			b.ifStmt(alt)
		} else {
			b.blockStmts(alt)
		}
		b.closeTo(join)
	}

	b.cur = join
}

func (b *builder) forStmt(n *sitter.Node) {
	b.ensure(n)

	body := n.ChildByFieldName("body")
	header := b.newBlock(BlockCond, n)
	bodyB := b.newBlock(BlockBody, body)
	join := b.newBlock(BlockBody, n)

	b.closeTo(header)
	b.cur = header

	switch {
	case childOfType(n, "range_clause") != nil:
		// Iterate-all shape: back edge and empty-collection edge exist, but
		// there is no continuation test to count.
		rc := childOfType(n, "range_clause")
		b.scanExpr(rc)
		b.edge(header, bodyB)
		b.edge(header, join)
	case childOfType(n, "for_clause") != nil:
		fc := childOfType(n, "for_clause")
		if init := fc.ChildByFieldName("initializer"); init != nil {
			b.scanExpr(init)
		}
		if upd := fc.ChildByFieldName("update"); upd != nil {
			b.scanExpr(upd)
		}
		condExpr := fc.ChildByFieldName("condition")
		if condExpr == nil || isConstTrue(condExpr) {
			b.edge(header, bodyB)
		} else {
			b.cond(condExpr, bodyB, join)
		}
	default:
		condExpr := loopCondition(n)
		if condExpr == nil || isConstTrue(condExpr) {
			// for {} exits only via break or return.
			b.edge(header, bodyB)
		} else {
			b.cond(condExpr, bodyB, join)
		}
	}

	b.frames = append(b.frames, loopFrame{brk: join, cont: header, label: b.label})
	b.label = ""

	b.cur = bodyB
	if body != nil {
		b.blockStmts(body)
	}
	b.closeTo(header)

	b.frames = b.frames[:len(b.frames)-1]
	b.cur = join
}

func (b *builder) switchStmt(n *sitter.Node) {
	b.ensure(n)
	if init := n.ChildByFieldName("initializer"); init != nil {
		b.scanExpr(init)
	}
	if val := n.ChildByFieldName("value"); val != nil {
		b.scanExpr(val)
	}

	header := b.cur
	join := b.newBlock(BlockBody, n)

	// Pre-create case blocks so fallthrough can target the next case.
	type caseInfo struct {
		node  *sitter.Node
		block int
		deflt bool
	}
	var cases []caseInfo
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "expression_case", "type_case", "communication_case":
			cases = append(cases, caseInfo{node: c, block: b.newBlock(BlockBody, c)})
		case "default_case":
			cases = append(cases, caseInfo{node: c, block: b.newBlock(BlockBody, c), deflt: true})
		}
	}

	hasDefault := false
	for _, ci := range cases {
		b.edge(header, ci.block)
		if ci.deflt {
			hasDefault = true
		} else {
			b.g.decisions++
		}
	}
	if !hasDefault {
		b.edge(header, join)
	}

	b.frames = append(b.frames, loopFrame{brk: join, cont: none, label: b.label})
	b.label = ""

	for idx, ci := range cases {
		b.cur = ci.block
		fellThrough := false
		for i := 0; i < int(ci.node.NamedChildCount()); i++ {
			c := ci.node.NamedChild(i)
			switch c.Type() {
			case "expression_list", "type_identifier", "qualified_type", "pointer_type":
				// case label, not a statement
				b.scanExpr(c)
			case "fallthrough_statement":
				if idx+1 < len(cases) {
					b.closeTo(cases[idx+1].block)
					fellThrough = true
				}
			default:
				b.stmt(c)
			}
			if fellThrough {
				break
			}
		}
		if !fellThrough {
			b.closeTo(join)
		}
	}

	b.frames = b.frames[:len(b.frames)-1]
	b.cur = join
}

// jumpTarget resolves the destination of a break or continue, honoring an
// optional label. Unresolvable jumps fall back to the exit block.
func (b *builder) jumpTarget(n *sitter.Node, isBreak bool) int {
	label := ""
	if l := childOfType(n, "label_name"); l != nil {
		label = string(b.source[l.StartByte():l.EndByte()])
	}

	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		if label != "" && f.label != label {
			continue
		}
		if isBreak {
			return f.brk
		}
		if f.cont != none {
			return f.cont
		}
	}
	return b.g.Exit
}

// cond wires a condition expression into the graph, expanding short-circuit
// operators into chained condition blocks. Every two-way test adds one
// decision; a constant-true leaf adds none.
func (b *builder) cond(n *sitter.Node, t, f int) {
	n = unparen(n)
	if n == nil {
		b.edge(b.cur, t)
		return
	}

	switch logicalOp(n) {
	case "&&":
		right := b.newBlock(BlockCond, n.ChildByFieldName("right"))
		b.cond(n.ChildByFieldName("left"), right, f)
		b.cur = right
		b.cond(n.ChildByFieldName("right"), t, f)
	case "||":
		right := b.newBlock(BlockCond, n.ChildByFieldName("right"))
		b.cond(n.ChildByFieldName("left"), t, right)
		b.cur = right
		b.cond(n.ChildByFieldName("right"), t, f)
	default:
		if isConstTrue(n) {
			b.edge(b.cur, t)
			return
		}
		b.scanNested(n)
		b.edge(b.cur, t)
		b.edge(b.cur, f)
		b.g.decisions++
	}
}

// scanExpr counts short-circuit operators appearing in straight-line code
// (assignments, returns, call arguments) and folds in decisions from function
// literal bodies, which belong to the enclosing unit's score.
func (b *builder) scanExpr(n *sitter.Node) {
	if n == nil {
		return
	}
	if n.Type() == "func_literal" {
		sub := Build(n.ChildByFieldName("body"), b.source)
		b.g.decisions += sub.decisions
		return
	}
	if op := logicalOp(n); op != "" {
		b.g.decisions++
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.scanExpr(n.NamedChild(i))
	}
}

// scanNested picks up func literal decisions inside a condition leaf without
// re-counting the leaf itself.
func (b *builder) scanNested(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.scanExpr(n.NamedChild(i))
	}
}

// logicalOp returns "&&" or "||" for short-circuit binary expressions.
func logicalOp(n *sitter.Node) string {
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

func unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = n.NamedChild(0)
	}
	return n
}

func isConstTrue(n *sitter.Node) bool {
	n = unparen(n)
	return n != nil && n.Type() == "true"
}

// loopCondition finds the bare condition expression of a while-style for
// statement (no for_clause, no range_clause).
func loopCondition(n *sitter.Node) *sitter.Node {
	body := n.ChildByFieldName("body")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == body || c.Type() == "block" {
			continue
		}
		return c
	}
	return nil
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == typ {
			return n.NamedChild(i)
		}
	}
	return nil
}
