package advisor

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/refract-sh/refract/pkg/analyzer/cfg"
	"github.com/refract-sh/refract/pkg/analyzer/complexity"
	"github.com/refract-sh/refract/pkg/models"
)

// checkGuardClause finds a trailing conditional with no else that wraps the
// remainder of the function at meaningful nesting. Inverting it into an early
// exit dedents the wrapped body by one level.
func checkGuardClause(c *checkContext) *models.Suggestion {
	var target *sitter.Node
	var targetDepth int

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if target != nil {
			return false
		}
		if n.Type() != "if_statement" {
			return true
		}
		if n.ChildByFieldName("alternative") != nil {
			return true
		}
		if !isLastStmt(n) {
			return true
		}
		cons := n.ChildByFieldName("consequence")
		if cons == nil || cons.NamedChildCount() < 2 {
			return true
		}
		_, innerMax := complexity.Cognitive(cons, c.source, "")
		if depth+1+innerMax < 2 {
			return true
		}
		target = n
		targetDepth = depth
		return false
	})

	if target == nil {
		return nil
	}

	cons := target.ChildByFieldName("consequence")
	self := c.unit.SimpleName()
	// Re-score the wrapped body at its current depth and one level shallower;
	// the difference is exactly the nesting penalty the rewrite removes.
	saved := clampSub(
		complexity.At(cons, c.source, self, targetDepth+1),
		complexity.At(cons, c.source, self, targetDepth),
	)

	before := c.before()
	start, end := span(target)
	return &models.Suggestion{
		Pattern:   models.PatternGuardClause,
		StartLine: start,
		EndLine:   end,
		Rationale: "invert the condition and return early so the wrapped body loses one nesting level",
		Before:    before,
		After: models.Estimate{
			Cyclomatic: before.Cyclomatic,
			Cognitive:  clampSub(before.Cognitive, saved),
		},
	}
}

// ifChainDepth returns the deepest chain of conditionals nested inside a
// subtree.
func ifChainDepth(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	max := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if d := ifChainDepth(n.NamedChild(i)); d > max {
			max = d
		}
	}
	if n.Type() == "if_statement" {
		return max + 1
	}
	return max
}

// checkDecomposeConditional finds a conditional whose branch contains at
// least two further nested conditionals. Extracting the branch bodies into
// named functions leaves only the top-level test behind.
func checkDecomposeConditional(c *checkContext) *models.Suggestion {
	var target *sitter.Node
	var targetDepth int

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if target != nil {
			return false
		}
		if n.Type() != "if_statement" {
			return true
		}
		cons := n.ChildByFieldName("consequence")
		alt := n.ChildByFieldName("alternative")
		if ifChainDepth(cons) >= 2 || (alt != nil && ifChainDepth(alt) >= 2) {
			target = n
			targetDepth = depth
			return false
		}
		return true
	})

	if target == nil {
		return nil
	}

	self := c.unit.SimpleName()
	cons := target.ChildByFieldName("consequence")
	alt := target.ChildByFieldName("alternative")

	removedDecisions := cfg.CountDecisions(cons, c.source)
	removedCognitive := complexity.At(cons, c.source, self, targetDepth+1)
	if alt != nil {
		removedDecisions += cfg.CountDecisions(alt, c.source)
		if alt.Type() == "if_statement" {
			removedCognitive += complexity.At(alt, c.source, self, targetDepth)
		} else {
			removedCognitive += complexity.At(alt, c.source, self, targetDepth+1)
		}
	}

	before := c.before()
	start, end := span(target)
	return &models.Suggestion{
		Pattern:   models.PatternDecomposeConditional,
		StartLine: start,
		EndLine:   end,
		Rationale: "extract the nested branch bodies into named functions, leaving only the top-level test",
		Before:    before,
		After: models.Estimate{
			Cyclomatic: clampSub(before.Cyclomatic, removedDecisions),
			Cognitive:  clampSub(before.Cognitive, removedCognitive),
		},
	}
}

// checkExtractFunction triggers on functions over the line limit or on a
// single oversized block that reads like a separable sub-task.
func checkExtractFunction(c *checkContext) *models.Suggestion {
	overLimit := c.metrics.Lines > c.limits.Lines

	block, blockDepth := c.extractCandidate()
	if !overLimit && block == nil {
		return nil
	}

	before := c.before()
	after := before
	start, end := c.unit.StartLine, c.unit.EndLine
	rationale := fmt.Sprintf("function spans %d lines (limit %d); split sequential steps into helpers", c.metrics.Lines, c.limits.Lines)

	if block != nil {
		after = models.Estimate{
			Cyclomatic: clampSub(before.Cyclomatic, cfg.CountDecisions(block, c.source)),
			Cognitive:  clampSub(before.Cognitive, complexity.At(block, c.source, c.unit.SimpleName(), blockDepth)),
		}
		start, end = span(block)
		rationale = fmt.Sprintf("block of %d lines is a coherent sub-task; extract it into its own function", lineSpan(block))
	}

	return &models.Suggestion{
		Pattern:   models.PatternExtractFunction,
		StartLine: start,
		EndLine:   end,
		Rationale: rationale,
		Before:    before,
		After:     after,
	}
}

// extractCandidate looks for a nested block covering more than ~40% of the
// function whose variables barely leak into the surrounding code.
func (c *checkContext) extractCandidate() (*sitter.Node, int) {
	total := c.metrics.Lines
	if total == 0 {
		return nil, 0
	}

	bodyIdents := identifiers(c.unit.Body, c.source)

	var best *sitter.Node
	var bestDepth int
	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if n.Type() != "block" || n == c.unit.Body {
			return true
		}
		if lineSpan(n)*10 < total*4 {
			return true
		}
		inside := identifiers(n, c.source)
		if len(inside) == 0 {
			return true
		}
		shared := 0
		for name, count := range inside {
			if bodyIdents[name] > count {
				shared++
			}
		}
		// Coherent sub-task: at most half its identifiers are shared with
		// the rest of the function.
		if shared*2 > len(inside) {
			return true
		}
		if best == nil || lineSpan(n) > lineSpan(best) {
			best = n
			bestDepth = depth
		}
		return true
	})

	return best, bestDepth
}

// checkInvertExpression finds a conditional test combining a term and its own
// negation, which boolean algebra reduces to fewer operators.
func checkInvertExpression(c *checkContext) *models.Suggestion {
	var target *sitter.Node
	var cond *sitter.Node

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if target != nil {
			return false
		}
		if n.Type() != "if_statement" {
			return true
		}
		cn := n.ChildByFieldName("condition")
		positive := make(map[string]bool)
		negated := make(map[string]bool)
		collectTerms(cn, c.source, positive, negated)
		for term := range negated {
			if positive[term] {
				target = n
				cond = cn
				return false
			}
		}
		return true
	})

	if target == nil {
		return nil
	}

	ops := logicalOpCount(cond)
	if ops == 0 {
		return nil
	}
	runScore := complexity.At(cond, c.source, "", 0)

	before := c.before()
	start, end := span(target)
	return &models.Suggestion{
		Pattern:   models.PatternInvertExpression,
		StartLine: start,
		EndLine:   end,
		Rationale: "the test combines a term with its own negation; simplify it to a single direct condition",
		Before:    before,
		After: models.Estimate{
			Cyclomatic: clampSub(before.Cyclomatic, ops),
			Cognitive:  clampSub(before.Cognitive, runScore),
		},
	}
}

// earlyReturnText returns the body text of an if statement that is exactly
// "if cond { return X }" with no else, or "" when the shape does not match.
func earlyReturnText(c *checkContext, n *sitter.Node) string {
	if n.Type() != "if_statement" || n.ChildByFieldName("alternative") != nil {
		return ""
	}
	cons := n.ChildByFieldName("consequence")
	if cons == nil || cons.NamedChildCount() != 1 {
		return ""
	}
	ret := cons.NamedChild(0)
	if ret.Type() != "return_statement" {
		return ""
	}
	return c.text(ret)
}

// checkConsolidateConditional finds consecutive early-return conditionals
// whose bodies are identical; their conditions can be merged into one
// disjunction.
func checkConsolidateConditional(c *checkContext) *models.Suggestion {
	var first, last *sitter.Node
	var run int
	var runDepth int

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if first != nil && run >= 2 {
			return false
		}
		if n.Type() != "block" {
			return true
		}

		var cur []*sitter.Node
		curText := ""
		flush := func() {
			if len(cur) >= 2 && run < len(cur) {
				first, last, run, runDepth = cur[0], cur[len(cur)-1], len(cur), depth
			}
			cur = nil
			curText = ""
		}
		for _, k := range namedChildren(n) {
			t := earlyReturnText(c, k)
			if t == "" {
				flush()
				continue
			}
			if len(cur) > 0 && t != curText {
				flush()
			}
			cur = append(cur, k)
			curText = t
		}
		flush()
		return true
	})

	if run < 2 {
		return nil
	}

	// Merging n conditionals into one test drops n-1 nesting-weighted
	// conditionals and adds one operator run.
	saved := uint32((run - 1) * (1 + runDepth))
	before := c.before()
	start, _ := span(first)
	_, end := span(last)
	return &models.Suggestion{
		Pattern:   models.PatternConsolidateConditional,
		StartLine: start,
		EndLine:   end,
		Rationale: fmt.Sprintf("%d consecutive guards return the same value; combine their conditions with ||", run),
		Before:    before,
		After: models.Estimate{
			Cyclomatic: before.Cyclomatic,
			Cognitive:  clampSub(before.Cognitive, saved) + 1,
		},
	}
}

// checkRemoveControlFlag finds a boolean local assigned inside a loop and
// read only by the loop's continuation test or right after the loop; a break
// (or returning directly) makes the flag unnecessary.
func checkRemoveControlFlag(c *checkContext) *models.Suggestion {
	for _, decl := range namedChildren(c.unit.Body) {
		name, declNode := boolFlagDecl(c, decl)
		if name == "" {
			continue
		}
		loop := c.flagLoop(name, declNode)
		if loop == nil {
			continue
		}
		if !c.flagReadsConfined(name, declNode, loop) {
			continue
		}

		before := c.before()
		start, _ := span(declNode)
		_, end := span(loop)
		return &models.Suggestion{
			Pattern:   models.PatternRemoveControlFlag,
			StartLine: start,
			EndLine:   end,
			Rationale: fmt.Sprintf("%q only steers the loop exit; replace it with break or an early return", name),
			Before:    before,
			After: models.Estimate{
				Cyclomatic: clampSub(before.Cyclomatic, 1),
				Cognitive:  clampSub(before.Cognitive, 1),
			},
		}
	}
	return nil
}

// boolFlagDecl recognizes `x := true/false` and `var x bool` declarations.
func boolFlagDecl(c *checkContext, n *sitter.Node) (string, *sitter.Node) {
	switch n.Type() {
	case "short_var_declaration":
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left == nil || right == nil || left.NamedChildCount() != 1 || right.NamedChildCount() != 1 {
			return "", nil
		}
		switch right.NamedChild(0).Type() {
		case "true", "false":
			return c.text(left.NamedChild(0)), n
		}
	case "var_declaration":
		if n.NamedChildCount() != 1 {
			return "", nil
		}
		spec := n.NamedChild(0)
		if spec.Type() != "var_spec" {
			return "", nil
		}
		typ := spec.ChildByFieldName("type")
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			return "", nil
		}
		if typ != nil && c.text(typ) == "bool" {
			return c.text(nameNode), n
		}
		if val := spec.ChildByFieldName("value"); val != nil && val.NamedChildCount() == 1 {
			switch val.NamedChild(0).Type() {
			case "true", "false":
				return c.text(nameNode), n
			}
		}
	}
	return "", nil
}

// flagLoop finds a loop in which the flag is assigned.
func (c *checkContext) flagLoop(name string, decl *sitter.Node) *sitter.Node {
	var loop *sitter.Node
	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if loop != nil {
			return false
		}
		if n.Type() != "for_statement" {
			return true
		}
		body := n.ChildByFieldName("body")
		if body == nil {
			return true
		}
		for _, assigned := range assignedNames(body, c.source) {
			if assigned == name {
				loop = n
				return false
			}
		}
		return true
	})
	return loop
}

// assignedNames lists identifiers on the left of assignments in a subtree.
func assignedNames(n *sitter.Node, source []byte) []string {
	var names []string
	stack := []*sitter.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Type() == "assignment_statement" {
			if left := cur.ChildByFieldName("left"); left != nil {
				for i := 0; i < int(left.NamedChildCount()); i++ {
					if id := left.NamedChild(i); id.Type() == "identifier" {
						names = append(names, string(source[id.StartByte():id.EndByte()]))
					}
				}
			}
		}
		for i := 0; i < int(cur.NamedChildCount()); i++ {
			stack = append(stack, cur.NamedChild(i))
		}
	}
	return names
}

// flagReadsConfined verifies every use of the flag outside its declaration
// and loop-body assignments sits in the loop's continuation test or after the
// loop.
func (c *checkContext) flagReadsConfined(name string, decl, loop *sitter.Node) bool {
	body := loop.ChildByFieldName("body")
	loopEnd := loop.EndByte()
	ok := true

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if !ok {
			return false
		}
		if n.Type() != "identifier" || c.text(n) != name {
			return true
		}
		switch {
		case within(n, decl):
			return true
		case body != nil && within(n, body):
			// inside the loop only assignments are allowed
			if p := n.Parent(); p != nil && p.Type() == "expression_list" {
				if pp := p.Parent(); pp != nil && pp.Type() == "assignment_statement" {
					return true
				}
			}
			ok = false
		case within(n, loop):
			// continuation test
			return true
		case n.StartByte() > loopEnd:
			return true
		default:
			ok = false
		}
		return true
	})

	return ok
}

// within reports whether node n lies inside container's byte range.
func within(n, container *sitter.Node) bool {
	return n.StartByte() >= container.StartByte() && n.EndByte() <= container.EndByte()
}

// caseShape captures the single-statement body type of a switch case, or ""
// when the case has a different shape.
func caseShape(caseNode *sitter.Node) string {
	var stmts []*sitter.Node
	for _, k := range namedChildren(caseNode) {
		switch k.Type() {
		case "expression_list", "type_identifier", "qualified_type", "pointer_type":
			continue
		default:
			stmts = append(stmts, k)
		}
	}
	if len(stmts) != 1 {
		return ""
	}
	return stmts[0].Type()
}

// checkTableDriven finds switches and else-if chains with three or more
// uniform single-statement branches, which a lookup table replaces outright.
func checkTableDriven(c *checkContext) *models.Suggestion {
	if s := c.tableDrivenSwitch(); s != nil {
		return s
	}
	return c.tableDrivenChain()
}

func (c *checkContext) tableDrivenSwitch() *models.Suggestion {
	var target *sitter.Node
	var branches uint32

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if target != nil {
			return false
		}
		switch n.Type() {
		case "expression_switch_statement", "type_switch_statement":
		default:
			return true
		}

		shape := ""
		var count uint32
		for _, k := range namedChildren(n) {
			switch k.Type() {
			case "expression_case", "type_case":
				s := caseShape(k)
				if s == "" || (shape != "" && s != shape) {
					return true
				}
				shape = s
				count++
			case "default_case":
				if s := caseShape(k); s == "" || (shape != "" && s != shape) {
					return true
				}
			}
		}
		if count >= 3 {
			target = n
			branches = count
			return false
		}
		return true
	})

	if target == nil {
		return nil
	}

	before := c.before()
	start, end := span(target)
	return &models.Suggestion{
		Pattern:   models.PatternTableDriven,
		StartLine: start,
		EndLine:   end,
		Rationale: fmt.Sprintf("all %d cases share one shape; replace the switch with a lookup table", branches),
		Before:    before,
		After: models.Estimate{
			Cyclomatic: clampSub(before.Cyclomatic, branches) + 1,
			Cognitive:  before.Cognitive,
		},
	}
}

func (c *checkContext) tableDrivenChain() *models.Suggestion {
	var head *sitter.Node
	var length int
	var headDepth int

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if head != nil {
			return false
		}
		if n.Type() != "if_statement" {
			return true
		}
		if p := n.Parent(); p != nil && p.Type() == "if_statement" {
			// middle of a chain; only consider the head
			return true
		}

		shape := ""
		count := 0
		for cur := n; cur != nil; {
			cons := cur.ChildByFieldName("consequence")
			if cons == nil || cons.NamedChildCount() != 1 {
				return true
			}
			s := cons.NamedChild(0).Type()
			if shape != "" && s != shape {
				return true
			}
			shape = s
			count++
			alt := cur.ChildByFieldName("alternative")
			if alt == nil {
				break
			}
			if alt.Type() == "if_statement" {
				cur = alt
				continue
			}
			if alt.NamedChildCount() != 1 || alt.NamedChild(0).Type() != shape {
				return true
			}
			break
		}
		if count >= 3 {
			head = n
			length = count
			headDepth = depth
			return false
		}
		return true
	})

	if head == nil {
		return nil
	}

	before := c.before()
	start, end := span(head)
	saved := uint32((length - 1) * (1 + headDepth))
	return &models.Suggestion{
		Pattern:   models.PatternTableDriven,
		StartLine: start,
		EndLine:   end,
		Rationale: fmt.Sprintf("else-if chain of %d uniform branches; replace it with a lookup table", length),
		Before:    before,
		After: models.Estimate{
			Cyclomatic: clampSub(before.Cyclomatic, uint32(length)) + 1,
			Cognitive:  clampSub(before.Cognitive, saved),
		},
	}
}

// releaseCall matches statements of the form `recv.Method()` with no
// arguments, the usual shape of Close/Unlock/Release calls.
func releaseCall(c *checkContext, stmt *sitter.Node) (recv, text string) {
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return "", ""
	}
	call := stmt.NamedChild(0)
	if call.Type() != "call_expression" {
		return "", ""
	}
	if args := call.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		return "", ""
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "selector_expression" {
		return "", ""
	}
	op := fn.ChildByFieldName("operand")
	if op == nil || op.Type() != "identifier" {
		return "", ""
	}
	return c.text(op), c.text(call)
}

// checkScopedCleanup finds a resource released separately on two or more
// return paths; a single deferred release at the acquisition site replaces
// all of them.
func checkScopedCleanup(c *checkContext) *models.Suggestion {
	type site struct {
		stmt *sitter.Node
		recv string
	}
	sites := make(map[string][]site)

	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if n.Type() != "block" {
			return true
		}
		kids := namedChildren(n)
		for i, k := range kids {
			recv, text := releaseCall(c, k)
			if text == "" {
				continue
			}
			// release followed by a return path
			followed := i+1 < len(kids) && kids[i+1].Type() == "return_statement"
			if !followed && !(i == len(kids)-1 && n == c.unit.Body) {
				continue
			}
			sites[text] = append(sites[text], site{stmt: k, recv: recv})
		}
		return true
	})

	for text, list := range sites {
		if len(list) < 2 {
			continue
		}
		recv := list[0].recv
		acq := c.acquisitionOf(recv, list[0].stmt)
		if acq == nil {
			continue
		}

		before := c.before()
		start, _ := span(acq)
		_, end := span(list[len(list)-1].stmt)
		return &models.Suggestion{
			Pattern:   models.PatternScopedCleanup,
			StartLine: start,
			EndLine:   end,
			Rationale: fmt.Sprintf("%s is repeated on %d return paths; defer it once at acquisition", text, len(list)),
			Before:    before,
			After:     before,
		}
	}
	return nil
}

// acquisitionOf finds an earlier statement assigning the receiver from a
// call.
func (c *checkContext) acquisitionOf(recv string, before *sitter.Node) *sitter.Node {
	var acq *sitter.Node
	walkDepth(c.unit.Body, 0, func(n *sitter.Node, depth int) bool {
		if acq != nil {
			return false
		}
		if n.StartByte() >= before.StartByte() {
			return false
		}
		switch n.Type() {
		case "short_var_declaration", "assignment_statement":
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left == nil || right == nil {
				return true
			}
			hasCall := false
			for i := 0; i < int(right.NamedChildCount()); i++ {
				if right.NamedChild(i).Type() == "call_expression" {
					hasCall = true
				}
			}
			if !hasCall {
				return true
			}
			for i := 0; i < int(left.NamedChildCount()); i++ {
				if id := left.NamedChild(i); id.Type() == "identifier" && c.text(id) == recv {
					acq = n
					return false
				}
			}
		}
		return true
	})
	return acq
}
