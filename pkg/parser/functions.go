package parser

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// FunctionUnit represents one analyzable function or method. It is immutable
// after extraction and owned by the analysis run that produced it.
type FunctionUnit struct {
	Name       string
	StartLine  uint32
	EndLine    uint32
	Parameters []string
	Body       *sitter.Node
	Node       *sitter.Node
}

// functionNodeTypes are the Go declaration forms treated as top-level units.
// Function literals are scored as part of their enclosing function.
var functionNodeTypes = map[string]bool{
	"function_declaration": true,
	"method_declaration":   true,
}

// Functions extracts all function units from a parse result. Units whose
// subtree contains a syntax error are returned separately as ParseErrors.
func Functions(result *ParseResult) ([]FunctionUnit, []*ParseError) {
	var units []FunctionUnit
	var failed []*ParseError

	root := result.Tree.RootNode()

	Walk(root, result.Source, func(node *sitter.Node, source []byte) bool {
		if !functionNodeTypes[node.Type()] {
			return true
		}

		unit := extractFunction(node, source)
		if node.HasError() {
			failed = append(failed, &ParseError{
				Path: result.Path,
				Name: unit.Name,
				Line: unit.StartLine,
				Err:  fmt.Errorf("syntax error in function body"),
			})
			return false
		}

		units = append(units, unit)
		return false
	})

	// A file that parses to nothing but errors yields a file-level failure
	// so the caller can report it instead of silently producing zero units.
	if len(units) == 0 && len(failed) == 0 && root.HasError() {
		failed = append(failed, &ParseError{
			Path: result.Path,
			Err:  fmt.Errorf("file contains syntax errors"),
		})
	}

	return units, failed
}

// extractFunction builds a FunctionUnit from a declaration node.
func extractFunction(node *sitter.Node, source []byte) FunctionUnit {
	unit := FunctionUnit{
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
		Node:      node,
		Body:      node.ChildByFieldName("body"),
	}

	name := GetNodeText(node.ChildByFieldName("name"), source)
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		unit.Name = qualifyMethod(recv, source, name)
	} else {
		unit.Name = name
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			unit.Parameters = append(unit.Parameters, GetNodeText(p, source))
		}
	}

	return unit
}

// qualifyMethod builds "Type.Name" from a method receiver.
func qualifyMethod(recv *sitter.Node, source []byte, name string) string {
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		decl := recv.NamedChild(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		typ := GetNodeText(decl.ChildByFieldName("type"), source)
		typ = strings.TrimPrefix(typ, "*")
		if typ != "" {
			return typ + "." + name
		}
	}
	return name
}

// SimpleName returns the method name without its receiver qualifier. Used for
// direct-recursion detection.
func (f FunctionUnit) SimpleName() string {
	if i := strings.LastIndex(f.Name, "."); i >= 0 {
		return f.Name[i+1:]
	}
	return f.Name
}

// LineCount is the inclusive physical line span of the unit.
func (f FunctionUnit) LineCount() int {
	return int(f.EndLine - f.StartLine + 1)
}
