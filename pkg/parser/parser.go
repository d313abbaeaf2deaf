// Package parser wraps tree-sitter parsing and function extraction for Go
// source files.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Language tags a parse result with its source language.
type Language string

const (
	LangGo      Language = "go"
	LangUnknown Language = "unknown"
)

// ParseError reports a source unit that could not be parsed. The unit is
// skipped and the batch continues.
type ParseError struct {
	Path string
	Name string
	Line uint32
	Err  error
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%d: %s: %v", e.Path, e.Line, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser wraps a tree-sitter parser instance. A Parser is not safe for
// concurrent use; create one per worker.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed tree and its source.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a parser configured for Go source.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile reads and parses a source file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if DetectLanguage(path) == LangUnknown {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unsupported file type")}
	}

	return p.Parse(source, path)
}

// Parse parses source text.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &ParseResult{
		Tree:     tree,
		Language: LangGo,
		Source:   source,
		Path:     path,
	}, nil
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	if strings.ToLower(filepath.Ext(path)) == ".go" {
		return LangGo
	}
	return LangUnknown
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO
// overhead on repeated Type() calls.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the tree calling visitor for each node. Returning false from
// the visitor skips the node's children.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the tree with cached node types.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodes returns all nodes matching a predicate.
func FindNodes(root *sitter.Node, source []byte, predicate func(*sitter.Node) bool) []*sitter.Node {
	var results []*sitter.Node
	Walk(root, source, func(node *sitter.Node, source []byte) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindNodesByType returns all nodes of a specific type.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	return FindNodes(root, source, func(n *sitter.Node) bool {
		return n.Type() == nodeType
	})
}

// GetNodeText extracts the source text for a node. Returns the empty string
// for nil nodes or out-of-range byte offsets.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
