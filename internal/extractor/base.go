package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"reqprops/internal/syntax"
)

// SourceFile is the per-file state shared by a frontend while it converts
// the functions of one parsed file.
type SourceFile struct {
	Path string
	Code []byte
	// Imports maps a local package name to its import path (Go only).
	Imports map[string]string
}

func (f *SourceFile) content(n *sitter.Node) string {
	return n.Content(f.Code)
}

func (f *SourceFile) location(n *sitter.Node) syntax.Location {
	p := n.StartPoint()
	return syntax.Location{File: f.Path, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// LanguageExtractor defines the interface that each language frontend must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	// GetQuery captures every function declaration as @func.
	GetQuery() string
	Extensions() []string
	// Prepare collects file-level context before functions are extracted.
	Prepare(root *sitter.Node, file *SourceFile)
	ExtractFunction(node *sitter.Node, file *SourceFile) *syntax.Function
}
