package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	sitter "github.com/smacker/go-tree-sitter"

	"reqprops/internal/syntax"
)

// ErrUnsupportedLanguage is returned for languages without a frontend.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	dialect       syntax.Dialect
}

// NewExtractor creates a new extractor for the dialect's language.
func NewExtractor(dialect syntax.Dialect) (*Extractor, error) {
	var langExt LanguageExtractor
	switch dialect.Language {
	case syntax.LanguageRust:
		langExt = &RustExtractor{directive: dialect.Directive}
	case syntax.LanguageGo:
		langExt = &GoExtractor{directive: dialect.Directive, terminal: dialect.Terminal}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, dialect.Language)
	}
	return &Extractor{langExtractor: langExt, dialect: dialect}, nil
}

// Dialect returns the dialect the extractor was built with.
func (e *Extractor) Dialect() syntax.Dialect {
	return e.dialect
}

// Handles reports whether the file extension belongs to this extractor's language.
func (e *Extractor) Handles(path string) bool {
	return slices.Contains(e.langExtractor.Extensions(), filepath.Ext(path))
}

// LanguageForPath maps a file name to a supported language.
func LanguageForPath(path string) (string, bool) {
	switch filepath.Ext(path) {
	case ".rs":
		return syntax.LanguageRust, true
	case ".go":
		return syntax.LanguageGo, true
	}
	return "", false
}

// ExtractFromFile parses a single source file and extracts every function.
func (e *Extractor) ExtractFromFile(ctx context.Context, path string) ([]*syntax.Function, error) {
	sourceCode, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.ExtractFromSource(ctx, path, sourceCode)
}

// ExtractFromSource extracts every function of an in-memory file.
func (e *Extractor) ExtractFromSource(ctx context.Context, path string, sourceCode []byte) ([]*syntax.Function, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	defer tree.Close()

	file := &SourceFile{Path: path, Code: sourceCode}
	e.langExtractor.Prepare(tree.RootNode(), file)

	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var functions []*syntax.Function
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if query.CaptureNameForId(c.Index) != "func" {
				continue
			}
			if fn := e.langExtractor.ExtractFunction(c.Node, file); fn != nil {
				fn.Language = e.dialect.Language
				functions = append(functions, fn)
			}
		}
	}

	return functions, nil
}

// convertChildren converts the named children of n, dropping shapes the
// converter ignores.
func convertChildren(n *sitter.Node, convert func(*sitter.Node) syntax.Expr) []syntax.Expr {
	var out []syntax.Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if e := convert(n.NamedChild(i)); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// group wraps converted children, or returns nil when there are none.
func group(children []syntax.Expr) syntax.Expr {
	if len(children) == 0 {
		return nil
	}
	return &syntax.Group{Children: children}
}
