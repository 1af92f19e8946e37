package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"reqprops/internal/syntax"
)

// RustExtractor implements LanguageExtractor for Rust.
type RustExtractor struct {
	directive string
}

func (r *RustExtractor) GetLanguage() *sitter.Language {
	return rust.GetLanguage()
}

func (r *RustExtractor) GetQuery() string {
	return `(function_item) @func`
}

func (r *RustExtractor) Extensions() []string {
	return []string{".rs"}
}

func (r *RustExtractor) Prepare(root *sitter.Node, file *SourceFile) {}

func (r *RustExtractor) ExtractFunction(node *sitter.Node, file *SourceFile) *syntax.Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	fn := &syntax.Function{
		Name:      file.content(nameNode),
		Location:  file.location(nameNode),
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		Directive: r.extractDirective(node, file),
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		fn.Params = r.extractParams(paramsNode, file)
	}
	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		convert := func(n *sitter.Node) syntax.Expr { return r.convert(n, file) }
		fn.Body = convertChildren(bodyNode, convert)
	}
	return fn
}

// extractDirective looks for the marker among the attributes directly above
// the function. Comments between attributes are skipped.
func (r *RustExtractor) extractDirective(node *sitter.Node, file *SourceFile) *syntax.Directive {
	for prev := node.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Type() {
		case "line_comment", "block_comment":
			continue
		case "attribute_item":
			args, ok := r.matchAttribute(file.content(prev))
			if !ok {
				continue
			}
			services, err := parseDirectiveArgs(args)
			return &syntax.Directive{Services: services, Location: file.location(prev), Err: err}
		}
		break
	}
	return nil
}

// matchAttribute reports whether `#[path::name(args)]` names the directive
// and returns the text between the parentheses.
func (r *RustExtractor) matchAttribute(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "#[")
	text = strings.TrimSuffix(text, "]")

	name, args, hasArgs := strings.Cut(text, "(")
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if name != r.directive {
		return "", false
	}
	if !hasArgs {
		return "", true
	}
	return strings.TrimSuffix(strings.TrimSpace(args), ")"), true
}

func (r *RustExtractor) extractParams(paramsNode *sitter.Node, file *SourceFile) []syntax.Param {
	var params []syntax.Param
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		if p.Type() != "parameter" {
			continue
		}
		var name string
		if pattern := p.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
			name = file.content(pattern)
		}
		var typePath []string
		if typeNode := p.ChildByFieldName("type"); typeNode != nil {
			typePath = r.typePath(typeNode, file)
		}
		params = append(params, syntax.Param{Name: name, TypePath: typePath})
	}
	return params
}

// typePath unwraps references and generic arguments, so `&aws_sdk_sqs::Client`
// yields [aws_sdk_sqs Client].
func (r *RustExtractor) typePath(n *sitter.Node, file *SourceFile) []string {
	switch n.Type() {
	case "reference_type", "generic_type":
		if inner := n.ChildByFieldName("type"); inner != nil {
			return r.typePath(inner, file)
		}
	case "scoped_type_identifier":
		var segments []string
		if path := n.ChildByFieldName("path"); path != nil {
			segments = r.pathSegments(path, file)
		}
		if name := n.ChildByFieldName("name"); name != nil {
			segments = append(segments, file.content(name))
		}
		return segments
	case "type_identifier", "primitive_type":
		return []string{file.content(n)}
	}
	return nil
}

func (r *RustExtractor) pathSegments(n *sitter.Node, file *SourceFile) []string {
	switch n.Type() {
	case "scoped_identifier", "scoped_type_identifier":
		var segments []string
		if path := n.ChildByFieldName("path"); path != nil {
			segments = r.pathSegments(path, file)
		}
		if name := n.ChildByFieldName("name"); name != nil {
			segments = append(segments, file.content(name))
		}
		return segments
	case "generic_type":
		if inner := n.ChildByFieldName("type"); inner != nil {
			return r.pathSegments(inner, file)
		}
	}
	return []string{file.content(n)}
}

func (r *RustExtractor) convert(n *sitter.Node, file *SourceFile) syntax.Expr {
	convert := func(c *sitter.Node) syntax.Expr { return r.convert(c, file) }

	switch n.Type() {
	case "call_expression":
		var args []syntax.Expr
		if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
			args = convertChildren(argsNode, convert)
		}
		fnNode := n.ChildByFieldName("function")
		if fnNode == nil {
			return group(args)
		}
		target := fnNode
		if target.Type() == "generic_function" {
			if inner := target.ChildByFieldName("function"); inner != nil {
				target = inner
			}
		}
		if target.Type() == "field_expression" {
			field := target.ChildByFieldName("field")
			value := target.ChildByFieldName("value")
			if field != nil && value != nil {
				return &syntax.MethodCall{
					Receiver: r.convert(value, file),
					Method:   file.content(field),
					Args:     args,
					Location: file.location(field),
				}
			}
		}
		return &syntax.Call{Callee: r.convert(fnNode, file), Args: args, Location: file.location(n)}

	case "field_expression":
		field := n.ChildByFieldName("field")
		value := n.ChildByFieldName("value")
		if field == nil || value == nil {
			return group(convertChildren(n, convert))
		}
		return &syntax.Field{
			Operand:  r.convert(value, file),
			Name:     file.content(field),
			Named:    field.Type() == "field_identifier",
			Location: file.location(field),
		}

	case "identifier", "self", "super", "crate":
		return &syntax.Path{Segments: []string{file.content(n)}, Location: file.location(n)}

	case "scoped_identifier":
		return &syntax.Path{Segments: r.pathSegments(n, file), Location: file.location(n)}

	case "let_declaration":
		let := &syntax.Let{Location: file.location(n)}
		if pattern := n.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
			let.Name = file.content(pattern)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			let.Init = r.convert(value, file)
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if e := r.convert(alt, file); e != nil {
				return &syntax.Group{Children: []syntax.Expr{let, e}}
			}
		}
		return let

	// Nested items are extracted on their own; macro bodies are token trees.
	case "function_item", "macro_invocation", "macro_definition",
		"line_comment", "block_comment", "attribute_item", "use_declaration",
		"struct_item", "enum_item", "impl_item", "trait_item", "mod_item":
		return nil
	}

	return group(convertChildren(n, convert))
}
