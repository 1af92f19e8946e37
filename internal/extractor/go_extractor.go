package extractor

import (
	"path"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"reqprops/internal/syntax"
)

var majorVersionRe = regexp.MustCompile(`^v[0-9]+$`)

// GoExtractor implements LanguageExtractor for Go. Member, parameter and
// variable names are converted to snake_case; package-qualified names keep
// their spelling and are prefixed with the import path.
//
// A call that takes its input as a struct literal named after the operation,
// `client.SendMessage(ctx, &sqs.SendMessageInput{QueueUrl: u})`, is read as
// the chain `client.send_message().queue_url().do()`: one setter per key,
// closed by the terminal.
type GoExtractor struct {
	directive string
	terminal  string
}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `
		(function_declaration) @func
		(method_declaration) @func
	`
}

func (g *GoExtractor) Extensions() []string {
	return []string{".go"}
}

func (g *GoExtractor) Prepare(root *sitter.Node, file *SourceFile) {
	file.Imports = make(map[string]string)

	query, err := sitter.NewQuery([]byte(`(import_spec) @import`), golang.GetLanguage())
	if err != nil {
		return
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			pathNode := c.Node.ChildByFieldName("path")
			if pathNode == nil {
				continue
			}
			importPath := strings.Trim(file.content(pathNode), "\"`")
			local := importName(importPath)
			if nameNode := c.Node.ChildByFieldName("name"); nameNode != nil {
				local = file.content(nameNode)
			}
			if local == "_" || local == "." {
				continue
			}
			file.Imports[local] = importPath
		}
	}
}

// importName guesses the package name of an import path: the last element,
// skipping a major version suffix.
func importName(importPath string) string {
	base := path.Base(importPath)
	if majorVersionRe.MatchString(base) {
		base = path.Base(path.Dir(importPath))
	}
	return strings.ReplaceAll(base, "-", "_")
}

func (g *GoExtractor) ExtractFunction(node *sitter.Node, file *SourceFile) *syntax.Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	fn := &syntax.Function{
		Name:      file.content(nameNode),
		Location:  file.location(nameNode),
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		Directive: g.extractDirective(node, file),
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		fn.Params = g.extractParams(paramsNode, file)
	}
	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		convert := func(n *sitter.Node) syntax.Expr { return g.convert(n, file) }
		fn.Body = convertChildren(bodyNode, convert)
	}
	return fn
}

// extractDirective scans the doc comment directly above the declaration for
// a `//reqprops:required` line.
func (g *GoExtractor) extractDirective(node *sitter.Node, file *SourceFile) *syntax.Directive {
	currentNode := node
	for {
		prevSibling := currentNode.PrevSibling()
		if prevSibling == nil || prevSibling.Type() != "comment" ||
			currentNode.StartPoint().Row-prevSibling.EndPoint().Row > 1 {
			return nil
		}

		line := strings.TrimSpace(strings.TrimPrefix(file.content(prevSibling), "//"))
		if rest, ok := strings.CutPrefix(line, g.directive); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			services, err := parseDirectiveArgs(rest)
			return &syntax.Directive{Services: services, Location: file.location(prevSibling), Err: err}
		}
		currentNode = prevSibling
	}
}

func (g *GoExtractor) extractParams(paramsNode *sitter.Node, file *SourceFile) []syntax.Param {
	var params []syntax.Param
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		if pNode.Type() != "parameter_declaration" && pNode.Type() != "variadic_parameter_declaration" {
			continue
		}
		var typePath []string
		if tn := pNode.ChildByFieldName("type"); tn != nil {
			typePath = g.typePath(tn, file)
		}

		var names []string
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			if child := pNode.NamedChild(j); child.Type() == "identifier" {
				names = append(names, snakeCase(file.content(child)))
			}
		}
		if len(names) == 0 {
			params = append(params, syntax.Param{TypePath: typePath})
			continue
		}
		for _, n := range names {
			params = append(params, syntax.Param{Name: n, TypePath: typePath})
		}
	}
	return params
}

// typePath unwraps pointers, so `*sqs.Client` yields [<sqs import path> Client].
func (g *GoExtractor) typePath(n *sitter.Node, file *SourceFile) []string {
	switch n.Type() {
	case "pointer_type", "parenthesized_type":
		if n.NamedChildCount() > 0 {
			return g.typePath(n.NamedChild(0), file)
		}
	case "generic_type":
		if inner := n.ChildByFieldName("type"); inner != nil {
			return g.typePath(inner, file)
		}
	case "qualified_type":
		pkg := n.ChildByFieldName("package")
		name := n.ChildByFieldName("name")
		if pkg == nil || name == nil {
			return nil
		}
		return []string{g.resolvePackage(file.content(pkg), file), file.content(name)}
	case "type_identifier":
		return []string{file.content(n)}
	}
	return nil
}

func (g *GoExtractor) resolvePackage(name string, file *SourceFile) string {
	if importPath, ok := file.Imports[name]; ok {
		return importPath
	}
	return name
}

// packageOperand returns the import path when n names an imported package.
func (g *GoExtractor) packageOperand(n *sitter.Node, file *SourceFile) (string, bool) {
	if n.Type() != "identifier" {
		return "", false
	}
	importPath, ok := file.Imports[file.content(n)]
	return importPath, ok
}

func (g *GoExtractor) convert(n *sitter.Node, file *SourceFile) syntax.Expr {
	convert := func(c *sitter.Node) syntax.Expr { return g.convert(c, file) }

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
		if fnNode.Type() == "selector_expression" {
			operand := fnNode.ChildByFieldName("operand")
			field := fnNode.ChildByFieldName("field")
			if operand != nil && field != nil {
				if importPath, ok := g.packageOperand(operand, file); ok {
					return &syntax.Call{
						Callee:   &syntax.Path{Segments: []string{importPath, file.content(field)}, Location: file.location(fnNode)},
						Args:     args,
						Location: file.location(field),
					}
				}
				mc := &syntax.MethodCall{
					Receiver: g.convert(operand, file),
					Method:   snakeCase(file.content(field)),
					Args:     args,
					Location: file.location(field),
				}
				return g.chainInput(mc, file.content(field), n.ChildByFieldName("arguments"), file)
			}
		}
		return &syntax.Call{Callee: g.convert(fnNode, file), Args: args, Location: file.location(n)}

	case "selector_expression":
		operand := n.ChildByFieldName("operand")
		field := n.ChildByFieldName("field")
		if operand == nil || field == nil {
			return group(convertChildren(n, convert))
		}
		if importPath, ok := g.packageOperand(operand, file); ok {
			return &syntax.Path{Segments: []string{importPath, file.content(field)}, Location: file.location(n)}
		}
		return &syntax.Field{
			Operand:  g.convert(operand, file),
			Name:     snakeCase(file.content(field)),
			Named:    true,
			Location: file.location(field),
		}

	case "identifier":
		return &syntax.Path{Segments: []string{snakeCase(file.content(n))}, Location: file.location(n)}

	case "short_var_declaration":
		return g.convertBinding(n, n.ChildByFieldName("left"), n.ChildByFieldName("right"), file)

	case "var_spec":
		var names []*sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.FieldNameForChild(i) == "name" {
				names = append(names, n.Child(i))
			}
		}
		return g.convertVarSpec(n, names, n.ChildByFieldName("value"), file)

	case "comment", "type_declaration", "const_declaration", "import_declaration":
		return nil
	}

	return group(convertChildren(n, convert))
}

// chainInput appends the keys of the operation's input literal to mc as
// setter calls, followed by the terminal. mc is returned unchanged when no
// argument is a `<Operation>Input` literal.
func (g *GoExtractor) chainInput(mc *syntax.MethodCall, operation string, argsNode *sitter.Node, file *SourceFile) syntax.Expr {
	if argsNode == nil {
		return mc
	}
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		lit := compositeLiteral(argsNode.NamedChild(i))
		if lit == nil || !g.isInputType(lit.ChildByFieldName("type"), operation, file) {
			continue
		}
		var chain syntax.Expr = mc
		if body := lit.ChildByFieldName("body"); body != nil {
			for j := 0; j < int(body.NamedChildCount()); j++ {
				key := literalKey(body.NamedChild(j))
				if key == nil {
					continue
				}
				chain = &syntax.MethodCall{
					Receiver: chain,
					Method:   snakeCase(file.content(key)),
					Location: file.location(key),
				}
			}
		}
		if g.terminal == "" {
			return chain
		}
		return &syntax.MethodCall{Receiver: chain, Method: g.terminal, Location: file.location(lit)}
	}
	return mc
}

// compositeLiteral unwraps `&T{...}` and parentheses.
func compositeLiteral(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "composite_literal":
			return n
		case "unary_expression":
			if op := n.ChildByFieldName("operator"); op == nil || op.Type() != "&" {
				return nil
			}
			n = n.ChildByFieldName("operand")
		case "parenthesized_expression":
			n = n.NamedChild(0)
		default:
			return nil
		}
	}
	return nil
}

func (g *GoExtractor) isInputType(typeNode *sitter.Node, operation string, file *SourceFile) bool {
	if typeNode == nil {
		return false
	}
	tp := g.typePath(typeNode, file)
	return len(tp) > 0 && tp[len(tp)-1] == operation+"Input"
}

// literalKey returns the field name node of a `Key: value` element.
func literalKey(n *sitter.Node) *sitter.Node {
	if n.Type() != "keyed_element" || n.NamedChildCount() == 0 {
		return nil
	}
	key := n.NamedChild(0)
	if key.Type() == "literal_element" && key.NamedChildCount() > 0 {
		key = key.NamedChild(0)
	}
	if key.Type() != "field_identifier" && key.Type() != "identifier" {
		return nil
	}
	return key
}

// convertBinding turns `a, b := x, y` into one Let per name. When a single
// call initialises several names, the first name is bound to it.
func (g *GoExtractor) convertBinding(n, left, right *sitter.Node, file *SourceFile) syntax.Expr {
	var names []*sitter.Node
	if left != nil {
		for i := 0; i < int(left.NamedChildCount()); i++ {
			names = append(names, left.NamedChild(i))
		}
	}
	return g.convertVarSpec(n, names, right, file)
}

func (g *GoExtractor) convertVarSpec(n *sitter.Node, names []*sitter.Node, values *sitter.Node, file *SourceFile) syntax.Expr {
	var inits []syntax.Expr
	if values != nil {
		for i := 0; i < int(values.NamedChildCount()); i++ {
			inits = append(inits, g.convert(values.NamedChild(i), file))
		}
	}

	var lets []syntax.Expr
	for i, name := range names {
		let := &syntax.Let{Location: file.location(n)}
		if name.Type() == "identifier" {
			let.Name = snakeCase(file.content(name))
		}
		if i < len(inits) && (len(inits) == len(names) || i == 0) {
			let.Init = inits[i]
		}
		lets = append(lets, let)
	}
	// Values not bound to any name still get visited.
	for i := len(names); i < len(inits); i++ {
		if inits[i] != nil {
			lets = append(lets, inits[i])
		}
	}
	if len(lets) == 1 {
		return lets[0]
	}
	return group(lets)
}
