package langadapter

import (
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
)

// tsAdapter parses TypeScript/JavaScript with the tree-sitter typescript
// grammar. The same grammar covers JS: its AST is a subset of the
// TypeScript one.
type tsAdapter struct {
	language *sitter.Language
}

// NewTypeScriptAdapter creates the combined TypeScript/JavaScript adapter.
func NewTypeScriptAdapter() Adapter {
	return &tsAdapter{language: sitter.NewLanguage(typescript.LanguageTypescript())}
}

func (*tsAdapter) LanguageID() string { return "typescript" }
func (*tsAdapter) Extensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
}
func (*tsAdapter) DisplayName() string { return "TypeScript/JavaScript" }

func (a *tsAdapter) Parse(text, path string) ([]CodeNode, error) {
	source := []byte(text)
	tree, err := parseSource(a.language, source, path)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var nodes []CodeNode
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		if !tsTopLevel(n) {
			return true
		}
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration":
			nodes = append(nodes, CodeNode{
				Kind:      KindFunction,
				Name:      fieldText(n, "name", source),
				Exported:  tsExported(n),
				StartLine: nodeStartLine(n),
				EndLine:   nodeEndLine(n),
				Signature: tsFunctionSignature(n, source),
			})
		case "class_declaration":
			node := CodeNode{
				Kind:      KindClass,
				Name:      fieldText(n, "name", source),
				Exported:  tsExported(n),
				StartLine: nodeStartLine(n),
				EndLine:   nodeEndLine(n),
				Signature: strings.TrimSpace(firstLine(nodeText(n, source))),
			}
			node.Methods = tsMethods(n.ChildByFieldName("body"), "method_definition", source)
			nodes = append(nodes, node)
			return false
		case "interface_declaration":
			node := CodeNode{
				Kind:      KindInterface,
				Name:      fieldText(n, "name", source),
				Exported:  tsExported(n),
				StartLine: nodeStartLine(n),
				EndLine:   nodeEndLine(n),
				Signature: strings.TrimSpace(firstLine(nodeText(n, source))),
			}
			node.Methods = tsMethods(n.ChildByFieldName("body"), "method_signature", source)
			nodes = append(nodes, node)
			return false
		case "type_alias_declaration", "enum_declaration":
			nodes = append(nodes, CodeNode{
				Kind:      KindType,
				Name:      fieldText(n, "name", source),
				Exported:  tsExported(n),
				StartLine: nodeStartLine(n),
				EndLine:   nodeEndLine(n),
				Signature: strings.TrimSpace(firstLine(nodeText(n, source))),
			})
			return false
		case "lexical_declaration", "variable_declaration":
			for _, decl := range findChildrenByKind(n, "variable_declarator") {
				name := fieldText(decl, "name", source)
				if name == "" {
					continue
				}
				nodes = append(nodes, CodeNode{
					Kind:      KindConst,
					Name:      name,
					Exported:  tsExported(n),
					StartLine: nodeStartLine(decl),
					EndLine:   nodeEndLine(decl),
					Signature: strings.TrimSpace(firstLine(nodeText(n, source))),
				})
			}
			return false
		}
		return true
	})
	return nodes, nil
}

// tsTopLevel reports whether n sits directly under the program root,
// optionally wrapped in an export statement. Nested declarations stay out
// of the graph.
func tsTopLevel(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	if p.Kind() == "program" {
		return true
	}
	if p.Kind() == "export_statement" {
		gp := p.Parent()
		return gp != nil && gp.Kind() == "program"
	}
	return false
}

func tsExported(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && p.Kind() == "export_statement"
}

// tsFunctionSignature renders name(params): returnType from the grammar's
// named fields.
func tsFunctionSignature(n *sitter.Node, source []byte) string {
	sig := fieldText(n, "name", source)
	if params := fieldText(n, "parameters", source); params != "" {
		sig += params
	} else {
		sig += "()"
	}
	if ret := fieldText(n, "return_type", source); ret != "" {
		sig += ret
	}
	return sig
}

// tsMethods extracts the members of a class or interface body. memberKind is
// method_definition for classes, method_signature for interfaces. Methods
// inherit the enclosing declaration's export status.
func tsMethods(body *sitter.Node, memberKind string, source []byte) []Method {
	var methods []Method
	for _, m := range findChildrenByKind(body, memberKind) {
		name := fieldText(m, "name", source)
		if name == "" || name == "constructor" {
			continue
		}
		methods = append(methods, Method{
			Name:      name,
			Exported:  tsExported(body.Parent()),
			StartLine: nodeStartLine(m),
			EndLine:   nodeEndLine(m),
			Signature: tsFunctionSignature(m, source),
		})
	}
	return methods
}

var tsRequireRE = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)

func (a *tsAdapter) ExtractImports(text, path string) ([]ImportInfo, error) {
	source := []byte(text)
	tree, err := parseSource(a.language, source, path)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []ImportInfo
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "import_statement" {
			return true
		}
		spec := strings.Trim(fieldText(n, "source", source), "\"'`")
		if spec != "" {
			out = append(out, ImportInfo{Specifier: spec, Line: nodeStartLine(n)})
		}
		return false
	})

	// CommonJS requires don't appear as import_statement nodes.
	for _, m := range tsRequireRE.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, ImportInfo{
			Specifier: text[m[2]:m[3]],
			Line:      1 + strings.Count(text[:m[0]], "\n"),
		})
	}
	return out, nil
}

func (a *tsAdapter) SupportsChunk() bool { return true }

func (a *tsAdapter) Chunk(text, path string) ([]chunk.Chunk, error) {
	return chunk.ChunkSourceDeclarations(text, chunk.CodePreset), nil
}

func (a *tsAdapter) SupportsCallAnalysis() bool { return true }

// AnalyzeCallRelationships walks every function and method body for
// call_expression nodes. Call sites come straight from the AST; resolution
// to a callee symbol is still by name, so edges carry medium confidence.
func (a *tsAdapter) AnalyzeCallRelationships(text, path string) ([]RawCallEdge, error) {
	source := []byte(text)
	tree, err := parseSource(a.language, source, path)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var edges []RawCallEdge
	collect := func(fromSymbol string, body *sitter.Node) {
		walkTree(body, func(n *sitter.Node) bool {
			if n.Kind() != "call_expression" {
				return true
			}
			callee := tsCalleeName(n.ChildByFieldName("function"), source)
			if callee != "" && callee != fromSymbol {
				edges = append(edges, RawCallEdge{
					FromSymbol: fromSymbol,
					ToSymbol:   callee,
					Line:       nodeStartLine(n),
					Confidence: 0.7,
				})
			}
			return true
		})
	}

	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration":
			if name := fieldText(n, "name", source); name != "" {
				collect(name, n.ChildByFieldName("body"))
			}
			return false
		case "class_declaration":
			className := fieldText(n, "name", source)
			for _, m := range findChildrenByKind(n.ChildByFieldName("body"), "method_definition") {
				name := fieldText(m, "name", source)
				if name == "" || name == "constructor" {
					continue
				}
				collect(className+"."+name, m.ChildByFieldName("body"))
			}
			return false
		}
		return true
	})
	return edges, nil
}

// tsCalleeName resolves the function part of a call expression to a bare
// symbol name: plain identifiers as-is, member calls by their property.
func tsCalleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, source)
	case "member_expression":
		return fieldText(fn, "property", source)
	}
	return ""
}
