package langadapter

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
)

// rustAdapter parses Rust with the tree-sitter rust grammar. Structs and
// enums map to class/type nodes; impl-block methods attach to the type they
// implement.
type rustAdapter struct {
	language *sitter.Language
}

// NewRustAdapter creates the Rust language adapter.
func NewRustAdapter() Adapter {
	return &rustAdapter{language: sitter.NewLanguage(rust.Language())}
}

func (*rustAdapter) LanguageID() string   { return "rust" }
func (*rustAdapter) Extensions() []string { return []string{".rs"} }
func (*rustAdapter) DisplayName() string  { return "Rust" }

func (a *rustAdapter) Parse(text, path string) ([]CodeNode, error) {
	source := []byte(text)
	tree, err := parseSource(a.language, source, path)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var nodes []CodeNode
	implMethods := make(map[string][]Method)

	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "struct_item":
			nodes = append(nodes, a.declNode(n, KindClass, source))
			return false
		case "enum_item", "type_item":
			nodes = append(nodes, a.declNode(n, KindType, source))
			return false
		case "trait_item":
			node := a.declNode(n, KindInterface, source)
			node.Methods = a.methodsIn(n.ChildByFieldName("body"), "", source)
			nodes = append(nodes, node)
			return false
		case "impl_item":
			target := rustImplTarget(n, source)
			if target != "" {
				implMethods[target] = append(implMethods[target],
					a.methodsIn(n.ChildByFieldName("body"), target, source)...)
			}
			return false
		case "function_item":
			nodes = append(nodes, a.declNode(n, KindFunction, source))
			return false
		case "const_item", "static_item":
			nodes = append(nodes, a.declNode(n, KindConst, source))
			return false
		}
		return true
	})

	// Attach impl methods to the type they implement; an impl for a type
	// declared elsewhere still surfaces as its own node so the methods are
	// not lost.
	for i := range nodes {
		if ms, ok := implMethods[nodes[i].Name]; ok {
			nodes[i].Methods = append(nodes[i].Methods, ms...)
			delete(implMethods, nodes[i].Name)
		}
	}
	for target, ms := range implMethods {
		start, end := ms[0].StartLine, ms[0].EndLine
		for _, m := range ms {
			if m.EndLine > end {
				end = m.EndLine
			}
		}
		nodes = append(nodes, CodeNode{
			Kind:      KindClass,
			Name:      target,
			Exported:  true,
			StartLine: start,
			EndLine:   end,
			Signature: "impl " + target,
			Methods:   ms,
		})
	}
	return nodes, nil
}

func (a *rustAdapter) declNode(n *sitter.Node, kind NodeKind, source []byte) CodeNode {
	return CodeNode{
		Kind:      kind,
		Name:      fieldText(n, "name", source),
		Exported:  rustPub(n),
		StartLine: nodeStartLine(n),
		EndLine:   nodeEndLine(n),
		Signature: strings.TrimSpace(firstLine(nodeText(n, source))),
	}
}

// methodsIn extracts function items from a trait or impl body. typeName
// qualifies the signature for impl methods; traits pass "".
func (a *rustAdapter) methodsIn(body *sitter.Node, typeName string, source []byte) []Method {
	var methods []Method
	for _, kind := range []string{"function_item", "function_signature_item"} {
		for _, fn := range findChildrenByKind(body, kind) {
			name := fieldText(fn, "name", source)
			if name == "" {
				continue
			}
			methods = append(methods, Method{
				Name:      name,
				Exported:  rustPub(fn),
				StartLine: nodeStartLine(fn),
				EndLine:   nodeEndLine(fn),
				Signature: rustFunctionSignature(fn, typeName, source),
			})
		}
	}
	return methods
}

// rustImplTarget names the implemented type, stripped of generics: both
// `impl Foo` and `impl Trait for Foo` target Foo.
func rustImplTarget(n *sitter.Node, source []byte) string {
	target := fieldText(n, "type", source)
	if idx := strings.IndexByte(target, '<'); idx >= 0 {
		target = target[:idx]
	}
	return strings.TrimSpace(target)
}

func rustPub(n *sitter.Node) bool {
	return findChildByKind(n, "visibility_modifier") != nil
}

func rustFunctionSignature(n *sitter.Node, typeName string, source []byte) string {
	sig := ""
	if typeName != "" {
		sig = typeName + "::"
	}
	sig += fieldText(n, "name", source)
	if params := fieldText(n, "parameters", source); params != "" {
		sig += params
	} else {
		sig += "()"
	}
	if ret := fieldText(n, "return_type", source); ret != "" {
		sig += " -> " + ret
	}
	return sig
}

func (a *rustAdapter) ExtractImports(text, path string) ([]ImportInfo, error) {
	source := []byte(text)
	tree, err := parseSource(a.language, source, path)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []ImportInfo
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "use_declaration" {
			return true
		}
		spec := strings.Join(strings.Fields(fieldText(n, "argument", source)), "")
		if spec != "" {
			out = append(out, ImportInfo{Specifier: spec, Line: nodeStartLine(n)})
		}
		return false
	})
	return out, nil
}

func (a *rustAdapter) SupportsChunk() bool { return true }

func (a *rustAdapter) Chunk(text, path string) ([]chunk.Chunk, error) {
	return chunk.ChunkSourceDeclarations(text, chunk.CodePreset), nil
}

func (a *rustAdapter) SupportsCallAnalysis() bool { return true }

// AnalyzeCallRelationships walks function and impl-method bodies for
// call_expression nodes, resolving the callee to a bare name.
func (a *rustAdapter) AnalyzeCallRelationships(text, path string) ([]RawCallEdge, error) {
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
			callee := rustCalleeName(n.ChildByFieldName("function"), source)
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
		case "function_item":
			if name := fieldText(n, "name", source); name != "" {
				collect(name, n.ChildByFieldName("body"))
			}
			return false
		case "impl_item":
			target := rustImplTarget(n, source)
			for _, fn := range findChildrenByKind(n.ChildByFieldName("body"), "function_item") {
				name := fieldText(fn, "name", source)
				if name == "" {
					continue
				}
				collect(target+"."+name, fn.ChildByFieldName("body"))
			}
			return false
		}
		return true
	})
	return edges, nil
}

// rustCalleeName resolves the function part of a call expression: plain
// identifiers as-is, `Type::func` paths by their final segment, method
// calls by their field name.
func rustCalleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, source)
	case "scoped_identifier":
		return fieldText(fn, "name", source)
	case "field_expression":
		return fieldText(fn, "field", source)
	}
	return ""
}
