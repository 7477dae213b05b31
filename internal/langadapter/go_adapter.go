package langadapter

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// goAdapter parses Go source with go/ast; the one adapter with a real
// parser in the standard library, so no heuristics needed.
type goAdapter struct {
	BaseAdapter
}

// NewGoAdapter creates the Go language adapter.
func NewGoAdapter() Adapter { return &goAdapter{} }

func (goAdapter) LanguageID() string   { return "go" }
func (goAdapter) Extensions() []string { return []string{".go"} }
func (goAdapter) DisplayName() string  { return "Go" }

func (a *goAdapter) Parse(text, path string) ([]CodeNode, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, text, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var nodes []CodeNode
	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.GenDecl:
			if decl.Tok == token.TYPE {
				for _, spec := range decl.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					nodes = append(nodes, typeSpecNode(ts, fset))
				}
			}
			if decl.Tok == token.CONST {
				for _, spec := range decl.Specs {
					vs, ok := spec.(*ast.ValueSpec)
					if !ok {
						continue
					}
					for _, name := range vs.Names {
						nodes = append(nodes, CodeNode{
							Kind:      KindConst,
							Name:      name.Name,
							Exported:  ast.IsExported(name.Name),
							StartLine: fset.Position(decl.Pos()).Line,
							EndLine:   fset.Position(decl.End()).Line,
						})
					}
				}
			}
		case *ast.FuncDecl:
			nodes = append(nodes, funcDeclNode(decl, fset))
		}
		return true
	})
	return nodes, nil
}

func typeSpecNode(ts *ast.TypeSpec, fset *token.FileSet) CodeNode {
	kind := KindType
	var methods []Method
	switch t := ts.Type.(type) {
	case *ast.InterfaceType:
		kind = KindInterface
		for _, m := range t.Methods.List {
			if len(m.Names) == 0 {
				continue // embedded interface
			}
			for _, name := range m.Names {
				methods = append(methods, Method{
					Name:      name.Name,
					Exported:  ast.IsExported(name.Name),
					StartLine: fset.Position(m.Pos()).Line,
					EndLine:   fset.Position(m.End()).Line,
				})
			}
		}
	case *ast.StructType:
		kind = KindClass
	}
	return CodeNode{
		Kind:      kind,
		Name:      ts.Name.Name,
		Exported:  ast.IsExported(ts.Name.Name),
		StartLine: fset.Position(ts.Pos()).Line,
		EndLine:   fset.Position(ts.End()).Line,
		Methods:   methods,
	}
}

func funcDeclNode(decl *ast.FuncDecl, fset *token.FileSet) CodeNode {
	kind := KindFunction
	name := decl.Name.Name
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		kind = KindMethod
		if recvType := receiverTypeName(decl.Recv.List[0].Type); recvType != "" {
			name = recvType + "." + decl.Name.Name
		}
	}
	return CodeNode{
		Kind:      kind,
		Name:      name,
		Exported:  ast.IsExported(decl.Name.Name),
		StartLine: fset.Position(decl.Pos()).Line,
		EndLine:   fset.Position(decl.End()).Line,
		Signature: funcSignature(decl),
	}
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func funcSignature(decl *ast.FuncDecl) string {
	name := decl.Name.Name
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		recv := receiverTypeName(decl.Recv.List[0].Type)
		return "func (" + recv + ") " + name + "(...)"
	}
	return "func " + name + "(...)"
}

func (a *goAdapter) ExtractImports(text, path string) ([]ImportInfo, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, text, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	var out []ImportInfo
	for _, imp := range file.Imports {
		out = append(out, ImportInfo{
			Specifier: strings.Trim(imp.Path.Value, `"`),
			Line:      fset.Position(imp.Pos()).Line,
		})
	}
	return out, nil
}

func (a *goAdapter) SupportsCallAnalysis() bool { return true }

var goIdentCallRE = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_.]*)\s*\(`)

// AnalyzeCallRelationships does an identifier-followed-by-"(" scan per
// function body, the same heuristic the graph builder applies generically;
// supplying it here lets method receivers qualify the caller symbol.
func (a *goAdapter) AnalyzeCallRelationships(text, path string) ([]RawCallEdge, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, text, 0)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(text, "\n")

	var edges []RawCallEdge
	ast.Inspect(file, func(n ast.Node) bool {
		fd, ok := n.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			return true
		}
		from := fd.Name.Name
		if fd.Recv != nil && len(fd.Recv.List) > 0 {
			if recv := receiverTypeName(fd.Recv.List[0].Type); recv != "" {
				from = recv + "." + from
			}
		}
		startLine := fset.Position(fd.Body.Pos()).Line - 1
		endLine := fset.Position(fd.Body.End()).Line
		if endLine > len(lines) {
			endLine = len(lines)
		}
		for i := startLine; i < endLine; i++ {
			for _, m := range goIdentCallRE.FindAllStringSubmatch(lines[i], -1) {
				edges = append(edges, RawCallEdge{
					FromSymbol: from,
					ToSymbol:   lastSegment(m[1]),
					Line:       i + 1,
					Confidence: 0.6,
				})
			}
		}
		return true
	})
	return edges, nil
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}
