// Package langadapter implements the language-adapter capability and its
// process-wide registry. Each adapter extracts definitions, imports,
// and heuristic call edges from one source language; the registry dispatches
// on file extension for the indexer and the code graph builder.
package langadapter

import "github.com/chris-bluera/bluera-knowledge/internal/chunk"

// NodeKind mirrors the code graph's node kinds.
type NodeKind string

const (
	KindFunction  NodeKind = "function"
	KindClass     NodeKind = "class"
	KindInterface NodeKind = "interface"
	KindType      NodeKind = "type"
	KindConst     NodeKind = "const"
	KindMethod    NodeKind = "method"
)

// Method describes a method belonging to a class or interface CodeNode.
type Method struct {
	Name      string
	Exported  bool
	StartLine int
	EndLine   int
	Signature string
}

// CodeNode is one declaration extracted from a source file.
type CodeNode struct {
	Kind      NodeKind
	Name      string
	Exported  bool
	StartLine int
	EndLine   int
	Signature string
	Methods   []Method // populated for Kind == Class / Interface
}

// ImportInfo is one import/specifier extracted from a source file.
type ImportInfo struct {
	Specifier string
	Line      int
}

// RawCallEdge is a heuristic call-site observation an adapter can supply
// directly; confidence is in [0,1] and overrides the graph builder's own
// identifier-scan heuristic when present.
type RawCallEdge struct {
	FromSymbol string
	ToSymbol   string
	Line       int
	Confidence float64
}

// Adapter is the capability every language plugs into the registry. Parse,
// ExtractImports are required; Chunk and AnalyzeCallRelationships are
// optional — SupportsChunk or SupportsCallAnalysis returning false means
// the caller should fall back to the generic chunker (C3) and to the graph
// builder's own identifier-scan heuristic, respectively.
type Adapter interface {
	LanguageID() string
	Extensions() []string
	DisplayName() string

	Parse(text, path string) ([]CodeNode, error)
	ExtractImports(text, path string) ([]ImportInfo, error)

	// SupportsChunk reports whether Chunk is implemented by this adapter.
	SupportsChunk() bool
	Chunk(text, path string) ([]chunk.Chunk, error)

	// SupportsCallAnalysis reports whether AnalyzeCallRelationships is
	// implemented by this adapter.
	SupportsCallAnalysis() bool
	AnalyzeCallRelationships(text, path string) ([]RawCallEdge, error)
}

// BaseAdapter provides default "unsupported" implementations of the optional
// operations so concrete adapters only need to embed it and override what
// they actually implement.
type BaseAdapter struct{}

func (BaseAdapter) SupportsChunk() bool                            { return false }
func (BaseAdapter) Chunk(text, path string) ([]chunk.Chunk, error) { return nil, nil }
func (BaseAdapter) SupportsCallAnalysis() bool                     { return false }
func (BaseAdapter) AnalyzeCallRelationships(text, path string) ([]RawCallEdge, error) {
	return nil, nil
}
