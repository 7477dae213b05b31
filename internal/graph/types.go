// Package graph implements the code-structure graph: nodes for
// declarations discovered by a language adapter, edges for the relationships
// between them, in-memory traversal backed by dominikbraun/graph, and
// on-disk persistence per store.
package graph

import "time"

// NodeKind is the declaration kind a graph node represents.
type NodeKind string

const (
	NodeFunction  NodeKind = "function"
	NodeMethod    NodeKind = "method"
	NodeClass     NodeKind = "class"
	NodeInterface NodeKind = "interface"
	NodeType      NodeKind = "type"
	NodeConst     NodeKind = "const"
	NodePackage   NodeKind = "package"
)

// Node is a single declaration extracted from a source file.
type Node struct {
	ID        string   `json:"id"`
	Kind      NodeKind `json:"kind"`
	File      string   `json:"file"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Signature string   `json:"signature,omitempty"`
}

// EdgeType is the kind of relationship an Edge represents.
type EdgeType string

const (
	EdgeCalls      EdgeType = "calls"
	EdgeImports    EdgeType = "imports"
	EdgeExtends    EdgeType = "extends"
	EdgeImplements EdgeType = "implements"
)

// Location pinpoints where a relationship was observed in source.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Edge is a directed relationship between two node IDs. To may reference a
// node ID that is not (yet) present in Nodes — e.g. a call into a package
// this store hasn't indexed — callers get an "unknown:<name>" sentinel ID
// rather than a dropped edge.
type Edge struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Type       EdgeType  `json:"type"`
	Confidence float64   `json:"confidence"`
	Location   *Location `json:"location,omitempty"`
}

// UnknownSymbolID builds the sentinel node ID for a call target the graph
// builder could not resolve to any declared node.
func UnknownSymbolID(name string) string {
	return "unknown:" + name
}

// Metadata describes a persisted graph snapshot.
type Metadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
}

// Data is the complete graph for one store, as persisted to
// graphs/<storeId>.json.
type Data struct {
	Metadata Metadata `json:"_metadata"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
}

// FileData is the graph contribution extracted from a single file, used
// during incremental re-indexing to replace just that file's nodes/edges.
type FileData struct {
	FilePath string
	Nodes    []Node
	Edges    []Edge
}

const graphVersion = "1"
