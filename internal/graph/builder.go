package graph

import (
	"context"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chris-bluera/bluera-knowledge/internal/langadapter"
)

// ProgressReporter reports progress while a graph is (re)built.
type ProgressReporter interface {
	OnGraphBuildingStart(totalFiles int)
	OnGraphFileProcessed(processedFiles, totalFiles int, fileName string)
	OnGraphBuildingComplete(nodeCount, edgeCount int, duration time.Duration)
}

// Builder extracts and merges graph data for a store's source files.
type Builder interface {
	// BuildFull extracts graph data from every file in files, ignoring any
	// previously persisted graph.
	BuildFull(ctx context.Context, files []string) (*Data, error)

	// BuildIncremental recomputes graph data only for changedFiles and drops
	// nodes/edges owned by deletedFiles, preserving everything else from
	// previous.
	BuildIncremental(ctx context.Context, previous *Data, changedFiles, deletedFiles []string) (*Data, error)
}

type builder struct {
	registry *langadapter.Registry
	rootDir  string
	progress ProgressReporter
}

// BuilderOption configures a Builder.
type BuilderOption func(*builder)

// WithProgress attaches a progress reporter.
func WithProgress(p ProgressReporter) BuilderOption {
	return func(b *builder) { b.progress = p }
}

// WithRegistry overrides the language adapter registry (defaults to the
// process-wide singleton).
func WithRegistry(r *langadapter.Registry) BuilderOption {
	return func(b *builder) { b.registry = r }
}

// NewBuilder creates a graph Builder rooted at rootDir.
func NewBuilder(rootDir string, opts ...BuilderOption) Builder {
	b := &builder{registry: langadapter.Default(), rootDir: rootDir}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *builder) BuildFull(ctx context.Context, files []string) (*Data, error) {
	return b.BuildIncremental(ctx, &Data{}, files, nil)
}

func (b *builder) BuildIncremental(ctx context.Context, previous *Data, changedFiles, deletedFiles []string) (*Data, error) {
	if previous == nil {
		previous = &Data{}
	}
	changedSet := make(map[string]bool, len(changedFiles)+len(deletedFiles))
	for _, f := range changedFiles {
		changedSet[f] = true
	}
	for _, f := range deletedFiles {
		changedSet[f] = true
	}

	var preservedNodes []Node
	for _, n := range previous.Nodes {
		if !changedSet[n.File] {
			preservedNodes = append(preservedNodes, n)
		}
	}
	var preservedEdges []Edge
	for _, e := range previous.Edges {
		if e.Location == nil || !changedSet[e.Location.File] {
			preservedEdges = append(preservedEdges, e)
		}
	}

	if b.progress != nil {
		b.progress.OnGraphBuildingStart(len(changedFiles))
	}
	start := time.Now()

	var newNodes []Node
	var newEdges []Edge
	for i, file := range changedFiles {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		fd, err := b.extractFile(file)
		if err != nil {
			log.Printf("graph: skipping %s: %v", file, err)
		} else if fd != nil {
			newNodes = append(newNodes, fd.Nodes...)
			newEdges = append(newEdges, fd.Edges...)
		}
		if b.progress != nil {
			b.progress.OnGraphFileProcessed(i+1, len(changedFiles), filepath.Base(file))
		}
	}

	allNodes := dedupeNodes(append(preservedNodes, newNodes...))
	allEdges := append(preservedEdges, newEdges...)
	allEdges = resolveEdges(allNodes, allEdges)

	data := &Data{
		Metadata: Metadata{
			Version:   graphVersion,
			NodeCount: len(allNodes),
			EdgeCount: len(allEdges),
		},
		Nodes: allNodes,
		Edges: allEdges,
	}
	if b.progress != nil {
		b.progress.OnGraphBuildingComplete(len(allNodes), len(allEdges), time.Since(start))
	}
	return data, nil
}

// extractFile runs the file's registered language adapter over its
// contents, read directly from disk.
func (b *builder) extractFile(path string) (*FileData, error) {
	ext := filepath.Ext(path)
	adapter, ok := b.registry.ByExtension(ext)
	if !ok {
		return nil, nil // no adapter for this extension; silently skip
	}
	text, err := readFile(path)
	if err != nil {
		return nil, err
	}

	nodes, err := adapter.Parse(text, path)
	if err != nil {
		return nil, err
	}

	fd := &FileData{FilePath: path}
	idOf := func(name string) string { return path + ":" + name }
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		id := idOf(n.Name)
		known[n.Name] = true
		fd.Nodes = append(fd.Nodes, Node{
			ID:        id,
			Kind:      NodeKind(n.Kind),
			File:      path,
			StartLine: n.StartLine,
			EndLine:   n.EndLine,
			Signature: n.Signature,
		})
		for _, m := range n.Methods {
			mid := idOf(n.Name + "." + m.Name)
			known[n.Name+"."+m.Name] = true
			fd.Nodes = append(fd.Nodes, Node{
				ID:        mid,
				Kind:      NodeMethod,
				File:      path,
				StartLine: m.StartLine,
				EndLine:   m.EndLine,
				Signature: m.Signature,
			})
		}
	}

	imports, err := adapter.ExtractImports(text, path)
	if err == nil {
		for _, imp := range imports {
			fd.Edges = append(fd.Edges, Edge{
				From:       path,
				To:         imp.Specifier,
				Type:       EdgeImports,
				Confidence: 1,
				Location:   &Location{File: path, Line: imp.Line},
			})
		}
	}

	if adapter.SupportsCallAnalysis() {
		// The adapter's own call-site extraction overrides the generic scan
		// below, keeping its stated per-edge confidence.
		raw, err := adapter.AnalyzeCallRelationships(text, path)
		if err == nil {
			for _, rc := range raw {
				to := idOf(rc.ToSymbol)
				if !known[rc.ToSymbol] {
					to = UnknownSymbolID(rc.ToSymbol)
				}
				fd.Edges = append(fd.Edges, Edge{
					From:       idOf(rc.FromSymbol),
					To:         to,
					Type:       EdgeCalls,
					Confidence: rc.Confidence,
					Location:   &Location{File: path, Line: rc.Line},
				})
			}
		}
	} else {
		fd.Edges = append(fd.Edges, genericCallScan(text, path, nodes, known, idOf)...)
	}
	return fd, nil
}

// genericCallScan is the graph builder's own identifier-followed-by-"(" call
// extraction for adapters that don't supply their own: a callee
// matching a known node in this file resolves at confidence 0.8, otherwise
// the edge targets the unknown:<name> sentinel at confidence 0.5.
func genericCallScan(text, path string, nodes []langadapter.CodeNode, known map[string]bool, idOf func(string) string) []Edge {
	lines := strings.Split(text, "\n")
	var out []Edge
	scan := func(fromName string, startLine, endLine int) {
		start, end := startLine-1, endLine
		if start < 0 {
			start = 0
		}
		if end > len(lines) {
			end = len(lines)
		}
		for i := start; i < end; i++ {
			for _, m := range genericCallRE.FindAllStringSubmatch(lines[i], -1) {
				callee := m[1]
				if callee == fromName {
					continue
				}
				to := idOf(callee)
				confidence := 0.8
				if !known[callee] {
					to = UnknownSymbolID(callee)
					confidence = 0.5
				}
				out = append(out, Edge{
					From:       idOf(fromName),
					To:         to,
					Type:       EdgeCalls,
					Confidence: confidence,
					Location:   &Location{File: path, Line: i + 1},
				})
			}
		}
	}
	for _, n := range nodes {
		if n.Kind == langadapter.KindFunction || n.Kind == langadapter.KindMethod {
			scan(n.Name, n.StartLine, n.EndLine)
		}
		for _, m := range n.Methods {
			scan(n.Name+"."+m.Name, m.StartLine, m.EndLine)
		}
	}
	return out
}

var genericCallRE = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// dedupeNodes keeps the last occurrence of each node ID, so a re-extracted
// file's nodes replace any stale entries sharing its ID scheme.
func dedupeNodes(nodes []Node) []Node {
	seen := make(map[string]int, len(nodes))
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if idx, ok := seen[n.ID]; ok {
			out[idx] = n
			continue
		}
		seen[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}

// resolveEdges drops edges whose From node no longer exists (the owning file
// was deleted or re-extracted without that symbol); edges to unknown or
// external targets are kept, since an unresolved callee is itself meaningful
// .
func resolveEdges(nodes []Node, edges []Edge) []Edge {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Type == EdgeImports {
			out = append(out, e)
			continue
		}
		if known[e.From] {
			out = append(out, e)
		}
	}
	return out
}
