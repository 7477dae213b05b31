package graph

import (
	"context"
	"sync"

	dgraph "github.com/dominikbraun/graph"
	"github.com/maypok86/otter"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// maxQueryCacheWeight bounds the per-store query cache.
const maxQueryCacheWeight = 50 * 1024 * 1024

// Searcher answers runtime queries over one store's code graph.
type Searcher interface {
	GetEdges(ctx context.Context, nodeID string) ([]Edge, error)
	GetIncomingEdges(ctx context.Context, nodeID string) ([]Edge, error)
	GetCalledByCount(ctx context.Context, nodeID string) (int, error)
	GetCallsCount(ctx context.Context, nodeID string) (int, error)
	GetNode(ctx context.Context, nodeID string) (*Node, bool, error)
	Reload(ctx context.Context) error
	Close() error
}

type searcher struct {
	storage Storage
	mu      sync.RWMutex

	g dgraph.Graph[string, *Node]

	outgoing map[string][]Edge
	incoming map[string][]Edge

	cache otter.Cache[string, []Edge]
}

// NewSearcher creates a Searcher backed by storage, loading its current
// snapshot immediately.
func NewSearcher(storage Storage) (Searcher, error) {
	cache, err := otter.MustBuilder[string, []Edge](maxQueryCacheWeight).
		Cost(func(key string, value []Edge) uint32 { return uint32(len(value)*128 + 1) }).
		CollectStats().
		Build()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "graph.NewSearcher", "cannot build query cache", err)
	}

	s := &searcher{storage: storage, cache: cache}
	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *searcher) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Load()
	if err != nil {
		return err
	}
	if data == nil {
		data = &Data{}
	}

	g := dgraph.New(func(n *Node) string { return n.ID }, dgraph.Directed())
	for i := range data.Nodes {
		_ = g.AddVertex(&data.Nodes[i])
	}

	outgoing := make(map[string][]Edge)
	incoming := make(map[string][]Edge)
	for _, e := range data.Edges {
		_ = g.AddEdge(e.From, e.To) // missing vertex (external/unknown target) is fine to skip
		outgoing[e.From] = append(outgoing[e.From], e)
		incoming[e.To] = append(incoming[e.To], e)
	}

	s.g = g
	s.outgoing = outgoing
	s.incoming = incoming
	s.cache.Clear()
	return nil
}

// GetEdges returns every edge originating at nodeID.
func (s *searcher) GetEdges(ctx context.Context, nodeID string) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.cache.Get("out:" + nodeID); ok {
		return cached, nil
	}
	edges := s.outgoing[nodeID]
	s.cache.Set("out:"+nodeID, edges)
	return edges, nil
}

// GetIncomingEdges returns every edge terminating at nodeID.
func (s *searcher) GetIncomingEdges(ctx context.Context, nodeID string) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.cache.Get("in:" + nodeID); ok {
		return cached, nil
	}
	edges := s.incoming[nodeID]
	s.cache.Set("in:"+nodeID, edges)
	return edges, nil
}

// GetCalledByCount counts incoming "calls" edges.
func (s *searcher) GetCalledByCount(ctx context.Context, nodeID string) (int, error) {
	edges, err := s.GetIncomingEdges(ctx, nodeID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range edges {
		if e.Type == EdgeCalls {
			n++
		}
	}
	return n, nil
}

// GetCallsCount counts outgoing "calls" edges.
func (s *searcher) GetCallsCount(ctx context.Context, nodeID string) (int, error) {
	edges, err := s.GetEdges(ctx, nodeID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range edges {
		if e.Type == EdgeCalls {
			n++
		}
	}
	return n, nil
}

// GetNode looks up one node by id, used by result enrichment to resolve a
// related edge's endpoint into a file/signature pair.
func (s *searcher) GetNode(ctx context.Context, nodeID string) (*Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.g.Vertex(nodeID)
	if err != nil {
		return nil, false, nil
	}
	return n, true, nil
}

func (s *searcher) Close() error {
	s.cache.Close()
	return nil
}
