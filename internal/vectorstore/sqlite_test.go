package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(":memory:", 8)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.CreateFTSIndex(context.Background()))
	return s
}

func unitVector(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestAddDocuments_SearchReturnsExactMatchAtScoreOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := Document{
		ID:      BuildDocumentID("store-1", "abc123", 0),
		Content: "function verifyAccessToken(token) {}",
		Vector:  unitVector(8, 0),
		Metadata: Metadata{
			StoreID:        "store-1",
			Source:         "/src/auth.ts",
			Type:           DocTypeChunk,
			SourceHash:     "abc123",
			ChunkIndex:     0,
			TotalChunks:    1,
			IndexedAt:      time.Now(),
			Classification: ClassSource,
		},
	}
	require.NoError(t, s.AddDocuments(ctx, []Document{doc}))
	require.NoError(t, s.CreateFTSIndex(ctx)) // re-sync after insert

	hits, err := s.Search(ctx, "store-1", unitVector(8, 0), 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, doc.ID, hits[0].ID)
	require.InDelta(t, 1.0, hits[0].Score, 1e-6)
	require.Equal(t, ClassSource, hits[0].Metadata.Classification)
}

func TestSearch_ScopedToStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	docA := Document{
		ID: BuildDocumentID("store-a", "h1", 0), Content: "a", Vector: unitVector(8, 1),
		Metadata: Metadata{StoreID: "store-a", Source: "/a.ts", Type: DocTypeChunk, SourceHash: "h1", TotalChunks: 1, IndexedAt: time.Now(), Classification: ClassSource},
	}
	docB := Document{
		ID: BuildDocumentID("store-b", "h2", 0), Content: "b", Vector: unitVector(8, 1),
		Metadata: Metadata{StoreID: "store-b", Source: "/b.ts", Type: DocTypeChunk, SourceHash: "h2", TotalChunks: 1, IndexedAt: time.Now(), Classification: ClassSource},
	}
	require.NoError(t, s.AddDocuments(ctx, []Document{docA, docB}))

	hits, err := s.Search(ctx, "store-a", unitVector(8, 1), 10)
	require.NoError(t, err)
	for _, h := range hits {
		require.Equal(t, "store-a", h.Metadata.StoreID)
	}
}

func TestFullTextSearch_MatchesContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := Document{
		ID: BuildDocumentID("store-1", "h3", 0), Content: "the quick brown fox jumps",
		Vector:   unitVector(8, 2),
		Metadata: Metadata{StoreID: "store-1", Source: "/x.md", Type: DocTypeFile, SourceHash: "h3", TotalChunks: 1, IndexedAt: time.Now(), Classification: ClassDocumentation},
	}
	require.NoError(t, s.AddDocuments(ctx, []Document{doc}))
	require.NoError(t, s.CreateFTSIndex(ctx))

	hits, err := s.FullTextSearch(ctx, "store-1", "fox", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, doc.ID, hits[0].ID)
}

func TestDeleteStore_RemovesAllDocuments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := Document{
		ID: BuildDocumentID("store-1", "h4", 0), Content: "content", Vector: unitVector(8, 3),
		Metadata: Metadata{StoreID: "store-1", Source: "/y.ts", Type: DocTypeChunk, SourceHash: "h4", TotalChunks: 1, IndexedAt: time.Now(), Classification: ClassSource},
	}
	require.NoError(t, s.AddDocuments(ctx, []Document{doc}))
	require.NoError(t, s.DeleteStore(ctx, "store-1"))

	hits, err := s.Search(ctx, "store-1", unitVector(8, 3), 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}
