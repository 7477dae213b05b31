package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

func newTestEngine(t *testing.T) (*Engine, vectorstore.Store) {
	t.Helper()
	store, err := vectorstore.Open(":memory:", embedder.DefaultDimensions)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.CreateFTSIndex(ctx))

	emb := embedder.NewMock(embedder.DefaultDimensions)
	t.Cleanup(func() { emb.Close() })

	return NewEngine(store, emb, nil), store
}

func seedDocument(t *testing.T, ctx context.Context, store vectorstore.Store, emb embedder.Embedder, storeID, id, source, content string, class vectorstore.Classification) {
	t.Helper()
	vec, err := emb.Embed(ctx, content, embedder.ModePassage)
	require.NoError(t, err)
	doc := vectorstore.Document{
		ID:      id,
		Content: content,
		Vector:  vec,
		Metadata: vectorstore.Metadata{
			StoreID:        storeID,
			Source:         source,
			Type:           vectorstore.DocTypeChunk,
			SourceHash:     "h1",
			ChunkIndex:     0,
			TotalChunks:    1,
			Classification: class,
		},
	}
	require.NoError(t, store.AddDocuments(ctx, []vectorstore.Document{doc}))
}

func TestSearch_VectorModeReturnsExactMatchFirst(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "auth.go",
		"func AuthenticateUser(token string) error { return validate(token) }", vectorstore.ClassSource)
	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-2", "README.md",
		"This project has nothing to do with authentication.", vectorstore.ClassDocumentation)

	resp, err := e.Search(ctx, Query{Query: "func AuthenticateUser(token string) error { return validate(token) }", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "doc-1", resp.Results[0].ID)
}

func TestSearch_HybridModeFusesBothLegs(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "auth.go",
		"func AuthenticateUser(token string) error { return nil }", vectorstore.ClassSource)
	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-2", "README.md",
		"authentication guide for this project", vectorstore.ClassDocumentationPrimary)

	resp, err := e.Search(ctx, Query{Query: "authentication", Stores: []string{"s1"}, Mode: ModeHybrid, Limit: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
	assert.Equal(t, ModeHybrid, resp.Mode)
}

func TestSearch_MinRelevanceGatesLowConfidenceResults(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "unrelated.go", "completely unrelated content here", vectorstore.ClassSource)

	min := 0.999
	resp, err := e.Search(ctx, Query{Query: "a totally different query string", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5, MinRelevance: &min})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, ConfidenceLow, resp.Confidence)
}

func TestSearch_ThresholdFiltersFusedScore(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "auth.go", "func Login() {}", vectorstore.ClassSource)
	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-2", "other.go", "func Unrelated() {}", vectorstore.ClassSource)

	threshold := 1.1 // above the [0,1] normalized range: nothing survives
	resp, err := e.Search(ctx, Query{Query: "Login", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5, Threshold: &threshold})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_ContextualDetailIncludesContext(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "auth.go",
		"import \"errors\"\nfunc AuthenticateUser(token string) error { return errors.New(\"nope\") }", vectorstore.ClassSource)

	resp, err := e.Search(ctx, Query{Query: "AuthenticateUser", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5, Detail: DetailContextual})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.NotNil(t, resp.Results[0].Context)
	assert.Nil(t, resp.Results[0].Full)
}

func TestSearch_FullDetailExtractsCodeUnit(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "auth.go",
		"func AuthenticateUser(token string) error {\n  return nil\n}\nfunc unrelated() {}", vectorstore.ClassSource)

	resp, err := e.Search(ctx, Query{Query: "AuthenticateUser", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5, Detail: DetailFull})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	require.NotNil(t, resp.Results[0].Full)
	assert.Contains(t, resp.Results[0].Full.Content, "AuthenticateUser")
}

func TestSearch_DedupKeepsHighestMatchPerSource(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "same.go", "func Login() { checkPassword() }", vectorstore.ClassSource)
	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-2", "same.go", "unrelated chunk of the same file", vectorstore.ClassSource)

	resp, err := e.Search(ctx, Query{Query: "Login checkPassword", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5})
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, r := range resp.Results {
		seen[r.Summary.Location]++
	}
	for _, count := range seen {
		assert.LessOrEqual(t, count, 1, "each source should appear at most once after dedup")
	}
}

func TestApplyDefaults(t *testing.T) {
	q := applyDefaults(Query{Query: "x"})
	assert.Equal(t, ModeHybrid, q.Mode)
	assert.Equal(t, defaultLimit, q.Limit)
	assert.Equal(t, DetailMinimal, q.Detail)
}

func TestConfidenceFor_DefaultThresholds(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidenceFor(0.6))
	assert.Equal(t, ConfidenceMedium, confidenceFor(0.35))
	assert.Equal(t, ConfidenceLow, confidenceFor(0.1))
}
