package search

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// countingEmbedder wraps an Embedder and counts Embed invocations.
type countingEmbedder struct {
	embedder.Embedder
	calls int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, mode embedder.Mode) ([]float32, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.Embedder.Embed(ctx, text, mode)
}

func TestFullContext_SecondCallServedFromCache(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	counting := &countingEmbedder{Embedder: e.Embedder}
	e.Embedder = counting

	seedDocument(t, ctx, store, counting.Embedder, "s1", "doc-1", "auth.ts",
		"function verifyAccessToken(token) {\n  return token !== \"\"\n}", "source")

	resp, err := e.Search(ctx, Query{Query: "verifyAccessToken", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	id := resp.Results[0].ID

	first, err := e.FullContext(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first.Full)
	assert.Contains(t, first.Full.Content, "verifyAccessToken")

	callsAfterFirst := atomic.LoadInt64(&counting.calls)
	second, err := e.FullContext(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, second.Full)
	assert.Equal(t, callsAfterFirst, atomic.LoadInt64(&counting.calls),
		"second full-context fetch must not re-invoke the embedder")
}

func TestFullContext_UnknownResultIsNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.FullContext(context.Background(), "never-seen")
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.NotFound))
}

func TestFullContext_AlreadyFullReturnsAsIs(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	seedDocument(t, ctx, store, e.Embedder, "s1", "doc-1", "auth.ts",
		"function login(user) { return user }", "source")

	resp, err := e.Search(ctx, Query{Query: "login", Stores: []string{"s1"}, Mode: ModeVector, Limit: 5, Detail: DetailFull})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	require.NotNil(t, resp.Results[0].Full)

	counting := &countingEmbedder{Embedder: e.Embedder}
	e.Embedder = counting

	got, err := e.FullContext(ctx, resp.Results[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.Full)
	assert.Zero(t, atomic.LoadInt64(&counting.calls))
}
