package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/graph"
	"github.com/chris-bluera/bluera-knowledge/internal/langadapter"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

func newTestIndexer(t *testing.T) (*Indexer, vectorstore.Store, string) {
	t.Helper()
	dataDir := t.TempDir()

	vectors, err := vectorstore.Open(":memory:", embedder.DefaultDimensions)
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })
	require.NoError(t, vectors.Initialize(context.Background()))

	emb := embedder.NewMock(embedder.DefaultDimensions)
	t.Cleanup(func() { emb.Close() })

	reg := langadapter.NewRegistry()
	require.NoError(t, langadapter.RegisterBuiltins(reg, nil))

	ix := New(vectors, emb, dataDir)
	ix.Registry = reg
	return ix, vectors, dataDir
}

func TestIndexStore_MarkdownSections(t *testing.T) {
	ix, vectors, _ := newTestIndexer(t)
	ctx := context.Background()

	root := t.TempDir()
	text := "# Intro\n" + strings.Repeat("a", 290) + "\n" +
		"## Usage\n" + strings.Repeat("b", 290) + "\n" +
		"## FAQ\n" + strings.Repeat("c", 290) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte(text), 0o644))

	st := store.Store{ID: "s1", Name: "docs", Kind: store.KindFile, Path: root}
	res, err := ix.IndexStore(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DocumentsIndexed)
	assert.Equal(t, 3, res.ChunksCreated)

	// the persisted chunks carry section headers, ordered indices, and the
	// top-level-doc classification
	qVec, err := ix.Embedder.Embed(ctx, "Usage "+strings.Repeat("b", 50), embedder.ModeQuery)
	require.NoError(t, err)
	hits, err := vectors.Search(ctx, "s1", qVec, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	headers := make(map[string]bool)
	for _, h := range hits {
		headers[h.Metadata.SectionHeader] = true
		assert.Equal(t, vectorstore.ClassDocumentationPrimary, h.Metadata.Classification)
		assert.Equal(t, 3, h.Metadata.TotalChunks)
		assert.GreaterOrEqual(t, h.Metadata.ChunkIndex, 0)
		assert.Less(t, h.Metadata.ChunkIndex, 3)
	}
	assert.True(t, headers["Intro"])
	assert.True(t, headers["Usage"])
	assert.True(t, headers["FAQ"])
}

func TestIndexStore_DeterministicDocumentIDs(t *testing.T) {
	ix, vectors, _ := newTestIndexer(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.ts"),
		[]byte("export function login(user) {\n  return session(user)\n}\n"), 0o644))

	st := store.Store{ID: "s1", Name: "app", Kind: store.KindFile, Path: root}
	_, err := ix.IndexStore(ctx, st)
	require.NoError(t, err)

	firstIDs := collectIDs(t, ctx, ix, vectors, "s1")

	// a second run over identical content emits the same ids
	_, err = ix.IndexStore(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, firstIDs, collectIDs(t, ctx, ix, vectors, "s1"))
}

func collectIDs(t *testing.T, ctx context.Context, ix *Indexer, vectors vectorstore.Store, storeID string) []string {
	t.Helper()
	qVec, err := ix.Embedder.Embed(ctx, "login", embedder.ModeQuery)
	require.NoError(t, err)
	hits, err := vectors.Search(ctx, storeID, qVec, 50)
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestIndexStore_BuildsGraphSnapshot(t *testing.T) {
	ix, _, dataDir := newTestIndexer(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.ts"),
		[]byte("function login(user) {\n  return makeSession(user)\n}\nfunction makeSession(u) { return u }\n"), 0o644))

	st := store.Store{ID: "s1", Name: "app", Kind: store.KindFile, Path: root}
	_, err := ix.IndexStore(ctx, st)
	require.NoError(t, err)

	data, err := graph.NewJSONStorage(GraphPath(dataDir, "s1")).Load()
	require.NoError(t, err)
	assert.NotEmpty(t, data.Nodes)
	assert.NotEmpty(t, data.Edges)
}

func TestIndexStore_SkipsDenylistedDirectories(t *testing.T) {
	ix, vectors, _ := newTestIndexer(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep", "index.js"),
		[]byte("function hidden() { return 1 }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.js"),
		[]byte("function visible() { return 2 }\n"), 0o644))

	st := store.Store{ID: "s1", Name: "app", Kind: store.KindFile, Path: root}
	res, err := ix.IndexStore(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DocumentsIndexed)

	qVec, err := ix.Embedder.Embed(ctx, "hidden", embedder.ModeQuery)
	require.NoError(t, err)
	hits, err := vectors.Search(ctx, "s1", qVec, 10)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotContains(t, h.Metadata.Source, "node_modules")
	}
}

func TestIndexStore_CancelledContextAborts(t *testing.T) {
	ix, _, _ := newTestIndexer(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("# A\nbody"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.IndexStore(ctx, store.Store{ID: "s1", Name: "app", Kind: store.KindFile, Path: root})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.Cancelled))
}

func TestIndexStore_WebStoreIsUnsupported(t *testing.T) {
	ix, _, _ := newTestIndexer(t)
	_, err := ix.IndexStore(context.Background(), store.Store{ID: "w1", Kind: store.KindWeb, URL: "https://example.com"})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.Unsupported))
}

func TestClassifyFile(t *testing.T) {
	cases := []struct {
		source string
		want   vectorstore.Classification
	}{
		{"README.md", vectorstore.ClassDocumentationPrimary},
		{"MIGRATION.md", vectorstore.ClassDocumentationPrimary},
		{"docs/guide.md", vectorstore.ClassDocumentation},
		{"CHANGELOG.md", vectorstore.ClassChangelog},
		{"examples/basic.ts", vectorstore.ClassExample},
		{"src/auth.test.ts", vectorstore.ClassTest},
		{"pkg/auth_test.go", vectorstore.ClassTest},
		{"tsconfig.json", vectorstore.ClassConfig},
		{"lib/auth.ts", vectorstore.ClassSource},
		{"pkg/internal/resolver.go", vectorstore.ClassSourceInternal},
		{"packages/core/src/transform.ts", vectorstore.ClassSourceInternal},
		{"packages/core/src/index.ts", vectorstore.ClassSource},
		{"https://react.dev/learn/getting-started", vectorstore.ClassDocumentationPrimary},
		{"https://example.com/docs/hooks", vectorstore.ClassDocumentation},
		{"LICENSE", vectorstore.ClassOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyFile("", tc.source), "source %s", tc.source)
	}
}

func TestSourceHash_TwelveHexAndStable(t *testing.T) {
	h1 := SourceHash("hello world")
	h2 := SourceHash("hello world")
	assert.Len(t, h1, 12)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, SourceHash("other"))
}
