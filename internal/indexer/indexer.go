// Package indexer drives a store end to end: discover files, chunk them,
// embed the chunks, persist documents into the vector+FTS store, and build
// the store's code graph.
package indexer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/graph"
	"github.com/chris-bluera/bluera-knowledge/internal/job"
	"github.com/chris-bluera/bluera-knowledge/internal/langadapter"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

// Result summarizes one successful indexing run.
type Result struct {
	DocumentsIndexed int
	ChunksCreated    int
	SkippedFiles     int
	TimeMs           int64
}

// Indexer indexes one store at a time into the vector+FTS store and the
// per-store graph snapshot.
type Indexer struct {
	Store    vectorstore.Store
	Embedder embedder.Embedder
	Registry *langadapter.Registry
	DataDir  string

	IgnorePatterns []string
	Progress       ProgressFunc

	// Jobs/JobID, when set, let a long run poll for cancellation between
	// files and record progress on the job record.
	Jobs  job.Tracker
	JobID string
}

// New creates an Indexer writing into vs and persisting graph snapshots
// under dataDir.
func New(vs vectorstore.Store, emb embedder.Embedder, dataDir string) *Indexer {
	return &Indexer{
		Store:    vs,
		Embedder: emb,
		Registry: langadapter.Default(),
		DataDir:  dataDir,
	}
}

// GraphPath returns the on-disk location of a store's graph snapshot.
func GraphPath(dataDir, storeID string) string {
	return filepath.Join(dataDir, "graphs", storeID+".json")
}

// IndexStore runs the full pipeline for a file- or repo-kind store: walk the
// root, chunk and embed every file, bulk-insert the documents, create the
// full-text index, then build and persist the code graph.
func (ix *Indexer) IndexStore(ctx context.Context, st store.Store) (Result, error) {
	start := time.Now()
	res := Result{}

	if st.Kind == store.KindWeb {
		return Result{}, engineerr.New(engineerr.Unsupported, "indexer.IndexStore",
			"web stores are indexed via IndexWebStore")
	}
	if st.Path == "" {
		return Result{}, engineerr.New(engineerr.Invalid, "indexer.IndexStore",
			"store "+st.ID+" has no path")
	}

	d, err := newDiscovery(st.Path, ix.IgnorePatterns)
	if err != nil {
		return Result{}, err
	}
	files, err := d.files()
	if err != nil {
		return Result{}, err
	}

	ix.Progress.report(Progress{Type: ProgressStart, Total: len(files),
		Message: fmt.Sprintf("indexing %d files", len(files))})

	var sourceFiles []string
	for i, path := range files {
		if err := ix.checkCancelled(ctx); err != nil {
			return Result{}, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			res.SkippedFiles++
			continue
		}
		text := string(data)

		docs, err := ix.buildDocuments(ctx, st.ID, st.Path, path, text)
		if err != nil {
			if engineerr.Is(err, engineerr.ParseFailure) {
				res.SkippedFiles++
				continue
			}
			return Result{}, err
		}
		if len(docs) == 0 {
			continue
		}

		if err := ix.Store.AddDocuments(ctx, docs); err != nil {
			return Result{}, err
		}
		res.DocumentsIndexed++
		res.ChunksCreated += len(docs)

		if _, ok := ix.Registry.ByExtension(filepath.Ext(path)); ok {
			sourceFiles = append(sourceFiles, path)
		}

		ix.Progress.report(Progress{Type: ProgressProgress, Current: i + 1, Total: len(files),
			Message: filepath.Base(path)})
		ix.reportJobProgress(i+1, len(files))
	}

	if err := ix.Store.CreateFTSIndex(ctx); err != nil {
		return Result{}, err
	}

	if err := ix.checkCancelled(ctx); err != nil {
		return Result{}, err
	}

	if err := ix.buildGraph(ctx, st.ID, sourceFiles); err != nil {
		return Result{}, err
	}

	res.TimeMs = time.Since(start).Milliseconds()
	ix.Progress.report(Progress{Type: ProgressComplete, Current: len(files), Total: len(files),
		Message: fmt.Sprintf("indexed %d documents (%d chunks, %d skipped) in %dms",
			res.DocumentsIndexed, res.ChunksCreated, res.SkippedFiles, res.TimeMs)})
	return res, nil
}

// buildDocuments chunks one file, embeds every chunk, and wraps the pieces
// into documents with deterministic ids.
func (ix *Indexer) buildDocuments(ctx context.Context, storeID, root, source, text string) ([]vectorstore.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	hash := SourceHash(text)
	chunks := ix.chunkFor(source, text)
	if len(chunks) == 0 {
		return nil, nil
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	vectors, err := ix.Embedder.EmbedBatch(ctx, contents, embedder.ModePassage)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "indexer.buildDocuments",
			"embedding failed for "+source, err)
	}

	classification := ClassifyFile(root, source)
	docType := vectorstore.DocTypeChunk
	if len(chunks) == 1 {
		docType = vectorstore.DocTypeFile
	}
	now := time.Now().UTC()

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectorstore.Document{
			ID:      vectorstore.BuildDocumentID(storeID, hash, c.ChunkIndex),
			Content: c.Content,
			Vector:  vectors[i],
			Metadata: vectorstore.Metadata{
				StoreID:        storeID,
				Source:         source,
				Type:           docType,
				SourceHash:     hash,
				ChunkIndex:     c.ChunkIndex,
				TotalChunks:    c.TotalChunks,
				IndexedAt:      now,
				Classification: classification,
				SectionHeader:  c.SectionTitle,
				SymbolName:     c.SymbolName,
			},
		}
	}
	return docs, nil
}

// chunkFor picks the chunking path for a file: the language adapter's own
// chunker when it has one, the markdown splitter for .md, the declaration
// splitter for recognized source, and the sliding window for everything else.
func (ix *Indexer) chunkFor(source, text string) []chunk.Chunk {
	ext := strings.ToLower(filepath.Ext(source))
	if adapter, ok := ix.Registry.ByExtension(ext); ok && adapter.SupportsChunk() {
		if chunks, err := adapter.Chunk(text, source); err == nil && len(chunks) > 0 {
			return chunks
		}
	}
	switch {
	case ext == ".md" || ext == ".rst" || ext == ".adoc":
		return chunk.ChunkMarkdown(text, chunk.WebPreset)
	case sourceExtensions[ext]:
		return chunk.ChunkSourceDeclarations(text, chunk.CodePreset)
	default:
		return chunk.ChunkSlidingWindow(text, chunk.CodePreset)
	}
}

// buildGraph builds and persists the store's code graph from its source
// files. Runs after every document is persisted, so readers never observe a
// graph describing documents that aren't there yet.
func (ix *Indexer) buildGraph(ctx context.Context, storeID string, sourceFiles []string) error {
	builder := graph.NewBuilder(ix.DataDir, graph.WithRegistry(ix.Registry))
	data, err := builder.BuildFull(ctx, sourceFiles)
	if err != nil {
		return err
	}
	return graph.NewJSONStorage(GraphPath(ix.DataDir, storeID)).Save(data)
}

// checkCancelled aborts between files when the context is done or the
// tracking job has been cancelled out from under the run.
func (ix *Indexer) checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return engineerr.Wrap(engineerr.Cancelled, "indexer.IndexStore", "context cancelled", ctx.Err())
	default:
	}
	if ix.Jobs == nil || ix.JobID == "" {
		return nil
	}
	j, err := ix.Jobs.GetJob(ix.JobID)
	if err != nil {
		return nil // a missing job record never aborts an index run
	}
	if j.Status == job.StatusCancelled {
		return engineerr.New(engineerr.Cancelled, "indexer.IndexStore", "job "+ix.JobID+" cancelled")
	}
	return nil
}

func (ix *Indexer) reportJobProgress(current, total int) {
	if ix.Jobs == nil || ix.JobID == "" || total == 0 {
		return
	}
	pct := current * 100 / total
	_, _ = ix.Jobs.UpdateJob(ix.JobID, func(j *job.Job) {
		j.Progress = pct
		j.Message = fmt.Sprintf("indexed %d/%d files", current, total)
	})
}

// SourceHash is the content-addressed cache key for one file's text: md5
// truncated to 12 hex characters. A local cache key, not a security token.
func SourceHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}
