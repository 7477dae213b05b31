package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chris-bluera/bluera-knowledge/internal/capability"
	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

// IndexWebStore crawls a web store's seed URL and indexes every fetched page
// as markdown. No code graph is built: crawled pages carry no source
// declarations to extract.
func (ix *Indexer) IndexWebStore(ctx context.Context, st store.Store, crawler capability.Crawler, opts capability.CrawlOptions) (Result, error) {
	start := time.Now()
	res := Result{}

	if st.Kind != store.KindWeb {
		return Result{}, engineerr.New(engineerr.Unsupported, "indexer.IndexWebStore",
			"store "+st.ID+" is not a web store")
	}
	if st.URL == "" {
		return Result{}, engineerr.New(engineerr.Invalid, "indexer.IndexWebStore",
			"store "+st.ID+" has no seed URL")
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = st.Depth
	}

	pages, err := crawler.Crawl(ctx, st.URL, opts)
	if err != nil {
		return Result{}, engineerr.Wrap(engineerr.IO, "indexer.IndexWebStore",
			"crawl failed for "+st.URL, err)
	}

	ix.Progress.report(Progress{Type: ProgressStart, Message: "crawling " + st.URL})

	processed := 0
	for page := range pages {
		if err := ix.checkCancelled(ctx); err != nil {
			return Result{}, err
		}
		if strings.TrimSpace(page.Markdown) == "" {
			res.SkippedFiles++
			continue
		}

		docs, err := ix.buildWebDocuments(ctx, st.ID, page)
		if err != nil {
			res.SkippedFiles++
			continue
		}
		if err := ix.Store.AddDocuments(ctx, docs); err != nil {
			return Result{}, err
		}
		res.DocumentsIndexed++
		res.ChunksCreated += len(docs)
		processed++
		ix.Progress.report(Progress{Type: ProgressProgress, Current: processed,
			Message: page.URL})
	}

	if err := ix.Store.CreateFTSIndex(ctx); err != nil {
		return Result{}, err
	}

	res.TimeMs = time.Since(start).Milliseconds()
	ix.Progress.report(Progress{Type: ProgressComplete, Current: processed, Total: processed,
		Message: fmt.Sprintf("indexed %d pages (%d chunks) in %dms",
			res.DocumentsIndexed, res.ChunksCreated, res.TimeMs)})
	return res, nil
}

func (ix *Indexer) buildWebDocuments(ctx context.Context, storeID string, page capability.CrawledPage) ([]vectorstore.Document, error) {
	hash := SourceHash(page.Markdown)
	chunks := chunk.ChunkMarkdown(page.Markdown, chunk.WebPreset)
	if len(chunks) == 0 {
		return nil, engineerr.New(engineerr.ParseFailure, "indexer.buildWebDocuments",
			"page produced no chunks: "+page.URL)
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	vectors, err := ix.Embedder.EmbedBatch(ctx, contents, embedder.ModePassage)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "indexer.buildWebDocuments",
			"embedding failed for "+page.URL, err)
	}

	docType := vectorstore.DocTypeChunk
	if len(chunks) == 1 {
		docType = vectorstore.DocTypeFile
	}
	now := time.Now().UTC()
	depth := page.Depth

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectorstore.Document{
			ID:      vectorstore.BuildDocumentID(storeID, hash, c.ChunkIndex),
			Content: c.Content,
			Vector:  vectors[i],
			Metadata: vectorstore.Metadata{
				StoreID:        storeID,
				Source:         page.URL,
				Type:           docType,
				SourceHash:     hash,
				ChunkIndex:     c.ChunkIndex,
				TotalChunks:    c.TotalChunks,
				IndexedAt:      now,
				Classification: ClassifyFile("", page.URL),
				SectionHeader:  c.SectionTitle,
				CrawlDepth:     &depth,
			},
		}
	}
	return docs, nil
}
