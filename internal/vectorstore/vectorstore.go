// Package vectorstore implements the vector+FTS store: persists
// {id, content, vector, metadata} documents and answers nearest-neighbor
// and full-text queries per collection. mattn/go-sqlite3 for the
// connection, asg017/sqlite-vec-go-bindings' vec0 virtual table for
// nearest-neighbor search, FTS5 for full-text, and Masterminds/squirrel
// for the metadata inserts that join them — one shared, store_id-partitioned
// set of tables (documents / documents_vec / documents_fts).
package vectorstore

import (
	"strconv"
	"time"
)

// DocType tags whether a document represents a whole file or one chunk of
// a larger file.
type DocType string

const (
	DocTypeFile  DocType = "file"
	DocTypeChunk DocType = "chunk"
)

// Classification is the file-type tag computed at index time and consumed
// by the search engine's boost policy.
type Classification string

const (
	ClassDocumentationPrimary Classification = "documentation-primary"
	ClassDocumentation        Classification = "documentation"
	ClassExample              Classification = "example"
	ClassTest                 Classification = "test"
	ClassConfig               Classification = "config"
	ClassSource               Classification = "source"
	ClassSourceInternal       Classification = "source-internal"
	ClassChangelog            Classification = "changelog"
	ClassOther                Classification = "other"
)

// Metadata is the per-document metadata, minus content/vector which
// Document carries directly.
type Metadata struct {
	StoreID        string
	Source         string // filesystem path or URL
	Type           DocType
	SourceHash     string
	ChunkIndex     int
	TotalChunks    int
	IndexedAt      time.Time
	Classification Classification
	SectionHeader  string
	SymbolName     string
	DocSummary     string
	CrawlDepth     *int
}

// Document is one indexed unit: content, its embedding vector, and metadata.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata Metadata
}

// BuildDocumentID derives the deterministic document id: reproducible from
// (storeId, sourceHash, chunkIndex), never random.
func BuildDocumentID(storeID, sourceHash string, chunkIndex int) string {
	return storeID + ":" + sourceHash + ":" + strconv.Itoa(chunkIndex)
}

// Hit is one retrieval result from either the vector or FTS leg, before the
// search engine fuses the two.
type Hit struct {
	ID       string
	Content  string
	Score    float64 // vector leg: 1 - cosineDistance; FTS leg: raw BM25-derived score
	Metadata Metadata
}
