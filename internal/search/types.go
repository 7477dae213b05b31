// Package search implements the hybrid search engine: vector and lexical
// retrieval, Reciprocal Rank Fusion, intent- and context-driven boosts,
// deduplication, score normalization, confidence estimation, and
// progressive result enrichment drawn from the code graph.
package search

import (
	"time"

	"github.com/chris-bluera/bluera-knowledge/internal/classify"
)

// Mode selects which retrieval legs run.
type Mode string

const (
	ModeVector Mode = "vector"
	ModeFTS    Mode = "fts"
	ModeHybrid Mode = "hybrid"
)

// Detail selects how much progressive enrichment a result carries.
type Detail string

const (
	DetailMinimal    Detail = "minimal"
	DetailContextual Detail = "contextual"
	DetailFull       Detail = "full"
)

// Confidence labels the maximum raw cosine similarity on the vector leg
// .
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Query is the search engine's input contract.
type Query struct {
	Query        string
	Stores       []string
	Mode         Mode
	Limit        int
	Detail       Detail
	Threshold    *float64
	MinRelevance *float64
	Intent       string
}

// Usage is the calledBy/calls pair computed from the code graph.
type Usage struct {
	CalledBy int `json:"calledBy"`
	Calls    int `json:"calls"`
}

// Context is the "contextual"+ enrichment layer.
type Context struct {
	Interfaces      []string `json:"interfaces,omitempty"`
	Imports         []string `json:"imports,omitempty"`
	RelatedConcepts []string `json:"relatedConcepts,omitempty"`
	Usage           Usage    `json:"usage"`
}

// RelatedCode is one graph-derived related reference in a "full" result
// .
type RelatedCode struct {
	File         string `json:"file"`
	Summary      string `json:"summary"`
	Relationship string `json:"relationship"` // "calls this" | "called by this"
}

// Full is the "full" enrichment layer.
type Full struct {
	Content    string        `json:"content"`
	Related    []RelatedCode `json:"related,omitempty"`
	DocComment string        `json:"docComment,omitempty"`
}

// Summary is always present on a result.
type Summary struct {
	Type            string `json:"type"`
	Name            string `json:"name"`
	Signature       string `json:"signature"`
	Purpose         string `json:"purpose"`
	Location        string `json:"location"` // "path:startLine"
	RelevanceReason string `json:"relevanceReason"`
}

// Result is the single progressive-enrichment result shape: one id maps
// to one record, optional fields fill in as detail increases. One shape
// rather than three keeps the cache key space trivial and makes the
// contextual-to-full upgrade a pure mutation of the record.
type Result struct {
	ID      string   `json:"id"`
	StoreID string   `json:"storeId"`
	Score   float64  `json:"score"`
	Summary Summary  `json:"summary"`
	Context *Context `json:"context,omitempty"`
	Full    *Full    `json:"full,omitempty"`

	// source/content/symbolName/rawVectorScore are retained on the cached
	// record (not serialized). FullContext seeds its narrow re-query from
	// them and, when that re-query misses, re-extracts the code unit from
	// the cached content.
	source         string
	content        string
	symbolName     string
	rawVectorScore float64
	indexedAt      time.Time
}

// Response is the search engine's output contract.
type Response struct {
	Query        string     `json:"query"`
	Mode         Mode       `json:"mode"`
	Stores       []string   `json:"stores"`
	Results      []Result   `json:"results"`
	TotalResults int        `json:"totalResults"`
	TimeMs       int64      `json:"timeMs"`
	Confidence   Confidence `json:"confidence,omitempty"`
	MaxRawScore  *float64   `json:"maxRawScore,omitempty"`
}

// candidate is the engine's internal working representation of one
// retrieval hit before fusion/boost/dedup/enrichment.
type candidate struct {
	id             string
	storeID        string
	content        string
	source         string
	symbolName     string
	classification string
	indexedAt      time.Time

	vectorScore float64 // raw cosine similarity, 0 if not found by the vector leg
	hasVector   bool
	ftsScore    float64
	hasFTS      bool
	fusedScore  float64
	labels      []classify.Label
}
