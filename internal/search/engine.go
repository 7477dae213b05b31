package search

import (
	"context"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chris-bluera/bluera-knowledge/internal/cache"
	"github.com/chris-bluera/bluera-knowledge/internal/classify"
	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/graph"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

// rrfPreset is the {k, vector weight, fts weight} tuple picked by detected
// content type.
type rrfPreset struct {
	k  float64
	wv float64
	wf float64
}

var (
	codePreset = rrfPreset{k: 20, wv: 0.6, wf: 0.4}
	webPreset  = rrfPreset{k: 30, wv: 0.55, wf: 0.45}
)

const defaultLimit = 10
const fetchMultiplier = 3

// GraphLookup resolves the per-store code-graph Searcher used for
// enrichment. Engine leaves the caching policy to the caller's
// implementation, typically one backed by graph.NewSearcher +
// graph.NewJSONStorage.
type GraphLookup func(ctx context.Context, storeID string) (graph.Searcher, error)

// Engine is the hybrid search engine.
type Engine struct {
	Store    vectorstore.Store
	Embedder embedder.Embedder
	Graphs   GraphLookup
	Cache    *cache.Cache
}

// NewEngine creates a search Engine over the given capabilities. graphs may
// be nil if enrichment beyond minimal detail is never requested.
func NewEngine(store vectorstore.Store, emb embedder.Embedder, graphs GraphLookup) *Engine {
	return &Engine{Store: store, Embedder: emb, Graphs: graphs, Cache: cache.New(cache.DefaultCapacity)}
}

// Search runs one query end to end: retrieval, fusion, normalization,
// gating, dedup, and progressive enrichment.
func (e *Engine) Search(ctx context.Context, q Query) (Response, error) {
	start := time.Now()
	q = applyDefaults(q)

	resp := Response{Query: q.Query, Mode: q.Mode, Stores: q.Stores}

	fetchLimit := q.Limit * fetchMultiplier
	if fetchLimit < q.Limit {
		fetchLimit = q.Limit
	}

	candidates := make(map[string]*candidate)

	var maxRawVectorScore float64
	haveRawVectorScore := false

	if q.Mode == ModeVector || q.Mode == ModeHybrid {
		qVec, err := e.Embedder.Embed(ctx, q.Query, embedder.ModeQuery)
		if err != nil {
			return Response{}, engineerr.Wrap(engineerr.IO, "search.Search", "embedding the query failed", err)
		}
		for _, storeID := range q.Stores {
			hits, err := e.Store.Search(ctx, storeID, qVec, fetchLimit)
			if err != nil {
				return Response{}, engineerr.Wrap(engineerr.IO, "search.Search", "vector search failed for store "+storeID, err)
			}
			for _, h := range hits {
				c := getOrCreate(candidates, h)
				c.vectorScore = h.Score
				c.hasVector = true
				if !haveRawVectorScore || h.Score > maxRawVectorScore {
					maxRawVectorScore = h.Score
					haveRawVectorScore = true
				}
			}
		}
	}

	if q.Mode == ModeFTS || q.Mode == ModeHybrid {
		for _, storeID := range q.Stores {
			hits, err := e.Store.FullTextSearch(ctx, storeID, q.Query, fetchLimit)
			if err != nil {
				continue // FTS leg errors are swallowed per store
			}
			for _, h := range hits {
				c := getOrCreate(candidates, h)
				c.ftsScore = h.Score
				c.hasFTS = true
			}
		}
	}

	if q.MinRelevance != nil && (q.Mode == ModeVector || q.Mode == ModeHybrid) {
		if !haveRawVectorScore || maxRawVectorScore < *q.MinRelevance {
			resp.MaxRawScore = floatPtr(maxRawVectorScore)
			resp.Confidence = confidenceFor(maxRawVectorScore)
			resp.TimeMs = time.Since(start).Milliseconds()
			return resp, nil
		}
	}

	labels := classify.Classify(q.Query)

	list := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		c.labels = labels
		list = append(list, c)
	}

	switch q.Mode {
	case ModeHybrid:
		e.fuseHybrid(list, q.Query)
	case ModeVector:
		for _, c := range list {
			c.fusedScore = c.vectorScore
		}
	case ModeFTS:
		for _, c := range list {
			c.fusedScore = c.ftsScore
		}
	}

	// Normalization applies after fusion for hybrid, after retrieval for
	// vector-only. FTS-only keeps raw scores so `threshold` stays
	// meaningful against the raw BM25-derived score.
	if q.Mode == ModeHybrid || q.Mode == ModeVector {
		normalize(list)
	}

	if q.Threshold != nil {
		filtered := list[:0:0]
		for _, c := range list {
			if c.fusedScore >= *q.Threshold {
				filtered = append(filtered, c)
			}
		}
		list = filtered
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].fusedScore > list[j].fusedScore })

	list = dedup(list, q.Query)

	sort.SliceStable(list, func(i, j int) bool { return list[i].fusedScore > list[j].fusedScore })

	if len(list) > q.Limit {
		list = list[:q.Limit]
	}

	results, err := e.enrich(ctx, list, q)
	if err != nil {
		return Response{}, err
	}

	for _, r := range results {
		e.Cache.Set(r.ID, r)
	}

	resp.Results = results
	resp.TotalResults = len(results)
	resp.TimeMs = time.Since(start).Milliseconds()
	if q.Mode != ModeFTS {
		resp.MaxRawScore = floatPtr(maxRawVectorScore)
		resp.Confidence = confidenceFor(maxRawVectorScore)
	}
	return resp, nil
}

func applyDefaults(q Query) Query {
	if q.Mode == "" {
		q.Mode = ModeHybrid
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Detail == "" {
		q.Detail = DetailMinimal
	}
	return q
}

func getOrCreate(candidates map[string]*candidate, h vectorstore.Hit) *candidate {
	c, ok := candidates[h.ID]
	if !ok {
		c = &candidate{
			id:             h.ID,
			storeID:        h.Metadata.StoreID,
			content:        h.Content,
			source:         h.Metadata.Source,
			symbolName:     h.Metadata.SymbolName,
			classification: string(h.Metadata.Classification),
			indexedAt:      h.Metadata.IndexedAt,
		}
		candidates[h.ID] = c
	}
	return c
}

// fuseHybrid applies Reciprocal Rank Fusion across the vector and FTS ranks,
// multiplying in the boost policy.
func (e *Engine) fuseHybrid(list []*candidate, query string) {
	preset := detectPreset(list)

	vecRanked := make([]*candidate, 0, len(list))
	ftsRanked := make([]*candidate, 0, len(list))
	for _, c := range list {
		if c.hasVector {
			vecRanked = append(vecRanked, c)
		}
		if c.hasFTS {
			ftsRanked = append(ftsRanked, c)
		}
	}
	sort.SliceStable(vecRanked, func(i, j int) bool { return vecRanked[i].vectorScore > vecRanked[j].vectorScore })
	sort.SliceStable(ftsRanked, func(i, j int) bool { return ftsRanked[i].ftsScore > ftsRanked[j].ftsScore })

	vecRank := make(map[string]int, len(vecRanked))
	for i, c := range vecRanked {
		vecRank[c.id] = i + 1
	}
	ftsRank := make(map[string]int, len(ftsRanked))
	for i, c := range ftsRanked {
		ftsRank[c.id] = i + 1
	}

	for _, c := range list {
		var rrf float64
		if r, ok := vecRank[c.id]; ok {
			rrf += preset.wv / (preset.k + float64(r))
		}
		if r, ok := ftsRank[c.id]; ok {
			rrf += preset.wf / (preset.k + float64(r))
		}

		ft := classify.FileType(c.classification)
		fileTypeBoost := classify.FileTypeBoost(ft, c.labels)
		frameworkBoost := classify.FrameworkBoost(query, c.source, c.content)
		urlBoost := 1.0
		pathBoost := 1.0
		if looksLikeURL(c.source) {
			urlBoost = classify.URLKeywordBoost(query, c.source)
		} else {
			pathBoost = classify.PathKeywordBoost(query, c.source)
		}

		c.fusedScore = rrf * fileTypeBoost * frameworkBoost * urlBoost * pathBoost
	}
}

// detectPreset picks the code/web RRF preset by whether a majority of
// candidates carry URL-shaped source metadata.
func detectPreset(list []*candidate) rrfPreset {
	if len(list) == 0 {
		return codePreset
	}
	urlCount := 0
	for _, c := range list {
		if looksLikeURL(c.source) {
			urlCount++
		}
	}
	if float64(urlCount) > float64(len(list))/2 {
		return webPreset
	}
	return codePreset
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// normalize min-max scales fusedScore into [0,1] with six-decimal rounding,
// only when the range is strictly positive; a singleton or a
// score plateau is left raw so `threshold` stays meaningful.
func normalize(list []*candidate) {
	if len(list) == 0 {
		return
	}
	min, max := list[0].fusedScore, list[0].fusedScore
	for _, c := range list[1:] {
		if c.fusedScore < min {
			min = c.fusedScore
		}
		if c.fusedScore > max {
			max = c.fusedScore
		}
	}
	rng := max - min
	if rng <= 0 {
		return
	}
	for _, c := range list {
		c.fusedScore = round6((c.fusedScore - min) / rng)
	}
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

// dedup groups candidates by source key (path/url, else id), keeping the
// chunk with the highest count of non-trivial matched query terms per
// group, tie-broken by score.
func dedup(list []*candidate, query string) []*candidate {
	groups := make(map[string][]*candidate)
	var order []string
	for _, c := range list {
		key := c.source
		if key == "" {
			key = c.id
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	out := make([]*candidate, 0, len(order))
	for _, key := range order {
		group := groups[key]
		best := group[0]
		bestMatches := classify.CountMatchedTerms(query, best.content)
		for _, c := range group[1:] {
			matches := classify.CountMatchedTerms(query, c.content)
			if matches > bestMatches || (matches == bestMatches && c.fusedScore > best.fusedScore) {
				best, bestMatches = c, matches
			}
		}
		out = append(out, best)
	}
	return out
}

// confidenceThresholds reads SEARCH_CONFIDENCE_HIGH/MEDIUM at call time
// (not once at startup) so tests can vary the environment freely.
func confidenceThresholds() (high, medium float64) {
	high, medium = 0.5, 0.3
	if v, ok := floatEnv("SEARCH_CONFIDENCE_HIGH"); ok {
		high = v
	}
	if v, ok := floatEnv("SEARCH_CONFIDENCE_MEDIUM"); ok {
		medium = v
	}
	return
}

func floatEnv(name string) (float64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func confidenceFor(maxRawScore float64) Confidence {
	high, medium := confidenceThresholds()
	switch {
	case maxRawScore >= high:
		return ConfidenceHigh
	case maxRawScore >= medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func floatPtr(f float64) *float64 { return &f }
