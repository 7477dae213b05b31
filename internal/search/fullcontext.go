package search

import (
	"context"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// FullContext upgrades a previously returned result to full detail. A cache
// hit that already carries the full layer is returned as-is; otherwise the
// originating store is re-queried with a narrow search seeded from the
// cached chunk and the full layer is taken from the fresh hit. A result id
// the cache has never seen (or has evicted) is NotFound — callers re-run
// the original search.
func (e *Engine) FullContext(ctx context.Context, resultID string) (Result, error) {
	v, ok := e.Cache.Get(resultID)
	if !ok {
		return Result{}, engineerr.New(engineerr.NotFound, "search.FullContext", "no cached result "+resultID)
	}
	r, ok := v.(Result)
	if !ok {
		return Result{}, engineerr.New(engineerr.Invalid, "search.FullContext", "cached value for "+resultID+" is not a result")
	}
	if r.Full != nil {
		return r, nil
	}

	seed := r.symbolName
	if seed == "" {
		seed = firstLine(r.content)
	}
	if seed != "" {
		resp, err := e.Search(ctx, Query{
			Query:  seed,
			Stores: []string{r.StoreID},
			Mode:   ModeHybrid,
			Limit:  3,
			Detail: DetailFull,
		})
		if err == nil {
			for _, fresh := range resp.Results {
				if fresh.ID == resultID {
					e.Cache.Set(resultID, fresh)
					return fresh, nil
				}
			}
		}
	}

	// The narrow search missed (or the seed was empty): upgrade in place
	// from the cached chunk content.
	c := &candidate{
		id:         r.ID,
		storeID:    r.StoreID,
		content:    r.content,
		source:     r.source,
		symbolName: r.symbolName,
	}
	ctxLayer, err := e.buildContext(ctx, c)
	if err == nil {
		r.Context = ctxLayer
	}
	full, err := e.buildFull(ctx, c)
	if err != nil {
		return Result{}, err
	}
	r.Full = full
	e.Cache.Set(resultID, r)
	return r, nil
}
