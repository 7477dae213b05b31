package search

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
	"github.com/chris-bluera/bluera-knowledge/internal/classify"
	"github.com/chris-bluera/bluera-knowledge/internal/graph"
)

// declHeaderRE extracts a leading "kind name(...)" header from a chunk's
// content for the summary layer. It matches Go's func plus the
// function/class/interface/type/const/let/var shapes that
// chunk.ChunkSourceDeclarations also recognizes; enum, default-export and
// generator declarations are not matched.
var declHeaderRE = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?(func|function|class|interface|type|const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*(\([^)]*\))?`)

var docCommentRE = regexp.MustCompile(`(?s)^\s*(?://[^\n]*\n)+|^\s*/\*.*?\*/`)

// enrich builds the final Result slice for the given candidates at the
// query's requested detail level.
func (e *Engine) enrich(ctx context.Context, list []*candidate, q Query) ([]Result, error) {
	out := make([]Result, 0, len(list))
	for _, c := range list {
		r := Result{
			ID:      c.id,
			StoreID: c.storeID,
			Score:   c.fusedScore,
			Summary: buildSummary(c, q.Query),

			source:         c.source,
			content:        c.content,
			symbolName:     c.symbolName,
			rawVectorScore: c.vectorScore,
			indexedAt:      c.indexedAt,
		}

		if q.Detail == DetailContextual || q.Detail == DetailFull {
			ctxLayer, err := e.buildContext(ctx, c)
			if err != nil {
				return nil, err
			}
			r.Context = ctxLayer
		}

		if q.Detail == DetailFull {
			full, err := e.buildFull(ctx, c)
			if err != nil {
				return nil, err
			}
			r.Full = full
		}

		out = append(out, r)
	}
	return out, nil
}

// buildSummary always runs. Type, name and signature come from the first
// declaration header found on any line of the chunk, otherwise from the
// chunk's symbol-name metadata; the purpose is the chunk's first line,
// truncated to 160 characters.
func buildSummary(c *candidate, query string) Summary {
	kind, name, sig := "text", c.symbolName, ""
	if m := declHeaderRE.FindStringSubmatch(c.content); m != nil {
		kind, name = normalizeDeclKind(m[1]), m[2]
		sig = strings.TrimSpace(m[1] + " " + m[2] + m[3])
	} else if name != "" {
		kind = "symbol"
	}

	purpose := firstLine(c.content)
	if len(purpose) > 160 {
		purpose = purpose[:160] + "..."
	}

	reason := "matches query terms"
	if matched := classify.MatchedTerms(query, c.content); len(matched) > 0 {
		reason = "matches: " + strings.Join(matched, ", ")
	}

	return Summary{
		Type:            kind,
		Name:            name,
		Signature:       sig,
		Purpose:         purpose,
		Location:        c.source + ":" + strconv.Itoa(firstLineNumber(c)),
		RelevanceReason: reason,
	}
}

func normalizeDeclKind(tok string) string {
	switch tok {
	case "func", "function":
		return "function"
	default:
		return tok
	}
}

func firstLine(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		return strings.TrimSpace(content[:idx])
	}
	return content
}

// firstLineNumber is a best-effort 1 until the candidate carries real
// source-line metadata; chunk offsets are character-based, not line-based,
// so callers needing an exact line resolve it via the graph node instead.
func firstLineNumber(c *candidate) int { return 1 }

// buildContext adds imports/interfaces/related-concepts and graph-derived
// usage counts.
func (e *Engine) buildContext(ctx context.Context, c *candidate) (*Context, error) {
	ctxLayer := &Context{
		RelatedConcepts: relatedConcepts(c.content),
		Imports:         extractImports(c.content),
		Interfaces:      extractInterfaces(c.content),
	}

	if e.Graphs == nil || c.symbolName == "" {
		return ctxLayer, nil
	}
	g, err := e.Graphs(ctx, c.storeID)
	if err != nil || g == nil {
		return ctxLayer, nil // no graph for this store is not fatal to enrichment
	}
	calledBy, _ := g.GetCalledByCount(ctx, c.symbolName)
	calls, _ := g.GetCallsCount(ctx, c.symbolName)
	ctxLayer.Usage = Usage{CalledBy: calledBy, Calls: calls}
	return ctxLayer, nil
}

// buildFull extracts the complete enclosing code unit, a leading doc
// comment if present, and graph-derived related code.
func (e *Engine) buildFull(ctx context.Context, c *candidate) (*Full, error) {
	full := &Full{Content: fullCodeUnit(c.content)}

	if m := docCommentRE.FindString(c.content); m != "" {
		full.DocComment = strings.TrimSpace(m)
	}

	if e.Graphs == nil || c.symbolName == "" {
		return full, nil
	}
	g, err := e.Graphs(ctx, c.storeID)
	if err != nil || g == nil {
		return full, nil
	}

	const maxRelated = 10
	var related []RelatedCode
	if edges, err := g.GetEdges(ctx, c.symbolName); err == nil {
		for _, edge := range edges {
			if edge.Type != graph.EdgeCalls || len(related) >= maxRelated {
				continue
			}
			if n, ok, _ := g.GetNode(ctx, edge.To); ok {
				related = append(related, RelatedCode{File: n.File, Summary: n.Signature, Relationship: "called by this"})
			}
		}
	}
	if edges, err := g.GetIncomingEdges(ctx, c.symbolName); err == nil {
		for _, edge := range edges {
			if edge.Type != graph.EdgeCalls || len(related) >= maxRelated {
				continue
			}
			if n, ok, _ := g.GetNode(ctx, edge.From); ok {
				related = append(related, RelatedCode{File: n.File, Summary: n.Signature, Relationship: "calls this"})
			}
		}
	}
	full.Related = related
	return full, nil
}

// fullCodeUnit expands a chunk's content to its enclosing block using the
// same brace-balancing scanner the chunking pipeline uses to find a
// declaration's end, so "full" detail returns a complete code unit rather
// than a possibly-truncated chunk boundary.
func fullCodeUnit(content string) string {
	if m := declHeaderRE.FindStringSubmatchIndex(content); m != nil {
		end := chunk.FindBlockEnd(content, m[0])
		if end > m[0] && end <= len(content) {
			return content[m[0]:end]
		}
	}
	return content
}

var importLineRE = regexp.MustCompile(`(?m)^\s*(?:import\s+.+|from\s+\S+\s+import\s+.+|#include\s+\S+|require\(['"][^'"]+['"]\))\s*$`)

func extractImports(content string) []string {
	matches := importLineRE.FindAllString(content, -1)
	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
		if len(out) >= 5 {
			break
		}
	}
	return out
}

var interfaceDeclRE = regexp.MustCompile(`(?m)^\s*(?:export\s+)?interface\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

func extractInterfaces(content string) []string {
	matches := interfaceDeclRE.FindAllStringSubmatch(content, -1)
	var out []string
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// relatedConcepts is a coarse keyword extraction over the chunk's own
// content, distinct non-stopword terms longer than three characters,
// capped to keep the layer small.
func relatedConcepts(content string) []string {
	terms := classify.MatchedTerms(content, content)
	seen := make(map[string]bool)
	var out []string
	for _, t := range terms {
		if len(t) <= 3 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) >= 5 {
			break
		}
	}
	return out
}
