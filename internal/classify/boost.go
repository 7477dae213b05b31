package classify

import (
	"strings"
)

// FileType mirrors the index-time file classification; a separate type
// from vectorstore.Classification (same string values) so this package has
// no dependency on the store layer — boost policy is pure data plus string
// matching over paths and content.
type FileType string

const (
	FileDocumentationPrimary FileType = "documentation-primary"
	FileDocumentation        FileType = "documentation"
	FileExample              FileType = "example"
	FileTest                 FileType = "test"
	FileConfig               FileType = "config"
	FileSource               FileType = "source"
	FileSourceInternal       FileType = "source-internal"
	FileChangelog            FileType = "changelog"
	FileOther                FileType = "other"
)

// baseBoost is each file type's intrinsic ranking boost:
// documentation-primary highest, config lowest, test kept below 0.6 so test
// fixtures never outrank the code they exercise.
var baseBoost = map[FileType]float64{
	FileDocumentationPrimary: 1.8,
	FileDocumentation:        1.4,
	FileExample:              1.2,
	FileSource:               1.1,
	FileSourceInternal:       0.9,
	FileChangelog:            0.8,
	FileOther:                0.7,
	FileConfig:               0.5,
	FileTest:                 0.55,
}

// BaseBoost returns the intrinsic boost for a file type, defaulting to the
// "other" boost for unrecognized classifications.
func BaseBoost(ft FileType) float64 {
	if b, ok := baseBoost[ft]; ok {
		return b
	}
	return baseBoost[FileOther]
}

// intentFileTypeMultiplier is the (intent -> file-type) multiplier table.
// Each intent favors the file types a user with that intent actually wants:
// debugging favors tests and source; conceptual favors documentation;
// comparison favors documentation and examples; how-to favors docs and
// examples; implementation favors source over documentation.
var intentFileTypeMultiplier = map[Intent]map[FileType]float64{
	IntentImplementation: {
		FileSource: 1.5, FileSourceInternal: 1.3, FileExample: 1.1,
		FileDocumentationPrimary: 0.9, FileDocumentation: 0.8, FileTest: 1.0, FileConfig: 0.8, FileChangelog: 0.7, FileOther: 1.0,
	},
	IntentDebugging: {
		FileTest: 1.6, FileSource: 1.3, FileSourceInternal: 1.2,
		FileDocumentationPrimary: 1.0, FileDocumentation: 0.9, FileExample: 0.9, FileConfig: 1.0, FileChangelog: 1.1, FileOther: 1.0,
	},
	IntentComparison: {
		FileDocumentationPrimary: 1.4, FileDocumentation: 1.3, FileExample: 1.2,
		FileSource: 0.9, FileSourceInternal: 0.8, FileTest: 0.8, FileConfig: 0.8, FileChangelog: 1.0, FileOther: 1.0,
	},
	IntentHowTo: {
		FileDocumentationPrimary: 1.6, FileDocumentation: 1.4, FileExample: 1.3,
		FileSource: 1.0, FileSourceInternal: 0.9, FileTest: 0.8, FileConfig: 0.9, FileChangelog: 0.8, FileOther: 1.0,
	},
	IntentConceptual: {
		FileDocumentationPrimary: 1.7, FileDocumentation: 1.5, FileExample: 1.0,
		FileSource: 0.9, FileSourceInternal: 0.8, FileTest: 0.7, FileConfig: 0.7, FileChangelog: 0.9, FileOther: 1.0,
	},
}

func intentMultiplier(intent Intent, ft FileType) float64 {
	table, ok := intentFileTypeMultiplier[intent]
	if !ok {
		return 1.0
	}
	if m, ok := table[ft]; ok {
		return m
	}
	return 1.0
}

// FileTypeBoost computes the confidence-weighted intent boost for a
// candidate of file type ft given the query's classified labels:
//
//	baseBoost * (sum(multiplier(intent) * confidence(intent)) / sum(confidence(intent)))
func FileTypeBoost(ft FileType, labels []Label) float64 {
	base := BaseBoost(ft)
	if len(labels) == 0 {
		return base
	}
	var weightedSum, confidenceSum float64
	for _, l := range labels {
		weightedSum += intentMultiplier(l.Intent, ft) * l.Confidence
		confidenceSum += l.Confidence
	}
	if confidenceSum == 0 {
		return base
	}
	return base * (weightedSum / confidenceSum)
}

// stopwords is the small set excluded from keyword-ratio boosts and
// related-concept extraction.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "of": true,
	"to": true, "and": true, "or": true, "in": true, "on": true, "for": true,
	"with": true, "how": true, "what": true, "why": true, "do": true,
	"does": true, "can": true, "this": true, "that": true, "it": true,
	"i": true, "you": true, "be": true, "was": true, "were": true,
	"as": true, "at": true, "by": true, "from": true, "not": true,
}

var nonAlnumSplit = func(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

// splitTerms lowercases and splits on non-alphanumeric runs, dropping
// empty pieces.
func splitTerms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), nonAlnumSplit)
	return fields
}

// nonStopwordTerms returns the query's distinct non-stopword terms.
func nonStopwordTerms(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range splitTerms(query) {
		if t == "" || stopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// keywordRatioBoost is the shared shape behind the URL-keyword and
// path-keyword boosts: 1 + (matched non-stopword query terms
// found in target) / (total non-stopword query terms).
func keywordRatioBoost(query, target string) float64 {
	terms := nonStopwordTerms(query)
	if len(terms) == 0 {
		return 1.0
	}
	targetTerms := make(map[string]bool)
	for _, t := range splitTerms(target) {
		targetTerms[t] = true
	}
	matched := 0
	for _, t := range terms {
		if targetTerms[t] {
			matched++
		}
	}
	return 1.0 + float64(matched)/float64(len(terms))
}

// URLKeywordBoost scores how many non-stopword query terms appear in a
// crawled page's URL path.
func URLKeywordBoost(query, url string) float64 {
	if url == "" {
		return 1.0
	}
	return keywordRatioBoost(query, url)
}

// PathKeywordBoost scores how many non-stopword query terms appear in a
// candidate's filesystem path.
func PathKeywordBoost(query, path string) float64 {
	if path == "" {
		return 1.0
	}
	return keywordRatioBoost(query, path)
}

// frameworkTokens maps a framework keyword mentioned in a query to the set
// of tokens that indicate a candidate actually concerns that framework
// .
var frameworkTokens = map[string][]string{
	"express": {"express", "req, res", "app.get", "app.post", "middleware"},
	"react":   {"react", "usestate", "useeffect", "jsx", "component"},
	"vue":     {"vue", "v-if", "v-for", "composition api"},
	"angular": {"angular", "@component", "@injectable", "ngmodule"},
	"django":  {"django", "models.model", "urlpatterns"},
	"flask":   {"flask", "@app.route"},
	"fastapi": {"fastapi", "@app.get", "pydantic"},
	"zod":     {"zod", "z.object", "z.string"},
	"graphql": {"graphql", "resolver", "typedefs"},
	"nextjs":  {"next.js", "getserversideprops", "app router"},
	"svelte":  {"svelte", "$:", "svelte5"},
}

// detectFrameworks returns every framework keyword mentioned in the query.
func detectFrameworks(query string) []string {
	lower := strings.ToLower(query)
	var out []string
	for fw := range frameworkTokens {
		if strings.Contains(lower, fw) {
			out = append(out, fw)
		}
	}
	return out
}

// FrameworkBoost detects framework tokens in the query and checks whether
// the candidate's path or content mentions the same framework:
// 1.5 on a match, 0.8 on a framework-query with no match, 1.0 when the
// query names no framework at all.
func FrameworkBoost(query, path, content string) float64 {
	frameworks := detectFrameworks(query)
	if len(frameworks) == 0 {
		return 1.0
	}
	haystack := strings.ToLower(path + " " + content)
	for _, fw := range frameworks {
		if strings.Contains(haystack, fw) {
			return 1.5
		}
		for _, tok := range frameworkTokens[fw] {
			if strings.Contains(haystack, tok) {
				return 1.5
			}
		}
	}
	return 0.8
}

// MatchedTerms returns the non-stopword query terms (length > 2) found in
// content, used both for the relevance-reason string and the
// dedup tie-break.
func MatchedTerms(query, content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, t := range nonStopwordTerms(query) {
		if len(t) <= 2 {
			continue
		}
		if strings.Contains(lower, t) {
			out = append(out, t)
		}
	}
	return out
}

// CountMatchedTerms is the integer-count form MatchedTerms' callers
// sometimes just need, avoiding building the slice twice.
func CountMatchedTerms(query, content string) int {
	return len(MatchedTerms(query, content))
}
