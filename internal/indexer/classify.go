package indexer

import (
	"path/filepath"
	"strings"

	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

// primaryDocNames are top-level documentation files ranked above ordinary
// documentation.
var primaryDocNames = map[string]bool{
	"readme":       true,
	"migration":    true,
	"contributing": true,
	"architecture": true,
	"changelog":    false, // changelog has its own class
}

// primaryWebPaths are URL path segments that mark a crawled page as primary
// documentation.
var primaryWebPaths = []string{"api-reference", "getting-started"}

// internalPathMarkers mark code that is implementation detail rather than a
// package's public surface.
var internalPathMarkers = []string{"/internal/", "/compiler/", "/transforms/"}

var configExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".env": true, ".properties": true,
}

var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".go": true, ".rs": true, ".py": true, ".rb": true, ".java": true,
	".c": true, ".cc": true, ".cpp": true, ".h": true, ".hpp": true,
	".cs": true, ".php": true, ".swift": true, ".kt": true, ".scala": true,
	".clj": true, ".cljs": true, ".edn": true, ".lisp": true, ".scm": true,
	".el": true,
}

// ClassifyFile derives the file-type classification consumed by the search
// engine's boost policy. source is a filesystem path or, for crawled pages,
// a URL; root, when non-empty, is the store root used to judge whether a
// document lives at the top level of its tree.
func ClassifyFile(root, source string) vectorstore.Classification {
	lower := strings.ToLower(filepath.ToSlash(source))
	if root != "" && !isURL(lower) {
		if rel, err := filepath.Rel(root, source); err == nil && !strings.HasPrefix(rel, "..") {
			lower = strings.ToLower(filepath.ToSlash(rel))
		}
	}
	base := strings.ToLower(filepath.Base(lower))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if isURL(lower) {
		for _, seg := range primaryWebPaths {
			if strings.Contains(lower, seg) {
				return vectorstore.ClassDocumentationPrimary
			}
		}
		if strings.Contains(lower, "/docs/") || strings.HasSuffix(lower, ".md") {
			return vectorstore.ClassDocumentation
		}
		return vectorstore.ClassDocumentation
	}

	if strings.HasPrefix(stem, "changelog") || strings.HasPrefix(stem, "history") {
		return vectorstore.ClassChangelog
	}

	if ext == ".md" || ext == ".rst" || ext == ".txt" || ext == ".adoc" {
		// Top-level docs (no directory separators beyond the root) with a
		// well-known stem rank above ordinary documentation.
		dir := filepath.Dir(lower)
		topLevel := dir == "." || dir == "/"
		if topLevel && primaryDocNames[stem] {
			return vectorstore.ClassDocumentationPrimary
		}
		return vectorstore.ClassDocumentation
	}
	if strings.Contains(lower, "/docs/") {
		return vectorstore.ClassDocumentation
	}

	if strings.Contains(lower, "example") || strings.Contains(lower, "/samples/") {
		return vectorstore.ClassExample
	}

	if strings.Contains(stem, ".test") || strings.Contains(stem, ".spec") ||
		strings.HasSuffix(stem, "_test") || strings.Contains(lower, "/test/") ||
		strings.Contains(lower, "/tests/") || strings.Contains(lower, "/__tests__/") {
		return vectorstore.ClassTest
	}

	if configExtensions[ext] || stem == "dockerfile" || stem == "makefile" {
		return vectorstore.ClassConfig
	}

	if sourceExtensions[ext] {
		for _, marker := range internalPathMarkers {
			if strings.Contains(lower, marker) {
				return vectorstore.ClassSourceInternal
			}
		}
		// Monorepo package sources under src/ that are not the entrypoint.
		if strings.Contains(lower, "/src/") && stem != "index" && stem != "main" {
			return vectorstore.ClassSourceInternal
		}
		return vectorstore.ClassSource
	}

	return vectorstore.ClassOther
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
