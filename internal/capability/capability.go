// Package capability collects the external-system interfaces the engine
// depends on but does not own: source control access, delegated language
// parsing, and web crawling. Git gets a concrete go-git-backed
// implementation here because cloning a remote store is core to the repo
// store lifecycle; LanguageParse and Crawler stay interface-only, swappable
// collaborators rather than inlined logic.
package capability

import "context"

// CommitInfo describes one commit touching a repository store's working tree.
type CommitInfo struct {
	Hash    string
	Author  string
	Message string
}

// Git is the source-control capability a repo-kind store depends on.
type Git interface {
	// Clone fetches url into localPath at the branch named by ref; an empty
	// ref means the remote's default branch.
	Clone(ctx context.Context, url, localPath, ref string) error
	// Pull fast-forwards an existing clone at localPath.
	Pull(ctx context.Context, localPath string) error
	// Head returns the current commit checked out at localPath.
	Head(ctx context.Context, localPath string) (CommitInfo, error)
}

// ParsedSymbol is one declaration returned by an external LanguageParse
// implementation, deliberately narrower than langadapter.CodeNode: external
// parsers speak in terms the engine can validate without trusting their
// internal node kinds.
type ParsedSymbol struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int
}

// LanguageParse is the delegated-parsing capability for languages the
// engine does not parse in-process. Python is the canonical example:
// correct scope resolution needs more than regex heuristics, so the engine
// calls out to an external parser process/service instead of guessing.
type LanguageParse interface {
	ParseSymbols(ctx context.Context, source, path string) ([]ParsedSymbol, error)
}

// CrawledPage is one fetched page handed back by a Crawler implementation.
type CrawledPage struct {
	URL      string
	Title    string
	Markdown string
	Depth    int
}

// CrawlOptions bound one crawl run.
type CrawlOptions struct {
	MaxDepth  int
	MaxPages  int
	UserAgent string
}

// Crawler is the web-ingestion capability a web-kind store depends on. The
// engine only consumes CrawledPage values; fetching, rendering, and
// rate-limiting are left entirely to the implementation.
type Crawler interface {
	Crawl(ctx context.Context, startURL string, opts CrawlOptions) (<-chan CrawledPage, error)
}
