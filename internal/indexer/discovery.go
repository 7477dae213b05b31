package indexer

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// skippedDirs is the fixed directory denylist applied during discovery,
// independent of any user-configured ignore patterns.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"vendor":       true,
	"__pycache__":  true,
	".next":        true,
	".cache":       true,
	"coverage":     true,
	".idea":        true,
	".vscode":      true,
}

// textExtensions is the closed set of file extensions discovery keeps.
var textExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".go": true, ".rs": true, ".py": true, ".rb": true, ".java": true,
	".c": true, ".cc": true, ".cpp": true, ".h": true, ".hpp": true,
	".cs": true, ".php": true, ".swift": true, ".kt": true, ".scala": true,
	".clj": true, ".cljs": true, ".edn": true, ".lisp": true, ".scm": true, ".el": true,
	".md": true, ".rst": true, ".txt": true, ".adoc": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".html": true, ".css": true, ".scss": true, ".sql": true, ".sh": true,
	".graphql": true, ".proto": true,
}

// discovery walks a store's root directory and yields the files to index.
type discovery struct {
	root    string
	ignores []glob.Glob
}

// newDiscovery compiles ignorePatterns (gitignore-style globs matched against
// paths relative to root) and prepares a walker over root.
func newDiscovery(root string, ignorePatterns []string) (*discovery, error) {
	d := &discovery{root: root}
	for _, p := range ignorePatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, engineerr.Wrap(engineerr.Invalid, "indexer.discover",
				"bad ignore pattern "+p, err)
		}
		d.ignores = append(d.ignores, g)
	}
	return d, nil
}

// files returns every indexable file under root, sorted by the walk order of
// filepath.WalkDir (lexical, so runs are deterministic).
func (d *discovery) files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == d.root {
				return err
			}
			return nil // unreadable subtree: skip, don't abort the run
		}
		if entry.IsDir() {
			if skippedDirs[entry.Name()] || strings.HasPrefix(entry.Name(), ".") && path != d.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			rel = path
		}
		for _, g := range d.ignores {
			if g.Match(rel) {
				return nil
			}
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "indexer.discover", "walk failed for "+d.root, err)
	}
	return out, nil
}
