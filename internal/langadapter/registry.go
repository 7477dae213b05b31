package langadapter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// Registry is the process-wide (languageId -> adapter) and (extension ->
// adapter) mapping. It is a singleton with an explicit reset path so test
// suites can run in isolation.
type Registry struct {
	mu     sync.RWMutex
	byLang map[string]Adapter
	byExt  map[string]Adapter
}

// NewRegistry creates an empty registry. Most callers should use the process
// singleton (Default) instead; NewRegistry exists for tests that want full
// isolation without touching global state.
func NewRegistry() *Registry {
	return &Registry{
		byLang: make(map[string]Adapter),
		byExt:  make(map[string]Adapter),
	}
}

var (
	defaultMu  sync.Mutex
	defaultReg = NewRegistry()
)

// Default returns the process-wide registry singleton.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultReg
}

// ResetDefault replaces the process-wide singleton with a fresh, empty
// registry. Intended for test teardown only.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = NewRegistry()
}

// Register adds an adapter to the registry. Re-registering the same language
// id is a no-op (idempotent). Registering any extension already owned by a
// *different* language is a Conflict error, and none of the new adapter's
// extensions are registered (all-or-nothing).
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	langID := a.LanguageID()
	if existing, ok := r.byLang[langID]; ok {
		_ = existing
		return nil // re-registering the same language id is a no-op
	}

	exts := normalizeExts(a.Extensions())
	for _, ext := range exts {
		if owner, ok := r.byExt[ext]; ok && owner.LanguageID() != langID {
			return engineerr.New(engineerr.Conflict, "langadapter.Register",
				fmt.Sprintf("extension %q already owned by adapter %q", ext, owner.LanguageID()))
		}
	}

	r.byLang[langID] = a
	for _, ext := range exts {
		r.byExt[ext] = a
	}
	return nil
}

// ByExtension dispatches on a file extension (accepts with or without a
// leading dot). Returns ok == false for unknown extensions, matching the
// parser factory's "fall back to no nodes" behavior.
func (r *Registry) ByExtension(ext string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExt[normalizeExt(ext)]
	return a, ok
}

// ByLanguage looks up an adapter by its stable language id.
func (r *Registry) ByLanguage(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byLang[id]
	return a, ok
}

// Languages returns every registered language id, for diagnostics.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLang))
	for id := range r.byLang {
		out = append(out, id)
	}
	return out
}

func normalizeExts(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = normalizeExt(e)
	}
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
