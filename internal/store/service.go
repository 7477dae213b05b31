package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/chris-bluera/bluera-knowledge/internal/capability"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

// CreateRequest describes a store to create.
type CreateRequest struct {
	Name        string
	Description string
	Tags        []string
	Kind        Kind

	// Path is the local directory for file stores, or an existing clone for
	// repo stores created without a URL.
	Path string
	// URL is the remote for repo stores to clone, or the seed URL for web
	// stores.
	URL string
	// Ref is the branch to clone for repo stores; empty means the
	// remote's default branch.
	Ref string
	// Depth is the crawl depth for web stores.
	Depth int

	// SkipDefinitionSync suppresses writing the change through to the
	// store-definitions file, for bootstrapping paths where the definitions
	// file is itself the caller.
	SkipDefinitionSync bool
}

// Service is the store lifecycle layer above the raw registry: it owns the
// on-disk artifacts a store implies (cloned working trees, vector+FTS rows,
// graph snapshots) and keeps the user-authored definitions file in sync.
type Service struct {
	Registry Registry
	Vectors  vectorstore.Store
	Git      capability.Git
	DataDir  string

	// Definitions is optional; when set, mutating operations write through
	// to the definitions file unless the caller opts out.
	Definitions *Definitions
}

// NewService wires a Service over the given registry and capabilities.
func NewService(reg Registry, vectors vectorstore.Store, git capability.Git, dataDir string) *Service {
	return &Service{Registry: reg, Vectors: vectors, Git: git, DataDir: dataDir}
}

// ReposDir returns the directory cloned working trees live under.
func (s *Service) ReposDir() string { return filepath.Join(s.DataDir, "repos") }

// Create validates req, materializes any on-disk artifacts (cloning a repo
// store's URL), and registers the store.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Store, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Store{}, engineerr.New(engineerr.Invalid, "store.Service.Create", "store name is required")
	}

	st := Store{
		ID:          NewID(),
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Kind:        req.Kind,
		URL:         req.URL,
		Ref:         req.Ref,
		Depth:       req.Depth,
	}

	switch req.Kind {
	case KindFile:
		path, err := resolveDir(req.Path)
		if err != nil {
			return Store{}, err
		}
		st.Path = path

	case KindRepo:
		if req.URL != "" {
			target := filepath.Join(s.ReposDir(), st.ID)
			if err := s.Git.Clone(ctx, req.URL, target, req.Ref); err != nil {
				return Store{}, err
			}
			st.Path = target
		} else {
			path, err := resolveDir(req.Path)
			if err != nil {
				return Store{}, err
			}
			st.Path = path
		}

	case KindWeb:
		if req.URL == "" {
			return Store{}, engineerr.New(engineerr.Invalid, "store.Service.Create", "web store requires a seed URL")
		}
		if st.Depth <= 0 {
			st.Depth = 1
		}

	default:
		return Store{}, engineerr.New(engineerr.Invalid, "store.Service.Create", "unknown store kind "+string(req.Kind))
	}

	created, err := s.Registry.Create(st)
	if err != nil {
		// A failed registration must not leave a cloned tree behind.
		if req.Kind == KindRepo && req.URL != "" {
			os.RemoveAll(st.Path)
		}
		return Store{}, err
	}

	if s.Definitions != nil && !req.SkipDefinitionSync {
		if err := s.Definitions.Put(created); err != nil {
			return created, err
		}
	}
	return created, nil
}

// GetByIDOrName resolves idOrName first as an id, then as a name.
func (s *Service) GetByIDOrName(idOrName string) (Store, error) {
	if st, ok := s.Registry.Get(idOrName); ok {
		return st, nil
	}
	if st, ok := s.Registry.GetByName(idOrName); ok {
		return st, nil
	}
	return Store{}, engineerr.New(engineerr.NotFound, "store.Service.Get", "no store "+idOrName)
}

// Update applies mutate to the store and writes the change through to the
// definitions file.
func (s *Service) Update(id string, mutate func(*Store), skipDefinitionSync bool) (Store, error) {
	updated, err := s.Registry.Update(id, mutate)
	if err != nil {
		return Store{}, err
	}
	if s.Definitions != nil && !skipDefinitionSync {
		if err := s.Definitions.Put(updated); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// Delete removes a store and every artifact derived from it: its vector+FTS
// rows, its graph snapshot, and — for cloned repos — its working tree.
func (s *Service) Delete(ctx context.Context, idOrName string, skipDefinitionSync bool) error {
	st, err := s.GetByIDOrName(idOrName)
	if err != nil {
		return err
	}

	if err := s.Vectors.DeleteStore(ctx, st.ID); err != nil {
		return err
	}
	os.Remove(filepath.Join(s.DataDir, "graphs", st.ID+".json"))
	if st.Kind == KindRepo && st.URL != "" {
		os.RemoveAll(filepath.Join(s.ReposDir(), st.ID))
	}

	if err := s.Registry.Delete(st.ID); err != nil {
		return err
	}
	if s.Definitions != nil && !skipDefinitionSync {
		return s.Definitions.Remove(st.Name)
	}
	return nil
}

// resolveDir normalizes a path to an absolute, symlink-resolved directory.
func resolveDir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", engineerr.New(engineerr.Invalid, "store.Service.Create", "path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", engineerr.Wrap(engineerr.Invalid, "store.Service.Create", "cannot resolve "+path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", engineerr.Wrap(engineerr.NotFound, "store.Service.Create", abs+" does not exist", err)
	}
	if !info.IsDir() {
		return "", engineerr.New(engineerr.Invalid, "store.Service.Create", abs+" is not a directory")
	}
	return abs, nil
}
