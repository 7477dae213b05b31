package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// definitionsVersion tags the definitions file format.
const definitionsVersion = 1

// Definition is one intended store in the user-authored definitions file.
// The definitions file records intent; the registry records what exists.
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Kind        Kind     `json:"kind"`
	Path        string   `json:"path,omitempty"`
	URL         string   `json:"url,omitempty"`
	Ref         string   `json:"ref,omitempty"`
	Depth       int      `json:"depth,omitempty"`
}

type definitionsFile struct {
	Version int          `json:"version"`
	Stores  []Definition `json:"stores"`
}

// Definitions reads and writes the version-tagged store-definitions file.
type Definitions struct {
	path string
	mu   sync.Mutex
}

// NewDefinitions opens the definitions file at path (created on first write).
func NewDefinitions(path string) *Definitions {
	return &Definitions{path: path}
}

// List returns every definition in the file, empty when the file is absent.
func (d *Definitions) List() ([]Definition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.load()
	if err != nil {
		return nil, err
	}
	return f.Stores, nil
}

// Put inserts or replaces the definition matching st's name.
func (d *Definitions) Put(st Store) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.load()
	if err != nil {
		return err
	}
	def := Definition{
		Name:        st.Name,
		Description: st.Description,
		Tags:        st.Tags,
		Kind:        st.Kind,
		Path:        st.Path,
		URL:         st.URL,
		Ref:         st.Ref,
		Depth:       st.Depth,
	}
	replaced := false
	for i := range f.Stores {
		if f.Stores[i].Name == def.Name {
			f.Stores[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		f.Stores = append(f.Stores, def)
	}
	return d.save(f)
}

// Remove deletes the definition with the given name, if present.
func (d *Definitions) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.load()
	if err != nil {
		return err
	}
	out := f.Stores[:0]
	for _, def := range f.Stores {
		if def.Name != name {
			out = append(out, def)
		}
	}
	f.Stores = out
	return d.save(f)
}

// SyncReport summarizes one synchronization pass between the definitions
// file and the registry.
type SyncReport struct {
	Added    []string // defined but missing from the registry, now created
	Orphaned []string // registered but absent from the definitions file
	Pruned   []string // orphans deleted because prune was requested
}

// Synchronize reconciles the registry against the definitions file: stores
// defined but not registered are created (and left pending for the next
// index run); registered stores with no definition are reported as orphans,
// and deleted when prune is set.
func (s *Service) Synchronize(ctx context.Context, prune bool) (SyncReport, error) {
	report := SyncReport{}
	if s.Definitions == nil {
		return report, engineerr.New(engineerr.Invalid, "store.Synchronize", "no definitions file configured")
	}

	defs, err := s.Definitions.List()
	if err != nil {
		return report, err
	}

	defined := make(map[string]Definition, len(defs))
	for _, def := range defs {
		defined[def.Name] = def
	}

	for _, def := range defs {
		if _, ok := s.Registry.GetByName(def.Name); ok {
			continue
		}
		_, err := s.Create(ctx, CreateRequest{
			Name:               def.Name,
			Description:        def.Description,
			Tags:               def.Tags,
			Kind:               def.Kind,
			Path:               def.Path,
			URL:                def.URL,
			Ref:                def.Ref,
			Depth:              def.Depth,
			SkipDefinitionSync: true,
		})
		if err != nil {
			return report, err
		}
		report.Added = append(report.Added, def.Name)
	}

	for _, st := range s.Registry.List() {
		if _, ok := defined[st.Name]; ok {
			continue
		}
		report.Orphaned = append(report.Orphaned, st.Name)
		if prune {
			if err := s.Delete(ctx, st.ID, true); err != nil {
				return report, err
			}
			report.Pruned = append(report.Pruned, st.Name)
		}
	}
	return report, nil
}

func (d *Definitions) load() (definitionsFile, error) {
	data, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return definitionsFile{Version: definitionsVersion}, nil
	}
	if err != nil {
		return definitionsFile{}, engineerr.Wrap(engineerr.IO, "store.definitions", "cannot read "+d.path, err)
	}
	var f definitionsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return definitionsFile{}, engineerr.Wrap(engineerr.ParseFailure, "store.definitions", "malformed "+d.path, err)
	}
	if f.Version == 0 {
		f.Version = definitionsVersion
	}
	return f, nil
}

func (d *Definitions) save(f definitionsFile) error {
	f.Version = definitionsVersion
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return engineerr.Wrap(engineerr.IO, "store.definitions", "cannot create directory", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return engineerr.Wrap(engineerr.Invalid, "store.definitions", "cannot marshal definitions", err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return engineerr.Wrap(engineerr.IO, "store.definitions", "cannot write "+tmp, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return engineerr.Wrap(engineerr.IO, "store.definitions", "cannot finalize "+d.path, err)
	}
	return nil
}
