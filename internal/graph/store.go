package graph

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// Storage persists and loads one store's graph snapshot. The contract is
// deliberately narrow so Searcher can be backed by any implementation.
type Storage interface {
	Load() (*Data, error)
	Save(data *Data) error
	Exists() bool
}

// jsonStorage persists a graph snapshot as a single JSON file.
type jsonStorage struct {
	path string
}

// NewJSONStorage creates graph Storage backed by a single JSON file at path
// (conventionally graphs/<storeId>.json under the engine's data directory).
func NewJSONStorage(path string) Storage {
	return &jsonStorage{path: path}
}

func (s *jsonStorage) Load() (*Data, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Data{}, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "graph.Load", "cannot read "+s.path, err)
	}
	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, engineerr.Wrap(engineerr.ParseFailure, "graph.Load", "malformed graph snapshot "+s.path, err)
	}
	return &data, nil
}

func (s *jsonStorage) Save(data *Data) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return engineerr.Wrap(engineerr.IO, "graph.Save", "cannot create graph directory", err)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return engineerr.Wrap(engineerr.Invalid, "graph.Save", "cannot marshal graph snapshot", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return engineerr.Wrap(engineerr.IO, "graph.Save", "cannot write "+tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return engineerr.Wrap(engineerr.IO, "graph.Save", "cannot finalize "+s.path, err)
	}
	return nil
}

func (s *jsonStorage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
