// Package store implements the store lifecycle and registry: the durable
// record of every indexed store (file tree, git repo, or crawled site),
// persisted as stores.json. An atomic read-modify-write JSON file guarded
// by a single mutex, no database.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the source a store indexes content from.
type Kind string

const (
	KindFile Kind = "file"
	KindRepo Kind = "repo"
	KindWeb  Kind = "web"
)

// Status is a store's current lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusIndexing Status = "indexing"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
)

// Store is one registered knowledge source.
type Store struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Kind        Kind      `json:"kind"`
	Path        string    `json:"path,omitempty"`  // file/repo: local directory
	URL         string    `json:"url,omitempty"`   // repo/web: remote source
	Ref         string    `json:"ref,omitempty"`   // repo: branch to clone
	Depth       int       `json:"depth,omitempty"` // web: crawl depth
	Status      Status    `json:"status"`
	DocCount    int       `json:"doc_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastIndexed time.Time `json:"last_indexed,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// NewID generates a new store identifier.
func NewID() string {
	return uuid.NewString()
}
