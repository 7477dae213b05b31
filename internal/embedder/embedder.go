// Package embedder defines the Embedder capability: map text to a
// fixed-dimension unit vector. Model invocation itself lives behind this
// interface, so the package provides the contract plus a deterministic
// hash-based implementation suitable for tests and for wiring a real model
// behind an HTTP/subprocess boundary later.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// Mode distinguishes queries from passages: real models sometimes embed the
// two asymmetrically (e.g. instruction-prefixed query embeddings), so the
// capability threads the distinction through even though the mock below
// treats both identically.
type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

// DefaultDimensions is the fixed per-process vector width.
const DefaultDimensions = 384

// maxBatchSize bounds internal batching. Batch boundaries are not
// observable externally.
const maxBatchSize = 32

// Embedder is the capability the indexer and search engine call through;
// Embed must be safe to call sequentially and from both paths.
type Embedder interface {
	Embed(ctx context.Context, text string, mode Mode) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedFunc is the low-level, unbatched operation a concrete Embedder
// implements; Batch wraps it with the internal 32-item batching every
// implementation shares.
type embedFunc func(ctx context.Context, texts []string, mode Mode) ([][]float32, error)

// Batch splits texts into chunks of at most maxBatchSize and calls fn for
// each, concatenating results in input order. Shared by every Embedder
// implementation so batch-size policy lives in one place.
func Batch(ctx context.Context, texts []string, mode Mode, fn embedFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vecs, err := fn(ctx, texts[start:end], mode)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// mockEmbedder generates deterministic unit vectors from a SHA-256 hash of
// the input text, normalized to unit length.
type mockEmbedder struct {
	dimensions int
	closed     bool
}

// NewMock creates a deterministic Embedder for tests and for exercising the
// search/index pipeline without a real model.
func NewMock(dimensions int) Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &mockEmbedder{dimensions: dimensions}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text}, mode)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if m.closed {
		return nil, engineerr.New(engineerr.Invalid, "embedder.EmbedBatch", "embedder is closed")
	}
	return Batch(ctx, texts, mode, func(_ context.Context, batch []string, _ Mode) ([][]float32, error) {
		out := make([][]float32, len(batch))
		for i, text := range batch {
			out[i] = hashVector(text, m.dimensions)
		}
		return out, nil
	})
}

func (m *mockEmbedder) Dimensions() int { return m.dimensions }

func (m *mockEmbedder) Close() error {
	m.closed = true
	return nil
}

// hashVector derives a deterministic unit vector from text by expanding a
// SHA-256 digest (re-hashed as needed to fill dim) into signed floats, then
// L2-normalizing. Two calls with identical text always produce the exact
// same vector, which keeps index runs reproducible.
func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	block := sha256.Sum256([]byte(text))
	for i := 0; i < dim; i++ {
		if i > 0 && i%8 == 0 {
			block = sha256.Sum256(append(block[:], []byte(fmt.Sprintf(":%d", i))...))
		}
		offset := (i % 8) * 4
		bits := binary.BigEndian.Uint32(block[offset : offset+4])
		vec[i] = (float32(bits)/float32(1<<32))*2.0 - 1.0
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
}
