package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
)

// Embedder produces deterministic embeddings derived from the input text,
// so similarity relationships are stable across test runs: identical texts
// get identical vectors, different texts get different ones.
//
// Safe for concurrent use.
type Embedder struct {
	dim int

	mu    sync.Mutex
	err   error
	calls []string
}

// NewEmbedder creates a deterministic embedder with the given
// dimensionality.
func NewEmbedder(dim int) *Embedder {
	return &Embedder{dim: dim}
}

// Dimension returns the vector dimensionality.
func (e *Embedder) Dimension() int { return e.dim }

// Fail makes every subsequent call return err. Pass nil to restore normal
// operation.
func (e *Embedder) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns a copy of every text embedded so far.
func (e *Embedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]string, len(e.calls))
	copy(cp, e.calls)
	return cp
}

// Embed returns the deterministic vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text, in order.
func (e *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		e.calls = append(e.calls, text)
		vecs[i] = deterministicVector(text, e.dim)
	}
	return vecs, nil
}

// deterministicVector hashes text into a unit vector. Repeating the hash
// with a counter fills arbitrary dimensionality.
func deterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var norm float64

	seed := sha256.Sum256([]byte(text))
	block := seed[:]
	for i := 0; i < dim; i++ {
		if off := (i * 4) % sha256.Size; off == 0 && i > 0 {
			next := sha256.Sum256(block)
			block = next[:]
		}
		bits := binary.BigEndian.Uint32(block[(i*4)%sha256.Size:])
		// Map to (-1, 1).
		vec[i] = float32(int32(bits)) / float32(math.MaxInt32)
		norm += float64(vec[i]) * float64(vec[i])
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
