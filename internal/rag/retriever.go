package rag

import (
	"context"

	"github.com/courtsense/courtsense/internal/knowledge"
	"github.com/courtsense/courtsense/internal/log"
)

// Default retrieval parameters.
const (
	DefaultRetrievalLimit      = 5
	DefaultSimilarityThreshold = 0.3
)

// ChunkSearcher is the slice of the knowledge store the retriever reads
// through.
type ChunkSearcher interface {
	SearchChunks(ctx context.Context, embedding []float32, f knowledge.SearchFilter) ([]knowledge.RetrievedChunk, error)
}

// RetrieveOptions narrows and bounds a retrieval.
type RetrieveOptions struct {
	// Sport matches chunks tagged with this sport or with no sport at all.
	// Empty disables the filter.
	Sport string

	// Categories restricts results to these categories exactly; a chunk
	// with a category outside the set never matches. Empty disables the
	// filter.
	Categories []knowledge.Category

	// Technique matches chunks tagged with this technique or with none.
	// Empty disables the filter.
	Technique string

	// Limit caps the result count. Zero or negative uses the default.
	Limit int

	// Threshold is the minimum similarity, exclusive. Results scoring at or
	// below it are dropped. Zero uses the default; pass a negative value to
	// keep every match.
	Threshold float64
}

// Retriever embeds a query and searches the chunk store. Grounding is an
// enhancement, not a hard dependency: every failure mode resolves to an
// empty result set so callers can always proceed ungrounded.
type Retriever struct {
	searcher ChunkSearcher
	embedder Embedder
	logger   log.Logger
}

// NewRetriever creates a Retriever. Searcher and embedder are required.
func NewRetriever(searcher ChunkSearcher, embedder Embedder, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{searcher: searcher, embedder: embedder, logger: logger}
}

// Retrieve returns the chunks most similar to query, ranked by similarity
// descending and filtered per opts. It never fails: embedding or store
// errors are logged and produce an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) []knowledge.RetrievedChunk {
	if r.searcher == nil || r.embedder == nil {
		r.logger.Error("retriever is not fully configured")
		return nil
	}
	if query == "" {
		return nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, returning no grounding", "error", err)
		return nil
	}

	results, err := r.searcher.SearchChunks(ctx, vector, knowledge.SearchFilter{
		Sport:      opts.Sport,
		Categories: opts.Categories,
		Technique:  opts.Technique,
		Limit:      limit,
	})
	if err != nil {
		r.logger.Warn("chunk search failed, returning no grounding", "error", err)
		return nil
	}

	// Results arrive ranked by distance; dropping sub-threshold entries
	// keeps the order intact.
	filtered := results[:0:0]
	for _, rc := range results {
		if rc.Similarity > threshold {
			filtered = append(filtered, rc)
		}
	}

	r.logger.Debug("retrieved grounding chunks",
		"query_len", len(query),
		"matches", len(filtered),
		"sport", opts.Sport)
	return filtered
}
