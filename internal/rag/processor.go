package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/courtsense/courtsense/internal/chunker"
	"github.com/courtsense/courtsense/internal/embedding"
	"github.com/courtsense/courtsense/internal/extract"
	"github.com/courtsense/courtsense/internal/knowledge"
	"github.com/courtsense/courtsense/internal/log"
)

// DocumentStore is the slice of the knowledge store the processor writes
// through.
type DocumentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*knowledge.Document, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	SetPageCount(ctx context.Context, id uuid.UUID, pageCount int32) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	DeleteChunks(ctx context.Context, documentID uuid.UUID) (int64, error)
	InsertChunks(ctx context.Context, chunks []knowledge.Chunk) error
}

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Splitter turns extracted pages into chunk blueprints.
type Splitter interface {
	Split(pages []extract.Page) ([]chunker.Passage, error)
}

// ExtractFunc parses raw document bytes into per-page text.
type ExtractFunc func(data []byte) (*extract.Document, error)

// Processor drives a document through the ingestion pipeline and owns its
// status transitions. Processing one document is strictly sequential;
// distinct documents may be processed concurrently since each run touches
// only its own rows.
type Processor struct {
	store    DocumentStore
	fetcher  SourceFetcher
	extract  ExtractFunc
	splitter Splitter
	embedder Embedder
	logger   log.Logger
}

// NewProcessor wires the pipeline. Store, fetcher, splitter and embedder
// are required; a nil extract function defaults to PDF extraction.
func NewProcessor(store DocumentStore, fetcher SourceFetcher, splitter Splitter, embedder Embedder, logger log.Logger, opts ...ProcessorOption) (*Processor, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	p := &Processor{
		store:    store,
		fetcher:  fetcher,
		extract:  extract.Extract,
		splitter: splitter,
		embedder: embedder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithExtractFunc replaces the text extraction step.
func WithExtractFunc(fn ExtractFunc) ProcessorOption {
	return func(p *Processor) {
		if fn != nil {
			p.extract = fn
		}
	}
}

// Process runs the full ingestion pipeline for one document. It is
// idempotent: re-invoking it on a completed or failed document clears the
// prior chunks and rebuilds them. Any step failure marks the document
// FAILED with a bounded message and stops further writes; the returned
// error carries the same cause for the caller.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		// Absent document is a caller error; there is no record to mark.
		return fmt.Errorf("loading document: %w", err)
	}

	logger := p.logger.With("document_id", id.String(), "document", doc.Name)

	if err := p.store.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("marking processing: %w", err)
	}
	logger.Info("processing document", "source", doc.SourceURL)

	data, err := p.fetcher.Fetch(ctx, doc.SourceURL)
	if err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("fetching source: %w", err))
	}

	extracted, err := p.extract(data)
	if err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("extracting text: %w", err))
	}
	if err := p.store.SetPageCount(ctx, id, extracted.PageCount); err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("recording page count: %w", err))
	}

	passages, err := p.splitter.Split(extracted.Pages)
	if err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("chunking text: %w", err))
	}
	logger.Info("document chunked",
		"pages", extracted.PageCount,
		"chunks", len(passages))

	texts := make([]string, len(passages))
	for i, passage := range passages {
		texts[i] = passage.Content
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("embedding chunks: %w", err))
	}
	if len(vectors) != len(passages) {
		return p.fail(ctx, logger, id,
			fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(passages)))
	}

	if _, err := p.store.DeleteChunks(ctx, id); err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("clearing previous chunks: %w", err))
	}

	chunks := make([]knowledge.Chunk, len(passages))
	for i, passage := range passages {
		chunks[i] = knowledge.Chunk{
			DocumentID: id,
			Content:    passage.Content,
			ChunkIndex: passage.ChunkIndex,
			PageStart:  passage.PageStart,
			PageEnd:    passage.PageEnd,
			SportSlug:  doc.SportSlug,
			Category:   passage.Category,
			TokenCount: int32(passage.TokenCount),
			Embedding:  vectors[i],
		}
		if passage.Technique != "" {
			technique := passage.Technique
			chunks[i].Technique = &technique
		}
	}
	if err := p.store.InsertChunks(ctx, chunks); err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("storing chunks: %w", err))
	}

	if err := p.store.MarkCompleted(ctx, id); err != nil {
		return p.fail(ctx, logger, id, fmt.Errorf("marking completed: %w", err))
	}
	logger.Info("document processed", "chunks", len(chunks))
	return nil
}

// fail records the failure on the document and returns the original error.
// Quota exhaustion is reworded so operators can tell a transient condition
// from a permanent one by reading the stored message.
func (p *Processor) fail(ctx context.Context, logger log.Logger, id uuid.UUID, cause error) error {
	message := cause.Error()
	if errors.Is(cause, embedding.ErrQuotaExhausted) {
		message = "embedding quota or rate limit exhausted, retry later: " + message
	}

	if err := p.store.MarkFailed(ctx, id, knowledge.TruncateError(message)); err != nil {
		logger.Error("recording document failure", "error", err, "cause", cause)
	} else {
		logger.Warn("document processing failed", "error", cause)
	}
	return cause
}
