package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtsense/courtsense/internal/chunker"
	"github.com/courtsense/courtsense/internal/config"
	"github.com/courtsense/courtsense/internal/embedding"
	"github.com/courtsense/courtsense/internal/knowledge"
	"github.com/courtsense/courtsense/internal/log"
	"github.com/courtsense/courtsense/internal/rag"
)

// app bundles the wired components a command needs. Close releases the
// database pool.
type app struct {
	cfg      *config.Config
	logger   log.Logger
	pool     *pgxpool.Pool
	store    *knowledge.Store
	embedder *embedding.Client
}

// setupApp loads configuration and connects the shared components.
func setupApp(ctx context.Context) (*app, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store, err := knowledge.NewStore(pool, logger.With("component", "store"))
	if err != nil {
		pool.Close()
		return nil, err
	}

	embedder, err := embedding.NewClient(ctx, embedding.Config{
		APIKey:            cfg.GeminiAPIKey,
		Model:             cfg.EmbedderModel,
		Dimension:         cfg.EmbeddingDim,
		BatchSize:         cfg.EmbedBatchSize,
		BatchDelay:        cfg.EmbedBatchDelay,
		MaxRetries:        cfg.EmbedMaxRetries,
		RetryBase:         cfg.EmbedRetryBase,
		RequestsPerMinute: cfg.EmbedRequestsPerMinute,
	}, logger.With("component", "embedder"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		store:    store,
		embedder: embedder,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

// newProcessor wires the ingestion pipeline on top of the shared
// components.
func (a *app) newProcessor() (*rag.Processor, error) {
	splitter := chunker.New(chunker.Config{
		MinTokens:    a.cfg.ChunkMinTokens,
		TargetTokens: a.cfg.ChunkTargetTokens,
		MaxTokens:    a.cfg.ChunkMaxTokens,
	}, nil)

	return rag.NewProcessor(a.store, rag.NewFetcher(nil), splitter, a.embedder,
		a.logger.With("component", "processor"))
}

// newRetriever wires the read path.
func (a *app) newRetriever() *rag.Retriever {
	return rag.NewRetriever(a.store, a.embedder, a.logger.With("component", "retriever"))
}
