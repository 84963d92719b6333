package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL sslmode values accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for correctness. It is called by Load
// immediately after unmarshalling (fail-fast) and may be called directly on
// hand-built configs in tests.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}

	// gemini-embedding-001 supports output dimensionality from 128 to 3072.
	if c.EmbeddingDim < 128 || c.EmbeddingDim > 3072 {
		return fmt.Errorf("%w: embedding_dim %d out of range [128, 3072]", ErrInvalidEmbeddingDim, c.EmbeddingDim)
	}

	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > 100 {
		return fmt.Errorf("%w: embed_batch_size %d out of range [1, 100]", ErrInvalidBatchSize, c.EmbedBatchSize)
	}
	if c.EmbedBatchDelay < 0 {
		return fmt.Errorf("%w: embed_batch_delay must not be negative", ErrInvalidBatchSize)
	}

	if c.EmbedMaxRetries < 0 || c.EmbedMaxRetries > 10 {
		return fmt.Errorf("%w: embed_max_retries %d out of range [0, 10]", ErrInvalidRetryPolicy, c.EmbedMaxRetries)
	}
	if c.EmbedRetryBase <= 0 {
		return fmt.Errorf("%w: embed_retry_base must be positive", ErrInvalidRetryPolicy)
	}
	if c.EmbedRequestsPerMinute < 0 {
		return fmt.Errorf("%w: embed_requests_per_minute must not be negative", ErrInvalidRetryPolicy)
	}

	if c.ChunkMinTokens < 1 {
		return fmt.Errorf("%w: chunk_min_tokens must be positive", ErrInvalidChunkWindow)
	}
	if c.ChunkTargetTokens < c.ChunkMinTokens {
		return fmt.Errorf("%w: chunk_target_tokens %d below chunk_min_tokens %d",
			ErrInvalidChunkWindow, c.ChunkTargetTokens, c.ChunkMinTokens)
	}
	if c.ChunkMaxTokens < c.ChunkTargetTokens {
		return fmt.Errorf("%w: chunk_max_tokens %d below chunk_target_tokens %d",
			ErrInvalidChunkWindow, c.ChunkMaxTokens, c.ChunkTargetTokens)
	}

	if c.RetrievalLimit < 1 || c.RetrievalLimit > 100 {
		return fmt.Errorf("%w: retrieval_limit %d out of range [1, 100]", ErrInvalidRetrieval, c.RetrievalLimit)
	}
	if c.RetrievalThreshold < 0 || c.RetrievalThreshold >= 1 {
		return fmt.Errorf("%w: retrieval_threshold %.2f out of range [0, 1)", ErrInvalidRetrieval, c.RetrievalThreshold)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d out of range [1, 65535]", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}
