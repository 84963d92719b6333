// Package embedding wraps the Gemini embedding API with the batching,
// pacing and retry behavior the ingestion pipeline depends on.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/courtsense/courtsense/internal/log"
)

// Sentinel errors returned by the client.
var (
	// ErrQuotaExhausted indicates the API kept returning rate-limit errors
	// after all retries. Callers should surface it, not retry further.
	ErrQuotaExhausted = errors.New("embedding quota exhausted after retries")

	// ErrEmptyInput indicates a request with no text to embed.
	ErrEmptyInput = errors.New("no text to embed")

	// ErrDimensionMismatch indicates the API returned a vector of an
	// unexpected size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// modelCaller is the slice of the genai client the embedding client uses.
type modelCaller interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// genaiModels adapts *genai.Client to modelCaller.
type genaiModels struct {
	client *genai.Client
}

func (g genaiModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return g.client.Models.EmbedContent(ctx, model, contents, config)
}

// Config controls the embedding client.
type Config struct {
	APIKey string
	Model  string

	// Dimension is the requested output dimensionality.
	Dimension int

	// BatchSize is how many texts go into one API request.
	BatchSize int

	// BatchDelay is the pause between consecutive API requests within a
	// batch run, independent of rate limiting.
	BatchDelay time.Duration

	// MaxRetries bounds retries of a rate-limited request. The delay before
	// retry n is RetryBase * 2^n.
	MaxRetries int
	RetryBase  time.Duration

	// RequestsPerMinute caps the steady-state request rate. Zero disables
	// the limiter.
	RequestsPerMinute int
}

// Client embeds text via the Gemini API. Safe for concurrent use.
type Client struct {
	models  modelCaller
	logger  log.Logger
	limiter *rate.Limiter

	model      string
	dim        int
	batchSize  int
	batchDelay time.Duration
	maxRetries int
	retryBase  time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client backed by the real Gemini API.
func NewClient(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newClient(genaiModels{client: gc}, cfg, logger)
}

func newClient(models modelCaller, cfg Config, logger log.Logger) (*Client, error) {
	if models == nil {
		return nil, errors.New("model caller is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("dimension must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		models:     models,
		logger:     logger,
		limiter:    limiter,
		model:      cfg.Model,
		dim:        cfg.Dimension,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		sleep:      sleepCtx,
	}, nil
}

// Dimension returns the output dimensionality the client requests.
func (c *Client) Dimension() int { return c.dim }

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request-sized groups, preserving input order.
// Rate-limited requests are retried with exponential backoff; once retries
// are exhausted the batch fails with ErrQuotaExhausted. Any other API error
// fails the batch immediately.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrEmptyInput, i)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		if start > 0 && c.batchDelay > 0 {
			if err := c.sleep(ctx, c.batchDelay); err != nil {
				return nil, err
			}
		}

		group, err := c.embedGroup(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, group...)
	}
	return vectors, nil
}

// embedGroup performs one API request with retry on rate limiting.
func (c *Client) embedGroup(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	dim := int32(c.dim)
	config := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.models.EmbedContent(ctx, c.model, contents, config)
		if err == nil {
			return c.extractVectors(resp, len(texts))
		}
		if !isRateLimited(err) {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		if attempt >= c.maxRetries {
			c.logger.Warn("embedding retries exhausted",
				"attempts", attempt+1,
				"model", c.model)
			return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, truncate(err.Error(), 200))
		}

		delay := c.retryBase << attempt
		c.logger.Warn("embedding rate limited, backing off",
			"attempt", attempt+1,
			"delay", delay.String())
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) extractVectors(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("embed content returned %d embeddings, want %d", got, want)
	}
	vectors := make([][]float32, want)
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != c.dim {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, got, c.dim)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// isRateLimited reports whether err is an HTTP 429 from the API.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
