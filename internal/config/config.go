// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.courtsense/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Embedding: Gemini embedder model, dimensionality, batching and retry policy
//   - Chunking: token window for passage splitting
//   - Retrieval: default result limit and similarity threshold
//
// Sensitive data (passwords, API keys) is masked in MarshalJSON/String and the
// config directory is created with 0750 permissions. Validation is fail-fast
// with sentinel errors checkable via errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the Gemini API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedderModel indicates the embedder model name is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDim indicates the embedding dimensionality is out of range.
	ErrInvalidEmbeddingDim = errors.New("invalid embedding dimension")

	// ErrInvalidBatchSize indicates the embedding batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid embedding batch size")

	// ErrInvalidRetryPolicy indicates the retry/backoff settings are out of range.
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")

	// ErrInvalidChunkWindow indicates the chunk token window is out of range.
	ErrInvalidChunkWindow = errors.New("invalid chunk token window")

	// ErrInvalidRetrieval indicates retrieval defaults are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval settings")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality (Matryoshka Representation
	// Learning). The pgvector schema uses 768; see knowledge.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDimension matches the vector(768) column in db/migrations.
	DefaultEmbeddingDimension = 768

	// DefaultEmbedBatchSize is the number of texts embedded per group. Groups
	// are issued sequentially with DefaultEmbedBatchDelay between them to stay
	// under the requests-per-minute ceiling of the embedding API.
	DefaultEmbedBatchSize = 5

	// DefaultEmbedBatchDelay is the pause between embedding groups.
	DefaultEmbedBatchDelay = 2 * time.Second

	// DefaultEmbedMaxRetries is the maximum retry count on rate-limit rejection.
	DefaultEmbedMaxRetries = 3

	// DefaultEmbedRetryBase is the initial backoff delay; it doubles per retry
	// (10s, 20s, 40s with the default settings).
	DefaultEmbedRetryBase = 10 * time.Second

	// DefaultEmbedRequestsPerMinute caps the steady-state embedding request
	// rate, independent of batch grouping. Kept below the API's published
	// per-minute quota so bursty reprocessing does not trip 429s.
	DefaultEmbedRequestsPerMinute = 60
)

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON; when adding new
// sensitive fields, update MarshalJSON.
type Config struct {
	// Embedding configuration
	GeminiAPIKey    string        `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	EmbedderModel   string        `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDim    int           `mapstructure:"embedding_dim" json:"embedding_dim"`
	EmbedBatchSize  int           `mapstructure:"embed_batch_size" json:"embed_batch_size"`
	EmbedBatchDelay time.Duration `mapstructure:"embed_batch_delay" json:"embed_batch_delay"`
	EmbedMaxRetries int           `mapstructure:"embed_max_retries" json:"embed_max_retries"`
	EmbedRetryBase  time.Duration `mapstructure:"embed_retry_base" json:"embed_retry_base"`

	// EmbedRequestsPerMinute caps the embedding request rate; 0 disables the
	// limiter (batch delays still apply).
	EmbedRequestsPerMinute int `mapstructure:"embed_requests_per_minute" json:"embed_requests_per_minute"`

	// Chunking configuration (approximate token counts)
	ChunkMinTokens    int `mapstructure:"chunk_min_tokens" json:"chunk_min_tokens"`
	ChunkTargetTokens int `mapstructure:"chunk_target_tokens" json:"chunk_target_tokens"`
	ChunkMaxTokens    int `mapstructure:"chunk_max_tokens" json:"chunk_max_tokens"`

	// Retrieval defaults
	RetrievalLimit     int     `mapstructure:"retrieval_limit" json:"retrieval_limit"`
	RetrievalThreshold float64 `mapstructure:"retrieval_threshold" json:"retrieval_threshold"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".courtsense")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dim", DefaultEmbeddingDimension)
	viper.SetDefault("embed_batch_size", DefaultEmbedBatchSize)
	viper.SetDefault("embed_batch_delay", DefaultEmbedBatchDelay)
	viper.SetDefault("embed_max_retries", DefaultEmbedMaxRetries)
	viper.SetDefault("embed_retry_base", DefaultEmbedRetryBase)
	viper.SetDefault("embed_requests_per_minute", DefaultEmbedRequestsPerMinute)

	// Chunking defaults
	viper.SetDefault("chunk_min_tokens", 120)
	viper.SetDefault("chunk_target_tokens", 360)
	viper.SetDefault("chunk_max_tokens", 480)

	// Retrieval defaults
	viper.SetDefault("retrieval_limit", 5)
	viper.SetDefault("retrieval_threshold", 0.3)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "courtsense")
	viper.SetDefault("postgres_password", "courtsense_dev_password")
	viper.SetDefault("postgres_db_name", "courtsense")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Hardcoded keys can't fail to bind; if this panics it's a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("embedder_model", "COURTSENSE_EMBEDDER_MODEL")
	mustBind("postgres_password", "COURTSENSE_POSTGRES_PASSWORD")

	// NOTE: DATABASE_URL is parsed separately in parseDatabaseURL because it
	// expands into several postgres_* fields.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility. This defends against accidental logging, not against
// compromised logs: rotate secrets if logs leak.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - GeminiAPIKey
//   - PostgresPassword
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
