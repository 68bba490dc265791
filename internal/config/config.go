// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.beacon/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: Embedding provider and model selection
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: Search depth, score floors, citation threshold
//   - Ingest: Batch sizing, worker count, retry policy
//   - Observability: Datadog APM tracing (see observability.go)
//
// Security: Sensitive data (passwords) are never logged; config directory uses 0750 permissions.
// Validation: Comprehensive range checks in validation.go with clear error messages.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidTopK indicates the retrieval top_k value is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidMinScore indicates the retrieval minimum score is out of range.
	ErrInvalidMinScore = errors.New("invalid retrieval min_score")

	// ErrInvalidCitationThreshold indicates the citation threshold is out of range.
	ErrInvalidCitationThreshold = errors.New("invalid citation threshold")

	// ErrInvalidSearchTimeout indicates the search timeout is out of range.
	ErrInvalidSearchTimeout = errors.New("invalid search timeout")

	// ErrInvalidKnowledgeBasePath indicates the corrections file path is invalid.
	ErrInvalidKnowledgeBasePath = errors.New("invalid knowledge base path")

	// ErrInvalidIngestBatchSize indicates the ingest batch size is out of range.
	ErrInvalidIngestBatchSize = errors.New("invalid ingest batch size")

	// ErrInvalidIngestWorkers indicates the ingest worker count is out of range.
	ErrInvalidIngestWorkers = errors.New("invalid ingest workers")

	// ErrInvalidIngestMaxRetries indicates the ingest retry count is out of range.
	ErrInvalidIngestMaxRetries = errors.New("invalid ingest max retries")

	// ErrInvalidIngestRateLimit indicates the embedding rate limit is out of range.
	ErrInvalidIngestRateLimit = errors.New("invalid ingest rate limit")
)

// DefaultGeminiEmbedderModel is the default Gemini embedder model.
// gemini-embedding-001 outputs 3072 dimensions by default, but supports
// truncation to 768 via OutputDimensionality (Matryoshka Representation Learning).
// Our pgvector schema uses 768 dimensions; see the chunks table migration.
const DefaultGeminiEmbedderModel = "gemini-embedding-001"

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// RetrievalConfig holds search and context assembly settings.
type RetrievalConfig struct {
	// TopK is the number of chunks fetched per vector search.
	TopK int `mapstructure:"top_k" json:"top_k"`
	// MinScore is the similarity floor for including a chunk in context.
	MinScore float64 `mapstructure:"min_score" json:"min_score"`
	// CitationThreshold is the similarity floor for listing a source citation.
	CitationThreshold float64 `mapstructure:"citation_threshold" json:"citation_threshold"`
	// SearchTimeoutSeconds bounds a single vector search round trip.
	SearchTimeoutSeconds int `mapstructure:"search_timeout_seconds" json:"search_timeout_seconds"`
}

// IngestConfig holds document ingestion settings.
type IngestConfig struct {
	// BatchSize is the number of chunks embedded and upserted per call.
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`
	// Workers bounds concurrent file preparation and batch upserts.
	Workers int `mapstructure:"workers" json:"workers"`
	// MaxRetries is the number of attempts per batch before recording a failure.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`
	// RateLimit is the maximum embedding calls per second across workers.
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Embedding provider configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "gemini" (default), "ollama", "openai"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Corrections overlay: JSON file of human-reviewed answer corrections
	KnowledgeBasePath string `mapstructure:"knowledge_base_path" json:"knowledge_base_path"`

	// Retrieval configuration
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`

	// Ingest configuration
	Ingest IngestConfig `mapstructure:"ingest" json:"ingest"`

	// Observability configuration (see observability.go for type definition)
	Datadog DatadogConfig `mapstructure:"datadog" json:"datadog"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.beacon/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".beacon")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	// Set default values
	setDefaults()

	// Bind environment variables
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding provider defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (local development database)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "beacon")
	viper.SetDefault("postgres_password", "beacon_dev_password")
	viper.SetDefault("postgres_db_name", "beacon")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Corrections overlay defaults
	viper.SetDefault("knowledge_base_path", "data/knowledge_base.json")

	// Retrieval defaults
	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.min_score", 0.5)
	viper.SetDefault("retrieval.citation_threshold", 0.65)
	viper.SetDefault("retrieval.search_timeout_seconds", 10)

	// Ingest defaults
	viper.SetDefault("ingest.batch_size", 100)
	viper.SetDefault("ingest.workers", 4)
	viper.SetDefault("ingest.max_retries", 3)
	viper.SetDefault("ingest.rate_limit", 2.0)

	// Datadog defaults
	viper.SetDefault("datadog.agent_host", "localhost:4318")
	viper.SetDefault("datadog.environment", "dev")
	viper.SetDefault("datadog.service_name", "beacon")
}

// bindEnvVariables binds sensitive environment variables explicitly.
// Only 1 environment variable for secrets:
//  1. DD_API_KEY - Datadog API key (optional, for observability)
//
// GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit
// plugins, not via Viper; Validate() checks their presence based on
// the selected provider.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Datadog API key (optional, for observability)
	mustBind("datadog.api_key", "DD_API_KEY")

	// Embedding provider overrides
	mustBind("provider", "BEACON_PROVIDER")
	mustBind("embedder_model", "BEACON_EMBEDDER_MODEL")
	mustBind("ollama_host", "BEACON_OLLAMA_HOST")

	// Corrections overlay path override
	mustBind("knowledge_base_path", "BEACON_KNOWLEDGE_BASE")
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full-width blocks U+2588) to avoid substring matching
// Previous attempts:
// - "****" failed: passwords with "*" leaked
// - "[REDACTED]" failed: passwords with "A", "D", "E", etc. leaked
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
// For longer secrets, shows partial chars with unique separator.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	// Fully mask short secrets to prevent substring matching attacks
	// Example attack: input "00***" → output "00******" contains "00***"
	if len(s) <= 8 {
		return maskedValue
	}
	// For longer secrets, show first/last 2 chars for debug utility
	// Example: "my_long_secret_key_123" → "my<████████>23"
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - Datadog.APIKey (via DatadogConfig.MarshalJSON)
//
// When adding new sensitive fields, update this method or the nested struct's MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullEmbedderName returns the provider-qualified embedder name for Genkit.
// Examples: "googleai/gemini-embedding-001", "ollama/nomic-embed-text".
// If EmbedderModel already contains a "/", it is returned as-is.
func (c *Config) FullEmbedderName() string {
	if strings.Contains(c.EmbedderModel, "/") {
		return c.EmbedderModel
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.EmbedderModel
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.EmbedderModel
	default:
		return ProviderGoogleAI + "/" + c.EmbedderModel
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
