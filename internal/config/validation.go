package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider validation (empty means gemini)
	provider := c.Provider
	if provider == "" {
		provider = ProviderGemini
	}
	if !slices.Contains([]string{ProviderGemini, ProviderOllama, ProviderOpenAI}, provider) {
		return fmt.Errorf("%w: %q is not supported, must be one of: gemini, ollama, openai",
			ErrInvalidProvider, c.Provider)
	}

	// 2. API key validation per provider (keys are read directly by the
	// Genkit plugins, so presence is all we can check here)
	switch provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty when provider is ollama",
				ErrInvalidOllamaHost)
		}
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 3. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml",
			ErrInvalidPostgresPassword)
	}

	// Warn if using default dev password (but don't block - user might be in dev)
	if c.PostgresPassword == "beacon_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v\n"+
			"Note: 'allow' and 'prefer' modes are deprecated (vulnerable to MITM attacks)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 4. Corrections overlay validation
	if c.KnowledgeBasePath == "" {
		return fmt.Errorf("%w: knowledge_base_path cannot be empty", ErrInvalidKnowledgeBasePath)
	}

	// 5. Retrieval configuration validation
	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.Retrieval.TopK)
	}

	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f", ErrInvalidMinScore, c.Retrieval.MinScore)
	}

	if c.Retrieval.CitationThreshold < 0 || c.Retrieval.CitationThreshold > 1 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f",
			ErrInvalidCitationThreshold, c.Retrieval.CitationThreshold)
	}

	if c.Retrieval.SearchTimeoutSeconds < 1 || c.Retrieval.SearchTimeoutSeconds > 120 {
		return fmt.Errorf("%w: must be between 1 and 120 seconds, got %d",
			ErrInvalidSearchTimeout, c.Retrieval.SearchTimeoutSeconds)
	}

	// 6. Ingest configuration validation
	if c.Ingest.BatchSize < 1 || c.Ingest.BatchSize > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d",
			ErrInvalidIngestBatchSize, c.Ingest.BatchSize)
	}

	if c.Ingest.Workers < 1 || c.Ingest.Workers > 32 {
		return fmt.Errorf("%w: must be between 1 and 32, got %d",
			ErrInvalidIngestWorkers, c.Ingest.Workers)
	}

	if c.Ingest.MaxRetries < 0 || c.Ingest.MaxRetries > 10 {
		return fmt.Errorf("%w: must be between 0 and 10, got %d",
			ErrInvalidIngestMaxRetries, c.Ingest.MaxRetries)
	}

	if c.Ingest.RateLimit <= 0 {
		return fmt.Errorf("%w: must be positive, got %.2f",
			ErrInvalidIngestRateLimit, c.Ingest.RateLimit)
	}

	return nil
}
