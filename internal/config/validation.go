package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Validate checks configuration values. Returns sentinel errors usable
// with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini provider", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty for the ollama provider", ErrInvalidProvider)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOllama)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.BielikModel == "" {
		return fmt.Errorf("%w: bielik_model cannot be empty", ErrInvalidModelName)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPostgres)
	}

	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: ssl mode %q is not one of %v",
			ErrInvalidPostgres, c.PostgresSSLMode, validSSLModes)
	}

	if c.ServerAddr == "" || !strings.Contains(c.ServerAddr, ":") {
		return fmt.Errorf("%w: %q must be host:port or :port", ErrInvalidServerAddr, c.ServerAddr)
	}

	if c.MaxHistoryMessages <= 0 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("max_history_messages must be between 1 and %d, got %d",
			MaxAllowedHistoryMessages, c.MaxHistoryMessages)
	}

	return nil
}
