package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// maxBackoffCeiling mirrors the engine's hard delay cap; a floor above it
// could never be honored.
const maxBackoffCeiling = 30 * time.Second

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural constraints (via struct tags) and the semantic
// relationships between retry settings.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if err := validateRetry(&cfg.Retry); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}

	return nil
}

func validateRetry(cfg *RetryConfig) error {
	if cfg.MinRetryDelay > maxBackoffCeiling {
		return fmt.Errorf("min_retry_delay %v exceeds the %v backoff ceiling", cfg.MinRetryDelay, maxBackoffCeiling)
	}

	if cfg.EnableThinkingTimeout && cfg.ThinkingTimeout <= 0 {
		return fmt.Errorf("thinking_timeout must be positive when enable_thinking_timeout is set")
	}

	return nil
}
