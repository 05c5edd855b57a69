package config

import (
	"hash/fnv"
	"time"

	"github.com/gaborage/go-retryhttp/retryhttp"
)

// Config is the root configuration for the retrying client.
type Config struct {
	Retry RetryConfig `koanf:"retry"`
	Log   LogConfig   `koanf:"log"`
}

// RetryConfig mirrors retryhttp.Config for loading from files and the
// environment. It is converted to an immutable engine snapshot via Engine.
type RetryConfig struct {
	Enabled                 bool          `koanf:"enabled"`
	MaxRetries              int           `koanf:"max_retries" validate:"gte=0,lte=100"`
	RetryDelay              time.Duration `koanf:"retry_delay" validate:"gte=0"`
	RateLimitDelay          time.Duration `koanf:"rate_limit_delay" validate:"gte=0"`
	MinRetryDelay           time.Duration `koanf:"min_retry_delay" validate:"gte=0"`
	ThinkingTimeout         time.Duration `koanf:"thinking_timeout" validate:"gte=0"`
	EnableThinkingTimeout   bool          `koanf:"enable_thinking_timeout"`
	CheckResponseErrorField bool          `koanf:"check_response_error_field"`
	RetryClientErrors       bool          `koanf:"retry_client_errors"`
	URLPatterns             []string      `koanf:"url_patterns"`
	URLFilterMode           string        `koanf:"url_filter_mode" validate:"omitempty,oneof=include exclude"`
}

// LogConfig controls the logger backing the client.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal disabled"`
	Pretty bool   `koanf:"pretty"`
}

// Engine converts the loaded settings into an engine snapshot. The pattern
// version is derived from the pattern list itself, so the compiled-pattern
// cache is rebuilt exactly when the list changes between loads.
func (c *RetryConfig) Engine() retryhttp.Config {
	return retryhttp.Config{
		Enabled:                 c.Enabled,
		MaxRetries:              c.MaxRetries,
		RetryDelay:              c.RetryDelay,
		RateLimitDelay:          c.RateLimitDelay,
		MinRetryDelay:           c.MinRetryDelay,
		ThinkingTimeout:         c.ThinkingTimeout,
		EnableThinkingTimeout:   c.EnableThinkingTimeout,
		CheckResponseErrorField: c.CheckResponseErrorField,
		RetryClientErrors:       c.RetryClientErrors,
		URLPatterns:             c.URLPatterns,
		URLFilterMode:           retryhttp.FilterMode(c.URLFilterMode),
		PatternVersion:          patternVersion(c.URLPatterns),
	}
}

func patternVersion(patterns []string) uint64 {
	h := fnv.New64a()
	for _, p := range patterns {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
