package retryhttp

import (
	nethttp "net/http"
	"time"
)

const (
	// DefaultMaxRetries is the default number of retries after the first attempt
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default base delay for general backoff
	DefaultRetryDelay = 1 * time.Second

	// DefaultRateLimitDelay is the default base delay applied to 429 responses
	DefaultRateLimitDelay = 5 * time.Second

	// DefaultMinRetryDelay is the default floor for any computed backoff
	DefaultMinRetryDelay = 500 * time.Millisecond

	// DefaultThinkingTimeout is the default per-attempt timeout when enabled
	DefaultThinkingTimeout = 60 * time.Second
)

// Transport is the wrapped HTTP call. *http.Client satisfies it.
type Transport interface {
	Do(req *nethttp.Request) (*nethttp.Response, error)
}

// FilterMode selects how URLPatterns are interpreted.
type FilterMode string

const (
	// FilterModeInclude retries only URLs matching at least one pattern
	FilterModeInclude FilterMode = "include"
	// FilterModeExclude retries URLs matching none of the patterns
	FilterModeExclude FilterMode = "exclude"
)

// Config holds the retry engine configuration. It is read once at the start
// of each logical call; mid-flight changes do not affect in-flight calls.
type Config struct {
	// Enabled is the master switch; disabled means pure pass-through.
	Enabled bool
	// MaxRetries is the number of retries after the initial attempt (>= 0).
	MaxRetries int
	// RetryDelay is the base delay for general exponential backoff.
	RetryDelay time.Duration
	// RateLimitDelay is the base delay for 429 responses.
	RateLimitDelay time.Duration
	// MinRetryDelay floors every computed backoff delay.
	MinRetryDelay time.Duration
	// ThinkingTimeout bounds a single attempt when EnableThinkingTimeout is set.
	ThinkingTimeout       time.Duration
	EnableThinkingTimeout bool
	// CheckResponseErrorField treats 2xx JSON bodies carrying an error field
	// as retryable failures.
	CheckResponseErrorField bool
	// RetryClientErrors retries 4xx responses other than 429. When false they
	// are terminal on first sight.
	RetryClientErrors bool
	// URLPatterns are regular expressions matched against the request URL.
	URLPatterns []string
	// URLFilterMode is include or exclude; empty behaves as exclude.
	URLFilterMode FilterMode
	// PatternVersion keys the compiled-pattern cache. Bump it whenever
	// URLPatterns change; the compiled set is reused otherwise.
	PatternVersion uint64
}

// DefaultConfig returns a Config with the package defaults and retries enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		RateLimitDelay:        DefaultRateLimitDelay,
		MinRetryDelay:         DefaultMinRetryDelay,
		ThinkingTimeout:       DefaultThinkingTimeout,
		EnableThinkingTimeout: false,
		RetryClientErrors:     true,
	}
}

// NotificationSink receives fire-and-forget retry notifications. Sink panics
// are swallowed by the orchestrator; implementations must not rely on
// blocking the retry loop.
type NotificationSink interface {
	// OnRetry fires before each backoff wait with the upcoming attempt number
	// (1-based), the configured retry budget, and the failure that triggered it.
	OnRetry(attempt, maxRetries int, cause error)
	// OnFinalFailure fires once per logical call that ends in failure.
	// lastResponse is the last HTTP response seen, if any; its body may be closed.
	OnFinalFailure(cause error, lastResponse *nethttp.Response, cfg *Config)
}

// NopSink discards all notifications.
type NopSink struct{}

// OnRetry implements NotificationSink.
func (NopSink) OnRetry(int, int, error) {}

// OnFinalFailure implements NotificationSink.
func (NopSink) OnFinalFailure(error, *nethttp.Response, *Config) {}
