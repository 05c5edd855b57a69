// Package retryhttp wraps an HTTP transport so that transient failures
// are retried transparently with bounded, jittered exponential backoff,
// while genuine caller cancellation propagates immediately.
//
// Retries
//   - Controlled via Config (MaxRetries, RetryDelay, RateLimitDelay,
//     MinRetryDelay) and an optional per-attempt thinking timeout.
//   - Retries occur on:
//   - Transport errors (network failures)
//   - Per-attempt thinking timeouts
//   - HTTP 429 responses (honoring Retry-After)
//   - HTTP 5xx responses
//   - Other 4xx responses when RetryClientErrors is set
//   - 2xx responses whose JSON body carries an error field, when
//     CheckResponseErrorField is set
//   - Caller cancellation (via the request context) is never retried and is
//     surfaced as a UserAbort error satisfying errors.Is(err, context.Canceled).
//
// Backoff Strategy
//   - General exponential backoff: RetryDelay * 1.2^attempt.
//   - Rate-limited attempts additionally lower-bound the delay with
//     RateLimitDelay * 1.5^attempt and any integer Retry-After header.
//   - The delay is capped at 30 seconds, floored at MinRetryDelay, and a
//     symmetric +/-10% jitter is applied.
//
// Notes
//   - Request bodies are buffered once and replayed byte-identically by
//     rebuilding the http.Request on each attempt.
//   - URL filtering decides per request whether the retry engine applies;
//     filtered requests are delegated to the transport untouched.
//   - The wrapper exposes the *http.Client calling convention
//     (Do(*http.Request)) so it is a drop-in substitute.
package retryhttp
