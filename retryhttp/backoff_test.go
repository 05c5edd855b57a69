package retryhttp

import (
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testBackoffConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = 100 * time.Millisecond
	cfg.RateLimitDelay = 1 * time.Second
	cfg.MinRetryDelay = 50 * time.Millisecond
	return cfg
}

func rateLimitedOutcome(headers nethttp.Header) attemptOutcome {
	return attemptOutcome{
		kind: KindRateLimited,
		resp: &nethttp.Response{StatusCode: nethttp.StatusTooManyRequests, Header: headers},
	}
}

func serverErrorOutcome() attemptOutcome {
	return attemptOutcome{
		kind: KindServerError,
		resp: &nethttp.Response{StatusCode: nethttp.StatusInternalServerError, Header: nethttp.Header{}},
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	cfg := testBackoffConfig()

	ceiling := float64(backoffCeiling)
	for attempt := 0; attempt < 40; attempt++ {
		d := backoffDelay(serverErrorOutcome(), attempt, &cfg)
		assert.GreaterOrEqual(t, d, time.Duration(float64(cfg.MinRetryDelay)*(1-jitterFraction)))
		assert.LessOrEqual(t, d, time.Duration(ceiling*(1+jitterFraction)))
	}
}

func TestBackoffDelayMonotonicModuloJitter(t *testing.T) {
	cfg := testBackoffConfig()

	// Compare the deterministic pre-jitter values; jitter is +/-10%.
	prev := time.Duration(0)
	for attempt := 0; attempt < 30; attempt++ {
		d := scaledDelay(cfg.RetryDelay, generalGrowth, attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, backoffCeiling, prev, "growth saturates at the ceiling")
}

func TestBackoffDelayRetryAfterHeader(t *testing.T) {
	cfg := testBackoffConfig()

	t.Run("integer seconds acts as a lower bound", func(t *testing.T) {
		h := nethttp.Header{}
		h.Set("Retry-After", "2")
		for attempt := 0; attempt < 3; attempt++ {
			d := backoffDelay(rateLimitedOutcome(h), attempt, &cfg)
			assert.GreaterOrEqual(t, d, time.Duration(float64(2*time.Second)*(1-jitterFraction)))
		}
	})

	t.Run("clamped to the ceiling", func(t *testing.T) {
		h := nethttp.Header{}
		h.Set("Retry-After", "3600")
		d := backoffDelay(rateLimitedOutcome(h), 0, &cfg)
		ceiling := float64(backoffCeiling)
		assert.LessOrEqual(t, d, time.Duration(ceiling*(1+jitterFraction)))
	})

	t.Run("malformed values are ignored", func(t *testing.T) {
		for _, v := range []string{"", "soon", "-5", "2.5", "Tue, 29 Oct 2024 16:56:32 GMT"} {
			h := nethttp.Header{}
			h.Set("Retry-After", v)
			assert.Equal(t, time.Duration(0), retryAfter(h), "value %q", v)
		}
	})
}

func TestBackoffDelayRateLimitFamilyDominates(t *testing.T) {
	cfg := testBackoffConfig()

	// At attempt 2 the rate-limit family (1s * 1.5^2 = 2.25s) exceeds the
	// general family (100ms * 1.2^2 = 144ms) and must win.
	d := backoffDelay(rateLimitedOutcome(nethttp.Header{}), 2, &cfg)
	expected := time.Duration(float64(cfg.RateLimitDelay) * 1.5 * 1.5)
	assert.GreaterOrEqual(t, d, time.Duration(float64(expected)*(1-jitterFraction)))
	assert.LessOrEqual(t, d, time.Duration(float64(expected)*(1+jitterFraction)))
}

func TestBackoffDelayMinFloor(t *testing.T) {
	cfg := testBackoffConfig()
	cfg.RetryDelay = 1 * time.Millisecond
	cfg.MinRetryDelay = 200 * time.Millisecond

	d := backoffDelay(serverErrorOutcome(), 0, &cfg)
	assert.GreaterOrEqual(t, d, time.Duration(float64(cfg.MinRetryDelay)*(1-jitterFraction)))
}

func TestScaledDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), scaledDelay(0, generalGrowth, 5))
	assert.Equal(t, 100*time.Millisecond, scaledDelay(100*time.Millisecond, generalGrowth, 0))
	assert.Equal(t, backoffCeiling, scaledDelay(time.Second, 2.0, 60), "saturates instead of overflowing")
}

func TestJitterStaysWithinBand(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 200; i++ {
		d := jitter(base)
		assert.GreaterOrEqual(t, d, time.Duration(float64(base)*(1-jitterFraction)))
		assert.LessOrEqual(t, d, time.Duration(float64(base)*(1+jitterFraction)))
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
