package retryhttp

import (
	crand "crypto/rand"
	"math"
	"math/big"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// backoffCeiling caps every computed delay, Retry-After included.
	backoffCeiling = 30 * time.Second

	// generalGrowth is the growth factor for the general backoff family.
	generalGrowth = 1.2

	// rateLimitGrowth is the growth factor applied to 429 responses.
	rateLimitGrowth = 1.5

	// jitterFraction is the symmetric jitter band applied to the final delay.
	jitterFraction = 0.1
)

// backoffDelay computes the wait before the next attempt. Each applicable
// signal (Retry-After header, rate-limit family, general family) acts as a
// lower bound rather than an addend, so the strongest signal dominates
// without ever shrinking the delay a weaker one would have produced.
// attempt is the zero-indexed attempt number.
func backoffDelay(out attemptOutcome, attempt int, cfg *Config) time.Duration {
	var delay time.Duration

	if out.resp != nil {
		if ra := retryAfter(out.resp.Header); ra > 0 {
			if ra > backoffCeiling {
				ra = backoffCeiling
			}
			delay = max(delay, ra)
		}
	}

	if out.kind == KindRateLimited {
		delay = max(delay, scaledDelay(cfg.RateLimitDelay, rateLimitGrowth, attempt))
	}

	delay = max(delay, scaledDelay(cfg.RetryDelay, generalGrowth, attempt))

	if delay > backoffCeiling {
		delay = backoffCeiling
	}
	if delay < cfg.MinRetryDelay {
		delay = cfg.MinRetryDelay
	}

	delay = jitter(delay)
	if delay < 0 {
		delay = 0
	}
	return delay
}

// scaledDelay returns base * growth^attempt, saturating at the ceiling to
// avoid float overflow on large attempt counts.
func scaledDelay(base time.Duration, growth float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	scaled := float64(base) * math.Pow(growth, float64(attempt))
	if scaled > float64(backoffCeiling) {
		return backoffCeiling
	}
	return time.Duration(scaled)
}

// retryAfter parses the integer-seconds form of the Retry-After header.
// The HTTP-date form is ignored.
func retryAfter(h nethttp.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// jitter multiplies d by a uniform random factor in [1-jitterFraction,
// 1+jitterFraction]. On RNG failure the unjittered delay is returned.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	// One part per million across the 2*jitterFraction band.
	span := int64(2 * jitterFraction * 1e6)
	n, err := crand.Int(crand.Reader, big.NewInt(span+1))
	if err != nil {
		return d
	}
	factor := 1 - jitterFraction + float64(n.Int64())/1e6
	return time.Duration(float64(d) * factor)
}
