package retryhttp

import (
	nethttp "net/http"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-retryhttp/logger"
)

// LogSink forwards retry notifications to a structured logger. Retries are
// logged at warn level, final failures at error level.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a NotificationSink backed by log.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// OnRetry implements NotificationSink.
func (s *LogSink) OnRetry(attempt, maxRetries int, cause error) {
	s.log.Warn().
		Int("attempt", attempt).
		Int("max_retries", maxRetries).
		Err(cause).
		Msg("Retrying request")
}

// OnFinalFailure implements NotificationSink.
func (s *LogSink) OnFinalFailure(cause error, lastResponse *nethttp.Response, _ *Config) {
	event := s.log.Error().Err(cause)
	if lastResponse != nil {
		event = event.Int("status", lastResponse.StatusCode)
	}
	event.Msg("Request failed permanently")
}

// throttledSink rate-limits OnRetry notifications so rapid retry storms do
// not flood the downstream sink. Final failures are always forwarded.
type throttledSink struct {
	sink NotificationSink
	lim  *rate.Limiter
}

// Throttled wraps sink so at most eventsPerSecond OnRetry notifications pass
// through, with the given burst. OnFinalFailure is never dropped.
func Throttled(sink NotificationSink, eventsPerSecond float64, burst int) NotificationSink {
	return &throttledSink{
		sink: sink,
		lim:  rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

func (t *throttledSink) OnRetry(attempt, maxRetries int, cause error) {
	if t.lim.Allow() {
		t.sink.OnRetry(attempt, maxRetries, cause)
	}
}

func (t *throttledSink) OnFinalFailure(cause error, lastResponse *nethttp.Response, cfg *Config) {
	t.sink.OnFinalFailure(cause, lastResponse, cfg)
}
