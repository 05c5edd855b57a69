package retryhttp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/gaborage/go-retryhttp"

// clientMetrics holds the engine's OpenTelemetry instruments. Recording is a
// no-op unless the caller installs a real meter provider.
type clientMetrics struct {
	attempts metric.Int64Counter
	outcomes metric.Int64Counter
	backoff  metric.Float64Histogram
}

func newClientMetrics(provider metric.MeterProvider) *clientMetrics {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	attempts, _ := meter.Int64Counter(
		"retryhttp.attempts",
		metric.WithDescription("Transport invocations, including the first attempt"),
	)
	outcomes, _ := meter.Int64Counter(
		"retryhttp.outcomes",
		metric.WithDescription("Classified attempt outcomes by kind"),
	)
	backoff, _ := meter.Float64Histogram(
		"retryhttp.backoff.delay",
		metric.WithDescription("Backoff delay before a retry"),
		metric.WithUnit("ms"),
	)

	return &clientMetrics{
		attempts: attempts,
		outcomes: outcomes,
		backoff:  backoff,
	}
}

func (m *clientMetrics) recordAttempt(ctx context.Context, attempt int) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("attempt", attempt),
	))
}

func (m *clientMetrics) recordOutcome(ctx context.Context, out attemptOutcome) {
	kind := "success"
	if !out.success {
		kind = string(out.kind)
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

func (m *clientMetrics) recordBackoff(ctx context.Context, kind Kind, delay time.Duration) {
	m.backoff.Record(ctx, float64(delay)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("kind", string(kind)),
	))
}
