package retryhttp

import (
	"context"
	"io"
	nethttp "net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/gaborage/go-retryhttp/logger"
)

// Client wraps a Transport with the retry engine. It exposes the *http.Client
// calling convention, so it is a drop-in substitute for the wrapped transport.
// The caller-owned cancellation signal is the request context.
type Client struct {
	transport Transport
	log       logger.Logger
	cfg       Config
	filter    *URLFilter
	notifier  NotificationSink
	metrics   *clientMetrics
	callCount int64
}

// NewClient creates a client around http.DefaultClient with default
// configuration and no notifications.
func NewClient(log logger.Logger) *Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the retrying client.
type Builder struct {
	cfg       Config
	log       logger.Logger
	transport Transport
	timeout   time.Duration
	notifier  NotificationSink
	filter    *URLFilter
	meter     metric.MeterProvider
}

// NewBuilder creates a builder with default configuration.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		cfg: DefaultConfig(),
		log: log,
	}
}

// WithConfig replaces the retry configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithTransport sets the wrapped transport. Defaults to an *http.Client.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithTimeout sets the overall timeout of the default transport. Ignored when
// a custom transport is supplied.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithNotifier sets the notification sink. Defaults to NopSink.
func (b *Builder) WithNotifier(sink NotificationSink) *Builder {
	b.notifier = sink
	return b
}

// WithFilter shares a URL filter (and its compiled-pattern cache) across
// clients. A fresh filter is created otherwise.
func (b *Builder) WithFilter(filter *URLFilter) *Builder {
	b.filter = filter
	return b
}

// WithMeterProvider enables metrics against the given provider.
func (b *Builder) WithMeterProvider(provider metric.MeterProvider) *Builder {
	b.meter = provider
	return b
}

// Build creates the client with the configured options.
func (b *Builder) Build() *Client {
	transport := b.transport
	if transport == nil {
		transport = &nethttp.Client{Timeout: b.timeout}
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NopSink{}
	}
	filter := b.filter
	if filter == nil {
		filter = NewURLFilter(b.log)
	}
	return &Client{
		transport: transport,
		log:       b.log,
		cfg:       b.cfg,
		filter:    filter,
		notifier:  notifier,
		metrics:   newClientMetrics(b.meter),
	}
}

// Get issues a GET request through the retry engine.
func (c *Client) Get(ctx context.Context, url string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post issues a POST request through the retry engine.
func (c *Client) Post(ctx context.Context, url, contentType string, body string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// Do performs the request, retrying transient failures per the configuration.
// The request context spans the whole logical call: cancelling it aborts the
// in-flight attempt and any backoff wait, and no further attempt is made.
func (c *Client) Do(req *nethttp.Request) (*nethttp.Response, error) {
	cfg := c.cfg // immutable snapshot for this logical call
	ctx := req.Context()

	if !cfg.Enabled || !c.filter.ShouldRetry(req.URL.String(), &cfg) {
		return c.transport.Do(req)
	}
	if ctx.Err() != nil {
		// Already cancelled before the first attempt: delegate untouched so
		// the transport surfaces the cancellation in its usual shape.
		return c.transport.Do(req)
	}

	snap, err := newSnapshot(req)
	if err != nil {
		return nil, newRetryError(KindNetwork, "failed to buffer request body", 0, err)
	}

	callID := uuid.NewString()
	callNum := atomic.AddInt64(&c.callCount, 1)
	log := c.log.WithFields(map[string]any{
		"call_id":  callID,
		"call_num": callNum,
		"method":   snap.method,
		"url":      snap.url,
	})

	for attempt := 0; ; attempt++ {
		c.metrics.recordAttempt(ctx, attempt)
		log.Debug().Int("attempt", attempt).Msg("Dispatching attempt")

		out := c.attempt(ctx, &cfg, snap)
		c.metrics.recordOutcome(ctx, out)

		if out.success {
			if attempt > 0 {
				log.Info().Int("attempt", attempt).Msg("Request recovered after retry")
			}
			return out.resp, nil
		}

		if out.kind == KindUserAbort {
			c.notifyFinal(out.cause, out.resp, &cfg)
			drainResponse(out.resp)
			log.Debug().Msg("Request aborted by caller")
			return nil, out.cause
		}

		if out.terminal || attempt >= cfg.MaxRetries {
			cause := out.cause
			if !out.terminal {
				cause = &MaxRetriesError{Attempts: attempt + 1, cause: out.cause}
			}
			c.notifyFinal(cause, out.resp, &cfg)
			drainResponse(out.resp)
			log.Error().Err(cause).Int("attempts", attempt+1).Msg("Request failed permanently")
			return nil, cause
		}

		delay := backoffDelay(out, attempt, &cfg)
		drainResponse(out.resp)
		c.notifyRetry(attempt+1, cfg.MaxRetries, out.cause)
		c.metrics.recordBackoff(ctx, out.kind, delay)
		log.Debug().
			Int("next_attempt", attempt+1).
			Dur("delay", delay).
			Str("kind", string(out.kind)).
			Msg("Backing off before retry")

		if err := sleepContext(ctx, delay); err != nil {
			abort := newUserAbortError(err)
			c.notifyFinal(abort, nil, &cfg)
			log.Debug().Msg("Backoff interrupted by caller")
			return nil, abort
		}
	}
}

// attempt runs a single transport invocation inside a fresh attempt scope and
// classifies the result. The scope is retired on every exit path.
func (c *Client) attempt(ctx context.Context, cfg *Config, snap *snapshot) attemptOutcome {
	scope := newAttemptScope(ctx, cfg)
	defer scope.close()

	req, err := snap.request(scope.ctx)
	if err != nil {
		return attemptOutcome{
			kind:  KindNetwork,
			cause: newRetryError(KindNetwork, "failed to build request", 0, err),
		}
	}

	resp, err := c.transport.Do(req)
	return classify(cfg, ctx, scope, resp, err)
}

// notifyRetry invokes the sink, isolating the retry loop from sink panics.
func (c *Client) notifyRetry(attempt, maxRetries int, cause error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug().Interface("panic", r).Msg("Notification sink panicked on retry")
		}
	}()
	c.notifier.OnRetry(attempt, maxRetries, cause)
}

func (c *Client) notifyFinal(cause error, lastResponse *nethttp.Response, cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug().Interface("panic", r).Msg("Notification sink panicked on final failure")
		}
	}()
	c.notifier.OnFinalFailure(cause, lastResponse, cfg)
}

// drainResponse releases a response that will not be returned to the caller
// so the underlying connection can be reused.
func drainResponse(resp *nethttp.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
