package retryhttp

import (
	"context"
	"errors"
	"time"
)

// errThinkingTimeout is the cancellation cause stamped when a per-attempt
// thinking timeout fires.
var errThinkingTimeout = errors.New("retryhttp: thinking timeout elapsed")

// attemptScope links the caller-owned external context to one attempt's
// internal cancellation token. Exactly one scope is live at a time; external
// cancellation propagates to the internal context through the context tree,
// and the thinking timeout cancels it independently with a distinguishable
// cause. close must run on every exit path so no timer or context leaks.
type attemptScope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
}

func newAttemptScope(parent context.Context, cfg *Config) *attemptScope {
	ctx, cancel := context.WithCancelCause(parent)
	s := &attemptScope{ctx: ctx, cancel: cancel}
	if cfg.EnableThinkingTimeout && cfg.ThinkingTimeout > 0 {
		s.timer = time.AfterFunc(cfg.ThinkingTimeout, func() {
			cancel(errThinkingTimeout)
		})
	}
	return s
}

// cause returns the internal token's cancellation cause, or nil while live.
// A cause stamped before close is preserved: context.Cause keeps the first one.
func (s *attemptScope) cause() error {
	return context.Cause(s.ctx)
}

// timedOut reports whether the thinking timeout fired for this attempt.
func (s *attemptScope) timedOut() bool {
	return errors.Is(context.Cause(s.ctx), errThinkingTimeout)
}

// close retires the internal token and any pending timeout unconditionally.
func (s *attemptScope) close() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel(context.Canceled)
}

// sleepContext suspends for d or until ctx is cancelled, whichever comes
// first. It returns the cancellation cause when interrupted.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
