package retryhttp

import (
	"context"
	"errors"
	"fmt"
)

// Kind categorizes a classified failure.
type Kind string

const (
	KindUserAbort       Kind = "user_abort"
	KindThinkingTimeout Kind = "thinking_timeout"
	KindNetwork         Kind = "network"
	KindRateLimited     Kind = "rate_limited"
	KindServerError     Kind = "server_error"
	KindClientError     Kind = "client_error"
	KindEmbeddedError   Kind = "embedded_error"
)

// RetryError is a classified failure produced by the retry engine.
type RetryError struct {
	kind       Kind
	message    string
	statusCode int
	wrapped    error
}

// Error implements the error interface.
func (e *RetryError) Error() string {
	switch {
	case e.statusCode > 0 && e.wrapped != nil:
		return fmt.Sprintf("%s: %s (status: %d): %v", e.kind, e.message, e.statusCode, e.wrapped)
	case e.statusCode > 0:
		return fmt.Sprintf("%s: %s (status: %d)", e.kind, e.message, e.statusCode)
	case e.wrapped != nil:
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.wrapped)
	default:
		return fmt.Sprintf("%s: %s", e.kind, e.message)
	}
}

// Kind returns the failure category.
func (e *RetryError) Kind() Kind {
	return e.kind
}

// StatusCode returns the HTTP status that produced the failure, or 0 when the
// failure did not come from a response.
func (e *RetryError) StatusCode() int {
	return e.statusCode
}

func (e *RetryError) Unwrap() error {
	return e.wrapped
}

func newRetryError(kind Kind, message string, statusCode int, wrapped error) *RetryError {
	return &RetryError{
		kind:       kind,
		message:    message,
		statusCode: statusCode,
		wrapped:    wrapped,
	}
}

// newUserAbortError wraps the caller's cancellation cause so that the result
// satisfies errors.Is(err, context.Canceled) alongside the taxonomy.
func newUserAbortError(cause error) *RetryError {
	if cause == nil {
		cause = context.Canceled
	}
	return &RetryError{
		kind:    KindUserAbort,
		message: "request aborted by caller",
		wrapped: cause,
	}
}

// MaxRetriesError is surfaced when the retry budget is exhausted. It wraps the
// last classified failure verbatim so callers can inspect the concrete cause.
type MaxRetriesError struct {
	// Attempts is the total number of transport invocations made.
	Attempts int
	cause    error
}

// Error implements the error interface.
func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.cause)
}

func (e *MaxRetriesError) Unwrap() error {
	return e.cause
}

// ErrorKind extracts the failure category from err or any error it wraps.
func ErrorKind(err error) (Kind, bool) {
	var re *RetryError
	if errors.As(err, &re) {
		return re.kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given failure category.
func IsKind(err error, kind Kind) bool {
	k, ok := ErrorKind(err)
	return ok && k == kind
}

// IsUserAbort reports whether err represents caller-initiated cancellation.
func IsUserAbort(err error) bool {
	return IsKind(err, KindUserAbort)
}

// ErrorStatusCode returns the HTTP status carried by err, if any.
func ErrorStatusCode(err error) (int, bool) {
	var re *RetryError
	if errors.As(err, &re) && re.statusCode > 0 {
		return re.statusCode, true
	}
	return 0, false
}
