package retryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
)

// attemptOutcome is the classified result of a single transport invocation.
// It is produced fresh each attempt and consumed immediately by the
// orchestrator.
type attemptOutcome struct {
	success  bool
	terminal bool
	kind     Kind
	resp     *nethttp.Response
	cause    error
}

// classify inspects a transport outcome and yields a typed verdict, in
// priority order: external cancellation, thinking timeout, other transport
// errors, 429, 5xx, other 4xx, embedded errors in 2xx bodies, success.
// Unknown transport errors are treated as transient.
func classify(cfg *Config, external context.Context, scope *attemptScope, resp *nethttp.Response, err error) attemptOutcome {
	if err != nil {
		switch {
		case external.Err() != nil:
			return attemptOutcome{
				terminal: true,
				kind:     KindUserAbort,
				cause:    newUserAbortError(context.Cause(external)),
			}
		case scope.timedOut():
			return attemptOutcome{
				kind:  KindThinkingTimeout,
				cause: newRetryError(KindThinkingTimeout, "attempt timed out waiting for response", 0, err),
			}
		default:
			return attemptOutcome{
				kind:  KindNetwork,
				cause: newRetryError(KindNetwork, "transport failure", 0, err),
			}
		}
	}

	status := resp.StatusCode
	switch {
	case status == nethttp.StatusTooManyRequests:
		return attemptOutcome{
			kind:  KindRateLimited,
			resp:  resp,
			cause: newRetryError(KindRateLimited, "rate limited by server", status, nil),
		}

	case status >= 500:
		return attemptOutcome{
			kind:  KindServerError,
			resp:  resp,
			cause: newRetryError(KindServerError, "server error response", status, nil),
		}

	case status >= 400:
		return attemptOutcome{
			terminal: !cfg.RetryClientErrors,
			kind:     KindClientError,
			resp:     resp,
			cause:    newRetryError(KindClientError, "client error response", status, nil),
		}
	}

	if cfg.CheckResponseErrorField && status >= 200 && status < 300 {
		embedded, rerr := sniffEmbeddedError(resp)
		if rerr != nil {
			return attemptOutcome{
				kind:  KindNetwork,
				resp:  resp,
				cause: newRetryError(KindNetwork, "failed to read response body", status, rerr),
			}
		}
		if embedded {
			return attemptOutcome{
				kind:  KindEmbeddedError,
				resp:  resp,
				cause: newRetryError(KindEmbeddedError, "response body carried an error field", status, nil),
			}
		}
	}

	return attemptOutcome{success: true, resp: resp}
}

// sniffEmbeddedError buffers the response body, restores it on the response,
// and reports whether the body is JSON carrying a non-trivial error field.
func sniffEmbeddedError(resp *nethttp.Response) (bool, error) {
	if resp.Body == nil {
		return false, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return hasEmbeddedError(body), nil
}

func hasEmbeddedError(body []byte) bool {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}

	raw, ok := payload["error"]
	if !ok {
		return false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return len(s) > 2
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg, ok := obj["message"].(string); ok {
			return msg != ""
		}
		return len(obj) > 0
	}

	return false
}
