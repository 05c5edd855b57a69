package retryhttp

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
)

// snapshot captures a request's method, URL, headers, and fully-buffered body
// once, so it can be replayed byte-identically across attempts. Streamed
// bodies are drained exactly once at construction time; replay would be
// impossible otherwise.
type snapshot struct {
	method  string
	url     string
	host    string
	header  nethttp.Header
	body    []byte
	hasBody bool
}

func newSnapshot(req *nethttp.Request) (*snapshot, error) {
	s := &snapshot{
		method: req.Method,
		url:    req.URL.String(),
		host:   req.Host,
		header: req.Header.Clone(),
	}

	if req.Body != nil && req.Body != nethttp.NoBody {
		defer req.Body.Close()
		buf, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		s.body = buf
		s.hasBody = true
	}

	return s, nil
}

// request builds a fresh per-attempt http.Request referencing the same
// immutable body buffer. The snapshot itself is never mutated.
func (s *snapshot) request(ctx context.Context) (*nethttp.Request, error) {
	var body io.Reader
	if s.hasBody {
		body = bytes.NewReader(s.body)
	}

	req, err := nethttp.NewRequestWithContext(ctx, s.method, s.url, body)
	if err != nil {
		return nil, err
	}

	req.Header = s.header.Clone()
	req.Host = s.host
	if s.hasBody {
		req.ContentLength = int64(len(s.body))
	}
	return req, nil
}
