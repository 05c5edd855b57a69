package retryhttp

import (
	"context"
	"io"
	nethttp "net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onceReader fails if it is read after being exhausted, mimicking a
// single-read stream.
type onceReader struct {
	r        io.Reader
	consumed bool
	reads    int
}

func (o *onceReader) Read(p []byte) (int, error) {
	o.reads++
	n, err := o.r.Read(p)
	if err == io.EOF {
		o.consumed = true
	}
	return n, err
}

func (o *onceReader) Close() error { return nil }

func TestSnapshotReplaysStreamedBody(t *testing.T) {
	payload := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	stream := &onceReader{r: strings.NewReader(payload)}

	req, err := nethttp.NewRequest(nethttp.MethodPost, "https://host/v1/chat/completions", nil)
	require.NoError(t, err)
	req.Body = stream
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")

	snap, err := newSnapshot(req)
	require.NoError(t, err)
	assert.True(t, stream.consumed, "stream drained exactly once at snapshot time")
	readsAfterSnapshot := stream.reads

	// Every replay transmits byte-identical method, headers, and body.
	for i := 0; i < 3; i++ {
		attempt, err := snap.request(context.Background())
		require.NoError(t, err)

		body, err := io.ReadAll(attempt.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, string(body), "replay %d", i)
		assert.Equal(t, nethttp.MethodPost, attempt.Method)
		assert.Equal(t, "Bearer token", attempt.Header.Get("Authorization"))
		assert.Equal(t, int64(len(payload)), attempt.ContentLength)
	}
	assert.Equal(t, readsAfterSnapshot, stream.reads, "original stream not re-read on replay")
}

func TestSnapshotWithoutBody(t *testing.T) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, "https://host/v1/models", nil)
	require.NoError(t, err)

	snap, err := newSnapshot(req)
	require.NoError(t, err)

	attempt, err := snap.request(context.Background())
	require.NoError(t, err)
	assert.Nil(t, attempt.Body)
	assert.Equal(t, "https://host/v1/models", attempt.URL.String())
}

func TestSnapshotHeaderIsolation(t *testing.T) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, "https://host/v1/models", nil)
	require.NoError(t, err)
	req.Header.Set("X-Version", "1")

	snap, err := newSnapshot(req)
	require.NoError(t, err)

	first, err := snap.request(context.Background())
	require.NoError(t, err)
	first.Header.Set("X-Version", "mutated")

	second, err := snap.request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", second.Header.Get("X-Version"), "attempts get independent header clones")
}

func TestSnapshotCarriesHost(t *testing.T) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, "https://host/v1/models", nil)
	require.NoError(t, err)
	req.Host = "override.example.com"

	snap, err := newSnapshot(req)
	require.NoError(t, err)

	attempt, err := snap.request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "override.example.com", attempt.Host)
}

func TestSnapshotAttemptContext(t *testing.T) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, "https://host/v1/models", nil)
	require.NoError(t, err)

	snap, err := newSnapshot(req)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	attempt, err := snap.request(ctx)
	require.NoError(t, err)
	cancel()
	assert.ErrorIs(t, attempt.Context().Err(), context.Canceled)
}
