package retryhttp

import (
	"context"
	nethttp "net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected int64 sum for %s", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestClientMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	var calls int32
	transport := transportFunc(func(_ *nethttp.Request) (*nethttp.Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return response(500, ""), nil
		}
		return response(200, "ok"), nil
	})

	client := NewBuilder(testLogger()).
		WithConfig(fastConfig()).
		WithTransport(transport).
		WithMeterProvider(provider).
		Build()

	req, _ := nethttp.NewRequest(nethttp.MethodGet, testEndpoint, nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, int64(3), collectSum(t, reader, "retryhttp.attempts"))
	assert.Equal(t, int64(3), collectSum(t, reader, "retryhttp.outcomes"))
}

func TestClientMetricsNoopWithoutProvider(t *testing.T) {
	transport := transportFunc(func(_ *nethttp.Request) (*nethttp.Response, error) {
		return response(200, "ok"), nil
	})

	client := newTestClient(fastConfig(), transport)
	req, _ := nethttp.NewRequest(nethttp.MethodGet, testEndpoint, nil)
	_, err := client.Do(req)
	require.NoError(t, err, "recording against the noop provider must be transparent")
}
