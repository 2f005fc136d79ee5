package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLatencySnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPlatformMetrics(reg)
	for i := 0; i < 10; i++ {
		m.ObserveStoreLatency("query", 0.004)
	}
	m.ObserveStoreLatency("create", 0.2)

	snap := StoreLatency(reg)
	require.Contains(t, snap, "query")
	require.Contains(t, snap, "create")
	assert.NotContains(t, snap, "get")

	assert.Equal(t, int64(10), snap["query"].Count)
	// 4ms falls in the (0.0, 0.005] bucket.
	assert.Greater(t, snap["query"].P95Ms, 0.0)
	assert.LessOrEqual(t, snap["query"].P95Ms, 5.0)

	assert.Equal(t, int64(1), snap["create"].Count)
	assert.Greater(t, snap["create"].P50Ms, 100.0)
	assert.LessOrEqual(t, snap["create"].P50Ms, 250.0)
}

func TestStoreLatencyEmptyRegistry(t *testing.T) {
	assert.Empty(t, StoreLatency(prometheus.NewRegistry()))
}

func TestHistogramQuantile(t *testing.T) {
	uppers := []float64{0.1, 0.5, 1}
	cum := map[float64]uint64{0.1: 0, 0.5: 10, 1: 10}
	assert.InDelta(t, 0.3, histogramQuantile(0.5, 10, uppers, cum), 1e-9)
	assert.Equal(t, 0.0, histogramQuantile(0.5, 0, uppers, cum))
}
