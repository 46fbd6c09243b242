package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRegistersCoreMetrics(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.Metrics)

	r.Metrics.NodesProjected.WithLabelValues("go").Add(3)
	r.Metrics.TriplesDropped.WithLabelValues("go", "self_reference").Inc()
	r.Metrics.CacheResolves.WithLabelValues("go", CacheHit).Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(r.Metrics.NodesProjected.WithLabelValues("go")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.TriplesDropped.WithLabelValues("go", "self_reference")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.CacheResolves.WithLabelValues("go", CacheHit)))
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r.Handler())
}

func TestCollectorsCoverAllMetrics(t *testing.T) {
	m := NewMetrics()
	assert.Len(t, m.Collectors(), 6)
}
