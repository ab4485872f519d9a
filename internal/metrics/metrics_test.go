package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_CountersIncrement(t *testing.T) {
	r := NewRegistry()

	r.QueriesTotal.WithLabelValues("success").Inc()
	r.CacheHits.Inc()
	r.GateQueueDepth.Set(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.QueriesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.GateQueueDepth))
}
