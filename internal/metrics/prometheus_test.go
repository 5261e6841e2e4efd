package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	rec.IncCounter("processed", map[string]string{"rail": "crypto", "network": "Bitcoin"})
	rec.IncCounter("processed", map[string]string{"rail": "crypto", "network": "Bitcoin"})
	rec.IncCounter("processed", map[string]string{"rail": "card"})
	rec.ObserveLatency("process", 25*time.Millisecond, map[string]string{"rail": "card"})

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.counters.WithLabelValues("processed", "crypto", "Bitcoin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.counters.WithLabelValues("processed", "card", "")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.histogram))
}

func TestPrometheusRecorderDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)
	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err)
}
