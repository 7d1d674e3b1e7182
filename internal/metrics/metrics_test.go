package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))

	m.ObserveRun("events", "completed", 2*time.Second)
	m.OrderWrite("create")
	m.OrderWrite("create")
	m.FailedOrderResult("abandoned")
	m.SetAnomalyScore("tok-1", 0.7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRuns.WithLabelValues("events", "completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrderWrites.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailedOrderResults.WithLabelValues("abandoned")))
	assert.Equal(t, 0.7, testutil.ToFloat64(m.AnomalyScore.WithLabelValues("tok-1")))

	require.Error(t, New().Register(reg), "duplicate registration must fail")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("bulk", "failed", time.Second)
		m.OrderWrite("skip")
		m.EventSaved("BOUGHT")
		m.Dedup("event")
		m.DetailFetch("ok")
		m.FailedOrderResult("resolved")
		m.SetAnomalyScore("tok", 1)
	})
}
