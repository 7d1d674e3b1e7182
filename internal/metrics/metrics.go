// Package metrics holds the prometheus collectors of the sync engine.
// All methods are safe on a nil *Metrics so services can run without them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orderbackup"

type Metrics struct {
	SyncRuns           *prometheus.CounterVec
	SyncDuration       *prometheus.HistogramVec
	OrderWrites        *prometheus.CounterVec
	EventsSaved        *prometheus.CounterVec
	Deduplicated       *prometheus.CounterVec
	DetailFetches      *prometheus.CounterVec
	FailedOrderResults *prometheus.CounterVec
	AnomalyScore       *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by strategy and final status.",
		}, []string{"strategy", "status"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"strategy"}),
		OrderWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "writes_total",
			Help:      "Order protection outcomes by action.",
		}, []string{"action"}),
		EventsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "saved_total",
			Help:      "Audit events stored, by event type.",
		}, []string{"type"}),
		Deduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "skipped_total",
			Help:      "Items rejected by the deduplication gate.",
		}, []string{"kind"}),
		DetailFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "detail_fetches_total",
			Help:      "Order detail fetch outcomes.",
		}, []string{"result"}),
		FailedOrderResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "failed_orders",
			Name:      "results_total",
			Help:      "Failed-order retry outcomes.",
		}, []string{"result"}),
		AnomalyScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitoring",
			Name:      "anomaly_score",
			Help:      "Latest data health anomaly score per token.",
		}, []string{"token_id"}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		m.SyncRuns, m.SyncDuration, m.OrderWrites, m.EventsSaved,
		m.Deduplicated, m.DetailFetches, m.FailedOrderResults, m.AnomalyScore,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveRun(strategy, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(strategy, status).Inc()
	m.SyncDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

func (m *Metrics) OrderWrite(action string) {
	if m == nil {
		return
	}
	m.OrderWrites.WithLabelValues(action).Inc()
}

func (m *Metrics) EventSaved(eventType string) {
	if m == nil {
		return
	}
	m.EventsSaved.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Dedup(kind string) {
	if m == nil {
		return
	}
	m.Deduplicated.WithLabelValues(kind).Inc()
}

func (m *Metrics) DetailFetch(result string) {
	if m == nil {
		return
	}
	m.DetailFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) FailedOrderResult(result string) {
	if m == nil {
		return
	}
	m.FailedOrderResults.WithLabelValues(result).Inc()
}

func (m *Metrics) SetAnomalyScore(tokenID string, score float64) {
	if m == nil {
		return
	}
	m.AnomalyScore.WithLabelValues(tokenID).Set(score)
}
