package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbackup/internal/models"
	"orderbackup/internal/notify"
	"orderbackup/internal/payload"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (n *recordingNotifier) Notify(_ context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func bulkBatch(total, missing int) []BatchRecord {
	batch := make([]BatchRecord, 0, total)
	for i := 0; i < total; i++ {
		doc := checkoutForm(fmt.Sprintf("cf-%d", i), "r1", "BOUGHT")
		if i < missing {
			delete(doc, "buyer")
		}
		batch = append(batch, BatchRecord{Source: SourceBulkFeed, OrderID: fmt.Sprintf("cf-%d", i), Order: payload.Detect(doc)})
	}
	return batch
}

func countPrefix(anomalies []string, prefix string) int {
	n := 0
	for _, a := range anomalies {
		if strings.HasPrefix(a, prefix) {
			n++
		}
	}
	return n
}

func TestDetectDataAnomaliesMissingThresholds(t *testing.T) {
	s := &MonitoringService{}

	critical := s.DetectDataAnomalies(bulkBatch(100, 20))
	assert.True(t, HasCritical(critical))
	assert.Contains(t, critical, "critical: 20.0% of records have missing data")

	warning := s.DetectDataAnomalies(bulkBatch(100, 19))
	assert.False(t, HasCritical(warning))
	assert.Equal(t, 1, countPrefix(warning, AnomalyWarningPrefix))

	clean := s.DetectDataAnomalies(bulkBatch(100, 10))
	assert.Empty(t, clean)
}

func TestDetectDataAnomaliesMalformedAndDuplicates(t *testing.T) {
	s := &MonitoringService{}

	batch := make([]BatchRecord, 0, 20)
	for i := 0; i < 20; i++ {
		rec := BatchRecord{
			Source:    SourceEventFeed,
			EventID:   fmt.Sprintf("ev-%d", i),
			EventType: "BOUGHT",
			OrderID:   "cf-1",
			Order:     payload.Detect(eventFeedOrder("cf-1", "r1")),
		}
		if i < 2 {
			rec.EventType = ""
		}
		if i >= 17 {
			rec.EventID = "ev-dup"
		}
		batch = append(batch, rec)
	}

	anomalies := s.DetectDataAnomalies(batch)
	assert.Contains(t, anomalies, "critical: 10.0% of records are malformed")
	assert.Contains(t, anomalies, "warning: 2 duplicate records across 1 keys")
	// Events for one order are expected; diversity applies to bulk listings only.
	for _, a := range anomalies {
		assert.NotContains(t, a, "diversity")
	}
}

func TestDetectDataAnomaliesLowDiversity(t *testing.T) {
	s := &MonitoringService{}
	batch := make([]BatchRecord, 0, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("cf-%d", i%3)
		batch = append(batch, BatchRecord{Source: SourceBulkFeed, OrderID: id, Order: payload.Detect(checkoutForm(id, "r1", "BOUGHT"))})
	}
	anomalies := s.DetectDataAnomalies(batch)
	assert.Contains(t, anomalies, "warning: low order diversity: 3 unique of 10 records")
	assert.False(t, HasCritical(anomalies))
}

func TestDetectDataAnomaliesEmptyBatch(t *testing.T) {
	s := &MonitoringService{}
	anomalies := s.DetectDataAnomalies(nil)
	require.Len(t, anomalies, 1)
	assert.False(t, HasCritical(anomalies))
}

func seedHealthEvents(t *testing.T, e *testEngine, at time.Time, complete, broken int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < complete+broken; i++ {
		oid := fmt.Sprintf("cf-%d-%d", at.Unix(), i)
		order := eventFeedOrder(oid, "r1")
		if i >= complete {
			delete(order, "lineItems")
			order["buyer"] = map[string]any{"id": "b-1"}
		}
		_, err := e.repo.InsertOrderEvent(ctx, &models.OrderEvent{
			TokenID:    "tok-a",
			OrderID:    &oid,
			EventType:  "BOUGHT",
			OccurredAt: at,
			EventData:  mustJSON(map[string]any{"type": "BOUGHT", "order": order}),
		})
		require.NoError(t, err)
	}
}

func TestCheckDataHealthScoresAndAlerts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	e.monitoring.Notifier = notifier

	seedHealthEvents(t, e, e.clock.Now().Add(-30*time.Minute), 12, 0)
	healthy, err := e.monitoring.CheckDataHealth(ctx, "tok-a", 24)
	require.NoError(t, err)
	assert.Equal(t, 12, healthy.TotalOrders)
	assert.Zero(t, healthy.MissingDataRatio)
	assert.Zero(t, healthy.AnomalyScore)
	assert.Empty(t, notifier.alerts)

	seedHealthEvents(t, e, e.clock.Now().Add(-20*time.Minute), 0, 12)
	degraded, err := e.monitoring.CheckDataHealth(ctx, "tok-a", 24)
	require.NoError(t, err)
	assert.Equal(t, 24, degraded.TotalOrders)
	assert.InDelta(t, 0.5, degraded.MissingDataRatio, 1e-9)
	assert.InDelta(t, 0.5, degraded.RegressionRatio, 1e-9)
	assert.InDelta(t, 0.8, degraded.AnomalyScore, 1e-9)
	assert.Equal(t, 12, degraded.OrdersWithIssues)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, notify.SeverityCritical, notifier.alerts[0].Severity)
	assert.Contains(t, notifier.alerts[0].Messages, "no successful sync for 8760.0 hours")
}

func TestCheckDataHealthIgnoresSyntheticEvents(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.monitoring.CreateSnapshot(ctx, "tok-a")
	require.NoError(t, err)

	m, err := e.monitoring.CheckDataHealth(ctx, "tok-a", 24)
	require.NoError(t, err)
	assert.Zero(t, m.TotalOrders)
	// No volume at all is suspicious on its own.
	assert.InDelta(t, 0.3, m.AnomalyScore, 1e-9)
}

// seedDistinctDamage stores n bulk-feed events, each missing a different
// combination of id, status, buyer and lineItems.
func seedDistinctDamage(t *testing.T, e *testEngine, at time.Time, n int) {
	t.Helper()
	ctx := context.Background()
	fields := []string{"id", "status", "buyer", "lineItems"}
	for mask := 1; mask <= n; mask++ {
		oid := fmt.Sprintf("bulk-%d-%d", at.Unix(), mask)
		order := checkoutForm(oid, "r1", "READY_FOR_PROCESSING")
		for bit, field := range fields {
			if mask&(1<<bit) != 0 {
				delete(order, field)
			}
		}
		_, err := e.repo.InsertOrderEvent(ctx, &models.OrderEvent{
			TokenID:    "tok-a",
			OrderID:    &oid,
			EventType:  "BOUGHT",
			OccurredAt: at,
			EventData:  mustJSON(map[string]any{"type": "BOUGHT", "order": order}),
		})
		require.NoError(t, err)
	}
}

func TestShouldPauseSyncOnCriticalIssueCount(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	seedHealthEvents(t, e, e.clock.Now().Add(-10*time.Minute), 40, 0)
	seedDistinctDamage(t, e, e.clock.Now().Add(-10*time.Minute), 10)
	pause, reasons, err := e.monitoring.ShouldPauseSync(ctx, "tok-a")
	require.NoError(t, err)
	assert.True(t, pause)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "critical issues")

	// Outside the one hour window nothing counts.
	e.clock.Advance(2 * time.Hour)
	pause, _, err = e.monitoring.ShouldPauseSync(ctx, "tok-a")
	require.NoError(t, err)
	assert.False(t, pause)
}

func TestRepeatedDamageCountsOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	seedHealthEvents(t, e, e.clock.Now().Add(-10*time.Minute), 196, 4)
	m, err := e.monitoring.CheckDataHealth(ctx, "tok-a", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, m.OrdersWithIssues)
	assert.ElementsMatch(t, []string{
		"missing fields: lineItems",
		"empty buyer fields: email,firstName",
		"no line items",
	}, m.CriticalIssues)
	assert.Len(t, m.AffectedOrders, 4)

	pause, reasons, err := e.monitoring.ShouldPauseSync(ctx, "tok-a")
	require.NoError(t, err)
	assert.False(t, pause)
	assert.Empty(t, reasons)
}

func TestQualityReportAndSnapshot(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	yesterday := e.clock.Now().Add(-26 * time.Hour)
	today := e.clock.Now().Add(-time.Hour)
	seedHealthEvents(t, e, yesterday, 10, 0)
	seedHealthEvents(t, e, today, 5, 5)

	report, err := e.monitoring.QualityReport(ctx, "tok-a", 7)
	require.NoError(t, err)
	assert.Equal(t, 20, report.TotalEvents)
	require.Len(t, report.Daily, 2)
	assert.InDelta(t, 1.0, report.Daily[0].HealthScore, 1e-9)
	assert.InDelta(t, 0.5, report.Daily[1].HealthScore, 1e-9)
	require.NotEmpty(t, report.TopIssues)
	assert.Equal(t, 5, report.TopIssues[0].Count)
	assert.Contains(t, report.Recommendations, "data quality is dropping day over day; check for upstream API changes")
	assert.Contains(t, report.Recommendations, "orders without line items were ingested; consider stricter validation")

	snap, err := e.monitoring.CreateSnapshot(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeDataSnapshot, snap.EventType)
	assert.NotZero(t, snap.ID)
}
