package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderbackup/internal/config"
	"orderbackup/internal/models"
	"orderbackup/internal/notify"
	"orderbackup/internal/payload"
	"orderbackup/internal/repository"
)

const (
	AnomalyCriticalPrefix = "critical: "
	AnomalyWarningPrefix  = "warning: "

	pauseWindowHours     = 1
	pauseAnomalyScore    = 0.9
	pauseMissingRatio    = 0.5
	pauseCriticalIssues  = 10
	malformedRatioLimit  = 0.05
	duplicateRatioLimit  = 0.05
	lowDiversityRatio    = 0.5
	maxSyncGap           = 2 * time.Hour
	defaultLastSyncFloor = 365 * 24 * time.Hour
	maxAffectedOrders    = 50
)

// syntheticEventTypes never carry upstream order state.
var syntheticEventTypes = []string{
	models.EventTypeStartingPoint,
	models.EventTypeDataSnapshot,
	models.EventTypeOrderRestored,
}

type Notifier interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

type HealthMetrics struct {
	TokenID            string    `json:"token_id,omitempty"`
	WindowHours        int       `json:"window_hours"`
	TotalOrders        int       `json:"total_orders"`
	OrdersWithIssues   int       `json:"orders_with_issues"`
	MissingDataRatio   float64   `json:"missing_data_ratio"`
	RegressionRatio    float64   `json:"regression_ratio"`
	AnomalyScore       float64   `json:"anomaly_score"`
	LastSuccessfulSync time.Time `json:"last_successful_sync"`
	CriticalIssues     []string  `json:"critical_issues"`
	AffectedOrders     []string  `json:"affected_orders,omitempty"`
}

// BatchSource tells DetectDataAnomalies how to key duplicates.
type BatchSource string

const (
	SourceEventFeed BatchSource = "event_feed"
	SourceBulkFeed  BatchSource = "bulk_feed"
)

// BatchRecord is one fetched upstream item as seen by the anomaly detector.
type BatchRecord struct {
	Source    BatchSource
	EventID   string
	EventType string
	OrderID   string
	Order     payload.Order
}

type DailyQuality struct {
	Date              string  `json:"date"`
	TotalOrders       int     `json:"total_orders"`
	ProblematicOrders int     `json:"problematic_orders"`
	MissingDataOrders int     `json:"missing_data_orders"`
	HealthScore       float64 `json:"health_score"`
}

type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

type QualityReport struct {
	TokenID         string         `json:"token_id,omitempty"`
	Days            int            `json:"days"`
	StartDate       string         `json:"start_date"`
	EndDate         string         `json:"end_date"`
	TotalEvents     int            `json:"total_events"`
	Daily           []DailyQuality `json:"daily_metrics"`
	TopIssues       []IssueCount   `json:"top_issues"`
	Recommendations []string       `json:"recommendations"`
}

// MonitoringService scores the quality of recently ingested order data and
// acts as the pre-run circuit breaker.
type MonitoringService struct {
	Repo     repository.Repository
	Notifier Notifier
	Config   config.MonitoringConfig
	Logger   *zap.Logger
	Now      func() time.Time
}

// eventQuality is the per-event analysis shared by health checks and reports.
type eventQuality struct {
	missingFields []string
	emptyBuyer    []string
	noLineItems   bool
}

func (q eventQuality) hasMissingData() bool {
	return len(q.missingFields) > 0 || len(q.emptyBuyer) > 0
}

func (q eventQuality) issues() []string {
	var out []string
	if len(q.missingFields) > 0 {
		out = append(out, "missing fields: "+strings.Join(q.missingFields, ","))
	}
	if len(q.emptyBuyer) > 0 {
		out = append(out, "empty buyer fields: "+strings.Join(q.emptyBuyer, ","))
	}
	if q.noLineItems {
		out = append(out, "no line items")
	}
	return out
}

func analyzeEvent(ev models.OrderEvent) eventQuality {
	var raw map[string]any
	_ = json.Unmarshal(ev.EventData, &raw)
	doc := raw
	if nested, ok := raw["order"].(map[string]any); ok {
		doc = nested
	}
	p := payload.Detect(doc)

	var q eventQuality
	if _, ok := p.ID(); !ok {
		q.missingFields = append(q.missingFields, "id")
	}
	// Event-feed orders carry no status of their own; the event type stands in.
	if p.Status() == "" && (p.Shape != payload.ShapeEventFeed || ev.EventType == "") {
		q.missingFields = append(q.missingFields, "status")
	}
	buyer := p.Buyer()
	if len(buyer) == 0 {
		q.missingFields = append(q.missingFields, "buyer")
	}
	items := p.LineItems()
	if len(items) == 0 {
		q.missingFields = append(q.missingFields, "lineItems")
		q.noLineItems = true
	}
	for _, field := range []string{"email", "firstName"} {
		if payload.AsString(buyer[field]) == "" {
			q.emptyBuyer = append(q.emptyBuyer, field)
		}
	}
	return q
}

// CheckDataHealth scores order-carrying events of the last windowHours.
// An empty tokenID covers all tokens.
func (s *MonitoringService) CheckDataHealth(ctx context.Context, tokenID string, windowHours int) (HealthMetrics, error) {
	if windowHours <= 0 {
		windowHours = s.cfg().WindowHours
	}
	now := s.now()
	cutoff := now.Add(-time.Duration(windowHours) * time.Hour)
	metrics := HealthMetrics{TokenID: tokenID, WindowHours: windowHours, CriticalIssues: []string{}}

	events, err := s.Repo.ListOrderEvents(ctx, repository.ListOrderEventsParams{
		TokenID:       tokenID,
		Since:         &cutoff,
		ExcludeTypes:  syntheticEventTypes,
		SkipDuplicate: true,
	})
	if err != nil {
		return metrics, fmt.Errorf("load events for health check: %w", err)
	}

	missing, regressed := 0, 0
	seenIssues := map[string]struct{}{}
	for _, ev := range events {
		q := analyzeEvent(ev)
		if q.hasMissingData() {
			missing++
		}
		if q.noLineItems {
			regressed++
		}
		issues := q.issues()
		if len(issues) == 0 {
			continue
		}
		metrics.OrdersWithIssues++
		if len(metrics.AffectedOrders) < maxAffectedOrders {
			label := "event " + fmt.Sprint(ev.ID)
			if ev.OrderID != nil {
				label = "order " + *ev.OrderID
			}
			metrics.AffectedOrders = append(metrics.AffectedOrders, label)
		}
		// The breaker counts kinds of damage, not damaged orders.
		for _, issue := range issues {
			if _, ok := seenIssues[issue]; ok {
				continue
			}
			seenIssues[issue] = struct{}{}
			metrics.CriticalIssues = append(metrics.CriticalIssues, issue)
		}
	}

	metrics.TotalOrders = len(events)
	if metrics.TotalOrders > 0 {
		metrics.MissingDataRatio = float64(missing) / float64(metrics.TotalOrders)
		metrics.RegressionRatio = float64(regressed) / float64(metrics.TotalOrders)
	}
	metrics.AnomalyScore = s.anomalyScore(metrics.MissingDataRatio, metrics.RegressionRatio, metrics.TotalOrders)

	metrics.LastSuccessfulSync = now.Add(-defaultLastSyncFloor)
	if last, err := s.Repo.LastSuccessfulSync(ctx, tokenID); err != nil {
		s.logger().Warn("last successful sync lookup failed", zap.Error(err))
	} else if last != nil {
		metrics.LastSuccessfulSync = last.UTC()
	}

	s.logMetrics(metrics)
	s.alertIfNeeded(ctx, metrics)
	return metrics, nil
}

func (s *MonitoringService) anomalyScore(missingRatio, regressionRatio float64, total int) float64 {
	cfg := s.cfg()
	score := 0.0
	switch {
	case missingRatio >= cfg.CriticalMissing:
		score += 0.4
	case missingRatio >= cfg.WarningMissing:
		score += 0.2
	}
	switch {
	case regressionRatio >= cfg.CriticalRegression:
		score += 0.4
	case regressionRatio >= cfg.WarningRegression:
		score += 0.2
	}
	if total < cfg.ExpectedMinOrders {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (s *MonitoringService) logMetrics(m HealthMetrics) {
	fields := []zap.Field{
		zap.String("token_id", m.TokenID),
		zap.Int("window_hours", m.WindowHours),
		zap.Int("total_orders", m.TotalOrders),
		zap.Int("orders_with_issues", m.OrdersWithIssues),
		zap.Float64("missing_data_ratio", m.MissingDataRatio),
		zap.Float64("regression_ratio", m.RegressionRatio),
		zap.Float64("anomaly_score", m.AnomalyScore),
		zap.Time("last_successful_sync", m.LastSuccessfulSync),
		zap.Strings("critical_issues", m.CriticalIssues),
		zap.Strings("affected_orders", m.AffectedOrders),
	}
	switch {
	case m.AnomalyScore >= 0.7:
		s.logger().Error("data health degraded", fields...)
	case m.AnomalyScore >= 0.4:
		s.logger().Warn("data health warning", fields...)
	default:
		s.logger().Info("data health ok", fields...)
	}
}

func (s *MonitoringService) alertIfNeeded(ctx context.Context, m HealthMetrics) {
	cfg := s.cfg()
	if s.Notifier == nil || m.AnomalyScore < cfg.AlertThreshold {
		return
	}
	messages := []string{fmt.Sprintf("anomaly score %.2f", m.AnomalyScore)}
	if m.MissingDataRatio >= cfg.CriticalMissing {
		messages = append(messages, fmt.Sprintf("%.1f%% of orders have incomplete data", m.MissingDataRatio*100))
	}
	if m.RegressionRatio >= cfg.CriticalRegression {
		messages = append(messages, fmt.Sprintf("%.1f%% of orders show data regression", m.RegressionRatio*100))
	}
	if gap := s.now().Sub(m.LastSuccessfulSync); gap > maxSyncGap {
		messages = append(messages, fmt.Sprintf("no successful sync for %.1f hours", gap.Hours()))
	}
	err := s.Notifier.Notify(ctx, notify.Alert{
		TokenID:  m.TokenID,
		Severity: notify.SeverityCritical,
		Title:    "order data health",
		Messages: messages,
		Details: map[string]any{
			"total_orders":       m.TotalOrders,
			"missing_data_ratio": m.MissingDataRatio,
			"regression_ratio":   m.RegressionRatio,
		},
		Timestamp: s.now(),
	})
	if err != nil {
		s.logger().Warn("health alert not delivered", zap.String("token_id", m.TokenID), zap.Error(err))
	}
}

// ShouldPauseSync is the pre-run breaker. It evaluates the last hour only.
func (s *MonitoringService) ShouldPauseSync(ctx context.Context, tokenID string) (bool, []string, error) {
	m, err := s.CheckDataHealth(ctx, tokenID, pauseWindowHours)
	if err != nil {
		return false, nil, err
	}
	var reasons []string
	if m.AnomalyScore >= pauseAnomalyScore {
		reasons = append(reasons, fmt.Sprintf("anomaly score %.2f", m.AnomalyScore))
	}
	if m.MissingDataRatio >= pauseMissingRatio {
		reasons = append(reasons, fmt.Sprintf("missing data ratio %.1f%%", m.MissingDataRatio*100))
	}
	if len(m.CriticalIssues) >= pauseCriticalIssues {
		reasons = append(reasons, fmt.Sprintf("%d critical issues", len(m.CriticalIssues)))
	}
	if len(reasons) == 0 {
		return false, nil, nil
	}
	s.logger().Error("sync paused by data health breaker",
		zap.String("token_id", tokenID),
		zap.Float64("anomaly_score", m.AnomalyScore),
		zap.Float64("missing_data_ratio", m.MissingDataRatio),
		zap.Strings("reasons", reasons))
	return true, reasons, nil
}

// DetectDataAnomalies inspects one fetched batch. Messages that start with
// AnomalyCriticalPrefix must abort the run.
func (s *MonitoringService) DetectDataAnomalies(batch []BatchRecord) []string {
	if len(batch) == 0 {
		return []string{AnomalyWarningPrefix + "empty batch received"}
	}
	cfg := s.cfg()
	total := len(batch)
	malformed, missing := 0, 0
	keyCounts := map[string]int{}
	orderCounts := map[string]int{}
	source := batch[0].Source

	for _, rec := range batch {
		if recordMalformed(rec) {
			malformed++
			continue
		}
		if rec.OrderID == "" {
			missing++
			continue
		}
		orderCounts[rec.OrderID]++
		key := rec.OrderID
		if rec.Source == SourceEventFeed {
			key = rec.EventID
		}
		keyCounts[key]++
		if !recordComplete(rec) {
			missing++
		}
	}

	var out []string
	duplicates, duplicatedKeys := 0, 0
	for _, n := range keyCounts {
		if n > 1 {
			duplicates += n - 1
			duplicatedKeys++
		}
	}
	if duplicates > 0 && float64(duplicates)/float64(total) > duplicateRatioLimit {
		out = append(out, fmt.Sprintf("%s%d duplicate records across %d keys", AnomalyWarningPrefix, duplicates, duplicatedKeys))
	}

	missingRatio := float64(missing) / float64(total)
	switch {
	case missingRatio >= cfg.CriticalMissing:
		out = append(out, fmt.Sprintf("%s%.1f%% of records have missing data", AnomalyCriticalPrefix, missingRatio*100))
	case missingRatio > cfg.WarningMissing:
		out = append(out, fmt.Sprintf("%s%.1f%% of records have missing data", AnomalyWarningPrefix, missingRatio*100))
	}

	if malformedRatio := float64(malformed) / float64(total); malformedRatio > malformedRatioLimit {
		out = append(out, fmt.Sprintf("%s%.1f%% of records are malformed", AnomalyCriticalPrefix, malformedRatio*100))
	}

	// Events repeat per order by nature; only bulk listings are checked for diversity.
	if source == SourceBulkFeed && float64(len(orderCounts)) < float64(total)*lowDiversityRatio {
		out = append(out, fmt.Sprintf("%slow order diversity: %d unique of %d records", AnomalyWarningPrefix, len(orderCounts), total))
	}

	if len(out) > 0 {
		s.logger().Warn("batch anomalies detected", zap.String("source", string(source)), zap.Int("records", total), zap.Strings("anomalies", out))
	}
	return out
}

func recordMalformed(rec BatchRecord) bool {
	if rec.Source == SourceEventFeed {
		return rec.EventID == "" || rec.EventType == ""
	}
	return rec.Order.Doc == nil
}

func recordComplete(rec BatchRecord) bool {
	p := rec.Order
	if p.Doc == nil {
		return false
	}
	if _, ok := p.ID(); !ok {
		return false
	}
	if len(p.Buyer()) == 0 {
		return false
	}
	if rec.Source == SourceBulkFeed && p.Status() == "" {
		return false
	}
	return true
}

// HasCritical reports whether any anomaly requires aborting the run.
func HasCritical(anomalies []string) bool {
	for _, a := range anomalies {
		if strings.HasPrefix(a, AnomalyCriticalPrefix) {
			return true
		}
	}
	return false
}

// QualityReport breaks the last days into per-day health figures.
func (s *MonitoringService) QualityReport(ctx context.Context, tokenID string, days int) (QualityReport, error) {
	if days <= 0 {
		days = 7
	}
	now := s.now()
	start := now.AddDate(0, 0, -days)
	report := QualityReport{
		TokenID:   tokenID,
		Days:      days,
		StartDate: start.Format(time.DateOnly),
		EndDate:   now.Format(time.DateOnly),
		Daily:     []DailyQuality{},
	}

	events, err := s.Repo.ListOrderEvents(ctx, repository.ListOrderEventsParams{
		TokenID:       tokenID,
		Since:         &start,
		ExcludeTypes:  syntheticEventTypes,
		SkipDuplicate: true,
		Asc:           true,
	})
	if err != nil {
		return report, err
	}
	report.TotalEvents = len(events)

	issueCounts := map[string]int{}
	byDay := make([]DailyQuality, days)
	for i := range byDay {
		byDay[i].Date = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	for _, ev := range events {
		idx := int(ev.OccurredAt.Sub(start) / (24 * time.Hour))
		if idx < 0 || idx >= days {
			continue
		}
		q := analyzeEvent(ev)
		day := &byDay[idx]
		day.TotalOrders++
		if issues := q.issues(); len(issues) > 0 {
			day.ProblematicOrders++
			for _, issue := range issues {
				issueCounts[issue]++
			}
		}
		if q.hasMissingData() {
			day.MissingDataOrders++
		}
	}
	for _, day := range byDay {
		if day.TotalOrders == 0 {
			continue
		}
		day.HealthScore = 1.0 - float64(day.ProblematicOrders)/float64(day.TotalOrders)
		report.Daily = append(report.Daily, day)
	}

	for issue, n := range issueCounts {
		report.TopIssues = append(report.TopIssues, IssueCount{Issue: issue, Count: n})
	}
	sort.Slice(report.TopIssues, func(i, j int) bool {
		if report.TopIssues[i].Count != report.TopIssues[j].Count {
			return report.TopIssues[i].Count > report.TopIssues[j].Count
		}
		return report.TopIssues[i].Issue < report.TopIssues[j].Issue
	})
	if len(report.TopIssues) > 10 {
		report.TopIssues = report.TopIssues[:10]
	}
	report.Recommendations = recommendations(report.Daily, report.TopIssues)
	return report, nil
}

func recommendations(daily []DailyQuality, top []IssueCount) []string {
	var out []string
	if n := len(daily); n >= 2 && daily[n-1].HealthScore < daily[n-2].HealthScore-0.1 {
		out = append(out, "data quality is dropping day over day; check for upstream API changes")
	}
	for _, issue := range top {
		if issue.Issue == "no line items" {
			out = append(out, "orders without line items were ingested; consider stricter validation")
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "data quality within normal range")
	}
	return out
}

// CreateSnapshot records the current order count and health as an audit event.
func (s *MonitoringService) CreateSnapshot(ctx context.Context, tokenID string) (*models.OrderEvent, error) {
	orders, err := s.Repo.CountOrders(ctx, repository.ListOrdersParams{TokenID: tokenID})
	if err != nil {
		return nil, err
	}
	health, err := s.CheckDataHealth(ctx, tokenID, 0)
	if err != nil {
		return nil, err
	}
	now := s.now()
	item := &models.OrderEvent{
		TokenID:    tokenID,
		EventType:  models.EventTypeDataSnapshot,
		OccurredAt: now,
		EventData: mustJSON(map[string]any{
			"snapshot_at":  now.Format(time.RFC3339),
			"total_orders": orders,
			"health":       health,
		}),
	}
	if _, err := s.Repo.InsertOrderEvent(ctx, item); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	s.logger().Info("data snapshot stored", zap.String("token_id", tokenID), zap.Int64("orders", orders))
	return item, nil
}

func (s *MonitoringService) cfg() config.MonitoringConfig {
	c := s.Config
	if c.WindowHours <= 0 {
		c.WindowHours = 24
	}
	if c.CriticalMissing <= 0 {
		c.CriticalMissing = 0.20
	}
	if c.WarningMissing <= 0 {
		c.WarningMissing = 0.10
	}
	if c.CriticalRegression <= 0 {
		c.CriticalRegression = 0.15
	}
	if c.WarningRegression <= 0 {
		c.WarningRegression = 0.05
	}
	if c.ExpectedMinOrders <= 0 {
		c.ExpectedMinOrders = 10
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = 0.8
	}
	return c
}

func (s *MonitoringService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *MonitoringService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
