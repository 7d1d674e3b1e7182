package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"orderbackup/internal/client/allegro"
	"orderbackup/internal/metrics"
	"orderbackup/internal/models"
	"orderbackup/internal/payload"
	"orderbackup/internal/repository"
)

const (
	StrategyEvents = "events"
	StrategyBulk   = "bulk"

	PhaseStarted    = "started"
	PhaseFetching   = "fetching"
	PhaseProcessing = "processing"
	PhaseMonitoring = "monitoring"
)

// orderWriteEventTypes are the upstream event types that may change order
// state. Other types are stored for audit only.
var orderWriteEventTypes = map[string]struct{}{
	"BOUGHT":                     {},
	"FILLED_IN":                  {},
	"READY_FOR_PROCESSING":       {},
	"BUYER_CANCELLED":            {},
	"FULFILLMENT_STATUS_CHANGED": {},
	"AUTO_CANCELLED":             {},
}

type SyncOptions struct {
	TokenID  string     `json:"token_id"`
	UserID   string     `json:"user_id,omitempty"`
	FromDate *time.Time `json:"from_date,omitempty"`
	ToDate   *time.Time `json:"to_date,omitempty"`
	FullSync bool       `json:"full_sync"`
	// Progress, when set, receives a counter snapshot after every page.
	Progress func(SyncResult) `json:"-"`
}

// SyncResult summarizes one run. It is stored as the SyncHistory stats.
type SyncResult struct {
	HistoryID            string     `json:"history_id"`
	TokenID              string     `json:"token_id"`
	Strategy             string     `json:"strategy"`
	Phase                string     `json:"phase"`
	Status               string     `json:"status"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	Pages                int        `json:"pages"`
	OrdersProcessed      int        `json:"orders_processed"`
	OrdersCreated        int        `json:"orders_created"`
	OrdersUpdated        int        `json:"orders_updated"`
	OrdersSkipped        int        `json:"orders_skipped"`
	OrdersFailed         int        `json:"orders_failed"`
	OrdersDeduplicated   int        `json:"orders_deduplicated"`
	EventsSaved          int        `json:"events_saved"`
	EventsDeduplicated   int        `json:"events_deduplicated"`
	FailedOrdersQueued   int        `json:"failed_orders_queued"`
	DataQualityScore     float64    `json:"data_quality_score"`
	CriticalIssues       []string   `json:"critical_issues"`
	Warnings             []string   `json:"warnings"`
	PausedDueToAnomalies bool       `json:"paused_due_to_anomalies"`
	Error                string     `json:"error,omitempty"`
}

type SyncHistoryStats struct {
	TokenID     string     `json:"token_id,omitempty"`
	Total       int64      `json:"total"`
	Completed   int64      `json:"completed"`
	Failed      int64      `json:"failed"`
	Paused      int64      `json:"paused"`
	Cancelled   int64      `json:"cancelled"`
	Running     int64      `json:"running"`
	SuccessRate float64    `json:"success_rate"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}

// OrderSyncService drives one sync run per call: breaker, fetch, dedup,
// protect, monitor and the SyncHistory record of it all.
type OrderSyncService struct {
	Repo        repository.Repository
	API         OrderAPI
	Credentials CredentialProvider
	Dedup       *DeduplicationService
	Protection  *ProtectionService
	Monitoring  *MonitoringService
	FailedOrder *FailedOrderService
	Fetcher     *DetailFetcher
	Settings    *SystemSettingsService
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Now         func() time.Time

	EventPageLimit   int
	BulkPageLimit    int
	MaxPages         int
	MaxOffset        int
	FullSyncDays     int
	EnableMonitoring bool
}

// run carries the mutable state of one sync run.
type run struct {
	opts    SyncOptions
	token   string
	result  *SyncResult
	history *models.SyncHistory
	log     *zap.Logger
}

// Sync executes one run for opts.TokenID. Once the SyncHistory row exists the
// returned result is never nil. The error is a *PauseError when the run
// stopped on purpose, ErrNoCredential or ErrUpstreamAuth for credential
// problems, or an infrastructure error.
func (s *OrderSyncService) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	opts.TokenID = strings.TrimSpace(opts.TokenID)
	if opts.TokenID == "" {
		return nil, errors.New("sync: token id is required")
	}
	started := s.now()
	strategy := StrategyEvents
	if opts.FromDate != nil || opts.FullSync {
		strategy = StrategyBulk
	}
	r := &run{
		opts: opts,
		result: &SyncResult{
			HistoryID:      uuid.NewString(),
			TokenID:        opts.TokenID,
			Strategy:       strategy,
			Phase:          PhaseStarted,
			Status:         models.SyncStatusRunning,
			StartedAt:      started,
			CriticalIssues: []string{},
			Warnings:       []string{},
		},
		log: s.logger().With(zap.String("token_id", opts.TokenID), zap.String("strategy", strategy)),
	}
	r.history = &models.SyncHistory{
		ID:            r.result.HistoryID,
		TokenID:       opts.TokenID,
		SyncStartedAt: started,
		SyncStatus:    models.SyncStatusRunning,
		SyncFromDate:  opts.FromDate,
		SyncToDate:    opts.ToDate,
	}
	if err := s.Repo.CreateSyncHistory(ctx, r.history); err != nil {
		return nil, fmt.Errorf("create sync history: %w", err)
	}
	r.log = r.log.With(zap.String("history_id", r.history.ID))
	r.log.Info("sync started", zap.Bool("full_sync", opts.FullSync), zap.Timep("from", opts.FromDate), zap.Timep("to", opts.ToDate))

	runErr := s.execute(ctx, r)
	s.finalize(ctx, r, runErr)
	s.Metrics.ObserveRun(strategy, r.result.Status, s.now().Sub(started))
	return r.result, runErr
}

func (s *OrderSyncService) execute(ctx context.Context, r *run) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("sync run panicked", zap.Any("panic", rec))
			err = fmt.Errorf("sync run panicked: %v", rec)
		}
	}()

	if s.monitoringEnabled(ctx) {
		pause, reasons, err := s.Monitoring.ShouldPauseSync(ctx, r.opts.TokenID)
		if err != nil {
			r.log.Warn("pre-run health check failed, continuing", zap.Error(err))
		} else if pause {
			r.result.PausedDueToAnomalies = true
			r.result.CriticalIssues = append(r.result.CriticalIssues, reasons...)
			return &PauseError{Reasons: reasons}
		}
	}

	accessToken, err := s.accessToken(ctx, r.opts)
	if err != nil {
		return err
	}
	r.token = accessToken

	r.result.Phase = PhaseFetching
	if r.result.Strategy == StrategyBulk {
		err = s.syncBulk(ctx, r)
	} else {
		err = s.syncEvents(ctx, r)
	}
	if err != nil {
		return err
	}

	if s.monitoringEnabled(ctx) {
		r.result.Phase = PhaseMonitoring
		health, err := s.Monitoring.CheckDataHealth(ctx, r.opts.TokenID, 0)
		if err != nil {
			r.log.Warn("post-run health check failed", zap.Error(err))
		} else {
			r.result.DataQualityScore = 1 - health.AnomalyScore
			s.Metrics.SetAnomalyScore(r.opts.TokenID, health.AnomalyScore)
		}
	} else {
		r.result.DataQualityScore = 1
	}
	return nil
}

func (s *OrderSyncService) accessToken(ctx context.Context, opts SyncOptions) (string, error) {
	if s.Credentials == nil {
		return "", ErrNoCredential
	}
	token, err := s.Credentials.GetValidAccessToken(ctx, opts.UserID, opts.TokenID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCredential, err)
	}
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

// syncEvents pages the event feed from the last stored cursor.
func (s *OrderSyncService) syncEvents(ctx context.Context, r *run) error {
	cursor, err := s.eventCursor(ctx, r)
	if err != nil {
		return err
	}
	limit := s.eventPageLimit()
	fetched := 0
	for page := 0; page < s.maxPages(); page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.result.Phase = PhaseFetching
		events, err := s.API.ListEventsSince(ctx, r.token, cursor, limit)
		if err != nil {
			if allegro.IsAuth(err) {
				return fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
			}
			return fmt.Errorf("list events since %q: %w", cursor, err)
		}
		if len(events) == 0 {
			break
		}
		r.result.Pages++
		r.result.Phase = PhaseProcessing

		batch := make([]BatchRecord, 0, len(events))
		for _, ev := range events {
			rec, err := s.processEvent(ctx, r, ev)
			if err != nil {
				return err
			}
			if rec != nil {
				batch = append(batch, *rec)
			}
			if ev.ID != "" {
				cursor = ev.ID
			}
		}
		if err := s.checkBatch(r, batch); err != nil {
			return err
		}
		s.progress(r)

		fetched += len(events)
		if len(events) < limit || fetched >= s.maxOffset() {
			break
		}
	}
	return nil
}

// eventCursor returns the id of the newest stored event. On a token's first
// run it asks upstream for the current position and stores it as the
// starting point, so history is not replayed.
func (s *OrderSyncService) eventCursor(ctx context.Context, r *run) (string, error) {
	last, err := s.Repo.LatestCursorEvent(ctx, r.opts.TokenID)
	if err != nil {
		return "", fmt.Errorf("load event cursor: %w", err)
	}
	if last != nil && last.EventID != nil {
		return *last.EventID, nil
	}

	latest, err := s.API.GetLatestEventCursor(ctx, r.token)
	if err != nil {
		if allegro.IsAuth(err) {
			return "", fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
		}
		return "", fmt.Errorf("load latest event cursor: %w", err)
	}
	if latest == nil {
		r.log.Info("upstream has no events yet, starting from the beginning")
		return "", nil
	}

	now := s.now()
	occurred := now
	if t := payload.ParseTime(latest.OccurredAt); t != nil {
		occurred = *t
	}
	eventID := latest.ID
	inserted, err := s.Repo.InsertOrderEvent(ctx, &models.OrderEvent{
		TokenID:    r.opts.TokenID,
		EventID:    &eventID,
		EventType:  models.EventTypeStartingPoint,
		OccurredAt: occurred,
		EventData: mustJSON(map[string]any{
			"event_id":   latest.ID,
			"purpose":    "starting_point_for_incremental_sync",
			"created_at": now.Format(time.RFC3339),
			"source":     "allegro_events_statistics_api",
		}),
	})
	if err != nil {
		return "", fmt.Errorf("store starting point: %w", err)
	}
	if inserted {
		r.result.EventsSaved++
		s.Metrics.EventSaved(models.EventTypeStartingPoint)
	}
	r.log.Info("starting point stored", zap.String("event_id", latest.ID))
	return latest.ID, nil
}

// processEvent audits one event and, when it may change the order, writes
// the order. Only run-aborting conditions are returned as errors.
func (s *OrderSyncService) processEvent(ctx context.Context, r *run, ev allegro.Event) (rec *BatchRecord, err error) {
	orderID := ev.OrderID()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("event processing panicked", zap.String("event_id", ev.ID), zap.Any("panic", p))
			r.result.OrdersFailed++
			err = nil
		}
	}()

	if to := r.opts.ToDate; to != nil && ev.OccurredAt != nil && ev.OccurredAt.After(*to) {
		r.result.OrdersSkipped++
		return nil, nil
	}

	rec = &BatchRecord{
		Source:    SourceEventFeed,
		EventID:   ev.ID,
		EventType: ev.Type,
		OrderID:   orderID,
		Order:     payload.Detect(ev.Order),
	}

	decision, err := s.Dedup.ShouldProcessEvent(ctx, ev.ID, r.opts.TokenID)
	if err != nil {
		r.log.Error("event dedup check failed", zap.String("event_id", ev.ID), zap.Error(err))
		r.result.OrdersFailed++
		return rec, nil
	}
	if !decision.Proceed {
		r.result.EventsDeduplicated++
		s.Metrics.Dedup(string(RecordEvent))
		return rec, nil
	}

	occurred := s.now()
	if ev.OccurredAt != nil {
		occurred = ev.OccurredAt.UTC()
	}
	revision := eventRevision(ev.Revision(), ev.OccurredAt)
	inserted, err := s.Repo.InsertOrderEvent(ctx, &models.OrderEvent{
		TokenID:    r.opts.TokenID,
		EventID:    strPtr(ev.ID),
		OrderID:    strPtr(orderID),
		EventType:  ev.Type,
		OccurredAt: occurred,
		Revision:   strPtr(revision),
		EventData:  mustJSON(ev.Raw),
	})
	if err != nil {
		r.log.Error("store event failed", zap.String("event_id", ev.ID), zap.Error(err))
		r.result.OrdersFailed++
		return rec, nil
	}
	if !inserted {
		r.result.EventsDeduplicated++
		s.Metrics.Dedup(string(RecordEvent))
		return rec, nil
	}
	r.result.EventsSaved++
	s.Metrics.EventSaved(ev.Type)

	if orderID == "" {
		r.log.Debug("event without order id kept for audit", zap.String("event_id", ev.ID))
		return rec, nil
	}
	if _, ok := orderWriteEventTypes[ev.Type]; !ok {
		return rec, nil
	}
	r.result.OrdersProcessed++

	existing, err := s.Repo.GetOrder(ctx, r.opts.TokenID, orderID)
	if err != nil {
		r.log.Error("load stored order failed", zap.String("order_id", orderID), zap.Error(err))
		r.result.OrdersFailed++
		return rec, nil
	}
	if existing != nil && revision != "" && existing.Revision == revision {
		r.result.OrdersSkipped++
		return rec, nil
	}

	return rec, s.fetchAndWrite(ctx, r, orderID, revision, ev.OccurredAt, ev.Raw)
}

// fetchAndWrite loads the full order and hands it to protection. Transient
// failures go to the failed-order queue; auth failures abort the run.
func (s *OrderSyncService) fetchAndWrite(ctx context.Context, r *run, orderID, revision string, occurred *time.Time, eventData map[string]any) error {
	res := s.Fetcher.Fetch(ctx, r.token, orderID)
	switch res.Kind {
	case ResultRetryable:
		r.result.OrdersFailed++
		if s.FailedOrder == nil {
			return nil
		}
		if _, err := s.FailedOrder.SaveFailedOrder(ctx, FailedOrderInput{
			TokenID:          r.opts.TokenID,
			OrderID:          orderID,
			ActionRequired:   ActionFetchDetails,
			ErrorMessage:     res.Err.Error(),
			ErrorType:        ErrorTypeTransient,
			EventData:        eventData,
			ExpectedRevision: revision,
		}); err != nil {
			r.log.Error("queue failed order", zap.String("order_id", orderID), zap.Error(err))
			return nil
		}
		r.result.FailedOrdersQueued++
		return nil
	case ResultFatal:
		switch {
		case allegro.IsAuth(res.Err):
			return fmt.Errorf("%w: %v", ErrUpstreamAuth, res.Err)
		case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
			return res.Err
		case allegro.IsNotFound(res.Err):
			r.log.Warn("order not found upstream, dropped", zap.String("order_id", orderID))
			r.result.OrdersSkipped++
			r.result.Warnings = append(r.result.Warnings, "order "+orderID+" not found upstream")
		default:
			r.log.Error("order detail fetch failed", zap.String("order_id", orderID), zap.Error(res.Err))
			r.result.OrdersFailed++
		}
		return nil
	}

	p := payload.Detect(res.Value)
	s.write(ctx, r, OrderWrite{
		TokenID:    r.opts.TokenID,
		OrderID:    orderID,
		Payload:    p,
		Revision:   revision,
		RevisionAt: revisionTime(p, occurred),
		OrderDate:  orderDateFor(p, occurred, s.now()),
	})
	return nil
}

func (s *OrderSyncService) write(ctx context.Context, r *run, w OrderWrite) {
	result, err := s.Protection.SafeOrderUpdate(ctx, w)
	if err != nil {
		r.result.OrdersFailed++
		var integrity *DataIntegrityError
		if errors.As(err, &integrity) {
			r.result.Warnings = append(r.result.Warnings, integrity.Error())
		}
		return
	}
	s.Metrics.OrderWrite(string(result.Action))
	switch result.Action {
	case ActionCreate:
		r.result.OrdersCreated++
	case ActionUpdate:
		r.result.OrdersUpdated++
	default:
		r.result.OrdersSkipped++
	}
}

// syncBulk pages the date-filtered checkout form listing.
func (s *OrderSyncService) syncBulk(ctx context.Context, r *run) error {
	from := r.opts.FromDate
	if from == nil {
		days := s.FullSyncDays
		if days <= 0 {
			days = 365
		}
		from = timePtr(s.now().AddDate(0, 0, -days))
	}
	limit := s.bulkPageLimit()
	offset := 0
	for page := 0; page < s.maxPages(); page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.result.Phase = PhaseFetching
		forms, err := s.API.ListOrdersByDateRange(ctx, r.token, allegro.DateRangeParams{
			From:   from,
			To:     r.opts.ToDate,
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			if allegro.IsAuth(err) {
				return fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
			}
			return fmt.Errorf("list orders at offset %d: %w", offset, err)
		}
		if len(forms) == 0 {
			break
		}
		r.result.Pages++
		r.result.Phase = PhaseProcessing

		batch := make([]BatchRecord, 0, len(forms))
		for _, form := range forms {
			batch = append(batch, s.processBulkOrder(ctx, r, form))
		}
		if err := s.checkBatch(r, batch); err != nil {
			return err
		}
		s.progress(r)

		offset += len(forms)
		if len(forms) < limit || offset >= s.maxOffset() {
			break
		}
	}
	return nil
}

func (s *OrderSyncService) processBulkOrder(ctx context.Context, r *run, form map[string]any) (rec BatchRecord) {
	p := payload.Detect(form)
	orderID, _ := p.ID()
	rec = BatchRecord{Source: SourceBulkFeed, OrderID: orderID, Order: p}
	defer func() {
		if rp := recover(); rp != nil {
			r.log.Error("bulk order processing panicked", zap.String("order_id", orderID), zap.Any("panic", rp))
			r.result.OrdersFailed++
		}
	}()

	if orderID == "" {
		r.result.OrdersFailed++
		return rec
	}
	r.result.OrdersProcessed++

	// A full sync deliberately revisits stored orders; the revision check
	// in protection keeps that idempotent.
	if !r.opts.FullSync {
		decision, err := s.Dedup.ShouldProcessOrder(ctx, orderID, r.opts.TokenID)
		if err != nil {
			r.log.Error("order dedup check failed", zap.String("order_id", orderID), zap.Error(err))
			r.result.OrdersFailed++
			return rec
		}
		if !decision.Proceed {
			r.result.OrdersDeduplicated++
			s.Metrics.Dedup(string(RecordOrder))
			return rec
		}
	}

	occurred := p.UpdatedAt()
	s.write(ctx, r, OrderWrite{
		TokenID:    r.opts.TokenID,
		OrderID:    orderID,
		Payload:    p,
		Revision:   bulkRevision(p),
		RevisionAt: revisionTime(p, nil),
		OrderDate:  orderDateFor(p, occurred, s.now()),
	})
	return rec
}

// checkBatch runs the anomaly detector over one fetched page.
func (s *OrderSyncService) checkBatch(r *run, batch []BatchRecord) error {
	if s.Monitoring == nil || len(batch) == 0 {
		return nil
	}
	anomalies := s.Monitoring.DetectDataAnomalies(batch)
	if !HasCritical(anomalies) {
		r.result.Warnings = append(r.result.Warnings, anomalies...)
		return nil
	}
	var critical []string
	for _, a := range anomalies {
		if strings.HasPrefix(a, AnomalyCriticalPrefix) {
			critical = append(critical, a)
		} else {
			r.result.Warnings = append(r.result.Warnings, a)
		}
	}
	r.result.CriticalIssues = append(r.result.CriticalIssues, critical...)
	return &PauseError{Reasons: critical}
}

func (s *OrderSyncService) progress(r *run) {
	if r.opts.Progress == nil {
		return
	}
	snapshot := *r.result
	snapshot.CriticalIssues = append([]string(nil), r.result.CriticalIssues...)
	snapshot.Warnings = append([]string(nil), r.result.Warnings...)
	r.opts.Progress(snapshot)
}

// finalize records the outcome. It runs on a context detached from the
// caller's cancellation so the history row is not left running.
func (s *OrderSyncService) finalize(ctx context.Context, r *run, runErr error) {
	ctx = context.WithoutCancel(ctx)
	res := r.result
	now := s.now()
	res.CompletedAt = &now

	var pause *PauseError
	switch {
	case runErr == nil:
		res.Status = models.SyncStatusCompleted
	case errors.As(runErr, &pause) && res.PausedDueToAnomalies:
		res.Status = models.SyncStatusPaused
		res.Error = runErr.Error()
	default:
		res.Status = models.SyncStatusFailed
		res.Error = runErr.Error()
	}

	h := r.history
	h.SyncCompletedAt = &now
	h.SyncStatus = res.Status
	h.OrdersProcessed = res.OrdersProcessed
	h.OrdersAdded = res.OrdersCreated
	h.OrdersUpdated = res.OrdersUpdated
	h.ErrorMessage = strPtr(res.Error)
	h.StatsJSON = mustJSON(res)
	if _, err := s.Repo.FinalizeSyncHistory(ctx, h); err != nil {
		r.log.Error("finalize sync history failed", zap.Error(err))
	} else if h.SyncStatus != res.Status {
		r.log.Info("sync outcome superseded by stored status", zap.String("stored", h.SyncStatus), zap.String("outcome", res.Status))
		res.Status = h.SyncStatus
	}

	fields := []zap.Field{
		zap.String("status", res.Status),
		zap.Int("pages", res.Pages),
		zap.Int("processed", res.OrdersProcessed),
		zap.Int("created", res.OrdersCreated),
		zap.Int("updated", res.OrdersUpdated),
		zap.Int("skipped", res.OrdersSkipped),
		zap.Int("failed", res.OrdersFailed),
		zap.Int("deduplicated", res.OrdersDeduplicated),
		zap.Int("events_saved", res.EventsSaved),
		zap.Int("events_deduplicated", res.EventsDeduplicated),
		zap.Duration("elapsed", now.Sub(res.StartedAt)),
	}
	if runErr != nil {
		r.log.Warn("sync finished with error", append(fields, zap.Error(runErr))...)
		return
	}
	r.log.Info("sync completed", fields...)
}

// Cancel records an operator's intent to stop a run. A worker already
// executing the run is not interrupted.
func (s *OrderSyncService) Cancel(ctx context.Context, historyID string) (bool, error) {
	msg := "cancelled by operator"
	ok, err := s.Repo.SetSyncHistoryStatus(ctx, historyID, []string{models.SyncStatusRunning}, models.SyncStatusCancelled, &msg)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger().Info("sync cancel recorded", zap.String("history_id", historyID))
	}
	return ok, nil
}

func (s *OrderSyncService) RunningSyncs(ctx context.Context, tokenID string) ([]models.SyncHistory, error) {
	return s.Repo.ListSyncHistory(ctx, repository.ListSyncHistoryParams{
		TokenID: tokenID,
		Status:  []string{models.SyncStatusRunning},
		Limit:   100,
	})
}

func (s *OrderSyncService) History(ctx context.Context, params repository.ListSyncHistoryParams) ([]models.SyncHistory, int64, error) {
	items, err := s.Repo.ListSyncHistory(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountSyncHistory(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *OrderSyncService) HistoryStats(ctx context.Context, tokenID string) (SyncHistoryStats, error) {
	out := SyncHistoryStats{TokenID: tokenID}
	counts := map[string]*int64{
		models.SyncStatusCompleted: &out.Completed,
		models.SyncStatusFailed:    &out.Failed,
		models.SyncStatusPaused:    &out.Paused,
		models.SyncStatusCancelled: &out.Cancelled,
		models.SyncStatusRunning:   &out.Running,
	}
	for status, dst := range counts {
		n, err := s.Repo.CountSyncHistory(ctx, repository.ListSyncHistoryParams{TokenID: tokenID, Status: []string{status}})
		if err != nil {
			return out, err
		}
		*dst = n
		out.Total += n
	}
	if finished := out.Total - out.Running; finished > 0 {
		out.SuccessRate = float64(out.Completed) / float64(finished) * 100
	}
	last, err := s.Repo.LastSuccessfulSync(ctx, tokenID)
	if err != nil {
		return out, err
	}
	out.LastSyncAt = last
	return out, nil
}

// CleanupSyncHistory removes finished runs older than days.
func (s *OrderSyncService) CleanupSyncHistory(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = 90
	}
	cutoff := s.now().AddDate(0, 0, -days)
	deleted, err := s.Repo.DeleteSyncHistoryBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger().Info("old sync history removed", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

func (s *OrderSyncService) monitoringEnabled(ctx context.Context) bool {
	if s.Monitoring == nil || !s.EnableMonitoring {
		return false
	}
	return s.Settings.IsEnabled(ctx, FeatureMonitoring, true)
}

func (s *OrderSyncService) eventPageLimit() int {
	if s.EventPageLimit <= 0 || s.EventPageLimit > 1000 {
		return 1000
	}
	return s.EventPageLimit
}

func (s *OrderSyncService) bulkPageLimit() int {
	if s.BulkPageLimit <= 0 || s.BulkPageLimit > 100 {
		return 100
	}
	return s.BulkPageLimit
}

func (s *OrderSyncService) maxPages() int {
	if s.MaxPages <= 0 {
		return 100
	}
	return s.MaxPages
}

func (s *OrderSyncService) maxOffset() int {
	if s.MaxOffset <= 0 {
		return allegro.DefaultMaxSkip
	}
	return s.MaxOffset
}

func (s *OrderSyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderSyncService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
