package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"orderbackup/internal/client/allegro"
	"orderbackup/internal/metrics"
	"orderbackup/internal/models"
	"orderbackup/internal/payload"
	"orderbackup/internal/repository"
)

const (
	ActionFetchDetails = "fetch_details"

	ErrorTypeTransient     = "transient_fetch"
	ErrorTypeNotFound      = "not_found"
	ErrorTypeAuth          = "auth"
	ErrorTypeDataIntegrity = "data_integrity"
	ErrorTypeCredential    = "credential"
	ErrorTypeUnexpected    = "unexpected"
)

// FailedOrderInput describes one failure being handed to the retry queue.
type FailedOrderInput struct {
	TokenID          string
	OrderID          string
	ActionRequired   string
	ErrorMessage     string
	ErrorType        string
	EventData        map[string]any
	ExpectedRevision string
}

type FailedOrderRunStats struct {
	Selected  int `json:"selected"`
	Resolved  int `json:"resolved"`
	Retried   int `json:"retried"`
	Abandoned int `json:"abandoned"`
	Skipped   int `json:"skipped"`
}

type FailedOrderStats struct {
	TokenID  string           `json:"token_id,omitempty"`
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
	Active   int64            `json:"active"`
}

// FailedOrderService is the durable retry queue for orders whose detail fetch
// or write failed.
type FailedOrderService struct {
	Repo        repository.Repository
	Protection  *ProtectionService
	Fetcher     *DetailFetcher
	Credentials CredentialProvider
	// Invalidator drops a cached credential that upstream rejected.
	Invalidator CredentialInvalidator
	MaxRetries  int
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// SaveFailedOrder upserts the retry row for (token, order). An active row is
// bumped and rescheduled; otherwise a fresh row is due in one minute.
func (s *FailedOrderService) SaveFailedOrder(ctx context.Context, in FailedOrderInput) (*models.FailedOrderProcessing, error) {
	if in.OrderID == "" {
		return nil, errors.New("failed order: order id is required")
	}
	now := s.now()
	existing, err := s.Repo.GetActiveFailedOrder(ctx, in.TokenID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.MarkForRetry(now, in.ErrorMessage, in.ErrorType)
		if in.EventData != nil {
			existing.EventDataJSON = mustJSON(in.EventData)
		}
		if in.ExpectedRevision != "" {
			existing.ExpectedRevision = strPtr(in.ExpectedRevision)
		}
		if err := s.Repo.SaveFailedOrder(ctx, existing); err != nil {
			return nil, err
		}
		s.logger().Info("failed order rescheduled",
			zap.String("token_id", in.TokenID), zap.String("order_id", in.OrderID),
			zap.Int("retry_count", existing.RetryCount), zap.String("status", existing.Status))
		return existing, nil
	}

	action := in.ActionRequired
	if action == "" {
		action = ActionFetchDetails
	}
	next := now.Add(models.RetryDelay(0))
	item := &models.FailedOrderProcessing{
		OrderID:          in.OrderID,
		TokenID:          in.TokenID,
		ErrorType:        in.ErrorType,
		ErrorMessage:     in.ErrorMessage,
		ErrorDetailsJSON: mustJSON(map[string]any{"first_error": in.ErrorMessage, "error_type": in.ErrorType}),
		ActionRequired:   action,
		ExpectedRevision: strPtr(in.ExpectedRevision),
		Status:           models.FailedOrderPending,
		MaxRetries:       s.maxRetries(),
		Priority:         1,
		FirstFailedAt:    now,
		NextRetryAt:      &next,
	}
	if in.EventData != nil {
		item.EventDataJSON = mustJSON(in.EventData)
	}
	if err := s.Repo.CreateFailedOrder(ctx, item); err != nil {
		return nil, err
	}
	s.logger().Warn("order queued for retry",
		zap.String("token_id", in.TokenID), zap.String("order_id", in.OrderID),
		zap.String("error_type", in.ErrorType), zap.Time("next_retry_at", next))
	return item, nil
}

// ProcessFailedOrders retries due rows. Every row is claimed, processed and
// saved on its own, so one failing row never affects another.
func (s *FailedOrderService) ProcessFailedOrders(ctx context.Context, limit int) (FailedOrderRunStats, error) {
	var stats FailedOrderRunStats
	due, err := s.Repo.ListDueFailedOrders(ctx, s.now(), normalizeLimit(limit, 50))
	if err != nil {
		return stats, fmt.Errorf("list due failed orders: %w", err)
	}
	stats.Selected = len(due)
	for i := range due {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		item := due[i]
		switch s.processOne(ctx, &item) {
		case models.FailedOrderResolved:
			stats.Resolved++
		case models.FailedOrderAbandoned:
			stats.Abandoned++
		case models.FailedOrderPending:
			stats.Retried++
		default:
			stats.Skipped++
		}
	}
	if stats.Selected > 0 {
		s.logger().Info("failed orders processed",
			zap.Int("selected", stats.Selected), zap.Int("resolved", stats.Resolved),
			zap.Int("retried", stats.Retried), zap.Int("abandoned", stats.Abandoned))
	}
	return stats, nil
}

// processOne returns the status the row ended in, or "" when it was skipped.
func (s *FailedOrderService) processOne(ctx context.Context, item *models.FailedOrderProcessing) (status string) {
	log := s.logger().With(zap.String("token_id", item.TokenID), zap.String("order_id", item.OrderID), zap.Uint64("failed_id", item.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("failed order processing panicked", zap.Any("panic", r))
			item.MarkForRetry(s.now(), fmt.Sprint(r), ErrorTypeUnexpected)
			status = s.save(ctx, item, log)
		}
	}()

	claimed, err := s.Repo.ClaimFailedOrder(ctx, item.ID, s.now())
	if err != nil {
		log.Error("claim failed order", zap.Error(err))
		return ""
	}
	if !claimed {
		return ""
	}
	item.Status = models.FailedOrderRetrying

	accessToken, err := s.accessToken(ctx, item.TokenID)
	if err != nil {
		item.Postpone(s.now(), err.Error(), ErrorTypeCredential)
		return s.save(ctx, item, log)
	}

	res := s.Fetcher.Fetch(ctx, accessToken, item.OrderID)
	if !res.IsOk() {
		now := s.now()
		switch {
		case allegro.IsNotFound(res.Err):
			item.MarkAbandoned(now, res.Err.Error(), ErrorTypeNotFound)
		case allegro.IsAuth(res.Err):
			// A rejected credential says nothing about the order.
			item.Postpone(now, res.Err.Error(), ErrorTypeAuth)
			if s.Invalidator != nil {
				if err := s.Invalidator.Invalidate(ctx, item.TokenID); err != nil {
					log.Warn("credential invalidation failed", zap.Error(err))
				}
			}
		default:
			item.MarkForRetry(now, res.Err.Error(), ErrorTypeTransient)
		}
		return s.save(ctx, item, log)
	}

	p := payload.Detect(res.Value)
	revision := bulkRevision(p)
	if item.ExpectedRevision != nil && *item.ExpectedRevision != "" {
		revision = *item.ExpectedRevision
	}
	result, err := s.Protection.SafeOrderUpdate(ctx, OrderWrite{
		TokenID:    item.TokenID,
		OrderID:    item.OrderID,
		Payload:    p,
		Revision:   revision,
		RevisionAt: revisionTime(p, nil),
		OrderDate:  orderDateFor(p, nil, s.now()),
	})
	if err != nil {
		errType := ErrorTypeUnexpected
		if errors.Is(err, ErrDataIntegrity) {
			errType = ErrorTypeDataIntegrity
		}
		item.MarkForRetry(s.now(), err.Error(), errType)
		return s.save(ctx, item, log)
	}
	s.Metrics.OrderWrite(string(result.Action))
	item.MarkResolved(s.now())
	return s.save(ctx, item, log)
}

func (s *FailedOrderService) save(ctx context.Context, item *models.FailedOrderProcessing, log *zap.Logger) string {
	if err := s.Repo.SaveFailedOrder(ctx, item); err != nil {
		log.Error("save failed order", zap.Error(err))
		return ""
	}
	s.Metrics.FailedOrderResult(item.Status)
	switch item.Status {
	case models.FailedOrderResolved:
		log.Info("failed order resolved", zap.Int("retry_count", item.RetryCount))
	case models.FailedOrderAbandoned:
		log.Warn("failed order abandoned", zap.Int("retry_count", item.RetryCount), zap.String("error", item.ErrorMessage))
	default:
		log.Info("failed order rescheduled", zap.Int("retry_count", item.RetryCount), zap.Timep("next_retry_at", item.NextRetryAt))
	}
	return item.Status
}

func (s *FailedOrderService) accessToken(ctx context.Context, tokenID string) (string, error) {
	if s.Credentials == nil {
		return "", ErrNoCredential
	}
	token, err := s.Credentials.GetValidAccessToken(ctx, "", tokenID)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

// ResetForRetry gives a row a fresh retry budget and makes it due now.
func (s *FailedOrderService) ResetForRetry(ctx context.Context, id uint64) (*models.FailedOrderProcessing, error) {
	item, err := s.Repo.GetFailedOrder(ctx, id)
	if err != nil || item == nil {
		return item, err
	}
	if item.Status == models.FailedOrderResolved {
		return nil, fmt.Errorf("failed order %d already resolved", id)
	}
	now := s.now()
	item.Status = models.FailedOrderPending
	item.RetryCount = 0
	item.NextRetryAt = &now
	item.ResolvedAt = nil
	if err := s.Repo.SaveFailedOrder(ctx, item); err != nil {
		return nil, err
	}
	s.logger().Info("failed order reset for retry", zap.Uint64("failed_id", id), zap.String("order_id", item.OrderID))
	return item, nil
}

func (s *FailedOrderService) List(ctx context.Context, params repository.ListFailedOrdersParams) ([]models.FailedOrderProcessing, int64, error) {
	items, err := s.Repo.ListFailedOrders(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountFailedOrders(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *FailedOrderService) Stats(ctx context.Context, tokenID string) (FailedOrderStats, error) {
	byStatus, err := s.Repo.CountFailedOrdersByStatus(ctx, tokenID)
	if err != nil {
		return FailedOrderStats{}, err
	}
	out := FailedOrderStats{TokenID: tokenID, ByStatus: map[string]int64{}}
	for _, st := range []string{models.FailedOrderPending, models.FailedOrderRetrying, models.FailedOrderResolved, models.FailedOrderAbandoned} {
		out.ByStatus[st] = byStatus[st]
		out.Total += byStatus[st]
	}
	out.Active = out.ByStatus[models.FailedOrderPending] + out.ByStatus[models.FailedOrderRetrying]
	return out, nil
}

func (s *FailedOrderService) maxRetries() int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return models.DefaultFailedOrderMaxRetries
}

func (s *FailedOrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *FailedOrderService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
