package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

type RecordKind string

const (
	RecordEvent RecordKind = "event"
	RecordOrder RecordKind = "order"
)

// Decision is the outcome of a deduplication check.
type Decision struct {
	Proceed    bool   `json:"proceed"`
	Reason     string `json:"reason"`
	ExistingID uint64 `json:"existing_id,omitempty"`
}

type DedupStats struct {
	TokenID              string  `json:"token_id"`
	HoursAnalyzed        int     `json:"hours_analyzed"`
	OrdersCount          int64   `json:"orders_count"`
	EventsCount          int64   `json:"events_count"`
	DuplicateEventsCount int64   `json:"duplicate_events_count"`
	DeduplicationRate    float64 `json:"deduplication_rate"`
}

// DeduplicationService decides per source token whether incoming items are new.
// Tokens never suppress each other: the same order id under two tokens is two orders.
type DeduplicationService struct {
	Repo   repository.OrderRepository
	Logger *zap.Logger
	Now    func() time.Time
}

func (s *DeduplicationService) ShouldProcessOrder(ctx context.Context, orderID, tokenID string) (Decision, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Decision{Proceed: false, Reason: "missing order id"}, nil
	}
	existing, err := s.Repo.GetOrder(ctx, tokenID, orderID)
	if err != nil {
		return Decision{}, fmt.Errorf("lookup order %s: %w", orderID, err)
	}
	if existing != nil {
		return Decision{
			Proceed:    false,
			Reason:     fmt.Sprintf("order already stored for token %s", tokenID),
			ExistingID: existing.ID,
		}, nil
	}
	return Decision{Proceed: true, Reason: "new order for token"}, nil
}

// ShouldProcessEvent rejects only when the (token, event id) pair is stored.
// Events without an id pass; the replay guard on insert catches those.
func (s *DeduplicationService) ShouldProcessEvent(ctx context.Context, eventID, tokenID string) (Decision, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return Decision{Proceed: true, Reason: "event has no id"}, nil
	}
	existing, err := s.Repo.GetEventByEventID(ctx, tokenID, eventID)
	if err != nil {
		return Decision{}, fmt.Errorf("lookup event %s: %w", eventID, err)
	}
	if existing != nil {
		return Decision{
			Proceed:    false,
			Reason:     fmt.Sprintf("event already stored for token %s", tokenID),
			ExistingID: existing.ID,
		}, nil
	}
	return Decision{Proceed: true, Reason: "new event for token"}, nil
}

// MarkAsDuplicate flags an event as duplicate or soft-deletes an order.
func (s *DeduplicationService) MarkAsDuplicate(ctx context.Context, id uint64, kind RecordKind) (bool, error) {
	switch kind {
	case RecordEvent:
		return s.Repo.MarkEventDuplicate(ctx, id)
	case RecordOrder:
		return s.Repo.SoftDeleteOrder(ctx, id)
	default:
		return false, fmt.Errorf("unknown record kind %q", kind)
	}
}

func (s *DeduplicationService) Stats(ctx context.Context, tokenID string, hours int) (DedupStats, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)
	out := DedupStats{TokenID: tokenID, HoursAnalyzed: hours}

	var err error
	if out.OrdersCount, err = s.Repo.CountOrders(ctx, repository.ListOrdersParams{TokenID: tokenID, UpdatedSince: &cutoff}); err != nil {
		return out, err
	}
	if out.EventsCount, err = s.Repo.CountOrderEvents(ctx, repository.ListOrderEventsParams{TokenID: tokenID, Since: &cutoff}); err != nil {
		return out, err
	}
	if out.DuplicateEventsCount, err = s.Repo.CountOrderEvents(ctx, repository.ListOrderEventsParams{TokenID: tokenID, Since: &cutoff, DuplicateOnly: true}); err != nil {
		return out, err
	}
	if out.EventsCount > 0 {
		out.DeduplicationRate = float64(out.DuplicateEventsCount) / float64(out.EventsCount) * 100
	}
	return out, nil
}

// MarkRedundantEvents flags events that repeat an earlier event of the same
// order, type and revision. The earliest occurrence is kept.
func (s *DeduplicationService) MarkRedundantEvents(ctx context.Context, tokenID string, since time.Time) (int, error) {
	events, err := s.Repo.ListOrderEvents(ctx, repository.ListOrderEventsParams{
		TokenID:       tokenID,
		Since:         &since,
		SkipDuplicate: true,
		ExcludeTypes:  []string{models.EventTypeStartingPoint, models.EventTypeDataSnapshot},
		Asc:           true,
	})
	if err != nil {
		return 0, err
	}
	seen := map[string]struct{}{}
	marked := 0
	for _, ev := range events {
		if ev.OrderID == nil || ev.Revision == nil || *ev.Revision == "" {
			continue
		}
		key := ev.TokenID + "|" + *ev.OrderID + "|" + ev.EventType + "|" + *ev.Revision
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			continue
		}
		ok, err := s.MarkAsDuplicate(ctx, ev.ID, RecordEvent)
		if err != nil {
			return marked, err
		}
		if ok {
			marked++
		}
	}
	if marked > 0 {
		s.logger().Info("redundant events marked", zap.String("token_id", tokenID), zap.Int("count", marked))
	}
	return marked, nil
}

func (s *DeduplicationService) CleanupOldDuplicates(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := s.now().AddDate(0, 0, -days)
	deleted, err := s.Repo.DeleteDuplicateEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger().Info("old duplicate events removed", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

// PurgeOldEvents drops audit events older than days. The newest cursor event
// of every token survives so incremental syncs keep their position. Zero
// days keeps everything.
func (s *DeduplicationService) PurgeOldEvents(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -days)
	deleted, err := s.Repo.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger().Info("old audit events removed", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

func (s *DeduplicationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DeduplicationService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
