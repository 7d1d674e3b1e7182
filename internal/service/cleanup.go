package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type CleanupReport struct {
	RedundantEventsMarked int   `json:"redundant_events_marked"`
	DuplicateEventsPurged int64 `json:"duplicate_events_purged"`
	SyncHistoryPurged     int64 `json:"sync_history_purged"`
	EventsPurged          int64 `json:"events_purged"`
}

// CleanupService is the housekeeping job. It flags redundant events, purges
// old duplicates and sync history, and prunes the audit log when EventDays
// is set.
type CleanupService struct {
	Dedup           *DeduplicationService
	Sync            *OrderSyncService
	SyncHistoryDays int
	DuplicateDays   int
	EventDays       int
	// ScanWindow bounds the redundant-event scan.
	ScanWindow time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

// Run cleans the given tokens. Step failures are logged and do not stop the
// remaining steps.
func (s *CleanupService) Run(ctx context.Context, tokenIDs []string) CleanupReport {
	var report CleanupReport
	window := s.ScanWindow
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	since := s.now().Add(-window)
	for _, tokenID := range tokenIDs {
		n, err := s.Dedup.MarkRedundantEvents(ctx, tokenID, since)
		if err != nil {
			s.logger().Warn("mark redundant events failed", zap.String("token_id", tokenID), zap.Error(err))
		}
		report.RedundantEventsMarked += n
	}

	if n, err := s.Dedup.CleanupOldDuplicates(ctx, s.DuplicateDays); err != nil {
		s.logger().Warn("purge duplicate events failed", zap.Error(err))
	} else {
		report.DuplicateEventsPurged = n
	}
	if n, err := s.Sync.CleanupSyncHistory(ctx, s.SyncHistoryDays); err != nil {
		s.logger().Warn("purge sync history failed", zap.Error(err))
	} else {
		report.SyncHistoryPurged = n
	}
	if n, err := s.Dedup.PurgeOldEvents(ctx, s.EventDays); err != nil {
		s.logger().Warn("purge audit events failed", zap.Error(err))
	} else {
		report.EventsPurged = n
	}

	s.logger().Info("cleanup finished",
		zap.Int("redundant_marked", report.RedundantEventsMarked),
		zap.Int64("duplicates_purged", report.DuplicateEventsPurged),
		zap.Int64("history_purged", report.SyncHistoryPurged),
		zap.Int64("events_purged", report.EventsPurged))
	return report
}

func (s *CleanupService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CleanupService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
