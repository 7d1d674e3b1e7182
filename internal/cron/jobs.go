package cronrunner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"orderbackup/internal/config"
	"orderbackup/internal/models"
	"orderbackup/internal/service"
)

type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

type SyncTrigger interface {
	RunSync(ctx context.Context, opts service.SyncOptions) (service.JobHandle, error)
}

type RunningSyncs interface {
	RunningSyncs(ctx context.Context, tokenID string) ([]models.SyncHistory, error)
}

type FailedOrderProcessor interface {
	ProcessFailedOrders(ctx context.Context, limit int) (service.FailedOrderRunStats, error)
}

type Cleaner interface {
	Run(ctx context.Context, tokenIDs []string) service.CleanupReport
}

type QualityReporter interface {
	QualityReport(ctx context.Context, tokenID string, days int) (service.QualityReport, error)
	CreateSnapshot(ctx context.Context, tokenID string) (*models.OrderEvent, error)
}

// Schedule holds the periodic sync engine jobs. Nil collaborators disable
// the corresponding job.
type Schedule struct {
	Cron         config.CronConfig
	BatchLimit   int
	ReportDays   int
	Switches     Switches
	Jobs         SyncTrigger
	Running      RunningSyncs
	FailedOrders FailedOrderProcessor
	Cleanup      Cleaner
	Quality      QualityReporter
	TokenIDs     func() []string
	Logger       *zap.Logger
}

// Register adds every job that has both a spec and a collaborator.
func (s *Schedule) Register(r *Runner) error {
	jobs := []struct {
		name    string
		spec    string
		enabled bool
		fn      func(context.Context)
	}{
		{"incremental_sync", s.Cron.IncrementalSync, s.Jobs != nil, s.SyncTokens},
		{"failed_orders", s.Cron.FailedOrders, s.FailedOrders != nil, s.RetryFailed},
		{"cleanup", s.Cron.Cleanup, s.Cleanup != nil, s.RunCleanup},
		{"quality_report", s.Cron.QualityReport, s.Quality != nil, s.Report},
	}
	var errs []error
	for _, j := range jobs {
		if strings.TrimSpace(j.spec) == "" || !j.enabled {
			continue
		}
		if _, err := r.Add(j.name, j.spec, j.fn); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", j.name, err))
		}
	}
	return errors.Join(errs...)
}

// SyncTokens queues an incremental run for every configured token that has
// no run in progress.
func (s *Schedule) SyncTokens(ctx context.Context) {
	if !s.enabled(ctx, service.FeatureScheduledSync) {
		return
	}
	log := s.logger().With(zap.String("job", "incremental_sync"))
	for _, tokenID := range s.tokens() {
		if s.Running != nil {
			running, err := s.Running.RunningSyncs(ctx, tokenID)
			if err != nil {
				log.Warn("running syncs lookup failed", zap.String("token_id", tokenID), zap.Error(err))
				continue
			}
			if len(running) > 0 {
				log.Debug("sync already running", zap.String("token_id", tokenID))
				continue
			}
		}
		handle, err := s.Jobs.RunSync(ctx, service.SyncOptions{TokenID: tokenID})
		if err != nil {
			log.Warn("queue sync failed", zap.String("token_id", tokenID), zap.Error(err))
			if errors.Is(err, service.ErrJobsStopped) {
				return
			}
			continue
		}
		log.Info("sync queued", zap.String("token_id", tokenID), zap.String("job_id", handle.JobID))
	}
}

func (s *Schedule) RetryFailed(ctx context.Context) {
	if !s.enabled(ctx, service.FeatureFailedRetry) {
		return
	}
	limit := s.BatchLimit
	if limit <= 0 {
		limit = 50
	}
	stats, err := s.FailedOrders.ProcessFailedOrders(ctx, limit)
	if err != nil {
		s.logger().Warn("failed order retry failed", zap.Error(err))
		return
	}
	if stats.Selected > 0 {
		s.logger().Info("failed orders processed",
			zap.Int("selected", stats.Selected),
			zap.Int("resolved", stats.Resolved),
			zap.Int("retried", stats.Retried),
			zap.Int("abandoned", stats.Abandoned))
	}
}

func (s *Schedule) RunCleanup(ctx context.Context) {
	if !s.enabled(ctx, service.FeatureCleanup) {
		return
	}
	s.Cleanup.Run(ctx, s.tokens())
}

// Report logs a quality report and stores a snapshot event per token.
func (s *Schedule) Report(ctx context.Context) {
	if !s.enabled(ctx, service.FeatureQualityReport) {
		return
	}
	days := s.ReportDays
	if days <= 0 {
		days = 1
	}
	for _, tokenID := range s.tokens() {
		report, err := s.Quality.QualityReport(ctx, tokenID, days)
		if err != nil {
			s.logger().Warn("quality report failed", zap.String("token_id", tokenID), zap.Error(err))
			continue
		}
		s.logger().Info("quality report",
			zap.String("token_id", tokenID),
			zap.Int("events", report.TotalEvents),
			zap.Strings("recommendations", report.Recommendations))
		if _, err := s.Quality.CreateSnapshot(ctx, tokenID); err != nil {
			s.logger().Warn("quality snapshot failed", zap.String("token_id", tokenID), zap.Error(err))
		}
	}
}

func (s *Schedule) enabled(ctx context.Context, key string) bool {
	if s.Switches == nil {
		return service.DefaultFeatureSwitches()[key]
	}
	return s.Switches.IsEnabled(ctx, key, service.DefaultFeatureSwitches()[key])
}

func (s *Schedule) tokens() []string {
	if s.TokenIDs == nil {
		return nil
	}
	return s.TokenIDs()
}

func (s *Schedule) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
