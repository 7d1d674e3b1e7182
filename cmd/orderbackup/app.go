package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"orderbackup/internal/cache"
	"orderbackup/internal/client/allegro"
	"orderbackup/internal/config"
	"orderbackup/internal/credential"
	"orderbackup/internal/db"
	"orderbackup/internal/logger"
	"orderbackup/internal/metrics"
	"orderbackup/internal/notify"
	gormrepository "orderbackup/internal/repository/gorm"
	"orderbackup/internal/service"
)

// app is the wired process shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	conn   *db.DB
	repo   *gormrepository.Store
	store  cache.Store
	redis  *cache.RedisStore
	static *credential.Static
	stored *credential.Stored
	creds  *credential.Cached
	metric *metrics.Metrics

	settings   *service.SystemSettingsService
	dedup      *service.DeduplicationService
	protection *service.ProtectionService
	monitoring *service.MonitoringService
	failed     *service.FailedOrderService
	sync       *service.OrderSyncService
	cleanup    *service.CleanupService
	flags      *service.TechnicalFlagsService
	jobs       *service.SyncJobService
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath, opts.envOnly)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	conn, err := db.Open(cfg.DB, db.WithLogger(logger.Component(log, "db")))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.SetTimezone(conn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(conn); err != nil {
		_ = db.Close(conn)
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	a := &app{cfg: cfg, logger: log, conn: conn, repo: gormrepository.New(conn.Gorm)}

	a.store = cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		a.redis = cache.NewRedisStore(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.redis.Ping(pingCtx)
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.store = a.redis
	}

	a.metric = metrics.New()
	if err := a.metric.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", zap.Error(err))
	}

	sealer, err := credential.NewSealer(cfg.Credentials.EncryptionKey, cfg.Credentials.PreviousKey)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("credential sealer: %w", err)
	}
	a.static = credential.NewStatic(cfg.Tokens)
	if sealer != nil {
		a.stored = &credential.Stored{Repo: a.repo, Sealer: sealer}
	}
	a.creds = &credential.Cached{
		Next:   credential.Chain{a.static, a.stored},
		Store:  a.store,
		TTL:    cfg.Credentials.CacheTTL,
		Logger: logger.Component(log, "credential"),
	}

	api := allegro.NewClient(&http.Client{}, cfg.Allegro.BaseURL,
		allegro.WithTimeouts(cfg.Allegro.ListTimeout, cfg.Allegro.DetailTimeout))
	fetcher := &service.DetailFetcher{
		API:      api,
		Attempts: cfg.Sync.DetailRetryAttempts,
		Base:     cfg.Sync.DetailRetryBase,
		Metrics:  a.metric,
		Logger:   logger.Component(log, "fetch"),
	}

	a.settings = &service.SystemSettingsService{Repo: a.repo, Logger: logger.Component(log, "settings")}
	if err := a.settings.EnsureDefaultSwitches(ctx); err != nil {
		log.Warn("init default system switches failed", zap.Error(err))
	}
	a.dedup = &service.DeduplicationService{Repo: a.repo, Logger: logger.Component(log, "dedup")}
	a.protection = &service.ProtectionService{Repo: a.repo, Logger: logger.Component(log, "protection")}
	a.monitoring = &service.MonitoringService{
		Repo:     a.repo,
		Notifier: notify.NewWebhook(cfg.Alerts.WebhookURL, cfg.Alerts.Timeout, log),
		Config:   cfg.Monitoring,
		Logger:   logger.Component(log, "monitoring"),
	}
	a.failed = &service.FailedOrderService{
		Repo:        a.repo,
		Protection:  a.protection,
		Fetcher:     fetcher,
		Credentials: a.creds,
		Invalidator: a.creds,
		MaxRetries:  cfg.FailedOrders.MaxRetries,
		Metrics:     a.metric,
		Logger:      logger.Component(log, "failed_orders"),
	}
	a.sync = &service.OrderSyncService{
		Repo:             a.repo,
		API:              api,
		Credentials:      a.creds,
		Dedup:            a.dedup,
		Protection:       a.protection,
		Monitoring:       a.monitoring,
		FailedOrder:      a.failed,
		Fetcher:          fetcher,
		Settings:         a.settings,
		Metrics:          a.metric,
		Logger:           logger.Component(log, "sync"),
		EventPageLimit:   cfg.Allegro.EventPageLimit,
		BulkPageLimit:    cfg.Allegro.BulkPageLimit,
		MaxPages:         cfg.Sync.MaxPages,
		MaxOffset:        cfg.Allegro.MaxOffset,
		FullSyncDays:     cfg.Sync.FullSyncDays,
		EnableMonitoring: cfg.Sync.EnableMonitoring,
	}
	a.cleanup = &service.CleanupService{
		Dedup:           a.dedup,
		Sync:            a.sync,
		SyncHistoryDays: cfg.Cleanup.SyncHistoryDays,
		DuplicateDays:   cfg.Cleanup.DuplicateDays,
		EventDays:       cfg.Cleanup.EventDays,
		Logger:          logger.Component(log, "cleanup"),
	}
	a.flags = &service.TechnicalFlagsService{Repo: a.repo, Logger: logger.Component(log, "flags")}
	a.jobs = &service.SyncJobService{
		Sync:        a.sync,
		Store:       a.store,
		Invalidator: a.creds,
		Workers:     cfg.Sync.Workers,
		QueueSize:   cfg.Sync.QueueSize,
		StatusTTL:   cfg.Sync.JobStatusTTL,
		Logger:      logger.Component(log, "jobs"),
	}
	return a, nil
}

// tokenIDs lists configured and stored source tokens for scheduled jobs.
func (a *app) tokenIDs() []string {
	ids := a.static.TokenIDs()
	if a.stored == nil {
		return ids
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stored, err := a.stored.TokenIDs(ctx)
	if err != nil {
		a.logger.Warn("list stored credentials failed", zap.Error(err))
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range stored {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (a *app) close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.conn != nil {
		errs = append(errs, db.Close(a.conn))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown cleanup failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
