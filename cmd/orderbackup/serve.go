package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"orderbackup/internal/auth"
	cronrunner "orderbackup/internal/cron"
	"orderbackup/internal/handler"
	"orderbackup/internal/logger"

	_ "orderbackup/docs"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, sync workers and scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.logger

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.Disabled {
		log.Warn("api auth is disabled")
	}

	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL, Issuer: cfg.Auth.Issuer}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(auth.Middleware(jwt, cfg.Auth.Disabled))
	r.Use(handler.WriteAuditMiddleware(logger.Component(log, "api")))

	health := &handler.HealthHandler{DB: a.conn.Gorm, Jobs: a.jobs}
	if a.redis != nil {
		health.Cache = a.redis
	}
	health.Register(r)
	handler.RegisterDocs(r)
	handler.RegisterMetrics(r, nil)
	(&handler.SyncHandler{Jobs: a.jobs, Sync: a.sync, Logger: logger.Component(log, "api")}).Register(r)
	(&handler.OrdersHandler{Repo: a.repo, Protection: a.protection, Flags: a.flags}).Register(r)
	(&handler.FailedOrdersHandler{Service: a.failed, BatchLimit: cfg.FailedOrders.BatchLimit}).Register(r)
	(&handler.QualityHandler{Monitoring: a.monitoring, Dedup: a.dedup}).Register(r)
	(&handler.SettingsHandler{Repo: a.repo, Settings: a.settings, Credentials: a.stored, Invalidator: a.creds}).Register(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.jobs.Start(ctx)
	defer a.jobs.Stop()

	if cfg.Cron.Enabled {
		runner := cronrunner.New(logger.Component(log, "cron"), ctx)
		schedule := &cronrunner.Schedule{
			Cron:         cfg.Cron,
			BatchLimit:   cfg.FailedOrders.BatchLimit,
			Switches:     a.settings,
			Jobs:         a.jobs,
			Running:      a.sync,
			FailedOrders: a.failed,
			Cleanup:      a.cleanup,
			Quality:      a.monitoring,
			TokenIDs:     a.tokenIDs,
			Logger:       logger.Component(log, "schedule"),
		}
		if err := schedule.Register(runner); err != nil {
			log.Warn("cron registration failed", zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
