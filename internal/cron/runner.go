package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner schedules named jobs with second-precision specs. A job still
// running when its next tick fires is skipped, and a panicking job is
// logged instead of taking the process down.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := zapCronLogger{l: logger.Named("cron")}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under name. Jobs receive the runner's base context.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		start := time.Now()
		job(r.baseCtx)
		r.logger.Debug("cron job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
}

// Entries returns the number of registered jobs.
func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("jobs", r.Entries()))
	r.cron.Start()
}

// Stop waits for running jobs to return.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	l *zap.Logger
}

func (z zapCronLogger) Info(msg string, keysAndValues ...any) {
	z.l.Debug(msg, zap.Any("details", keysAndValues))
}

func (z zapCronLogger) Error(err error, msg string, keysAndValues ...any) {
	z.l.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
