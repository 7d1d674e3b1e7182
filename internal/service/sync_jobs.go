package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"orderbackup/internal/cache"
	"orderbackup/internal/models"
)

const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobPaused    = "paused"
	JobCancelled = "cancelled"
)

var (
	ErrQueueFull     = errors.New("sync queue is full")
	ErrJobsStopped   = errors.New("sync jobs are not running")
	ErrTokenRequired = errors.New("token id is required")
)

// JobHandle is the pollable status of one triggered sync.
type JobHandle struct {
	JobID      string      `json:"job_id"`
	TokenID    string      `json:"token_id"`
	Status     string      `json:"status"`
	FullSync   bool        `json:"full_sync"`
	FromDate   *time.Time  `json:"from_date,omitempty"`
	ToDate     *time.Time  `json:"to_date,omitempty"`
	QueuedAt   time.Time   `json:"queued_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Result     *SyncResult `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Terminal reports whether the job will not change any more.
func (h JobHandle) Terminal() bool {
	switch h.Status {
	case JobCompleted, JobFailed, JobPaused, JobCancelled:
		return true
	}
	return false
}

// CredentialInvalidator drops cached credentials after upstream rejects them.
type CredentialInvalidator interface {
	Invalidate(ctx context.Context, tokenID string) error
}

// SyncJobService runs sync requests on a bounded worker pool and keeps their
// status in a cache.Store.
type SyncJobService struct {
	Sync        *OrderSyncService
	Store       cache.Store
	Invalidator CredentialInvalidator
	Workers     int
	QueueSize   int
	StatusTTL   time.Duration
	Logger      *zap.Logger

	mu      sync.Mutex
	queue   chan syncJob
	wg      sync.WaitGroup
	subs    map[string]map[chan JobHandle]struct{}
	started bool
}

type syncJob struct {
	handle JobHandle
	opts   SyncOptions
}

// Start launches the workers. They stop when ctx ends or Stop is called.
func (s *SyncJobService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	size := s.QueueSize
	if size <= 0 {
		size = 64
	}
	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}
	s.queue = make(chan syncJob, size)
	s.subs = map[string]map[chan JobHandle]struct{}{}
	s.started = true
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.logger().Info("sync workers started", zap.Int("workers", workers), zap.Int("queue_size", size))
}

// Stop closes the queue and waits for in-flight runs to finish.
func (s *SyncJobService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
	s.logger().Info("sync workers stopped")
}

// QueueStats reports whether workers are running and how full the queue is.
func (s *SyncJobService) QueueStats() (running bool, depth, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return false, 0, 0
	}
	return true, len(s.queue), cap(s.queue)
}

// RunSync enqueues a run and returns its handle right away.
func (s *SyncJobService) RunSync(ctx context.Context, opts SyncOptions) (JobHandle, error) {
	if opts.TokenID == "" {
		return JobHandle{}, ErrTokenRequired
	}
	handle := JobHandle{
		JobID:    uuid.NewString(),
		TokenID:  opts.TokenID,
		Status:   JobQueued,
		FullSync: opts.FullSync,
		FromDate: opts.FromDate,
		ToDate:   opts.ToDate,
		QueuedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return JobHandle{}, ErrJobsStopped
	}
	if err := s.save(ctx, handle); err != nil {
		return JobHandle{}, err
	}
	select {
	case s.queue <- syncJob{handle: handle, opts: opts}:
	default:
		_ = s.Store.Delete(ctx, jobKey(handle.JobID))
		return JobHandle{}, ErrQueueFull
	}
	s.logger().Info("sync queued", zap.String("job_id", handle.JobID), zap.String("token_id", opts.TokenID))
	return handle, nil
}

// JobStatus returns the last recorded status, or nil for an unknown id.
func (s *SyncJobService) JobStatus(ctx context.Context, jobID string) (*JobHandle, error) {
	var h JobHandle
	found, err := cache.GetJSON(ctx, s.Store, jobKey(jobID), &h)
	if err != nil || !found {
		return nil, err
	}
	return &h, nil
}

// Subscribe streams status changes of jobID until cancel is called.
func (s *SyncJobService) Subscribe(jobID string) (<-chan JobHandle, func()) {
	ch := make(chan JobHandle, 16)
	s.mu.Lock()
	if s.subs == nil {
		s.subs = map[string]map[chan JobHandle]struct{}{}
	}
	if s.subs[jobID] == nil {
		s.subs[jobID] = map[chan JobHandle]struct{}{}
	}
	s.subs[jobID][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[jobID], ch)
			if len(s.subs[jobID]) == 0 {
				delete(s.subs, jobID)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *SyncJobService) worker(ctx context.Context, n int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.queue:
			if !ok {
				return
			}
			s.execute(ctx, job)
		}
	}
}

func (s *SyncJobService) execute(ctx context.Context, job syncJob) {
	h := job.handle
	log := s.logger().With(zap.String("job_id", h.JobID), zap.String("token_id", h.TokenID))
	started := time.Now().UTC()
	h.StartedAt = &started
	h.Status = JobRunning
	s.publish(ctx, h)

	opts := job.opts
	opts.Progress = func(r SyncResult) {
		progress := h
		progress.Result = &r
		s.publish(ctx, progress)
	}
	res, err := s.Sync.Sync(ctx, opts)

	finished := time.Now().UTC()
	h.FinishedAt = &finished
	h.Result = res
	switch {
	case res != nil:
		h.Status = jobStatusFor(res.Status)
	case err != nil:
		h.Status = JobFailed
	default:
		h.Status = JobCompleted
	}
	if err != nil {
		h.Error = err.Error()
		if errors.Is(err, ErrUpstreamAuth) && s.Invalidator != nil {
			if ierr := s.Invalidator.Invalidate(ctx, h.TokenID); ierr != nil {
				log.Warn("credential invalidation failed", zap.Error(ierr))
			}
		}
	}
	s.publish(context.WithoutCancel(ctx), h)
	log.Info("sync job finished", zap.String("status", h.Status))
}

func jobStatusFor(syncStatus string) string {
	switch syncStatus {
	case models.SyncStatusCompleted:
		return JobCompleted
	case models.SyncStatusPaused:
		return JobPaused
	case models.SyncStatusCancelled:
		return JobCancelled
	default:
		return JobFailed
	}
}

func (s *SyncJobService) publish(ctx context.Context, h JobHandle) {
	if err := s.save(ctx, h); err != nil {
		s.logger().Warn("job status not stored", zap.String("job_id", h.JobID), zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[h.JobID] {
		deliver(ch, h)
	}
}

// deliver never blocks. Slow subscribers miss intermediate updates, but a
// terminal status replaces the oldest queued one so streams always end.
// Callers hold s.mu, which makes them the only sender.
func deliver(ch chan JobHandle, h JobHandle) {
	select {
	case ch <- h:
		return
	default:
	}
	if !h.Terminal() {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- h:
	default:
	}
}

func (s *SyncJobService) save(ctx context.Context, h JobHandle) error {
	ttl := s.StatusTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return cache.SetJSON(ctx, s.Store, jobKey(h.JobID), h, ttl)
}

func (s *SyncJobService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func jobKey(id string) string {
	return "sync-job:" + id
}
