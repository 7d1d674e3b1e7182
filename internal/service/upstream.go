package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderbackup/internal/client/allegro"
	"orderbackup/internal/metrics"
)

// OrderAPI is the upstream marketplace surface the sync engine reads from.
// *allegro.Client implements it.
type OrderAPI interface {
	ListEventsSince(ctx context.Context, accessToken, cursor string, limit int) ([]allegro.Event, error)
	GetLatestEventCursor(ctx context.Context, accessToken string) (*allegro.LatestEvent, error)
	ListOrdersByDateRange(ctx context.Context, accessToken string, params allegro.DateRangeParams) ([]map[string]any, error)
	GetOrderDetail(ctx context.Context, accessToken, orderID string) (map[string]any, error)
}

// CredentialProvider returns a currently valid bearer token, or "" when the
// token cannot be used.
type CredentialProvider interface {
	GetValidAccessToken(ctx context.Context, userID, tokenID string) (string, error)
}

// DetailFetcher fetches full order details with bounded retry on transient
// failures. Waits double from Base: 1s, 2s, 4s by default.
type DetailFetcher struct {
	API      OrderAPI
	Attempts int
	Base     time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// Sleep waits for d or until ctx ends. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Fetch returns Ok with the detail document, Retryable when transient errors
// outlasted all attempts, or Fatal for permanent failures (not found, auth,
// malformed body, cancellation).
func (f *DetailFetcher) Fetch(ctx context.Context, accessToken, orderID string) Result[map[string]any] {
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	base := f.Base
	if base <= 0 {
		base = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := base << (attempt - 1)
			if err := f.sleep(ctx, wait); err != nil {
				return Fatal[map[string]any](err)
			}
		}
		doc, err := f.API.GetOrderDetail(ctx, accessToken, orderID)
		if err == nil {
			f.Metrics.DetailFetch("ok")
			return Ok(doc)
		}
		lastErr = err
		if !allegro.IsTransient(err) {
			f.Metrics.DetailFetch("permanent")
			return Fatal[map[string]any](err)
		}
		f.logger().Warn("order detail fetch failed, retrying",
			zap.String("order_id", orderID), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	f.Metrics.DetailFetch("exhausted")
	return Retryable[map[string]any](lastErr)
}

func (f *DetailFetcher) sleep(ctx context.Context, d time.Duration) error {
	if f.Sleep != nil {
		return f.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *DetailFetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
