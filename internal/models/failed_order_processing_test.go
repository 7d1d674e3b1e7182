package models

import (
	"testing"
	"time"
)

func TestMarkForRetryBackoffSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := []time.Duration{1, 5, 15, 60, 240, 240}
	for count, minutes := range want {
		row := FailedOrderProcessing{Status: FailedOrderPending, RetryCount: count, MaxRetries: 10}
		row.MarkForRetry(now, "boom", "")
		if row.NextRetryAt == nil {
			t.Fatalf("count=%d next_retry_at is nil", count)
		}
		got := row.NextRetryAt.Sub(now)
		if got != minutes*time.Minute {
			t.Fatalf("count=%d offset=%v want %v", count, got, minutes*time.Minute)
		}
		if row.RetryCount != count+1 {
			t.Fatalf("retry_count=%d want %d", row.RetryCount, count+1)
		}
	}
}

func TestMarkForRetryAbandonsAtMax(t *testing.T) {
	now := time.Now().UTC()
	row := FailedOrderProcessing{Status: FailedOrderRetrying, RetryCount: 4, MaxRetries: 5}
	row.MarkForRetry(now, "still failing", "api_error")
	if row.Status != FailedOrderAbandoned {
		t.Fatalf("status=%s want abandoned", row.Status)
	}
	if row.NextRetryAt != nil {
		t.Fatalf("next_retry_at should be cleared")
	}
	if row.CanRetry(now.Add(24 * time.Hour)) {
		t.Fatalf("abandoned row must not be retryable")
	}
}

func TestCanRetry(t *testing.T) {
	now := time.Now().UTC()
	later := now.Add(time.Minute)
	row := FailedOrderProcessing{Status: FailedOrderPending, MaxRetries: 5, NextRetryAt: &later}
	if row.CanRetry(now) {
		t.Fatalf("not due yet")
	}
	if !row.CanRetry(later) {
		t.Fatalf("due at next_retry_at")
	}
	row.NextRetryAt = nil
	if !row.CanRetry(now) {
		t.Fatalf("nil next_retry_at is due")
	}
	row.MarkResolved(now)
	if row.CanRetry(now) || row.ResolvedAt == nil || row.NextRetryAt != nil {
		t.Fatalf("resolved row state=%+v", row)
	}
}

func TestPostponeKeepsRetryCount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := FailedOrderProcessing{Status: FailedOrderRetrying, RetryCount: 2, MaxRetries: 3}
	row.Postpone(now, "401", "auth")
	if row.RetryCount != 2 {
		t.Fatalf("retry_count=%d want 2", row.RetryCount)
	}
	if row.Status != FailedOrderPending {
		t.Fatalf("status=%s want pending", row.Status)
	}
	if row.NextRetryAt == nil || row.NextRetryAt.Sub(now) != 15*time.Minute {
		t.Fatalf("next_retry_at=%v want +15m", row.NextRetryAt)
	}
	if !row.CanRetry(now.Add(15 * time.Minute)) {
		t.Fatalf("postponed row must stay retryable")
	}
}
