package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

func TestCleanupRun(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.sync.Sync(ctx, SyncOptions{TokenID: "tok-unknown"})
	require.Error(t, err)
	require.NotNil(t, res)

	e.clock.Advance(100 * 24 * time.Hour)
	cleanup := &CleanupService{Dedup: e.dedup, Sync: e.sync, SyncHistoryDays: 90, DuplicateDays: 30, Now: e.clock.Now}
	report := cleanup.Run(ctx, []string{"tok-a"})
	assert.Equal(t, int64(1), report.SyncHistoryPurged)
	assert.Zero(t, report.RedundantEventsMarked)

	history, err := e.repo.GetSyncHistory(ctx, res.HistoryID)
	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestCleanupPrunesAuditLogButKeepsCursor(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := e.clock.Now()

	insert := func(eventID string, age time.Duration) {
		ev := &models.OrderEvent{
			TokenID:    "tok-a",
			OrderID:    strPtr("cf-1"),
			EventType:  "READY_FOR_PROCESSING",
			OccurredAt: now.Add(-age),
			EventData:  mustJSON(map[string]any{"type": "READY_FOR_PROCESSING"}),
		}
		if eventID != "" {
			ev.EventID = strPtr(eventID)
		}
		_, err := e.repo.InsertOrderEvent(ctx, ev)
		require.NoError(t, err)
	}
	insert("e-1", 400*24*time.Hour)
	insert("e-2", 300*24*time.Hour)
	insert("", 350*24*time.Hour)
	insert("", 24*time.Hour)

	cleanup := &CleanupService{Dedup: e.dedup, Sync: e.sync, Now: e.clock.Now}
	assert.Zero(t, cleanup.Run(ctx, []string{"tok-a"}).EventsPurged)

	cleanup.EventDays = 30
	report := cleanup.Run(ctx, []string{"tok-a"})
	assert.Equal(t, int64(2), report.EventsPurged)

	cursor, err := e.repo.LatestCursorEvent(ctx, "tok-a")
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, "e-2", *cursor.EventID)

	left, err := e.repo.CountOrderEvents(ctx, repository.ListOrderEventsParams{TokenID: "tok-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), left)
}
