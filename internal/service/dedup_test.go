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

func TestDedupScopedPerToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.protection.SafeOrderUpdate(ctx, bulkWrite("cf-1", "r1", checkoutForm("cf-1", "r1", "BOUGHT")))
	require.NoError(t, err)

	d, err := e.dedup.ShouldProcessOrder(ctx, "cf-1", "tok-a")
	require.NoError(t, err)
	assert.False(t, d.Proceed)
	assert.NotZero(t, d.ExistingID)

	d, err = e.dedup.ShouldProcessOrder(ctx, "cf-1", "tok-b")
	require.NoError(t, err)
	assert.True(t, d.Proceed)

	d, err = e.dedup.ShouldProcessOrder(ctx, "  ", "tok-a")
	require.NoError(t, err)
	assert.False(t, d.Proceed)
}

func TestDedupEventsPerToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id := "ev-1"
	_, err := e.repo.InsertOrderEvent(ctx, &models.OrderEvent{
		TokenID:    "tok-a",
		EventID:    &id,
		EventType:  "BOUGHT",
		OccurredAt: e.clock.Now(),
		EventData:  mustJSON(map[string]any{"id": id}),
	})
	require.NoError(t, err)

	d, err := e.dedup.ShouldProcessEvent(ctx, "ev-1", "tok-a")
	require.NoError(t, err)
	assert.False(t, d.Proceed)

	d, err = e.dedup.ShouldProcessEvent(ctx, "ev-1", "tok-b")
	require.NoError(t, err)
	assert.True(t, d.Proceed)

	d, err = e.dedup.ShouldProcessEvent(ctx, "", "tok-a")
	require.NoError(t, err)
	assert.True(t, d.Proceed)
}

func TestSameOrderUnderTwoTokensIsTwoOrders(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, token := range []string{"tok-a", "tok-b"} {
		w := bulkWrite("cf-1", "r1", checkoutForm("cf-1", "r1", "BOUGHT"))
		w.TokenID = token
		res, err := e.protection.SafeOrderUpdate(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, ActionCreate, res.Action)
	}
	total, err := e.repo.CountOrders(ctx, repository.ListOrdersParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestMarkRedundantEventsKeepsEarliest(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	oid := "cf-1"
	rev := "r1"
	base := e.clock.Now().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		eventID := "ev-" + string(rune('1'+i))
		_, err := e.repo.InsertOrderEvent(ctx, &models.OrderEvent{
			TokenID:    "tok-a",
			EventID:    &eventID,
			OrderID:    &oid,
			EventType:  "BOUGHT",
			Revision:   &rev,
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
			EventData:  mustJSON(map[string]any{"id": eventID}),
		})
		require.NoError(t, err)
	}

	marked, err := e.dedup.MarkRedundantEvents(ctx, "tok-a", base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	kept, err := e.repo.ListOrderEvents(ctx, repository.ListOrderEventsParams{TokenID: "tok-a", SkipDuplicate: true})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "ev-1", *kept[0].EventID)

	stats, err := e.dedup.Stats(ctx, "tok-a", 24)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.EventsCount)
	assert.Equal(t, int64(2), stats.DuplicateEventsCount)
	assert.InDelta(t, 66.66, stats.DeduplicationRate, 0.1)

	e.clock.Advance(40 * 24 * time.Hour)
	deleted, err := e.dedup.CleanupOldDuplicates(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestMarkAsDuplicateOrderSoftDeletes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.protection.SafeOrderUpdate(ctx, bulkWrite("cf-1", "r1", checkoutForm("cf-1", "r1", "BOUGHT")))
	require.NoError(t, err)

	ok, err := e.dedup.MarkAsDuplicate(ctx, res.OrderID, RecordOrder)
	require.NoError(t, err)
	assert.True(t, ok)

	visible, err := e.repo.CountOrders(ctx, repository.ListOrdersParams{TokenID: "tok-a"})
	require.NoError(t, err)
	assert.Zero(t, visible)

	_, err = e.dedup.MarkAsDuplicate(ctx, res.OrderID, RecordKind("bogus"))
	require.Error(t, err)
}
