package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

func TestSaveFailedOrderUpsertsActiveRow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{
		TokenID:      "tok-a",
		OrderID:      "cf-1",
		ErrorMessage: "boom",
		ErrorType:    ErrorTypeTransient,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FailedOrderPending, first.Status)
	assert.Equal(t, ActionFetchDetails, first.ActionRequired)
	require.NotNil(t, first.NextRetryAt)
	assert.WithinDuration(t, e.clock.Now().Add(time.Minute), *first.NextRetryAt, time.Second)

	second, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{
		TokenID:          "tok-a",
		OrderID:          "cf-1",
		ErrorMessage:     "boom again",
		ErrorType:        ErrorTypeTransient,
		ExpectedRevision: "r2",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.RetryCount)
	assert.Equal(t, "r2", *second.ExpectedRevision)

	total, err := e.repo.CountFailedOrders(ctx, repository.ListFailedOrdersParams{TokenID: "tok-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = e.failed.SaveFailedOrder(ctx, FailedOrderInput{TokenID: "tok-a"})
	require.Error(t, err)
}

func TestProcessFailedOrdersResolves(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{
		TokenID:          "tok-a",
		OrderID:          "cf-1",
		ErrorMessage:     "503",
		ErrorType:        ErrorTypeTransient,
		ExpectedRevision: "r1",
	})
	require.NoError(t, err)
	e.upstream.details["cf-1"] = checkoutForm("cf-1", "r1", "BOUGHT")

	// Not due yet.
	stats, err := e.failed.ProcessFailedOrders(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, stats.Selected)

	e.clock.Advance(2 * time.Minute)
	stats, err = e.failed.ProcessFailedOrders(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Selected)
	assert.Equal(t, 1, stats.Resolved)

	order, err := e.repo.GetOrder(ctx, "tok-a", "cf-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "r1", order.Revision)

	summary, err := e.failed.Stats(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ByStatus[models.FailedOrderResolved])
	assert.Zero(t, summary.Active)
}

func TestProcessFailedOrdersNotFoundAbandons(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{TokenID: "tok-a", OrderID: "cf-gone", ErrorMessage: "503"})
	require.NoError(t, err)

	e.clock.Advance(2 * time.Minute)
	stats, err := e.failed.ProcessFailedOrders(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Abandoned)

	items, total, err := e.failed.List(ctx, repository.ListFailedOrdersParams{TokenID: "tok-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, models.FailedOrderAbandoned, items[0].Status)
	assert.Equal(t, ErrorTypeNotFound, items[0].ErrorType)
}

func TestProcessFailedOrdersBackoffSchedule(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.upstream.detailDown["cf-1"] = http.StatusBadGateway

	row, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{TokenID: "tok-a", OrderID: "cf-1", ErrorMessage: "502"})
	require.NoError(t, err)

	want := []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour}
	e.clock.Advance(time.Minute)
	for i, delay := range want {
		before := e.clock.Now()
		stats, err := e.failed.ProcessFailedOrders(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, 1, stats.Retried, "attempt %d", i+1)

		stored, err := e.repo.GetFailedOrder(ctx, row.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.NextRetryAt)
		assert.WithinDuration(t, before.Add(delay), *stored.NextRetryAt, time.Second, "attempt %d", i+1)
		e.clock.Advance(delay)
	}
}

func TestProcessFailedOrdersMissingCredentialReschedules(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{TokenID: "tok-unknown", OrderID: "cf-1", ErrorMessage: "503"})
	require.NoError(t, err)
	e.clock.Advance(2 * time.Minute)

	stats, err := e.failed.ProcessFailedOrders(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Retried)
	assert.Zero(t, e.upstream.requests())

	row, err := e.repo.GetActiveFailedOrder(ctx, "tok-unknown", "cf-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, ErrorTypeCredential, row.ErrorType)
	assert.Zero(t, row.RetryCount)
}

func TestProcessFailedOrdersAuthFailureKeepsRetryBudget(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inv := &recordingInvalidator{}
	e.failed.Invalidator = inv
	e.upstream.detailDown["cf-1"] = http.StatusUnauthorized

	_, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{TokenID: "tok-a", OrderID: "cf-1", ErrorMessage: "503"})
	require.NoError(t, err)

	for i := 0; i < models.DefaultFailedOrderMaxRetries+2; i++ {
		e.clock.Advance(2 * time.Minute)
		stats, err := e.failed.ProcessFailedOrders(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, 1, stats.Retried, "pass %d", i+1)
	}

	row, err := e.repo.GetActiveFailedOrder(ctx, "tok-a", "cf-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.FailedOrderPending, row.Status)
	assert.Equal(t, ErrorTypeAuth, row.ErrorType)
	assert.Zero(t, row.RetryCount)
	assert.Len(t, inv.calls(), models.DefaultFailedOrderMaxRetries+2)
}

func TestResetForRetry(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	row, err := e.failed.SaveFailedOrder(ctx, FailedOrderInput{TokenID: "tok-a", OrderID: "cf-gone", ErrorMessage: "503"})
	require.NoError(t, err)
	e.clock.Advance(2 * time.Minute)
	_, err = e.failed.ProcessFailedOrders(ctx, 10)
	require.NoError(t, err)

	reset, err := e.failed.ResetForRetry(ctx, row.ID)
	require.NoError(t, err)
	require.NotNil(t, reset)
	assert.Equal(t, models.FailedOrderPending, reset.Status)
	assert.Zero(t, reset.RetryCount)

	e.upstream.details["cf-gone"] = checkoutForm("cf-gone", "r1", "BOUGHT")
	stats, err := e.failed.ProcessFailedOrders(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Resolved)

	_, err = e.failed.ResetForRetry(ctx, row.ID)
	require.Error(t, err)

	missing, err := e.failed.ResetForRetry(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
