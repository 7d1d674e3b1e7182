package allegro

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL)
}

func TestListEventsSince(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/events", r.URL.Path)
		assert.Equal(t, "ev-10", r.URL.Query().Get("from"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		assert.Equal(t, acceptHeader, r.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"events":[
			{"id":"ev-11","type":"BOUGHT","occurredAt":"2026-05-01T10:00:00.000Z",
			 "order":{"checkoutForm":{"id":"cf-1","revision":"r1"},"buyer":{"email":"a@b.c"}}},
			{"id":"ev-12","type":"READY_FOR_PROCESSING","orderId":"cf-2"}
		]}`))
	})

	events, err := c.ListEventsSince(context.Background(), "tok", "ev-10", 5000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "cf-1", events[0].OrderID())
	assert.Equal(t, "r1", events[0].Revision())
	require.NotNil(t, events[0].OccurredAt)
	assert.Equal(t, 10, events[0].OccurredAt.Hour())
	assert.Equal(t, "cf-2", events[1].OrderID())
	assert.Equal(t, "", events[1].Revision())
}

func TestGetLatestEventCursor(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/events/statistics", r.URL.Path)
		_, _ = w.Write([]byte(`{"latestEvent":{"id":"ev-99","occurredAt":"2026-05-01T10:00:00Z"}}`))
	})
	latest, err := c.GetLatestEventCursor(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "ev-99", latest.ID)
}

func TestListOrdersByDateRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "200", q.Get("offset"))
		assert.Equal(t, "2026-01-01T00:00:00Z", q.Get("lineItems.boughtAt.gte"))
		assert.Empty(t, q.Get("lineItems.boughtAt.lte"))
		_, _ = w.Write([]byte(`{"checkoutForms":[{"id":"cf-1"},{"id":"cf-2"}]}`))
	})
	forms, err := c.ListOrdersByDateRange(context.Background(), "tok", DateRangeParams{From: &from, Offset: 200})
	require.NoError(t, err)
	assert.Len(t, forms, 2)
}

func TestErrorClassification(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"errors":[]}`))
	})

	_, err := c.GetOrderDetail(context.Background(), "tok", "cf-1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	status.Store(http.StatusNotFound)
	_, err = c.GetOrderDetail(context.Background(), "tok", "cf-1")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransient(err))

	status.Store(http.StatusForbidden)
	_, err = c.GetOrderDetail(context.Background(), "tok", "cf-1")
	assert.True(t, IsAuth(err))

	status.Store(http.StatusTooManyRequests)
	_, err = c.GetOrderDetail(context.Background(), "tok", "cf-1")
	assert.True(t, IsTransient(err))

	assert.True(t, IsTransient(errors.New("dial tcp: connection refused")))
	assert.False(t, IsTransient(context.Canceled))
}

func TestDecodeErrorIsPermanent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := c.GetOrderDetail(context.Background(), "tok", "cf-1")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}
