package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"orderbackup/internal/client/allegro"
	"orderbackup/internal/config"
	"orderbackup/internal/db"
	gormrepository "orderbackup/internal/repository/gorm"
)

func newTestRepo(t *testing.T) *gormrepository.Store {
	t.Helper()
	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.AutoMigrate(conn))
	return gormrepository.New(conn.Gorm)
}

// testClock is a settable clock shared by all services of one test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type staticCredentials map[string]string

func (s staticCredentials) GetValidAccessToken(_ context.Context, _ string, tokenID string) (string, error) {
	return s[tokenID], nil
}

// fakeUpstream is a scriptable marketplace API.
type fakeUpstream struct {
	mu            sync.Mutex
	latestEvent   string
	latestAt      string
	eventPages    [][]map[string]any
	eventCalls    int
	statsCalls    int
	listCalls     int
	bulkPages     [][]map[string]any
	details       map[string]map[string]any
	detailStatus  map[string][]int
	detailCalls   map[string]int
	detailDown    map[string]int
	eventsFrom    []string
	requestsTotal int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		details:      map[string]map[string]any{},
		detailStatus: map[string][]int{},
		detailCalls:  map[string]int{},
		detailDown:   map[string]int{},
	}
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestsTotal++
	switch {
	case r.URL.Path == "/order/events/statistics":
		f.statsCalls++
		if f.latestEvent == "" {
			writeJSON(w, map[string]any{})
			return
		}
		writeJSON(w, map[string]any{"latestEvent": map[string]any{"id": f.latestEvent, "occurredAt": f.latestAt}})
	case r.URL.Path == "/order/events":
		f.eventsFrom = append(f.eventsFrom, r.URL.Query().Get("from"))
		var page []map[string]any
		if f.eventCalls < len(f.eventPages) {
			page = f.eventPages[f.eventCalls]
		}
		f.eventCalls++
		writeJSON(w, map[string]any{"events": nonNil(page)})
	case r.URL.Path == "/order/checkout-forms":
		var page []map[string]any
		if f.listCalls < len(f.bulkPages) {
			page = f.bulkPages[f.listCalls]
		}
		f.listCalls++
		writeJSON(w, map[string]any{"checkoutForms": nonNil(page)})
	case strings.HasPrefix(r.URL.Path, "/order/checkout-forms/"):
		id := strings.TrimPrefix(r.URL.Path, "/order/checkout-forms/")
		call := f.detailCalls[id]
		f.detailCalls[id]++
		status := f.detailDown[id]
		if statuses := f.detailStatus[id]; call < len(statuses) {
			status = statuses[call]
		}
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"errors":[{"code":"UNAVAILABLE"}]}`))
			return
		}
		doc, ok := f.details[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[{"code":"NOT_FOUND"}]}`))
			return
		}
		writeJSON(w, doc)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeUpstream) detailCallCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[id]
}

func (f *fakeUpstream) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestsTotal
}

func nonNil(page []map[string]any) []map[string]any {
	if page == nil {
		return []map[string]any{}
	}
	return page
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// testEngine wires the full sync engine against a sqlite store and a fake upstream.
type testEngine struct {
	repo       *gormrepository.Store
	upstream   *fakeUpstream
	clock      *testClock
	sync       *OrderSyncService
	failed     *FailedOrderService
	monitoring *MonitoringService
	protection *ProtectionService
	dedup      *DeduplicationService
	sleeps     []time.Duration
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	e := &testEngine{
		repo:     newTestRepo(t),
		upstream: newFakeUpstream(),
		clock:    newTestClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	srv := httptest.NewServer(e.upstream)
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	api := allegro.NewClient(srv.Client(), srv.URL)
	creds := staticCredentials{"tok-a": "bearer-a", "tok-b": "bearer-b"}

	e.dedup = &DeduplicationService{Repo: e.repo, Logger: logger, Now: e.clock.Now}
	e.protection = &ProtectionService{Repo: e.repo, Logger: logger, Now: e.clock.Now}
	e.monitoring = &MonitoringService{Repo: e.repo, Logger: logger, Now: e.clock.Now}
	fetcher := &DetailFetcher{
		API:    api,
		Logger: logger,
		Sleep: func(_ context.Context, d time.Duration) error {
			e.sleeps = append(e.sleeps, d)
			return nil
		},
	}
	e.failed = &FailedOrderService{
		Repo:        e.repo,
		Protection:  e.protection,
		Fetcher:     fetcher,
		Credentials: creds,
		Logger:      logger,
		Now:         e.clock.Now,
	}
	e.sync = &OrderSyncService{
		Repo:             e.repo,
		API:              api,
		Credentials:      creds,
		Dedup:            e.dedup,
		Protection:       e.protection,
		Monitoring:       e.monitoring,
		FailedOrder:      e.failed,
		Fetcher:          fetcher,
		Logger:           logger,
		Now:              e.clock.Now,
		EnableMonitoring: true,
	}
	return e
}

func eventFeedOrder(orderID, revision string) map[string]any {
	cf := map[string]any{"id": orderID}
	if revision != "" {
		cf["revision"] = revision
	}
	return map[string]any{
		"checkoutForm": cf,
		"buyer":        map[string]any{"id": "b-1", "email": "buyer@example.com", "firstName": "Anna", "login": "buyer"},
		"lineItems":    []any{map[string]any{"id": "li-1", "boughtAt": "2026-05-01T10:00:00.000Z"}},
	}
}

func upstreamEvent(id, eventType, occurredAt string, order map[string]any) map[string]any {
	return map[string]any{"id": id, "type": eventType, "occurredAt": occurredAt, "order": order}
}

func checkoutForm(orderID, revision, status string) map[string]any {
	return map[string]any{
		"id":       orderID,
		"revision": revision,
		"status":   status,
		"buyer": map[string]any{
			"id":        "b-1",
			"email":     "buyer@example.com",
			"firstName": "Anna",
			"lastName":  "Nowak",
		},
		"lineItems": []any{
			map[string]any{"id": "li-1", "quantity": 1, "boughtAt": "2026-05-01T10:00:00.000Z"},
		},
		"summary":   map[string]any{"totalToPay": map[string]any{"amount": "123.45", "currency": "PLN"}},
		"updatedAt": "2026-05-01T10:05:00.000Z",
	}
}
