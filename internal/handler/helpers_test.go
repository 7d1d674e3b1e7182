package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"orderbackup/internal/auth"
	"orderbackup/internal/cache"
	"orderbackup/internal/config"
	"orderbackup/internal/credential"
	"orderbackup/internal/db"
	"orderbackup/internal/payload"
	"orderbackup/internal/repository"
	gormrepository "orderbackup/internal/repository/gorm"
	"orderbackup/internal/service"
)

type testAPI struct {
	engine     *gin.Engine
	jwt        auth.JWT
	conn       *db.DB
	repo       repository.Repository
	stored     *credential.Stored
	sync       *service.OrderSyncService
	jobs       *service.SyncJobService
	failed     *service.FailedOrderService
	protection *service.ProtectionService
	settings   *service.SystemSettingsService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.AutoMigrate(conn))
	repo := gormrepository.New(conn.Gorm)

	settings := &service.SystemSettingsService{Repo: repo}
	require.NoError(t, settings.EnsureDefaultSwitches(context.Background()))
	protection := &service.ProtectionService{Repo: repo}
	dedup := &service.DeduplicationService{Repo: repo}
	monitoring := &service.MonitoringService{Repo: repo}
	failed := &service.FailedOrderService{Repo: repo, Protection: protection}
	// No credentials are configured, so every triggered run fails fast
	// without touching the upstream API.
	syncSvc := &service.OrderSyncService{
		Repo:        repo,
		Credentials: credential.NewStatic(nil),
		Dedup:       dedup,
		Protection:  protection,
		Monitoring:  monitoring,
		FailedOrder: failed,
		Settings:    settings,
	}
	jobs := &service.SyncJobService{Sync: syncSvc, Store: cache.NewMemoryStore(), Workers: 1}
	ctx, cancel := context.WithCancel(context.Background())
	jobs.Start(ctx)
	t.Cleanup(func() {
		jobs.Stop()
		cancel()
	})

	sealer, err := credential.NewSealer("0123456789abcdef", "")
	require.NoError(t, err)
	stored := &credential.Stored{Repo: repo, Sealer: sealer}

	j := auth.JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour}
	engine := gin.New()
	engine.Use(auth.Middleware(j, false))
	(&HealthHandler{DB: conn.Gorm, Jobs: jobs}).Register(engine)
	RegisterDocs(engine)
	RegisterMetrics(engine, nil)
	(&SyncHandler{Jobs: jobs, Sync: syncSvc}).Register(engine)
	(&OrdersHandler{Repo: repo, Protection: protection, Flags: &service.TechnicalFlagsService{Repo: repo}}).Register(engine)
	(&FailedOrdersHandler{Service: failed, BatchLimit: 10}).Register(engine)
	(&QualityHandler{Monitoring: monitoring, Dedup: dedup}).Register(engine)
	(&SettingsHandler{Repo: repo, Settings: settings, Credentials: stored}).Register(engine)

	return &testAPI{
		engine:     engine,
		jwt:        j,
		conn:       conn,
		repo:       repo,
		stored:     stored,
		sync:       syncSvc,
		jobs:       jobs,
		failed:     failed,
		protection: protection,
		settings:   settings,
	}
}

func (a *testAPI) token(t *testing.T, role string, tokenIDs ...string) string {
	t.Helper()
	tok, _, err := a.jwt.Sign(auth.Claims{Role: role, TokenIDs: tokenIDs})
	require.NoError(t, err)
	return tok
}

func (a *testAPI) admin(t *testing.T) string {
	return a.token(t, auth.RoleAdmin)
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

type testResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func storeOrder(t *testing.T, a *testAPI, tokenID, orderID string) {
	t.Helper()
	doc := map[string]any{
		"id":       orderID,
		"revision": "r1",
		"status":   "BOUGHT",
		"buyer":    map[string]any{"id": "b-1", "email": "buyer@example.com", "firstName": "Anna", "lastName": "Nowak"},
		"lineItems": []any{
			map[string]any{"id": "li-1", "quantity": 1, "boughtAt": "2026-05-01T10:00:00.000Z"},
		},
		"summary": map[string]any{"totalToPay": map[string]any{"amount": "10.00", "currency": "PLN"}},
	}
	res, err := a.protection.SafeOrderUpdate(context.Background(), service.OrderWrite{
		TokenID:  tokenID,
		OrderID:  orderID,
		Payload:  payload.Detect(doc),
		Revision: "r1",
	})
	require.NoError(t, err)
	require.Equal(t, service.ActionCreate, res.Action)
}
