package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDocs serves a short markdown route guide for operators.
// The full OpenAPI document lives under /swagger.
func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Order Backup Service

Keeps a local, audited copy of marketplace orders per source token.

## Auth

All /api/* and /swagger routes require a Bearer token (HS256, issued with
`+"`orderbackup token`"+`). Tokens may be limited to a set of source token ids.
Websocket clients may pass the token as ?access_token=.
Health and metrics endpoints are public.

## Routes

- GET /healthz
- GET /readyz
- GET /metrics
- GET /swagger/index.html
- POST /api/sync
- GET /api/sync/jobs/:id
- GET /api/sync/jobs/:id/ws
- GET /api/sync/history
- GET /api/sync/history/:id
- POST /api/sync/history/:id/cancel
- GET /api/sync/stats
- GET /api/sync/running
- GET /api/orders?token_id=
- GET /api/orders/:order_id?token_id=
- GET /api/orders/:order_id/events?token_id=
- POST /api/orders/:order_id/restore?token_id=
- GET|PUT /api/orders/:order_id/flags?token_id=
- GET /api/failed-orders
- GET /api/failed-orders/stats
- GET /api/failed-orders/:id
- POST /api/failed-orders/:id/retry
- POST /api/failed-orders/process
- GET /api/quality/health?token_id=
- GET /api/quality/pause-check?token_id=
- GET /api/quality/report?token_id=
- POST /api/quality/snapshot?token_id=
- GET /api/quality/dedup?token_id=
- POST /api/quality/dedup/cleanup
- GET /api/system-settings
- GET /api/system-settings/switches
- GET|PUT /api/system-settings/switches/:name
- GET|PUT /api/system-settings/:key

Keys under credential.<token_id> hold sealed upstream access tokens. They are
write-only: reads return "***". Writing one needs credentials.encryption_key.
`)
	})
}
