package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"orderbackup/internal/service"
)

const wsWriteTimeout = 5 * time.Second

// @Summary Stream sync job progress
// @Description Upgrades to a websocket and pushes the job handle on every status change until the job ends.
// @Tags sync
// @Param id path string true "job id"
// @Param access_token query string false "bearer token for clients that cannot set headers"
// @Success 101
// @Failure 404 {object} apiResponse
// @Router /api/sync/jobs/{id}/ws [get]
func (h *SyncHandler) jobStream(c *gin.Context) {
	if h.Jobs == nil {
		Error(c, http.StatusInternalServerError, "sync jobs unavailable", nil)
		return
	}
	jobID := strings.TrimSpace(c.Param("id"))

	// Subscribe first so a transition between the read and the stream is not lost.
	updates, unsubscribe := h.Jobs.Subscribe(jobID)
	defer unsubscribe()

	current, err := h.Jobs.JobStatus(c.Request.Context(), jobID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if current == nil {
		Error(c, http.StatusNotFound, "job not found", nil)
		return
	}
	if !allowToken(c, current.TokenID) {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.logger().Debug("websocket accept failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Reads are only needed to notice the client going away.
	ctx := conn.CloseRead(c.Request.Context())

	if err := writeJob(ctx, conn, *current); err != nil {
		return
	}
	if current.Terminal() {
		_ = conn.Close(websocket.StatusNormalClosure, current.Status)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-updates:
			if err := writeJob(ctx, conn, next); err != nil {
				h.logger().Debug("websocket write failed", zap.String("job_id", jobID), zap.Error(err))
				return
			}
			if next.Terminal() {
				_ = conn.Close(websocket.StatusNormalClosure, next.Status)
				return
			}
		}
	}
}

func writeJob(ctx context.Context, conn *websocket.Conn, h service.JobHandle) error {
	payload, err := json.Marshal(h)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
