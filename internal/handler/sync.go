package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
	"orderbackup/internal/service"
)

type SyncHandler struct {
	Jobs   *service.SyncJobService
	Sync   *service.OrderSyncService
	Logger *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	g := r.Group("/api/sync")
	g.POST("", h.trigger)
	g.GET("/jobs/:id", h.jobStatus)
	g.GET("/jobs/:id/ws", h.jobStream)
	g.GET("/history", h.history)
	g.GET("/history/:id", h.historyItem)
	g.POST("/history/:id/cancel", h.cancel)
	g.GET("/stats", h.stats)
	g.GET("/running", h.running)
}

type triggerSyncRequest struct {
	TokenID  string `json:"token_id" binding:"required"`
	UserID   string `json:"user_id"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	FullSync bool   `json:"full_sync"`
}

// @Summary Trigger an order sync
// @Description Queues a sync run for one source token and returns its job handle.
// @Tags sync
// @Accept json
// @Param body body triggerSyncRequest true "sync request"
// @Success 202 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/sync [post]
func (h *SyncHandler) trigger(c *gin.Context) {
	if h.Jobs == nil {
		Error(c, http.StatusInternalServerError, "sync jobs unavailable", nil)
		return
	}
	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	tokenID := strings.TrimSpace(req.TokenID)
	if !allowToken(c, tokenID) {
		return
	}
	opts := service.SyncOptions{
		TokenID:  tokenID,
		UserID:   strings.TrimSpace(req.UserID),
		FullSync: req.FullSync,
	}
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{req.FromDate, &opts.FromDate}, {req.ToDate, &opts.ToDate}} {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		t, ok := parseTime(strings.TrimSpace(d.raw))
		if !ok {
			Error(c, http.StatusBadRequest, "invalid date", map[string]any{"value": d.raw})
			return
		}
		*d.dst = &t
	}
	if opts.FromDate != nil && opts.ToDate != nil && opts.ToDate.Before(*opts.FromDate) {
		Error(c, http.StatusBadRequest, "to_date before from_date", nil)
		return
	}

	handle, err := h.Jobs.RunSync(c.Request.Context(), opts)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			h.logger().Warn("sync trigger failed", zap.String("token_id", tokenID), zap.Error(err))
		}
		Error(c, status, err.Error(), nil)
		return
	}
	Accepted(c, handle)
}

// @Summary Sync job status
// @Tags sync
// @Param id path string true "job id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/sync/jobs/{id} [get]
func (h *SyncHandler) jobStatus(c *gin.Context) {
	if h.Jobs == nil {
		Error(c, http.StatusInternalServerError, "sync jobs unavailable", nil)
		return
	}
	handle, err := h.Jobs.JobStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if handle == nil {
		Error(c, http.StatusNotFound, "job not found", nil)
		return
	}
	if !allowToken(c, handle.TokenID) {
		return
	}
	Ok(c, handle, nil)
}

var syncHistoryStatuses = map[string]string{
	"running":   models.SyncStatusRunning,
	"completed": models.SyncStatusCompleted,
	"failed":    models.SyncStatusFailed,
	"cancelled": models.SyncStatusCancelled,
	"paused":    models.SyncStatusPaused,
}

// @Summary List sync history
// @Tags sync
// @Param token_id query string false "source token"
// @Param status query string false "comma separated statuses"
// @Param since query string false "RFC3339 or YYYY-MM-DD"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/sync/history [get]
func (h *SyncHandler) history(c *gin.Context) {
	if h.Sync == nil || h.Sync.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := optionalToken(c)
	if !ok {
		return
	}
	since, ok := timeQueryPtr(c, "since")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid since", nil)
		return
	}
	var statuses []string
	for _, s := range cleanStrings(c.QueryArray("status")) {
		if st := parseOrder(s, syncHistoryStatuses); st != "" {
			statuses = append(statuses, st)
		}
	}
	params := repository.ListSyncHistoryParams{
		TokenID: tokenID,
		Status:  statuses,
		Since:   since,
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
	}
	items, total, err := h.Sync.History(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one sync run
// @Tags sync
// @Param id path string true "sync history id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/sync/history/{id} [get]
func (h *SyncHandler) historyItem(c *gin.Context) {
	if h.Sync == nil || h.Sync.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Sync.Repo.GetSyncHistory(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "sync history not found", nil)
		return
	}
	if !allowToken(c, item.TokenID) {
		return
	}
	Ok(c, item, nil)
}

// @Summary Cancel a running sync
// @Description Records the cancel intent on the run. A worker already executing it is not interrupted.
// @Tags sync
// @Param id path string true "sync history id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/sync/history/{id}/cancel [post]
func (h *SyncHandler) cancel(c *gin.Context) {
	if h.Sync == nil || h.Sync.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.Sync.Repo.GetSyncHistory(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "sync history not found", nil)
		return
	}
	if !allowToken(c, item.TokenID) {
		return
	}
	cancelled, err := h.Sync.Cancel(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !cancelled {
		Error(c, http.StatusConflict, "sync is not running", map[string]any{"status": item.SyncStatus})
		return
	}
	Ok(c, map[string]any{"id": id, "status": models.SyncStatusCancelled}, nil)
}

// @Summary Sync statistics
// @Tags sync
// @Param token_id query string false "source token"
// @Success 200 {object} apiResponse
// @Router /api/sync/stats [get]
func (h *SyncHandler) stats(c *gin.Context) {
	if h.Sync == nil || h.Sync.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := optionalToken(c)
	if !ok {
		return
	}
	stats, err := h.Sync.HistoryStats(c.Request.Context(), tokenID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

// @Summary Running syncs
// @Tags sync
// @Param token_id query string false "source token"
// @Success 200 {object} apiResponse
// @Router /api/sync/running [get]
func (h *SyncHandler) running(c *gin.Context) {
	if h.Sync == nil || h.Sync.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := optionalToken(c)
	if !ok {
		return
	}
	items, err := h.Sync.RunningSyncs(c.Request.Context(), tokenID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

func (h *SyncHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
