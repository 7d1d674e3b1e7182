package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orderbackup/internal/service"
)

// QualityHandler exposes data health, the quality report and deduplication
// statistics.
type QualityHandler struct {
	Monitoring *service.MonitoringService
	Dedup      *service.DeduplicationService
}

func (h *QualityHandler) Register(r *gin.Engine) {
	g := r.Group("/api/quality")
	g.GET("/health", h.health)
	g.GET("/pause-check", h.pauseCheck)
	g.GET("/report", h.report)
	g.POST("/snapshot", h.snapshot)
	g.GET("/dedup", h.dedupStats)
	g.POST("/dedup/cleanup", h.dedupCleanup)
}

// @Summary Data health of recent ingests
// @Tags quality
// @Param token_id query string true "source token"
// @Param hours query int false "window in hours (default 24)"
// @Success 200 {object} apiResponse
// @Router /api/quality/health [get]
func (h *QualityHandler) health(c *gin.Context) {
	if h.Monitoring == nil {
		Error(c, http.StatusInternalServerError, "monitoring unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	m, err := h.Monitoring.CheckDataHealth(c.Request.Context(), tokenID, intQuery(c, "hours", 24))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, m, nil)
}

// @Summary Circuit breaker state
// @Description Reports whether the next sync for the token would be paused and why.
// @Tags quality
// @Param token_id query string true "source token"
// @Success 200 {object} apiResponse
// @Router /api/quality/pause-check [get]
func (h *QualityHandler) pauseCheck(c *gin.Context) {
	if h.Monitoring == nil {
		Error(c, http.StatusInternalServerError, "monitoring unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	pause, reasons, err := h.Monitoring.ShouldPauseSync(c.Request.Context(), tokenID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if reasons == nil {
		reasons = []string{}
	}
	Ok(c, map[string]any{"token_id": tokenID, "pause": pause, "reasons": reasons}, nil)
}

// @Summary Daily data quality report
// @Tags quality
// @Param token_id query string true "source token"
// @Param days query int false "days (default 7)"
// @Success 200 {object} apiResponse
// @Router /api/quality/report [get]
func (h *QualityHandler) report(c *gin.Context) {
	if h.Monitoring == nil {
		Error(c, http.StatusInternalServerError, "monitoring unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	days := intQuery(c, "days", 7)
	if days <= 0 || days > 90 {
		Error(c, http.StatusBadRequest, "days must be between 1 and 90", nil)
		return
	}
	report, err := h.Monitoring.QualityReport(c.Request.Context(), tokenID, days)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

// @Summary Store a data snapshot
// @Tags quality
// @Param token_id query string true "source token"
// @Success 200 {object} apiResponse
// @Router /api/quality/snapshot [post]
func (h *QualityHandler) snapshot(c *gin.Context) {
	if h.Monitoring == nil {
		Error(c, http.StatusInternalServerError, "monitoring unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	ev, err := h.Monitoring.CreateSnapshot(c.Request.Context(), tokenID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, ev, nil)
}

// @Summary Deduplication statistics
// @Tags quality
// @Param token_id query string true "source token"
// @Param hours query int false "window in hours (default 24)"
// @Success 200 {object} apiResponse
// @Router /api/quality/dedup [get]
func (h *QualityHandler) dedupStats(c *gin.Context) {
	if h.Dedup == nil {
		Error(c, http.StatusInternalServerError, "dedup unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	stats, err := h.Dedup.Stats(c.Request.Context(), tokenID, intQuery(c, "hours", 24))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

// @Summary Delete old duplicate events
// @Tags quality
// @Param days query int false "age in days (default 30)"
// @Success 200 {object} apiResponse
// @Router /api/quality/dedup/cleanup [post]
func (h *QualityHandler) dedupCleanup(c *gin.Context) {
	if h.Dedup == nil {
		Error(c, http.StatusInternalServerError, "dedup unavailable", nil)
		return
	}
	if !requireAdmin(c) {
		return
	}
	deleted, err := h.Dedup.CleanupOldDuplicates(c.Request.Context(), intQuery(c, "days", 30))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"deleted": deleted}, nil)
}
