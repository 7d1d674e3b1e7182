package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
	"orderbackup/internal/service"
)

type FailedOrdersHandler struct {
	Service    *service.FailedOrderService
	BatchLimit int
}

func (h *FailedOrdersHandler) Register(r *gin.Engine) {
	g := r.Group("/api/failed-orders")
	g.GET("", h.list)
	g.GET("/stats", h.stats)
	g.POST("/process", h.process)
	g.GET("/:id", h.get)
	g.POST("/:id/retry", h.reset)
}

var failedOrderStatuses = map[string]string{
	"pending":   models.FailedOrderPending,
	"retrying":  models.FailedOrderRetrying,
	"resolved":  models.FailedOrderResolved,
	"abandoned": models.FailedOrderAbandoned,
}

// @Summary List failed orders
// @Tags failed-orders
// @Param token_id query string false "source token"
// @Param order_id query string false "upstream order id"
// @Param status query string false "comma separated statuses"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/failed-orders [get]
func (h *FailedOrdersHandler) list(c *gin.Context) {
	if h.Service == nil || h.Service.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := optionalToken(c)
	if !ok {
		return
	}
	var statuses []string
	for _, s := range cleanStrings(c.QueryArray("status")) {
		if st := parseOrder(s, failedOrderStatuses); st != "" {
			statuses = append(statuses, st)
		}
	}
	params := repository.ListFailedOrdersParams{
		TokenID: tokenID,
		OrderID: strings.TrimSpace(c.Query("order_id")),
		Status:  statuses,
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
	}
	items, total, err := h.Service.List(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get a failed order
// @Tags failed-orders
// @Param id path int true "failed order id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/failed-orders/{id} [get]
func (h *FailedOrdersHandler) get(c *gin.Context) {
	if h.Service == nil || h.Service.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Service.Repo.GetFailedOrder(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "failed order not found", nil)
		return
	}
	if !allowToken(c, item.TokenID) {
		return
	}
	Ok(c, item, nil)
}

// @Summary Failed order statistics
// @Tags failed-orders
// @Param token_id query string false "source token"
// @Success 200 {object} apiResponse
// @Router /api/failed-orders/stats [get]
func (h *FailedOrdersHandler) stats(c *gin.Context) {
	if h.Service == nil || h.Service.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := optionalToken(c)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(c.Request.Context(), tokenID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

// @Summary Process due failed orders now
// @Description Runs one retry pass over failed orders whose backoff has elapsed. Admin only.
// @Tags failed-orders
// @Param limit query int false "max rows to process"
// @Success 200 {object} apiResponse
// @Router /api/failed-orders/process [post]
func (h *FailedOrdersHandler) process(c *gin.Context) {
	if h.Service == nil || h.Service.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	if !requireAdmin(c) {
		return
	}
	limit := intQuery(c, "limit", h.BatchLimit)
	stats, err := h.Service.ProcessFailedOrders(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

// @Summary Reset a failed order for retry
// @Description Gives the row a fresh retry budget and makes it due immediately.
// @Tags failed-orders
// @Param id path int true "failed order id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/failed-orders/{id}/retry [post]
func (h *FailedOrdersHandler) reset(c *gin.Context) {
	if h.Service == nil || h.Service.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	existing, err := h.Service.Repo.GetFailedOrder(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "failed order not found", nil)
		return
	}
	if !allowToken(c, existing.TokenID) {
		return
	}
	item, err := h.Service.ResetForRetry(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "failed order not found", nil)
		return
	}
	Ok(c, item, nil)
}
