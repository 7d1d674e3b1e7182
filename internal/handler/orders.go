package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
	"orderbackup/internal/service"
)

type OrdersHandler struct {
	Repo       repository.Repository
	Protection *service.ProtectionService
	Flags      *service.TechnicalFlagsService
}

func (h *OrdersHandler) Register(r *gin.Engine) {
	g := r.Group("/api/orders")
	g.GET("", h.list)
	g.GET("/:order_id", h.get)
	g.GET("/:order_id/events", h.events)
	g.POST("/:order_id/restore", h.restore)
	g.GET("/:order_id/flags", h.getFlags)
	g.PUT("/:order_id/flags", h.putFlags)
}

type orderView struct {
	ID         uint64                      `json:"id"`
	TokenID    string                      `json:"token_id"`
	OrderID    string                      `json:"order_id"`
	Revision   string                      `json:"revision"`
	RevisionAt *time.Time                  `json:"revision_at,omitempty"`
	OrderDate  time.Time                   `json:"order_date"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
	OrderData  datatypes.JSON              `json:"order_data"`
	Flags      *models.OrderTechnicalFlags `json:"technical_flags,omitempty"`
}

func toOrderView(o models.Order, flags map[string]models.OrderTechnicalFlags) orderView {
	v := orderView{
		ID:         o.ID,
		TokenID:    o.TokenID,
		OrderID:    o.AllegroOrderID,
		Revision:   o.Revision,
		RevisionAt: o.RevisionAt,
		OrderDate:  o.OrderDate,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		OrderData:  o.OrderData,
	}
	if f, ok := flags[o.AllegroOrderID]; ok {
		v.Flags = &f
	}
	return v
}

var orderSortFields = map[string]string{
	"order_date": "order_date",
	"updated_at": "updated_at",
	"created_at": "created_at",
}

// @Summary List backed up orders
// @Tags orders
// @Param token_id query string true "source token"
// @Param updated_since query string false "RFC3339 or YYYY-MM-DD"
// @Param order_by query string false "order_date|updated_at|created_at"
// @Param asc query bool false "ascending"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/orders [get]
func (h *OrdersHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	since, ok := timeQueryPtr(c, "updated_since")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid updated_since", nil)
		return
	}
	params := repository.ListOrdersParams{
		TokenID:      tokenID,
		UpdatedSince: since,
		Limit:        intQuery(c, "limit", 50),
		Offset:       intQuery(c, "offset", 0),
		OrderBy:      parseOrder(c.Query("order_by"), orderSortFields),
		Asc:          boolPtr(boolQueryDefault(c, "asc", false)),
	}
	items, err := h.Repo.ListOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	flags := map[string]models.OrderTechnicalFlags{}
	if h.Flags != nil && len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, o := range items {
			ids = append(ids, o.AllegroOrderID)
		}
		if flags, err = h.Flags.ForOrders(c.Request.Context(), tokenID, ids); err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
	}
	out := make([]orderView, 0, len(items))
	for _, o := range items {
		out = append(out, toOrderView(o, flags))
	}
	Ok(c, out, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one backed up order
// @Tags orders
// @Param order_id path string true "upstream order id"
// @Param token_id query string true "source token"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/orders/{order_id} [get]
func (h *OrdersHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(c.Param("order_id"))
	order, err := h.Repo.GetOrder(c.Request.Context(), tokenID, orderID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if order == nil {
		Error(c, http.StatusNotFound, "order not found", nil)
		return
	}
	flags := map[string]models.OrderTechnicalFlags{}
	if h.Flags != nil {
		if flags, err = h.Flags.ForOrders(c.Request.Context(), tokenID, []string{orderID}); err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
	}
	Ok(c, toOrderView(*order, flags), nil)
}

// @Summary Audit events of one order
// @Tags orders
// @Param order_id path string true "upstream order id"
// @Param token_id query string true "source token"
// @Param include_duplicates query bool false "include events flagged duplicate"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/orders/{order_id}/events [get]
func (h *OrdersHandler) events(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	params := repository.ListOrderEventsParams{
		TokenID:       tokenID,
		OrderID:       strings.TrimSpace(c.Param("order_id")),
		SkipDuplicate: !boolQueryDefault(c, "include_duplicates", false),
		Limit:         intQuery(c, "limit", 100),
		Offset:        intQuery(c, "offset", 0),
		Asc:           true,
	}
	items, err := h.Repo.ListOrderEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountOrderEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Restore an order from its audit events
// @Description Rebuilds the order from the newest stored event with a valid payload, optionally no later than `at`.
// @Tags orders
// @Param order_id path string true "upstream order id"
// @Param token_id query string true "source token"
// @Param at query string false "restore point, RFC3339"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/orders/{order_id}/restore [post]
func (h *OrdersHandler) restore(c *gin.Context) {
	if h.Protection == nil {
		Error(c, http.StatusInternalServerError, "protection service unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	at, ok := timeQueryPtr(c, "at")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid at", nil)
		return
	}
	res, err := h.Protection.RestoreFromEvents(c.Request.Context(), tokenID, strings.TrimSpace(c.Param("order_id")), at)
	if err != nil {
		var meta map[string]any
		if errors.Is(err, service.ErrDataIntegrity) {
			meta = map[string]any{"result": res}
		}
		Error(c, statusFor(err), err.Error(), meta)
		return
	}
	Ok(c, res, nil)
}

// @Summary Technical flags of an order
// @Tags orders
// @Param order_id path string true "upstream order id"
// @Param token_id query string true "source token"
// @Success 200 {object} apiResponse
// @Router /api/orders/{order_id}/flags [get]
func (h *OrdersHandler) getFlags(c *gin.Context) {
	if h.Flags == nil {
		Error(c, http.StatusInternalServerError, "flags service unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	flags, err := h.Flags.GetOrCreate(c.Request.Context(), tokenID, strings.TrimSpace(c.Param("order_id")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, flags, nil)
}

type putFlagsRequest struct {
	IsStockUpdated *bool   `json:"is_stock_updated"`
	InvoiceID      *string `json:"invoice_id" binding:"omitempty,max=100"`
	ClearInvoice   bool    `json:"clear_invoice"`
}

// @Summary Update technical flags of an order
// @Tags orders
// @Accept json
// @Param order_id path string true "upstream order id"
// @Param token_id query string true "source token"
// @Param body body putFlagsRequest true "flags"
// @Success 200 {object} apiResponse
// @Router /api/orders/{order_id}/flags [put]
func (h *OrdersHandler) putFlags(c *gin.Context) {
	if h.Flags == nil {
		Error(c, http.StatusInternalServerError, "flags service unavailable", nil)
		return
	}
	tokenID, ok := requiredToken(c)
	if !ok {
		return
	}
	var req putFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.ClearInvoice && req.InvoiceID != nil {
		Error(c, http.StatusBadRequest, "invoice_id and clear_invoice are exclusive", nil)
		return
	}
	orderID := strings.TrimSpace(c.Param("order_id"))
	ctx := c.Request.Context()
	flags, err := h.Flags.GetOrCreate(ctx, tokenID, orderID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if req.IsStockUpdated != nil {
		if flags, err = h.Flags.SetStockUpdated(ctx, tokenID, orderID, *req.IsStockUpdated); err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
	}
	switch {
	case req.ClearInvoice:
		flags, err = h.Flags.SetInvoice(ctx, tokenID, orderID, nil)
	case req.InvoiceID != nil:
		invoice := strings.TrimSpace(*req.InvoiceID)
		flags, err = h.Flags.SetInvoice(ctx, tokenID, orderID, &invoice)
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, flags, nil)
}
