package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"orderbackup/internal/credential"
	"orderbackup/internal/models"
	"orderbackup/internal/repository"
	"orderbackup/internal/service"
)

const switchPrefix = "feature."

type SettingsHandler struct {
	Repo     repository.SettingsRepository
	Settings *service.SystemSettingsService
	// Credentials seals credential.<token_id> values. Nil rejects them.
	Credentials *credential.Stored
	Invalidator service.CredentialInvalidator
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/system-settings")
	g.GET("", h.list)
	g.GET("/switches", h.listSwitches)
	g.GET("/switches/:name", h.getSwitch)
	g.PUT("/switches/:name", h.putSwitch)
	g.GET("/:key", h.get)
	g.PUT("/:key", h.put)
}

// @Summary List system settings
// @Tags settings
// @Param prefix query string false "key prefix"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/system-settings [get]
func (h *SettingsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListSystemSettingsParams{
		Prefix: strings.TrimSpace(c.Query("prefix")),
		Limit:  intQuery(c, "limit", 200),
		Offset: intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	for i := range items {
		items[i] = credential.Redact(items[i])
	}
	Ok(c, items, map[string]any{"limit": params.Limit, "offset": params.Offset, "count": len(items)})
}

// @Summary Get a system setting
// @Tags settings
// @Param key path string true "setting key"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/system-settings/{key} [get]
func (h *SettingsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "invalid key", nil)
		return
	}
	item, err := h.Repo.GetSystemSettingByKey(c.Request.Context(), key)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "setting not found", nil)
		return
	}
	Ok(c, credential.Redact(*item), nil)
}

type putSystemSettingRequest struct {
	Value       any    `json:"value"`
	Description string `json:"description"`
}

// @Summary Upsert a system setting
// @Tags settings
// @Accept json
// @Param key path string true "setting key"
// @Param body body putSystemSettingRequest true "value"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/{key} [put]
func (h *SettingsHandler) put(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	if !requireAdmin(c) {
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "invalid key", nil)
		return
	}
	var req putSystemSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if credential.IsSettingKey(key) {
		h.putCredential(c, key, req.Value)
		return
	}
	raw, err := json.Marshal(req.Value)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid value", nil)
		return
	}
	if strings.HasPrefix(key, switchPrefix) && string(raw) != "true" && string(raw) != "false" {
		Error(c, http.StatusBadRequest, "feature switches take a boolean value", nil)
		return
	}
	now := time.Now().UTC()
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Repo.UpsertSystemSetting(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	next, _ := h.Repo.GetSystemSettingByKey(c.Request.Context(), key)
	Ok(c, next, nil)
}

func (h *SettingsHandler) putCredential(c *gin.Context, key string, value any) {
	if h.Credentials == nil {
		Error(c, http.StatusBadRequest, credential.ErrSealingDisabled.Error(), nil)
		return
	}
	accessToken, ok := value.(string)
	if !ok || strings.TrimSpace(accessToken) == "" {
		Error(c, http.StatusBadRequest, "credential value must be a non-empty string", nil)
		return
	}
	tokenID := strings.TrimPrefix(key, credential.SettingPrefix)
	ctx := c.Request.Context()
	item, err := h.Credentials.Put(ctx, tokenID, accessToken)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Invalidator != nil {
		_ = h.Invalidator.Invalidate(ctx, tokenID)
	}
	Ok(c, credential.Redact(*item), nil)
}

// @Summary List feature switches
// @Tags settings
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches [get]
func (h *SettingsHandler) listSwitches(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSystemSettings(c.Request.Context(), repository.ListSystemSettingsParams{
		Prefix: switchPrefix,
		Limit:  intQuery(c, "limit", 200),
		Offset: intQuery(c, "offset", 0),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		enabled := false
		_ = json.Unmarshal(it.Value, &enabled)
		out = append(out, map[string]any{
			"name":        strings.TrimPrefix(it.Key, switchPrefix),
			"key":         it.Key,
			"enabled":     enabled,
			"description": it.Description,
			"updated_at":  it.UpdatedAt,
		})
	}
	Ok(c, out, nil)
}

// @Summary Get a feature switch
// @Tags settings
// @Param name path string true "switch name without the feature. prefix"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches/{name} [get]
func (h *SettingsHandler) getSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	key := switchPrefix + name
	fallback := service.DefaultFeatureSwitches()[key]
	Ok(c, map[string]any{
		"name":    name,
		"key":     key,
		"enabled": h.Settings.IsEnabled(c.Request.Context(), key, fallback),
	}, nil)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary Set a feature switch
// @Tags settings
// @Accept json
// @Param name path string true "switch name without the feature. prefix"
// @Param body body putSwitchRequest true "switch state"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches/{name} [put]
func (h *SettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	if !requireAdmin(c) {
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	key := switchPrefix + name
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"name":    name,
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}
