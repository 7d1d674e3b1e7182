package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderbackup/internal/service"
)

// apiResponse is the envelope of every JSON reply. Code is 0 on success and
// the HTTP status otherwise.
type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{Message: "ok", Data: data, Meta: meta})
}

// Accepted acknowledges work queued for later.
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, apiResponse{Message: "queued", Data: data})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{Code: status, Message: message, Meta: meta})
}

// statusFor maps engine errors to HTTP statuses. Anything unknown came from
// upstream or storage and is reported as a bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrTokenRequired):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoRestorePoint):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDataIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSyncPaused):
		return http.StatusConflict
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrJobsStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
