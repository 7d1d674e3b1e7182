package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger is implemented by optional backends (redis) that readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueReporter exposes the sync worker pool to readiness checks.
type QueueReporter interface {
	QueueStats() (running bool, depth, capacity int)
}

type HealthHandler struct {
	DB    *gorm.DB
	Cache Pinger
	Jobs  QueueReporter
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Liveness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Description Reports each backend; the first failing check names the status.
// @Tags health
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := "ready"
	fail := func(name, reason string) {
		checks[name] = reason
		if status == "ready" {
			status = name + "_" + reason
		}
	}

	switch {
	case h.DB == nil:
		fail("db", "missing")
	default:
		pool, err := h.DB.DB()
		if err != nil {
			fail("db", "error")
		} else if err := pool.PingContext(ctx); err != nil {
			fail("db", "unreachable")
		} else {
			checks["db"] = "ok"
		}
	}
	if h.Cache != nil {
		if err := h.Cache.Ping(ctx); err != nil {
			fail("cache", "unreachable")
		} else {
			checks["cache"] = "ok"
		}
	}
	if h.Jobs != nil {
		running, depth, capacity := h.Jobs.QueueStats()
		if !running {
			fail("workers", "stopped")
		} else {
			checks["workers"] = gin.H{"queued": depth, "capacity": capacity}
		}
	}

	code := http.StatusOK
	if status != "ready" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
