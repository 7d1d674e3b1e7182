package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"orderbackup/internal/auth"
)

// WriteAuditMiddleware logs every mutating /api request with the caller and
// outcome. Reads are not logged.
func WriteAuditMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if claims, ok := auth.ClaimsFrom(c); ok {
			fields = append(fields, zap.String("subject", claims.Subject), zap.String("role", claims.Role))
		}
		switch {
		case status >= 500:
			logger.Error("api write", fields...)
		case status >= 400:
			logger.Warn("api write", fields...)
		default:
			logger.Info("api write", fields...)
		}
	}
}

// RegisterMetrics exposes the gatherer on /metrics.
func RegisterMetrics(r *gin.Engine, g prometheus.Gatherer) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
