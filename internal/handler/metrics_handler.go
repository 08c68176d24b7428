package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduportal-api/internal/service"
	"github.com/noah-isme/eduportal-api/pkg/jobs"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type queueStats interface {
	Stats() jobs.Stats
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	queue   queueStats
}

// NewMetricsHandler constructs a metrics handler. db and queue feed the readiness probe.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, queue queueStats) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, queue: queue}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers and how the notification queue is doing.
func (h *MetricsHandler) Ready(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.queue != nil {
		stats := h.queue.Stats()
		body["notifications"] = gin.H{"processed": stats.Processed, "failed": stats.Failed, "dropped": stats.Dropped}
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			_ = c.Error(err)
			body["status"] = "unavailable"
			body["database"] = "down"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "up"
	}
	c.JSON(http.StatusOK, body)
}
