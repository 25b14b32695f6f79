package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type metricsSource interface {
	Handler() http.Handler
	Snapshot() models.SystemMetrics
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics metricsSource
	checks  map[string]Pinger
}

// NewMetricsHandler constructs a metrics handler. checks are probed by Ready.
func NewMetricsHandler(metrics metricsSource, checks map[string]Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready probes the configured dependencies.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	result := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			result[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "up"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
}

// Snapshot godoc
// @Summary Runtime metrics snapshot
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	response.OK(c, h.metrics.Snapshot())
}
