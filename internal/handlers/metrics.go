package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
	"github.com/PratikDhanave/persio-forwarder/internal/host"
)

// RegisterMetricRoutes registers the host counters endpoint.
//
// GET /metrics[?event_type=...]
// - Requires X-API-Key
// - Without event_type returns all counters
// - With event_type returns the dispatch count for that type
func RegisterMetricRoutes(r gin.IRoutes, m *host.Manager) {
	r.GET("/metrics", func(c *gin.Context) {
		stats := m.Stats()

		eventType := c.Query("event_type")
		if eventType == "" {
			c.JSON(http.StatusOK, stats)
			return
		}
		if !component.KnownEventType(eventType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event_type"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"event_type": eventType,
			"count":      stats.Dispatched[eventType],
		})
	})
}
