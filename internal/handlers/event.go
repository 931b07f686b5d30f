package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/auth"
	"github.com/PratikDhanave/persio-forwarder/internal/host"
	"github.com/PratikDhanave/persio-forwarder/internal/ingest"
	"github.com/PratikDhanave/persio-forwarder/internal/models"
)

// RegisterEventRoutes registers the event ingress endpoint.
//
// POST /events/:type
// - Requires X-API-Key (event source)
// - :type is one of pageview, track, identify, alias, group
// - Client ip, userAgent and language default to the request's own values
// - Returns 202 once listeners ran; outbound delivery is not awaited
func RegisterEventRoutes(r gin.IRoutes, d *ingest.Dispatcher, log *zap.Logger) {
	r.POST("/events/:type", func(c *gin.Context) {
		var req models.DispatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		req.Type = c.Param("type")

		if req.Client.IP == "" {
			req.Client.IP = c.ClientIP()
		}
		if req.Client.UserAgent == "" {
			req.Client.UserAgent = c.GetHeader("User-Agent")
		}
		if req.Client.Language == "" {
			req.Client.Language = c.GetHeader("Accept-Language")
		}

		n, err := d.Dispatch(c.Request.Context(), req)
		switch {
		case errors.Is(err, ingest.ErrUnknownEventType), errors.Is(err, host.ErrNoListeners):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown event type"})
			return
		case errors.Is(err, ingest.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": "client.url must be a valid URL"})
			return
		case err != nil:
			log.Error("dispatch failed", zap.String("type", req.Type), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch failed"})
			return
		}

		log.Debug("event dispatched",
			zap.String("type", req.Type),
			zap.String("source", auth.Source(c)),
			zap.Int("listeners", n))

		c.JSON(http.StatusAccepted, models.DispatchResponse{Type: req.Type, Listeners: n})
	})
}
