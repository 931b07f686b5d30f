package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/auth"
	"github.com/PratikDhanave/persio-forwarder/internal/config"
	"github.com/PratikDhanave/persio-forwarder/internal/handlers"
	"github.com/PratikDhanave/persio-forwarder/internal/host"
	"github.com/PratikDhanave/persio-forwarder/internal/ingest"
	"github.com/PratikDhanave/persio-forwarder/internal/store"
)

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready
// Authenticated: /events/:type, /metrics
func NewRouter(cfg config.Config, m *host.Manager, st store.Store, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the client store is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	d := &ingest.Dispatcher{Manager: m, Store: st, SessionTTL: cfg.SessionTTL, Log: log}
	handlers.RegisterEventRoutes(authGroup, d, log)
	handlers.RegisterMetricRoutes(authGroup, m)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
