// Package web holds the HTTP plumbing shared by every route group: CORS,
// the root banner, health, and metrics exposition.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// WelcomeMessage is served at the API root.
const WelcomeMessage = "Welcome to the E-Learning Platform API!"

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MountRootRoutes registers GET /, GET /healthz, and, when gatherer is not
// nil, GET /metrics.
func MountRootRoutes(router gin.IRouter, database Pinger, gatherer prometheus.Gatherer, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	router.GET("/", func(contextGin *gin.Context) {
		contextGin.String(http.StatusOK, WelcomeMessage)
	})
	router.GET("/healthz", func(contextGin *gin.Context) {
		ctx, cancel := context.WithTimeout(contextGin.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := database.Ping(ctx); err != nil {
			logger.Error("health check failed",
				zap.String("code", "health.database"),
				zap.Error(err))
			contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
