package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/mantonx/streamhub/internal/server/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupCoreRoutes registers health, discovery and metrics endpoints
func setupCoreRoutes(r *gin.Engine, cfg *config.Config, started time.Time) {
	system := handlers.NewSystemHandler(started, database.Ping, modulemanager.HealthChecks)

	r.GET("/api", system.APIRoot)
	apiroutes.Register("/api", http.MethodGet, "Lists all available API endpoints.")

	r.GET("/api/health", system.Health)
	apiroutes.Register("/api/health", http.MethodGet, "System health: database, modules and resource usage.")

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
		apiroutes.Register(cfg.Metrics.Path, http.MethodGet, "Prometheus metrics.")
	}
}
