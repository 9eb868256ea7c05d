// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/config"
	"github.com/fredmontagnon/arianeegeo/internal/handler"
	"github.com/fredmontagnon/arianeegeo/internal/middleware"
	"github.com/fredmontagnon/arianeegeo/internal/service"
)

// Deps bundles the services the routes need. Wiring happens in main;
// this package only receives finished dependencies.
type Deps struct {
	Monitor   *service.Monitor
	Dashboard *service.Dashboard
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// In Go, we pass dependencies explicitly — no DI container, no magic.
// Each handler gets exactly the dependencies it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	monitorHandler := handler.NewMonitorHandler(deps.Monitor, deps.Dashboard, logger)

	// Public endpoints (no auth)
	r.GET("/healthz", healthHandler.Healthz)

	// CORS middleware applies to the entire API group.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	api.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	monitor := api.Group("/monitor")
	{
		// The dashboard read payload is public; the triggers mutate state
		// and spend provider tokens, so they sit behind the admin secret.
		monitor.GET("/results", monitorHandler.Results)

		gated := monitor.Group("")
		gated.Use(middleware.AdminAuth(cfg.Auth.AdminSecret))
		{
			gated.POST("/run", monitorHandler.Run)
			gated.POST("/recommendations", monitorHandler.Recommendations)
		}
	}
}
