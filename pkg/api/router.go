package api

import (
	"github.com/gin-gonic/gin"

	"homesync/pkg/api/handlers"
	"homesync/pkg/clock"
	"homesync/pkg/device/schema"
	"homesync/pkg/metrics"
	"homesync/pkg/store"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	gateway   store.Gateway
	validator *schema.Validator
	clock     clock.Clock
	metrics   *metrics.Metrics
}

// NewRouter creates a new API router
func NewRouter(gateway store.Gateway, validator *schema.Validator, clk clock.Clock, m *metrics.Metrics) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	setupMiddleware(engine)

	router := &Router{
		engine:    engine,
		gateway:   gateway,
		validator: validator,
		clock:     clk,
		metrics:   m,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Health check and metrics at root
	healthHandler := handlers.NewHealthHandler(r.clock)
	r.engine.GET("/health", healthHandler.Health)
	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		// Health
		v1.GET("/health", healthHandler.Health)

		// Devices
		devicesHandler := handlers.NewDevicesHandler(r.gateway, r.validator)
		devices := v1.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.POST("", devicesHandler.CreateDevice)
			devices.GET("/:id", devicesHandler.GetDevice)
			devices.PUT("/:id", devicesHandler.UpdateDevice)
			devices.DELETE("/:id", devicesHandler.DeleteDevice)
		}

		// Relays
		relaysHandler := handlers.NewRelaysHandler(r.gateway, r.clock)
		relays := v1.Group("/relays")
		{
			relays.GET("", relaysHandler.ListRelays)
			relays.GET("/:id", relaysHandler.GetRelay)
			relays.POST("/:id/state", relaysHandler.OverrideRelay)
		}
	}
}

// Engine exposes the underlying Gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
