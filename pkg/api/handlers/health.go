package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homesync/pkg/api/types"
	"homesync/pkg/clock"
)

// HealthHandler handles the health check endpoint
type HealthHandler struct {
	clock clock.Clock
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(clk clock.Clock) *HealthHandler {
	return &HealthHandler{clock: clk}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Timestamp: h.clock.Now(),
	})
}
