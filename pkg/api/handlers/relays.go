package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homesync/pkg/api/types"
	"homesync/pkg/clock"
	"homesync/pkg/device"
	"homesync/pkg/store"
)

// RelaysHandler exposes relay states and the manual override.
type RelaysHandler struct {
	gateway store.Gateway
	clock   clock.Clock
}

// NewRelaysHandler creates a new relays handler
func NewRelaysHandler(gateway store.Gateway, clk clock.Clock) *RelaysHandler {
	return &RelaysHandler{gateway: gateway, clock: clk}
}

// ListRelays handles GET /relays
func (h *RelaysHandler) ListRelays(c *gin.Context) {
	states, err := h.gateway.ListRelayStates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	result := make([]types.RelayStateDTO, 0, len(states))
	for _, st := range states {
		result = append(result, types.NewRelayStateDTO(st))
	}
	c.JSON(http.StatusOK, types.ListRelaysResponse{Relays: result, Count: len(result)})
}

// GetRelay handles GET /relays/:id
func (h *RelaysHandler) GetRelay(c *gin.Context) {
	st, err := h.gateway.ReadRelayState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.RelayResponse{Relay: types.NewRelayStateDTO(*st)})
}

// OverrideRelay handles POST /relays/:id/state. The write is recorded
// with a manual source; while any schedule holds an opinion on this
// relay, the next synchronization cycle re-asserts the scheduled state.
func (h *RelaysHandler) OverrideRelay(c *gin.Context) {
	var req types.OverrideRelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "state is required",
		})
		return
	}

	var on bool
	switch req.State {
	case "ON":
		on = true
	case "OFF":
		on = false
	default:
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: `state must be "ON" or "OFF"`,
		})
		return
	}

	st := device.RelayState{
		Relay:     c.Param("id"),
		On:        on,
		ChangedAt: h.clock.Now(),
		Source:    device.SourceManual,
	}
	if err := h.gateway.WriteRelayState(c.Request.Context(), st); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.RelayResponse{Relay: types.NewRelayStateDTO(st)})
}
