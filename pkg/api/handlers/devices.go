package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"homesync/pkg/api/types"
	"homesync/pkg/device"
	"homesync/pkg/device/schema"
	"homesync/pkg/store"
)

// DevicesHandler handles device CRUD endpoints. Schedule changes go
// through here: a PUT replaces the whole record, which makes the store
// emit a schedule-edit event for the synchronizer.
type DevicesHandler struct {
	gateway   store.Gateway
	validator *schema.Validator
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(gateway store.Gateway, validator *schema.Validator) *DevicesHandler {
	return &DevicesHandler{gateway: gateway, validator: validator}
}

// ListDevices handles GET /devices
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	devices, err := h.gateway.ListDevices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]types.DeviceDTO, 0, len(devices))
	for _, d := range devices {
		result = append(result, types.NewDeviceDTO(d))
	}
	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: result,
		Count:   len(result),
	})
}

// GetDevice handles GET /devices/:id
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	d, err := h.gateway.ReadDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DeviceResponse{Device: types.NewDeviceDTO(*d)})
}

// CreateDevice handles POST /devices
func (h *DevicesHandler) CreateDevice(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	d, err := rec.Device("")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.gateway.CreateDevice(c.Request.Context(), &d); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.DeviceResponse{Device: types.NewDeviceDTO(d)})
}

// UpdateDevice handles PUT /devices/:id. The record is replaced whole;
// partial patches are not supported, so the synchronizer never evaluates
// a torn schedule.
func (h *DevicesHandler) UpdateDevice(c *gin.Context) {
	id := c.Param("id")

	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}
	d, err := rec.Device(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.gateway.UpdateDevice(c.Request.Context(), d); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DeviceResponse{Device: types.NewDeviceDTO(d)})
}

// DeleteDevice handles DELETE /devices/:id
func (h *DevicesHandler) DeleteDevice(c *gin.Context) {
	if err := h.gateway.DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindRecord reads and validates the request body against the record
// schema before decoding it.
func (h *DevicesHandler) bindRecord(c *gin.Context) (device.Record, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "failed to read request body",
		})
		return device.Record{}, false
	}
	if err := h.validator.ValidateRecord(body); err != nil {
		respondError(c, err)
		return device.Record{}, false
	}
	var rec device.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return device.Record{}, false
	}
	return rec, true
}
