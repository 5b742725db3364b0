package types

import (
	"time"

	"homesync/pkg/device"
)

// --- Request DTOs ---

// OverrideRelayRequest is the request body for POST /relays/:id/state
type OverrideRelayRequest struct {
	State string `json:"state" binding:"required"` // "ON" or "OFF"
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceDTO is a device record plus its stable identity
type DeviceDTO struct {
	ID string `json:"id"`
	device.Record
}

// ListDevicesResponse is returned from GET /devices
type ListDevicesResponse struct {
	Devices []DeviceDTO `json:"devices"`
	Count   int         `json:"count"`
}

// DeviceResponse is returned from GET/POST/PUT /devices/:id
type DeviceResponse struct {
	Device DeviceDTO `json:"device"`
}

// RelayStateDTO is a relay's last confirmed state
type RelayStateDTO struct {
	Relay     string    `json:"relay"`
	State     string    `json:"state"` // "ON" or "OFF"
	ChangedAt time.Time `json:"changed_at"`
	Source    string    `json:"source"`
}

// ListRelaysResponse is returned from GET /relays
type ListRelaysResponse struct {
	Relays []RelayStateDTO `json:"relays"`
	Count  int             `json:"count"`
}

// RelayResponse is returned from GET /relays/:id and POST /relays/:id/state
type RelayResponse struct {
	Relay RelayStateDTO `json:"relay"`
}

// NewDeviceDTO builds the wire view of a device.
func NewDeviceDTO(d device.Device) DeviceDTO {
	return DeviceDTO{ID: d.ID, Record: d.Record()}
}

// NewRelayStateDTO builds the wire view of a relay state.
func NewRelayStateDTO(st device.RelayState) RelayStateDTO {
	return RelayStateDTO{
		Relay:     st.Relay,
		State:     device.StateLabel(st.On),
		ChangedAt: st.ChangedAt,
		Source:    string(st.Source),
	}
}
