package store

import (
	"context"

	"homesync/pkg/device"
)

// ScheduleEdit is emitted whenever a device's schedule is replaced.
type ScheduleEdit struct {
	DeviceID string
	Schedule device.Schedule
}

// Gateway is the sole component allowed to read and write persisted device
// and relay records. The synchronizer treats it as the source of truth: no
// cached state survives a gateway error, and a relay's recorded state only
// advances on a confirmed WriteRelayState.
type Gateway interface {
	ReadDevice(ctx context.Context, id string) (*device.Device, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
	CreateDevice(ctx context.Context, d *device.Device) error
	// UpdateDevice replaces the whole record and emits a ScheduleEdit.
	UpdateDevice(ctx context.Context, d device.Device) error
	DeleteDevice(ctx context.Context, id string) error

	// ReadRelayState returns device.ErrNotFound until the relay's first
	// confirmed write.
	ReadRelayState(ctx context.Context, relayID string) (*device.RelayState, error)
	ListRelayStates(ctx context.Context) ([]device.RelayState, error)
	// WriteRelayState persists the state. An error means the write did not
	// happen; there is no silent success.
	WriteRelayState(ctx context.Context, st device.RelayState) error

	// SubscribeToScheduleEdits returns a cancellable event stream. The
	// cancel function must be called to release the subscription.
	SubscribeToScheduleEdits() (<-chan ScheduleEdit, func())
}
