package device

import "fmt"

// Record is the HomeSync wire shape for a device, as stored by the mobile
// and web clients. The appliance name is a display label only; identity
// lives in Device.ID.
type Record struct {
	ApplianceName string   `json:"applianceName"`
	RoomName      string   `json:"roomName"`
	DeviceType    string   `json:"deviceType"`
	Relay         string   `json:"relay"`
	Icon          int      `json:"icon"`
	KWh           float64  `json:"kwh"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Days          []string `json:"days"`
}

// Device converts the wire record into a domain device with the given
// identity. Malformed times or weekday codes return ErrConfig.
func (r Record) Device(id string) (Device, error) {
	if r.Relay == "" {
		return Device{}, fmt.Errorf("%w: device %q has no relay", ErrConfig, r.ApplianceName)
	}
	if r.KWh < 0 {
		return Device{}, fmt.Errorf("%w: device %q has negative kwh", ErrConfig, r.ApplianceName)
	}
	start, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return Device{}, fmt.Errorf("device %q start: %w", r.ApplianceName, err)
	}
	end, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return Device{}, fmt.Errorf("device %q end: %w", r.ApplianceName, err)
	}
	days, err := ParseDays(r.Days)
	if err != nil {
		return Device{}, fmt.Errorf("device %q days: %w", r.ApplianceName, err)
	}
	return Device{
		ID:    id,
		Name:  r.ApplianceName,
		Room:  r.RoomName,
		Type:  r.DeviceType,
		Relay: r.Relay,
		Icon:  r.Icon,
		KWh:   r.KWh,
		Schedule: Schedule{
			Start: start,
			End:   end,
			Days:  days,
		},
	}, nil
}

// Record converts the domain device back to the wire shape.
func (d Device) Record() Record {
	return Record{
		ApplianceName: d.Name,
		RoomName:      d.Room,
		DeviceType:    d.Type,
		Relay:         d.Relay,
		Icon:          d.Icon,
		KWh:           d.KWh,
		StartTime:     d.Schedule.Start.String(),
		EndTime:       d.Schedule.End.String(),
		Days:          d.Schedule.Days.Codes(),
	}
}
