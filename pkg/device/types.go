package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Device represents a schedulable smart home appliance.
type Device struct {
	ID       string   `json:"id"`    // Stable unique identifier (UUID)
	Name     string   `json:"name"`  // Display name, e.g. "Air-con" (mutable)
	Room     string   `json:"room"`  // Room name, e.g. "Bedroom"
	Type     string   `json:"type"`  // Device type tag, e.g. "Socket 2"
	Relay    string   `json:"relay"` // Relay identifier, e.g. "relay4"; many devices may share one
	Icon     int      `json:"icon"`  // Icon code point, opaque to this system
	KWh      float64  `json:"kwh"`   // Rated power draw; reporting only, never a control input
	Schedule Schedule `json:"schedule"`
}

// Schedule is a device's recurring active window. It is a value type:
// edits replace the whole schedule, never patch fields in place.
type Schedule struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
	Days  DaySet    `json:"days"`
}

// Enabled reports whether the schedule drives its relay at all.
// An empty weekday set means the relay is under manual control.
func (s Schedule) Enabled() bool {
	return !s.Days.Empty()
}

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses the "H:M" wire form used by HomeSync records.
// Single-digit hours and minutes are accepted ("6:0", "18:30").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: time %q is not in H:M form", ErrConfig, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: time %q has invalid hour", ErrConfig, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: time %q has invalid minute", ErrConfig, s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String renders the original wire form, without zero padding.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// DaySet is a set of weekdays, stored as a bitmask indexed by time.Weekday.
type DaySet uint8

var dayCodes = map[string]time.Weekday{
	"Sun": time.Sunday,
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
}

// ParseDays builds a DaySet from three-letter weekday codes.
func ParseDays(codes []string) (DaySet, error) {
	var set DaySet
	for _, code := range codes {
		day, ok := dayCodes[code]
		if !ok {
			return 0, fmt.Errorf("%w: unknown weekday code %q", ErrConfig, code)
		}
		set |= 1 << uint(day)
	}
	return set, nil
}

// Has reports whether the given weekday is in the set.
func (d DaySet) Has(day time.Weekday) bool {
	return d&(1<<uint(day)) != 0
}

// Empty reports whether no weekday is set.
func (d DaySet) Empty() bool {
	return d == 0
}

// Codes returns the three-letter codes in Sun..Sat order.
func (d DaySet) Codes() []string {
	codes := make([]string, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		if d.Has(day) {
			codes = append(codes, day.String()[:3])
		}
	}
	return codes
}

// Source identifies what caused a relay transition.
type Source string

const (
	SourceSchedule Source = "schedule"
	SourceManual   Source = "manual"
)

// RelayState is the last confirmed state of a relay. One exists per relay
// identifier, created on the first confirmed write and never deleted while
// any device references the relay.
type RelayState struct {
	Relay     string    `json:"relay"`
	On        bool      `json:"on"`
	ChangedAt time.Time `json:"changed_at"`
	Source    Source    `json:"source"`
}

// StateLabel renders a relay state for notifications and API responses.
func StateLabel(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// DesiredState is the outcome of evaluating a schedule at an instant.
// The ordering is significant: aggregation across devices sharing a relay
// takes the maximum, so On dominates Off dominates NoOpinion.
type DesiredState int

const (
	NoOpinion DesiredState = iota
	Off
	On
)

func (d DesiredState) String() string {
	switch d {
	case On:
		return "ON"
	case Off:
		return "OFF"
	default:
		return "NO_OPINION"
	}
}
