// Package schedule computes the desired relay state implied by a device's
// active window at a given instant. Evaluation is a pure function of its
// inputs, which is what makes the synchronizer's retry and replay safe.
package schedule

import (
	"time"

	"homesync/pkg/device"
)

// Evaluate maps (schedule, instant) to a desired relay state. The instant
// must already be in the deployment's configured time zone.
//
// The window [start, end) is half open: at exactly start the result flips
// to On, at exactly end it flips to Off. When end < start the window
// crosses midnight and runs from start until end on the following day, so
// an instant before end is also On when the previous weekday is active.
// start == end means a full 24h window on active days.
func Evaluate(s device.Schedule, now time.Time) device.DesiredState {
	if !s.Enabled() {
		return device.NoOpinion
	}

	start := s.Start.Minutes()
	end := s.End.Minutes()
	cur := now.Hour()*60 + now.Minute()
	today := now.Weekday()

	switch {
	case start == end:
		if s.Days.Has(today) {
			return device.On
		}
	case start < end:
		if s.Days.Has(today) && cur >= start && cur < end {
			return device.On
		}
	default:
		if s.Days.Has(today) && cur >= start {
			return device.On
		}
		yesterday := (today + 6) % 7
		if s.Days.Has(yesterday) && cur < end {
			return device.On
		}
	}
	return device.Off
}
