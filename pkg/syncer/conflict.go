package syncer

import "homesync/pkg/device"

// Aggregate folds the desired states of every device sharing a relay into
// one authoritative state. The rule is OR-favors-ON, a deliberate design
// choice: any device wanting the relay on wins, so a configuration
// conflict errs toward the appliance being available rather than silently
// off. Only when every contribution is Off or NoOpinion, with at least
// one Off, is the aggregate Off; all NoOpinion leaves the relay under
// manual control.
//
// The fold is a maximum over the DesiredState ordering, so it is
// commutative and associative: device order never affects the result.
func Aggregate(states []device.DesiredState) device.DesiredState {
	agg := device.NoOpinion
	for _, st := range states {
		if st > agg {
			agg = st
		}
	}
	return agg
}

// conflicting reports whether contributions actively disagree.
func conflicting(states []device.DesiredState) bool {
	var hasOn, hasOff bool
	for _, st := range states {
		switch st {
		case device.On:
			hasOn = true
		case device.Off:
			hasOff = true
		}
	}
	return hasOn && hasOff
}
