package scope

import (
	"math"

	"github.com/verte-zerg/scopeview/internal/model"
)

// TimebaseLadder lists selectable time/div values in seconds.
var TimebaseLadder = []float64{
	1e-9, 2e-9, 5e-9, 10e-9, 20e-9, 50e-9, 100e-9, 200e-9, 500e-9,
	1e-6, 2e-6, 5e-6, 10e-6, 20e-6, 50e-6, 100e-6, 200e-6, 500e-6,
	1e-3, 2e-3, 5e-3, 10e-3, 20e-3, 50e-3, 100e-3, 200e-3, 500e-3,
	1, 2, 5,
}

// VoltsLadder lists selectable volts/div values.
var VoltsLadder = []float64{
	0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50,
}

// Closest returns the index of the ladder value nearest to v. Ties resolve to
// the smaller value.
func Closest(ladder []float64, v float64) int {
	best := 0
	for i := 1; i < len(ladder); i++ {
		if math.Abs(ladder[i]-v) < math.Abs(ladder[best]-v) {
			best = i
		}
	}
	return best
}

// Step snaps v to the ladder and moves one entry up (dir > 0) or down
// (dir < 0), clamped at the ends.
func Step(ladder []float64, v float64, dir int) float64 {
	if len(ladder) == 0 {
		return v
	}
	i := Closest(ladder, v)
	switch {
	case dir > 0 && i < len(ladder)-1:
		i++
	case dir < 0 && i > 0:
		i--
	}
	return ladder[i]
}

// StepTimebase returns settings with time/div moved one ladder step.
func StepTimebase(s model.ScopeSettings, dir int) model.ScopeSettings {
	out := s.Clone()
	out.TimePerDiv = Step(TimebaseLadder, s.TimePerDiv, dir)
	return out
}

// StepXPosition moves the horizontal position by a tenth of a division.
func StepXPosition(s model.ScopeSettings, dir int) model.ScopeSettings {
	out := s.Clone()
	out.XPosition += float64(sign(dir)) * s.TimePerDiv / 10
	return out
}

// StepVoltsPerDiv moves a channel's volts/div one ladder step. Unknown
// channels leave the settings unchanged.
func StepVoltsPerDiv(s model.ScopeSettings, name string, dir int) model.ScopeSettings {
	return updateChannel(s, name, func(ch *model.ChannelSettings) {
		ch.VoltsPerDiv = Step(VoltsLadder, ch.VoltsPerDiv, dir)
	})
}

// StepYPosition moves a channel's vertical position by a tenth of a division.
func StepYPosition(s model.ScopeSettings, name string, dir int) model.ScopeSettings {
	return updateChannel(s, name, func(ch *model.ChannelSettings) {
		ch.YPosition += float64(sign(dir)) * ch.VoltsPerDiv / 10
	})
}

// ToggleChannel flips a channel's enabled flag.
func ToggleChannel(s model.ScopeSettings, name string) model.ScopeSettings {
	return updateChannel(s, name, func(ch *model.ChannelSettings) {
		ch.Enabled = !ch.Enabled
	})
}

// Validate reports whether settings are usable for display.
func Validate(s model.ScopeSettings) bool {
	if !(s.TimePerDiv > 0) || math.IsInf(s.TimePerDiv, 0) || math.IsNaN(s.XPosition) {
		return false
	}
	for _, ch := range s.Channels {
		if !(ch.VoltsPerDiv > 0) || math.IsInf(ch.VoltsPerDiv, 0) || math.IsNaN(ch.YPosition) {
			return false
		}
	}
	return true
}

func updateChannel(s model.ScopeSettings, name string, fn func(*model.ChannelSettings)) model.ScopeSettings {
	out := s.Clone()
	for i := range out.Channels {
		if out.Channels[i].Name == name {
			fn(&out.Channels[i])
			break
		}
	}
	return out
}

func sign(dir int) int {
	switch {
	case dir > 0:
		return 1
	case dir < 0:
		return -1
	}
	return 0
}
