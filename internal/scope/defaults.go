// Package scope derives and adjusts instrument-style display settings.
package scope

import (
	"math"

	"github.com/verte-zerg/scopeview/internal/model"
)

// Fallbacks used when a capture gives nothing better.
const (
	DefaultTimePerDiv  = 1e-3
	DefaultVoltsPerDiv = 1.0
)

// DefaultSettings derives display settings from the data's own extent: ten
// divisions span the capture, the view is centered on it, and each channel's
// peak magnitude fills four divisions.
func DefaultSettings(ds *model.Dataset) model.ScopeSettings {
	duration := ds.Duration()
	s := model.ScopeSettings{
		TimePerDiv: DefaultTimePerDiv,
		XPosition:  duration / 2,
		Channels:   make([]model.ChannelSettings, 0, len(ds.Channels)),
	}
	if duration > 0 {
		s.TimePerDiv = duration / 10
	}
	for _, ch := range ds.Channels {
		s.Channels = append(s.Channels, model.ChannelSettings{
			Name:        ch.Name,
			VoltsPerDiv: voltsPerDivFor(ch.Values),
			Enabled:     true,
		})
	}
	return s
}

func voltsPerDivFor(values []float64) float64 {
	peak := 0.0
	for _, v := range values {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	vpd := math.Ceil(peak / 4)
	if vpd <= 0 {
		return DefaultVoltsPerDiv
	}
	return vpd
}
