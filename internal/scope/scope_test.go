package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/scopeview/internal/model"
)

func TestDefaultSettings(t *testing.T) {
	ds := &model.Dataset{
		Time: []float64{0, 0.01, 0.02},
		Channels: []model.Channel{
			{Name: "Channel A", Values: []float64{-9, 2, 3}},
			{Name: "Channel B", Index: 1, Values: []float64{0, 0, 0}},
			{Name: "Channel C", Index: 2, Values: []float64{0.5, -0.25, 0}},
		},
	}
	s := DefaultSettings(ds)
	assert.InDelta(t, 0.002, s.TimePerDiv, 1e-15)
	assert.InDelta(t, 0.01, s.XPosition, 1e-15)
	require.Len(t, s.Channels, 3)
	assert.Equal(t, model.ChannelSettings{Name: "Channel A", VoltsPerDiv: 3, Enabled: true}, s.Channels[0])
	assert.Equal(t, 1.0, s.Channels[1].VoltsPerDiv)
	assert.Equal(t, 1.0, s.Channels[2].VoltsPerDiv)
}

func TestDefaultSettingsSingleSample(t *testing.T) {
	ds := &model.Dataset{
		Time:     []float64{5},
		Channels: []model.Channel{{Name: "Channel A", Values: []float64{12}}},
	}
	s := DefaultSettings(ds)
	assert.Equal(t, DefaultTimePerDiv, s.TimePerDiv)
	assert.Equal(t, 0.0, s.XPosition)
	assert.Equal(t, 3.0, s.Channels[0].VoltsPerDiv)
}

func TestStepTimebase(t *testing.T) {
	s := model.ScopeSettings{TimePerDiv: 1e-3}
	up := StepTimebase(s, 1)
	assert.Equal(t, 2e-3, up.TimePerDiv)
	assert.Equal(t, 1e-3, s.TimePerDiv)

	assert.Equal(t, 500e-6, StepTimebase(s, -1).TimePerDiv)
	assert.Equal(t, 5.0, StepTimebase(model.ScopeSettings{TimePerDiv: 5}, 1).TimePerDiv)
	assert.Equal(t, 1e-9, StepTimebase(model.ScopeSettings{TimePerDiv: 1e-12}, -1).TimePerDiv)
	assert.Equal(t, 2e-3, StepTimebase(model.ScopeSettings{TimePerDiv: 1.3e-3}, 1).TimePerDiv)
}

func TestClosestPrefersLowerOnTie(t *testing.T) {
	assert.Equal(t, 0, Closest([]float64{1, 3}, 2))
}

func TestStepPositions(t *testing.T) {
	s := model.ScopeSettings{
		TimePerDiv: 1e-3,
		Channels:   []model.ChannelSettings{{Name: "Channel A", VoltsPerDiv: 2, YPosition: 1, Enabled: true}},
	}
	assert.InDelta(t, 1e-4, StepXPosition(s, 1).XPosition, 1e-18)
	assert.InDelta(t, -1e-4, StepXPosition(s, -1).XPosition, 1e-18)

	down := StepYPosition(s, "Channel A", -1)
	assert.InDelta(t, 0.8, down.Channels[0].YPosition, 1e-12)
	assert.Equal(t, 1.0, s.Channels[0].YPosition)

	assert.Equal(t, 5.0, StepVoltsPerDiv(s, "Channel A", 1).Channels[0].VoltsPerDiv)
	assert.Equal(t, s, StepVoltsPerDiv(s, "Channel Z", 1))
}

func TestToggleChannel(t *testing.T) {
	s := model.ScopeSettings{Channels: []model.ChannelSettings{{Name: "Channel A", Enabled: true}}}
	off := ToggleChannel(s, "Channel A")
	assert.False(t, off.Channels[0].Enabled)
	assert.True(t, s.Channels[0].Enabled)
	assert.True(t, ToggleChannel(off, "Channel A").Channels[0].Enabled)
}

func TestValidate(t *testing.T) {
	ok := model.ScopeSettings{TimePerDiv: 1e-3, Channels: []model.ChannelSettings{{Name: "A", VoltsPerDiv: 1}}}
	assert.True(t, Validate(ok))
	assert.False(t, Validate(model.ScopeSettings{TimePerDiv: 0}))
	bad := ok.Clone()
	bad.Channels[0].VoltsPerDiv = -1
	assert.False(t, Validate(bad))
}
