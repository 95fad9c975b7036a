package generator

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/scopeview/internal/capture"
	"github.com/verte-zerg/scopeview/internal/scope"
	"github.com/verte-zerg/scopeview/internal/stats"
)

func TestParseWaveform(t *testing.T) {
	w, err := ParseWaveform(" Square ")
	require.NoError(t, err)
	assert.Equal(t, Square, w)

	_, err = ParseWaveform("chirp")
	assert.Error(t, err)
}

func TestDatasetShapes(t *testing.T) {
	g := NewWithSeed(1)
	ds, err := g.Dataset(Config{
		Samples:    5,
		SampleRate: 4,
		Signals: []Signal{
			{Wave: Square, Frequency: 1, Amplitude: 2},
			{Wave: Sawtooth, Frequency: 1, Amplitude: 1, Offset: 1},
			{Wave: Triangle, Frequency: 1, Amplitude: 1},
		},
	}, "synthetic.scp")
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, ds.Time)
	require.Len(t, ds.Channels, 3)
	assert.Equal(t, "Channel A", ds.Channels[0].Name)
	assert.Equal(t, "Channel C", ds.Channels[2].Name)
	assert.Equal(t, 2, ds.Channels[2].Index)
	assert.Equal(t, []float64{2, 2, -2, -2, 2}, ds.Channels[0].Values)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 0}, ds.Channels[1].Values, 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0, 1, 0, -1}, ds.Channels[2].Values, 1e-12)
}

func TestDatasetValidation(t *testing.T) {
	g := NewWithSeed(1)
	sine := []Signal{{Wave: Sine, Frequency: 1, Amplitude: 1}}

	_, err := g.Dataset(Config{Samples: 1, SampleRate: 10, Signals: sine}, "x")
	assert.Error(t, err)
	_, err = g.Dataset(Config{Samples: 10, SampleRate: 0, Signals: sine}, "x")
	assert.Error(t, err)
	_, err = g.Dataset(Config{Samples: 10, SampleRate: 10}, "x")
	assert.Error(t, err)
	_, err = g.Dataset(Config{Samples: 10, SampleRate: 10, Signals: []Signal{{Amplitude: -1}}}, "x")
	assert.Error(t, err)
}

func TestSeedIsDeterministic(t *testing.T) {
	cfg := Config{Samples: 50, SampleRate: 1000, Signals: []Signal{{Wave: Noise, Amplitude: 1}}}
	a, err := NewWithSeed(42).Dataset(cfg, "a")
	require.NoError(t, err)
	b, err := NewWithSeed(42).Dataset(cfg, "b")
	require.NoError(t, err)
	assert.Equal(t, a.Channels[0].Values, b.Channels[0].Values)

	for _, v := range a.Channels[0].Values {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
}

func TestWriteCaptureRoundTrip(t *testing.T) {
	g := NewWithSeed(7)
	ds, err := g.Dataset(Config{
		Samples:    1000,
		SampleRate: 100e3,
		Signals: []Signal{
			{Wave: Sine, Frequency: 1e3, Amplitude: 3, Phase: 0.3},
			{Wave: Square, Frequency: 1e3, Amplitude: 1, Phase: 0.3},
		},
	}, "synthetic.scp")
	require.NoError(t, err)

	settings := scope.DefaultSettings(ds)
	var buf bytes.Buffer
	require.NoError(t, WriteCapture(&buf, ds, settings))

	res, err := capture.Parse(buf.String(), "synthetic.scp")
	require.NoError(t, err)
	require.NotNil(t, res.Settings)
	assert.Equal(t, []string{"Channel A", "Channel B"}, res.Dataset.ChannelNames())
	assert.Equal(t, 1000, res.Dataset.Len())
	assert.InDelta(t, settings.TimePerDiv, res.Settings.TimePerDiv, 1e-9)

	a, ok := res.Settings.Channel("Channel A")
	require.True(t, ok)
	assert.Equal(t, 1.0, a.VoltsPerDiv)
	assert.True(t, a.Enabled)

	st := stats.Compute(&res.Dataset)
	require.Len(t, st.Channels, 2)
	// 1000 samples at 100 kHz cover ten periods.
	assert.InDelta(t, 1000.0, st.Channels[0].Frequency, 60)
	assert.InDelta(t, 1000.0, st.Channels[1].Frequency, 60)
	assert.InDelta(t, 3.0/math.Sqrt2, st.Channels[0].RMS, 0.01)
}
