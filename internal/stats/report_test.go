package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/scopeview/internal/model"
)

func TestRenderReport(t *testing.T) {
	ds := sineDataset(1000, 10, 1, 0)
	settings := model.ScopeSettings{TimePerDiv: 1e-3, Channels: []model.ChannelSettings{{Name: "Channel A", VoltsPerDiv: 1, Enabled: true}}}
	r := BuildReport(ds, settings)

	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "Capture statistics: sine.csv")
	assert.Contains(t, out, "Sample rate")
	assert.Contains(t, out, "Frequency")
	assert.Contains(t, out, "Channel A")
	assert.Contains(t, out, "10 ms")

	lines := ChannelLines(r.Statistics.Channels)
	require.Len(t, lines, 2)
	assert.Equal(t, displayWidth(lines[0]), displayWidth(lines[1]))
}

func TestBuildReportClonesSettings(t *testing.T) {
	settings := model.ScopeSettings{Channels: []model.ChannelSettings{{Name: "Channel A", Enabled: true}}}
	r := BuildReport(&model.Dataset{}, settings)
	settings.Channels[0].Enabled = false
	assert.True(t, r.Settings.Channels[0].Enabled)
}

func TestSortChannels(t *testing.T) {
	channels := []model.ChannelStats{
		{Name: "Channel A", Index: 0, RMS: 1, Frequency: 50},
		{Name: "Channel B", Index: 1, RMS: 3, Frequency: 50},
		{Name: "Channel C", Index: 2, RMS: 2, Frequency: 60},
	}

	byRMS, err := SortChannels(channels, "rms")
	require.NoError(t, err)
	assert.Equal(t, []string{"Channel B", "Channel C", "Channel A"}, names(byRMS))

	byFreq, err := SortChannels(channels, "FREQ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Channel C", "Channel A", "Channel B"}, names(byFreq))

	byIndex, err := SortChannels(byRMS, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Channel A", "Channel B", "Channel C"}, names(byIndex))

	_, err = SortChannels(channels, "median")
	assert.Error(t, err)
}

func names(channels []model.ChannelStats) []string {
	out := make([]string, len(channels))
	for i, cs := range channels {
		out[i] = cs.Name
	}
	return out
}

func TestOverallLinesAligned(t *testing.T) {
	lines := OverallLines(model.OverallStats{Duration: 0.01, SampleRate: 1e5, TotalSamples: 1000, ChannelCount: 2})
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Sample rate"))
	assert.True(t, strings.HasSuffix(lines[1], "100 kSa/s"))
}
