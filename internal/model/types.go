// Package model defines shared data structures.
package model

// Channel is one voltage trace of a capture. Index is assigned once at parse
// time and equals the channel's position in Dataset.Channels.
type Channel struct {
	Name   string
	Index  int
	Values []float64
}

// Dataset is a parsed multi-channel capture. Every channel has len(Time) samples.
type Dataset struct {
	SourceName string
	Time       []float64
	Channels   []Channel
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Time)
}

// ChannelNames returns channel names in index order.
func (d *Dataset) ChannelNames() []string {
	names := make([]string, len(d.Channels))
	for i, ch := range d.Channels {
		names[i] = ch.Name
	}
	return names
}

// ChannelIndex looks up a channel by name.
func (d *Dataset) ChannelIndex(name string) (int, bool) {
	for i, ch := range d.Channels {
		if ch.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Duration returns last-first time, or 0 for fewer than two samples.
func (d *Dataset) Duration() float64 {
	if len(d.Time) < 2 {
		return 0
	}
	return d.Time[len(d.Time)-1] - d.Time[0]
}

// ChannelStats holds descriptive statistics for one channel.
type ChannelStats struct {
	Name       string  `json:"name" yaml:"name"`
	Index      int     `json:"index" yaml:"index"`
	Mean       float64 `json:"mean" yaml:"mean"`
	RMS        float64 `json:"rms" yaml:"rms"`
	PeakToPeak float64 `json:"peakToPeak" yaml:"peak_to_peak"`
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
	StdDev     float64 `json:"stdDev" yaml:"std_dev"`
	Frequency  float64 `json:"frequency" yaml:"frequency"`
}

// OverallStats summarizes the time axis of a capture.
type OverallStats struct {
	Duration     float64 `json:"duration" yaml:"duration"`
	SampleRate   float64 `json:"sampleRate" yaml:"sample_rate"`
	TotalSamples int     `json:"totalSamples" yaml:"total_samples"`
	ChannelCount int     `json:"channelCount" yaml:"channel_count"`
}

// Statistics is the full result of the statistics engine.
type Statistics struct {
	Overall  OverallStats   `json:"overall" yaml:"overall"`
	Channels []ChannelStats `json:"channels" yaml:"channels"`
}

// ChannelSettings is the vertical setup of one scope channel.
type ChannelSettings struct {
	Name        string  `json:"name" yaml:"name"`
	VoltsPerDiv float64 `json:"voltsPerDiv" yaml:"volts_per_div"`
	YPosition   float64 `json:"yPosition" yaml:"y_position"`
	Enabled     bool    `json:"enabled" yaml:"enabled"`
}

// ScopeSettings is the instrument-style view state.
type ScopeSettings struct {
	TimePerDiv float64           `json:"timePerDiv" yaml:"time_per_div"`
	XPosition  float64           `json:"xPosition" yaml:"x_position"`
	Channels   []ChannelSettings `json:"channels" yaml:"channels"`
}

// Channel looks up the settings of a channel by name.
func (s ScopeSettings) Channel(name string) (ChannelSettings, bool) {
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChannelSettings{}, false
}

// EnabledNames returns the names of enabled channels in order.
func (s ScopeSettings) EnabledNames() []string {
	var names []string
	for _, ch := range s.Channels {
		if ch.Enabled {
			names = append(names, ch.Name)
		}
	}
	return names
}

// Clone returns a deep copy.
func (s ScopeSettings) Clone() ScopeSettings {
	out := s
	out.Channels = append([]ChannelSettings(nil), s.Channels...)
	return out
}

// Domain is a closed interval.
type Domain struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Span returns Max-Min.
func (d Domain) Span() float64 {
	return d.Max - d.Min
}

// Contains reports whether v lies within the interval.
func (d Domain) Contains(v float64) bool {
	return v >= d.Min && v <= d.Max
}

// ViewWindow is the visible time/voltage rectangle.
type ViewWindow struct {
	X Domain `json:"xDomain" yaml:"x_domain"`
	Y Domain `json:"yDomain" yaml:"y_domain"`
}

// Row is one renderable point: a time and one value per visible channel.
type Row struct {
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}
