// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"

	"github.com/verte-zerg/scopeview/internal/model"
)

// Compute derives per-channel and overall statistics from a dataset.
// Channels without samples are omitted.
func Compute(ds *model.Dataset) model.Statistics {
	duration := ds.Duration()
	out := model.Statistics{
		Overall: Overall(ds),
	}
	for _, ch := range ds.Channels {
		if len(ch.Values) == 0 {
			continue
		}
		cs := ChannelMetrics(ch.Values, duration)
		cs.Name = ch.Name
		cs.Index = ch.Index
		out.Channels = append(out.Channels, cs)
	}
	return out
}

// Overall summarizes the time axis of a dataset.
func Overall(ds *model.Dataset) model.OverallStats {
	duration := ds.Duration()
	total := ds.Len()
	rate := 0.0
	if duration > 0 {
		rate = float64(total) / duration
	}
	return model.OverallStats{
		Duration:     duration,
		SampleRate:   rate,
		TotalSamples: total,
		ChannelCount: len(ds.Channels),
	}
}

// ChannelMetrics computes descriptive statistics for one channel. The
// variance is the population variance.
func ChannelMetrics(values []float64, duration float64) model.ChannelStats {
	if len(values) == 0 {
		return model.ChannelStats{}
	}
	n := float64(len(values))
	var sum, sumSquares float64
	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		sum += v
		sumSquares += v * v
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	mean := sum / n

	var sqDev float64
	for _, v := range values {
		d := v - mean
		sqDev += d * d
	}

	return model.ChannelStats{
		Mean:       mean,
		RMS:        math.Sqrt(sumSquares / n),
		PeakToPeak: maxVal - minVal,
		Min:        minVal,
		Max:        maxVal,
		StdDev:     math.Sqrt(sqDev / n),
		Frequency:  ZeroCrossingFrequency(values, mean, duration),
	}
}

// ZeroCrossingFrequency estimates the fundamental frequency from sign changes
// around the mean. Each period contributes two crossings.
func ZeroCrossingFrequency(values []float64, mean, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(ZeroCrossings(values, mean)) / (2 * duration)
}

// ZeroCrossings counts adjacent samples on strictly opposite sides of baseline.
func ZeroCrossings(values []float64, baseline float64) int {
	crossings := 0
	for i := 1; i < len(values); i++ {
		if (values[i-1]-baseline)*(values[i]-baseline) < 0 {
			crossings++
		}
	}
	return crossings
}
