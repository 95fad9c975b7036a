package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/scopeview/internal/model"
)

// SortKeys lists the metrics channels can be ranked by.
var SortKeys = []string{"index", "name", "mean", "rms", "p2p", "std", "freq"}

// SortChannels orders channel statistics by key. Numeric metrics sort
// descending; ties fall back to channel index.
func SortChannels(channels []model.ChannelStats, key string) ([]model.ChannelStats, error) {
	metric, err := sortMetric(key)
	if err != nil {
		return nil, err
	}
	out := make([]model.ChannelStats, len(channels))
	copy(out, channels)
	switch strings.ToLower(key) {
	case "", "index":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	case "name":
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Name == out[j].Name {
				return out[i].Index < out[j].Index
			}
			return out[i].Name < out[j].Name
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			mi, mj := metric(out[i]), metric(out[j])
			if mi == mj {
				return out[i].Index < out[j].Index
			}
			return mi > mj
		})
	}
	return out, nil
}

func sortMetric(key string) (func(model.ChannelStats) float64, error) {
	switch strings.ToLower(key) {
	case "", "index", "name":
		return nil, nil
	case "mean":
		return func(cs model.ChannelStats) float64 { return cs.Mean }, nil
	case "rms":
		return func(cs model.ChannelStats) float64 { return cs.RMS }, nil
	case "p2p":
		return func(cs model.ChannelStats) float64 { return cs.PeakToPeak }, nil
	case "std":
		return func(cs model.ChannelStats) float64 { return cs.StdDev }, nil
	case "freq":
		return func(cs model.ChannelStats) float64 { return cs.Frequency }, nil
	default:
		return nil, fmt.Errorf("unknown sort key %q (expected one of %s)", key, strings.Join(SortKeys, ", "))
	}
}
