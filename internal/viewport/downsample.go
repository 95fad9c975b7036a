package viewport

import (
	"sort"

	"github.com/verte-zerg/scopeview/internal/model"
)

// DefaultMaxPoints bounds the rows handed to a renderer.
const DefaultMaxPoints = 5000

// VisibleIndices resolves channel names to dataset indices, skipping unknown
// names. A nil names list selects every channel enabled in settings.
func VisibleIndices(ds *model.Dataset, s model.ScopeSettings, names []string) []int {
	if names == nil {
		names = s.EnabledNames()
	}
	out := make([]int, 0, len(names))
	for _, name := range names {
		if idx, ok := ds.ChannelIndex(name); ok {
			out = append(out, idx)
		}
	}
	return out
}

// visibleRange returns the index range [start, end) of samples inside x.
func visibleRange(ds *model.Dataset, x model.Domain) (int, int) {
	n := len(ds.Time)
	start := sort.Search(n, func(i int) bool { return ds.Time[i] >= x.Min })
	end := sort.Search(n, func(i int) bool { return ds.Time[i] > x.Max })
	return start, end
}

func validIndices(ds *model.Dataset, visible []int) []int {
	out := make([]int, 0, len(visible))
	for _, idx := range visible {
		if idx >= 0 && idx < len(ds.Channels) {
			out = append(out, idx)
		}
	}
	return out
}

func rowAt(ds *model.Dataset, i int, channels []int) model.Row {
	values := make([]float64, len(channels))
	for j, idx := range channels {
		values[j] = ds.Channels[idx].Values[i]
	}
	return model.Row{Time: ds.Time[i], Values: values}
}

// Downsample decimates the samples inside x to at most maxPoints rows by
// keeping every ceil(n/maxPoints)-th sample. Each row holds the values of the
// visible channels in the given order. maxPoints <= 0 selects
// DefaultMaxPoints.
func Downsample(ds *model.Dataset, x model.Domain, visible []int, maxPoints int) []model.Row {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	start, end := visibleRange(ds, x)
	count := end - start
	if count <= 0 {
		return nil
	}
	channels := validIndices(ds, visible)
	step := 1
	if count > maxPoints {
		step = (count-1)/maxPoints + 1
	}
	rows := make([]model.Row, 0, (count-1)/step+1)
	for i := start; i < end; i += step {
		rows = append(rows, rowAt(ds, i, channels))
	}
	return rows
}

// DownsampleEnvelope keeps narrow transients by emitting, per bucket, the
// per-channel minimum at the bucket's first time and the maximum at its last
// time. The row bound is the same as Downsample.
func DownsampleEnvelope(ds *model.Dataset, x model.Domain, visible []int, maxPoints int) []model.Row {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	start, end := visibleRange(ds, x)
	count := end - start
	if count <= maxPoints || maxPoints < 2 {
		return Downsample(ds, x, visible, maxPoints)
	}
	channels := validIndices(ds, visible)
	buckets := maxPoints / 2
	size := (count-1)/buckets + 1
	rows := make([]model.Row, 0, maxPoints)
	for lo := start; lo < end; lo += size {
		hi := lo + size
		if hi > end {
			hi = end
		}
		if hi-lo == 1 {
			rows = append(rows, rowAt(ds, lo, channels))
			continue
		}
		mins := make([]float64, len(channels))
		maxs := make([]float64, len(channels))
		for j, idx := range channels {
			values := ds.Channels[idx].Values[lo:hi]
			mins[j], maxs[j] = values[0], values[0]
			for _, v := range values[1:] {
				if v < mins[j] {
					mins[j] = v
				}
				if v > maxs[j] {
					maxs[j] = v
				}
			}
		}
		rows = append(rows,
			model.Row{Time: ds.Time[lo], Values: mins},
			model.Row{Time: ds.Time[hi-1], Values: maxs},
		)
	}
	return rows
}
