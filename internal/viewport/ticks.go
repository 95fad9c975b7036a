package viewport

import "github.com/verte-zerg/scopeview/internal/model"

// Tick counts, one per grid line.
const (
	XTickCount = HorizontalDivisions + 1
	YTickCount = VerticalDivisions + 1
)

// Ticks returns n evenly spaced values from d.Min to d.Max inclusive.
func Ticks(d model.Domain, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{d.Min}
	}
	out := make([]float64, n)
	step := d.Span() / float64(n-1)
	for i := range out {
		out[i] = d.Min + step*float64(i)
	}
	out[n-1] = d.Max
	return out
}

// WindowTicks returns the x and y grid ticks of w.
func WindowTicks(w model.ViewWindow) (xs, ys []float64) {
	return Ticks(w.X, XTickCount), Ticks(w.Y, YTickCount)
}
