package stats

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatSI renders v with an SI prefix and unit, e.g. 0.0025 "s" -> "2.5 ms".
func FormatSI(v float64, unit string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if math.Abs(v) < 1e-15 {
		return "0 " + unit
	}
	value, prefix := humanize.ComputeSI(v)
	return strconv.FormatFloat(value, 'g', 4, 64) + " " + prefix + unit
}

// FormatRate renders a sample rate, e.g. 1e6 -> "1 MSa/s".
func FormatRate(v float64) string {
	return FormatSI(v, "Sa/s")
}
