package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/scopeview/internal/model"
)

// Report bundles everything needed to render or export capture statistics.
type Report struct {
	Source     string              `json:"source" yaml:"source"`
	Statistics model.Statistics    `json:"statistics" yaml:"statistics"`
	Settings   model.ScopeSettings `json:"settings" yaml:"settings"`
}

// BuildReport computes statistics for ds and pairs them with settings.
func BuildReport(ds *model.Dataset, settings model.ScopeSettings) Report {
	return Report{
		Source:     ds.SourceName,
		Statistics: Compute(ds),
		Settings:   settings.Clone(),
	}
}

// OverallLines renders the overall statistics as aligned text lines.
func OverallLines(o model.OverallStats) []string {
	rows := [][]string{
		{"Duration", FormatSI(o.Duration, "s")},
		{"Sample rate", FormatRate(o.SampleRate)},
		{"Samples", strconv.Itoa(o.TotalSamples)},
		{"Channels", strconv.Itoa(o.ChannelCount)},
	}
	return formatTable([]column{{}, {right: true}}, rows)
}

// ChannelHeaders are the column titles of the per-channel table.
var ChannelHeaders = []string{"Channel", "Mean", "RMS", "Pk-Pk", "Min", "Max", "Std Dev", "Frequency"}

// ChannelRow formats one channel's statistics as table cells.
func ChannelRow(cs model.ChannelStats) []string {
	return []string{
		cs.Name,
		FormatSI(cs.Mean, "V"),
		FormatSI(cs.RMS, "V"),
		FormatSI(cs.PeakToPeak, "V"),
		FormatSI(cs.Min, "V"),
		FormatSI(cs.Max, "V"),
		FormatSI(cs.StdDev, "V"),
		FormatSI(cs.Frequency, "Hz"),
	}
}

// ChannelLines renders the per-channel statistics table.
func ChannelLines(channels []model.ChannelStats) []string {
	rows := make([][]string, 0, len(channels))
	for _, cs := range channels {
		rows = append(rows, ChannelRow(cs))
	}
	cols := make([]column, len(ChannelHeaders))
	for i, title := range ChannelHeaders {
		cols[i] = column{title: title, right: i > 0}
	}
	return formatTable(cols, rows)
}

// RenderReport writes a plain-text statistics report.
func RenderReport(w io.Writer, r Report) error {
	title := "Capture statistics"
	if r.Source != "" {
		title += ": " + r.Source
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	for _, line := range OverallLines(r.Statistics.Overall) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(r.Statistics.Channels) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	for _, line := range ChannelLines(r.Statistics.Channels) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
