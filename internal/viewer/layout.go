package viewer

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/stats"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

// panel is one stacked plot: the channels it draws and their window.
type panel struct {
	names   []string
	indices []int
	window  model.ViewWindow
}

// panelsFor splits the enabled channels into plots. In separate mode every
// channel gets its own y domain; all plots share x.
func panelsFor(c *session.Capture, x model.Domain, separate bool) []panel {
	visible := viewport.VisibleIndices(c.Dataset, c.Settings, nil)
	if len(visible) == 0 {
		return nil
	}
	if !separate {
		w := viewport.Recenter(c.Settings, nil, false)
		w.X = x
		names := make([]string, len(visible))
		for i, idx := range visible {
			names[i] = c.Dataset.Channels[idx].Name
		}
		return []panel{{names: names, indices: visible, window: w}}
	}
	out := make([]panel, 0, len(visible))
	for _, idx := range visible {
		name := c.Dataset.Channels[idx].Name
		w := viewport.Recenter(c.Settings, []string{name}, true)
		w.X = x
		out = append(out, panel{names: []string{name}, indices: []int{idx}, window: w})
	}
	return out
}

func axisWidthFor(panels []panel) int {
	width := 0
	for _, p := range panels {
		if w := stats.AxisWidth(p.window); w > width {
			width = w
		}
	}
	return width
}

// plotRectFor is the horizontal extent of the braille area, shared by every
// panel.
func plotRectFor(panels []panel, totalWidth int) viewport.Rect {
	axis := axisWidthFor(panels)
	return viewport.Rect{
		Left:  float64(axis),
		Width: float64(stats.PlotWidthFor(totalWidth, axis)),
	}
}

// panelHeight is the braille row count of each panel; every panel also
// takes a time axis line and a legend line.
func panelHeight(bodyHeight, count int) int {
	if count <= 0 {
		return 0
	}
	return maxInt(2, bodyHeight/count-2)
}

func statsColumns(rows []table.Row) []table.Column {
	cols := make([]table.Column, len(stats.ChannelHeaders))
	for i, title := range stats.ChannelHeaders {
		width := lipgloss.Width(title)
		for _, row := range rows {
			if i < len(row) {
				width = maxInt(width, lipgloss.Width(row[i]))
			}
		}
		cols[i] = table.Column{Title: title, Width: width + 1}
	}
	return cols
}

func statsTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

// fitLines pads s to width and clips or fills it to exactly height lines.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
