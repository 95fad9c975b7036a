package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/scopeview/internal/model"
)

// Waveform describes a braille plot of rows over a fixed view window.
// Names holds one label per value column of Rows.
type Waveform struct {
	Title  string
	Names  []string
	Rows   []model.Row
	Window model.ViewWindow
	Width  int
	Height int

	// MinAxisWidth pads the y labels so stacked plots share a left edge.
	MinAxisWidth int
}

type lineStyle struct {
	name   string
	period int
	on     int
}

type ansiColor struct {
	name string
	code string
}

const (
	defaultPlotHeight   = 16
	minPlotWidth        = 10
	minPlotHeight       = 2
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var colorPalette = []ansiColor{
	{name: "yellow", code: "\x1b[33m"},
	{name: "cyan", code: "\x1b[36m"},
	{name: "magenta", code: "\x1b[35m"},
	{name: "green", code: "\x1b[32m"},
	{name: "blue", code: "\x1b[34m"},
}

// PlotWaveform writes a waveform plot, colored when w is a terminal.
func PlotWaveform(w io.Writer, wf Waveform) error {
	return PlotWaveformWithColor(w, wf, false)
}

// PlotWaveformWithColor writes a waveform plot with optional forced color output.
func PlotWaveformWithColor(w io.Writer, wf Waveform, forceColor bool) error {
	return WriteWaveform(w, wf, shouldUseColor(w, forceColor))
}

// WriteWaveform writes a waveform plot. A zero width fits the terminal.
func WriteWaveform(w io.Writer, wf Waveform, useColor bool) error {
	if wf.Width <= 0 {
		wf.Width = PlotWidthFor(terminalWidth(), AxisWidth(wf.Window))
	}
	for _, line := range RenderWaveform(wf, useColor) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderWaveform returns the plot as lines: optional title, the plot rows,
// the time axis and a legend.
func RenderWaveform(wf Waveform, useColor bool) []string {
	width, height := wf.Width, wf.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	if height < minPlotHeight {
		height = minPlotHeight
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	traceCells := make([][][]uint8, len(wf.Names))
	for i := range traceCells {
		traceCells[i] = makeCells(height, width)
	}
	dotsW, dotsH := width*2, height*4
	for ti := range wf.Names {
		style := lineStyles[ti%len(lineStyles)]
		prevX, prevY := 0, 0
		havePrev := false
		for _, row := range wf.Rows {
			if ti >= len(row.Values) || math.IsNaN(row.Values[ti]) {
				havePrev = false
				continue
			}
			px := toDot(row.Time, wf.Window.X, dotsW, false)
			py := toDot(row.Values[ti], wf.Window.Y, dotsH, true)
			plot := func(dx, dy int) {
				if style.shouldPlot(dx) {
					setBrailleDot(traceCells[ti], dx, dy)
				}
			}
			if havePrev {
				drawLine(prevX, prevY, px, py, plot)
			} else {
				plot(px, py)
			}
			prevX, prevY, havePrev = px, py, true
		}
	}

	yLabels := makeAxisLabels(wf.Window.Y, height)
	labelWidth := 0
	for _, l := range yLabels {
		if w := displayWidth(l); w > labelWidth {
			labelWidth = w
		}
	}
	if pad := wf.MinAxisWidth - displayWidth(axisSeparator); pad > labelWidth {
		labelWidth = pad
	}

	lines := make([]string, 0, height+4)
	if wf.Title != "" {
		lines = append(lines, wf.Title)
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(padCell(yLabels[y], labelWidth, true))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			mask, colorIdx := composeCell(traceCells, x, y)
			ch := brailleFromMask(mask)
			if useColor && colorIdx >= 0 {
				row.WriteString(colorPalette[colorIdx%len(colorPalette)].code)
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		lines = append(lines, row.String())
	}
	indent := strings.Repeat(" ", labelWidth+displayWidth(axisSeparator))
	lines = append(lines, indent+timeAxisLabels(wf.Window.X, width))
	if len(wf.Names) > 0 {
		lines = append(lines, renderLegend(wf.Names, useColor))
	}
	return lines
}

// AxisWidth is the number of columns left of the plot area for window.
func AxisWidth(window model.ViewWindow) int {
	labelWidth := 0
	for _, l := range makeAxisLabels(window.Y, 3) {
		if w := displayWidth(l); w > labelWidth {
			labelWidth = w
		}
	}
	return labelWidth + displayWidth(axisSeparator)
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth, axisWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisWidth
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

// toDot maps v within d onto [0, n). Values outside d land one dot past the
// edge so lines leave the canvas without wrapping.
func toDot(v float64, d model.Domain, n int, invert bool) int {
	span := d.Span()
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		span = 1
	}
	pos := (v - d.Min) / span
	if invert {
		pos = 1 - pos
	}
	dot := math.Round(pos * float64(n-1))
	switch {
	case math.IsNaN(dot):
		return 0
	case dot < 0:
		return -1
	case dot > float64(n-1):
		return n
	}
	return int(dot)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func makeAxisLabels(d model.Domain, height int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = FormatSI(d.Max, "V")
	if height > 2 {
		labels[height/2] = FormatSI((d.Min+d.Max)/2, "V")
	}
	if height > 1 {
		labels[height-1] = FormatSI(d.Min, "V")
	}
	return labels
}

func timeAxisLabels(d model.Domain, width int) string {
	left := FormatSI(d.Min, "s")
	mid := FormatSI((d.Min+d.Max)/2, "s")
	right := FormatSI(d.Max, "s")
	line := []rune(strings.Repeat(" ", width))
	place := func(label string, at int) {
		r := []rune(label)
		if at+len(r) > len(line) {
			at = len(line) - len(r)
		}
		if at < 0 {
			at = 0
		}
		for i, c := range r {
			if at+i < len(line) {
				line[at+i] = c
			}
		}
	}
	place(left, 0)
	midRunes := len([]rune(mid))
	if width >= len([]rune(left))+midRunes+len([]rune(right))+4 {
		place(mid, width/2-midRunes/2)
	}
	place(right, width)
	return strings.TrimRight(string(line), " ")
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(traceCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for i, cells := range traceCells {
		if y < 0 || y >= len(cells) {
			continue
		}
		if x < 0 || x >= len(cells[y]) {
			continue
		}
		cellMask := cells[y][x]
		if cellMask == 0 {
			continue
		}
		if colorIdx == -1 {
			colorIdx = i
		}
		mask |= cellMask
	}
	return mask, colorIdx
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func renderLegend(names []string, useColor bool) string {
	parts := make([]string, 0, len(names))
	marker := brailleFromMask(0x01)
	for i, name := range names {
		styleName := lineStyles[i%len(lineStyles)].name
		label := fmt.Sprintf("%c %s (%s)", marker, name, styleName)
		if useColor {
			color := colorPalette[i%len(colorPalette)].code
			label = color + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	switch {
	case x == 0 && y == 0:
		return 0x01
	case x == 0 && y == 1:
		return 0x02
	case x == 0 && y == 2:
		return 0x04
	case x == 0 && y == 3:
		return 0x40
	case x == 1 && y == 0:
		return 0x08
	case x == 1 && y == 1:
		return 0x10
	case x == 1 && y == 2:
		return 0x20
	case x == 1 && y == 3:
		return 0x80
	default:
		return 0
	}
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
