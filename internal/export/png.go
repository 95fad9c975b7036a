package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/freetype"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/stats"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

const (
	snapshotWidth   = 1200
	snapshotHeight  = 600
	annotationDPI   = 72.0
	annotationSize  = 13.0
	annotationSpace = 1.35
	annotationPad   = 12
)

// Snapshot describes a PNG rendering of one view window.
type Snapshot struct {
	Dataset    *model.Dataset
	Settings   model.ScopeSettings
	Statistics model.Statistics
	Window     model.ViewWindow
	Envelope   bool
	MaxPoints  int
	Width      int
	Height     int
}

// WritePNG renders the visible channels inside the snapshot window as a line
// chart with an information block listing settings and statistics below it.
func WritePNG(w io.Writer, s Snapshot) error {
	if s.Width <= 0 {
		s.Width = snapshotWidth
	}
	if s.Height <= 0 {
		s.Height = snapshotHeight
	}

	chartImg, err := renderChart(s)
	if err != nil {
		return err
	}

	lines := annotationLines(s)
	lineHeight := int(math.Ceil(annotationSize * annotationSpace))
	infoHeight := annotationPad*2 + lineHeight*len(lines)

	b := chartImg.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+infoHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, b.Dx(), b.Dy()), chartImg, b.Min, draw.Src)

	if err := annotate(canvas, b.Dy(), lines); err != nil {
		return err
	}
	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func renderChart(s Snapshot) (image.Image, error) {
	visible := viewport.VisibleIndices(s.Dataset, s.Settings, nil)
	names := make([]string, len(visible))
	for i, idx := range visible {
		names[i] = s.Dataset.Channels[idx].Name
	}
	var rows []model.Row
	if s.Envelope {
		rows = viewport.DownsampleEnvelope(s.Dataset, s.Window.X, visible, s.MaxPoints)
	} else {
		rows = viewport.Downsample(s.Dataset, s.Window.X, visible, s.MaxPoints)
	}

	series := make([]chart.Series, 0, len(names)+1)
	for j, name := range names {
		if len(rows) == 0 {
			break
		}
		xs := make([]float64, len(rows))
		ys := make([]float64, len(rows))
		for i, r := range rows {
			xs[i] = r.Time
			ys[i] = r.Values[j]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(s.channelPosition(name)),
				StrokeWidth: 1.5,
			},
		})
	}
	if len(series) == 0 {
		// go-chart needs one visible series; this one draws nothing.
		series = append(series, chart.ContinuousSeries{
			XValues: []float64{s.Window.X.Min, s.Window.X.Max},
			YValues: []float64{s.Window.Y.Min, s.Window.Y.Min},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1},
		})
	}

	xTicks, yTicks := viewport.WindowTicks(s.Window)
	title := "Waveform"
	if s.Dataset.SourceName != "" {
		title = s.Dataset.SourceName
	}
	ch := chart.Chart{
		Title:      title,
		Width:      s.Width,
		Height:     s.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  "Time",
			Range: &chart.ContinuousRange{Min: s.Window.X.Min, Max: s.Window.X.Max},
			Ticks: chartTicks(xTicks, "s"),
		},
		YAxis: chart.YAxis{
			Name:  "Voltage",
			Range: &chart.ContinuousRange{Min: s.Window.Y.Min, Max: s.Window.Y.Max},
			Ticks: chartTicks(yTicks, "V"),
		},
		Series: series,
	}
	if len(names) > 0 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	return img, nil
}

// channelPosition keeps a channel's color stable when others are hidden.
func (s Snapshot) channelPosition(name string) int {
	if idx, ok := s.Dataset.ChannelIndex(name); ok {
		return idx
	}
	return 0
}

func chartTicks(values []float64, unit string) []chart.Tick {
	ticks := make([]chart.Tick, len(values))
	for i, v := range values {
		ticks[i] = chart.Tick{Value: v, Label: stats.FormatSI(v, unit)}
	}
	return ticks
}

func annotationLines(s Snapshot) []string {
	lines := []string{
		fmt.Sprintf("Time/Div: %s   X position: %s   Window: %s to %s",
			stats.FormatSI(s.Settings.TimePerDiv, "s"),
			stats.FormatSI(s.Settings.XPosition, "s"),
			stats.FormatSI(s.Window.X.Min, "s"),
			stats.FormatSI(s.Window.X.Max, "s")),
		fmt.Sprintf("Duration: %s   Sample rate: %s   Samples: %d",
			stats.FormatSI(s.Statistics.Overall.Duration, "s"),
			stats.FormatRate(s.Statistics.Overall.SampleRate),
			s.Statistics.Overall.TotalSamples),
	}
	for _, cs := range s.Statistics.Channels {
		setting, _ := s.Settings.Channel(cs.Name)
		state := "off"
		if setting.Enabled {
			state = stats.FormatSI(setting.VoltsPerDiv, "V") + "/div"
		}
		lines = append(lines, fmt.Sprintf("%s (%s): mean %s  rms %s  p-p %s  freq %s",
			cs.Name, state,
			stats.FormatSI(cs.Mean, "V"),
			stats.FormatSI(cs.RMS, "V"),
			stats.FormatSI(cs.PeakToPeak, "V"),
			stats.FormatSI(cs.Frequency, "Hz")))
	}
	return lines
}

func annotate(img *image.RGBA, top int, lines []string) error {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parsing font: %w", err)
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(annotationDPI)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(annotationSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.NewUniform(color.Gray{Y: 0x20}))
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	pt := freetype.Pt(annotationPad, top+annotationPad+int(ctx.PointToFixed(annotationSize)>>6))
	for _, line := range lines {
		if _, err := ctx.DrawString(line, pt); err != nil {
			return fmt.Errorf("drawing annotation: %w", err)
		}
		pt.Y += ctx.PointToFixed(annotationSize * annotationSpace)
	}
	return nil
}
