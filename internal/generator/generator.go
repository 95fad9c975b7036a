// Package generator builds synthetic oscilloscope captures.
package generator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/scopeview/internal/capture"
	"github.com/verte-zerg/scopeview/internal/model"
)

// Waveform is the shape of a generated signal.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Triangle Waveform = "triangle"
	Sawtooth Waveform = "sawtooth"
	Noise    Waveform = "noise"
)

// Waveforms lists the supported shapes.
var Waveforms = []Waveform{Sine, Square, Triangle, Sawtooth, Noise}

// ParseWaveform resolves a shape name.
func ParseWaveform(name string) (Waveform, error) {
	w := Waveform(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Waveforms {
		if w == known {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown waveform %q", name)
}

// Signal describes one generated channel.
type Signal struct {
	Wave      Waveform
	Frequency float64
	Amplitude float64
	Offset    float64
	// Phase is in radians.
	Phase float64
	// Noise is the amplitude of uniform noise added to every sample.
	Noise float64
}

// Config controls the size of a generated capture.
type Config struct {
	Samples    int
	SampleRate float64
	Signals    []Signal
}

func (c Config) validate() error {
	if c.Samples < 2 {
		return errors.New("samples must be at least 2")
	}
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if len(c.Signals) == 0 {
		return errors.New("at least one signal is required")
	}
	for i, s := range c.Signals {
		if s.Frequency < 0 || s.Amplitude < 0 || s.Noise < 0 {
			return fmt.Errorf("signal %d: frequency, amplitude and noise must not be negative", i+1)
		}
	}
	return nil
}

// Generator produces randomized captures.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a Generator with a fixed seed.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Dataset samples every signal at the configured rate, starting at t=0.
func (g *Generator) Dataset(cfg Config, sourceName string) (*model.Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ds := &model.Dataset{
		SourceName: sourceName,
		Time:       make([]float64, cfg.Samples),
	}
	dt := 1 / cfg.SampleRate
	for i := range ds.Time {
		ds.Time[i] = float64(i) * dt
	}
	for i, sig := range cfg.Signals {
		values := make([]float64, cfg.Samples)
		for j, t := range ds.Time {
			v := sig.Offset + sig.Amplitude*g.shape(sig, t)
			if sig.Noise > 0 {
				v += sig.Noise * (2*g.rnd.Float64() - 1)
			}
			values[j] = v
		}
		ds.Channels = append(ds.Channels, model.Channel{
			Name:   capture.SynthesizedName(i),
			Index:  i,
			Values: values,
		})
	}
	return ds, nil
}

func (g *Generator) shape(sig Signal, t float64) float64 {
	if sig.Wave == Noise {
		return 2*g.rnd.Float64() - 1
	}
	cycle := sig.Frequency*t + sig.Phase/(2*math.Pi)
	frac := cycle - math.Floor(cycle)
	switch sig.Wave {
	case Square:
		if frac < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		return 1 - 4*math.Abs(frac-0.5)
	case Sawtooth:
		return 2*frac - 1
	default:
		return math.Sin(2 * math.Pi * cycle)
	}
}

// WriteCapture writes ds as a Multisim-style text capture with a settings
// header that Parse reads back.
func WriteCapture(w io.Writer, ds *model.Dataset, settings model.ScopeSettings) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Time Base: %e\n", settings.TimePerDiv)
	fmt.Fprintf(bw, "Time Offset: %e\n", settings.XPosition)
	for _, ch := range settings.Channels {
		id := strings.TrimPrefix(ch.Name, "Channel ")
		fmt.Fprintf(bw, "Channel %s Sensitivity: %e\n", id, ch.VoltsPerDiv)
		fmt.Fprintf(bw, "Channel %s Offset: %e\n", id, ch.YPosition)
	}
	// Connected channels name the data columns, so every column is listed.
	for _, ch := range ds.Channels {
		fmt.Fprintf(bw, "Channel %s Connected: Yes\n", strings.TrimPrefix(ch.Name, "Channel "))
	}

	bw.WriteString("Time")
	for _, ch := range ds.Channels {
		bw.WriteString("\t" + ch.Name)
	}
	bw.WriteString("\n----\n")

	for i, t := range ds.Time {
		fmt.Fprintf(bw, "%e", t)
		for _, ch := range ds.Channels {
			fmt.Fprintf(bw, "\t%e", ch.Values[i])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
