package capture

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/scopeview/internal/model"
)

const (
	defaultTimePerDiv  = 1e-3
	defaultVoltsPerDiv = 1.0
	dividerToken       = "----"
)

var channelKeyPattern = regexp.MustCompile(`(?i)channel\s+(\S+)\s+(sensitivity|offset|connected)`)

var columnNamePattern = regexp.MustCompile(`Channel\s+\S+`)

// Result is the outcome of a successful parse. Settings is nil when the file
// carried no recognized header keys.
type Result struct {
	Dataset  model.Dataset
	Settings *model.ScopeSettings
}

type parseState int

const (
	stateHeader parseState = iota
	stateData
)

type headerChannel struct {
	name        string
	voltsPerDiv *float64
	yPosition   *float64
}

type parser struct {
	state      parseState
	recognized bool

	timePerDiv *float64
	xPosition  *float64
	declared   []*headerChannel
	connected  []string
	columns    []string

	dataLines []string
}

// Parse turns the text of a capture file into a Dataset and, when the header
// provides them, the instrument settings.
func Parse(content, fileName string) (Result, error) {
	if !utf8.ValidString(content) || strings.ContainsRune(content, 0) {
		return Result{}, fmt.Errorf("%s: %w", fileName, ErrMalformedInput)
	}
	lines := splitLines(content)

	p := &parser{state: stateHeader}
	for _, line := range lines {
		p.feed(line)
	}
	if len(p.dataLines) == 0 {
		p.dataLines = fallbackDataLines(lines)
	}

	ds, err := p.buildDataset(fileName)
	if err != nil {
		return Result{}, err
	}
	res := Result{Dataset: ds}
	if p.recognized {
		settings := p.buildSettings(ds)
		res.Settings = &settings
	}
	return res, nil
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func (p *parser) feed(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	switch p.state {
	case stateHeader:
		if isColumnHeader(trimmed) {
			p.columns = columnNamePattern.FindAllString(trimmed, -1)
			p.state = stateData
			return
		}
		if strings.Contains(line, ":") {
			p.headerLine(line)
		}
	case stateData:
		if !strings.Contains(line, dividerToken) {
			p.dataLines = append(p.dataLines, line)
		}
	}
}

func isColumnHeader(trimmed string) bool {
	return strings.HasPrefix(trimmed, "Time") && strings.Contains(trimmed, "Channel")
}

func (p *parser) headerLine(line string) {
	key, _, _ := strings.Cut(line, ":")
	lowerKey := strings.ToLower(key)
	switch {
	case strings.Contains(lowerKey, "time base"):
		p.recognized = true
		if f, ok := decodeNumber(line); ok {
			p.timePerDiv = &f
		}
	case strings.Contains(lowerKey, "time offset"):
		p.recognized = true
		if f, ok := decodeNumber(line); ok {
			p.xPosition = &f
		}
	default:
		m := channelKeyPattern.FindStringSubmatch(key)
		if m == nil {
			return
		}
		p.recognized = true
		ch := p.channel(channelName(m[1]))
		switch strings.ToLower(m[2]) {
		case "sensitivity":
			if f, ok := decodeNumber(line); ok {
				ch.voltsPerDiv = &f
			}
		case "offset":
			if f, ok := decodeNumber(line); ok {
				ch.yPosition = &f
			}
		case "connected":
			if v, ok := DecodeHeaderValue(line); ok && v.IsTrue() {
				p.connect(ch.name)
			}
		}
	}
}

func decodeNumber(line string) (float64, bool) {
	v, ok := DecodeHeaderValue(line)
	if !ok {
		return 0, false
	}
	return v.Number()
}

func channelName(id string) string {
	return "Channel " + strings.ToUpper(id)
}

func (p *parser) channel(name string) *headerChannel {
	for _, ch := range p.declared {
		if ch.name == name {
			return ch
		}
	}
	ch := &headerChannel{name: name}
	p.declared = append(p.declared, ch)
	return ch
}

func (p *parser) connect(name string) {
	for _, existing := range p.connected {
		if existing == name {
			return
		}
	}
	p.connected = append(p.connected, name)
}

func fallbackDataLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, ok := parseSample(firstToken(trimmed)); ok {
			out = append(out, trimmed)
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return r == ',' || r == 't' || r == ' ' || r == '\t' || r == '\v' || r == '\f' || r == '\r' || r == '\n'
}

func firstToken(s string) string {
	if i := strings.IndexFunc(s, isSeparator); i >= 0 {
		return s[:i]
	}
	return s
}

// tokenize splits a data row on runs of whitespace, commas and the letter t,
// keeping only finite numbers.
func tokenize(line string) []float64 {
	fields := strings.FieldsFunc(strings.TrimSpace(line), isSeparator)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		if v, ok := parseSample(f); ok {
			out = append(out, v)
		}
	}
	return out
}

func parseSample(token string) (float64, bool) {
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (p *parser) channelNamesFor(width int) []string {
	if len(p.connected) > 0 {
		return p.connected
	}
	if len(p.columns) > 0 {
		return p.columns
	}
	names := make([]string, width)
	for i := range names {
		names[i] = SynthesizedName(i)
	}
	return names
}

// SynthesizedName names a data column that was never declared in a header.
func SynthesizedName(i int) string {
	if i < 26 {
		return "Channel " + string(rune('A'+i))
	}
	return "Channel " + strconv.Itoa(i+1)
}

func (p *parser) buildDataset(fileName string) (model.Dataset, error) {
	var (
		time   []float64
		names  []string
		values [][]float64
	)
	for _, line := range p.dataLines {
		parts := tokenize(line)
		if len(parts) < 2 {
			continue
		}
		if names == nil {
			names = p.channelNamesFor(len(parts) - 1)
			values = make([][]float64, len(names))
		}
		time = append(time, parts[0])
		for i := range names {
			if len(parts) > i+1 {
				values[i] = append(values[i], parts[i+1])
			}
		}
	}

	minLen := len(time)
	for _, v := range values {
		if len(v) > 0 && len(v) < minLen {
			minLen = len(v)
		}
	}
	if minLen == 0 {
		return model.Dataset{}, fmt.Errorf("%s: %w", fileName, ErrEmptyDataset)
	}

	ds := model.Dataset{
		SourceName: fileName,
		Time:       time[:minLen:minLen],
	}
	for i, name := range names {
		if len(values[i]) == 0 {
			continue
		}
		ds.Channels = append(ds.Channels, model.Channel{
			Name:   name,
			Index:  len(ds.Channels),
			Values: values[i][:minLen:minLen],
		})
	}
	return ds, nil
}

func (p *parser) buildSettings(ds model.Dataset) model.ScopeSettings {
	settings := model.ScopeSettings{
		TimePerDiv: defaultTimePerDiv,
		XPosition:  0,
	}
	if p.timePerDiv != nil && *p.timePerDiv > 0 {
		settings.TimePerDiv = *p.timePerDiv
	}
	if p.xPosition != nil {
		settings.XPosition = *p.xPosition
	}
	for _, ch := range p.declared {
		cs := model.ChannelSettings{
			Name:        ch.name,
			VoltsPerDiv: defaultVoltsPerDiv,
			Enabled:     p.isConnected(ch.name),
		}
		if ch.voltsPerDiv != nil && *ch.voltsPerDiv > 0 {
			cs.VoltsPerDiv = *ch.voltsPerDiv
		}
		if ch.yPosition != nil {
			cs.YPosition = *ch.yPosition
		}
		settings.Channels = append(settings.Channels, cs)
	}
	for _, ch := range ds.Channels {
		if _, ok := settings.Channel(ch.Name); ok {
			continue
		}
		settings.Channels = append(settings.Channels, model.ChannelSettings{
			Name:        ch.Name,
			VoltsPerDiv: defaultVoltsPerDiv,
			Enabled:     true,
		})
	}
	return settings
}

func (p *parser) isConnected(name string) bool {
	for _, c := range p.connected {
		if c == name {
			return true
		}
	}
	return false
}
