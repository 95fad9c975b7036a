package viewer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

const fixture = `Time Base: 1.000000e-3
Channel A Sensitivity: 2.000000
Channel A Connected: Yes
Channel B Sensitivity: 1.000000
Channel B Connected: Yes
Time    Channel A    Channel B
----
0.000 1.5 0.2
0.001 -0.5 0.4
0.002 1.0 -0.3
0.003 -1.0 0.1
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.scp")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func newLoadedModel(t *testing.T, opts Options) *Model {
	t.Helper()
	sess := session.New(nil)
	if _, err := sess.LoadFile(writeFixture(t)); err != nil {
		t.Fatalf("load: %v", err)
	}
	m := New(sess, nil, opts)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewRecentersOnLoadedCapture(t *testing.T) {
	m := newLoadedModel(t, Options{})
	assert.InDelta(t, -5e-3, m.x.Min, 1e-12)
	assert.InDelta(t, 5e-3, m.x.Max, 1e-12)
	assert.Contains(t, m.View(), "fixture.scp")
}

func TestKeyboardZoomAndPan(t *testing.T) {
	m := newLoadedModel(t, Options{})
	span := m.x.Span()

	m.Update(runes("+"))
	assert.InDelta(t, span*viewport.ZoomInFactor, m.x.Span(), 1e-12)
	assert.InDelta(t, 0, (m.x.Min+m.x.Max)/2, 1e-12)

	before := m.x
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Less(t, m.x.Min, before.Min)
	assert.InDelta(t, before.Span(), m.x.Span(), 1e-12)

	m.Update(runes("r"))
	assert.InDelta(t, -5e-3, m.x.Min, 1e-12)
}

func TestWheelZoomKeepsCursorTime(t *testing.T) {
	m := newLoadedModel(t, Options{})
	c, _ := m.session.Current()
	rect := plotRectFor(panelsFor(c, m.x, false), m.width)
	headerHeight, _, _ := m.layoutHeights()

	before := m.x
	m.Update(tea.MouseMsg{
		X:      int(rect.Left),
		Y:      headerHeight,
		Button: tea.MouseButtonWheelUp,
		Action: tea.MouseActionPress,
	})
	assert.InDelta(t, before.Min, m.x.Min, 1e-12)
	assert.InDelta(t, before.Span()*viewport.ZoomInFactor, m.x.Span(), 1e-12)

	zoomed := m.x
	m.Update(tea.MouseMsg{X: 0, Y: headerHeight, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	assert.Equal(t, zoomed, m.x, "wheel over the axis labels is ignored")

	m.Update(tea.MouseMsg{X: int(rect.Left) + 5, Y: 0, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	assert.Equal(t, zoomed, m.x, "wheel over the header is ignored")
}

func TestMouseDragPans(t *testing.T) {
	m := newLoadedModel(t, Options{})
	c, _ := m.session.Current()
	rect := plotRectFor(panelsFor(c, m.x, false), m.width)
	headerHeight, _, _ := m.layoutHeights()
	start := int(rect.Left) + 10
	base := m.x

	m.Update(tea.MouseMsg{X: start, Y: headerHeight + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	require.True(t, m.drag.Active())
	m.Update(tea.MouseMsg{X: start + 10, Y: headerHeight + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	m.Update(tea.MouseMsg{X: start + 20, Y: headerHeight + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})

	want := viewport.Pan(base, 20/rect.Width)
	assert.InDelta(t, want.Min, m.x.Min, 1e-12)
	assert.InDelta(t, want.Max, m.x.Max, 1e-12)
	assert.Less(t, m.x.Min, base.Min, "dragging right shows earlier times")
	assert.False(t, m.drag.Active())
}

func TestScopeControls(t *testing.T) {
	m := newLoadedModel(t, Options{})

	m.Update(runes("T"))
	c, _ := m.session.Current()
	assert.Equal(t, 2e-3, c.Settings.TimePerDiv)
	assert.InDelta(t, -0.01, m.x.Min, 1e-12)

	m.Update(runes("c"))
	m.Update(runes("V"))
	c, _ = m.session.Current()
	b, _ := c.Settings.Channel("Channel B")
	assert.Equal(t, 2.0, b.VoltsPerDiv)
	a, _ := c.Settings.Channel("Channel A")
	assert.Equal(t, 2.0, a.VoltsPerDiv)

	m.Update(runes("Y"))
	c, _ = m.session.Current()
	b, _ = c.Settings.Channel("Channel B")
	assert.InDelta(t, 0.2, b.YPosition, 1e-12)

	m.Update(runes("R"))
	c, _ = m.session.Current()
	assert.False(t, c.HeaderSettings)
	assert.InDelta(t, 3e-4, c.Settings.TimePerDiv, 1e-12)
}

func TestChannelControlsRecenterPannedView(t *testing.T) {
	m := newLoadedModel(t, Options{})
	for _, msg := range []tea.Msg{tea.KeyMsg{Type: tea.KeySpace}, runes("V"), runes("y")} {
		m.Update(tea.KeyMsg{Type: tea.KeyLeft})
		require.Less(t, m.x.Min, -5e-3)

		m.Update(msg)
		assert.InDelta(t, -5e-3, m.x.Min, 1e-12, "after %v", msg)
		assert.InDelta(t, 5e-3, m.x.Max, 1e-12, "after %v", msg)
	}
}

func TestToggleAllChannelsOff(t *testing.T) {
	m := newLoadedModel(t, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m.Update(runes("c"))
	m.Update(tea.KeyMsg{Type: tea.KeySpace})

	c, _ := m.session.Current()
	assert.Empty(t, c.Settings.EnabledNames())
	assert.Contains(t, m.View(), "All channels are disabled")
}

func TestSeparateModeStacksPanels(t *testing.T) {
	m := newLoadedModel(t, Options{})
	view := m.View()
	assert.Contains(t, view, "Channel B (dashed)")

	m.Update(runes("s"))
	require.True(t, m.opts.Separate)
	view = m.View()
	assert.Contains(t, view, "Channel A (solid)")
	assert.Contains(t, view, "Channel B (solid)")
	assert.Len(t, strings.Split(view, "\n"), 40)
}

func TestStatisticsTab(t *testing.T) {
	m := newLoadedModel(t, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, tabStatistics, m.activeTab)

	view := m.View()
	for _, want := range []string{"Sample rate", "Frequency", "Channel A", "Channel B"} {
		assert.Contains(t, view, want)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, tabWaveform, m.activeTab)
}

func TestOpenPromptLoadsCapture(t *testing.T) {
	path := writeFixture(t)
	m := New(session.New(nil), nil, Options{})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, m.View(), "No capture loaded")

	m.Update(runes("o"))
	require.True(t, m.opening)
	m.Update(runes(path))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.opening)

	m.Update(cmd())
	_, ok := m.session.Current()
	require.True(t, ok)
	assert.Equal(t, "Loaded fixture.scp", m.status)
	assert.Empty(t, m.errMsg)
}

func TestOpenPromptReportsErrors(t *testing.T) {
	m := New(session.New(nil), nil, Options{})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Update(runes("o"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "enter a capture path", m.errMsg)

	m.Update(runes(filepath.Join(t.TempDir(), "missing.scp")))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.NotEmpty(t, m.errMsg)
	assert.Contains(t, m.View(), m.errMsg)

	m.Update(runes("o"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.opening)
}

func TestFailedOpenClearsLoadedCapture(t *testing.T) {
	m := newLoadedModel(t, Options{})
	m.Update(runes("o"))
	m.Update(runes(filepath.Join(t.TempDir(), "missing.scp")))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m.Update(cmd())

	_, ok := m.session.Current()
	assert.False(t, ok)
	assert.NotEmpty(t, m.errMsg)
	assert.Contains(t, m.View(), "No capture loaded")
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	m := newLoadedModel(t, Options{ExportDir: dir})
	_, cmd := m.Update(runes("e"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	path := filepath.Join(dir, "fixture_data.csv")
	assert.Equal(t, "Exported "+path, m.status)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Time(s),Channel A,Channel B\n"))
}

func TestPanelsFor(t *testing.T) {
	m := newLoadedModel(t, Options{})
	c, _ := m.session.Current()

	combined := panelsFor(c, m.x, false)
	require.Len(t, combined, 1)
	assert.Equal(t, []string{"Channel A", "Channel B"}, combined[0].names)
	assert.Equal(t, model.Domain{Min: -8, Max: 8}, combined[0].window.Y)

	separate := panelsFor(c, m.x, true)
	require.Len(t, separate, 2)
	assert.Equal(t, model.Domain{Min: -4, Max: 4}, separate[1].window.Y)
	assert.Equal(t, m.x, separate[1].window.X)
}

func TestLayoutHelpers(t *testing.T) {
	assert.Equal(t, 2, panelHeight(3, 2))
	assert.Equal(t, 18, panelHeight(40, 2))
	assert.Equal(t, "ab  \n    ", fitLines("ab", 4, 2))
	assert.Equal(t, "a", fitLines("a\nb\nc", 1, 1))
	assert.Equal(t, "abc...", truncateLine("abcdefghij", 6))
	assert.Equal(t, "abc", truncateLine("abc", 6))
}
