// Package viewer provides the Bubble Tea waveform viewer.
package viewer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/scopeview/internal/capture"
	"github.com/verte-zerg/scopeview/internal/export"
	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/scope"
	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/stats"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

const (
	tabWaveform = iota
	tabStatistics
)

// Keyboard pan step as a fraction of the visible span.
const panStep = 0.1

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Options tunes the viewer.
type Options struct {
	// Path is loaded on start when set.
	Path         string
	Separate     bool
	Envelope     bool
	Color        bool
	MaxPoints    int
	ExportFormat export.Format
	ExportDir    string
}

type loadedMsg struct {
	capture *session.Capture
	err     error
}

type exportedMsg struct {
	path string
	err  error
}

// Model implements the Bubble Tea viewer.
type Model struct {
	session *session.Session
	logger  *slog.Logger
	opts    Options

	keys keyMap
	help help.Model

	tabs      []string
	activeTab int
	table     table.Model

	width  int
	height int

	x        model.Domain
	drag     viewport.Drag
	selected int

	opening bool
	input   textinput.Model

	status string
	errMsg string
}

// New constructs a viewer over sess. A capture already loaded in sess is
// shown immediately.
func New(sess *session.Session, logger *slog.Logger, opts Options) *Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = viewport.DefaultMaxPoints
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = export.FormatCSV
	}
	m := &Model{
		session: sess,
		logger:  logger,
		opts:    opts,
		keys:    defaultKeys(),
		help:    help.New(),
		tabs:    []string{"Waveform", "Statistics"},
	}
	m.input = newPathInput()
	m.table = table.New(
		table.WithColumns(statsColumns(nil)),
		table.WithHeight(1),
	)
	m.table.SetStyles(statsTableStyles())
	if cur, ok := sess.Current(); ok {
		m.applyCapture(cur)
	}
	return m
}

func newPathInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "Path: "
	input.Placeholder = "capture.scp"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.opts.Path == "" {
		return nil
	}
	return loadCmd(m.session, m.opts.Path)
}

func loadCmd(sess *session.Session, path string) tea.Cmd {
	return func() tea.Msg {
		c, err := sess.LoadFile(path)
		return loadedMsg{capture: c, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.updateLayout()
		return m, nil
	case loadedMsg:
		if msg.err != nil {
			m.status = ""
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.status = "Loaded " + msg.capture.Dataset.SourceName
		m.applyCapture(msg.capture)
		return m, nil
	case exportedMsg:
		if msg.err != nil {
			m.status = ""
			m.errMsg = "export failed: " + msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.status = "Exported " + msg.path
		return m, nil
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.opening {
			return m.updateOpen(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updateLayout()
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		m.moveTab(1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.PrevTab):
		m.moveTab(-1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Open):
		return m, m.startOpen()
	}

	cur, ok := m.session.Current()
	if !ok {
		return m, nil
	}
	selected := m.selectedChannel(cur)
	switch {
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd(cur)
	case key.Matches(msg, m.keys.ZoomIn):
		m.x = viewport.Zoom(m.x, 0.5, viewport.ZoomInFactor)
	case key.Matches(msg, m.keys.ZoomOut):
		m.x = viewport.Zoom(m.x, 0.5, viewport.ZoomOutFactor)
	case key.Matches(msg, m.keys.PanLeft):
		m.x = viewport.Pan(m.x, panStep)
	case key.Matches(msg, m.keys.PanRight):
		m.x = viewport.Pan(m.x, -panStep)
	case key.Matches(msg, m.keys.Recenter):
		m.x = viewport.Recenter(cur.Settings, nil, false).X
	case key.Matches(msg, m.keys.Reset):
		c, err := m.session.ResetScope()
		m.afterStep(c, err)
	case key.Matches(msg, m.keys.Separate):
		m.opts.Separate = !m.opts.Separate
	case key.Matches(msg, m.keys.Envelope):
		m.opts.Envelope = !m.opts.Envelope
	case key.Matches(msg, m.keys.NextChannel):
		if n := len(cur.Settings.Channels); n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case key.Matches(msg, m.keys.Toggle):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.ToggleChannel(s, selected) })
	case key.Matches(msg, m.keys.TimeUp):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepTimebase(s, 1) })
	case key.Matches(msg, m.keys.TimeDown):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepTimebase(s, -1) })
	case key.Matches(msg, m.keys.XPosUp):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepXPosition(s, 1) })
	case key.Matches(msg, m.keys.XPosDown):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepXPosition(s, -1) })
	case key.Matches(msg, m.keys.VoltsUp):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepVoltsPerDiv(s, selected, 1) })
	case key.Matches(msg, m.keys.VoltsDown):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepVoltsPerDiv(s, selected, -1) })
	case key.Matches(msg, m.keys.YPosUp):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepYPosition(s, selected, 1) })
	case key.Matches(msg, m.keys.YPosDown):
		m.step(func(s model.ScopeSettings) model.ScopeSettings { return scope.StepYPosition(s, selected, -1) })
	default:
		if m.activeTab == tabStatistics {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// step applies a scope control. Any settings change moves the view back to
// the window the settings describe.
func (m *Model) step(fn func(model.ScopeSettings) model.ScopeSettings) {
	c, err := m.session.UpdateSettings(fn)
	m.afterStep(c, err)
}

func (m *Model) afterStep(c *session.Capture, err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.applyCapture(c)
}

func (m *Model) applyCapture(c *session.Capture) {
	m.x = viewport.Recenter(c.Settings, nil, false).X
	m.drag.End()
	if m.selected >= len(c.Settings.Channels) {
		m.selected = 0
	}
	rows := make([]table.Row, 0, len(c.Statistics.Channels))
	for _, cs := range c.Statistics.Channels {
		rows = append(rows, table.Row(stats.ChannelRow(cs)))
	}
	m.table.SetRows(rows)
	m.table.SetColumns(statsColumns(rows))
	m.updateLayout()
}

func (m *Model) selectedChannel(c *session.Capture) string {
	if m.selected < 0 || m.selected >= len(c.Settings.Channels) {
		return ""
	}
	return c.Settings.Channels[m.selected].Name
}

func (m *Model) exportCmd(c *session.Capture) tea.Cmd {
	window := m.window(c)
	opts := export.Options{
		Format:    m.opts.ExportFormat,
		Dir:       m.opts.ExportDir,
		Envelope:  m.opts.Envelope,
		MaxPoints: m.opts.MaxPoints,
		Window:    &window,
	}
	logger := m.logger
	return func() tea.Msg {
		path, err := export.WriteFile(context.Background(), logger, c, opts)
		return exportedMsg{path: path, err: err}
	}
}

// window is the combined view window currently on screen.
func (m *Model) window(c *session.Capture) model.ViewWindow {
	w := viewport.Recenter(c.Settings, nil, false)
	w.X = m.x
	return w
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.opening || m.activeTab != tabWaveform {
		m.drag.End()
		return
	}
	cur, ok := m.session.Current()
	if !ok {
		return
	}
	panels := panelsFor(cur, m.x, m.opts.Separate)
	if len(panels) == 0 {
		return
	}
	rect := plotRectFor(panels, m.contentWidth())
	x := float64(msg.X)

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonWheelUp:
		if m.inBody(msg.Y) {
			m.x = viewport.ZoomAt(m.x, rect, x, viewport.ZoomInFactor)
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonWheelDown:
		if m.inBody(msg.Y) {
			m.x = viewport.ZoomAt(m.x, rect, x, viewport.ZoomOutFactor)
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if m.inBody(msg.Y) {
			m.drag.Begin(x, rect, m.x)
		}
	case msg.Action == tea.MouseActionMotion:
		if d, ok := m.drag.Move(x); ok {
			m.x = d
		}
	case msg.Action == tea.MouseActionRelease:
		if d, ok := m.drag.Move(x); ok {
			m.x = d
		}
		m.drag.End()
	}
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) inBody(y int) bool {
	headerHeight, bodyHeight, _ := m.layoutHeights()
	return y >= headerHeight && y < headerHeight+bodyHeight
}

func (m *Model) startOpen() tea.Cmd {
	m.opening = true
	m.errMsg = ""
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *Model) updateOpen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.opening = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			m.errMsg = "enter a capture path"
			return m, nil
		}
		m.opening = false
		m.input.Blur()
		m.errMsg = ""
		m.status = "Loading " + path
		return m, loadCmd(m.session, expandHome(path))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = lipgloss.Height(m.help.View(m.keys))
	if m.errMsg != "" || m.status != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	overall := len(stats.OverallLines(model.OverallStats{}))
	m.table.SetWidth(m.width)
	m.table.SetHeight(maxInt(1, bodyHeight-overall-1))
	promptWidth := lipgloss.Width(m.input.Prompt)
	m.input.Width = maxInt(10, m.width-promptWidth-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	m.drag.End()
	if m.activeTab == tabStatistics {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + m.renderSummary()
}

func (m *Model) renderSummary() string {
	cur, ok := m.session.Current()
	if !ok {
		return headerStyle.Render("No capture loaded")
	}
	s := cur.Settings
	parts := []string{
		cur.Dataset.SourceName,
		fmt.Sprintf("%d samples", cur.Dataset.Len()),
		stats.FormatSI(s.TimePerDiv, "s") + "/div",
		fmt.Sprintf("view %s to %s", stats.FormatSI(m.x.Min, "s"), stats.FormatSI(m.x.Max, "s")),
	}
	if name := m.selectedChannel(cur); name != "" {
		ch, _ := s.Channel(name)
		state := "off"
		if ch.Enabled {
			state = "on"
		}
		parts = append(parts, fmt.Sprintf("[%s %s/div %s]", name, stats.FormatSI(ch.VoltsPerDiv, "V"), state))
	}
	if m.opts.Separate {
		parts = append(parts, "separate")
	}
	if m.opts.Envelope {
		parts = append(parts, "min/max")
	}
	return headerStyle.Render(truncateLine(strings.Join(parts, "  "), m.width))
}

func (m *Model) renderFooter() string {
	help := m.help.View(m.keys)
	switch {
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(m.errMsg)
	case m.status != "":
		return help + "\n" + headerStyle.Render(m.status)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.opening {
		return m.renderOpenForm()
	}
	cur, ok := m.session.Current()
	if !ok {
		return "No capture loaded. Press o to open a .scp, .txt or .csv file."
	}
	if m.activeTab == tabStatistics {
		return m.renderStatistics(cur)
	}
	return m.renderWaveform(cur, height)
}

func (m *Model) renderOpenForm() string {
	lines := []string{
		"Open capture (enter to load, esc to cancel)",
		m.input.View(),
		headerStyle.Render("Accepted: " + strings.Join(capture.AcceptedExtensions, ", ")),
	}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatistics(c *session.Capture) string {
	head := strings.Join(stats.OverallLines(c.Statistics.Overall), "\n")
	if len(c.Statistics.Channels) == 0 {
		return head + "\n\nNo channel statistics."
	}
	return head + "\n\n" + tableMutedStyle.Render(m.table.View())
}

func (m *Model) renderWaveform(c *session.Capture, height int) string {
	panels := panelsFor(c, m.x, m.opts.Separate)
	if len(panels) == 0 {
		return "All channels are disabled. Press space to enable the selected channel."
	}
	axis := axisWidthFor(panels)
	plotWidth := stats.PlotWidthFor(m.contentWidth(), axis)
	plotHeight := panelHeight(height, len(panels))

	blocks := make([]string, 0, len(panels))
	for _, p := range panels {
		var rows []model.Row
		if m.opts.Envelope {
			rows = viewport.DownsampleEnvelope(c.Dataset, m.x, p.indices, m.opts.MaxPoints)
		} else {
			rows = viewport.Downsample(c.Dataset, m.x, p.indices, m.opts.MaxPoints)
		}
		lines := stats.RenderWaveform(stats.Waveform{
			Names:        p.names,
			Rows:         rows,
			Window:       p.window,
			Width:        plotWidth,
			Height:       plotHeight,
			MinAxisWidth: axis,
		}, m.opts.Color)
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n")
}
