package viewer

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	Help        key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Open        key.Binding
	Export      key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	PanLeft     key.Binding
	PanRight    key.Binding
	Recenter    key.Binding
	Reset       key.Binding
	Separate    key.Binding
	Envelope    key.Binding
	NextChannel key.Binding
	Toggle      key.Binding
	TimeUp      key.Binding
	TimeDown    key.Binding
	XPosUp      key.Binding
	XPosDown    key.Binding
	VoltsUp     key.Binding
	VoltsDown   key.Binding
	YPosUp      key.Binding
	YPosDown    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help, k.NextTab, k.Open, k.Export, k.ZoomIn, k.ZoomOut, k.Separate}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Open, k.Export, k.Help, k.Quit},
		{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Recenter, k.Reset},
		{k.TimeUp, k.TimeDown, k.XPosUp, k.XPosDown},
		{k.NextChannel, k.Toggle, k.VoltsUp, k.VoltsDown, k.YPosUp, k.YPosDown},
		{k.Separate, k.Envelope},
	}
}

func defaultKeys() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev tab"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "pan left"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "pan right"),
		),
		Recenter: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recenter"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset scope"),
		),
		Separate: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "separate"),
		),
		Envelope: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "min/max"),
		),
		NextChannel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "next channel"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "channel on/off"),
		),
		TimeUp: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "time/div up"),
		),
		TimeDown: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "time/div down"),
		),
		XPosUp: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "x pos up"),
		),
		XPosDown: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "x pos down"),
		),
		VoltsUp: key.NewBinding(
			key.WithKeys("V"),
			key.WithHelp("V", "volts/div up"),
		),
		VoltsDown: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "volts/div down"),
		),
		YPosUp: key.NewBinding(
			key.WithKeys("Y"),
			key.WithHelp("Y", "y pos up"),
		),
		YPosDown: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "y pos down"),
		),
	}
}
