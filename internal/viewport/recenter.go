package viewport

import "github.com/verte-zerg/scopeview/internal/model"

// Screen grid.
const (
	HorizontalDivisions = 10
	VerticalDivisions   = 8
)

var fallbackY = model.Domain{Min: -1, Max: 1}

// Recenter derives the view window from scope settings. In separate mode with
// a single visible channel the y domain is that channel's own 8 divisions;
// otherwise it is the union over the visible enabled channels. A nil visible
// list means every enabled channel.
func Recenter(s model.ScopeSettings, visible []string, separate bool) model.ViewWindow {
	half := s.TimePerDiv * HorizontalDivisions / 2
	w := model.ViewWindow{
		X: model.Domain{Min: s.XPosition - half, Max: s.XPosition + half},
		Y: fallbackY,
	}

	if separate && len(visible) == 1 {
		if ch, ok := s.Channel(visible[0]); ok {
			w.Y = channelRange(ch)
		}
		return w
	}

	if visible == nil {
		visible = s.EnabledNames()
	}
	found := false
	for _, name := range visible {
		ch, ok := s.Channel(name)
		if !ok || !ch.Enabled {
			continue
		}
		r := channelRange(ch)
		if !found {
			w.Y = r
			found = true
			continue
		}
		if r.Min < w.Y.Min {
			w.Y.Min = r.Min
		}
		if r.Max > w.Y.Max {
			w.Y.Max = r.Max
		}
	}
	return w
}

func channelRange(ch model.ChannelSettings) model.Domain {
	half := ch.VoltsPerDiv * VerticalDivisions / 2
	return model.Domain{Min: ch.YPosition - half, Max: ch.YPosition + half}
}
