// Package viewport maps pan and zoom gestures onto the visible time window and
// reduces large captures to a bounded number of renderable rows.
package viewport

import "github.com/verte-zerg/scopeview/internal/model"

// Wheel zoom factors.
const (
	ZoomInFactor  = 0.85
	ZoomOutFactor = 1.15
)

// Rect is the horizontal extent of the inner plot area, axis labels excluded.
type Rect struct {
	Left  float64
	Width float64
}

// Fraction maps x onto [0,1] within the rect. ok is false outside it.
func (r Rect) Fraction(x float64) (float64, bool) {
	if r.Width <= 0 || x < r.Left || x > r.Left+r.Width {
		return 0, false
	}
	return (x - r.Left) / r.Width, true
}

// Zoom scales d by factor keeping the point at fraction r fixed.
// A fraction outside [0,1] leaves d unchanged.
func Zoom(d model.Domain, r, factor float64) model.Domain {
	if r < 0 || r > 1 || factor <= 0 {
		return d
	}
	span := d.Span()
	cursor := d.Min + span*r
	newSpan := span * factor
	return model.Domain{
		Min: cursor - newSpan*r,
		Max: cursor + newSpan*(1-r),
	}
}

// ZoomAt zooms around the pointer position cursorX given in the same
// coordinates as rect. Gestures outside the plot area are ignored.
func ZoomAt(d model.Domain, rect Rect, cursorX, factor float64) model.Domain {
	r, ok := rect.Fraction(cursorX)
	if !ok {
		return d
	}
	return Zoom(d, r, factor)
}

// Pan shifts base by deltaFraction of its span in the direction opposite to
// the drag: dragging right moves the view to earlier times.
func Pan(base model.Domain, deltaFraction float64) model.Domain {
	shift := -deltaFraction * base.Span()
	return model.Domain{Min: base.Min + shift, Max: base.Max + shift}
}

// Drag tracks one pan gesture.
type Drag struct {
	active bool
	startX float64
	rect   Rect
	base   model.Domain
}

// Begin starts a drag at x. Presses outside rect do not start a drag.
func (g *Drag) Begin(x float64, rect Rect, current model.Domain) bool {
	if _, ok := rect.Fraction(x); !ok {
		g.End()
		return false
	}
	g.active = true
	g.startX = x
	g.rect = rect
	g.base = current
	return true
}

// Move returns the domain for the pointer at x, relative to the domain
// captured by Begin.
func (g *Drag) Move(x float64) (model.Domain, bool) {
	if !g.active {
		return model.Domain{}, false
	}
	return Pan(g.base, (x-g.startX)/g.rect.Width), true
}

// End releases the drag.
func (g *Drag) End() {
	*g = Drag{}
}

// Active reports whether a drag is in progress.
func (g *Drag) Active() bool {
	return g.active
}
