// Package camera maps the window viewport onto the wrapping simulation domain.
package camera

import "math"

// View is a pan and zoom window into a toroidal domain measured in cells.
type View struct {
	// Center of the view in domain cells
	X, Y float32

	// Screen pixels per domain cell
	Zoom float32

	// Viewport size in screen pixels
	ViewportW, ViewportH float32

	// Domain size in cells
	DomainW, DomainH float32

	MinZoom, MaxZoom float32
}

// maxZoomFactor bounds magnification relative to the fitted zoom.
const maxZoomFactor = 16

// New creates a view centered on the domain, zoomed so the whole domain fits.
func New(viewportW, viewportH, domainW, domainH float32) *View {
	v := &View{DomainW: domainW, DomainH: domainH}
	v.Resize(viewportW, viewportH)
	v.Reset()
	return v
}

// fit returns the largest zoom that shows the whole domain.
func (v *View) fit() float32 {
	return min(v.ViewportW/v.DomainW, v.ViewportH/v.DomainH)
}

// Source returns the visible domain rectangle in cells. The rectangle may
// extend past the domain edges; callers sample it with wrapping.
func (v *View) Source() (x, y, w, h float32) {
	w = v.ViewportW / v.Zoom
	h = v.ViewportH / v.Zoom
	return v.X - w/2, v.Y - h/2, w, h
}

// ScreenToDomain converts a viewport position to domain cells.
func (v *View) ScreenToDomain(sx, sy float32) (dx, dy float32) {
	dx = mod(v.X+(sx-v.ViewportW/2)/v.Zoom, v.DomainW)
	dy = mod(v.Y+(sy-v.ViewportH/2)/v.Zoom, v.DomainH)
	return dx, dy
}

// Resize updates the viewport and rescales the zoom limits.
func (v *View) Resize(viewportW, viewportH float32) {
	if viewportW == v.ViewportW && viewportH == v.ViewportH {
		return
	}
	v.ViewportW = viewportW
	v.ViewportH = viewportH
	v.MinZoom = v.fit()
	v.MaxZoom = v.MinZoom * maxZoomFactor
	v.SetZoom(v.Zoom)
}

// Pan moves the view by a delta in screen pixels, wrapping at the domain edges.
func (v *View) Pan(dx, dy float32) {
	v.X = mod(v.X+dx/v.Zoom, v.DomainW)
	v.Y = mod(v.Y+dy/v.Zoom, v.DomainH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (v *View) SetZoom(zoom float32) {
	v.Zoom = clamp(zoom, v.MinZoom, v.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (v *View) ZoomBy(factor float32) {
	v.SetZoom(v.Zoom * factor)
}

// Reset centers the view and fits the domain.
func (v *View) Reset() {
	v.X = v.DomainW / 2
	v.Y = v.DomainH / 2
	v.Zoom = v.MinZoom
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
