// Package geom holds the small geometric types shared by the damage
// accumulator, repaint scheduler, and panel submission path: screen
// resolution and axis-aligned rectangles clipped to it.
package geom

// Screen describes the visible and in-memory panel resolution. Memory
// resolution may exceed visible resolution when rows are padded.
type Screen struct {
	XRes, YRes       int
	XResMem, YResMem int
}

// Stride returns the row byte stride for the given bits-per-pixel.
func (s Screen) Stride(bpp int) int {
	return s.XResMem * bpp / 8
}

// BufferSize returns the total framebuffer size in bytes for bpp.
func (s Screen) BufferSize(bpp int) int {
	return s.Stride(bpp) * s.YResMem
}

// Rect is an axis-aligned, half-open-free rectangle: all of x, y, w, h are
// non-negative and w, h describe a width/height rather than a max corner.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers zero area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Union returns the smallest rectangle containing both r and o. If either
// is empty, the other is returned unchanged.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Clip clips r to the screen bounds [0,XRes) x [0,YRes). Negative origins
// are clamped to zero and the rectangle is shrunk accordingly. The result
// may be Empty.
func (r Rect) Clip(s Screen) Rect {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > s.XRes {
		x1 = s.XRes
	}
	if y1 > s.YRes {
		y1 = s.YRes
	}
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Full returns the full-screen rectangle.
func Full(s Screen) Rect {
	return Rect{X: 0, Y: 0, W: s.XRes, H: s.YRes}
}
