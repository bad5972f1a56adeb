// Package damage implements the damage accumulator of spec.md §4.1: a
// bounding-box merge of server-sent rectangles, cheap to compute and
// lossless for the pixels it covers.
package damage

import (
	"time"

	"vnsee.dev/geom"
	"vnsee.dev/internal/clock"
)

// Accumulator merges incoming rectangles into a single outstanding damage
// rectangle. It is owned exclusively by the repaint scheduler.
type Accumulator struct {
	clock  clock.Clock
	screen geom.Screen

	rect             geom.Rect
	hasUpdate        bool
	lastServerUpdate time.Time
}

// New returns an Accumulator clipping incoming rectangles to screen and
// using clk as its time source.
func New(screen geom.Screen, clk clock.Clock) *Accumulator {
	return &Accumulator{clock: clk, screen: screen}
}

// Record merges r, clipped to the screen, into the outstanding damage
// rectangle. Empty rectangles (after clipping) are dropped without
// affecting hasUpdate or the stored timestamp.
func (a *Accumulator) Record(r geom.Rect) {
	r = r.Clip(a.screen)
	if r.Empty() {
		return
	}
	a.rect = a.rect.Union(r)
	a.hasUpdate = true
	a.lastServerUpdate = a.clock.Now()
}

// HasUpdate reports whether there is outstanding damage.
func (a *Accumulator) HasUpdate() bool { return a.hasUpdate }

// Rect returns the current outstanding damage rectangle without clearing
// it. The result is meaningless if HasUpdate is false.
func (a *Accumulator) Rect() geom.Rect { return a.rect }

// Peek returns the current damage rectangle and whether it is valid,
// without clearing it. The repaint scheduler uses this instead of
// TakeAndClear so it can decide, per mode, whether to clear afterwards.
func (a *Accumulator) Peek() (geom.Rect, bool) { return a.rect, a.hasUpdate }

// LastServerUpdate returns the timestamp of the most recent Record call
// that produced outstanding damage.
func (a *Accumulator) LastServerUpdate() time.Time { return a.lastServerUpdate }

// TakeAndClear returns the current damage rectangle and clears the
// outstanding-update flag. The boolean result mirrors HasUpdate as it was
// before the call.
func (a *Accumulator) TakeAndClear() (geom.Rect, bool) {
	r, ok := a.rect, a.hasUpdate
	a.rect = geom.Rect{}
	a.hasUpdate = false
	return r, ok
}

// Clear drops any outstanding damage without returning it, used by the
// scheduler after a Standard-mode repaint has covered the whole rect.
// It is an alias for Reset kept as a distinct name for that call site.
func (a *Accumulator) Clear() {
	a.Reset()
}

// Reset discards any outstanding damage and resets the rectangle, used
// when a force repaint makes any prior partial damage moot.
func (a *Accumulator) Reset() {
	a.rect = geom.Rect{}
	a.hasUpdate = false
}
