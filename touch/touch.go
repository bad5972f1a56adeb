// Package touch implements the touch intent FSM of spec.md §4.3: it turns
// a stream of multi-touch slot updates (Linux multi-touch protocol B)
// into taps, a long-press right-click, and discrete horizontal/vertical
// scroll ticks.
package touch

import (
	"math"
	"time"

	"vnsee.dev/evdev"
	"vnsee.dev/geom"
	"vnsee.dev/internal/clock"
	"vnsee.dev/pointer"
)

// Intent is the FSM's current interaction state.
type Intent int

const (
	Inactive Intent = iota
	Tap
	ScrollX
	ScrollY
)

const (
	scrollDelta = 10    // pixels, before a Tap becomes a scroll
	scrollSpeed = 0.013 // ticks per pixel
	longPress   = 500 * time.Millisecond
)

// AxisMap converts sensor-native coordinates to screen coordinates,
// encapsulating the per-hardware-revision axis flips called out as an
// Open Question in spec.md §9: which axes are flipped is a property of
// the device, not of this FSM, so it is supplied data-driven at
// construction.
type AxisMap struct {
	MinX, MaxX, MinY, MaxY int
	FlipX, FlipY           bool
}

func (m AxisMap) toScreen(x, y int, scr geom.Screen) (int, int) {
	spanX := m.MaxX - m.MinX
	spanY := m.MaxY - m.MinY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	fx := float64(x-m.MinX) / float64(spanX)
	fy := float64(y-m.MinY) / float64(spanY)
	if m.FlipX {
		fx = 1 - fx
	}
	if m.FlipY {
		fy = 1 - fy
	}
	return int(fx * float64(scr.XRes)), int(fy * float64(scr.YRes))
}

type slot struct {
	x, y, pressure, orientation int
}

// FSM tracks live multi-touch slots and the single interaction derived
// from their centroid.
type FSM struct {
	clock  clock.Clock
	screen geom.Screen
	axis   AxisMap

	slots   map[int]*slot
	curSlot int

	state                          Intent
	xInit, yInit                   int
	touchStart                     time.Time
	xScrollTicksSent, yScrollTicksSent int
}

// New returns an FSM in the Inactive state.
func New(scr geom.Screen, axis AxisMap, clk clock.Clock) *FSM {
	return &FSM{clock: clk, screen: scr, axis: axis, slots: make(map[int]*slot)}
}

// State returns the FSM's current interaction state.
func (f *FSM) State() Intent { return f.state }

func (f *FSM) slotFor(id int) *slot {
	s, ok := f.slots[id]
	if !ok {
		s = &slot{}
		f.slots[id] = s
	}
	return s
}

// applyFrame replays one EV_SYN-delimited batch of raw events against the
// slot map, per the Linux multi-touch protocol B encoding.
func (f *FSM) applyFrame(frame []evdev.Event) {
	for _, e := range frame {
		if e.Type != evdev.EvAbs {
			continue
		}
		switch e.Code {
		case evdev.AbsMtSlot:
			f.curSlot = int(e.Value)
		case evdev.AbsMtTrackingID:
			if e.Value < 0 {
				delete(f.slots, f.curSlot)
			} else {
				f.slotFor(f.curSlot)
			}
		case evdev.AbsMtPositionX:
			f.slotFor(f.curSlot).x = int(e.Value)
		case evdev.AbsMtPositionY:
			f.slotFor(f.curSlot).y = int(e.Value)
		case evdev.AbsMtPressure:
			f.slotFor(f.curSlot).pressure = int(e.Value)
		case evdev.AbsMtOrientation:
			f.slotFor(f.curSlot).orientation = int(e.Value)
		}
	}
}

// centroid returns the arithmetic mean of all active slots' positions in
// sensor-native coordinates.
func (f *FSM) centroid() (int, int) {
	var sx, sy, n int
	for _, s := range f.slots {
		sx += s.x
		sy += s.y
		n++
	}
	return sx / n, sy / n
}

// ProcessFrame applies one EV_SYN-delimited batch of raw touch events and
// returns the pointer events it produces. If inhibit is true (the pen is
// active), the FSM is forced to Inactive and emits nothing, per the
// inhibition rule of spec.md §4.3.
func (f *FSM) ProcessFrame(frame []evdev.Event, inhibit bool) []pointer.Event {
	f.applyFrame(frame)

	if inhibit {
		f.state = Inactive
		return nil
	}

	if len(f.slots) == 0 {
		return f.handleLift()
	}

	sx, sy := f.centroid()
	x, y := f.axis.toScreen(sx, sy, f.screen)

	if f.state == Inactive {
		f.xInit, f.yInit = x, y
		f.touchStart = f.clock.Now()
		f.xScrollTicksSent, f.yScrollTicksSent = 0, 0
		f.state = Tap
		return nil
	}

	switch f.state {
	case Tap:
		switch {
		case abs(x-f.xInit) >= scrollDelta:
			f.state = ScrollX
		case abs(y-f.yInit) >= scrollDelta:
			f.state = ScrollY
		default:
			return nil
		}
		return f.ProcessFrame(nil, false)
	case ScrollX:
		return f.emitScrollX(x)
	case ScrollY:
		return f.emitScrollY(y)
	}
	return nil
}

func (f *FSM) emitScrollX(x int) []pointer.Event {
	ticks := int(math.Round(float64(x-f.xInit) * scrollSpeed))
	diff := ticks - f.xScrollTicksSent
	f.xScrollTicksSent = ticks
	var evts []pointer.Event
	btn := pointer.ScrollRight
	if diff < 0 {
		btn = pointer.ScrollLeft
		diff = -diff
	}
	for i := 0; i < diff; i++ {
		evts = append(evts,
			pointer.Event{X: f.xInit, Y: f.yInit, Button: btn},
			pointer.Event{X: f.xInit, Y: f.yInit, Button: pointer.None},
		)
	}
	return evts
}

func (f *FSM) emitScrollY(y int) []pointer.Event {
	ticks := int(math.Round(float64(y-f.yInit) * scrollSpeed))
	diff := ticks - f.yScrollTicksSent
	f.yScrollTicksSent = ticks
	var evts []pointer.Event
	btn := pointer.ScrollDown
	if diff < 0 {
		btn = pointer.ScrollUp
		diff = -diff
	}
	for i := 0; i < diff; i++ {
		evts = append(evts,
			pointer.Event{X: f.xInit, Y: f.yInit, Button: btn},
			pointer.Event{X: f.xInit, Y: f.yInit, Button: pointer.None},
		)
	}
	return evts
}

func (f *FSM) handleLift() []pointer.Event {
	var evts []pointer.Event
	if f.state == Tap {
		btn := pointer.Left
		if f.clock.Now().Sub(f.touchStart) >= longPress {
			btn = pointer.Right
		}
		evts = append(evts,
			pointer.Event{X: f.xInit, Y: f.yInit, Button: btn},
			pointer.Event{X: f.xInit, Y: f.yInit, Button: pointer.None},
		)
	}
	f.state = Inactive
	return evts
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
