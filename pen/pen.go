// Package pen implements the pen intent handler of spec.md §4.4: it turns
// EMR stylus proximity/position/pressure events into continuous pointer
// tracking plus drag, and toggles the repaint scheduler into Fast mode
// while the nib is in contact.
package pen

import (
	"vnsee.dev/evdev"
	"vnsee.dev/pointer"
	"vnsee.dev/repaint"
)

// Scheduler is the subset of repaint.Scheduler the pen handler drives.
type Scheduler interface {
	SetMode(mode repaint.Mode) error
	ForceRepaint() error
}

// Button-state constants for the fast-mode toggle's prev_state tracking.
const (
	stateNone = 0
	stateLeft = 1
)

// Handler tracks pen axis ranges and emits pointer events plus scheduler
// mode transitions.
type Handler struct {
	sched  Scheduler
	sender *pointer.Dispatcher
	xMax   int32
	yMax   int32
	flipX  bool
	flipY  bool

	prevMask              int
	xRaw, yRaw, pressure  int32
	active                bool
}

// New returns a Handler mapping pen axis range [0,xMax]x[0,yMax] (as
// reported by the pen device's AbsRange) onto the screen, with optional
// axis flips per the device descriptor.
func New(sched Scheduler, sender *pointer.Dispatcher, xMax, yMax int32, flipX, flipY bool) *Handler {
	return &Handler{sched: sched, sender: sender, xMax: xMax, yMax: yMax, flipX: flipX, flipY: flipY}
}

// IsActive reports whether the pen tool is currently in proximity, used
// by the multiplexer to inhibit the touch component.
func (h *Handler) IsActive() bool { return h.active }

// ProcessFrame applies one EV_SYN-delimited batch of raw pen events,
// updating tracked position/pressure/tool state, and returns any
// scheduler-mode-transition or pointer-send error.
func (h *Handler) ProcessFrame(frame []evdev.Event, screenXRes, screenYRes int) error {
	for _, e := range frame {
		switch {
		case e.Type == evdev.EvAbs && e.Code == evdev.AbsX:
			h.xRaw = e.Value
		case e.Type == evdev.EvAbs && e.Code == evdev.AbsY:
			h.yRaw = e.Value
		case e.Type == evdev.EvAbs && e.Code == evdev.AbsPressure:
			h.pressure = e.Value
		case e.Type == evdev.EvKey && e.Code == evdev.BtnToolPen:
			h.active = e.Value != 0
		case e.Type == evdev.EvKey && e.Code == evdev.BtnToolRubber:
			h.active = e.Value != 0
		}
	}
	px, py := float64(h.xRaw), float64(h.yRaw)
	fx := py / float64(h.yMax)
	fy := 1 - px/float64(h.xMax)
	if h.flipX {
		fx = 1 - fx
	}
	if h.flipY {
		fy = 1 - fy
	}
	x := int(fx * float64(screenXRes))
	y := int(fy * float64(screenYRes))

	// mask is Left only while the tool is in proximity and pressure is
	// positive. A single EV_SYN batch can carry both the pressure-drop and
	// the proximity-loss events together (e.g. BTN_TOOL_PEN and
	// ABS_PRESSURE=0 in the same frame) rather than across two frames;
	// either one alone ends the Left state, so the Left->None transition
	// fires exactly once in both cases.
	mask := stateNone
	btn := pointer.None
	if h.active && h.pressure > 0 {
		mask = stateLeft
		btn = pointer.Left
	}
	switch {
	case h.prevMask == stateNone && mask == stateLeft:
		h.prevMask = mask
		if err := h.sched.SetMode(repaint.Fast); err != nil {
			return err
		}
	case h.prevMask == stateLeft && mask == stateNone:
		h.prevMask = mask
		if err := h.sched.SetMode(repaint.Standard); err != nil {
			return err
		}
		if err := h.sched.ForceRepaint(); err != nil {
			return err
		}
		return h.sender.Release(x, y)
	default:
		h.prevMask = mask
	}

	if !h.active {
		return nil
	}
	return h.sender.Hold(x, y, btn)
}
