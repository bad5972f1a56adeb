// Package buttons implements the physical buttons handler of spec.md
// §4.5: it snapshots the four boolean button states each tick, and acts
// on falling edges.
package buttons

import "vnsee.dev/evdev"

// Scheduler is the subset of repaint.Scheduler the buttons handler
// drives.
type Scheduler interface {
	ForceRepaint() error
}

// Snapshot holds the instantaneous state of the four tracked buttons.
type Snapshot struct {
	Left, Right, Home, Power bool
}

// Quit is returned by Tick when the power button's falling edge
// should terminate the event loop cleanly.
type Quit struct{}

func (Quit) Error() string { return "buttons: power released, quit requested" }

// Handler tracks the previous button snapshot to detect edges.
type Handler struct {
	sched Scheduler
	prev  Snapshot
}

// New returns a Handler with all buttons initially considered released.
func New(sched Scheduler) *Handler {
	return &Handler{sched: sched}
}

// ApplyFrame folds one EV_SYN-delimited batch of raw key events into cur,
// which the caller should seed with the previous Snapshot (buttons are
// stateful keys; a frame with no events for a given code leaves it
// unchanged).
func ApplyFrame(cur Snapshot, frame []evdev.Event) Snapshot {
	for _, e := range frame {
		if e.Type != evdev.EvKey {
			continue
		}
		pressed := e.Value != 0
		switch e.Code {
		case evdev.KeyLeft:
			cur.Left = pressed
		case evdev.KeyRight:
			cur.Right = pressed
		case evdev.KeyHome:
			cur.Home = pressed
		case evdev.KeyPower:
			cur.Power = pressed
		}
	}
	return cur
}

// Tick compares cur against the previously seen snapshot and acts on
// falling edges: power's falling edge returns Quit; home's falling edge
// forces a repaint. Other buttons are recorded but produce no action.
func (h *Handler) Tick(cur Snapshot) error {
	prev := h.prev
	h.prev = cur

	if prev.Power && !cur.Power {
		return Quit{}
	}
	if prev.Home && !cur.Home {
		return h.sched.ForceRepaint()
	}
	return nil
}
