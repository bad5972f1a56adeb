package pen

import (
	"testing"

	"vnsee.dev/evdev"
	"vnsee.dev/pointer"
	"vnsee.dev/repaint"
)

type fakeScheduler struct {
	modes        []repaint.Mode
	forceRepaint int
}

func (f *fakeScheduler) SetMode(m repaint.Mode) error {
	f.modes = append(f.modes, m)
	return nil
}

func (f *fakeScheduler) ForceRepaint() error {
	f.forceRepaint++
	return nil
}

type recorder struct {
	holds []pointer.Event
}

func (r *recorder) SendPointer(x, y int, mask uint8) error {
	r.holds = append(r.holds, pointer.Event{X: x, Y: y, Button: pointer.Button(mask)})
	return nil
}

func absEvent(code uint16, v int32) evdev.Event {
	return evdev.Event{Type: evdev.EvAbs, Code: code, Value: v}
}

func keyEvent(code uint16, v int32) evdev.Event {
	return evdev.Event{Type: evdev.EvKey, Code: code, Value: v}
}

// TestPenDownTriggersFastMode reproduces spec.md §4.4's fast-mode toggle:
// proximity plus pressure transitions the scheduler into Fast mode, and
// the pressure returning to zero while still in proximity (the real nib
// lift sequence: pressure drops before BtnToolPen clears) transitions
// back to Standard with a forced repaint.
func TestPenDownTriggersFastMode(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	h := New(sched, pointer.New(rec), 2000, 1500, false, false)

	downFrame := []evdev.Event{
		keyEvent(evdev.BtnToolPen, 1),
		absEvent(evdev.AbsX, 1000),
		absEvent(evdev.AbsY, 750),
		absEvent(evdev.AbsPressure, 100),
	}
	if err := h.ProcessFrame(downFrame, 1404, 1872); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if !h.IsActive() {
		t.Fatalf("expected pen active")
	}
	if len(sched.modes) != 1 || sched.modes[0] != repaint.Fast {
		t.Fatalf("expected a single Fast transition, got %v", sched.modes)
	}

	liftPressureFrame := []evdev.Event{absEvent(evdev.AbsPressure, 0)}
	if err := h.ProcessFrame(liftPressureFrame, 1404, 1872); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if !h.IsActive() {
		t.Fatalf("expected pen still in proximity after pressure lift")
	}
	if len(sched.modes) != 2 || sched.modes[1] != repaint.Standard {
		t.Fatalf("expected a Standard transition on pressure lift, got %v", sched.modes)
	}
	if sched.forceRepaint != 1 {
		t.Fatalf("expected exactly one forced repaint on pressure lift, got %d", sched.forceRepaint)
	}

	proximityLossFrame := []evdev.Event{keyEvent(evdev.BtnToolPen, 0)}
	if err := h.ProcessFrame(proximityLossFrame, 1404, 1872); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if h.IsActive() {
		t.Fatalf("expected pen inactive after proximity loss")
	}
	if len(sched.modes) != 2 {
		t.Fatalf("expected no further scheduler transition on proximity loss, got %v", sched.modes)
	}
	if sched.forceRepaint != 1 {
		t.Fatalf("expected no additional forced repaint on proximity loss, got %d", sched.forceRepaint)
	}
}

// TestPenLiftAndProximityLossInSameFrame covers a driver that batches the
// pressure-drop and proximity-loss events into a single EV_SYN frame,
// rather than two separate frames: the Standard transition must still
// fire exactly once.
func TestPenLiftAndProximityLossInSameFrame(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	h := New(sched, pointer.New(rec), 2000, 1500, false, false)

	downFrame := []evdev.Event{
		keyEvent(evdev.BtnToolPen, 1),
		absEvent(evdev.AbsX, 1000),
		absEvent(evdev.AbsY, 750),
		absEvent(evdev.AbsPressure, 100),
	}
	if err := h.ProcessFrame(downFrame, 1404, 1872); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if len(sched.modes) != 1 || sched.modes[0] != repaint.Fast {
		t.Fatalf("expected a single Fast transition, got %v", sched.modes)
	}

	combinedLiftFrame := []evdev.Event{
		absEvent(evdev.AbsPressure, 0),
		keyEvent(evdev.BtnToolPen, 0),
	}
	if err := h.ProcessFrame(combinedLiftFrame, 1404, 1872); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if h.IsActive() {
		t.Fatalf("expected pen inactive after combined lift frame")
	}
	if len(sched.modes) != 2 || sched.modes[1] != repaint.Standard {
		t.Fatalf("expected a Standard transition on the combined lift frame, got %v", sched.modes)
	}
	if sched.forceRepaint != 1 {
		t.Fatalf("expected exactly one forced repaint on the combined lift frame, got %d", sched.forceRepaint)
	}
}
