package buttons

import (
	"errors"
	"testing"

	"vnsee.dev/evdev"
)

type fakeScheduler struct{ forceRepaint int }

func (f *fakeScheduler) ForceRepaint() error {
	f.forceRepaint++
	return nil
}

// TestPowerFallingEdgeQuits reproduces spec.md §8 scenario 6: releasing
// the power button signals the loop to quit cleanly.
func TestPowerFallingEdgeQuits(t *testing.T) {
	sched := &fakeScheduler{}
	h := New(sched)

	down := ApplyFrame(Snapshot{}, []evdev.Event{{Type: evdev.EvKey, Code: evdev.KeyPower, Value: 1}})
	if err := h.Tick(down); err != nil {
		t.Fatalf("press should not quit, got %v", err)
	}

	up := ApplyFrame(down, []evdev.Event{{Type: evdev.EvKey, Code: evdev.KeyPower, Value: 0}})
	err := h.Tick(up)
	var q Quit
	if !errors.As(err, &q) {
		t.Fatalf("expected Quit on power release, got %v", err)
	}
}

func TestHomeFallingEdgeForcesRepaint(t *testing.T) {
	sched := &fakeScheduler{}
	h := New(sched)

	down := ApplyFrame(Snapshot{}, []evdev.Event{{Type: evdev.EvKey, Code: evdev.KeyHome, Value: 1}})
	if err := h.Tick(down); err != nil {
		t.Fatalf("press should not act, got %v", err)
	}

	up := ApplyFrame(down, []evdev.Event{{Type: evdev.EvKey, Code: evdev.KeyHome, Value: 0}})
	if err := h.Tick(up); err != nil {
		t.Fatalf("release: %v", err)
	}
	if sched.forceRepaint != 1 {
		t.Fatalf("expected exactly one forced repaint, got %d", sched.forceRepaint)
	}
}

func TestOtherButtonsNoAction(t *testing.T) {
	sched := &fakeScheduler{}
	h := New(sched)

	down := ApplyFrame(Snapshot{}, []evdev.Event{{Type: evdev.EvKey, Code: evdev.KeyLeft, Value: 1}})
	h.Tick(down)
	up := ApplyFrame(down, []evdev.Event{{Type: evdev.EvKey, Code: evdev.KeyLeft, Value: 0}})
	if err := h.Tick(up); err != nil {
		t.Fatalf("left button edge should be a no-op, got %v", err)
	}
	if sched.forceRepaint != 0 {
		t.Fatalf("left button should not force repaint")
	}
}
