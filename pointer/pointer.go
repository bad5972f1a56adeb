// Package pointer implements the pointer output event and dispatcher of
// spec.md §3 and §4.7: button mask enumeration, and a thin adapter whose
// Click follows a press with an immediate release. Hold sends a press
// with no release; the caller ends it with Release. Forward sends an
// event as given, adding no release.
package pointer

import "fmt"

// Button is a bitmask of pointer buttons, matching the RFB wire format's
// button-mask byte. Per the Design Notes, code should always compose
// masks with explicit bitwise-OR of named constants, never by doing
// arithmetic on enum values.
type Button uint8

const (
	None        Button = 0
	Left        Button = 1 << 0
	Right       Button = 1 << 1
	Middle      Button = 1 << 2
	ScrollDown  Button = 1 << 3
	ScrollUp    Button = 1 << 4
	ScrollLeft  Button = 1 << 5
	ScrollRight Button = 1 << 6
)

func (b Button) String() string {
	if b == None {
		return "none"
	}
	names := []struct {
		b Button
		s string
	}{
		{Left, "left"}, {Right, "right"}, {Middle, "middle"},
		{ScrollDown, "scroll-down"}, {ScrollUp, "scroll-up"},
		{ScrollLeft, "scroll-left"}, {ScrollRight, "scroll-right"},
	}
	s := ""
	for _, n := range names {
		if b&n.b != 0 {
			if s != "" {
				s += "|"
			}
			s += n.s
		}
	}
	return s
}

// Event is a single pointer output event: a position and a button mask.
type Event struct {
	X, Y   int
	Button Button
}

// Sender is the subset of the RFB adapter the dispatcher needs: a single
// wire-level pointer event send, per spec.md §6(c).
type Sender interface {
	SendPointer(x, y int, mask uint8) error
}

// Dispatcher assembles press/release pairs and forwards them to Sender.
// It holds no state of its own; per spec.md §4.7 the input components
// remember whether they are currently holding a button.
type Dispatcher struct {
	sender Sender
}

// New returns a Dispatcher writing to sender.
func New(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Move sends a cursor-move-only event: a single mask-zero send.
func (d *Dispatcher) Move(x, y int) error {
	return d.send(x, y, None)
}

// Click sends a press with btn held, immediately followed by a release
// (mask zero) at the same position, satisfying the pointer-parity
// invariant of spec.md §8.
func (d *Dispatcher) Click(x, y int, btn Button) error {
	if err := d.send(x, y, btn); err != nil {
		return err
	}
	return d.send(x, y, None)
}

// Hold sends a press with btn held, without a following release; used by
// the pen handler for drag, which releases explicitly via Release once
// contact ends.
func (d *Dispatcher) Hold(x, y int, btn Button) error {
	return d.send(x, y, btn)
}

// Release sends a mask-zero event, used to end a Hold.
func (d *Dispatcher) Release(x, y int) error {
	return d.send(x, y, None)
}

// Forward sends evt verbatim, without adding a release. It is used by
// callers (e.g. the touch intent FSM) that have already assembled
// complete press/release pairs themselves.
func (d *Dispatcher) Forward(evt Event) error {
	return d.send(evt.X, evt.Y, evt.Button)
}

func (d *Dispatcher) send(x, y int, btn Button) error {
	if err := d.sender.SendPointer(x, y, uint8(btn)); err != nil {
		return fmt.Errorf("pointer: %w", err)
	}
	return nil
}
