// Package repaint implements the repaint scheduler of spec.md §4.2: it
// decides when to push the accumulated damage rectangle to the panel and
// with which waveform, alternating between a slow high-fidelity Standard
// mode and a fast low-fidelity Fast mode.
package repaint

import (
	"time"

	"vnsee.dev/damage"
	"vnsee.dev/geom"
	"vnsee.dev/internal/clock"
	"vnsee.dev/panel"
)

// Mode is the scheduler's repaint mode, controlling waveform and delay.
type Mode int

const (
	Standard Mode = iota
	Fast
)

const (
	standardDelay = 400 * time.Millisecond
	fastDelay     = 50 * time.Millisecond
)

// NoDeadline is the "wait indefinitely" sentinel Tick returns when there
// is nothing to schedule.
const NoDeadline = -1

// Scheduler decides when and how to push the damage accumulator's
// outstanding rectangle to the panel. It owns no damage rectangle of its
// own; per spec.md §3 that belongs to the accumulator it wraps.
type Scheduler struct {
	submitter panel.Submitter
	acc       *damage.Accumulator
	clock     clock.Clock
	screen    geom.Screen
	markers   panel.MarkerSequence

	mode        Mode
	lastRepaint time.Time

	lastFastRect    geom.Rect
	hasLastFastRect bool
}

// New returns a Scheduler in Standard mode, with no repaint yet performed.
// lastRepaint is seeded to the current time so the first Tick honors the
// inter-repaint delay instead of treating the zero time as long overdue.
func New(sub panel.Submitter, acc *damage.Accumulator, scr geom.Screen, clk clock.Clock) *Scheduler {
	return &Scheduler{submitter: sub, acc: acc, screen: scr, clock: clk, lastRepaint: clk.Now()}
}

// Mode returns the scheduler's current repaint mode.
func (s *Scheduler) Mode() Mode { return s.mode }

func delayFor(m Mode) time.Duration {
	if m == Fast {
		return fastDelay
	}
	return standardDelay
}

func waveformFor(m Mode) panel.Waveform {
	if m == Fast {
		return panel.WaveformDU
	}
	return panel.WaveformGC16
}

func msFromDuration(d time.Duration) int {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return int(ms)
}

func panelRect(r geom.Rect) panel.Rect {
	return panel.Rect{Top: uint32(r.Y), Left: uint32(r.X), Width: uint32(r.W), Height: uint32(r.H)}
}

// Tick is polled once per event-loop iteration. It returns the number of
// milliseconds until the scheduler next wants to be woken, or NoDeadline
// if there is nothing outstanding to schedule.
func (s *Scheduler) Tick() (int, error) {
	now := s.clock.Now()
	if _, ok := s.acc.Peek(); !ok {
		return NoDeadline, nil
	}
	if wait := s.lastRepaint.Add(delayFor(s.mode)).Sub(now); wait > 0 {
		return msFromDuration(wait), nil
	}
	r, _ := s.acc.Peek()
	if err := s.repaintRect(r, waveformFor(s.mode), now); err != nil {
		return 0, err
	}
	if s.mode == Standard {
		s.acc.Clear()
	} else {
		s.lastFastRect = r
		s.hasLastFastRect = true
	}
	if _, ok := s.acc.Peek(); !ok {
		return NoDeadline, nil
	}
	return msFromDuration(delayFor(s.mode)), nil
}

func (s *Scheduler) repaintRect(r geom.Rect, wf panel.Waveform, now time.Time) error {
	data := panel.NewUpdate(panelRect(r), wf, panel.ModePartial, s.markers.Next())
	if err := s.submitter.Submit(data, false); err != nil {
		return err
	}
	s.lastRepaint = now
	return nil
}

// ForceRepaint triggers a full-screen update with waveform GC16 and
// update mode Full regardless of outstanding damage, used by the home
// button handler (spec.md §4.5).
func (s *Scheduler) ForceRepaint() error {
	now := s.clock.Now()
	data := panel.NewUpdate(panelRect(geom.Full(s.screen)), panel.WaveformGC16, panel.ModeFull, s.markers.Next())
	if err := s.submitter.Submit(data, true); err != nil {
		return err
	}
	s.lastRepaint = now
	s.acc.Reset()
	s.hasLastFastRect = false
	return nil
}

// SetMode switches the scheduler's repaint mode, called by the pen
// handler on pen-down (Fast) and pen-up (Standard). On a Fast->Standard
// transition it performs one immediate standard repaint covering at
// least the last Fast-repainted area, to clean up DU ghosting residue.
func (s *Scheduler) SetMode(m Mode) error {
	prev := s.mode
	s.mode = m
	if prev != Fast || m != Standard {
		return nil
	}
	now := s.clock.Now()
	r, hasDamage := s.acc.Peek()
	if s.hasLastFastRect {
		r = r.Union(s.lastFastRect)
	} else if !hasDamage {
		return nil
	}
	data := panel.NewUpdate(panelRect(r), panel.WaveformGC16, panel.ModePartial, s.markers.Next())
	if err := s.submitter.Submit(data, false); err != nil {
		return err
	}
	s.lastRepaint = now
	s.acc.Clear()
	s.hasLastFastRect = false
	return nil
}
