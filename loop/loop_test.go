package loop

import (
	"errors"
	"testing"

	"vnsee.dev/buttons"
)

type fakeClient struct {
	fd     int
	drains int
	closed int
}

func (c *fakeClient) Fd() (int, error) { return c.fd, nil }
func (c *fakeClient) Drain() error     { c.drains++; return nil }
func (c *fakeClient) Close() error     { c.closed++; return nil }

type fakeScheduler struct{ ticks int }

func (s *fakeScheduler) Tick() (int, error) { s.ticks++; return 50, nil }

// TestTickAndPowerReleaseQuit checks that one loop tick drains the RFB
// client once and passes the scheduler's timeout through, and that a
// power-button falling edge, driven through buttons.Handler directly,
// yields buttons.Quit. Run and the client's Close are not exercised here.
func TestTickAndPowerReleaseQuit(t *testing.T) {
	client := &fakeClient{}
	sched := &fakeScheduler{}
	l := New(Config{Client: client, Scheduler: sched})

	timeout, err := l.tick()
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if timeout != 50 {
		t.Fatalf("expected scheduler's timeout to pass through, got %d", timeout)
	}
	if client.drains != 1 {
		t.Fatalf("expected exactly one drain, got %d", client.drains)
	}

	// Simulate a power-button falling edge by driving the buttons handler
	// directly, the same path loop.tick takes when enableButtons is set,
	// and confirm it yields buttons.Quit, which tick turns into the loop's
	// internal quitError.
	btnH := buttons.New(noopForceRepaint{})
	down := buttons.ApplyFrame(buttons.Snapshot{}, nil)
	down.Power = true
	btnH.Tick(down)
	up := down
	up.Power = false
	berr := btnH.Tick(up)
	if berr == nil {
		t.Fatalf("expected Quit on power release")
	}
	var q buttons.Quit
	if !errors.As(berr, &q) {
		t.Fatalf("expected a buttons.Quit, got %v", berr)
	}
}

type noopForceRepaint struct{}

func (noopForceRepaint) ForceRepaint() error { return nil }
