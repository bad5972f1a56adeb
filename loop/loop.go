// Package loop implements the cooperative single-threaded event-loop
// multiplexer of spec.md §4.6: it waits on the RFB socket and every
// input device fd with a merged timeout, then services each in a fixed
// order once woken.
package loop

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"vnsee.dev/buttons"
	"vnsee.dev/evdev"
	"vnsee.dev/pen"
	"vnsee.dev/pointer"
	"vnsee.dev/touch"
)

// Client is the subset of rfb.Client the loop drives.
type Client interface {
	Fd() (int, error)
	Drain() error
	Close() error
}

// Scheduler is the subset of repaint.Scheduler the loop drives.
type Scheduler interface {
	Tick() (int, error)
}

// Loop wires the RFB connection, the repaint scheduler, and the three
// input components together, per spec.md §4.6's servicing order: RFB-in
// → scheduler → pen → buttons → touch.
type Loop struct {
	client  Client
	sched   Scheduler
	touchFn *touch.FSM
	penH    *pen.Handler
	btnH    *buttons.Handler
	sender  *pointer.Dispatcher

	touchDev   *evdev.Device
	penDev     *evdev.Device
	buttonsDev *evdev.Device

	enableTouch, enablePen, enableButtons bool

	btnSnapshot            buttons.Snapshot
	screenXRes, screenYRes int
}

// Config supplies the Loop's collaborators. Any of TouchDev/PenDev/
// ButtonsDev may be nil if the corresponding --no-* flag was passed;
// the loop simply omits that fd from its wait set.
type Config struct {
	Client     Client
	Scheduler  Scheduler
	Sender     *pointer.Dispatcher
	TouchFSM   *touch.FSM
	PenHandler *pen.Handler
	ButtonsH   *buttons.Handler
	TouchDev   *evdev.Device
	PenDev     *evdev.Device
	ButtonsDev *evdev.Device
	ScreenXRes, ScreenYRes int
}

// New returns a Loop ready to Run.
func New(cfg Config) *Loop {
	return &Loop{
		client: cfg.Client, sched: cfg.Scheduler, sender: cfg.Sender,
		touchFn: cfg.TouchFSM, penH: cfg.PenHandler, btnH: cfg.ButtonsH,
		touchDev: cfg.TouchDev, penDev: cfg.PenDev, buttonsDev: cfg.ButtonsDev,
		enableTouch: cfg.TouchDev != nil, enablePen: cfg.PenDev != nil, enableButtons: cfg.ButtonsDev != nil,
		screenXRes: cfg.ScreenXRes, screenYRes: cfg.ScreenYRes,
	}
}

// quitError signals a clean, user-initiated exit (e.g. power button).
type quitError struct{}

func (quitError) Error() string { return "loop: quit requested" }

// Run services ticks until a quit signal is raised, the RFB server
// closes the connection, or a fatal error occurs. It always releases
// the RFB client before returning, exactly once.
func (l *Loop) Run() error {
	defer l.client.Close()
	for {
		timeout, err := l.tick()
		if err != nil {
			var q quitError
			if errors.As(err, &q) {
				return nil
			}
			return err
		}
		if err := l.wait(timeout); err != nil {
			return err
		}
	}
}

func (l *Loop) wait(timeoutMs int) error {
	fds := l.pollSet()
	for {
		_, err := unix.Poll(fds, timeoutMs)
		if err == nil {
			return nil
		}
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		return fmt.Errorf("loop: poll: %w", err)
	}
}

func (l *Loop) pollSet() []unix.PollFd {
	var fds []unix.PollFd
	if fd, err := l.client.Fd(); err == nil {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	for _, d := range []*evdev.Device{l.touchDev, l.penDev, l.buttonsDev} {
		if d != nil {
			fds = append(fds, unix.PollFd{Fd: int32(d.Fd()), Events: unix.POLLIN})
		}
	}
	return fds
}

// tick services one iteration in the servicing order spec.md §5 requires
// and returns the merged wait timeout for the next poll.
func (l *Loop) tick() (int, error) {
	if err := l.client.Drain(); err != nil {
		return 0, err
	}

	schedTimeout, err := l.sched.Tick()
	if err != nil {
		return 0, err
	}

	timeout := schedTimeout

	if l.enablePen {
		frames, err := l.penDev.Frames()
		if err != nil {
			return 0, err
		}
		for _, f := range frames {
			if err := l.penH.ProcessFrame(f, l.screenXRes, l.screenYRes); err != nil {
				return 0, err
			}
		}
	}

	if l.enableButtons {
		frames, err := l.buttonsDev.Frames()
		if err != nil {
			return 0, err
		}
		for _, f := range frames {
			l.btnSnapshot = buttons.ApplyFrame(l.btnSnapshot, f)
			if err := l.btnH.Tick(l.btnSnapshot); err != nil {
				var q buttons.Quit
				if errors.As(err, &q) {
					return 0, quitError{}
				}
				return 0, err
			}
		}
	}

	if l.enableTouch {
		inhibit := l.enablePen && l.penH.IsActive()
		frames, err := l.touchDev.Frames()
		if err != nil {
			return 0, err
		}
		for _, f := range frames {
			evts := l.touchFn.ProcessFrame(f, inhibit)
			for _, e := range evts {
				if err := l.sender.Forward(e); err != nil {
					return 0, err
				}
			}
		}
	}

	return timeout, nil
}
