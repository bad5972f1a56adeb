// Package evdev reads Linux input_event records from a character device
// and groups them into EV_SYN-delimited frames, per spec.md §6's
// input-event protocol. Each input component (touch, pen, buttons)
// applies its own frame once it has been buffered in full.
package evdev

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/andrieee44/mylib/linux/ioctl"
	"golang.org/x/sys/unix"
)

// Event type codes used by this client.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvAbs uint16 = 0x03
)

// Event codes used by this client.
const (
	SynReport uint16 = 0x00

	AbsX        uint16 = 0x00
	AbsY        uint16 = 0x01
	AbsPressure uint16 = 0x18
	AbsDistance uint16 = 0x19
	AbsTiltX    uint16 = 0x1a
	AbsTiltY    uint16 = 0x1b

	AbsMtSlot        uint16 = 0x2f
	AbsMtTouchMajor  uint16 = 0x30
	AbsMtOrientation uint16 = 0x34
	AbsMtPositionX   uint16 = 0x35
	AbsMtPositionY   uint16 = 0x36
	AbsMtPressure    uint16 = 0x3a
	AbsMtTrackingID  uint16 = 0x39

	BtnToolPen    uint16 = 0x140
	BtnToolRubber uint16 = 0x141

	KeyLeft  uint16 = 105
	KeyRight uint16 = 106
	KeyHome  uint16 = 102
	KeyPower uint16 = 116
)

// Event mirrors struct input_event. Sec/Usec are kept wide enough to
// cover both 32- and 64-bit time_t kernels.
type Event struct {
	Sec, Usec uint64
	Type      uint16
	Code      uint16
	Value     int32
}

const eventSize = int(unsafe.Sizeof(Event{}))

// AbsInfo mirrors struct input_absinfo, used by EVIOCGABS.
type AbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

var (
	evIOCGAbs  = func(axis uint16) uint { return ioctl.IOR('E', byte(0x40+axis), AbsInfo{}) }
	evIOCGBit  = func(ev, length uint) uint { return ioctl.IOC(ioctl.IOC_READ, 'E', 0x20+ev, length) }
)

// ReadError wraps a non-transient failure reading an input device, per
// spec.md §7's InputReadError.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("evdev: read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// Device is a non-blocking reader over a /dev/input/eventN node.
type Device struct {
	path    string
	f       *os.File
	buf     []byte
	tail    []byte
	pending []Event
}

// Open opens path in non-blocking mode, so Drain never blocks the
// cooperative event loop.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("evdev: open %s: %w", path, err)
	}
	return &Device{path: path, f: f, buf: make([]byte, eventSize*64)}, nil
}

// Fd returns the underlying file descriptor, for the event-loop
// multiplexer's poll set.
func (d *Device) Fd() int { return int(d.f.Fd()) }

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Close releases the device.
func (d *Device) Close() error { return d.f.Close() }

// AbsRange queries the minimum/maximum of an absolute axis via
// EVIOCGABS.
func (d *Device) AbsRange(axis uint16) (min, max int32, err error) {
	var info AbsInfo
	req := evIOCGAbs(axis)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), uintptr(req), uintptr(unsafe.Pointer(&info))); errno != 0 {
		return 0, 0, fmt.Errorf("evdev: EVIOCGABS(%d): %w", axis, errno)
	}
	return info.Minimum, info.Maximum, nil
}

// HasCapability reports whether the device advertises code under event
// type ev (EVIOCGBIT), used by device detection to classify touch/pen/
// buttons nodes.
func (d *Device) HasCapability(ev uint16, code uint16) (bool, error) {
	bits := make([]byte, (code/8)+1)
	req := evIOCGBit(uint(ev), uint(len(bits)))
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), uintptr(req), uintptr(unsafe.Pointer(&bits[0]))); errno != 0 {
		return false, fmt.Errorf("evdev: EVIOCGBIT(%d): %w", ev, errno)
	}
	return bits[code/8]&(1<<(code%8)) != 0, nil
}

// Frames drains the device's fd without blocking and returns zero or more
// complete EV_SYN-delimited frames. A frame is a slice of raw events
// (without the trailing SYN_REPORT). If the underlying read fails with a
// transient error (EAGAIN), the partial frame accumulated so far is kept
// for the next call. Any other error is a ReadError and fatal.
func (d *Device) Frames() ([][]Event, error) {
	var frames [][]Event
	for {
		n, err := d.f.Read(d.buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return frames, nil
			}
			if pe, ok := err.(*os.PathError); ok && (pe.Err == unix.EAGAIN || pe.Err == unix.EWOULDBLOCK) {
				return frames, nil
			}
			return frames, &ReadError{Path: d.path, Err: err}
		}
		if n == 0 {
			return frames, nil
		}
		d.tail = append(d.tail, d.buf[:n]...)
		for len(d.tail) >= eventSize {
			var e Event
			if err := decodeEvent(d.tail[:eventSize], &e); err != nil {
				return frames, &ReadError{Path: d.path, Err: err}
			}
			d.tail = d.tail[eventSize:]
			if e.Type == EvSyn && e.Code == SynReport {
				frames = append(frames, d.pending)
				d.pending = nil
				continue
			}
			d.pending = append(d.pending, e)
		}
	}
}

func decodeEvent(b []byte, e *Event) error {
	if len(b) < eventSize {
		return fmt.Errorf("evdev: short read")
	}
	// struct input_event: {sec, usec} sized per architecture, followed by
	// type/code/value. We parse assuming the 64-bit time_t layout.
	*e = *(*Event)(unsafe.Pointer(&b[0]))
	return nil
}

// eventPtr exposes the unsafe cast used by decodeEvent for tests that
// build raw byte buffers without depending on host struct layout details.
func eventPtr(b []byte) unsafe.Pointer { return unsafe.Pointer(&b[0]) }
