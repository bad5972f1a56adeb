// Package rfb adapts a third-party RFB/VNC client library to the narrow
// contract spec.md §6 requires of the core: connect/authenticate, a
// rectangle-update callback, and a pointer-event send. Isolating the
// adapter behind this package means the rest of the tree never sees
// github.com/kward/go-vnc's actual API shape.
package rfb

import (
	"fmt"
	"net"

	vnc "github.com/kward/go-vnc"

	"vnsee.dev/pixfmt"
)

// ProtocolInitError wraps a failed RFB handshake, spec.md §7's
// ProtocolInitError.
type ProtocolInitError struct{ Err error }

func (e *ProtocolInitError) Error() string { return fmt.Sprintf("rfb: handshake failed: %v", e.Err) }
func (e *ProtocolInitError) Unwrap() error { return e.Err }

// UnsupportedGeometryError reports a server framebuffer that does not
// fit the panel, spec.md §7's UnsupportedServerGeometry.
type UnsupportedGeometryError struct {
	ServerW, ServerH int
	PanelW, PanelH   int
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("rfb: server geometry %dx%d does not fit panel %dx%d",
		e.ServerW, e.ServerH, e.PanelW, e.PanelH)
}

// ConnectionClosedError is returned by Drain when the server has closed
// the connection, spec.md §7's ConnectionClosed. It is not itself fatal;
// the event loop returns it unchanged and cmd/vnsee maps it to a distinct
// exit status.
type ConnectionClosedError struct{ Err error }

func (e *ConnectionClosedError) Error() string { return fmt.Sprintf("rfb: connection closed: %v", e.Err) }
func (e *ConnectionClosedError) Unwrap() error { return e.Err }

// RectHandler is invoked for every server-reported rectangle update, per
// spec.md §6(b). Only the rectangle's geometry is passed on; this package
// does not map the panel buffer or copy the rectangle's pixels into it.
type RectHandler func(x, y, w, h int)

// Client wraps a single RFB connection.
type Client struct {
	conn    net.Conn
	cc      *vnc.ClientConn
	onRect  RectHandler
	panelW  int
	panelH  int
}

// Options configures a Dial call.
type Options struct {
	Host, Port string
	PanelW     int
	PanelH     int
	OnRect     RectHandler

	// PixelFormat is the format to request from the server during the
	// handshake, matching the panel's native memory layout so the server
	// encodes rectangle pixels in that layout. No framebuffer is handed to
	// the library; the decoded pixels stay in the library's messages.
	PixelFormat pixfmt.Format
}

// vncPixelFormat converts a panel pixel-format descriptor into the wire
// PixelFormat the handshake advertises to the server.
func vncPixelFormat(f pixfmt.Format) vnc.PixelFormat {
	depth := f.Red.Bits + f.Green.Bits + f.Blue.Bits
	return vnc.PixelFormat{
		BPP:         uint8(f.BPP),
		Depth:       uint8(depth),
		BigEndian:   false,
		TrueColor:   true,
		RedMax:      uint16(1<<f.Red.Bits - 1),
		GreenMax:    uint16(1<<f.Green.Bits - 1),
		BlueMax:     uint16(1<<f.Blue.Bits - 1),
		RedShift:    uint8(f.Red.Shift),
		GreenShift:  uint8(f.Green.Shift),
		BlueShift:   uint8(f.Blue.Shift),
	}
}

// Dial connects to the server and performs the RFB handshake, per spec.md
// §6(a). The negotiated framebuffer geometry is checked against the
// panel's dimensions.
func Dial(opts Options) (*Client, error) {
	if err := opts.PixelFormat.Validate(); err != nil {
		return nil, &ProtocolInitError{Err: err}
	}
	addr := net.JoinHostPort(opts.Host, opts.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, &ProtocolInitError{Err: err}
	}
	pf := vncPixelFormat(opts.PixelFormat)
	cfg := &vnc.ClientConfig{
		Auth:        []vnc.ClientAuth{&vnc.ClientAuthNone{}},
		Exclusive:   false,
		PixelFormat: &pf,
	}
	cc, err := vnc.Connect(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, &ProtocolInitError{Err: err}
	}
	fbw, fbh := int(cc.FramebufferWidth), int(cc.FramebufferHeight)
	if fbw > opts.PanelW || fbh > opts.PanelH {
		cc.Close()
		conn.Close()
		return nil, &UnsupportedGeometryError{ServerW: fbw, ServerH: fbh, PanelW: opts.PanelW, PanelH: opts.PanelH}
	}
	return &Client{conn: conn, cc: cc, onRect: opts.OnRect, panelW: opts.PanelW, panelH: opts.PanelH}, nil
}

// Fd returns the underlying socket's file descriptor, for the event-loop
// multiplexer's poll set.
func (c *Client) Fd() (int, error) {
	tc, ok := c.conn.(*net.TCPConn)
	if !ok {
		return 0, fmt.Errorf("rfb: connection is not a *net.TCPConn")
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return 0, err
	}
	return fd, nil
}

// Drain processes one pending server message, dispatching any
// framebuffer rectangle updates to the registered RectHandler. It
// returns a *ConnectionClosedError once the server has closed the
// socket.
func (c *Client) Drain() error {
	select {
	case msg, ok := <-c.cc.ServerMessageCh:
		if !ok {
			return &ConnectionClosedError{}
		}
		fb, ok := msg.(*vnc.FramebufferUpdateMessage)
		if !ok {
			return nil
		}
		for _, r := range fb.Rectangles {
			if c.onRect != nil {
				c.onRect(int(r.X), int(r.Y), int(r.Width), int(r.Height))
			}
		}
		return nil
	default:
		return nil
	}
}

// SendPointer satisfies pointer.Sender, forwarding to the library's
// pointer-event call per spec.md §6(c).
func (c *Client) SendPointer(x, y int, mask uint8) error {
	return c.cc.PointerEvent(vnc.ButtonMask(mask), uint16(x), uint16(y))
}

// Close releases the connection, running the RFB library's cleanup
// exactly once regardless of which exit path triggered it.
func (c *Client) Close() error {
	c.cc.Close()
	return c.conn.Close()
}
