// command vnsee mirrors a remote desktop onto an e-ink tablet over the
// RFB/VNC protocol, translating touch, pen, and button input into
// pointer events on the server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"

	"vnsee.dev/buttons"
	"vnsee.dev/damage"
	"vnsee.dev/device"
	"vnsee.dev/geom"
	"vnsee.dev/internal/clock"
	"vnsee.dev/loop"
	"vnsee.dev/pen"
	"vnsee.dev/pixfmt"
	"vnsee.dev/pointer"
	"vnsee.dev/repaint"
	"vnsee.dev/rfb"
	"vnsee.dev/touch"
)

const version = "0.1.0"

const defaultPort = "5900"

// Exit codes, distinguishing a clean user quit from the various fatal
// failure modes per spec.md §6.
const (
	exitOK               = 0
	exitUsage            = 2
	exitConnectionClosed = 3
	exitFatal            = 1
)

// Input event codes used only here, to resolve axis ranges at startup.
const (
	absMtPositionX = 0x35
	absMtPositionY = 0x36
	absX           = 0x00
	absY           = 0x01
)

var errPrefix = color.New(color.FgRed, color.Bold).SprintFunc()

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errPrefix("vnsee:"), err)
	}
	os.Exit(code)
}

type options struct {
	ip          string
	port        string
	noButtons   bool
	noPen       bool
	noTouch     bool
	showVersion bool
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("vnsee", flag.ContinueOnError)
	var o options
	fs.BoolVar(&o.noButtons, "no-buttons", false, "disable the physical buttons")
	fs.BoolVar(&o.noPen, "no-pen", false, "disable the stylus")
	fs.BoolVar(&o.noTouch, "no-touch", false, "disable the touchscreen")
	fs.BoolVar(&o.showVersion, "version", false, "print the version and exit")
	fs.BoolVar(&o.showVersion, "v", false, "print the version and exit (shorthand)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	rest := fs.Args()
	o.port = defaultPort
	switch len(rest) {
	case 0:
		ip, err := ipFromSSHConnection()
		if err != nil {
			return o, err
		}
		o.ip = ip
	case 1:
		o.ip = rest[0]
	case 2:
		o.ip = rest[0]
		o.port = rest[1]
	default:
		return o, fmt.Errorf("too many arguments")
	}
	return o, nil
}

// ipFromSSHConnection derives the server IP from SSH_CONNECTION when none
// is given on the command line, per spec.md §6's CLI contract.
func ipFromSSHConnection() (string, error) {
	v, ok := os.LookupEnv("SSH_CONNECTION")
	if !ok {
		return "", fmt.Errorf("no IP given and SSH_CONNECTION is not set")
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return "", fmt.Errorf("SSH_CONNECTION is empty")
	}
	return strings.TrimPrefix(fields[0], "::ffff:"), nil
}

func run(args []string) (int, error) {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))

	opts, err := parseArgs(args)
	if err != nil {
		return exitUsage, err
	}
	if opts.showVersion {
		fmt.Println("vnsee " + version)
		return exitOK, nil
	}

	variant, err := device.Detect()
	if err != nil {
		return exitFatal, err
	}
	panelSub, err := device.OpenPanel(variant)
	if err != nil {
		return exitFatal, err
	}
	defer panelSub.Close()

	var nodes *device.Nodes
	if !opts.noTouch || !opts.noPen || !opts.noButtons {
		nodes, err = device.ProbeInputNodes(device.Wanted{
			Touch: !opts.noTouch, Pen: !opts.noPen, Buttons: !opts.noButtons,
		})
		if err != nil {
			return exitFatal, err
		}
		defer nodes.Close()
	}

	screen := geom.Screen{XRes: 1404, YRes: 1872, XResMem: 1408, YResMem: 1872}
	clk := clock.Real{}
	acc := damage.New(screen, clk)

	// The reMarkable 2's mxcfb framebuffer is packed RGB565; the
	// reMarkable 1's shared-memory panel is 8-bit grayscale. Requesting
	// the matching format avoids a server-side repack on every rect.
	panelPixelFormat := pixfmt.RGB565
	touchFlipX, touchFlipY := true, true
	if variant == device.VariantMsgQueue {
		panelPixelFormat = pixfmt.Gray8
	}

	client, err := rfb.Dial(rfb.Options{
		Host: opts.ip, Port: opts.port,
		PanelW: screen.XRes, PanelH: screen.YRes,
		PixelFormat: panelPixelFormat,
		OnRect: func(x, y, w, h int) {
			acc.Record(geom.Rect{X: x, Y: y, W: w, H: h})
		},
	})
	if err != nil {
		return exitFatal, err
	}

	sched := repaint.New(panelSub, acc, screen, clk)
	sender := pointer.New(client)

	cfg := loop.Config{
		Client:     client,
		Scheduler:  sched,
		Sender:     sender,
		ScreenXRes: screen.XRes,
		ScreenYRes: screen.YRes,
	}

	if !opts.noTouch && nodes != nil && nodes.Touch != nil {
		minX, maxX, err := nodes.Touch.AbsRange(absMtPositionX)
		if err != nil {
			return exitFatal, err
		}
		minY, maxY, err := nodes.Touch.AbsRange(absMtPositionY)
		if err != nil {
			return exitFatal, err
		}
		axis := touch.AxisMap{
			MinX: int(minX), MaxX: int(maxX), MinY: int(minY), MaxY: int(maxY),
			FlipX: touchFlipX, FlipY: touchFlipY,
		}
		cfg.TouchFSM = touch.New(screen, axis, clk)
		cfg.TouchDev = nodes.Touch
	}
	if !opts.noPen && nodes != nil && nodes.Pen != nil {
		_, xMax, err := nodes.Pen.AbsRange(absX)
		if err != nil {
			return exitFatal, err
		}
		_, yMax, err := nodes.Pen.AbsRange(absY)
		if err != nil {
			return exitFatal, err
		}
		cfg.PenHandler = pen.New(sched, sender, xMax, yMax, false, false)
		cfg.PenDev = nodes.Pen
	}
	if !opts.noButtons && nodes != nil && nodes.Buttons != nil {
		cfg.ButtonsH = buttons.New(sched)
		cfg.ButtonsDev = nodes.Buttons
	}

	l := loop.New(cfg)
	if err := l.Run(); err != nil {
		var closed *rfb.ConnectionClosedError
		if errors.As(err, &closed) {
			return exitConnectionClosed, err
		}
		return exitFatal, err
	}
	return exitOK, nil
}
