// Package device implements the hardware-variant detection and device
// lifecycle layer of spec.md §6: reading the machine identifier,
// classifying /dev/input nodes by capability bitset, and opening the
// appropriate panel submitter for the detected variant.
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vnsee.dev/evdev"
	"vnsee.dev/panel"
)

// Variant identifies a hardware family, each with its own panel
// submission path.
type Variant int

const (
	// VariantMXCFB uses the mxcfb ioctl path on /dev/fb0.
	VariantMXCFB Variant = iota
	// VariantMsgQueue uses the shared-memory + message-queue panel path.
	VariantMsgQueue
)

// machineIdentifiers maps substrings of /sys/devices/soc0/machine to a
// Variant. Matching is substring-based since the field carries a full
// board description, not a bare enum value.
var machineIdentifiers = []struct {
	substr  string
	variant Variant
}{
	{"reMarkable 2", VariantMXCFB},
	{"reMarkable 1", VariantMsgQueue},
}

// OpenError reports a hardware device that could not be opened, spec.md
// §7's DeviceOpenError.
type OpenError struct {
	What string
	Err  error
}

func (e *OpenError) Error() string { return fmt.Sprintf("device: open %s: %v", e.What, e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }

// Detect reads /sys/devices/soc0/machine and returns the matching
// Variant.
func Detect() (Variant, error) {
	b, err := os.ReadFile("/sys/devices/soc0/machine")
	if err != nil {
		return 0, &OpenError{What: "/sys/devices/soc0/machine", Err: err}
	}
	machine := strings.TrimSpace(string(b))
	for _, m := range machineIdentifiers {
		if strings.Contains(machine, m.substr) {
			return m.variant, nil
		}
	}
	return 0, &OpenError{What: "/sys/devices/soc0/machine", Err: fmt.Errorf("unrecognized machine %q", machine)}
}

// Nodes holds the classified input device handles.
type Nodes struct {
	Touch   *evdev.Device
	Pen     *evdev.Device
	Buttons *evdev.Device
}

// Wanted selects which input node categories ProbeInputNodes must
// successfully classify, matching the CLI's --no-touch/--no-pen/
// --no-buttons flags: a component the caller has disabled is not
// required to be present.
type Wanted struct {
	Touch, Pen, Buttons bool
}

// ProbeInputNodes walks /dev/input/event* and classifies each by
// capability bitset: the touch node advertises ABS_MT_POSITION_X, the
// pen node advertises BTN_TOOL_PEN, the buttons node advertises
// KEY_POWER. Only the categories set in want are required; an unwanted
// or duplicate match is closed rather than tracked.
func ProbeInputNodes(want Wanted) (*Nodes, error) {
	entries, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, &OpenError{What: "/dev/input", Err: err}
	}
	var nodes Nodes
	for _, path := range entries {
		d, err := evdev.Open(path)
		if err != nil {
			continue
		}
		switch {
		case want.Touch && nodes.Touch == nil && hasCap(d, evdev.EvAbs, evdev.AbsMtPositionX):
			nodes.Touch = d
		case want.Pen && nodes.Pen == nil && hasCap(d, evdev.EvKey, evdev.BtnToolPen):
			nodes.Pen = d
		case want.Buttons && nodes.Buttons == nil && hasCap(d, evdev.EvKey, evdev.KeyPower):
			nodes.Buttons = d
		default:
			d.Close()
		}
	}
	if (want.Touch && nodes.Touch == nil) || (want.Pen && nodes.Pen == nil) || (want.Buttons && nodes.Buttons == nil) {
		nodes.Close()
		return nil, &OpenError{What: "/dev/input", Err: fmt.Errorf("could not classify requested touch/pen/buttons nodes")}
	}
	return &nodes, nil
}

func hasCap(d *evdev.Device, ev, code uint16) bool {
	ok, err := d.HasCapability(ev, code)
	return err == nil && ok
}

// Close releases any opened device handles.
func (n *Nodes) Close() {
	for _, d := range []*evdev.Device{n.Touch, n.Pen, n.Buttons} {
		if d != nil {
			d.Close()
		}
	}
}

// OpenPanel opens the panel submitter appropriate for variant.
func OpenPanel(v Variant) (panel.Submitter, error) {
	switch v {
	case VariantMXCFB:
		p, err := panel.OpenMXCFB("/dev/fb0")
		if err != nil {
			return nil, &OpenError{What: "/dev/fb0", Err: err}
		}
		return p, nil
	case VariantMsgQueue:
		const panelMsgQueueKey = 0x1337
		p, err := panel.OpenMsgQueue(panelMsgQueueKey)
		if err != nil {
			return nil, &OpenError{What: "panel message queue", Err: err}
		}
		return p, nil
	default:
		return nil, &OpenError{What: "panel", Err: fmt.Errorf("unknown variant %d", v)}
	}
}
