// Package panel implements the e-ink panel update contract of spec.md §6:
// a packed C-ABI update-data structure submitted through a hardware-
// variant-specific ioctl or message-queue path, behind a single Submitter
// interface (Design Note "Multiple hardware panels").
package panel

import "fmt"

// Waveform selects the electrical update protocol used for a repaint.
type Waveform uint32

const (
	WaveformInit Waveform = 0
	WaveformDU   Waveform = 1
	WaveformGC16 Waveform = 2
	WaveformGL16 Waveform = 3
	WaveformA2   Waveform = 4
)

// Mode selects whether an update covers only the dirty rectangle or the
// whole panel.
type Mode uint32

const (
	ModePartial Mode = 0
	ModeFull    Mode = 1
)

// Rect is the panel-native rectangle layout (top/left/width/height, all
// unsigned) used inside UpdateData.
type Rect struct {
	Top, Left, Width, Height uint32
}

// AltBufferData mirrors the C struct's alternate-buffer fields, unused by
// this client but present for on-wire layout compatibility.
type AltBufferData struct {
	PhysAddr   uint32
	Width      uint32
	Height     uint32
	Rect       Rect
}

// UpdateData is the packed C-ABI payload described by spec.md §6. Field
// order matches the kernel struct; do not reorder.
type UpdateData struct {
	Rect          Rect
	WaveformMode  Waveform
	UpdateMode    Mode
	UpdateMarker  uint32
	Temp          uint32
	Flags         uint32
	DitherMode    int32
	QuantBit      int32
	AltBuffer     AltBufferData
}

// defaultTemp is the "normal" panel temperature code used by both
// hardware variants.
const defaultTemp = 0x18

// NewUpdate builds an UpdateData for the given rectangle, waveform, and
// mode, tagged with the given update marker.
func NewUpdate(r Rect, wf Waveform, mode Mode, marker uint32) UpdateData {
	return UpdateData{
		Rect:         r,
		WaveformMode: wf,
		UpdateMode:   mode,
		UpdateMarker: marker,
		Temp:         defaultTemp,
	}
}

// Submitter abstracts over the two hardware variants' panel-update paths:
// a direct mxcfb ioctl, or a shared-memory-plus-message-queue protocol.
// Both implement "submit(update_data, wait)" per spec.md Design Notes.
type Submitter interface {
	// Submit pushes data to the panel. If wait is true, the call blocks
	// until the panel confirms the update completed (used for full-screen
	// force repaints).
	Submit(data UpdateData, wait bool) error
	// Close releases any resources (open file descriptors, attached
	// shared memory) held by the submitter.
	Close() error
}

// IoError wraps a failure in the ioctl or message-queue submission path,
// per spec.md §7's PanelIoError.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("panel: %s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// MarkerSequence hands out update markers in the 1..255 range the kernel
// protocol requires, wrapping back to 1.
type MarkerSequence struct {
	next uint32
}

// Next returns the next marker value, wrapping 255->1 (0 is reserved to
// mean "no specific marker" in the wait ioctl).
func (m *MarkerSequence) Next() uint32 {
	m.next++
	if m.next == 0 || m.next > 255 {
		m.next = 1
	}
	return m.next
}
