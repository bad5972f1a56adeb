//go:build linux

package panel

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/andrieee44/mylib/linux/ioctl"
	"golang.org/x/sys/unix"
)

// waitMarker is the payload for WAIT_FOR_UPDATE_COMPLETE.
type waitMarker struct {
	Marker        uint32
	CollisionTest uint32
}

var (
	sendUpdateReq          = ioctl.IOW('F', 0x2E, UpdateData{})
	waitForUpdateCompleteReq = ioctl.IOWR('F', 0x2F, waitMarker{})
)

// MXCFB submits updates directly to the mxcfb-compatible panel character
// device (/dev/fb0 on the first hardware variant).
type MXCFB struct {
	dev *os.File
}

// OpenMXCFB opens the panel device node for direct ioctl submission.
func OpenMXCFB(path string) (*MXCFB, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &IoError{Op: "open " + path, Err: err}
	}
	return &MXCFB{dev: f}, nil
}

func (m *MXCFB) Submit(data UpdateData, wait bool) error {
	if err := ioctlPtr(m.dev.Fd(), sendUpdateReq, unsafe.Pointer(&data)); err != nil {
		return &IoError{Op: "SEND_UPDATE", Err: err}
	}
	if wait {
		wm := waitMarker{Marker: data.UpdateMarker}
		if err := ioctlPtr(m.dev.Fd(), waitForUpdateCompleteReq, unsafe.Pointer(&wm)); err != nil {
			return &IoError{Op: "WAIT_FOR_UPDATE_COMPLETE", Err: err}
		}
	}
	return nil
}

func (m *MXCFB) Close() error {
	return m.dev.Close()
}

func ioctlPtr(fd uintptr, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return fmt.Errorf("ioctl 0x%x: %w", req, errno)
	}
	return nil
}
