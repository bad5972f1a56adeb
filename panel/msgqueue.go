//go:build linux

package panel

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// msgBuf mirrors struct msgbuf: a message type header followed by the
// update payload, as required by msgsnd(2)/msgrcv(2).
type msgBuf struct {
	Type int64
	Data UpdateData
}

// replyBuf mirrors the completion acknowledgement the alternate hardware
// variant's driver posts back once an update finishes, used to implement
// Submit's wait=true path.
type replyBuf struct {
	Type   int64
	Marker uint32
}

const (
	requestMsgType = 1
	replyMsgType   = 2
)

// MsgQueue submits updates over a System V message queue, for the second
// hardware variant's shared-memory panel path (Design Note "Multiple
// hardware panels").
type MsgQueue struct {
	id int
}

// OpenMsgQueue attaches to (or creates) the message queue identified by
// key.
func OpenMsgQueue(key int) (*MsgQueue, error) {
	id, _, errno := unix.Syscall(unix.SYS_MSGGET, uintptr(key), uintptr(unix.IPC_CREAT|0o600), 0)
	if errno != 0 {
		return nil, &IoError{Op: "msgget", Err: errno}
	}
	return &MsgQueue{id: int(id)}, nil
}

func (q *MsgQueue) Submit(data UpdateData, wait bool) error {
	msg := msgBuf{Type: requestMsgType, Data: data}
	if err := q.send(unsafe.Pointer(&msg), unsafe.Sizeof(msg.Data)); err != nil {
		return &IoError{Op: "msgsnd", Err: err}
	}
	if wait {
		var reply replyBuf
		if err := q.recv(unsafe.Pointer(&reply), unsafe.Sizeof(reply.Marker), replyMsgType); err != nil {
			return &IoError{Op: "msgrcv", Err: err}
		}
	}
	return nil
}

func (q *MsgQueue) send(msg unsafe.Pointer, size uintptr) error {
	_, _, errno := unix.Syscall6(unix.SYS_MSGSND, uintptr(q.id), uintptr(msg), size, 0, 0, 0)
	if errno != 0 {
		return fmt.Errorf("msgsnd: %w", errno)
	}
	return nil
}

func (q *MsgQueue) recv(msg unsafe.Pointer, size uintptr, typ int64) error {
	_, _, errno := unix.Syscall6(unix.SYS_MSGRCV, uintptr(q.id), uintptr(msg), size, uintptr(typ), 0, 0)
	if errno != 0 {
		return fmt.Errorf("msgrcv: %w", errno)
	}
	return nil
}

func (q *MsgQueue) Close() error {
	_, _, errno := unix.Syscall(unix.SYS_MSGCTL, uintptr(q.id), uintptr(unix.IPC_RMID), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
