//go:build linux

package epoll

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CtlOp is an epoll_ctl operation.
type CtlOp int

const (
	CtlAdd    CtlOp = unix.EPOLL_CTL_ADD
	CtlDelete CtlOp = unix.EPOLL_CTL_DEL
	CtlModify CtlOp = unix.EPOLL_CTL_MOD
)

func (op CtlOp) String() string {
	switch op {
	case CtlAdd:
		return "add"
	case CtlDelete:
		return "del"
	case CtlModify:
		return "mod"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// EventType is a set of epoll event bits; combine with |.
type EventType uint32

const (
	Input       EventType = unix.EPOLLIN
	Output      EventType = unix.EPOLLOUT
	Priority    EventType = unix.EPOLLPRI
	Error       EventType = unix.EPOLLERR
	Hangup      EventType = unix.EPOLLHUP
	ReadHangup  EventType = unix.EPOLLRDHUP
	EdgeTrigger EventType = unix.EPOLLET
	OneShot     EventType = unix.EPOLLONESHOT
	WakeUp      EventType = unix.EPOLLWAKEUP
	Exclusive   EventType = unix.EPOLLEXCLUSIVE
)

var eventTypeNames = []struct {
	t    EventType
	name string
}{
	{Input, "Input"},
	{Output, "Output"},
	{Priority, "Priority"},
	{Error, "Error"},
	{Hangup, "Hangup"},
	{ReadHangup, "ReadHangup"},
	{EdgeTrigger, "EdgeTrigger"},
	{OneShot, "OneShot"},
	{WakeUp, "WakeUp"},
	{Exclusive, "Exclusive"},
}

func (t EventType) String() string {
	var parts []string
	rest := t
	for _, n := range eventTypeNames {
		if t&n.t != 0 {
			parts = append(parts, n.name)
			rest &^= n.t
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CreateFlag is an epoll_create1 flag.
type CreateFlag int

const CloseOnExec CreateFlag = unix.EPOLL_CLOEXEC

// Event is one ready descriptor as reported by Wait. It has the exact layout of
// struct epoll_event.
type Event unix.EpollEvent

// data views the epoll_data_t union.
func (ev *Event) data() *[8]byte {
	return (*[8]byte)(unsafe.Pointer(&ev.Fd))
}

// Types returns the ready event bits.
func (ev *Event) Types() EventType { return EventType(ev.Events) }

// Has reports whether any bit of t is set.
func (ev *Event) Has(t EventType) bool { return EventType(ev.Events)&t != 0 }

// FD reads the user data as a descriptor.
func (ev *Event) FD() int { return int(ev.Fd) }

// U32 reads the user data as a 32 bit value.
func (ev *Event) U32() uint32 { return uint32(ev.Fd) }

// U64 reads the whole user data word.
func (ev *Event) U64() uint64 { return binary.NativeEndian.Uint64(ev.data()[:]) }

// FDer is anything that owns a descriptor, *inet.Socket for instance.
type FDer interface {
	Fd() int
}

// Matches reports whether the event was registered with FD data for f.
func (ev *Event) Matches(f FDer) bool { return ev.MatchesFD(f.Fd()) }

func (ev *Event) MatchesFD(fd int) bool { return ev.FD() == fd }

func (ev *Event) MatchesU32(v uint32) bool { return ev.U32() == v }

func (ev *Event) String() string {
	return fmt.Sprintf("Event{events: %s, data: 0x%x}", ev.Types(), ev.U64())
}
