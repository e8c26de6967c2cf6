//go:build linux

// Package epoll wraps a Linux epoll instance. It keeps track of the
// descriptors registered to it so interests can be inspected and torn down.
package epoll

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/fzft/go-unix/log"
)

var ErrClosed = errors.New("epoll: instance closed")

type interest struct {
	events EventType
	data   UserData
}

// Epoll owns an epoll descriptor. Registration methods are safe for concurrent
// use; Wait may run while other goroutines add or remove descriptors.
type Epoll struct {
	mu        sync.Mutex
	fd        int
	interests map[int]interest
	tokens    map[uint64]any
	nextToken uint64
}

// New creates an epoll instance.
func New(flags ...CreateFlag) (*Epoll, error) {
	var f int
	for _, fl := range flags {
		f |= int(fl)
	}
	var (
		fd  int
		err error
	)
	for {
		fd, err = unix.EpollCreate1(f)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &Epoll{
		fd:        fd,
		interests: make(map[int]interest),
		tokens:    make(map[uint64]any),
	}, nil
}

// Fd returns the epoll descriptor, or -1 once closed.
func (e *Epoll) Fd() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fd
}

// Add registers fd for events. Without data the kernel reports FD(fd).
func (e *Epoll) Add(fd int, events EventType, data ...UserData) error {
	return e.ctl(CtlAdd, fd, events, data)
}

// Modify changes the interest of an already registered fd.
func (e *Epoll) Modify(fd int, events EventType, data ...UserData) error {
	return e.ctl(CtlModify, fd, events, data)
}

// Remove deregisters fd. Removing an fd that was never added is an ENOENT error.
func (e *Epoll) Remove(fd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fd < 0 {
		return ErrClosed
	}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl del", err)
	}
	e.forget(fd)
	return nil
}

func (e *Epoll) AddSocket(s FDer, events EventType, data ...UserData) error {
	return e.Add(s.Fd(), events, data...)
}

func (e *Epoll) ModifySocket(s FDer, events EventType, data ...UserData) error {
	return e.Modify(s.Fd(), events, data...)
}

func (e *Epoll) RemoveSocket(s FDer) error {
	return e.Remove(s.Fd())
}

func (e *Epoll) ctl(op CtlOp, fd int, events EventType, data []UserData) error {
	d := FD(fd)
	switch len(data) {
	case 0:
	case 1:
		d = data[0]
	default:
		return fmt.Errorf("epoll: %s fd %d: at most one user data value, got %d", op, fd, len(data))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fd < 0 {
		return ErrClosed
	}

	if d.kind == kindToken {
		e.nextToken++
		d.v = e.nextToken
	}
	ev := unix.EpollEvent{Events: uint32(events)}
	if err := d.assignTo(&ev); err != nil {
		return err
	}
	if err := unix.EpollCtl(e.fd, int(op), fd, &ev); err != nil {
		return os.NewSyscallError("epoll_ctl "+op.String(), err)
	}

	e.forget(fd)
	if d.kind == kindToken {
		e.tokens[d.v] = d.value
	}
	e.interests[fd] = interest{events: events, data: d}
	return nil
}

// forget drops the bookkeeping of fd. Caller holds mu.
func (e *Epoll) forget(fd int) {
	if old, ok := e.interests[fd]; ok {
		if old.data.kind == kindToken {
			delete(e.tokens, old.data.v)
		}
		delete(e.interests, fd)
	}
}

// Registered returns the events and data fd was last registered with.
func (e *Epoll) Registered(fd int) (EventType, UserData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	in, ok := e.interests[fd]
	return in.events, in.data, ok
}

// Len returns the number of registered descriptors.
func (e *Epoll) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.interests)
}

// Value resolves the Token carried by ev.
func (e *Epoll) Value(ev *Event) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.tokens[ev.U64()]
	return v, ok
}

// Wait fills events with ready descriptors and returns how many it stored.
// A negative timeout blocks. A wait interrupted by a signal is restarted with
// whatever is left of the timeout; zero ready events means the timeout expired.
func (e *Epoll) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, os.NewSyscallError("epoll_wait", unix.EINVAL)
	}
	epfd := e.Fd()
	if epfd < 0 {
		return 0, ErrClosed
	}
	raw := unsafe.Slice((*unix.EpollEvent)(unsafe.Pointer(&events[0])), len(events))

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	msec := toMsec(timeout)
	for {
		n, err := unix.EpollWait(epfd, raw, msec)
		switch {
		case err == nil && n > 0:
			return n, nil
		case err == nil:
			// a clamped wait ran out before the deadline
		case err != unix.EINTR:
			return 0, os.NewSyscallError("epoll_wait", err)
		default:
			log.Logger.Debug("epoll_wait interrupted", zap.Int("epfd", epfd))
		}
		if timeout >= 0 {
			left := time.Until(deadline)
			if left <= 0 {
				return 0, nil
			}
			msec = toMsec(left)
		}
	}
}

// WaitBlocking waits until at least one descriptor is ready.
func (e *Epoll) WaitBlocking(events []Event) (int, error) {
	return e.Wait(events, -1)
}

// WaitContext waits in slices of tick until something is ready or ctx is done.
func (e *Epoll) WaitContext(ctx context.Context, events []Event, tick time.Duration) (int, error) {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := e.Wait(events, tick)
		if err != nil || n > 0 {
			return n, err
		}
	}
}

// Clear deregisters every descriptor. The descriptors themselves stay open.
func (e *Epoll) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fd < 0 {
		return ErrClosed
	}
	var errs error
	for fd := range e.interests {
		if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete fd %d: %w", fd, os.NewSyscallError("epoll_ctl del", err)))
		}
		e.forget(fd)
	}
	return errs
}

// Close releases the epoll descriptor. Closing twice is a no-op.
func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fd < 0 {
		return nil
	}
	err := unix.Close(e.fd)
	e.fd = -1
	e.interests = make(map[int]interest)
	e.tokens = make(map[uint64]any)
	if err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

// toMsec rounds d up to whole milliseconds. The kernel takes an int timeout,
// so longer waits are clamped and Wait loops until its deadline.
func toMsec(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
