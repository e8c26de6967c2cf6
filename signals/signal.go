//go:build linux

package signals

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

var ErrUnsupportedSignal = errors.New("signals: unsupported signal")

// Signal is a signal this package knows how to handle.
type Signal int

const (
	Hangup       = Signal(unix.SIGHUP)
	Interrupt    = Signal(unix.SIGINT)
	Quit         = Signal(unix.SIGQUIT)
	User1        = Signal(unix.SIGUSR1)
	User2        = Signal(unix.SIGUSR2)
	Pipe         = Signal(unix.SIGPIPE)
	Alarm        = Signal(unix.SIGALRM)
	Terminate    = Signal(unix.SIGTERM)
	Child        = Signal(unix.SIGCHLD)
	WindowChange = Signal(unix.SIGWINCH)
)

// signal names are kept as the well known SIG* spellings
var signalNames = map[Signal]string{
	Hangup:       "SIGHUP",
	Interrupt:    "SIGINT",
	Quit:         "SIGQUIT",
	User1:        "SIGUSR1",
	User2:        "SIGUSR2",
	Pipe:         "SIGPIPE",
	Alarm:        "SIGALRM",
	Terminate:    "SIGTERM",
	Child:        "SIGCHLD",
	WindowChange: "SIGWINCH",
}

// knownSignals is signalNames' keys in numeric order.
var knownSignals = func() []Signal {
	out := make([]Signal, 0, len(signalNames))
	for s := range signalNames {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}()

func (s Signal) String() string {
	if n, ok := signalNames[s]; ok {
		return n
	}
	return fmt.Sprintf("<Unknown Signal: %d>", int(s))
}

func (s Signal) valid() bool {
	_, ok := signalNames[s]
	return ok
}

func (s Signal) sys() syscall.Signal { return syscall.Signal(s) }

// ParseSignal maps a raw signal number to a Signal.
func ParseSignal(v int) (Signal, bool) {
	s := Signal(v)
	return s, s.valid()
}

// SigActionFlag is an sa_flags bit.
type SigActionFlag uint32

// generic Linux sa_flags values
const (
	NoChildStop    SigActionFlag = 0x00000001
	NoChildWait    SigActionFlag = 0x00000002
	IncludeSigInfo SigActionFlag = 0x00000004
	AlternateStack SigActionFlag = 0x08000000
	RestartSysCall SigActionFlag = 0x10000000
	NoDefer        SigActionFlag = 0x40000000
	ResetHandler   SigActionFlag = 0x80000000
)

var sigActionFlags = []struct {
	f    SigActionFlag
	name string
}{
	{NoChildStop, "NoChildStop"},
	{NoChildWait, "NoChildWait"},
	{IncludeSigInfo, "IncludeSigInfo"},
	{AlternateStack, "AlternateStack"},
	{RestartSysCall, "RestartSysCall"},
	{NoDefer, "NoDefer"},
	{ResetHandler, "ResetHandler"},
}

func (f SigActionFlag) String() string {
	for _, n := range sigActionFlags {
		if n.f == f {
			return n.name
		}
	}
	return fmt.Sprintf("<Unknown SigActionFlag: 0x%x>", uint32(f))
}

// flagList renders every bit of mask that has a name.
func flagList(mask SigActionFlag) string {
	var names []string
	for _, n := range sigActionFlags {
		if mask&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
