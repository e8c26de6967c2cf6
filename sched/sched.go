//go:build linux

// Package sched controls CPU affinity and the scheduling policy of processes
// and threads.
//
// Linux applies these calls per thread: pid 0 means the calling thread, and
// a goroutine must be locked to its thread for the result to stick.
package sched

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

var ErrInvalidPolicy = errors.New("sched: invalid policy")

// Policy is a scheduling policy (SCHED_*).
type Policy int

const (
	Other    Policy = 0
	FIFO     Policy = 1
	RR       Policy = 2
	Batch    Policy = 3
	Idle     Policy = 5
	Deadline Policy = 6
)

const resetOnFork = 0x40000000

var policyNames = map[Policy]string{
	Other:    "SCHED_OTHER",
	FIFO:     "SCHED_FIFO",
	RR:       "SCHED_RR",
	Batch:    "SCHED_BATCH",
	Idle:     "SCHED_IDLE",
	Deadline: "SCHED_DEADLINE",
}

func (p Policy) String() string {
	if n, ok := policyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("<Unknown Policy: %d>", int(p))
}

// ParsePolicy accepts "fifo", "SCHED_FIFO" and the like, case insensitively.
func ParsePolicy(name string) (Policy, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "SCHED_") {
		n = "SCHED_" + n
	}
	for p, pn := range policyNames {
		if pn == n {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrInvalidPolicy)
}

type schedParam struct {
	priority int32
}

func syscallErr(name string, e unix.Errno) error {
	if e == 0 {
		return nil
	}
	return os.NewSyscallError(name, e)
}

// Scheduler returns the policy of pid and whether it is reset on fork.
func Scheduler(pid int) (Policy, bool, error) {
	r, _, e := unix.Syscall(unix.SYS_SCHED_GETSCHEDULER, uintptr(pid), 0, 0)
	if err := syscallErr("sched_getscheduler", e); err != nil {
		return 0, false, err
	}
	return Policy(r &^ resetOnFork), r&resetOnFork != 0, nil
}

// SetScheduler sets the policy and static priority of pid. Real-time policies
// usually need CAP_SYS_NICE. Deadline cannot be set this way, the kernel
// rejects it with EINVAL.
func SetScheduler(pid int, policy Policy, priority int, resetOnForkFlag bool) error {
	if _, ok := policyNames[policy]; !ok {
		return fmt.Errorf("sched_setscheduler %d: %w", int(policy), ErrInvalidPolicy)
	}
	p := uintptr(policy)
	if resetOnForkFlag {
		p |= resetOnFork
	}
	param := schedParam{priority: int32(priority)}
	_, _, e := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, uintptr(pid), p, uintptr(unsafe.Pointer(&param)))
	return syscallErr("sched_setscheduler", e)
}

// Param returns the static priority of pid.
func Param(pid int) (int, error) {
	var param schedParam
	_, _, e := unix.Syscall(unix.SYS_SCHED_GETPARAM, uintptr(pid), uintptr(unsafe.Pointer(&param)), 0)
	if err := syscallErr("sched_getparam", e); err != nil {
		return 0, err
	}
	return int(param.priority), nil
}

// PriorityRange returns the static priorities valid for policy.
func PriorityRange(policy Policy) (lo, hi int, err error) {
	r, _, e := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MIN, uintptr(policy), 0, 0)
	if err = syscallErr("sched_get_priority_min", e); err != nil {
		return 0, 0, err
	}
	lo = int(r)
	r, _, e = unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MAX, uintptr(policy), 0, 0)
	if err = syscallErr("sched_get_priority_max", e); err != nil {
		return 0, 0, err
	}
	return lo, int(r), nil
}

// Nice returns the nice value of pid.
func Nice(pid int) (int, error) {
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, pid)
	if err != nil {
		return 0, os.NewSyscallError("getpriority", err)
	}
	// the raw syscall reports 20 - nice
	return 20 - prio, nil
}

// SetNice sets the nice value of pid. Lowering it needs CAP_SYS_NICE.
func SetNice(pid, nice int) error {
	return os.NewSyscallError("setpriority", unix.Setpriority(unix.PRIO_PROCESS, pid, nice))
}

// Yield gives up the CPU of the calling thread.
func Yield() error {
	_, _, e := unix.Syscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
	return syscallErr("sched_yield", e)
}
