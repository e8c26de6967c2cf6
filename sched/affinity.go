//go:build linux

package sched

import (
	"os"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/fzft/go-unix/log"
)

// Affinity returns the CPUs pid may run on. pid 0 is the calling thread.
func Affinity(pid int) (CPUSet, error) {
	var cs CPUSet
	if err := unix.SchedGetaffinity(pid, &cs.set); err != nil {
		return CPUSet{}, os.NewSyscallError("sched_getaffinity", err)
	}
	return cs, nil
}

// SetAffinity restricts pid to the CPUs in cs.
func SetAffinity(pid int, cs CPUSet) error {
	return os.NewSyscallError("sched_setaffinity", unix.SchedSetaffinity(pid, &cs.set))
}

// ThreadAffinity reads the affinity of the OS thread running the caller. Only
// meaningful after runtime.LockOSThread.
func ThreadAffinity() (CPUSet, error) {
	return Affinity(unix.Gettid())
}

// SetThreadAffinity pins the OS thread running the caller. The caller must
// hold runtime.LockOSThread or the goroutine may move to another thread.
func SetThreadAffinity(cs CPUSet) error {
	return SetAffinity(unix.Gettid(), cs)
}

// RunPinned runs fn on a dedicated OS thread restricted to cs and returns its
// error. The thread is discarded afterwards so the restriction does not leak
// into other goroutines.
func RunPinned(cs CPUSet, fn func() error) error {
	errc := make(chan error, 1)
	go func() {
		// never unlocked: the runtime terminates the thread when this goroutine exits
		runtime.LockOSThread()
		if err := SetThreadAffinity(cs); err != nil {
			errc <- err
			return
		}
		log.Logger.Debug("thread pinned", zap.Int("tid", unix.Gettid()), zap.Stringer("cpus", cs))
		errc <- fn()
	}()
	return <-errc
}
