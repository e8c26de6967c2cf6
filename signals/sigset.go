//go:build linux

package signals

import (
	"encoding/binary"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SigSet is a set of signals 1..64, bit n-1 standing for signal n as in the
// first word of the kernel sigset.
type SigSet uint64

func EmptySet() SigSet { return 0 }
func FullSet() SigSet  { return ^SigSet(0) }

func bit(sig Signal) SigSet {
	if sig < 1 || sig > 64 {
		return 0
	}
	return 1 << (uint(sig) - 1)
}

// Add puts sig in the set. Numbers outside 1..64 are ignored.
func (s *SigSet) Add(sig Signal)    { *s |= bit(sig) }
func (s *SigSet) Remove(sig Signal) { *s &^= bit(sig) }
func (s SigSet) Has(sig Signal) bool {
	b := bit(sig)
	return b != 0 && s&b != 0
}

// Signals lists the known signals in the set in numeric order.
func (s SigSet) Signals() []Signal {
	var out []Signal
	for _, sig := range knownSignals {
		if s.Has(sig) {
			out = append(out, sig)
		}
	}
	return out
}

func (s SigSet) String() string {
	sigs := s.Signals()
	names := make([]string, len(sigs))
	for i, sig := range sigs {
		names[i] = sig.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Sigset converts to the kernel representation.
func (s SigSet) Sigset() unix.Sigset_t {
	var ks unix.Sigset_t
	binary.NativeEndian.PutUint64((*[8]byte)(unsafe.Pointer(&ks))[:], uint64(s))
	return ks
}

func fromSigset(ks *unix.Sigset_t) SigSet {
	return SigSet(binary.NativeEndian.Uint64((*[8]byte)(unsafe.Pointer(ks))[:]))
}

func sigmask(how int, set *SigSet) (SigSet, error) {
	var old unix.Sigset_t
	var ks *unix.Sigset_t
	if set != nil {
		k := set.Sigset()
		ks = &k
	}
	if err := unix.PthreadSigmask(how, ks, &old); err != nil {
		return 0, os.NewSyscallError("pthread_sigmask", err)
	}
	return fromSigset(&old), nil
}

// BlockSignals adds set to the calling thread's mask and returns the previous
// mask. Lock the goroutine to its thread first or the mask lands on whichever
// thread happens to run it.
func BlockSignals(set SigSet) (SigSet, error) { return sigmask(unix.SIG_BLOCK, &set) }

func UnblockSignals(set SigSet) (SigSet, error) { return sigmask(unix.SIG_UNBLOCK, &set) }

// SetThreadMask replaces the calling thread's mask.
func SetThreadMask(set SigSet) (SigSet, error) { return sigmask(unix.SIG_SETMASK, &set) }

// ThreadMask reads the calling thread's mask.
func ThreadMask() (SigSet, error) { return sigmask(unix.SIG_BLOCK, nil) }
