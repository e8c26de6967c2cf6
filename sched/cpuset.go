//go:build linux

package sched

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/fzft/go-unix/log"
)

// SetSize is how many CPUs a CPUSet can hold (CPU_SETSIZE).
const SetSize = int(unsafe.Sizeof(unix.CPUSet{})) * 8

var ErrCPURange = errors.New("sched: cpu index out of range")

// CPUSet is a set of CPU indices as used by sched_setaffinity. The zero value
// is the empty set.
type CPUSet struct {
	set unix.CPUSet
}

// NewCPUSet returns a set holding cpus.
func NewCPUSet(cpus ...int) CPUSet {
	var cs CPUSet
	for _, c := range cpus {
		cs.Set(c)
	}
	return cs
}

func (cs *CPUSet) Zero() { cs.set.Zero() }

func (cs *CPUSet) Set(cpu int) {
	if check("Set", cpu) {
		cs.set.Set(cpu)
	}
}

func (cs *CPUSet) Unset(cpu int) {
	if check("Unset", cpu) {
		cs.set.Clear(cpu)
	}
}

func (cs CPUSet) IsSet(cpu int) bool {
	return check("IsSet", cpu) && cs.set.IsSet(cpu)
}

func (cs CPUSet) Count() int { return cs.set.Count() }

// CPUList returns the set members below limit in ascending order. It fails if
// some members lie at or above limit.
func (cs CPUSet) CPUList(limit int) ([]int, error) {
	want := cs.Count()
	if limit > SetSize {
		limit = SetSize
	}
	cpus := make([]int, 0, want)
	for i := 0; len(cpus) < want && i < limit; i++ {
		if cs.set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	if len(cpus) != want {
		return cpus, fmt.Errorf("listed %d of %d cpus below %d: %w", len(cpus), want, limit, ErrCPURange)
	}
	return cpus, nil
}

// CPUs lists every member.
func (cs CPUSet) CPUs() []int {
	cpus, _ := cs.CPUList(SetSize)
	return cpus
}

func (cs CPUSet) And(o CPUSet) CPUSet {
	var out CPUSet
	for i := range cs.set {
		out.set[i] = cs.set[i] & o.set[i]
	}
	return out
}

func (cs CPUSet) Or(o CPUSet) CPUSet {
	var out CPUSet
	for i := range cs.set {
		out.set[i] = cs.set[i] | o.set[i]
	}
	return out
}

func (cs CPUSet) Xor(o CPUSet) CPUSet {
	var out CPUSet
	for i := range cs.set {
		out.set[i] = cs.set[i] ^ o.set[i]
	}
	return out
}

func (cs CPUSet) Equal(o CPUSet) bool { return cs.set == o.set }

func (cs CPUSet) String() string {
	var b strings.Builder
	b.WriteString("CPUSet {")
	for i, c := range cs.CPUs() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(c))
	}
	b.WriteString("}")
	return b.String()
}

// check warns about indices a cpu_set_t cannot store.
func check(op string, cpu int) bool {
	if cpu < 0 || cpu >= SetSize {
		log.Logger.Warn("cpu index beyond set capacity",
			zap.String("op", op), zap.Int("cpu", cpu), zap.Int("setsize", SetSize))
		return false
	}
	return true
}
