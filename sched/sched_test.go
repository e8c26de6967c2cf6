//go:build linux

package sched

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// onThrowawayThread runs fn on a locked thread that dies with the goroutine,
// so policy and nice changes stay contained.
func onThrowawayThread(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		fn()
	}()
	<-done
}

func TestCPUSetBasics(t *testing.T) {
	cs := NewCPUSet(0, 1)
	assert.True(t, cs.IsSet(0))
	assert.True(t, cs.IsSet(1))
	assert.False(t, cs.IsSet(2))
	assert.Equal(t, 2, cs.Count())
	assert.Equal(t, "CPUSet {0, 1}", cs.String())

	cs.Unset(0)
	assert.False(t, cs.IsSet(0))
	assert.Equal(t, 1, cs.Count())

	cs.Set(SetSize)
	cs.Set(-1)
	assert.False(t, cs.IsSet(SetSize))
	assert.Equal(t, 1, cs.Count())

	cs.Zero()
	assert.Equal(t, 0, cs.Count())
	assert.Equal(t, "CPUSet {}", cs.String())
}

func TestCPUSetOps(t *testing.T) {
	a := NewCPUSet(0, 1, 2)
	b := NewCPUSet(2, 3, 100)

	assert.Equal(t, []int{2}, a.And(b).CPUs())
	assert.Equal(t, []int{0, 1, 2, 3, 100}, a.Or(b).CPUs())
	assert.Equal(t, []int{0, 1, 3, 100}, a.Xor(b).CPUs())

	assert.True(t, a.Equal(NewCPUSet(2, 1, 0)))
	assert.False(t, a.Equal(b))
}

func TestCPUList(t *testing.T) {
	cs := NewCPUSet(1, 5, 70)
	list, err := cs.CPUList(SetSize)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 70}, list)

	list, err = cs.CPUList(10)
	assert.ErrorIs(t, err, ErrCPURange)
	assert.Equal(t, []int{1, 5}, list)
}

func TestAffinity(t *testing.T) {
	cs, err := Affinity(0)
	require.NoError(t, err)
	require.NotZero(t, cs.Count())

	_, err = Affinity(-1)
	assert.Error(t, err)
}

func TestRunPinned(t *testing.T) {
	allowed, err := Affinity(0)
	require.NoError(t, err)
	first := allowed.CPUs()[0]
	want := NewCPUSet(first)

	var got CPUSet
	err = RunPinned(want, func() error {
		var err error
		got, err = ThreadAffinity()
		return err
	})
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "got %s", got)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, RunPinned(want, func() error { return sentinel }), sentinel)

	assert.ErrorIs(t, RunPinned(CPUSet{}, func() error { return nil }), unix.EINVAL)
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]Policy{
		"fifo":       FIFO,
		"SCHED_RR":   RR,
		" Batch ":    Batch,
		"other":      Other,
		"sched_idle": Idle,
		"deadline":   Deadline,
	} {
		p, err := ParsePolicy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, p, name)
	}
	_, err := ParsePolicy("realtime")
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	assert.Equal(t, "SCHED_FIFO", FIFO.String())
	assert.Equal(t, "<Unknown Policy: 9>", Policy(9).String())
}

func TestPriorityRange(t *testing.T) {
	lo, hi, err := PriorityRange(FIFO)
	require.NoError(t, err)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 99, hi)

	lo, hi, err = PriorityRange(Other)
	require.NoError(t, err)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 0, hi)

	_, _, err = PriorityRange(Policy(42))
	assert.ErrorIs(t, err, unix.EINVAL)
}

func TestSetSchedulerBatch(t *testing.T) {
	var (
		before, after Policy
		reset         bool
		prio          int
		errs          [4]error
	)
	onThrowawayThread(t, func() {
		before, _, errs[0] = Scheduler(0)
		if errs[0] != nil || before != Other {
			return
		}
		errs[1] = SetScheduler(0, Batch, 0, false)
		after, reset, errs[2] = Scheduler(0)
		prio, errs[3] = Param(0)
	})
	require.NoError(t, errs[0])
	if before != Other {
		t.Skipf("thread already runs %s", before)
	}
	for _, err := range errs[1:] {
		require.NoError(t, err)
	}
	assert.Equal(t, Batch, after)
	assert.False(t, reset)
	assert.Equal(t, 0, prio)
}

func TestSetSchedulerRealtime(t *testing.T) {
	var (
		policy      Policy
		reset       bool
		prio        int
		setErr, err error
	)
	onThrowawayThread(t, func() {
		if setErr = SetScheduler(0, FIFO, 1, true); setErr != nil {
			return
		}
		if policy, reset, err = Scheduler(0); err != nil {
			return
		}
		prio, err = Param(0)
	})
	if errors.Is(setErr, unix.EPERM) {
		t.Skip("needs CAP_SYS_NICE")
	}
	require.NoError(t, setErr)
	require.NoError(t, err)
	assert.Equal(t, FIFO, policy)
	assert.True(t, reset)
	assert.Equal(t, 1, prio)
}

func TestSetSchedulerInvalid(t *testing.T) {
	assert.ErrorIs(t, SetScheduler(0, Policy(42), 0, false), ErrInvalidPolicy)
	assert.ErrorIs(t, SetScheduler(0, Other, 5, false), unix.EINVAL)
}

func TestNice(t *testing.T) {
	var (
		before, after int
		errs          [3]error
	)
	onThrowawayThread(t, func() {
		tid := unix.Gettid()
		if before, errs[0] = Nice(tid); errs[0] != nil || before >= 19 {
			return
		}
		errs[1] = SetNice(tid, before+1)
		after, errs[2] = Nice(tid)
	})
	require.NoError(t, errs[0])
	if before >= 19 {
		t.Skip("already at the lowest priority")
	}
	require.NoError(t, errs[1])
	require.NoError(t, errs[2])
	assert.Equal(t, before+1, after)
}

func TestYield(t *testing.T) {
	assert.NoError(t, Yield())
}
