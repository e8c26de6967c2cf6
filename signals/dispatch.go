//go:build linux

package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/fzft/go-unix/log"
)

type pending struct {
	sig Signal
	at  time.Time
}

type dispatcher struct {
	mu       sync.Mutex
	once     sync.Once
	ch       chan os.Signal
	actions  map[Signal]SigAction
	deferred *queue.Queue
	// what each running handler holds back
	running map[uint64]SigSet
	nextRun uint64
}

var process = &dispatcher{
	ch:       make(chan os.Signal, 16),
	actions:  make(map[Signal]SigAction),
	deferred: queue.New(),
	running:  make(map[uint64]SigSet),
}

func (d *dispatcher) install(sig Signal, act SigAction) SigAction {
	d.mu.Lock()
	defer d.mu.Unlock()

	old, ok := d.actions[sig]
	if !ok {
		old = NewEmpty()
	}
	switch act.kind {
	case handlerDefault:
		delete(d.actions, sig)
		signal.Reset(sig.sys())
	case handlerIgnore:
		d.actions[sig] = act
		signal.Ignore(sig.sys())
	default:
		d.once.Do(func() { go d.loop() })
		d.actions[sig] = act
		signal.Notify(d.ch, sig.sys())
	}
	return old
}

func (d *dispatcher) current(sig Signal) SigAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	if act, ok := d.actions[sig]; ok {
		return act
	}
	return NewEmpty()
}

func (d *dispatcher) loop() {
	for s := range d.ch {
		sig, ok := s.(syscall.Signal)
		if !ok {
			continue
		}
		d.deliver(Signal(sig), time.Now())
	}
}

// blocked is the union of what running handlers hold back. Caller holds mu.
func (d *dispatcher) blocked() SigSet {
	var set SigSet
	for _, s := range d.running {
		set |= s
	}
	return set
}

func (d *dispatcher) isDeferred(sig Signal) bool {
	for i := 0; i < d.deferred.Length(); i++ {
		if d.deferred.Get(i).(pending).sig == sig {
			return true
		}
	}
	return false
}

func (d *dispatcher) deliver(sig Signal, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.blocked().Has(sig) {
		if !d.isDeferred(sig) {
			d.deferred.Add(pending{sig: sig, at: at})
		}
		log.Logger.Debug("signal deferred", zap.Stringer("signal", sig))
		return
	}
	d.start(sig, at)
}

// start runs the handler of sig on its own goroutine. Caller holds mu.
func (d *dispatcher) start(sig Signal, at time.Time) {
	act, ok := d.actions[sig]
	if !ok || act.kind == handlerIgnore {
		return
	}

	hold := act.mask
	if !act.Has(NoDefer) {
		hold.Add(sig)
	}
	d.nextRun++
	id := d.nextRun
	d.running[id] = hold

	if act.Has(ResetHandler) {
		delete(d.actions, sig)
		signal.Reset(sig.sys())
	}

	go func() {
		defer d.finish(id)
		act.invoke(sig, at)
	}()
}

func (d *dispatcher) finish(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.running, id)

	for n := d.deferred.Length(); n > 0; n-- {
		p := d.deferred.Remove().(pending)
		if d.blocked().Has(p.sig) {
			d.deferred.Add(p)
			continue
		}
		d.start(p.sig, p.at)
	}
}

// NotifyContext is signal.NotifyContext for Signal values.
func NotifyContext(parent context.Context, sigs ...Signal) (context.Context, context.CancelFunc) {
	list := make([]os.Signal, len(sigs))
	for i, s := range sigs {
		list[i] = s.sys()
	}
	return signal.NotifyContext(parent, list...)
}
