//go:build linux

// Package signals sets up signal dispositions and thread signal masks.
//
// Go owns the process' real signal handlers, so a SigAction installed here is
// delivered through os/signal to a dispatcher that keeps the sigaction rules:
// while a handler runs, the signals in its mask (and the signal itself unless
// NoDefer is set) are held back and delivered in arrival order once it returns.
// Repeated instances of a held back signal collapse into one, as the kernel does.
package signals

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fzft/go-unix/log"
)

type handlerKind uint8

const (
	handlerDefault handlerKind = iota
	handlerIgnore
	handlerFunc
	handlerInfoFunc
)

// SigInfo is what an info handler receives.
type SigInfo struct {
	Signal Signal
	// Received is when the dispatcher took the signal off the runtime.
	Received time.Time
}

// SigAction describes the disposition of a signal. The zero value is the
// default disposition with an empty mask.
type SigAction struct {
	kind    handlerKind
	handler func(Signal)
	info    func(*SigInfo)
	mask    SigSet
	flags   SigActionFlag
}

// NewEmpty returns a default action whose handler blocks nothing else.
func NewEmpty() SigAction { return SigAction{mask: EmptySet()} }

// NewFull returns a default action whose handler blocks every signal.
func NewFull() SigAction { return SigAction{mask: FullSet()} }

// SetHandler installs h as a plain handler.
func (a *SigAction) SetHandler(h func(Signal)) {
	a.kind, a.handler, a.info = handlerFunc, h, nil
	a.flags &^= IncludeSigInfo
}

// SetInfoHandler installs h as a handler that receives a SigInfo.
func (a *SigAction) SetInfoHandler(h func(*SigInfo)) {
	a.kind, a.handler, a.info = handlerInfoFunc, nil, h
	a.flags |= IncludeSigInfo
}

func (a *SigAction) SetDefaultHandler() {
	a.kind, a.handler, a.info = handlerDefault, nil, nil
	a.flags &^= IncludeSigInfo
}

func (a *SigAction) SetIgnoreHandler() {
	a.kind, a.handler, a.info = handlerIgnore, nil, nil
	a.flags &^= IncludeSigInfo
}

func (a *SigAction) MaskAdd(sig Signal)       { a.mask.Add(sig) }
func (a *SigAction) MaskRemove(sig Signal)    { a.mask.Remove(sig) }
func (a SigAction) MaskIsSet(sig Signal) bool { return a.mask.Has(sig) }
func (a SigAction) Mask() SigSet              { return a.mask }
func (a SigAction) Flags() SigActionFlag      { return a.flags }
func (a SigAction) Has(f SigActionFlag) bool  { return a.flags&f != 0 }
func (a SigAction) IsDefault() bool           { return a.kind == handlerDefault }
func (a SigAction) IsIgnore() bool            { return a.kind == handlerIgnore }

// SetFlags adds flags. IncludeSigInfo is owned by the handler setters and is
// skipped with a warning.
func (a *SigAction) SetFlags(flags ...SigActionFlag) {
	for _, f := range flags {
		if f == IncludeSigInfo {
			log.Logger.Warn("SetFlags: ignoring flag, set an info handler instead",
				zap.Stringer("flag", f))
			continue
		}
		a.flags |= f
	}
}

func (a SigAction) handlerName() string {
	switch a.kind {
	case handlerDefault:
		return "SigAction::Default"
	case handlerIgnore:
		return "SigAction::Ignore"
	case handlerFunc:
		return "func(Signal)"
	default:
		return "func(*SigInfo)"
	}
}

func (a SigAction) String() string { return a.format(0) }

func (a SigAction) format(level int) string {
	prefix := strings.Repeat(" ", 2*level)
	var b strings.Builder
	b.WriteString(prefix + "SigAction {\n")
	b.WriteString(prefix + "  handler: " + a.handlerName() + "\n")
	b.WriteString(prefix + "  masked:  " + a.mask.String() + "\n")
	b.WriteString(prefix + "  flags:   " + flagList(a.flags) + "\n")
	b.WriteString(prefix + "}")
	return b.String()
}

func (a SigAction) invoke(sig Signal, at time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error("signal handler panicked",
				zap.Stringer("signal", sig), zap.Any("panic", r))
		}
	}()
	switch a.kind {
	case handlerFunc:
		a.handler(sig)
	case handlerInfoFunc:
		a.info(&SigInfo{Signal: sig, Received: at})
	}
}

// Sigaction installs act for sig and returns the action it replaces.
func Sigaction(sig Signal, act SigAction) (SigAction, error) {
	if !sig.valid() {
		return SigAction{}, fmt.Errorf("sigaction %d: %w", int(sig), ErrUnsupportedSignal)
	}
	if (act.kind == handlerFunc && act.handler == nil) || (act.kind == handlerInfoFunc && act.info == nil) {
		return SigAction{}, fmt.Errorf("sigaction %s: nil handler", sig)
	}
	return process.install(sig, act), nil
}

// Current returns the action installed for sig.
func Current(sig Signal) SigAction {
	return process.current(sig)
}

// HandleInterrupt installs h for SIGINT with an empty mask, for programs that
// only need a clean shutdown.
func HandleInterrupt(h func(Signal)) error {
	sa := NewEmpty()
	sa.SetHandler(h)
	log.Logger.Debug("installing interrupt handler", zap.Stringer("action", sa))

	if _, err := Sigaction(Interrupt, sa); err != nil {
		log.Logger.Error("sigaction failed", zap.Error(err))
		return err
	}
	log.Logger.Info("signal handler set up", zap.Stringer("signal", Interrupt))
	return nil
}
