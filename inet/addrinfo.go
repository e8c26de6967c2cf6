//go:build linux

package inet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fzft/go-unix/log"
	"go.uber.org/zap"
)

// AddrInfo is one getaddrinfo entry, and doubles as the hints of a lookup.
//
// Family, socket type, protocol and flags are inputs. The canonical name and
// socket address are outputs filled by GetAddrInfo; changing any input drops them
// so an AddrInfo never describes an address it was not resolved for.
type AddrInfo struct {
	family   AddressFamily
	sockType SocketType
	protocol Protocol
	flags    AIFlags

	canonName *string
	sockAddr  *SockAddr
}

func NewAddrInfo(af AddressFamily, st SocketType, pt Protocol, flags ...AIFlag) AddrInfo {
	a := AddrInfo{}
	a.SetParams(af, st, pt, flags...)
	return a
}

// SetParams replaces all inputs at once.
func (a *AddrInfo) SetParams(af AddressFamily, st SocketType, pt Protocol, flags ...AIFlag) {
	a.resetOutputs()
	a.family = af
	a.sockType = st
	a.protocol = pt
	a.flags = append(AIFlags(nil), flags...)
}

func (a *AddrInfo) SetFamily(af AddressFamily) {
	a.family = af
	a.resetOutputs()
}

func (a *AddrInfo) SetSocketType(st SocketType) {
	a.sockType = st
	a.resetOutputs()
}

func (a *AddrInfo) SetProtocol(pt Protocol) {
	a.protocol = pt
	a.resetOutputs()
}

// SetFlag adds f to the flag set.
func (a *AddrInfo) SetFlag(f AIFlag) {
	if !a.flags.Has(f) {
		a.flags = append(a.flags, f)
	}
	a.resetOutputs()
}

// SetFlags replaces the flag set.
func (a *AddrInfo) SetFlags(fs ...AIFlag) {
	a.flags = append(AIFlags(nil), fs...)
	a.resetOutputs()
}

// Reset puts every field back to Any.
func (a *AddrInfo) Reset() {
	*a = AddrInfo{}
}

func (a *AddrInfo) resetOutputs() {
	a.canonName = nil
	a.sockAddr = nil
}

func (a AddrInfo) Family() AddressFamily  { return a.family }
func (a AddrInfo) SocketType() SocketType { return a.sockType }
func (a AddrInfo) Protocol() Protocol     { return a.protocol }

func (a AddrInfo) Flags() AIFlags { return append(AIFlags(nil), a.flags...) }

// AddrLen is the length of the attached address, 0 without one.
func (a AddrInfo) AddrLen() int {
	if a.sockAddr == nil {
		return 0
	}
	return a.sockAddr.Len()
}

func (a AddrInfo) CanonicalName() (string, bool) {
	if a.canonName == nil {
		return "", false
	}
	return *a.canonName, true
}

func (a AddrInfo) SockAddr() (SockAddr, bool) {
	if a.sockAddr == nil {
		return SockAddr{}, false
	}
	return *a.sockAddr, true
}

// Hints returns the raw ai_family, ai_socktype, ai_protocol and ai_flags.
func (a AddrInfo) Hints() (family, sockType, protocol, flags int) {
	return int(a.family), int(a.sockType), int(a.protocol), a.flags.Int()
}

// fromRaw builds a resolved entry. Unknown families, types or protocols are an error
// because nothing downstream could use them.
func fromRaw(family, sockType, protocol, flags int, canon *string, raw []byte) (AddrInfo, error) {
	af, ok := ParseAddressFamily(family)
	if !ok {
		return AddrInfo{}, fmt.Errorf("%w: address family %d", ErrInvalidEnum, family)
	}
	st, ok := ParseSocketType(sockType)
	if !ok {
		return AddrInfo{}, fmt.Errorf("%w: socket type %d", ErrInvalidEnum, sockType)
	}
	pt, ok := ParseProtocol(protocol)
	if !ok {
		return AddrInfo{}, fmt.Errorf("%w: protocol %d", ErrInvalidEnum, protocol)
	}

	a := NewAddrInfo(af, st, pt, FlagsFromInt(flags)...)
	a.canonName = canon
	if len(raw) > 0 {
		sa, err := FromRaw(raw)
		if err != nil {
			return AddrInfo{}, err
		}
		a.sockAddr = &sa
	}
	return a, nil
}

func (a AddrInfo) String() string { return a.format(0) }

func (a AddrInfo) format(level int) string {
	prefix := strings.Repeat(" ", level*2)
	canon, ok := a.CanonicalName()
	if !ok {
		canon = "<null>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sAddrInfo {\n", prefix)
	fmt.Fprintf(&b, "%s  family:    %s\n", prefix, a.family)
	fmt.Fprintf(&b, "%s  socktype:  %s\n", prefix, a.sockType)
	fmt.Fprintf(&b, "%s  protocol:  %s\n", prefix, a.protocol)
	fmt.Fprintf(&b, "%s  flags:     %s\n", prefix, a.flags)
	fmt.Fprintf(&b, "%s  canonname: %s\n", prefix, canon)
	fmt.Fprintf(&b, "%s  addrlen:   %d\n", prefix, a.AddrLen())
	fmt.Fprintf(&b, "%s  sockaddr:  ", prefix)
	if sa, ok := a.SockAddr(); ok {
		b.WriteString("\n" + sa.format(level+1) + "\n")
	} else {
		b.WriteString("<null>\n")
	}
	fmt.Fprintf(&b, "%s}", prefix)
	return b.String()
}

// GetAddrInfo resolves host and service with the given hints. An empty host or
// service is passed to the resolver as absent.
func GetAddrInfo(ctx context.Context, host string, hints AddrInfo, service string) ([]AddrInfo, error) {
	log.Logger.Debug("getaddrinfo",
		zap.String("host", host),
		zap.String("service", service),
		zap.Stringer("family", hints.family),
		zap.Stringer("socktype", hints.sockType),
		zap.Stringer("protocol", hints.protocol),
		zap.Stringer("flags", hints.flags),
	)
	return getAddrInfo(ctx, host, hints, service)
}

// GetAddrInfoPort is GetAddrInfo with a numeric service.
func GetAddrInfoPort(ctx context.Context, host string, hints AddrInfo, port uint16) ([]AddrInfo, error) {
	return GetAddrInfo(ctx, host, hints, strconv.Itoa(int(port)))
}
