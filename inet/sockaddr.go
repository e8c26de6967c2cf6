//go:build linux

package inet

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/fzft/go-unix/log"
)

// SockAddr is a generic socket address, the typed counterpart of sockaddr_storage.
// The zero value has family FamilyAny and no address.
type SockAddr struct {
	family   AddressFamily
	addr     netip.AddrPort
	flowInfo uint32
	scopeID  uint32
}

// SockAddrFrom builds an address from a netip.AddrPort. IPv4-mapped IPv6
// addresses stay IPv6. An IPv6 zone, interface name or index, becomes the
// scope id.
func SockAddrFrom(ap netip.AddrPort) SockAddr {
	if !ap.IsValid() {
		return SockAddr{}
	}
	if ap.Addr().Is4() {
		return SockAddr{family: FamilyIPv4, addr: ap}
	}
	return SockAddr{family: FamilyIPv6, addr: ap, scopeID: zoneIndex(ap.Addr().Zone())}
}

func zoneIndex(zone string) uint32 {
	if zone == "" {
		return 0
	}
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n)
	}
	ifi, err := net.InterfaceByName(zone)
	if err != nil {
		log.Logger.Debug("unknown ipv6 zone", zap.String("zone", zone), zap.Error(err))
		return 0
	}
	return uint32(ifi.Index)
}

// zoneName is the inverse of zoneIndex, falling back to the number when no
// interface has that index.
func zoneName(idx uint32) string {
	if idx == 0 {
		return ""
	}
	if ifi, err := net.InterfaceByIndex(int(idx)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(idx), 10)
}

func ipv6AddrPort(ip [16]byte, port uint16, scopeID uint32) netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom16(ip).WithZone(zoneName(scopeID)), port)
}

// FromSockaddr converts the x/sys representation returned by accept, recvfrom and friends.
func FromSockaddr(sa unix.Sockaddr) (SockAddr, error) {
	switch a := sa.(type) {
	case nil:
		return SockAddr{}, nil
	case *unix.SockaddrInet4:
		return SockAddr{
			family: FamilyIPv4,
			addr:   netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)),
		}, nil
	case *unix.SockaddrInet6:
		return SockAddr{
			family:  FamilyIPv6,
			addr:    ipv6AddrPort(a.Addr, uint16(a.Port), a.ZoneId),
			scopeID: a.ZoneId,
		}, nil
	default:
		return SockAddr{}, fmt.Errorf("%w: %T", ErrUnsupportedFamily, sa)
	}
}

// FromRaw decodes a raw struct sockaddr as found in ai_addr.
func FromRaw(b []byte) (SockAddr, error) {
	if len(b) < 2 {
		return SockAddr{}, fmt.Errorf("sockaddr too short: %d bytes", len(b))
	}
	family := AddressFamily(binary.NativeEndian.Uint16(b[0:2]))
	switch family {
	case FamilyIPv4:
		if len(b) < unix.SizeofSockaddrInet4 {
			return SockAddr{}, fmt.Errorf("sockaddr_in too short: %d bytes", len(b))
		}
		var ip [4]byte
		copy(ip[:], b[4:8])
		port := binary.BigEndian.Uint16(b[2:4])
		return SockAddr{family: family, addr: netip.AddrPortFrom(netip.AddrFrom4(ip), port)}, nil
	case FamilyIPv6:
		if len(b) < unix.SizeofSockaddrInet6 {
			return SockAddr{}, fmt.Errorf("sockaddr_in6 too short: %d bytes", len(b))
		}
		var ip [16]byte
		copy(ip[:], b[8:24])
		port := binary.BigEndian.Uint16(b[2:4])
		scopeID := binary.NativeEndian.Uint32(b[24:28])
		return SockAddr{
			family:   family,
			addr:     ipv6AddrPort(ip, port, scopeID),
			flowInfo: binary.BigEndian.Uint32(b[4:8]),
			scopeID:  scopeID,
		}, nil
	case FamilyAny:
		return SockAddr{}, nil
	default:
		return SockAddr{}, fmt.Errorf("%w: %d", ErrUnsupportedFamily, uint32(family))
	}
}

// Raw encodes the address in struct sockaddr layout.
func (s SockAddr) Raw() []byte {
	switch s.family {
	case FamilyIPv4:
		b := make([]byte, unix.SizeofSockaddrInet4)
		binary.NativeEndian.PutUint16(b[0:2], uint16(s.family))
		binary.BigEndian.PutUint16(b[2:4], s.addr.Port())
		ip := s.addr.Addr().As4()
		copy(b[4:8], ip[:])
		return b
	case FamilyIPv6:
		b := make([]byte, unix.SizeofSockaddrInet6)
		binary.NativeEndian.PutUint16(b[0:2], uint16(s.family))
		binary.BigEndian.PutUint16(b[2:4], s.addr.Port())
		binary.BigEndian.PutUint32(b[4:8], s.flowInfo)
		ip := s.addr.Addr().As16()
		copy(b[8:24], ip[:])
		binary.NativeEndian.PutUint32(b[24:28], s.scopeID)
		return b
	}
	return nil
}

// Sockaddr converts back to the x/sys form used by bind, connect and sendto.
// It returns nil when the address has no concrete family.
func (s SockAddr) Sockaddr() unix.Sockaddr {
	switch s.family {
	case FamilyIPv4:
		return &unix.SockaddrInet4{Port: int(s.addr.Port()), Addr: s.addr.Addr().As4()}
	case FamilyIPv6:
		return &unix.SockaddrInet6{Port: int(s.addr.Port()), ZoneId: s.scopeID, Addr: s.addr.Addr().As16()}
	}
	return nil
}

func (s SockAddr) Family() AddressFamily { return s.family }

// Port is 0 for families without a port.
func (s SockAddr) Port() uint16 {
	if s.family == FamilyAny {
		return 0
	}
	return s.addr.Port()
}

// Address renders the host part the way inet_ntop does.
func (s SockAddr) Address() string {
	switch s.family {
	case FamilyIPv4, FamilyIPv6:
		return s.addr.Addr().WithZone("").String()
	}
	return "<Any/Unknown address>"
}

func (s SockAddr) AddrPort() netip.AddrPort { return s.addr }

func (s SockAddr) ScopeID() uint32 { return s.scopeID }

// Len is the socklen_t the kernel expects for this address, 0 when unset.
func (s SockAddr) Len() int {
	switch s.family {
	case FamilyIPv4:
		return unix.SizeofSockaddrInet4
	case FamilyIPv6:
		return unix.SizeofSockaddrInet6
	}
	return 0
}

// IsZero reports whether no address is held.
func (s SockAddr) IsZero() bool { return s.family == FamilyAny }

func (s SockAddr) String() string { return s.format(0) }

func (s SockAddr) format(level int) string {
	prefix := strings.Repeat(" ", level*3)
	var b strings.Builder
	fmt.Fprintf(&b, "%sSockAddr {\n", prefix)
	fmt.Fprintf(&b, "%s  family:  %s\n", prefix, s.family)
	fmt.Fprintf(&b, "%s  port:    %d\n", prefix, s.Port())
	fmt.Fprintf(&b, "%s  address: %s\n", prefix, s.Address())
	fmt.Fprintf(&b, "%s}", prefix)
	return b.String()
}
