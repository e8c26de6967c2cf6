//go:build linux && !cgo

package inet

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// glibc EAI_* codes, kept so errors look the same whichever resolver is built in.
const (
	eaiAgain    = -3
	eaiFail     = -4
	eaiFamily   = -6
	eaiSockType = -7
	eaiService  = -8
	eaiNoName   = -2
)

var eaiMessages = map[int]string{
	eaiAgain:    "Temporary failure in name resolution",
	eaiFail:     "Non-recoverable failure in name resolution",
	eaiFamily:   "ai_family not supported",
	eaiSockType: "ai_socktype not supported",
	eaiService:  "Servname not supported for ai_socktype",
	eaiNoName:   "Name or service not known",
}

func gaiError(host, service string, code int) error {
	return &AddrInfoError{Host: host, Service: service, Code: code, Message: eaiMessages[code]}
}

type sockKind struct {
	st SocketType
	pt Protocol
}

// getAddrInfo applies getaddrinfo hint rules on top of the Go resolver. Used
// when the binary is built without cgo.
func getAddrInfo(ctx context.Context, host string, hints AddrInfo, service string) ([]AddrInfo, error) {
	if host == "" && service == "" {
		return nil, gaiError(host, service, eaiNoName)
	}
	switch hints.family {
	case FamilyAny, FamilyIPv4, FamilyIPv6:
	default:
		return nil, gaiError(host, service, eaiFamily)
	}

	kinds, err := socketKinds(hints.sockType, hints.protocol, service != "")
	if err != nil {
		return nil, gaiError(host, service, eaiSockType)
	}

	addrs, canon, err := resolveHost(ctx, host, hints)
	if err != nil {
		var code int
		var dnsErr *net.DNSError
		switch {
		case errors.As(err, &dnsErr) && dnsErr.IsTemporary:
			code = eaiAgain
		case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
			code = eaiNoName
		case errors.Is(err, errNoName):
			code = eaiNoName
		default:
			code = eaiFail
		}
		return nil, gaiError(host, service, code)
	}

	var infos []AddrInfo
	for _, k := range kinds {
		port, err := resolvePort(ctx, service, k.st, hints.flags)
		if err != nil {
			return nil, gaiError(host, service, eaiService)
		}
		for _, ip := range addrs {
			sa := SockAddrFrom(netip.AddrPortFrom(ip, port))
			ai := NewAddrInfo(sa.Family(), k.st, k.pt, hints.flags...)
			ai.sockAddr = &sa
			infos = append(infos, ai)
		}
	}
	if len(infos) == 0 {
		return nil, gaiError(host, service, eaiNoName)
	}
	if hints.flags.Has(CanonName) {
		infos[0].canonName = &canon
	}
	return infos, nil
}

var errNoName = errors.New("no such name")

// socketKinds expands Any socket types the way glibc does: stream/TCP,
// datagram/UDP and, without a service, raw.
func socketKinds(st SocketType, pt Protocol, withService bool) ([]sockKind, error) {
	switch {
	case st == SocketAny && pt == ProtoAny:
		kinds := []sockKind{{SocketStream, ProtoTCP}, {SocketDatagram, ProtoUDP}}
		if !withService {
			kinds = append(kinds, sockKind{SocketRaw, ProtoAny})
		}
		return kinds, nil
	case st == SocketAny && pt == ProtoTCP:
		return []sockKind{{SocketStream, ProtoTCP}}, nil
	case st == SocketAny && pt == ProtoUDP:
		return []sockKind{{SocketDatagram, ProtoUDP}}, nil
	case st == SocketStream && (pt == ProtoAny || pt == ProtoTCP):
		return []sockKind{{SocketStream, ProtoTCP}}, nil
	case st == SocketDatagram && (pt == ProtoAny || pt == ProtoUDP):
		return []sockKind{{SocketDatagram, ProtoUDP}}, nil
	case st == SocketRaw && !withService:
		return []sockKind{{SocketRaw, pt}}, nil
	}
	return nil, ErrInvalidEnum
}

func resolveHost(ctx context.Context, host string, hints AddrInfo) ([]netip.Addr, string, error) {
	if host == "" {
		var v4, v6 netip.Addr
		if hints.flags.Has(Passive) {
			v4, v6 = netip.IPv4Unspecified(), netip.IPv6Unspecified()
		} else {
			v4, v6 = netip.AddrFrom4([4]byte{127, 0, 0, 1}), netip.IPv6Loopback()
		}
		return filterFamily([]netip.Addr{v4, v6}, hints), "", nil
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		addrs := filterFamily([]netip.Addr{ip}, hints)
		if len(addrs) == 0 {
			return nil, "", errNoName
		}
		return addrs, host, nil
	}
	if hints.flags.Has(NumericHost) {
		return nil, "", errNoName
	}

	network := "ip"
	switch hints.family {
	case FamilyIPv4:
		network = "ip4"
	case FamilyIPv6:
		if !hints.flags.Has(V4Mapped) {
			network = "ip6"
		}
	}
	ips, err := net.DefaultResolver.LookupNetIP(ctx, network, host)
	if err != nil {
		return nil, "", err
	}
	addrs := filterFamily(ips, hints)
	if len(addrs) == 0 {
		return nil, "", errNoName
	}

	canon := host
	if hints.flags.Has(CanonName) {
		if cname, err := net.DefaultResolver.LookupCNAME(ctx, host); err == nil {
			canon = strings.TrimSuffix(cname, ".")
		}
	}
	return addrs, canon, nil
}

func filterFamily(in []netip.Addr, hints AddrInfo) []netip.Addr {
	var out, v4 []netip.Addr
	for _, ip := range in {
		ip = ip.Unmap()
		switch hints.family {
		case FamilyIPv4:
			if ip.Is4() {
				out = append(out, ip)
			}
		case FamilyIPv6:
			if ip.Is6() {
				out = append(out, ip)
			} else {
				v4 = append(v4, ip)
			}
		default:
			out = append(out, ip)
		}
	}
	// AI_V4MAPPED: IPv4 answers stand in for missing IPv6 ones, AI_ALL wants both
	if hints.family == FamilyIPv6 && hints.flags.Has(V4Mapped) && (len(out) == 0 || hints.flags.Has(All)) {
		for _, ip := range v4 {
			out = append(out, netip.AddrFrom16(ip.As16()))
		}
	}
	return out
}

func resolvePort(ctx context.Context, service string, st SocketType, flags AIFlags) (uint16, error) {
	if service == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(n), nil
	}
	if flags.Has(NumericServ) {
		return 0, errNoName
	}
	network := "tcp"
	if st == SocketDatagram {
		network = "udp"
	}
	port, err := net.DefaultResolver.LookupPort(ctx, network, service)
	if err != nil {
		return 0, err
	}
	return uint16(port), nil
}
