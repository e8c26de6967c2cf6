//go:build linux

package inet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fzft/go-unix/log"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// The C api passes all of these around as plain ints. Keeping them as distinct
// types stops a protocol from being handed over where a family is expected.

type AddressFamily uint32

const (
	FamilyAny  AddressFamily = unix.AF_UNSPEC
	FamilyIPv4 AddressFamily = unix.AF_INET
	FamilyIPv6 AddressFamily = unix.AF_INET6
)

type SocketType uint32

const (
	SocketAny      SocketType = 0
	SocketDatagram SocketType = unix.SOCK_DGRAM
	SocketStream   SocketType = unix.SOCK_STREAM
	SocketRaw      SocketType = unix.SOCK_RAW
)

type Protocol uint32

const (
	ProtoAny Protocol = 0
	ProtoUDP Protocol = unix.IPPROTO_UDP
	ProtoTCP Protocol = unix.IPPROTO_TCP
)

// AIFlag values are bits, several may be combined in a single lookup.
// Values are the glibc <netdb.h> ones, x/sys does not export them.
type AIFlag uint32

const (
	Passive     AIFlag = 0x0001
	CanonName   AIFlag = 0x0002
	NumericHost AIFlag = 0x0004
	V4Mapped    AIFlag = 0x0008
	All         AIFlag = 0x0010
	AddrConfig  AIFlag = 0x0020
	NumericServ AIFlag = 0x0400
)

type RecvFlag uint32

const (
	RecvDontWait RecvFlag = unix.MSG_DONTWAIT
	RecvPeek     RecvFlag = unix.MSG_PEEK
	RecvWaitAll  RecvFlag = unix.MSG_WAITALL
	RecvTrunc    RecvFlag = unix.MSG_TRUNC
)

type SendFlag uint32

const (
	SendConfirm     SendFlag = unix.MSG_CONFIRM
	SendDontWait    SendFlag = unix.MSG_DONTWAIT
	SendDontRoute   SendFlag = unix.MSG_DONTROUTE
	SendEndOfRecord SendFlag = unix.MSG_EOR
	SendMore        SendFlag = unix.MSG_MORE
	SendNoSignal    SendFlag = unix.MSG_NOSIGNAL
	SendOutOfBand   SendFlag = unix.MSG_OOB
)

var addressFamilyNames = map[AddressFamily]string{
	FamilyAny:  "AddressFamily::Any",
	FamilyIPv4: "AddressFamily::IPv4",
	FamilyIPv6: "AddressFamily::IPv6",
}

var socketTypeNames = map[SocketType]string{
	SocketAny:      "SocketType::Any",
	SocketDatagram: "SocketType::Datagram",
	SocketStream:   "SocketType::Stream",
	SocketRaw:      "SocketType::Raw",
}

var protocolNames = map[Protocol]string{
	ProtoAny: "Protocol::Any",
	ProtoUDP: "Protocol::UDP",
	ProtoTCP: "Protocol::TCP",
}

var aiFlagNames = map[AIFlag]string{
	Passive:     "AIFlag::Passive",
	CanonName:   "AIFlag::CanonName",
	NumericHost: "AIFlag::NumericHost",
	NumericServ: "AIFlag::NumericServ",
	V4Mapped:    "AIFlag::V4Mapped",
	All:         "AIFlag::All",
	AddrConfig:  "AIFlag::AddrConfig",
}

var recvFlagNames = map[RecvFlag]string{
	RecvDontWait: "RecvFlag::DontWait",
	RecvPeek:     "RecvFlag::Peek",
	RecvWaitAll:  "RecvFlag::WaitAll",
	RecvTrunc:    "RecvFlag::Trunc",
}

var sendFlagNames = map[SendFlag]string{
	SendConfirm:     "SendFlag::Confirm",
	SendDontWait:    "SendFlag::DontWait",
	SendDontRoute:   "SendFlag::DontRoute",
	SendEndOfRecord: "SendFlag::EndOfRecord",
	SendMore:        "SendFlag::More",
	SendNoSignal:    "SendFlag::NoSignal",
	SendOutOfBand:   "SendFlag::OutOfBounds",
}

func enumName[T ~uint32](names map[T]string, kind string, v T) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("<Unknown %s: %d>", kind, uint32(v))
}

func (af AddressFamily) String() string { return enumName(addressFamilyNames, "AddressFamily", af) }
func (st SocketType) String() string    { return enumName(socketTypeNames, "SocketType", st) }
func (pt Protocol) String() string      { return enumName(protocolNames, "Protocol", pt) }
func (f AIFlag) String() string         { return enumName(aiFlagNames, "AIFlag", f) }
func (f RecvFlag) String() string       { return enumName(recvFlagNames, "RecvFlag", f) }
func (f SendFlag) String() string       { return enumName(sendFlagNames, "SendFlag", f) }

func parseEnum[T ~uint32](names map[T]string, v int) (T, bool) {
	if v < 0 {
		return 0, false
	}
	_, ok := names[T(v)]
	return T(v), ok
}

// ParseAddressFamily converts a raw AF_* value. ok is false for families this package does not model.
func ParseAddressFamily(v int) (AddressFamily, bool) { return parseEnum(addressFamilyNames, v) }

func ParseSocketType(v int) (SocketType, bool) { return parseEnum(socketTypeNames, v) }

func ParseProtocol(v int) (Protocol, bool) { return parseEnum(protocolNames, v) }

// AIFlags is a set of lookup flags.
type AIFlags []AIFlag

// Int folds the set into the ai_flags bit field.
func (fs AIFlags) Int() int {
	var x int
	for _, f := range fs {
		x |= int(f)
	}
	return x
}

// Has reports whether f is part of the set.
func (fs AIFlags) Has(f AIFlag) bool {
	for _, v := range fs {
		if v == f {
			return true
		}
	}
	return false
}

func (fs AIFlags) String() string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		if s, ok := aiFlagNames[f]; ok {
			parts = append(parts, s)
		} else {
			parts = append(parts, fmt.Sprintf("Unknown AIFlag: %d", uint32(f)))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FlagsFromInt splits an ai_flags bit field into known flags, sorted by value.
// Bits without a matching AIFlag are logged and dropped.
func FlagsFromInt(flags int) AIFlags {
	var fs AIFlags
	rest := flags
	for i := 0; i < 32; i++ {
		mask := 1 << i
		if flags&mask == 0 {
			continue
		}
		f := AIFlag(mask)
		if _, ok := aiFlagNames[f]; !ok {
			continue
		}
		fs = append(fs, f)
		rest &^= mask
	}
	if rest != 0 {
		log.Logger.Warn("skipping unrecognized ai_flags bits", zap.Int("bits", rest))
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
	return fs
}

func recvFlags(fs []RecvFlag) int {
	var x int
	for _, f := range fs {
		x |= int(f)
	}
	return x
}

func sendFlags(fs []SendFlag) int {
	var x int
	for _, f := range fs {
		x |= int(f)
	}
	return x
}
