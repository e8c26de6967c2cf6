//go:build linux

package inet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "AddressFamily::IPv4", FamilyIPv4.String())
	assert.Equal(t, "AddressFamily::Any", FamilyAny.String())
	assert.Equal(t, "SocketType::Datagram", SocketDatagram.String())
	assert.Equal(t, "Protocol::TCP", ProtoTCP.String())
	assert.Equal(t, "SendFlag::OutOfBounds", SendOutOfBand.String())
	assert.Equal(t, "RecvFlag::DontWait", RecvDontWait.String())

	assert.Equal(t, "<Unknown AddressFamily: 1234>", AddressFamily(1234).String())
	assert.Equal(t, "<Unknown Protocol: 99>", Protocol(99).String())
}

func TestParseEnums(t *testing.T) {
	af, ok := ParseAddressFamily(unix.AF_INET6)
	assert.True(t, ok)
	assert.Equal(t, FamilyIPv6, af)

	_, ok = ParseAddressFamily(unix.AF_UNIX)
	assert.False(t, ok)

	st, ok := ParseSocketType(unix.SOCK_STREAM)
	assert.True(t, ok)
	assert.Equal(t, SocketStream, st)

	_, ok = ParseProtocol(-1)
	assert.False(t, ok)
}

func TestFlagsFromInt(t *testing.T) {
	fs := FlagsFromInt(int(NumericServ | Passive | CanonName))
	assert.Equal(t, AIFlags{Passive, CanonName, NumericServ}, fs)
	assert.Equal(t, int(Passive|CanonName|NumericServ), fs.Int())

	// unknown bits are dropped
	fs = FlagsFromInt(int(V4Mapped) | 0x8000)
	assert.Equal(t, AIFlags{V4Mapped}, fs)

	assert.Empty(t, FlagsFromInt(0))
}

func TestAIFlagsString(t *testing.T) {
	assert.Equal(t, "[]", AIFlags{}.String())
	assert.Equal(t, "[AIFlag::Passive, AIFlag::NumericHost]", AIFlags{Passive, NumericHost}.String())
	assert.Equal(t, "[Unknown AIFlag: 4096]", AIFlags{AIFlag(4096)}.String())
}

func TestFlagFolding(t *testing.T) {
	assert.Equal(t, unix.MSG_DONTWAIT|unix.MSG_PEEK, recvFlags([]RecvFlag{RecvDontWait, RecvPeek}))
	assert.Equal(t, 0, sendFlags(nil))
	assert.Equal(t, unix.MSG_NOSIGNAL|unix.MSG_MORE, sendFlags([]SendFlag{SendNoSignal, SendMore}))
}
