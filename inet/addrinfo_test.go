//go:build linux

package inet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrInfoDefaults(t *testing.T) {
	var a AddrInfo
	assert.Equal(t, FamilyAny, a.Family())
	assert.Equal(t, SocketAny, a.SocketType())
	assert.Equal(t, ProtoAny, a.Protocol())
	assert.Empty(t, a.Flags())
	assert.Equal(t, 0, a.AddrLen())

	_, ok := a.CanonicalName()
	assert.False(t, ok)
	_, ok = a.SockAddr()
	assert.False(t, ok)
}

func TestAddrInfoSettersDropResult(t *testing.T) {
	ctx := context.Background()
	hints := NewAddrInfo(FamilyIPv4, SocketDatagram, ProtoUDP, NumericHost, NumericServ)
	infos, err := GetAddrInfo(ctx, "127.0.0.1", hints, "5353")
	require.NoError(t, err)
	require.NotEmpty(t, infos)

	ai := infos[0]
	_, ok := ai.SockAddr()
	require.True(t, ok)

	ai.SetProtocol(ProtoUDP)
	_, ok = ai.SockAddr()
	assert.False(t, ok, "changing an input must drop the resolved address")
	assert.Equal(t, 0, ai.AddrLen())
}

func TestAddrInfoSetFlag(t *testing.T) {
	a := NewAddrInfo(FamilyAny, SocketStream, ProtoTCP)
	a.SetFlag(Passive)
	a.SetFlag(Passive)
	a.SetFlag(CanonName)
	assert.Equal(t, AIFlags{Passive, CanonName}, a.Flags())

	a.SetFlags(NumericHost)
	assert.Equal(t, AIFlags{NumericHost}, a.Flags())

	family, st, pt, flags := a.Hints()
	assert.Equal(t, int(FamilyAny), family)
	assert.Equal(t, int(SocketStream), st)
	assert.Equal(t, int(ProtoTCP), pt)
	assert.Equal(t, int(NumericHost), flags)

	a.Reset()
	assert.Equal(t, SocketAny, a.SocketType())
	assert.Empty(t, a.Flags())
}

func TestGetAddrInfoNumeric(t *testing.T) {
	hints := NewAddrInfo(FamilyAny, SocketDatagram, ProtoAny)
	infos, err := GetAddrInfoPort(context.Background(), "127.0.0.1", hints, 6000)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	ai := infos[0]
	assert.Equal(t, FamilyIPv4, ai.Family())
	assert.Equal(t, SocketDatagram, ai.SocketType())
	assert.Equal(t, ProtoUDP, ai.Protocol())

	sa, ok := ai.SockAddr()
	require.True(t, ok)
	assert.Equal(t, uint16(6000), sa.Port())
	assert.Equal(t, "127.0.0.1", sa.Address())
	assert.Equal(t, 16, ai.AddrLen())
}

func TestGetAddrInfoPassiveWildcard(t *testing.T) {
	hints := NewAddrInfo(FamilyIPv4, SocketStream, ProtoTCP, Passive)
	infos, err := GetAddrInfo(context.Background(), "", hints, "7000")
	require.NoError(t, err)
	require.NotEmpty(t, infos)

	sa, ok := infos[0].SockAddr()
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0", sa.Address())
	assert.Equal(t, uint16(7000), sa.Port())
}

func TestGetAddrInfoNumericHostRejectsNames(t *testing.T) {
	hints := NewAddrInfo(FamilyAny, SocketStream, ProtoTCP, NumericHost)
	_, err := GetAddrInfo(context.Background(), "not-an-address.invalid", hints, "80")
	require.Error(t, err)

	var gaiErr *AddrInfoError
	require.True(t, errors.As(err, &gaiErr))
	assert.NotZero(t, gaiErr.Code)
	assert.NotEmpty(t, gaiErr.Message)
}

func TestAddrInfoString(t *testing.T) {
	hints := NewAddrInfo(FamilyIPv4, SocketStream, ProtoTCP)
	infos, err := GetAddrInfo(context.Background(), "127.0.0.1", hints, "80")
	require.NoError(t, err)
	require.NotEmpty(t, infos)

	s := infos[0].String()
	assert.Contains(t, s, "AddrInfo {\n")
	assert.Contains(t, s, "  family:    AddressFamily::IPv4\n")
	assert.Contains(t, s, "  socktype:  SocketType::Stream\n")
	assert.Contains(t, s, "  canonname: <null>\n")
	assert.Contains(t, s, "     address: 127.0.0.1\n")

	assert.Contains(t, AddrInfo{}.String(), "  sockaddr:  <null>\n")
}
