//go:build linux

package epoll

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var ErrUnsetUserData = errors.New("epoll: user data not set")

type dataKind uint8

const (
	kindUnset dataKind = iota
	kindFD
	kindU32
	kindU64
	kindToken
)

var dataKindNames = [...]string{"unset", "fd", "u32", "u64", "token"}

// UserData is what the kernel hands back with a ready event: the epoll_data_t
// union plus a tag saying which member is meant. The kernel does not keep the tag.
//
// Token replaces the pointer member: Go values cannot be parked in the kernel, so
// the Epoll keeps the value and the kernel carries its id.
type UserData struct {
	kind  dataKind
	v     uint64
	value any
}

func FD(fd int) UserData       { return UserData{kind: kindFD, v: uint64(uint32(int32(fd)))} }
func U32(v uint32) UserData    { return UserData{kind: kindU32, v: uint64(v)} }
func U64(v uint64) UserData    { return UserData{kind: kindU64, v: v} }
func Token(value any) UserData { return UserData{kind: kindToken, value: value} }

func (d UserData) IsSet() bool { return d.kind != kindUnset }

func (d UserData) String() string {
	if d.kind == kindToken {
		return fmt.Sprintf("token(%d)", d.v)
	}
	return fmt.Sprintf("%s(%d)", dataKindNames[d.kind], d.v)
}

// assignTo writes the member selected by the tag into ev.
func (d UserData) assignTo(ev *unix.EpollEvent) error {
	e := (*Event)(ev)
	switch d.kind {
	case kindFD, kindU32:
		ev.Fd = int32(uint32(d.v))
	case kindU64, kindToken:
		binary.NativeEndian.PutUint64(e.data()[:], d.v)
	default:
		return ErrUnsetUserData
	}
	return nil
}
