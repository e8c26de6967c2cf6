//go:build linux

package inet

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrNoAddress is returned when no resolved candidate could be turned into a usable socket.
	ErrNoAddress = errors.New("inet: no usable address")

	// ErrNoSockAddr is returned by BindInfo/ConnectInfo for an AddrInfo without an address.
	ErrNoSockAddr = errors.New("inet: addrinfo carries no sockaddr")

	ErrUnsupportedFamily = errors.New("inet: unsupported address family")
	ErrInvalidEnum       = errors.New("inet: value outside enumeration")
	ErrClosed            = errors.New("inet: socket closed")
)

// AddrInfoError is a failed getaddrinfo lookup. Code is the EAI_* value.
type AddrInfoError struct {
	Host    string
	Service string
	Code    int
	Message string
}

func (e *AddrInfoError) Error() string {
	return fmt.Sprintf("getaddrinfo %q %q: %s", e.Host, e.Service, e.Message)
}

// IsTemporary reports whether err means "try again later" rather than a broken socket.
func IsTemporary(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}
