//go:build linux

package inet

import (
	"io"
	"os"

	"github.com/fzft/go-unix/log"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Socket owns one socket descriptor. It is not safe to copy: pass *Socket around
// and use Release to hand the descriptor to something else.
//
// Sockets are only made from typed parameters, never from a bare integer.
type Socket struct {
	fd int
}

func NewSocket(af AddressFamily, st SocketType, pt Protocol) (*Socket, error) {
	fd, err := unix.Socket(int(af), int(st)|unix.SOCK_CLOEXEC, int(pt))
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	log.Logger.Debug("opened socket", zap.Int("fd", fd), zap.Stringer("family", af), zap.Stringer("type", st))
	return &Socket{fd: fd}, nil
}

// NewSocketFor opens a socket matching a resolved entry.
func NewSocketFor(ai AddrInfo) (*Socket, error) {
	return NewSocket(ai.Family(), ai.SocketType(), ai.Protocol())
}

// Fd exposes the descriptor. The socket still owns it.
func (s *Socket) Fd() int { return s.fd }

// Close is safe to call more than once.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	log.Logger.Debug("closing socket", zap.Int("fd", fd))
	return os.NewSyscallError("close", unix.Close(fd))
}

// Release gives up ownership and returns the descriptor; the socket becomes closed.
func (s *Socket) Release() int {
	fd := s.fd
	s.fd = -1
	return fd
}

func (s *Socket) check() error {
	if s.fd < 0 {
		return ErrClosed
	}
	return nil
}

func (s *Socket) Bind(sa SockAddr) error {
	if err := s.check(); err != nil {
		return err
	}
	usa := sa.Sockaddr()
	if usa == nil {
		return ErrNoSockAddr
	}
	return os.NewSyscallError("bind", unix.Bind(s.fd, usa))
}

func (s *Socket) BindInfo(ai AddrInfo) error {
	sa, ok := ai.SockAddr()
	if !ok {
		return ErrNoSockAddr
	}
	return s.Bind(sa)
}

func (s *Socket) Listen(backlog int) error {
	if err := s.check(); err != nil {
		return err
	}
	return os.NewSyscallError("listen", unix.Listen(s.fd, backlog))
}

func (s *Socket) Connect(sa SockAddr) error {
	if err := s.check(); err != nil {
		return err
	}
	usa := sa.Sockaddr()
	if usa == nil {
		return ErrNoSockAddr
	}
	return os.NewSyscallError("connect", unix.Connect(s.fd, usa))
}

func (s *Socket) ConnectInfo(ai AddrInfo) error {
	sa, ok := ai.SockAddr()
	if !ok {
		return ErrNoSockAddr
	}
	return s.Connect(sa)
}

// Accept takes the next pending connection of a listening socket.
func (s *Socket) Accept() (*Socket, SockAddr, error) {
	if err := s.check(); err != nil {
		return nil, SockAddr{}, err
	}
	fd, usa, err := unix.Accept4(s.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, SockAddr{}, os.NewSyscallError("accept4", err)
	}
	peer, err := FromSockaddr(usa)
	if err != nil {
		log.Logger.Warn("accepted peer with unsupported address", zap.Int("fd", fd), zap.Error(err))
	}
	return &Socket{fd: fd}, peer, nil
}

func (s *Socket) Recv(buf []byte, flags ...RecvFlag) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	n, _, err := unix.Recvfrom(s.fd, buf, recvFlags(flags))
	if err != nil {
		return n, os.NewSyscallError("recvfrom", err)
	}
	return n, nil
}

// RecvFrom also reports who sent the data. The address is zero for connected stream sockets.
func (s *Socket) RecvFrom(buf []byte, flags ...RecvFlag) (int, SockAddr, error) {
	if err := s.check(); err != nil {
		return 0, SockAddr{}, err
	}
	n, usa, err := unix.Recvfrom(s.fd, buf, recvFlags(flags))
	if err != nil {
		return n, SockAddr{}, os.NewSyscallError("recvfrom", err)
	}
	from, err := FromSockaddr(usa)
	return n, from, err
}

func (s *Socket) Send(buf []byte, flags ...SendFlag) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	n, err := unix.SendmsgN(s.fd, buf, nil, nil, sendFlags(flags))
	return n, os.NewSyscallError("sendmsg", err)
}

func (s *Socket) SendTo(buf []byte, to SockAddr, flags ...SendFlag) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	usa := to.Sockaddr()
	if usa == nil {
		return 0, ErrNoSockAddr
	}
	n, err := unix.SendmsgN(s.fd, buf, nil, usa, sendFlags(flags))
	return n, os.NewSyscallError("sendmsg", err)
}

// Read implements io.Reader over Recv. A zero byte read on a stream socket is io.EOF.
func (s *Socket) Read(p []byte) (int, error) {
	n, err := s.Recv(p)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		if st, _ := s.Option(unix.SOL_SOCKET, unix.SO_TYPE); st == unix.SOCK_STREAM {
			return 0, io.EOF
		}
	}
	return n, nil
}

// Write implements io.Writer over Send, looping until p is sent.
func (s *Socket) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		n, err := s.Send(p[written:], SendNoSignal)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (s *Socket) SockName() (SockAddr, error) {
	if err := s.check(); err != nil {
		return SockAddr{}, err
	}
	usa, err := unix.Getsockname(s.fd)
	if err != nil {
		return SockAddr{}, os.NewSyscallError("getsockname", err)
	}
	return FromSockaddr(usa)
}

func (s *Socket) PeerName() (SockAddr, error) {
	if err := s.check(); err != nil {
		return SockAddr{}, err
	}
	usa, err := unix.Getpeername(s.fd)
	if err != nil {
		return SockAddr{}, os.NewSyscallError("getpeername", err)
	}
	return FromSockaddr(usa)
}

func (s *Socket) SetOption(level, opt, value int) error {
	if err := s.check(); err != nil {
		return err
	}
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(s.fd, level, opt, value))
}

func (s *Socket) Option(level, opt int) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	v, err := unix.GetsockoptInt(s.fd, level, opt)
	return v, os.NewSyscallError("getsockopt", err)
}

func (s *Socket) SetReuseAddr(on bool) error {
	return s.SetOption(unix.SOL_SOCKET, unix.SO_REUSEADDR, boolInt(on))
}

func (s *Socket) SetNonblock(on bool) error {
	if err := s.check(); err != nil {
		return err
	}
	return os.NewSyscallError("fcntl", unix.SetNonblock(s.fd, on))
}

// Type reports the SO_TYPE of the socket.
func (s *Socket) Type() (SocketType, error) {
	v, err := s.Option(unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return SocketAny, err
	}
	return SocketType(v), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
