//go:build linux

package inet

import (
	"context"
	"fmt"

	"github.com/fzft/go-unix/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// firstUsable walks resolved entries and returns the first socket for which
// setup succeeds. Failed candidates are closed and their errors collected.
func firstUsable(infos []AddrInfo, what string, setup func(*Socket, AddrInfo) error) (*Socket, error) {
	var errs error
	for _, ai := range infos {
		log.Logger.Debug(what+" candidate", zap.Stringer("addrinfo", ai))

		s, err := NewSocketFor(ai)
		if err != nil {
			log.Logger.Debug(what+" socket creation failed", zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		if err := setup(s, ai); err != nil {
			log.Logger.Debug(what+" setup failed", zap.Error(err))
			errs = multierr.Append(errs, err)
			_ = s.Close()
			continue
		}
		return s, nil
	}
	return nil, errs
}

func noAddress(addr, service string, errs error) error {
	if errs == nil {
		return fmt.Errorf("%w for %q:%q", ErrNoAddress, addr, service)
	}
	return fmt.Errorf("%w for %q:%q: %w", ErrNoAddress, addr, service, errs)
}

// SocketOption adjusts a candidate socket before it is bound.
type SocketOption func(*Socket) error

// WithReuseAddr sets SO_REUSEADDR.
func WithReuseAddr(on bool) SocketOption {
	return func(s *Socket) error { return s.SetReuseAddr(on) }
}

// ServerSocketUDP resolves laddr:service as a passive datagram endpoint and binds
// the first address that works, after applying opts to it.
func ServerSocketUDP(ctx context.Context, laddr, service string, opts ...SocketOption) (*Socket, error) {
	hints := NewAddrInfo(FamilyAny, SocketDatagram, ProtoUDP, Passive)
	infos, err := GetAddrInfo(ctx, laddr, hints, service)
	if err != nil {
		return nil, noAddress(laddr, service, err)
	}
	s, err := firstUsable(infos, "server_socket_udp", func(s *Socket, ai AddrInfo) error {
		for _, opt := range opts {
			if err := opt(s); err != nil {
				return err
			}
		}
		return s.BindInfo(ai)
	})
	if err != nil || s == nil {
		log.Logger.Error("could not create socket", zap.String("addr", laddr), zap.String("service", service))
		return nil, noAddress(laddr, service, err)
	}
	return s, nil
}

// ServerSocketTCP is the stream counterpart of ServerSocketUDP; the socket is
// listening when returned.
func ServerSocketTCP(ctx context.Context, laddr, service string, backlog int) (*Socket, error) {
	hints := NewAddrInfo(FamilyAny, SocketStream, ProtoTCP, Passive)
	infos, err := GetAddrInfo(ctx, laddr, hints, service)
	if err != nil {
		return nil, noAddress(laddr, service, err)
	}
	s, err := firstUsable(infos, "server_socket_tcp", func(s *Socket, ai AddrInfo) error {
		if err := s.SetReuseAddr(true); err != nil {
			return err
		}
		if err := s.BindInfo(ai); err != nil {
			return err
		}
		return s.Listen(backlog)
	})
	if err != nil || s == nil {
		log.Logger.Error("could not create socket", zap.String("addr", laddr), zap.String("service", service))
		return nil, noAddress(laddr, service, err)
	}
	return s, nil
}

// ClientSocket resolves raddr:service with no constraints and connects to the
// first address that accepts.
func ClientSocket(ctx context.Context, raddr, service string) (*Socket, error) {
	infos, err := GetAddrInfo(ctx, raddr, AddrInfo{}, service)
	if err != nil {
		return nil, noAddress(raddr, service, err)
	}
	s, err := firstUsable(infos, "client_socket", func(s *Socket, ai AddrInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.ConnectInfo(ai)
	})
	if err != nil || s == nil {
		log.Logger.Error("could not create socket", zap.String("addr", raddr), zap.String("service", service))
		return nil, noAddress(raddr, service, err)
	}
	return s, nil
}
