//go:build linux

package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fzft/go-unix/config"
	"github.com/fzft/go-unix/epoll"
	"github.com/fzft/go-unix/inet"
	"github.com/fzft/go-unix/log"
	"github.com/fzft/go-unix/sched"
)

const maxDatagram = 9000

// Server answers every UDP datagram with its payload reversed.
type Server struct {
	cfg  config.Config
	sock *inet.Socket
	ep   *epoll.Epoll
	buf  []byte
}

// NewServer binds a UDP socket on host:service, with SO_REUSEADDR when the
// config asks for it, and registers it for edge-triggered input.
func NewServer(ctx context.Context, cfg config.Config, host, service string) (*Server, error) {
	var opts []inet.SocketOption
	if cfg.Server.ReuseAddr {
		opts = append(opts, inet.WithReuseAddr(true))
	}
	sock, err := inet.ServerSocketUDP(ctx, host, service, opts...)
	if err != nil {
		return nil, err
	}
	if err := sock.SetNonblock(true); err != nil {
		sock.Close()
		return nil, err
	}
	ep, err := epoll.New(epoll.CloseOnExec)
	if err != nil {
		sock.Close()
		return nil, err
	}
	if err := ep.AddSocket(sock, epoll.Input|epoll.EdgeTrigger); err != nil {
		ep.Close()
		sock.Close()
		return nil, err
	}
	return &Server{cfg: cfg, sock: sock, ep: ep, buf: make([]byte, maxDatagram)}, nil
}

func (s *Server) Addr() (inet.SockAddr, error) { return s.sock.SockName() }

// Serve runs the event loop until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	events := make([]epoll.Event, s.cfg.Epoll.MaxEvents)
	for ctx.Err() == nil {
		n, err := s.ep.Wait(events, s.cfg.Epoll.WaitTimeout)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		if n > 0 {
			log.Logger.Debug("epoll_wait returned", zap.Int("events", n))
		}
		for i := 0; i < n; i++ {
			ev := &events[i]
			if ev.Matches(s.sock) && ev.Has(epoll.Input) {
				s.drain()
				continue
			}
			log.Logger.Warn("unknown socket or event type", zap.Stringer("event", ev))
		}
	}
	log.Logger.Info("server exiting")
	return nil
}

// drain answers queued datagrams until the socket would block, as edge
// triggering requires.
func (s *Server) drain() {
	for {
		n, from, err := s.sock.RecvFrom(s.buf)
		if inet.IsTemporary(err) {
			return
		}
		if err != nil {
			log.Logger.Error("recvfrom", zap.Error(err))
			return
		}
		log.Logger.Info("datagram",
			zap.String("from", from.AddrPort().String()),
			zap.Int("bytes", n),
			zap.ByteString("data", s.buf[:n]))

		reply := reverse(s.buf[:n])
		sent, err := s.sock.SendTo(reply, from, inet.SendDontWait)
		if err != nil {
			log.Logger.Error("sendto", zap.Error(err))
			continue
		}
		if sent != n {
			log.Logger.Warn("short sendto", zap.Int("sent", sent), zap.Int("want", n))
		}
	}
}

// reverse reverses b in place, leaving a trailing newline where it is.
func reverse(b []byte) []byte {
	end := len(b)
	if end > 0 && b[end-1] == '\n' {
		end--
	}
	for i, j := 0, end-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func (s *Server) Close() error {
	return multiClose(s.ep, s.sock)
}

// RunServer serves host:service on a dedicated thread with the affinity,
// policy and nice value from cfg until ctx is done.
func RunServer(ctx context.Context, cfg config.Config, host, service string, out io.Writer) error {
	srv, err := NewServer(ctx, cfg, host, service)
	if err != nil {
		return err
	}
	defer srv.Close()

	addr, err := srv.Addr()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "----------------------------------------\nserver bound to:\n%s\n----------------------------------------\n", addr)

	cpus := sched.NewCPUSet(cfg.Sched.CPUs...)
	if cpus.Count() == 0 {
		if cpus, err = sched.Affinity(0); err != nil {
			return err
		}
	}
	return sched.RunPinned(cpus, func() error {
		if err := applySched(cfg.Sched); err != nil {
			return err
		}
		return srv.Serve(ctx)
	})
}

// applySched sets the policy and nice value of the calling thread.
func applySched(sc config.SchedConfig) error {
	if sc.Policy != "" {
		policy, err := sched.ParsePolicy(sc.Policy)
		if err != nil {
			return err
		}
		if err := sched.SetScheduler(0, policy, sc.Priority, true); err != nil {
			return err
		}
		log.Logger.Info("scheduling policy set", zap.Stringer("policy", policy), zap.Int("priority", sc.Priority))
	}
	if sc.Nice != nil {
		if err := sched.SetNice(0, *sc.Nice); err != nil {
			return err
		}
		log.Logger.Info("nice set", zap.Int("nice", *sc.Nice))
	}
	return nil
}
