//go:build linux

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fzft/go-unix/config"
	"github.com/fzft/go-unix/inet"
	"github.com/fzft/go-unix/log"
)

// Client sends each input line to the peer it is connected to.
type Client struct {
	sock *inet.Socket
}

func Dial(ctx context.Context, host, service string) (*Client, error) {
	sock, err := inet.ClientSocket(ctx, host, service)
	if err != nil {
		return nil, err
	}
	return &Client{sock: sock}, nil
}

func (c *Client) Peer() (inet.SockAddr, error) { return c.sock.PeerName() }

// Send writes line as one message. A short send is logged, not retried.
func (c *Client) Send(line string) error {
	n, err := c.sock.Send([]byte(line), inet.SendNoSignal)
	if err != nil {
		return err
	}
	if n != len(line) {
		log.Logger.Warn("short send", zap.Int("sent", n), zap.Int("requested", len(line)))
	}
	return nil
}

func (c *Client) Close() error { return c.sock.Close() }

// RunClient connects to host:service and sends lines from in until EOF or
// until ctx is done. interactive selects the line editor over a plain scanner.
func RunClient(ctx context.Context, cfg config.Config, host, service string, in io.Reader, out io.Writer, interactive bool) error {
	c, err := Dial(ctx, host, service)
	if err != nil {
		return err
	}
	defer c.Close()

	peer, err := c.Peer()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "----------------------------------------\nclient connected to:\n%s\n----------------------------------------\n", peer)

	var lines lineReader
	if interactive {
		lines = newLinePrompt(fmt.Sprintf("%s> ", peer.AddrPort()), cfg.Client.HistoryFile, out)
	} else {
		lines = newScanReader(in)
	}
	defer lines.Close()

	for ctx.Err() == nil {
		line, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := c.Send(line); err != nil {
			log.Logger.Error("send", zap.Error(err))
		}
	}
	log.Logger.Info("client exiting")
	return nil
}
