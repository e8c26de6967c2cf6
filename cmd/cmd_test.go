//go:build linux

package cmd

import (
	"bytes"
	"context"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/fzft/go-unix/config"
	"github.com/fzft/go-unix/inet"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Epoll.WaitTimeout = 20 * time.Millisecond
	cfg.Client.HistoryFile = ""
	return cfg
}

func TestReverse(t *testing.T) {
	assert.Equal(t, "olleh", string(reverse([]byte("hello"))))
	assert.Equal(t, "cba\n", string(reverse([]byte("abc\n"))))
	assert.Equal(t, "", string(reverse(nil)))
	assert.Equal(t, "\n", string(reverse([]byte("\n"))))
}

func TestServerRepliesReversed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := NewServer(ctx, testConfig(), "127.0.0.1", "0")
	require.NoError(t, err)
	defer srv.Close()
	addr, err := srv.Addr()
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	client, err := inet.ServerSocketUDP(ctx, "127.0.0.1", "0")
	require.NoError(t, err)
	defer client.Close()

	for _, msg := range []string{"hello", "epoll"} {
		_, err = client.SendTo([]byte(msg), addr)
		require.NoError(t, err)
	}

	buf := make([]byte, 64)
	var got []string
	for len(got) < 2 {
		n, from, err := client.RecvFrom(buf)
		require.NoError(t, err)
		assert.Equal(t, addr.AddrPort(), from.AddrPort())
		got = append(got, string(buf[:n]))
	}
	assert.Equal(t, []string{"olleh", "llope"}, got)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestServerReuseAddr(t *testing.T) {
	ctx := context.Background()
	for _, reuse := range []bool{false, true} {
		cfg := testConfig()
		cfg.Server.ReuseAddr = reuse
		srv, err := NewServer(ctx, cfg, "127.0.0.1", "0")
		require.NoError(t, err)

		v, err := srv.sock.Option(unix.SOL_SOCKET, unix.SO_REUSEADDR)
		require.NoError(t, err)
		assert.Equal(t, reuse, v != 0)
		require.NoError(t, srv.Close())
	}
}

func TestRunClientSendsLines(t *testing.T) {
	ctx := context.Background()
	peer, err := inet.ServerSocketUDP(ctx, "127.0.0.1", "0")
	require.NoError(t, err)
	defer peer.Close()
	addr, err := peer.SockName()
	require.NoError(t, err)

	var out bytes.Buffer
	in := strings.NewReader("first\nsecond\nquit\nnever sent\n")
	err = RunClient(ctx, testConfig(), "127.0.0.1", strconv.Itoa(int(addr.Port())), in, &out, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "client connected to:")

	buf := make([]byte, 64)
	for _, want := range []string{"first", "second"} {
		n, err := peer.Recv(buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf[:n]))
	}
	_, err = peer.Recv(buf, inet.RecvDontWait)
	assert.True(t, inet.IsTemporary(err))
}

func TestClearScreenWritesToOut(t *testing.T) {
	var out bytes.Buffer
	p := &linePrompt{out: &out}
	p.ClearScreen()
	assert.Equal(t, "\x1b[H\x1b[2J", out.String())
}

func TestDialFails(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1", "not-a-port-name-anywhere")
	assert.Error(t, err)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- RunServer(ctx, testConfig(), "127.0.0.1", "0", &out) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunServer did not stop")
	}
}

func TestMainUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, Main([]string{"gounix"}, nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage:")

	stderr.Reset()
	assert.Equal(t, 2, Main([]string{"gounix", "proxy"}, nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown program: proxy")

	stderr.Reset()
	assert.Equal(t, 2, Main([]string{"/usr/bin/server", "127.0.0.1"}, nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: server")

	assert.Equal(t, 0, Main([]string{"gounix", "client", "-version"}, nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "go-unix sha=unknown")
}

func TestMainClient(t *testing.T) {
	peer, err := inet.ServerSocketUDP(context.Background(), "127.0.0.1", "0")
	require.NoError(t, err)
	defer peer.Close()
	addr, err := peer.SockName()
	require.NoError(t, err)
	t.Setenv(config.LogLevelEnv, "error")

	var stdout, stderr bytes.Buffer
	target := netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), addr.Port())
	code := Main([]string{"client", target.Addr().String(), strconv.Itoa(int(target.Port()))},
		strings.NewReader("over main\n"), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())

	buf := make([]byte, 64)
	n, err := peer.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, "over main", string(buf[:n]))
}
