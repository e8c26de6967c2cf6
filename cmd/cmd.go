//go:build linux

// Package cmd holds the demo server and client built on the wrappers.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fzft/go-unix/config"
	"github.com/fzft/go-unix/log"
	"github.com/fzft/go-unix/signals"
)

// Main runs the program named by args[0] ("server" or "client"), or by
// args[1] when the binary has another name, and returns the exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	prog, rest := filepath.Base(args[0]), args[1:]
	if prog != "server" && prog != "client" {
		if len(rest) == 0 {
			fmt.Fprintf(stderr, "usage: %s server|client [-config file] <address or name> <port>\n", prog)
			return 2
		}
		prog, rest = rest[0], rest[1:]
	}
	if prog != "server" && prog != "client" {
		fmt.Fprintf(stderr, "unknown program: %s\n", prog)
		return 2
	}

	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, Version())
		return 0
	}
	if fs.NArg() < 2 {
		fmt.Fprintf(stderr, "usage: %s [-config file] <address or name> <port>\n", prog)
		return 2
	}
	host, service := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := log.InitLogger(log.Options{Level: cfg.Log.Level, Development: cfg.Log.Development}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := signals.HandleInterrupt(func(signals.Signal) { cancel() }); err != nil {
		return 1
	}

	switch prog {
	case "server":
		err = RunServer(ctx, cfg, host, service, stdout)
	case "client":
		err = RunClient(ctx, cfg, host, service, stdin, stdout, isInteractive(stdin))
	}
	if err != nil {
		log.Logger.Error(prog+" failed", zap.Error(err))
		return 1
	}
	return 0
}

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func multiClose(cs ...io.Closer) error {
	var err error
	for _, c := range cs {
		err = multierr.Append(err, c.Close())
	}
	return err
}
