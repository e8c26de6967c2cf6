//go:build linux

package main

import (
	"os"

	"github.com/fzft/go-unix/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
