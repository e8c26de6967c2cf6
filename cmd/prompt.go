//go:build linux

package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/fzft/go-unix/log"
)

// lineReader hands the client one input line at a time. io.EOF ends input.
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

// linePrompt is the interactive reader, a liner editor with a history file.
type linePrompt struct {
	*liner.State
	prompt      string
	historyFile string
	out         io.Writer
}

func newLinePrompt(prompt, historyFile string, out io.Writer) *linePrompt {
	p := &linePrompt{State: liner.NewLiner(), prompt: prompt, historyFile: historyFile, out: out}
	p.SetCtrlCAborts(true)
	if historyFile != "" {
		if err := p.HistoryLoad(historyFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Logger.Warn("load history", zap.String("file", historyFile), zap.Error(err))
		}
	}
	return p
}

func (p *linePrompt) HistoryLoad(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = p.ReadHistory(bytes.NewReader(content))
	return err
}

func (p *linePrompt) HistorySave(path string) error {
	var buf bytes.Buffer
	if _, err := p.WriteHistory(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (p *linePrompt) ClearScreen() {
	fmt.Fprint(p.out, "\x1b[H\x1b[2J")
}

func (p *linePrompt) ReadLine() (string, error) {
	for {
		line, err := p.Prompt(p.prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		p.AppendHistory(line)
		if line == "clear" {
			p.ClearScreen()
			continue
		}
		return line, nil
	}
}

func (p *linePrompt) Close() error {
	var err error
	if p.historyFile != "" {
		err = p.HistorySave(p.historyFile)
	}
	if cerr := p.State.Close(); err == nil {
		err = cerr
	}
	return err
}

// scanReader reads lines from a pipe or file.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	return &scanReader{sc: bufio.NewScanner(r)}
}

func (s *scanReader) ReadLine() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) Close() error { return nil }
