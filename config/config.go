//go:build linux

// Package config loads the settings of the demo server and client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/fzft/go-unix/sched"
)

const (
	LogLevelEnv        = "GOUNIX_LOG_LEVEL"
	HistFileEnv        = "GOUNIX_HISTFILE"
	HistFileDefault    = ".gounix_history"
	DefaultMaxEvents   = 10
	DefaultWaitTimeout = 500 * time.Millisecond
)

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Epoll  EpollConfig  `yaml:"epoll"`
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Sched  SchedConfig  `yaml:"sched"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type EpollConfig struct {
	MaxEvents   int           `yaml:"max_events"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

type ServerConfig struct {
	// ReuseAddr sets SO_REUSEADDR on the server socket before bind.
	ReuseAddr bool `yaml:"reuse_addr"`
}

type ClientConfig struct {
	// HistoryFile is where the line editor keeps its history. Empty disables it.
	HistoryFile string `yaml:"history_file"`
}

type SchedConfig struct {
	CPUs     []int  `yaml:"cpus"`
	Policy   string `yaml:"policy"`
	Priority int    `yaml:"priority"`
	// Nice is applied only when set.
	Nice *int `yaml:"nice"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Epoll:  EpollConfig{MaxEvents: DefaultMaxEvents, WaitTimeout: DefaultWaitTimeout},
		Client: ClientConfig{HistoryFile: dotfilePath(HistFileEnv, HistFileDefault)},
	}
}

// Load reads a YAML file over the defaults and applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if lvl := os.Getenv(LogLevelEnv); lvl != "" {
		c.Log.Level = lvl
	}
	if _, ok := os.LookupEnv(HistFileEnv); ok {
		c.Client.HistoryFile = dotfilePath(HistFileEnv, HistFileDefault)
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Epoll.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("epoll.max_events must be positive, got %d", c.Epoll.MaxEvents))
	}
	if c.Epoll.WaitTimeout < 0 {
		errs = append(errs, fmt.Errorf("epoll.wait_timeout must not be negative, got %s", c.Epoll.WaitTimeout))
	}
	if p := c.Sched.Policy; p != "" {
		if _, err := sched.ParsePolicy(p); err != nil {
			errs = append(errs, fmt.Errorf("sched.policy: %w", err))
		}
	}
	for _, cpu := range c.Sched.CPUs {
		if cpu < 0 {
			errs = append(errs, fmt.Errorf("sched.cpus: negative cpu %d", cpu))
		}
	}
	return multierr.Combine(errs...)
}

// dotfilePath returns the file named by envOverride, or dotFilename under
// $HOME. "/dev/null" in the environment disables the file.
func dotfilePath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, dotFilename)
	}
	return ""
}
