//go:build linux

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzft/go-unix/sched"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gounix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	t.Setenv("HOME", "/home/someone")
	t.Setenv(HistFileEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultMaxEvents, cfg.Epoll.MaxEvents)
	assert.Equal(t, DefaultWaitTimeout, cfg.Epoll.WaitTimeout)
	assert.False(t, cfg.Server.ReuseAddr)
	assert.Equal(t, "/home/someone/.gounix_history", cfg.Client.HistoryFile)
	assert.Nil(t, cfg.Sched.Nice)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	path := writeConfig(t, `
log:
  level: debug
  development: true
epoll:
  max_events: 32
  wait_timeout: 250ms
server:
  reuse_addr: true
sched:
  cpus: [0, 2]
  policy: batch
  nice: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, 32, cfg.Epoll.MaxEvents)
	assert.Equal(t, 250*time.Millisecond, cfg.Epoll.WaitTimeout)
	assert.True(t, cfg.Server.ReuseAddr)
	assert.Equal(t, []int{0, 2}, cfg.Sched.CPUs)
	assert.Equal(t, "batch", cfg.Sched.Policy)
	require.NotNil(t, cfg.Sched.Nice)
	assert.Equal(t, 5, *cfg.Sched.Nice)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(LogLevelEnv, "warn")
	t.Setenv(HistFileEnv, "/dev/null")

	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Client.HistoryFile)

	t.Setenv(HistFileEnv, "/tmp/hist")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hist", cfg.Client.HistoryFile)
}

func TestValidate(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	_, err := Load(writeConfig(t, `
epoll:
  max_events: 0
  wait_timeout: -1s
sched:
  cpus: [-3]
  policy: turbo
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "epoll.max_events")
	assert.Contains(t, err.Error(), "epoll.wait_timeout")
	assert.Contains(t, err.Error(), "sched.cpus")
	assert.Contains(t, err.Error(), `sched.policy: "turbo"`)
	assert.ErrorIs(t, err, sched.ErrInvalidPolicy)

	cfg := Default()
	cfg.Sched.Policy = "SCHED_FIFO"
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "epoll: [not, a, map]"))
	assert.Error(t, err)
}
