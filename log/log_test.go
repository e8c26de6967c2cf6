package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	assert.NotNil(t, Logger)
	Logger.Info("discarded", zap.Int("n", 1))
}

func TestInitLoggerLevel(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	require.NoError(t, InitLogger(Options{Level: "warn"}))
	assert.False(t, Logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zap.WarnLevel))
}

func TestInitLoggerBadLevel(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	assert.Error(t, InitLogger(Options{Level: "loud"}))
	assert.Equal(t, prev, Logger)
}
