package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json"})
	assert.Error(t, err)

	log, err := New(Config{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, log.Level())
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestSetLevelPropagates(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	child := log.WithComponent("api").WithRequestID("req-1")
	assert.False(t, child.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, log.SetLevel("debug"))
	assert.True(t, child.Core().Enabled(zapcore.DebugLevel))
	assert.Equal(t, zapcore.DebugLevel, child.Level())

	assert.Error(t, log.SetLevel("chatty"))
}
