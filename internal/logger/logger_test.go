package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"orderbackup/internal/config"
)

func TestNewLevels(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(config.LogConfig{Level: "bogus"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Encoding: "xml"})
	require.Error(t, err)
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Component(zap.New(core), "sync").Info("run finished")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sync", entries[0].LoggerName)
	assert.Equal(t, "sync", entries[0].ContextMap()["component"])

	assert.NotPanics(t, func() { Component(nil, "cron").Info("dropped") })
}
