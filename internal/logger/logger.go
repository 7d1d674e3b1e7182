package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"orderbackup/internal/config"
)

const serviceName = "orderbackup"

// New builds the process logger. Every entry carries the service name, and
// timestamps are ISO8601 so sync runs can be lined up with upstream logs.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields:     map[string]any{"service": serviceName},
	}
	if encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}

	return zc.Build()
}

// Component returns a child logger for one part of the engine
// ("sync", "failed_orders", ...). A nil base yields a no-op logger.
func Component(base *zap.Logger, name string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(name).With(zap.String("component", name))
}
