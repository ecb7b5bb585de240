// Package klog provides the kernel's structured logger. It wraps zap the
// way the wider example corpus does: one process-wide logger built at boot,
// passed down explicitly rather than accessed through a global.
package klog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-encoded logger sized for a constrained device: no
// sampling, no asynchronous sinks, level gated by verbose.
func New(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		DisableCaller:    true,
		DisableStacktrace: true,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "" // no wall-clock on a device with no RTC

	return cfg.Build()
}

// Nop returns a logger that discards everything, for use in tests that
// don't want boot noise.
func Nop() *zap.Logger {
	return zap.NewNop()
}
