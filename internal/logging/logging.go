// Package logging builds the zap loggers used by the proxy.
package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/scriptpoint/internal/config"
)

// ErrStdoutReserved is returned when stdout is chosen as the log output
// while stdout carries the DAP stream.
var ErrStdoutReserved = errors.New("log output stdout is reserved for the DAP stream in stdio mode")

type options struct {
	stdio bool
}

// Option configures New.
type Option func(*options)

// WithStdio marks stdout as owned by the protocol.
func WithStdio() Option {
	return func(o *options) {
		o.stdio = true
	}
}

// Logger is a zap logger with a level that can be changed while running.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// New builds a logger from the log section of the configuration.
func New(cfg config.LogConfig, opts ...Option) (*Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.stdio && cfg.Output == "stdout" {
		return nil, ErrStdoutReserved
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch cfg.Format {
	case "json":
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zc := zap.Config{
		Level:            atom,
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{cfg.Output},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return &Logger{Logger: logger, Level: atom}, nil
}

// SetLevel parses name and applies it to the running logger.
func (l *Logger) SetLevel(name string) error {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	l.Level.SetLevel(level)
	return nil
}
