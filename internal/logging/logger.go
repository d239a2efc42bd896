// Package logging builds the zap logger shared by every component.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder and initial level.
type Options struct {
	Level      string
	Format     string
	Production bool
}

// Logger pairs a zap logger with the level it can be adjusted through.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New creates a logger. "json" selects the production encoder, anything else the
// console encoder.
func New(opts Options) (*Logger, error) {
	level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var config zap.Config
	if opts.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	// Add sampling to prevent log flooding in production
	if opts.Production {
		config.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	} else {
		config.Sampling = nil
	}

	logger, err := config.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, level: config.Level}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the level of the logger and every logger derived from it.
func (l *Logger) SetLevel(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.level.SetLevel(parsed)
	return nil
}

// Level returns the current level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

type ctxKey struct{}

// WithFields returns a copy of ctx whose logger adds fields.
func WithFields(ctx context.Context, logger *zap.Logger, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger.With(fields...))
}

// FromContext returns the request logger stored by WithFields, or fallback.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
