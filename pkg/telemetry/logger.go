package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger that accumulates run and scenario fields.
// Loggers are immutable; every With method returns a child.
type Logger struct {
	zlog zerolog.Logger
}

type loggerContextKey struct{}

// NewLogger builds a logger writing to cfg.Output, which is "stdout",
// "stderr" (the default) or a file path opened for appending.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %q: %w", cfg.Output, err)
	}
	return newLogger(w, cfg), nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func newLogger(w io.Writer, cfg LoggingConfig) *Logger {
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	zctx := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.EnableCaller {
		zctx = zctx.Caller()
	}
	return &Logger{zlog: zctx.Logger()}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// ParseLevel maps a configured level name to a zerolog level. Empty and
// unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext stores the logger in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger stored in ctx, or an info-level JSON
// logger on stderr.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return newLogger(os.Stderr, LoggingConfig{Level: "info", Format: "json"})
}

func (l *Logger) child(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zlog: fn(l.zlog.With()).Logger()}
}

// WithField adds one field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

// WithFields adds several fields at once.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

// WithError attaches err under the "error" key.
func (l *Logger) WithError(err error) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Err(err)
	})
}

// WithRunID tags entries with the run that produced them.
func (l *Logger) WithRunID(runID string) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Str("run_id", runID)
	})
}

// WithOperation tags entries with the engine operation.
func (l *Logger) WithOperation(op string) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Str("operation", op)
	})
}

// WithScenario tags entries with the evaluated scenario.
func (l *Logger) WithScenario(name string) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Str("scenario", name)
	})
}

// Zerolog exposes the underlying logger for packages that build events
// directly.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }
