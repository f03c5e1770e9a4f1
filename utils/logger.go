package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging throughout the application. It keeps a
// printf-style call surface on top of a zerolog logger so call sites stay
// short while output remains structured.
type Logger struct {
	zl zerolog.Logger
}

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	Level  string // trace, debug, info, warn, error
	Format string // json or console
	Output io.Writer
}

// NewLogger creates a Logger writing console output to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{Level: "info", Format: "console", Output: os.Stdout})
}

// NewLoggerWithOptions creates a Logger from explicit options. Unknown levels
// fall back to info.
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	return &Logger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// NopLogger discards everything. Used by tests.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that adds key=value to every entry.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Str(key, fmt.Sprint(value)).Logger()}
}

// Zerolog exposes the underlying logger for callers that want typed fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
