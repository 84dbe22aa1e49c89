package logging

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// ConsoleLogger writes structured entries to a terminal or pipe through
// charmbracelet/log. It is safe for concurrent use.
type ConsoleLogger struct {
	base  *log.Logger
	level ports.Level
}

type consoleOptions struct {
	out         io.Writer
	level       ports.Level
	json        bool
	includeTime bool
	prefix      string
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*consoleOptions)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(o *consoleOptions) {
		o.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(o *consoleOptions) {
		o.level = level
	}
}

// WithJSONFormat switches from logfmt-style text to one JSON object per line.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(o *consoleOptions) {
		o.json = enabled
	}
}

// WithTimestamp includes a timestamp in log entries.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(o *consoleOptions) {
		o.includeTime = enabled
	}
}

// WithPrefix sets a prefix printed before every message.
func WithPrefix(prefix string) ConsoleLoggerOption {
	return func(o *consoleOptions) {
		o.prefix = prefix
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	o := consoleOptions{
		out:         os.Stderr,
		level:       ports.LevelInfo,
		includeTime: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	formatter := log.TextFormatter
	if o.json {
		formatter = log.JSONFormatter
	}

	base := log.NewWithOptions(o.out, log.Options{
		Prefix:          o.prefix,
		ReportTimestamp: o.includeTime,
		TimeFormat:      "15:04:05",
		Level:           toCharmLevel(o.level),
		Formatter:       formatter,
	})

	return &ConsoleLogger{base: base, level: o.level}
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.base.Debug(msg, keyvals(fields)...)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.base.Info(msg, keyvals(fields)...)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.base.Warn(msg, keyvals(fields)...)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.base.Error(msg, keyvals(fields)...)
}

// With returns a new logger with additional fields.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	return &ConsoleLogger{
		base:  l.base.With(keyvals(fields)...),
		level: l.level,
	}
}

// Level returns the minimum log level.
func (l *ConsoleLogger) Level() ports.Level {
	return l.level
}

func keyvals(fields []ports.Field) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

func toCharmLevel(level ports.Level) log.Level {
	switch level {
	case ports.LevelDebug:
		return log.DebugLevel
	case ports.LevelWarn:
		return log.WarnLevel
	case ports.LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Ensure ConsoleLogger implements Logger.
var _ ports.Logger = (*ConsoleLogger)(nil)
