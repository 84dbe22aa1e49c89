package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// LogEntry is one captured log call, with inherited fields merged in.
type LogEntry struct {
	Level   ports.Level
	Message string
	Fields  map[string]interface{}
}

// Logger captures log entries for assertions.
type Logger struct {
	sink   *logSink
	fields []ports.Field
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger creates a capturing logger.
func NewLogger() *Logger {
	return &Logger{sink: &logSink{}}
}

// Debug implements ports.Logger.
func (l *Logger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelDebug, msg, fields)
}

// Info implements ports.Logger.
func (l *Logger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelInfo, msg, fields)
}

// Warn implements ports.Logger.
func (l *Logger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelWarn, msg, fields)
}

// Error implements ports.Logger.
func (l *Logger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelError, msg, fields)
}

// With returns a logger sharing the same sink with extra fields.
func (l *Logger) With(fields ...ports.Field) ports.Logger {
	merged := make([]ports.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{sink: l.sink, fields: merged}
}

// Level implements ports.Logger.
func (l *Logger) Level() ports.Level {
	return ports.LevelDebug
}

func (l *Logger) record(level ports.Level, msg string, fields []ports.Field) {
	all := make(map[string]interface{}, len(l.fields)+len(fields))
	for _, f := range l.fields {
		all[f.Key] = f.Value
	}
	for _, f := range fields {
		all[f.Key] = f.Value
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, LogEntry{Level: level, Message: msg, Fields: all})
}

// Entries returns all captured entries.
func (l *Logger) Entries() []LogEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	out := make([]LogEntry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// AtLevel returns the entries logged at level.
func (l *Logger) AtLevel(level ports.Level) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether any message contains substr.
func (l *Logger) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Last returns the most recent entry.
func (l *Logger) Last() (LogEntry, bool) {
	entries := l.Entries()
	if len(entries) == 0 {
		return LogEntry{}, false
	}
	return entries[len(entries)-1], true
}

var _ ports.Logger = (*Logger)(nil)
