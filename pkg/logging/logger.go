// Package logging provides structured, leveled logging for the loader.
// Transports and middleware accept a Logger so embedding applications can
// route diagnostics wherever they like; the default writes text lines to
// stderr and a no-op logger is available for quiet operation.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// DebugLevel is for detailed wire-level diagnostics.
	DebugLevel Level = iota - 1
	// InfoLevel is for general informational messages.
	InfoLevel
	// WarnLevel is for recoverable anomalies.
	WarnLevel
	// ErrorLevel is for failures.
	ErrorLevel
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// ErrorField creates an error field.
func ErrorField(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a new logger carrying additional fields on every entry.
	WithFields(fields ...Field) Logger

	// SetLevel sets the minimum log level.
	SetLevel(level Level)
}

type textLogger struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	fields []Field
}

// New creates a logger writing text lines to output. A nil output defaults
// to stderr.
func New(output io.Writer) Logger {
	if output == nil {
		output = os.Stderr
	}
	return &textLogger{level: InfoLevel, output: output}
}

// Default returns a logger writing to stderr at InfoLevel.
func Default() Logger {
	return New(os.Stderr)
}

func (l *textLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *textLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *textLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *textLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *textLogger) WithFields(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &textLogger{level: l.level, output: l.output, fields: merged}
}

func (l *textLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *textLogger) log(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	kv := make(map[string]interface{}, len(l.fields)+len(fields))
	for _, f := range l.fields {
		kv[f.Key] = f.Value
	}
	for _, f := range fields {
		kv[f.Key] = f.Value
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", time.Now().UTC().Format(time.RFC3339), level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, kv[k])
	}
	b.WriteByte('\n')
	io.WriteString(l.output, b.String())
}

type nopLogger struct{}

// NewNop returns a logger that discards all entries.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)      {}
func (nopLogger) Info(string, ...Field)       {}
func (nopLogger) Warn(string, ...Field)       {}
func (nopLogger) Error(string, ...Field)      {}
func (n nopLogger) WithFields(...Field) Logger { return n }
func (nopLogger) SetLevel(Level)              {}
