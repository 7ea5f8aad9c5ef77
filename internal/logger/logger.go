// Package logger provides the levelled logger used by every component of the server.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Logger is the logging interface accepted by the server components.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogLevel represents the logging level
type LogLevel int

const (
	// LogLevelDebug enables all log messages
	LogLevelDebug LogLevel = iota
	// LogLevelInfo enables info and error messages
	LogLevelInfo
	// LogLevelError enables only error messages
	LogLevelError
	// LogLevelNone disables all logging
	LogLevelNone
)

// String returns the canonical name of the level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelError:
		return "error"
	case LogLevelNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseLogLevel converts a string log level to LogLevel. Unknown values map to info.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "error":
		return LogLevelError
	case "none":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}

// ValidLogLevel reports whether level names one of the known levels.
func ValidLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "error", "none":
		return true
	}
	return false
}

// StandardLogger implements Logger on top of the standard log package.
// Each level writes to its own stream; fields are appended as [k=v ...].
type StandardLogger struct {
	logError *log.Logger
	logInfo  *log.Logger
	logDebug *log.Logger
	fields   map[string]interface{}
	level    LogLevel
	mu       sync.RWMutex
}

// New creates a StandardLogger writing every level to out.
func New(level string, out io.Writer) *StandardLogger {
	return NewStandardLogger(level, out, out, out)
}

// NewStandardLogger creates a StandardLogger with per-level outputs. Nil outputs discard.
func NewStandardLogger(level string, errorOutput, infoOutput, debugOutput io.Writer) *StandardLogger {
	if errorOutput == nil {
		errorOutput = io.Discard
	}
	if infoOutput == nil {
		infoOutput = io.Discard
	}
	if debugOutput == nil {
		debugOutput = io.Discard
	}

	return &StandardLogger{
		logError: log.New(errorOutput, "ERROR: ", log.Ldate|log.Ltime),
		logInfo:  log.New(infoOutput, "INFO: ", log.Ldate|log.Ltime),
		logDebug: log.New(debugOutput, "DEBUG: ", log.Ldate|log.Ltime),
		fields:   make(map[string]interface{}),
		level:    ParseLogLevel(level),
	}
}

// Default returns a logger writing info and debug to stdout and errors to stderr.
func Default(level string) *StandardLogger {
	return NewStandardLogger(level, os.Stderr, os.Stdout, os.Stdout)
}

// Debug logs a debug message
func (l *StandardLogger) Debug(msg string) {
	l.output(LogLevelDebug, l.logDebug, msg)
}

// Debugf logs a formatted debug message
func (l *StandardLogger) Debugf(format string, args ...interface{}) {
	if l.level <= LogLevelDebug {
		l.output(LogLevelDebug, l.logDebug, fmt.Sprintf(format, args...))
	}
}

// Info logs an info message
func (l *StandardLogger) Info(msg string) {
	l.output(LogLevelInfo, l.logInfo, msg)
}

// Infof logs a formatted info message
func (l *StandardLogger) Infof(format string, args ...interface{}) {
	if l.level <= LogLevelInfo {
		l.output(LogLevelInfo, l.logInfo, fmt.Sprintf(format, args...))
	}
}

// Error logs an error message
func (l *StandardLogger) Error(msg string) {
	l.output(LogLevelError, l.logError, msg)
}

// Errorf logs a formatted error message
func (l *StandardLogger) Errorf(format string, args ...interface{}) {
	if l.level <= LogLevelError {
		l.output(LogLevelError, l.logError, fmt.Sprintf(format, args...))
	}
}

func (l *StandardLogger) output(level LogLevel, target *log.Logger, msg string) {
	if l.level > level {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	target.Print(l.formatWithFields(msg))
}

// WithField returns a new logger with an additional field
func (l *StandardLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a new logger with additional fields
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	child := &StandardLogger{
		logError: l.logError,
		logInfo:  l.logInfo,
		logDebug: l.logDebug,
		fields:   make(map[string]interface{}, len(l.fields)+len(fields)),
		level:    l.level,
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// formatWithFields appends fields sorted by key so output is stable.
func (l *StandardLogger) formatWithFields(msg string) string {
	if len(l.fields) == 0 {
		return msg
	}

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, l.fields[k]))
	}
	return fmt.Sprintf("%s [%s]", msg, strings.Join(pairs, " "))
}

// NoOpLogger discards all output.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string)                          {}
func (n *NoOpLogger) Debugf(format string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string)                           {}
func (n *NoOpLogger) Infof(format string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string)                          {}
func (n *NoOpLogger) Errorf(format string, args ...interface{}) {}

// WithField returns the same NoOpLogger
func (n *NoOpLogger) WithField(key string, value interface{}) Logger {
	return n
}

// WithFields returns the same NoOpLogger
func (n *NoOpLogger) WithFields(fields map[string]interface{}) Logger {
	return n
}

var (
	noOp     *NoOpLogger
	noOpOnce sync.Once
)

// GetNoOpLogger returns the shared no-op logger instance.
func GetNoOpLogger() Logger {
	noOpOnce.Do(func() {
		noOp = &NoOpLogger{}
	})
	return noOp
}
