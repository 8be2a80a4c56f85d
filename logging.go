// logging.go: Pluggable logging for the rdpipe bridge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"context"
	"sync"
)

// loggerContextKey is a custom type for context keys to avoid collisions
type loggerContextKey string

const loggerKey loggerContextKey = "logger"

// Logger defines the pluggable logging interface for the rdpipe library.
//
// The bridge runs inside a host process that already has its own logging
// setup, so rdpipe carries no logging backend of its own. Any structured
// logger (zap, logrus, zerolog, slog adapters) can be plugged in; the
// library logs every bridge state transition and failure with channel name
// and instance identity so operators can diagnose a relay after the fact.
//
// Args are key-value pairs:
//
//	logger.Info("local pipe client connected", "address", addr)
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a new logger with persistent context key-value pairs
	With(args ...any) Logger
}

// NoOpLogger provides a silent logger implementation for testing and
// minimal setups.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug implements Logger interface (no-op)
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info implements Logger interface (no-op)
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn implements Logger interface (no-op)
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error implements Logger interface (no-op)
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger interface (no-op)
func (n *NoOpLogger) With(args ...any) Logger {
	return n // Return same instance since it's stateless
}

// DefaultLogger creates a reasonable default logger for the library.
//
// Returns NoOpLogger; the host process is expected to provide its own
// Logger implementation.
func DefaultLogger() Logger {
	return NewNoOpLogger()
}

// TestLogger for testing - captures log messages
type TestLogger struct {
	mu       sync.RWMutex
	Messages []TestLogMessage
}

// TestLogMessage represents a captured log message for testing.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// NewTestLogger creates a new test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{
		Messages: make([]TestLogMessage, 0),
	}
}

func (t *TestLogger) record(level, msg string, args []any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, TestLogMessage{
		Level:   level,
		Message: msg,
		Args:    args,
	})
}

// Debug implements Logger interface (captures message)
func (t *TestLogger) Debug(msg string, args ...any) { t.record("DEBUG", msg, args) }

// Info implements Logger interface (captures message)
func (t *TestLogger) Info(msg string, args ...any) { t.record("INFO", msg, args) }

// Warn implements Logger interface (captures message)
func (t *TestLogger) Warn(msg string, args ...any) { t.record("WARN", msg, args) }

// Error implements Logger interface (captures message)
func (t *TestLogger) Error(msg string, args ...any) { t.record("ERROR", msg, args) }

// With implements Logger interface. Derived loggers share the message slice
// with their parent so a test can assert on everything a bridge logged.
func (t *TestLogger) With(args ...any) Logger {
	return &derivedTestLogger{parent: t, fields: append([]any{}, args...)}
}

// HasMessage checks if the logger captured a message with the given level and text.
func (t *TestLogger) HasMessage(level, message string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, msg := range t.Messages {
		if msg.Level == level && msg.Message == message {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = t.Messages[:0]
}

// derivedTestLogger forwards to the root TestLogger with extra fields.
type derivedTestLogger struct {
	parent *TestLogger
	fields []any
}

func (d *derivedTestLogger) log(level, msg string, args []any) {
	d.parent.record(level, msg, append(append([]any{}, d.fields...), args...))
}

func (d *derivedTestLogger) Debug(msg string, args ...any) { d.log("DEBUG", msg, args) }
func (d *derivedTestLogger) Info(msg string, args ...any)  { d.log("INFO", msg, args) }
func (d *derivedTestLogger) Warn(msg string, args ...any)  { d.log("WARN", msg, args) }
func (d *derivedTestLogger) Error(msg string, args ...any) { d.log("ERROR", msg, args) }

func (d *derivedTestLogger) With(args ...any) Logger {
	return &derivedTestLogger{parent: d.parent, fields: append(append([]any{}, d.fields...), args...)}
}

// LoggerFromContext extracts a logger from context if available.
//
// Falls back to DefaultLogger if no logger is found in the context.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}

	return DefaultLogger()
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
