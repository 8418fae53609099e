// Package logging provides structured logging for postflow.
// It wraps Go's log/slog package to provide JSON-formatted logs with
// tenant and post context for debugging and post-hoc analysis.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger provides structured logging with context propagation.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar // shared with child loggers
	file   *os.File
	mu     *sync.Mutex // Protects file operations
	attrs  []slog.Attr // Persistent attributes (tenant, post, command)
}

// NewLogger creates a new Logger that writes JSON-formatted logs to the file
// at path, creating parent directories as needed. If path is empty, logs are
// written to stderr.
//
// The level parameter controls which messages are logged:
//   - DEBUG: All messages
//   - INFO: Info, Warn, and Error messages
//   - WARN: Warn and Error messages
//   - ERROR: Only Error messages
func NewLogger(path string, level string) (*Logger, error) {
	var writer io.Writer
	var file *os.File

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	} else {
		writer = os.Stderr
	}

	return newLogger(writer, file, level), nil
}

// NewWriterLogger creates a Logger writing JSON lines to w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return newLogger(w, nil, level)
}

func newLogger(w io.Writer, file *os.File, level string) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(level))

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})

	return &Logger{
		logger: slog.New(handler),
		level:  lv,
		file:   file,
		mu:     &sync.Mutex{},
		attrs:  make([]slog.Attr, 0),
	}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level of this logger and every logger derived from it.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// WithTenant returns a new Logger with the tenant ID added to all log entries.
func (l *Logger) WithTenant(tenantID string) *Logger {
	return l.withAttr(slog.String("tenant_id", tenantID))
}

// WithPost returns a new Logger with the post ID added to all log entries.
func (l *Logger) WithPost(postID string) *Logger {
	return l.withAttr(slog.String("post_id", postID))
}

// WithCommand returns a new Logger tagged with the workflow command being executed.
func (l *Logger) WithCommand(command string) *Logger {
	return l.withAttr(slog.String("command", command))
}

// With returns a new Logger with arbitrary key-value attributes.
// Keys and values are provided as alternating arguments.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)

	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return l.derive(newAttrs)
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr
	return l.derive(newAttrs)
}

func (l *Logger) derive(attrs []slog.Attr) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		file:   l.file,
		mu:     l.mu,
		attrs:  attrs,
	}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level, msg, allArgs...)
}

// Close flushes and closes the log file.
// If the logger writes to stderr or a caller-provided writer, this is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.file = nil
	}
	return nil
}

// NopLogger returns a Logger that discards all log output.
// Useful for testing or when logging is disabled.
func NopLogger() *Logger {
	return newLogger(io.Discard, nil, LevelError)
}

// ParseLevel converts a string level to the corresponding constant.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return LevelDebug
	case LevelInfo:
		return LevelInfo
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
