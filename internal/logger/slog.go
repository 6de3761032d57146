package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	slogger  *slog.Logger
	slogFile *os.File
)

// InitSlog initializes the structured logger used by the MCP server.
// Records go to stderr and the dated log file; stdout stays reserved for
// the protocol stream. If jsonOutput is true, records are JSON.
func InitSlog(logDir string, jsonOutput bool) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	var err error
	slogFile, err = os.OpenFile(filepath.Join(logDir, FileName(time.Now())), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	writer := io.MultiWriter(os.Stderr, slogFile)
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	slogger = slog.New(handler)
	slog.SetDefault(slogger)
	return nil
}

// CloseSlog closes the slog log file
func CloseSlog() error {
	if slogFile != nil {
		return slogFile.Close()
	}
	return nil
}

// Slog returns the slog.Logger instance for structured logging
func Slog() *slog.Logger {
	if slogger == nil {
		return slog.Default()
	}
	return slogger
}

// Context keys for structured logging
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyProvider  contextKey = "provider"
	ContextKeySessionID contextKey = "session_id"
)

// WithContext returns a logger carrying the request, provider and session
// fields found in ctx
func WithContext(ctx context.Context) *slog.Logger {
	l := Slog()
	for _, key := range []contextKey{ContextKeyRequestID, ContextKeyProvider, ContextKeySessionID} {
		if v := ctx.Value(key); v != nil {
			l = l.With(string(key), v)
		}
	}
	return l
}

// InfoContext logs an info message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// ErrorContext logs an error with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}

// WarnContext logs a warning with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}
