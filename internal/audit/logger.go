package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Operation represents the type of auditable operation
type Operation string

const (
	OpProviderSwitch Operation = "provider.switch"
	OpModelSelect    Operation = "model.select"
	OpSessionNew     Operation = "session.new"
	OpSessionDelete  Operation = "session.delete"
	OpRunCancel      Operation = "run.cancel"
	OpFilesClear     Operation = "files.clear"
)

// Event represents an audit log entry
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Operation Operation              `json:"operation"`
	Provider  string                 `json:"provider,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Logger handles audit logging
type Logger struct {
	logger  *slog.Logger
	enabled bool
	mu      sync.RWMutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default audit logger. It writes to stderr because
// stdout carries the MCP stdio transport.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stderr, true)
	})
	return defaultLogger
}

// New creates an audit logger writing JSON lines to w
func New(w io.Writer, enabled bool) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{
		logger:  slog.New(handler),
		enabled: enabled,
	}
}

// SetEnabled enables or disables audit logging
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Log records an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	l.mu.RUnlock()

	if !enabled {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		slog.String("audit", "true"),
		slog.String("operation", string(event.Operation)),
		slog.Bool("success", event.Success),
	}
	if event.Provider != "" {
		attrs = append(attrs, slog.String("provider", event.Provider))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	if event.Details != nil {
		detailsJSON, _ := json.Marshal(event.Details)
		attrs = append(attrs, slog.String("details", string(detailsJSON)))
	}

	l.logger.Info("AUDIT", attrs...)
}

// Record logs op as a success when err is nil, otherwise as a failure
func (l *Logger) Record(op Operation, provider, sessionID, requestID string, err error) {
	event := &Event{
		Operation: op,
		Provider:  provider,
		SessionID: sessionID,
		RequestID: requestID,
		Success:   err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// Record logs to the default logger
func Record(op Operation, provider, sessionID, requestID string, err error) {
	Default().Record(op, provider, sessionID, requestID, err)
}
