// Package agent provides the provider-agnostic agent orchestration layer.
//
// types.go - Shared types for agent communication
//
// This file contains:
// - EventKind and Event for normalized event streaming
// - FileOp for file-system side effects reported by tools
// - ResumeMode for provider session continuation support
//
// Event provides a common format that every provider adapter must convert
// its native JSONL records into. This enables one reducer to drive all
// agent CLIs regardless of their wire format.

package agent

// EventKind discriminates how an event affects engine state
type EventKind string

const (
	EventText    EventKind = "text"
	EventToolUse EventKind = "tool_use"
	EventResult  EventKind = "result"
	EventSession EventKind = "session"
	EventIgnore  EventKind = "ignore"
)

// FileOp is the file-system side effect a tool call performs
type FileOp string

const (
	FileOpNone   FileOp = ""
	FileOpWrite  FileOp = "write"
	FileOpEdit   FileOp = "edit"
	FileOpDelete FileOp = "delete"
)

// ResumeMode describes how a provider continues a prior conversation
type ResumeMode string

const (
	// ResumeSessionID passes the prior conversation id on the command line
	ResumeSessionID ResumeMode = "session_id"
	// ResumeLastOnly resumes only when the prior id is the last used session
	ResumeLastOnly ResumeMode = "last_only"
	// ResumeNone has no native resume; context is injected as prose
	ResumeNone ResumeMode = "none"
)

// Question is one disambiguation prompt raised by the agent
type Question map[string]interface{}

// Event is a single normalized unit of provider output.
// The zero value behaves like an ignore event.
type Event struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text,omitempty"`

	// Tool invocation fields
	ToolName  string                 `json:"tool_name,omitempty"`
	ToolInput map[string]interface{} `json:"tool_input,omitempty"`

	// File side effect fields
	FilePaths      []string `json:"file_paths,omitempty"`
	FileOp         FileOp   `json:"file_op,omitempty"`
	FileContent    string   `json:"file_content,omitempty"`
	IsEditDeferred bool     `json:"is_edit_deferred,omitempty"`

	// Non-empty only when the agent is blocked on the user
	Questions []Question `json:"questions,omitempty"`

	// Session and usage fields (result/session events)
	SessionID    string   `json:"session_id,omitempty"`
	TokensIn     int      `json:"tokens_in,omitempty"`
	TokensOut    int      `json:"tokens_out,omitempty"`
	TokensCached int      `json:"tokens_cached,omitempty"`
	DurationMs   int      `json:"duration_ms,omitempty"`
	CostUSD      float64  `json:"cost_usd,omitempty"`
	NumTurns     int      `json:"num_turns,omitempty"`
	IsError      bool     `json:"is_error,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// NewEvent returns an ignore event carrying the given session id
func NewEvent(sessionID string) *Event {
	return &Event{Kind: EventIgnore, SessionID: sessionID}
}

// HasFileOp reports whether the event describes a file-system side effect
func (e *Event) HasFileOp() bool {
	return len(e.FilePaths) > 0 && e.FileOp != FileOpNone
}

// HasUsage reports whether the event carries non-zero cost or input tokens
func (e *Event) HasUsage() bool {
	return e.CostUSD != 0 || e.TokensIn != 0
}

// HasTokens reports whether the event carries any token counts
func (e *Event) HasTokens() bool {
	return e.TokensIn != 0 || e.TokensOut != 0
}

// kind returns the effective kind, treating the zero value as ignore
func (e *Event) kind() EventKind {
	if e.Kind == "" {
		return EventIgnore
	}
	return e.Kind
}
