package mcp

import (
	"fmt"
	"sync"
	"time"
)

// DefaultEventLogSize bounds how many run events are kept for replay
const DefaultEventLogSize = 500

// RunEvent is one progress notification from a run. Index increases
// monotonically across runs so a client can resume after a disconnect.
type RunEvent struct {
	Index          int       `json:"index"`
	Timestamp      time.Time `json:"timestamp"`
	Type           string    `json:"type"`
	Text           string    `json:"text,omitempty"`
	Label          string    `json:"label,omitempty"`
	ElapsedSeconds int       `json:"elapsed_seconds,omitempty"`
	CostUSD        float64   `json:"cost_usd,omitempty"`
	TokensIn       int       `json:"tokens_in,omitempty"`
	TokensOut      int       `json:"tokens_out,omitempty"`
}

// EventLog is a bounded ring of run events. Once full, the oldest event is
// dropped and startIndex moves forward.
type EventLog struct {
	mu         sync.RWMutex
	events     []RunEvent
	maxSize    int
	startIndex int
	dropped    int64
}

// NewEventLog creates a log keeping at most maxSize events
func NewEventLog(maxSize int) *EventLog {
	if maxSize <= 0 {
		maxSize = DefaultEventLogSize
	}
	return &EventLog{
		events:  make([]RunEvent, 0, maxSize),
		maxSize: maxSize,
	}
}

// Append stamps ev with the next index and the current time, then stores it
func (l *EventLog) Append(ev RunEvent) RunEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Index = l.startIndex + len(l.events)
	ev.Timestamp = time.Now()
	if len(l.events) >= l.maxSize {
		l.events = l.events[1:]
		l.startIndex++
		l.dropped++
	}
	l.events = append(l.events, ev)
	return ev
}

// After returns the events with an index greater than index. -1 returns
// everything still buffered. Asking for a range that was already dropped
// is an error so the client knows it missed events.
func (l *EventLog) After(index int) ([]RunEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < -1 {
		return nil, fmt.Errorf("invalid event index %d", index)
	}
	if index != -1 && index < l.startIndex-1 {
		return nil, fmt.Errorf("events before index %d have been dropped (oldest available: %d)", index, l.startIndex)
	}

	start := 0
	if index != -1 {
		start = index - l.startIndex + 1
	}
	if start >= len(l.events) {
		return []RunEvent{}, nil
	}
	out := make([]RunEvent, len(l.events)-start)
	copy(out, l.events[start:])
	return out, nil
}

// LastIndex returns the newest event's index, or -1 when empty
func (l *EventLog) LastIndex() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.startIndex + len(l.events) - 1
}

// Dropped counts events lost to overflow
func (l *EventLog) Dropped() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}
