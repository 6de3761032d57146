// Package state holds the process-wide mutable state shared by the chat
// front end and the agent engine.
//
// state.go - Shared state and its persistence
//
// This file contains:
// - State, guarded by a single mutex
// - Session bindings per provider with provider switching
// - Usage accounting, busy flag and message queue
// - The live subprocess handle used for cancellation
//
// Bindings and usage totals persist atomically to a JSON file so a restart
// resumes the same conversations.

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/procattr"
)

// DefaultProvider is active when nothing has been persisted
const DefaultProvider = "claude"

// ProviderStats accumulates usage for one provider
type ProviderStats struct {
	Cost      float64 `json:"cost"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
}

// Snapshot is a consistent copy of State taken under its lock
type Snapshot struct {
	Provider         string                   `json:"provider"`
	Model            string                   `json:"model,omitempty"`
	SessionID        string                   `json:"session_id,omitempty"`
	ProviderSessions map[string]string        `json:"provider_sessions"`
	ProviderStats    map[string]ProviderStats `json:"provider_stats"`
	TotalCost        float64                  `json:"total_cost"`
	LastCost         float64                  `json:"-"`
	Busy             bool                     `json:"-"`
	Queued           int                      `json:"-"`
	Running          bool                     `json:"-"`
}

// State is the shared mutable state. All fields are guarded by mu.
type State struct {
	mu sync.Mutex

	provider         string
	model            string
	sessionID        string
	providerSessions map[string]string
	providerStats    map[string]*ProviderStats
	totalCost        float64
	lastCost         float64

	busy  bool
	queue []string
	proc  *os.Process

	path string
}

// New creates empty in-memory state; path "" disables persistence
func New(path string) *State {
	return &State{
		provider:         DefaultProvider,
		providerSessions: make(map[string]string),
		providerStats:    make(map[string]*ProviderStats),
		path:             path,
	}
}

// Load reads persisted state from path. A missing file yields fresh state.
func Load(path string) (*State, error) {
	s := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	if snap.Provider != "" {
		s.provider = snap.Provider
	}
	s.model = snap.Model
	s.sessionID = snap.SessionID
	s.totalCost = snap.TotalCost
	for k, v := range snap.ProviderSessions {
		s.providerSessions[k] = v
	}
	for k, v := range snap.ProviderStats {
		stats := v
		s.providerStats[k] = &stats
	}
	return s, nil
}

// Save writes the persistent fields atomically
func (s *State) Save() error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.write(snap)
}

func (s *State) write(snap Snapshot) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}

// persist saves and logs failures; bindings are best-effort on disk
func (s *State) persist(snap Snapshot) {
	if err := s.write(snap); err != nil {
		logger.Error("Failed to save state: %v", err)
	}
}

// Snapshot returns a consistent copy of the state
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Provider:         s.provider,
		Model:            s.model,
		SessionID:        s.sessionID,
		ProviderSessions: make(map[string]string, len(s.providerSessions)),
		ProviderStats:    make(map[string]ProviderStats, len(s.providerStats)),
		TotalCost:        s.totalCost,
		LastCost:         s.lastCost,
		Busy:             s.busy,
		Queued:           len(s.queue),
		Running:          s.proc != nil,
	}
	for k, v := range s.providerSessions {
		snap.ProviderSessions[k] = v
	}
	for k, v := range s.providerStats {
		snap.ProviderStats[k] = *v
	}
	return snap
}

// Provider returns the active provider
func (s *State) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// Model returns the selected model, "" for the CLI default
func (s *State) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel selects the model for subsequent runs
func (s *State) SetModel(model string) {
	s.mu.Lock()
	s.model = model
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(snap)
}

// CurrentSessionID returns the active provider's last session id
func (s *State) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// SetSession binds id as the active provider's current session
func (s *State) SetSession(id string) {
	s.mu.Lock()
	s.sessionID = id
	if id != "" {
		s.providerSessions[s.provider] = id
	} else {
		delete(s.providerSessions, s.provider)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(snap)
}

// ProviderSession returns the session bound to provider
func (s *State) ProviderSession(provider string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if provider == s.provider {
		return s.sessionID
	}
	return s.providerSessions[provider]
}

// SwitchProvider saves the current provider's session and restores the
// target's, or starts fresh. The model selection is reset. Returns false
// when provider is already active.
func (s *State) SwitchProvider(provider string) bool {
	s.mu.Lock()
	if s.provider == provider {
		s.mu.Unlock()
		return false
	}
	if s.sessionID != "" {
		s.providerSessions[s.provider] = s.sessionID
	}
	s.provider = provider
	s.sessionID = s.providerSessions[provider]
	s.model = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return true
}

// ClearStaleSession drops sessionID wherever provider still references it
func (s *State) ClearStaleSession(provider, sessionID string) error {
	s.mu.Lock()
	if s.providerSessions[provider] == sessionID {
		delete(s.providerSessions, provider)
	}
	if s.provider == provider && s.sessionID == sessionID {
		s.sessionID = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.write(snap)
}

// RecordUsage folds one result's usage into the totals. A zero cost leaves
// the last-cost figure untouched.
func (s *State) RecordUsage(provider string, costUSD float64, tokensIn, tokensOut int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if costUSD != 0 {
		s.lastCost = costUSD
		s.totalCost += costUSD
	}
	stats, ok := s.providerStats[provider]
	if !ok {
		stats = &ProviderStats{}
		s.providerStats[provider] = stats
	}
	stats.Cost += costUSD
	stats.TokensIn += tokensIn
	stats.TokensOut += tokensOut
}

// Launch runs start under the lock and records the resulting process so a
// concurrent Cancel always sees a fully started handle
func (s *State) Launch(start func() (*os.Process, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := start()
	if err != nil {
		return err
	}
	s.proc = p
	return nil
}

// SetProcess records p as the live subprocess
func (s *State) SetProcess(p *os.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = p
}

// ClearProcess forgets p if it is still the live handle
func (s *State) ClearProcess(p *os.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == p {
		s.proc = nil
	}
}

// Cancel stops the live subprocess. graceful sends a termination request
// instead of killing; Windows always kills. Returns false when idle.
// The signal is sent under the lock so the handle cannot be cleared and its
// pid reused in between.
func (s *State) Cancel(graceful bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proc
	if p == nil {
		return false
	}

	var err error
	if graceful {
		err = procattr.Terminate(p)
	} else {
		err = procattr.Kill(p)
	}
	if err != nil {
		logger.Error("Failed to stop pid %d: %v", p.Pid, err)
		return false
	}
	return true
}

// TryBeginBusy marks the engine busy; false means a run is already active
func (s *State) TryBeginBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// EndBusy clears the busy flag
func (s *State) EndBusy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Enqueue appends a message to run once the current run finishes
func (s *State) Enqueue(message string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, message)
	return len(s.queue)
}

// BeginOrEnqueue marks the engine busy, or queues message when a run is
// already active. The check and the append share the lock so the running
// loop cannot release the flag in between. pos is 0 when began is true.
func (s *State) BeginOrEnqueue(message string) (began bool, pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		s.busy = true
		return true, 0
	}
	s.queue = append(s.queue, message)
	return false, len(s.queue)
}

// NextOrIdle pops the oldest queued message, or clears the busy flag when
// the queue is empty. Both happen under one lock, so a message enqueued by
// a caller that saw the flag set is always picked up by the running loop.
func (s *State) NextOrIdle() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.busy = false
		return "", false
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	return msg, true
}
