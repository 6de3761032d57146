// Package bridge wires configuration, shared state and the agent engine
// into the single entry point every front end talks to.
//
// bridge.go - Front-end facing orchestration
//
// This file contains:
// - Bridge, owning the stores, the runner registry and the cleaner
// - Ask, which serializes runs through the busy flag and message queue
// - Provider and model selection, session reset and cancellation

package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xmin-02/sumone/internal/agent"
	"github.com/xmin-02/sumone/internal/agent/claude"
	"github.com/xmin-02/sumone/internal/agent/codex"
	"github.com/xmin-02/sumone/internal/agent/gemini"
	"github.com/xmin-02/sumone/internal/cleanup"
	"github.com/xmin-02/sumone/internal/config"
	"github.com/xmin-02/sumone/internal/filelog"
	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/metrics"
	"github.com/xmin-02/sumone/internal/session"
	"github.com/xmin-02/sumone/internal/state"
	"github.com/xmin-02/sumone/internal/tokens"
)

// ErrBusy is returned by Ask while another run is in flight
var ErrBusy = errors.New("agent is busy")

// BusyError reports the queue position of a message accepted while busy
type BusyError struct {
	Position int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("agent is busy; message queued at position %d", e.Position)
}

func (e *BusyError) Unwrap() error { return ErrBusy }

// DeliverFunc receives the result of a message that waited in the queue
type DeliverFunc func(message string, res *agent.Result)

// Bridge is the process-wide context of one sumone instance
type Bridge struct {
	cfg      *config.Config
	State    *state.State
	Sessions *session.Store
	Tokens   *tokens.Log
	Files    *filelog.Store
	Registry *agent.Registry

	cleaner *cleanup.Cleaner
	deliver DeliverFunc
	now     func() time.Time
}

// Options adjusts how Open wires the bridge
type Options struct {
	// Deliver enables queueing while busy; nil rejects with ErrBusy
	Deliver DeliverFunc
	// Discoverer overrides CLI discovery (tests)
	Discoverer *agent.Discoverer
	// Adapters overrides the built-in adapter set (tests)
	Adapters []agent.Adapter
	// Now overrides the clock
	Now func() time.Time
}

// Open creates the data directories and stores described by cfg
func Open(cfg *config.Config, opts Options) (*Bridge, error) {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	files, err := filelog.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open file log: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	b := &Bridge{
		cfg:      cfg,
		State:    st,
		Sessions: session.NewStore(cfg.SessionsDir()),
		Tokens:   tokens.NewLog(cfg.TokenLogPath()),
		Files:    files,
		deliver:  opts.Deliver,
		now:      now,
	}

	adapters := opts.Adapters
	if adapters == nil {
		adapters = DefaultAdapters(cfg)
	}
	b.Registry = agent.NewRegistry(agent.Deps{
		State:      st,
		Files:      files,
		Sessions:   b.Sessions,
		Usage:      b.Tokens,
		Discoverer: opts.Discoverer,
		Metrics:    metrics.Recorder{},
		Now:        now,
	}, cfg.EngineOptions(), adapters...)

	return b, nil
}

// DefaultAdapters builds the closed set of provider adapters from cfg
func DefaultAdapters(cfg *config.Config) []agent.Adapter {
	return []agent.Adapter{
		claude.New(cfg.AdapterConfig(agent.ProviderClaude)),
		codex.New(cfg.AdapterConfig(agent.ProviderCodex)),
		gemini.New(cfg.AdapterConfig(agent.ProviderGemini)),
	}
}

// Config returns the configuration the bridge was opened with
func (b *Bridge) Config() *config.Config {
	return b.cfg
}

// Close stops the cleaner and closes the file log
func (b *Bridge) Close() error {
	b.StopCleaner()
	if err := b.State.Save(); err != nil {
		logger.Error("Failed to save state on close: %v", err)
	}
	return b.Files.Close()
}

// StartCleaner starts scheduled snapshot and temp-file cleanup
func (b *Bridge) StartCleaner() error {
	if b.cleaner != nil {
		return nil
	}
	cfg := cleanup.DefaultConfig(b.cfg.DataDir)
	cfg.Schedule = b.cfg.Settings.CleanupSchedule
	cfg.SnapshotTTL = b.cfg.SnapshotTTL()

	c, err := cleanup.New(cfg, b.Files)
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	b.cleaner = c
	return nil
}

// StopCleaner stops the cleaner if it is running
func (b *Bridge) StopCleaner() {
	if b.cleaner != nil {
		b.cleaner.Stop()
		b.cleaner = nil
	}
}

// AskRequest is one user message
type AskRequest struct {
	Message string
	// Provider switches the active provider first when set
	Provider string
	// Model selects a model (alias or id) before running
	Model string
	// SessionID overrides the bound session
	SessionID string
	// NewSession starts a fresh conversation
	NewSession bool
}

// Ask runs one message on the active provider and binds the returned
// session. While a run is in flight the message is queued when a Deliver
// hook exists, otherwise rejected.
func (b *Bridge) Ask(ctx context.Context, req AskRequest, cb *agent.Callbacks) (*agent.Result, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	if b.deliver == nil {
		if !b.State.TryBeginBusy() {
			return nil, ErrBusy
		}
	} else if began, pos := b.State.BeginOrEnqueue(req.Message); !began {
		return nil, &BusyError{Position: pos}
	}
	defer b.drain(ctx, cb)

	if req.Provider != "" {
		if _, err := b.SwitchProvider(req.Provider); err != nil {
			return nil, err
		}
	}
	if req.Model != "" {
		if _, _, err := b.SelectModel(req.Model); err != nil {
			return nil, err
		}
	}
	if req.NewSession {
		b.NewSession()
	}

	return b.run(ctx, req.Message, req.SessionID, cb)
}

// drain runs queued messages until the queue is empty, then releases the
// busy flag in the same step.
func (b *Bridge) drain(ctx context.Context, cb *agent.Callbacks) {
	for {
		msg, ok := b.State.NextOrIdle()
		if !ok {
			return
		}
		res, err := b.run(ctx, msg, "", cb)
		if err != nil {
			logger.Error("Queued message failed: %v", err)
			continue
		}
		if b.deliver != nil {
			b.deliver(msg, res)
		}
	}
}

func (b *Bridge) run(ctx context.Context, message, sessionID string, cb *agent.Callbacks) (*agent.Result, error) {
	eng, err := b.Registry.Get(b.State.Provider(), cb)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = b.State.CurrentSessionID()
	}

	res := eng.Run(ctx, message, sessionID)
	if res.SessionID != "" && res.SessionID != b.State.CurrentSessionID() {
		b.State.SetSession(res.SessionID)
	}
	return res, nil
}

// SwitchProvider makes provider active, restoring its last session.
// Returns false when it already was.
func (b *Bridge) SwitchProvider(provider string) (bool, error) {
	if _, err := b.Registry.Adapter(provider); err != nil {
		return false, err
	}
	switched := b.State.SwitchProvider(provider)
	if switched {
		logger.Info("Switched provider to %s", provider)
	}
	return switched, nil
}

// SelectModel resolves name through the provider table and makes it the
// active model, switching provider when the model belongs to another one
func (b *Bridge) SelectModel(name string) (modelID, provider string, err error) {
	modelID, provider, ok := b.cfg.ResolveModel(name)
	if !ok {
		return "", "", fmt.Errorf("unknown model %q", name)
	}
	if _, err := b.SwitchProvider(provider); err != nil {
		return "", "", err
	}
	b.State.SetModel(modelID)
	logger.Info("Selected model %s (%s)", modelID, provider)
	return modelID, provider, nil
}

// NewSession forgets the active provider's session binding
func (b *Bridge) NewSession() {
	b.State.SetSession("")
}

// Cancel stops the running agent, if any
func (b *Bridge) Cancel(graceful bool) bool {
	return b.State.Cancel(graceful)
}

// Usage summarizes the token log for period. sessionID scopes the
// session period; empty means the active session.
func (b *Bridge) Usage(period tokens.Period, sessionID string) (tokens.Totals, map[string]tokens.Totals, error) {
	records, err := b.Tokens.ReadAll()
	if err != nil {
		return tokens.Totals{}, nil, err
	}
	if sessionID == "" {
		sessionID = b.State.CurrentSessionID()
	}
	filtered := tokens.Filter(records, period, b.now(), sessionID)
	return tokens.Sum(filtered), tokens.ByProvider(filtered), nil
}
