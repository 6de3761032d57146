// Package claude provides the Claude Code CLI adapter.
//
// adapter.go - Command and environment construction
//
// This file contains:
// - Adapter implementing agent.Adapter for the claude executable
// - argv construction with native session resume
//
// Claude resumes conversations natively with -r <session id> and streams
// JSONL records with --output-format stream-json --verbose.

package claude

import (
	"github.com/xmin-02/sumone/internal/agent"
)

// BotMarkerEnv tells Claude it is being driven by a chat bridge
const BotMarkerEnv = "CLAUDE_TELEGRAM_BOT"

// Adapter drives the claude CLI
type Adapter struct {
	cfg agent.AdapterConfig
}

// New creates a Claude adapter
func New(cfg agent.AdapterConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// Provider returns "claude"
func (a *Adapter) Provider() string {
	return agent.ProviderClaude
}

// ResumeMode returns agent.ResumeSessionID
func (a *Adapter) ResumeMode() agent.ResumeMode {
	return agent.ResumeSessionID
}

// CLICandidates returns the executables to check
func (a *Adapter) CLICandidates() []string {
	return a.cfg.Candidates("claude", "claude.cmd")
}

// BuildCommand returns the claude argv for req
func (a *Adapter) BuildCommand(req *agent.CommandRequest) []string {
	parts := []string{req.CLIPath}

	// Session continuation
	if req.SessionID != "" {
		parts = append(parts, "-r", req.SessionID)
	}

	parts = append(parts,
		"-p", req.Message,
		"--output-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
	)

	if req.Model != "" {
		parts = append(parts, "--model", req.Model)
	}
	return parts
}

// BuildEnv adds the bot marker and configured variables to base
func (a *Adapter) BuildEnv(base map[string]string) map[string]string {
	env := agent.ProviderEnv(base, agent.ProviderClaude, a.cfg.Env)
	env[BotMarkerEnv] = "1"
	return env
}

var _ agent.Adapter = (*Adapter)(nil)
