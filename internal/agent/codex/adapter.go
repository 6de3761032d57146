// Package codex provides the OpenAI Codex CLI adapter.
//
// adapter.go - Command and environment construction
//
// This file contains:
// - Adapter implementing agent.Adapter for `codex exec --json`
//
// Codex can only continue its most recent thread, so resume is last-only and
// older conversations get their context injected into the prompt.

package codex

import (
	"github.com/xmin-02/sumone/internal/agent"
)

// Adapter drives the codex CLI
type Adapter struct {
	cfg agent.AdapterConfig
}

// New creates a Codex adapter
func New(cfg agent.AdapterConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// Provider returns "codex"
func (a *Adapter) Provider() string {
	return agent.ProviderCodex
}

// ResumeMode returns agent.ResumeLastOnly
func (a *Adapter) ResumeMode() agent.ResumeMode {
	return agent.ResumeLastOnly
}

// CLICandidates returns the executables to check
func (a *Adapter) CLICandidates() []string {
	return a.cfg.Candidates("codex", "codex.cmd")
}

// BuildCommand returns the codex argv for req. The session id is not passed;
// the prompt is always the final argument.
func (a *Adapter) BuildCommand(req *agent.CommandRequest) []string {
	parts := []string{req.CLIPath, "exec", "--json", "--dangerously-bypass-approvals-and-sandbox"}
	if req.Model != "" {
		parts = append(parts, "-m", req.Model)
	}
	return append(parts, req.Message)
}

// BuildEnv adds the provider marker and configured variables to base
func (a *Adapter) BuildEnv(base map[string]string) map[string]string {
	return agent.ProviderEnv(base, agent.ProviderCodex, a.cfg.Env)
}

var _ agent.Adapter = (*Adapter)(nil)
