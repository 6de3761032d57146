// Package gemini provides the Gemini CLI adapter.
//
// adapter.go - Command and environment construction
//
// This file contains:
// - Adapter implementing agent.Adapter for `gemini -o stream-json`
//
// Gemini has no resume flag in headless mode; prior conversations are
// replayed into the prompt by the engine.

package gemini

import (
	"github.com/xmin-02/sumone/internal/agent"
)

// Adapter drives the gemini CLI
type Adapter struct {
	cfg agent.AdapterConfig
}

// New creates a Gemini adapter
func New(cfg agent.AdapterConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// Provider returns "gemini"
func (a *Adapter) Provider() string {
	return agent.ProviderGemini
}

// ResumeMode returns agent.ResumeNone
func (a *Adapter) ResumeMode() agent.ResumeMode {
	return agent.ResumeNone
}

// CLICandidates returns the executables to check
func (a *Adapter) CLICandidates() []string {
	return a.cfg.Candidates("gemini", "gemini.cmd")
}

// BuildCommand returns the gemini argv for req
func (a *Adapter) BuildCommand(req *agent.CommandRequest) []string {
	parts := []string{req.CLIPath, "-p", req.Message, "-o", "stream-json", "--approval-mode", "yolo"}
	if req.Model != "" {
		parts = append(parts, "-m", req.Model)
	}
	return parts
}

// BuildEnv adds the provider marker and configured variables to base
func (a *Adapter) BuildEnv(base map[string]string) map[string]string {
	return agent.ProviderEnv(base, agent.ProviderGemini, a.cfg.Env)
}

var _ agent.Adapter = (*Adapter)(nil)
