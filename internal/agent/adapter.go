// Package agent provides the provider-agnostic agent orchestration layer.
//
// adapter.go - Provider adapter contract
//
// This file contains:
// - Adapter interface every agent CLI integration implements
// - CommandRequest describing one subprocess invocation
//
// Adapters are pure: they build argv and environment and translate raw
// JSONL objects into Events. Spawning, reduction and persistence belong to
// the Engine.

package agent

import "strings"

// CommandRequest contains parameters for building a subprocess invocation
type CommandRequest struct {
	CLIPath   string // Resolved executable (from Discoverer)
	Message   string // Effective prompt, context already injected
	SessionID string // Prior session id; only native-resume adapters use it
	Model     string // Model identifier, empty for the CLI default
}

// Adapter is the interface for agent CLI integrations
type Adapter interface {
	// Provider returns the provider key (claude, codex, gemini)
	Provider() string

	// ResumeMode declares how the provider continues prior conversations
	ResumeMode() ResumeMode

	// CLICandidates lists executable names to check, preferred first
	CLICandidates() []string

	// BuildCommand returns argv for the subprocess, argv[0] being req.CLIPath
	BuildCommand(req *CommandRequest) []string

	// BuildEnv extends the shared base environment with provider variables
	BuildEnv(base map[string]string) map[string]string

	// ParseEvent translates one decoded JSONL object into zero or more events
	ParseEvent(raw map[string]interface{}) []*Event
}

// Provider keys for the closed set of supported agent CLIs
const (
	ProviderClaude = "claude"
	ProviderCodex  = "codex"
	ProviderGemini = "gemini"
)

// DefaultProvider is used when no provider is active or configured
const DefaultProvider = ProviderClaude

// ProviderMarkerEnv identifies the driving provider to child processes
const ProviderMarkerEnv = "SUMONE_PROVIDER"

// AdapterConfig carries the per-provider settings every adapter accepts
type AdapterConfig struct {
	// WorkDir resolves relative tool paths and shell-delete targets
	WorkDir string
	// CLI overrides the executable candidates checked by the Discoverer
	CLI []string
	// Env is merged over the base environment
	Env map[string]string
}

// Candidates returns cfg.CLI when set, else defaults
func (cfg AdapterConfig) Candidates(defaults ...string) []string {
	if len(cfg.CLI) > 0 {
		return append([]string(nil), cfg.CLI...)
	}
	return defaults
}

// ProviderEnv copies base, marks the driving provider and applies extra
func ProviderEnv(base map[string]string, provider string, extra map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(extra)+1)
	for k, v := range base {
		env[k] = v
	}
	env[ProviderMarkerEnv] = provider
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// ResolveToolPath makes a tool-reported path absolute against workDir
func ResolveToolPath(p, workDir string) string {
	if p == "" || workDir == "" || isAbsPath(p) {
		return p
	}
	return resolvePath(p, workDir, IsWindows)
}

func isAbsPath(p string) bool {
	if IsWindows {
		return winAbs.MatchString(p)
	}
	return strings.HasPrefix(p, "/")
}
