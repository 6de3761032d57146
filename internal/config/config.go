// Package config loads sumone.jsonc, the bridge's single configuration file.
//
// config.go - Configuration model, discovery and defaults
//
// This file contains:
// - Config with settings, providers and tool labels
// - FindConfigPath precedence and Load/LoadAll
// - Conversions into agent engine and adapter settings

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xmin-02/sumone/internal/agent"
)

// FileName is the configuration file looked up in each candidate directory
const FileName = "sumone.jsonc"

// HomeEnv overrides the sumone home directory
const HomeEnv = "SUMONE_HOME"

// MCPTokenEnv supplies the MCP bearer token when the file has none
const MCPTokenEnv = "SUMONE_MCP_TOKEN"

// Config is the parsed sumone.jsonc
type Config struct {
	WorkDir    string                    `json:"work_dir"`
	DataDir    string                    `json:"data_dir"`
	Settings   Settings                  `json:"settings"`
	Providers  map[string]ProviderConfig `json:"providers"`
	ToolLabels map[string]string         `json:"tool_labels"`

	// ConfigDir is the directory the file was loaded from, "" for defaults
	ConfigDir string `json:"-"`
}

// Settings are the user-tunable behaviors
type Settings struct {
	ShowStatus             *bool  `json:"show_status"`
	ShowTyping             *bool  `json:"show_typing"`
	StatusIntervalSeconds  int    `json:"status_interval_seconds"`
	TypingIntervalSeconds  int    `json:"typing_interval_seconds"`
	IntermediateThreshold  int    `json:"intermediate_threshold"`
	WaitTimeoutSeconds     int    `json:"wait_timeout_seconds"`
	SnapshotTTLDays        int    `json:"snapshot_ttl_days"`
	CleanupSchedule        string `json:"cleanup_schedule"`
	DefaultModel           string `json:"default_model"`
	DefaultSubModel        string `json:"default_sub_model"`
	MetricsAddress         string `json:"metrics_address"`
	MCPAddress             string `json:"mcp_address"`
	MCPToken               string `json:"mcp_token"`
	ContextExchanges       int    `json:"context_exchanges"`
	ContextOutputCharLimit int    `json:"context_output_limit"`
}

// FindConfigPath returns the path to sumone.jsonc using precedence:
// 1. configDir + /sumone.jsonc (if configDir specified)
// 2. $SUMONE_HOME/config/sumone.jsonc
// 3. ./config/sumone.jsonc (project-local)
// 4. ~/.sumone/config/sumone.jsonc (user global)
func FindConfigPath(configDir string) (string, error) {
	if configDir != "" {
		path := filepath.Join(configDir, FileName)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s not found in %s", FileName, configDir)
		}
		return absPath(path), nil
	}

	var candidates []string
	if home := os.Getenv(HomeEnv); home != "" {
		candidates = append(candidates, filepath.Join(home, "config", FileName))
	}
	candidates = append(candidates, filepath.Join("config", FileName))
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".sumone", "config", FileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return absPath(path), nil
		}
	}

	return "", fmt.Errorf("%s not found; tried: %v", FileName, candidates)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Load parses the configuration file at path and applies defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(StripJSONComments(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.ConfigDir = filepath.Dir(path)

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadAll finds and loads the configuration. A missing file is not an
// error when configDir is empty: built-in defaults are returned instead.
func LoadAll(configDir string) (*Config, error) {
	path, err := FindConfigPath(configDir)
	if err != nil {
		if configDir != "" {
			return nil, err
		}
		return Default(), nil
	}
	return Load(path)
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.WorkDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.WorkDir = home
		}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	s := &cfg.Settings
	if s.ShowStatus == nil {
		s.ShowStatus = boolPtr(true)
	}
	if s.ShowTyping == nil {
		s.ShowTyping = boolPtr(true)
	}
	if s.StatusIntervalSeconds <= 0 {
		s.StatusIntervalSeconds = 5
	}
	if s.TypingIntervalSeconds <= 0 {
		s.TypingIntervalSeconds = 5
	}
	if s.IntermediateThreshold <= 0 {
		s.IntermediateThreshold = agent.DefaultIntermediateThreshold
	}
	if s.WaitTimeoutSeconds <= 0 {
		s.WaitTimeoutSeconds = 10
	}
	if s.SnapshotTTLDays <= 0 {
		s.SnapshotTTLDays = 7
	}
	if s.CleanupSchedule == "" {
		s.CleanupSchedule = "@hourly"
	}
	if s.DefaultModel == "" {
		s.DefaultModel = agent.DefaultProvider
	}
	if s.DefaultSubModel == "" {
		s.DefaultSubModel = "sonnet"
	}
	if s.ContextExchanges <= 0 {
		s.ContextExchanges = agent.DefaultContextExchanges
	}
	if s.ContextOutputCharLimit <= 0 {
		s.ContextOutputCharLimit = agent.DefaultContextOutputLimit
	}
	if s.MCPAddress == "" {
		s.MCPAddress = "127.0.0.1:8765"
	}
	if s.MCPToken == "" {
		s.MCPToken = os.Getenv(MCPTokenEnv)
	}

	// Configured providers override built-ins field by field
	defaults := DefaultProviders()
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	for name, def := range defaults {
		p, ok := cfg.Providers[name]
		if !ok {
			cfg.Providers[name] = def
			continue
		}
		if p.Label == "" {
			p.Label = def.Label
		}
		if len(p.CLI) == 0 {
			p.CLI = def.CLI
		}
		if len(p.SubModels) == 0 {
			p.SubModels = def.SubModels
		}
		if p.DefaultSubModel == "" {
			p.DefaultSubModel = def.DefaultSubModel
		}
		cfg.Providers[name] = p
	}

	if cfg.ToolLabels == nil {
		cfg.ToolLabels = make(map[string]string)
	}
	for tool, label := range agent.DefaultToolLabels {
		if _, ok := cfg.ToolLabels[tool]; !ok {
			cfg.ToolLabels[tool] = label
		}
	}
}

func defaultDataDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, "data")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".sumone")
	}
	return ".sumone"
}

func boolPtr(b bool) *bool { return &b }

// EngineOptions converts settings into engine options
func (c *Config) EngineOptions() agent.Options {
	s := c.Settings
	return agent.Options{
		WorkDir:               c.WorkDir,
		ShowStatus:            s.ShowStatus != nil && *s.ShowStatus,
		StatusInterval:        time.Duration(s.StatusIntervalSeconds) * time.Second,
		TypingInterval:        time.Duration(s.TypingIntervalSeconds) * time.Second,
		IntermediateThreshold: s.IntermediateThreshold,
		WaitTimeout:           time.Duration(s.WaitTimeoutSeconds) * time.Second,
		ContextExchanges:      s.ContextExchanges,
		ContextOutputLimit:    s.ContextOutputCharLimit,
		ToolLabels:            c.ToolLabels,
	}
}

// AdapterConfig returns the adapter settings for provider
func (c *Config) AdapterConfig(provider string) agent.AdapterConfig {
	p := c.Providers[provider]
	return agent.AdapterConfig{
		WorkDir: c.WorkDir,
		CLI:     p.CLI,
		Env:     p.Env,
	}
}

// SnapshotTTL returns the snapshot retention period
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Settings.SnapshotTTLDays) * 24 * time.Hour
}

// ShowTyping reports whether typing pulses are enabled
func (c *Config) ShowTyping() bool {
	return c.Settings.ShowTyping != nil && *c.Settings.ShowTyping
}

// Data directory layout

// StatePath is where shared state is persisted
func (c *Config) StatePath() string { return filepath.Join(c.DataDir, "state.json") }

// SessionsDir holds per-session summaries
func (c *Config) SessionsDir() string { return filepath.Join(c.DataDir, "sessions") }

// TokenLogPath is the JSONL token usage log
func (c *Config) TokenLogPath() string { return filepath.Join(c.DataDir, "token_log.jsonl") }

// LogDir holds dated log files
func (c *Config) LogDir() string { return filepath.Join(c.DataDir, "logs") }
