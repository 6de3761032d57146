package config

import (
	"sort"
	"strings"
)

// ProviderConfig describes one agent CLI provider
type ProviderConfig struct {
	Label           string            `json:"label"`
	CLI             []string          `json:"cli"`
	DefaultSubModel string            `json:"default"`
	SubModels       map[string]string `json:"sub_models"`
	Env             map[string]string `json:"env,omitempty"`
}

// legacyAliases are short names kept for compatibility with older configs
var legacyAliases = map[string]string{
	"opus":   "claude-opus-4-6",
	"sonnet": "claude-sonnet-4-6",
	"haiku":  "claude-haiku-4-5-20251001",
	"o4":     "claude-opus-4-6",
	"s4":     "claude-sonnet-4-6",
	"h4":     "claude-haiku-4-5-20251001",
}

// DefaultProviders returns the built-in provider table
func DefaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"claude": {
			Label:           "Claude",
			CLI:             []string{"claude", "claude.cmd"},
			DefaultSubModel: "sonnet",
			SubModels: map[string]string{
				"haiku":  "claude-haiku-4-5-20251001",
				"sonnet": "claude-sonnet-4-6",
				"opus":   "claude-opus-4-6",
			},
		},
		"codex": {
			Label:           "Codex",
			CLI:             []string{"codex", "codex.cmd"},
			DefaultSubModel: "codex",
			SubModels: map[string]string{
				"codex":      "gpt-5.3-codex",
				"codex-max":  "gpt-5.1-codex-max",
				"codex-mini": "gpt-5.1-codex-mini",
			},
		},
		"gemini": {
			Label:           "Gemini",
			CLI:             []string{"gemini", "gemini.cmd"},
			DefaultSubModel: "flash",
			SubModels: map[string]string{
				"flash": "gemini-2.5-flash",
				"pro":   "gemini-2.5-pro",
			},
		},
	}
}

// ResolveModel resolves a sub-model alias, full model id or legacy alias to
// (modelID, provider). ok is false when nothing matches.
func (c *Config) ResolveModel(name string) (modelID, provider string, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", "", false
	}

	for _, prov := range c.ProviderNames() {
		info := c.Providers[prov]
		for alias, id := range info.SubModels {
			if alias == lower || strings.ToLower(id) == lower {
				return id, prov, true
			}
		}
	}

	resolved, found := legacyAliases[lower]
	if !found {
		return "", "", false
	}
	for _, prov := range c.ProviderNames() {
		for _, id := range c.Providers[prov].SubModels {
			if id == resolved {
				return resolved, prov, true
			}
		}
	}
	return resolved, "claude", true
}

// DefaultModel returns the model id of provider's default sub-model
func (c *Config) DefaultModel(provider string) string {
	info, ok := c.Providers[provider]
	if !ok {
		return ""
	}
	return info.SubModels[info.DefaultSubModel]
}

// ProviderNames returns configured provider keys in sorted order
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
