// Package agent provides the provider-agnostic agent orchestration layer.
//
// registry.go - Adapter registry and engine cache
//
// This file contains:
// - Registry, which owns the adapter table and one cached Engine per provider
// - Engine rebuild rules (callback identity change, options change)
//
// The Registry is an explicit value passed to callers. The CLI discovery
// cache lives here too, so rebuilding an engine never re-scans executables.

package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider keys to adapters and caches an engine per provider
type Registry struct {
	adapters map[string]Adapter
	deps     Deps
	opts     Options

	mu      sync.Mutex
	engines map[string]*registryEntry
}

type registryEntry struct {
	engine *Engine
	cb     *Callbacks
}

// NewRegistry creates a registry over the given adapters. A nil
// deps.Discoverer is replaced with a shared default.
func NewRegistry(deps Deps, opts Options, adapters ...Adapter) *Registry {
	if deps.Discoverer == nil {
		deps.Discoverer = NewDiscoverer(nil)
	}
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
		deps:     deps,
		opts:     opts,
		engines:  make(map[string]*registryEntry),
	}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Providers returns the registered provider keys in sorted order
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Adapter returns the adapter registered for provider
func (r *Registry) Adapter(provider string) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return a, nil
}

// Get returns the engine for provider bound to cb. A provider's cached
// engine is reused while its callback sink (by identity) is unchanged.
// An empty provider selects DefaultProvider.
func (r *Registry) Get(provider string, cb *Callbacks) (*Engine, error) {
	if provider == "" {
		provider = DefaultProvider
	}
	adapter, err := r.Adapter(provider)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[provider]; ok && e.cb == cb {
		return e.engine, nil
	}
	eng := NewEngine(adapter, cb, r.deps, r.opts)
	r.engines[provider] = &registryEntry{engine: eng, cb: cb}
	return eng, nil
}

// Invalidate drops every cached engine; the next Get rebuilds
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines = make(map[string]*registryEntry)
}

// Reset drops the cached engines and forgets every resolved CLI path
func (r *Registry) Reset() {
	r.Invalidate()
	for name := range r.adapters {
		r.deps.Discoverer.Forget(name)
	}
}

// SetOptions replaces engine options and invalidates the cached engines
func (r *Registry) SetOptions(opts Options) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
	r.Invalidate()
}

// Discoverer returns the registry's shared CLI discovery cache
func (r *Registry) Discoverer() *Discoverer {
	return r.deps.Discoverer
}
