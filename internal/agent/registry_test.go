package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type namedAdapter struct {
	scriptAdapter
	name string
}

func (a *namedAdapter) Provider() string { return a.name }

func newTestRegistry() *Registry {
	return NewRegistry(Deps{}, Options{},
		&namedAdapter{name: ProviderGemini},
		&namedAdapter{name: ProviderClaude},
		&namedAdapter{name: ProviderCodex},
	)
}

func TestRegistry_Providers(t *testing.T) {
	r := newTestRegistry()
	want := []string{"claude", "codex", "gemini"}
	if got := r.Providers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Providers() = %v, want %v", got, want)
	}
	if _, err := r.Adapter("nope"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Adapter(nope) error = %v, want ErrUnknownProvider", err)
	}
	if r.Discoverer() == nil {
		t.Error("Discoverer() = nil")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := newTestRegistry()
	cb1 := &Callbacks{}
	cb2 := &Callbacks{}

	e1, err := r.Get("", cb1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if e1.Provider() != DefaultProvider {
		t.Errorf("empty provider resolved to %q", e1.Provider())
	}

	tests := []struct {
		name     string
		provider string
		cb       *Callbacks
		same     bool
	}{
		{"same provider and sink reuses", "claude", cb1, true},
		{"equal but distinct sink rebuilds", "claude", cb2, false},
		{"provider change rebuilds", "codex", cb2, false},
	}

	prev := e1
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := r.Get(tt.provider, tt.cb)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if (e == prev) != tt.same {
				t.Errorf("reused = %v, want %v", e == prev, tt.same)
			}
			if e.Callbacks() != tt.cb {
				t.Error("engine bound to the wrong sink")
			}
			prev = e
		})
	}

	if _, err := r.Get("nope", cb1); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Get(nope) error = %v", err)
	}
}

func TestRegistry_EnginePerProvider(t *testing.T) {
	r := newTestRegistry()
	cb := &Callbacks{}

	claude, _ := r.Get("claude", cb)
	codex, _ := r.Get("codex", cb)
	if claude == codex {
		t.Fatal("providers should not share an engine")
	}

	tests := []struct {
		provider string
		want     *Engine
	}{
		{"claude", claude},
		{"codex", codex},
		{"claude", claude},
	}
	for _, tt := range tests {
		if e, _ := r.Get(tt.provider, cb); e != tt.want {
			t.Errorf("Get(%s) rebuilt the engine after a provider switch", tt.provider)
		}
	}

	// A new sink replaces only that provider's entry
	other := &Callbacks{}
	if e, _ := r.Get("claude", other); e == claude {
		t.Error("Get() with a new sink should rebuild")
	}
	if e, _ := r.Get("codex", cb); e != codex {
		t.Error("codex engine should survive a claude rebuild")
	}

	r.Invalidate()
	if e, _ := r.Get("codex", cb); e == codex {
		t.Error("Invalidate() should drop every provider's engine")
	}
}

func TestRegistry_Invalidation(t *testing.T) {
	r := newTestRegistry()
	cb := &Callbacks{}
	e1, _ := r.Get("gemini", cb)

	r.Invalidate()
	e2, _ := r.Get("gemini", cb)
	if e1 == e2 {
		t.Error("Invalidate() kept the cached engine")
	}

	r.SetOptions(Options{IntermediateThreshold: 99})
	e3, _ := r.Get("gemini", cb)
	if e3 == e2 || e3.opts.IntermediateThreshold != 99 {
		t.Error("SetOptions() did not rebuild with the new options")
	}

	lookups := 0
	r = NewRegistry(Deps{Discoverer: NewDiscoverer(func(ctxArg context.Context, name string) bool {
		lookups++
		return true
	})}, Options{}, &namedAdapter{name: ProviderClaude})
	r.Discoverer().Resolve(context.Background(), ProviderClaude, []string{"claude"})
	r.Reset()
	r.Discoverer().Resolve(context.Background(), ProviderClaude, []string{"claude"})
	if lookups != 2 {
		t.Errorf("lookups = %d, want Reset() to forget the resolved CLI", lookups)
	}
}
