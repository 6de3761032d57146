package agent

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/procattr"
)

// checkTimeout bounds each `<cli> --version` check
const checkTimeout = 10 * time.Second

// CheckFunc reports whether an executable is usable
type CheckFunc func(ctx context.Context, name string) bool

// Discoverer resolves and caches the executable used for each provider
type Discoverer struct {
	check CheckFunc
	cache map[string]string
	mu    sync.Mutex
}

// NewDiscoverer creates a discoverer; a nil check runs `<name> --version`
func NewDiscoverer(check CheckFunc) *Discoverer {
	if check == nil {
		check = versionCheck
	}
	return &Discoverer{
		check: check,
		cache: make(map[string]string),
	}
}

// Resolve returns the first candidate that answers --version, caching the
// result per provider. Falls back to the first candidate.
func (d *Discoverer) Resolve(ctx context.Context, provider string, candidates []string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cmd, ok := d.cache[provider]; ok {
		return cmd
	}
	if len(candidates) == 0 {
		return provider
	}

	resolved := candidates[0]
	for _, name := range candidates {
		if d.check(ctx, name) {
			resolved = name
			break
		}
	}
	d.cache[provider] = resolved
	logger.Info("Resolved %s CLI: %s", provider, resolved)
	return resolved
}

// Forget drops the cached executable for a provider
func (d *Discoverer) Forget(provider string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cache, provider)
}

func versionCheck(ctx context.Context, name string) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, "--version")
	procattr.Set(cmd)
	return cmd.Run() == nil
}
