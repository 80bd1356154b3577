// Package plugin defines the handler interface for snooze providers.
package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Handler starts or stops every resource of one kind matching a set of tag filters.
// Only a discovery failure is returned; per-resource failures are reported.
type Handler interface {
	Kind() lifecycle.Kind
	Start(ctx context.Context, filters []lifecycle.TagFilter) error
	Stop(ctx context.Context, filters []lifecycle.TagFilter) error
}

// Provider exposes the handlers of one cloud provider in one region.
type Provider interface {
	// Name returns the provider identifier (e.g., "aws")
	Name() string

	// Region returns the region the provider's clients are bound to.
	Region() string

	// Handler returns the handler for kind, if the provider supports it.
	Handler(kind lifecycle.Kind) (Handler, bool)
}

// Run dispatches action to the handler's Start or Stop.
func Run(ctx context.Context, h Handler, action lifecycle.Action, filters []lifecycle.TagFilter) error {
	if action == lifecycle.Stop {
		return h.Stop(ctx, filters)
	}
	return h.Start(ctx, filters)
}

// Registry holds the providers of the current run, keyed by name and region.
var (
	registry = make(map[string]Provider)
	mu       sync.RWMutex
)

// Key returns the registry key for p.
func Key(p Provider) string {
	return p.Name() + "/" + p.Region()
}

// Register adds a provider to the registry.
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry[Key(p)] = p
}

// All returns all registered providers ordered by key.
func All() []Provider {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	providers := make([]Provider, 0, len(keys))
	for _, k := range keys {
		providers = append(providers, registry[k])
	}
	return providers
}

// Keys returns all registered provider keys, sorted.
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all providers from the registry.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Provider)
}
