// Package options resolves dynamic field option lists through providers
// registered by name, so schema files can reference an option source
// without naming code.
package options

import (
	"context"
	"sort"
	"sync"

	"github.com/trestlehq/trestle/internal/errs"
)

// Source produces the current option list for one provider name.
type Source func(ctx context.Context) ([]string, error)

// Registry maps provider names to option sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register installs or replaces the source for name.
func (r *Registry) Register(name string, src Source) {
	if name == "" || src == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = src
}

// Static registers a fixed option list under name.
func (r *Registry) Static(name string, options ...string) {
	fixed := append([]string(nil), options...)
	r.Register(name, func(context.Context) ([]string, error) {
		return append([]string(nil), fixed...), nil
	})
}

// Names returns the registered provider names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for name := range r.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the options produced by the named source. An unregistered
// name is a NotFoundError carrying the registered names.
func (r *Registry) Resolve(ctx context.Context, name string) ([]string, error) {
	r.mu.RLock()
	src, ok := r.sources[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.NewNotFound("options provider", name, r.Names())
	}
	return src(ctx)
}
