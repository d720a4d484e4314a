package connectors

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// Factory builds a provider on demand so that providers with external
// clients (docker) are only constructed when selected.
type Factory func() (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Build constructs the named providers in order.
func (r *Registry) Build(names ...string) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(names))
	for _, n := range names {
		f, ok := r.factories[n]
		if !ok {
			return nil, errors.WithHintf(errors.Newf("unknown provider %q", n), "known providers: %v", r.namesLocked())
		}
		p, err := f()
		if err != nil {
			return nil, errors.Wrapf(err, "build provider %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
