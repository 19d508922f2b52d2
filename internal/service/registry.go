package service

import (
	"sort"
)

// Registry maps resource type names to their handlers. It is populated once
// at startup from an explicit list of handlers and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry from the given handlers. Later handlers with
// a duplicate name replace earlier ones.
func NewRegistry(handlers ...Handler) *Registry {
	m := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		m[h.Name()] = h
	}
	return &Registry{handlers: m}
}

// Lookup returns the handler for a resource type, if registered.
func (r *Registry) Lookup(service string) (Handler, bool) {
	h, ok := r.handlers[service]
	return h, ok
}

// All returns every registered handler sorted by resource type name.
func (r *Registry) All() []Handler {
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the sorted resource type names of all registered handlers.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
