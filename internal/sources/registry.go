package sources

import (
	"sync"

	"newsbrief/internal/news"
)

// Filter selects which descriptors List and Sources return.
type Filter int

const (
	Enabled Filter = iota
	All
)

// Registry is the process-wide catalog of source adapters. It is
// populated once at startup and read-only during a run; registration
// order is the tie-break order for dedup retention and the stable
// default for presentation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

type entry struct {
	desc Descriptor
	src  Source
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds an adapter under its descriptor name. A duplicate name
// is a configuration error, never a runtime condition.
func (r *Registry) Register(desc Descriptor, src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return &news.DuplicateSourceError{Name: desc.Name}
	}

	r.entries[desc.Name] = entry{desc: desc, src: src}
	r.order = append(r.order, desc.Name)
	return nil
}

// List returns descriptors in registration order.
func (r *Registry) List(filter Filter) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		if filter == Enabled && !e.desc.Enabled {
			continue
		}
		descs = append(descs, e.desc)
	}
	return descs
}

// Sources returns the adapters in registration order.
func (r *Registry) Sources(filter Filter) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	srcs := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		if filter == Enabled && !e.desc.Enabled {
			continue
		}
		srcs = append(srcs, e.src)
	}
	return srcs
}

// Resolve returns the adapters for the requested names, in registry
// order. Every unresolved name is reported in one UnknownSourceError;
// nothing is silently dropped. An empty request resolves to an empty
// set, which is valid and distinct from "requested sources don't
// exist".
func (r *Registry) Resolve(names []string) ([]Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requested := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		if _, ok := r.entries[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		requested[name] = true
	}

	if len(unknown) > 0 {
		return nil, &news.UnknownSourceError{Names: unknown}
	}

	srcs := make([]Source, 0, len(requested))
	for _, name := range r.order {
		if requested[name] {
			srcs = append(srcs, r.entries[name].src)
		}
	}
	return srcs, nil
}
