package search

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Registry holds the search types taking part in workspace search. It is
// populated at startup and frozen before serving; once frozen, reads take no
// lock.
type Registry struct {
	mu     sync.RWMutex
	frozen atomic.Bool
	types  map[string]SearchableItemType
	order  []SearchableItemType
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]SearchableItemType)}
}

// Register adds t. Type names are unique.
func (r *Registry) Register(t SearchableItemType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return fmt.Errorf("registering %s: %w", t.Type(), ErrRegistryFrozen)
	}

	if _, exists := r.types[t.Type()]; exists {
		return fmt.Errorf("search type %s: %w", t.Type(), ErrTypeAlreadyRegistered)
	}
	r.types[t.Type()] = t
	r.order = append(r.order, t)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(t SearchableItemType) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// All returns the registered types in registration order.
func (r *Registry) All() []SearchableItemType {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	out := make([]SearchableItemType, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the type registered under name.
func (r *Registry) Get(name string) (SearchableItemType, error) {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("search type %s: %w", name, ErrTypeNotFound)
	}
	return t, nil
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	return len(r.order)
}
