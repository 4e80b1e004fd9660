// Package memory provides an in-process ShortcutRegistry. It backs tests and
// platforms where global accelerators are unavailable.
package memory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

type entry struct {
	accelerator domain.Accelerator
	handler     func()
}

// Registry keeps registrations in a map keyed by accelerator string.
//
// Thread-safety: This implementation is thread-safe.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string

	registers   int
	unregisters int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds an accelerator. A second registration of the same
// accelerator fails with domain.ErrShortcutTaken.
func (r *Registry) Register(accelerator domain.Accelerator, handler func()) error {
	if handler == nil {
		return fmt.Errorf("register %s: nil handler", accelerator)
	}
	key := accelerator.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("register %s: %w", key, domain.ErrShortcutTaken)
	}
	r.entries[key] = entry{accelerator: accelerator, handler: handler}
	r.order = append(r.order, key)
	r.registers++
	return nil
}

// UnregisterAll drops every registration.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]entry)
	r.order = nil
	r.unregisters++
}

// Registered returns the accelerators in registration order.
func (r *Registry) Registered() []domain.Accelerator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Accelerator, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key].accelerator)
	}
	return out
}

// Trigger simulates a key press. Returns false when nothing is bound.
func (r *Registry) Trigger(accelerator domain.Accelerator) bool {
	r.mu.RLock()
	e, ok := r.entries[accelerator.String()]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	e.handler()
	return true
}

// Has reports whether the accelerator string is registered.
func (r *Registry) Has(accelerator string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[accelerator]
	return ok
}

// Stats returns how many Register and UnregisterAll calls succeeded.
func (r *Registry) Stats() (registers, unregisters int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registers, r.unregisters
}

// Keys returns the registered accelerator strings, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := slices.Clone(r.order)
	slices.Sort(keys)
	return keys
}

var _ ports.ShortcutRegistry = (*Registry)(nil)
