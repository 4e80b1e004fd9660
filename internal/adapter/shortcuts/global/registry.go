// Package global registers system-wide accelerators through the OS hotkey
// APIs (X11 on Linux, Carbon on macOS, RegisterHotKey on Windows).
package global

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

type binding struct {
	accelerator domain.Accelerator
	hk          *hotkey.Hotkey
	stop        chan struct{}
	done        chan struct{}
}

// Registry owns every accelerator it registered and releases them together.
//
// Thread-safety: This implementation is thread-safe.
type Registry struct {
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[string]*binding
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger.With(slog.String("service", "GlobalShortcuts")),
		bindings: make(map[string]*binding),
	}
}

// Register grabs the accelerator system-wide. handler runs on a goroutine
// owned by the registration.
func (r *Registry) Register(accelerator domain.Accelerator, handler func()) error {
	if handler == nil {
		return fmt.Errorf("register %s: nil handler", accelerator)
	}
	key := accelerator.String()

	mods, err := modifiersFor(accelerator)
	if err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	code, err := keyFor(accelerator.Key)
	if err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[key]; ok {
		return fmt.Errorf("register %s: %w", key, domain.ErrShortcutTaken)
	}

	hk := hotkey.New(mods, code)
	if err := hk.Register(); err != nil {
		// the OS reports a grab held by another application the same way
		return fmt.Errorf("register %s: %w: %v", key, domain.ErrShortcutTaken, err)
	}

	b := &binding{
		accelerator: accelerator,
		hk:          hk,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go b.listen(handler)

	r.bindings[key] = b
	r.order = append(r.order, key)
	r.logger.Debug("registered global shortcut", slog.String("accelerator", key))
	return nil
}

func (b *binding) listen(handler func()) {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case _, ok := <-b.hk.Keydown():
			if !ok {
				return
			}
			handler()
		}
	}
}

// UnregisterAll releases every accelerator this registry holds.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	bindings := r.bindings
	order := r.order
	r.bindings = make(map[string]*binding)
	r.order = nil
	r.mu.Unlock()

	for _, key := range order {
		b := bindings[key]
		close(b.stop)
		if err := b.hk.Unregister(); err != nil {
			r.logger.Warn("failed to unregister global shortcut", slog.String("accelerator", key), slog.Any("error", err))
		}
		<-b.done
	}
}

// Registered returns the accelerators in registration order.
func (r *Registry) Registered() []domain.Accelerator {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Accelerator, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.bindings[key].accelerator)
	}
	return out
}

var _ ports.ShortcutRegistry = (*Registry)(nil)
