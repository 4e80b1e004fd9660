package ports

import (
	"github.com/flightmansam/feishin/internal/domain"
)

// ShortcutRegistry is the OS-level accelerator registry.
// At most one handler is registered per accelerator.
type ShortcutRegistry interface {
	// Register binds an accelerator to a handler.
	// Returns domain.ErrShortcutTaken if the accelerator is already registered.
	Register(accelerator domain.Accelerator, handler func()) error

	// UnregisterAll releases every registration made through this registry.
	UnregisterAll()

	// Registered returns the currently registered accelerators.
	Registered() []domain.Accelerator
}

// MediaKeySession is the OS media-key surface (MPRIS on Linux).
type MediaKeySession interface {
	// Enable binds the media keys; each key press calls handler with its action.
	Enable(handler func(action domain.BindingAction)) error

	// Disable releases the media keys. Safe to call when not enabled.
	Disable() error

	// Enabled reports whether the media keys are currently bound.
	Enabled() bool

	// UpdatePlayback mirrors the player state and current song to the OS.
	UpdatePlayback(state domain.PlayerState, song domain.QueueSong)
}

// Notifier shows short user-facing messages (toasts).
// Only user-initiated failures are reported through it.
type Notifier interface {
	Notify(title, message string) error
}
