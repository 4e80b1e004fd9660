// Package ports define interfaces for dependency inversion.
// These interfaces keep the services independent of mpv, fyne and the OS shell.
package ports

import (
	"context"

	"github.com/flightmansam/feishin/internal/domain"
)

// PlayerStatusKind identifies a notification from the player process.
type PlayerStatusKind int

const (
	// StatusProperty reports an observed property change (Property, Value)
	StatusProperty PlayerStatusKind = iota
	// StatusResumed reports that playback resumed
	StatusResumed
	// StatusPaused reports that playback paused
	StatusPaused
	// StatusStopped reports that playback stopped or the player went idle
	StatusStopped
	// StatusTimePosition reports the playback position (Seconds)
	StatusTimePosition
)

// String returns the notification name.
func (k PlayerStatusKind) String() string {
	switch k {
	case StatusProperty:
		return "status"
	case StatusResumed:
		return "resumed"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	case StatusTimePosition:
		return "timeposition"
	default:
		return "unknown"
	}
}

// PlayerStatus is one notification from the player process.
type PlayerStatus struct {
	Kind     PlayerStatusKind
	Property string
	Value    interface{}
	Seconds  float64
}

// PlayerStatusHandler receives player notifications.
// Handlers are called from a single goroutine in emission order.
type PlayerStatusHandler func(status PlayerStatus)

// PlayerProcess is a handle to one external media player process.
//
// Thread-safety: implementations must be safe for concurrent use.
type PlayerProcess interface {
	// Start launches the process and returns once its control channel is ready.
	Start(ctx context.Context) error

	// Quit terminates the process and returns only after it has exited.
	Quit(ctx context.Context) error

	// Running reports whether the process is alive and controllable.
	Running() bool

	// Done is closed when the process has terminated for good.
	Done() <-chan struct{}

	// Playback control
	Play() error
	Pause() error
	TogglePause() error
	Stop() error
	Next() error
	Previous() error

	// Seek moves the playback position by offset seconds.
	Seek(offset float64) error

	// SetProperty sets a single player property.
	SetProperty(key string, value interface{}) error

	// SetMultipleProperties sets several properties in one call.
	SetMultipleProperties(properties map[string]interface{}) error

	// SetQueue replaces the player's playlist with the current and next song.
	SetQueue(data *domain.PlayerCommandData) error

	// SetQueueNext replaces every playlist entry after the current one with the next song.
	SetQueueNext(data *domain.PlayerCommandData) error

	// Subscribe registers a handler for status notifications.
	Subscribe(handler PlayerStatusHandler)
}

// PlayerFactory builds a player process handle that has not been started yet.
type PlayerFactory func(parameters []string, options domain.ProcessOptions) PlayerProcess
