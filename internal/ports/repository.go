// Package ports define repository interfaces for data persistence abstraction.
package ports

import (
	"github.com/flightmansam/feishin/internal/domain"
)

// SettingsRepository persists user settings read by the playback core.
//
// Thread-safety: Implementations must be thread-safe.
type SettingsRepository interface {
	// PlayerBackend returns where audio is rendered (local mpv or the web renderer).
	PlayerBackend() (domain.PlayerBackend, error)
	SavePlayerBackend(backend domain.PlayerBackend) error

	// GlobalMediaHotkeys returns whether the OS media keys are bound.
	GlobalMediaHotkeys() (bool, error)
	SaveGlobalMediaHotkeys(enabled bool) error

	// MpvPath returns the configured mpv binary; empty means look it up on PATH.
	MpvPath() (string, error)
	SaveMpvPath(path string) error

	// MpvParameters returns the user's extra mpv command line parameters.
	MpvParameters() ([]string, error)
	SaveMpvParameters(params []string) error

	// MpvProperties returns the properties applied when the player starts.
	MpvProperties() (map[string]interface{}, error)
	SaveMpvProperties(properties map[string]interface{}) error

	// TableConfig returns the persisted layout of a table, or the default layout.
	TableConfig(id domain.TableID) (domain.TableConfig, error)
	SaveTableConfig(id domain.TableID, config domain.TableConfig) error

	// Hotkeys returns the binding table, filled with defaults for missing actions.
	Hotkeys() (domain.HotkeyTable, error)
	SaveHotkeys(table domain.HotkeyTable) error
}

// QueueRepository persists the play queue across restarts.
//
// Thread-safety: Implementations must be thread-safe.
type QueueRepository interface {
	// SaveQueue persists the queue in playback order.
	SaveQueue(songs []domain.QueueSong) error

	// LoadQueue returns the saved queue, or an empty slice if none was saved.
	LoadQueue() ([]domain.QueueSong, error)

	// SaveCurrent persists the UniqueID of the current song (empty clears it).
	SaveCurrent(uniqueID string) error

	// LoadCurrent returns the saved current UniqueID, or "" if none was saved.
	LoadCurrent() (string, error)

	// SaveModes persists shuffle and repeat.
	SaveModes(shuffle bool, repeat domain.RepeatMode) error

	// LoadModes returns the saved shuffle and repeat modes.
	LoadModes() (bool, domain.RepeatMode, error)

	// Clear removes all saved queue data.
	Clear() error
}
