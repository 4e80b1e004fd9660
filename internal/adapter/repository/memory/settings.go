// Package memory provides repository implementations backed by Fyne preferences.
package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

const (
	keyPlayerBackend      = "settings.player_backend"
	keyGlobalMediaHotkeys = "settings.global_media_hotkeys"
	keyMpvPath            = "settings.mpv_path"
	keyMpvParameters      = "settings.mpv_parameters"
	keyMpvProperties      = "settings.mpv_properties"
	keyHotkeys            = "settings.hotkeys"
	keyTablePrefix        = "settings.table."
)

// SettingsRepository implements ports.SettingsRepository using Fyne preferences.
// Fyne stores preferences in the OS app data directory for the app id.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SettingsRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSettingsRepository creates a new settings repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewSettingsRepository(prefs fyne.Preferences) *SettingsRepository {
	return &SettingsRepository{prefs: prefs}
}

// PlayerBackend returns the playback backend, local mpv by default.
func (r *SettingsRepository) PlayerBackend() (domain.PlayerBackend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend := domain.PlayerBackend(r.prefs.StringWithFallback(keyPlayerBackend, string(domain.BackendLocal)))
	switch backend {
	case domain.BackendLocal, domain.BackendWeb:
		return backend, nil
	default:
		return domain.BackendLocal, domain.NewValidationError("playerBackend", backend, "unknown backend")
	}
}

// SavePlayerBackend persists the playback backend.
func (r *SettingsRepository) SavePlayerBackend(backend domain.PlayerBackend) error {
	if backend != domain.BackendLocal && backend != domain.BackendWeb {
		return domain.NewValidationError("playerBackend", backend, "unknown backend")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs.SetString(keyPlayerBackend, string(backend))
	return nil
}

// GlobalMediaHotkeys returns whether the media keys are bound. Defaults to true.
func (r *SettingsRepository) GlobalMediaHotkeys() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefs.BoolWithFallback(keyGlobalMediaHotkeys, true), nil
}

// SaveGlobalMediaHotkeys persists the media-key toggle.
func (r *SettingsRepository) SaveGlobalMediaHotkeys(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs.SetBool(keyGlobalMediaHotkeys, enabled)
	return nil
}

// MpvPath returns the configured mpv binary, or "".
func (r *SettingsRepository) MpvPath() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefs.String(keyMpvPath), nil
}

// SaveMpvPath persists the mpv binary path.
func (r *SettingsRepository) SaveMpvPath(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs.SetString(keyMpvPath, path)
	return nil
}

// MpvParameters returns the user's extra mpv parameters.
func (r *SettingsRepository) MpvParameters() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var params []string
	if err := r.loadJSON(keyMpvParameters, &params); err != nil {
		return nil, domain.NewRepositoryError("load", "settings", "failed to unmarshal mpv parameters", err)
	}
	if params == nil {
		params = []string{}
	}
	return params, nil
}

// SaveMpvParameters persists the extra mpv parameters.
func (r *SettingsRepository) SaveMpvParameters(params []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveJSON(keyMpvParameters, params); err != nil {
		return domain.NewRepositoryError("save", "settings", "failed to marshal mpv parameters", err)
	}
	return nil
}

// MpvProperties returns the properties applied at player start.
// JSON numbers come back as float64.
func (r *SettingsRepository) MpvProperties() (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	props := map[string]interface{}{}
	if err := r.loadJSON(keyMpvProperties, &props); err != nil {
		return nil, domain.NewRepositoryError("load", "settings", "failed to unmarshal mpv properties", err)
	}
	return props, nil
}

// SaveMpvProperties persists the start-up mpv properties.
func (r *SettingsRepository) SaveMpvProperties(properties map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveJSON(keyMpvProperties, properties); err != nil {
		return domain.NewRepositoryError("save", "settings", "failed to marshal mpv properties", err)
	}
	return nil
}

// TableConfig returns the layout of a table, falling back to the queue default.
func (r *SettingsRepository) TableConfig(id domain.TableID) (domain.TableConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg := domain.DefaultQueueTableConfig()
	if err := r.loadJSON(keyTablePrefix+string(id), &cfg); err != nil {
		return domain.DefaultQueueTableConfig(), domain.NewRepositoryError("load", "settings",
			fmt.Sprintf("failed to unmarshal table config %q", id), err)
	}
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = domain.DefaultRowHeight
	}
	return cfg, nil
}

// SaveTableConfig persists the layout of a table.
func (r *SettingsRepository) SaveTableConfig(id domain.TableID, config domain.TableConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveJSON(keyTablePrefix+string(id), config); err != nil {
		return domain.NewRepositoryError("save", "settings",
			fmt.Sprintf("failed to marshal table config %q", id), err)
	}
	return nil
}

// Hotkeys returns the binding table. Missing actions get their default
// binding and unknown actions are dropped.
func (r *SettingsRepository) Hotkeys() (domain.HotkeyTable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table := domain.DefaultHotkeyTable()
	stored := domain.HotkeyTable{}
	if err := r.loadJSON(keyHotkeys, &stored); err != nil {
		return table, domain.NewRepositoryError("load", "settings", "failed to unmarshal hotkeys", err)
	}
	for action, binding := range stored {
		if action.Valid() {
			table[action] = binding
		}
	}
	return table, nil
}

// SaveHotkeys persists the binding table.
func (r *SettingsRepository) SaveHotkeys(table domain.HotkeyTable) error {
	for action, binding := range table {
		if !action.Valid() {
			return domain.NewValidationError("hotkeys", action, "unknown action")
		}
		if binding.IsGlobal && !binding.AllowGlobal {
			return domain.NewValidationError("hotkeys."+string(action), binding.Hotkey, "action cannot be global")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveJSON(keyHotkeys, table); err != nil {
		return domain.NewRepositoryError("save", "settings", "failed to marshal hotkeys", err)
	}
	return nil
}

// Clear removes every setting managed by this repository.
func (r *SettingsRepository) Clear(tables ...domain.TableID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range []string{keyPlayerBackend, keyGlobalMediaHotkeys, keyMpvPath, keyMpvParameters, keyMpvProperties, keyHotkeys} {
		r.prefs.RemoveValue(key)
	}
	for _, id := range tables {
		r.prefs.RemoveValue(keyTablePrefix + string(id))
	}
}

// loadJSON leaves v untouched when the key is unset. Callers hold mu.
func (r *SettingsRepository) loadJSON(key string, v interface{}) error {
	data := r.prefs.String(key)
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

// saveJSON callers hold mu.
func (r *SettingsRepository) saveJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.prefs.SetString(key, string(data))
	return nil
}

var _ ports.SettingsRepository = (*SettingsRepository)(nil)
