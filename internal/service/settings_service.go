package service

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// SettingsService is the write path for user settings. Changes made on the
// user's behalf are announced on the bus so the bindings and the player
// follow them; failures of those changes are shown as toasts. Background
// writes such as column layout are only logged.
type SettingsService struct {
	logger   *slog.Logger
	repo     ports.SettingsRepository
	bus      ports.EventBus
	notifier ports.Notifier
}

// NewSettingsService creates a settings service. notifier may be nil.
func NewSettingsService(repo ports.SettingsRepository, bus ports.EventBus, notifier ports.Notifier, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		logger:   logger.With(slog.String("service", "SettingsService")),
		repo:     repo,
		bus:      bus,
		notifier: notifier,
	}
}

// PlayerBackend returns the configured backend, local when unreadable.
func (s *SettingsService) PlayerBackend() domain.PlayerBackend {
	backend, err := s.repo.PlayerBackend()
	if err != nil {
		s.logger.Warn("failed to read player backend", slog.Any("error", err))
		return domain.BackendLocal
	}
	return backend
}

// SetPlayerBackend persists the backend.
func (s *SettingsService) SetPlayerBackend(backend domain.PlayerBackend) error {
	if backend != domain.BackendLocal && backend != domain.BackendWeb {
		return domain.NewValidationError("playerBackend", backend, "must be local or web")
	}
	if err := s.repo.SavePlayerBackend(backend); err != nil {
		return s.userFailure("SetPlayerBackend", "Could not save player backend", err)
	}
	return nil
}

// GlobalMediaHotkeys reports whether the OS media keys should be bound.
func (s *SettingsService) GlobalMediaHotkeys() bool {
	enabled, err := s.repo.GlobalMediaHotkeys()
	if err != nil {
		s.logger.Warn("failed to read media key setting", slog.Any("error", err))
		return true
	}
	return enabled
}

// SetGlobalMediaHotkeys persists the toggle and re-applies the bindings.
func (s *SettingsService) SetGlobalMediaHotkeys(enabled bool) error {
	if err := s.repo.SaveGlobalMediaHotkeys(enabled); err != nil {
		return s.userFailure("SetGlobalMediaHotkeys", "Could not save media key setting", err)
	}
	s.bus.Publish(domain.NewMediaKeysToggledEvent(enabled))
	return nil
}

// Hotkeys returns the binding table, defaults when unreadable.
func (s *SettingsService) Hotkeys() domain.HotkeyTable {
	table, err := s.repo.Hotkeys()
	if err != nil {
		s.logger.Warn("failed to read hotkeys", slog.Any("error", err))
		return domain.DefaultHotkeyTable()
	}
	return table
}

// SetHotkey changes one binding and re-applies the table.
func (s *SettingsService) SetHotkey(action domain.BindingAction, binding domain.HotkeyBinding) error {
	if !action.Valid() {
		return domain.NewValidationError("action", action, "unknown action")
	}
	table := s.Hotkeys()
	binding.AllowGlobal = table[action].AllowGlobal
	table[action] = binding
	return s.SaveHotkeys(table)
}

// SaveHotkeys validates and persists the whole table, then re-applies it.
func (s *SettingsService) SaveHotkeys(table domain.HotkeyTable) error {
	for action, binding := range table {
		if binding.Hotkey == "" {
			continue
		}
		if _, err := domain.ParseHotkey(binding.Hotkey); err != nil {
			return domain.NewValidationError(string(action), binding.Hotkey, err.Error())
		}
	}
	if err := s.repo.SaveHotkeys(table); err != nil {
		return s.userFailure("SaveHotkeys", "Could not save hotkeys", err)
	}
	s.bus.Publish(domain.NewHotkeysChangedEvent(table))
	return nil
}

// MpvSettings returns the binary path, extra parameters and properties.
func (s *SettingsService) MpvSettings() (string, []string, map[string]interface{}) {
	path, err := s.repo.MpvPath()
	if err != nil {
		s.logger.Warn("failed to read mpv path", slog.Any("error", err))
	}
	params, err := s.repo.MpvParameters()
	if err != nil {
		s.logger.Warn("failed to read mpv parameters", slog.Any("error", err))
	}
	props, err := s.repo.MpvProperties()
	if err != nil || props == nil {
		props = map[string]interface{}{}
	}
	return path, params, props
}

// SaveMpvSettings persists the mpv settings and asks for a player restart
// with them.
func (s *SettingsService) SaveMpvSettings(path string, params []string, props map[string]interface{}) error {
	if err := s.repo.SaveMpvPath(path); err != nil {
		return s.userFailure("SaveMpvSettings", "Could not save mpv path", err)
	}
	if err := s.repo.SaveMpvParameters(params); err != nil {
		return s.userFailure("SaveMpvSettings", "Could not save mpv parameters", err)
	}
	if err := s.repo.SaveMpvProperties(props); err != nil {
		return s.userFailure("SaveMpvSettings", "Could not save mpv properties", err)
	}
	s.bus.Publish(domain.NewPlayerRestartEvent(slices.Clone(params), maps.Clone(props)))
	return nil
}

// TableConfig returns the layout of a table, defaults when unreadable.
func (s *SettingsService) TableConfig(id domain.TableID) domain.TableConfig {
	cfg, err := s.repo.TableConfig(id)
	if err != nil {
		s.logger.Warn("failed to read table config", slog.String("table", string(id)), slog.Any("error", err))
		return domain.DefaultQueueTableConfig()
	}
	return cfg
}

// SaveTableColumns stores the column order. Widths are kept only when the
// table does not auto-fit; an auto-fit table keeps its previous widths.
func (s *SettingsService) SaveTableColumns(id domain.TableID, columns []domain.TableColumn) error {
	cfg := s.TableConfig(id)

	out := make([]domain.TableColumn, len(columns))
	for i, col := range columns {
		out[i] = col
		if cfg.AutoFit {
			out[i].Width = widthOf(cfg.Columns, col.Column)
		}
	}
	cfg.Columns = out

	if err := s.repo.SaveTableConfig(id, cfg); err != nil {
		s.logger.Warn("failed to save table columns", slog.String("table", string(id)), slog.Any("error", err))
		return err
	}
	return nil
}

// UpdateTableConfig applies fn to the stored layout and saves the result.
func (s *SettingsService) UpdateTableConfig(id domain.TableID, fn func(*domain.TableConfig)) error {
	cfg := s.TableConfig(id)
	fn(&cfg)
	if err := s.repo.SaveTableConfig(id, cfg); err != nil {
		return s.userFailure("UpdateTableConfig", "Could not save table settings", err)
	}
	return nil
}

func (s *SettingsService) userFailure(op, title string, err error) error {
	s.logger.Error("settings save failed", slog.String("op", op), slog.Any("error", err))
	if s.notifier != nil {
		if nerr := s.notifier.Notify(title, err.Error()); nerr != nil {
			s.logger.Debug("notification failed", slog.Any("error", nerr))
		}
	}
	return domain.NewServiceError("SettingsService", op, title, err)
}

func widthOf(columns []domain.TableColumn, name string) float32 {
	for _, c := range columns {
		if c.Column == name {
			return c.Width
		}
	}
	return 0
}
