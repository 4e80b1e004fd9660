package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// HotkeyService keeps the OS shortcut registry and the media-key surface in
// line with the binding table. Every apply starts from an empty registry, so
// applying the same table twice leaves the same registrations.
type HotkeyService struct {
	logger   *slog.Logger
	registry ports.ShortcutRegistry
	media    ports.MediaKeySession // nil when the platform has none
	settings ports.SettingsRepository
	bus      ports.EventBus

	mu      sync.RWMutex
	table   domain.HotkeyTable
	state   domain.PlayerState
	current domain.QueueSong

	subs []domain.SubscriptionID
}

// NewHotkeyService creates the binding layer and subscribes it to settings
// changes. Call ApplyBindings once at startup.
func NewHotkeyService(
	registry ports.ShortcutRegistry,
	media ports.MediaKeySession,
	settings ports.SettingsRepository,
	bus ports.EventBus,
	logger *slog.Logger,
) *HotkeyService {
	s := &HotkeyService{
		logger:   logger.With(slog.String("service", "HotkeyService")),
		registry: registry,
		media:    media,
		settings: settings,
		bus:      bus,
		table:    domain.DefaultHotkeyTable(),
	}

	s.subs = append(s.subs,
		bus.Subscribe(domain.EventHotkeysChanged, s.onHotkeysChanged),
		bus.Subscribe(domain.EventMediaKeysToggled, s.onMediaKeysToggled),
		bus.Subscribe(domain.EventPlayerState, s.onPlayerState),
		bus.Subscribe(domain.EventCurrentSongChanged, s.onCurrentSongChanged),
	)
	return s
}

// ApplyBindings clears every OS registration, registers the global non-empty
// bindings of table and then binds or releases the media keys according to
// the settings toggle. Bindings that fail to parse or register are skipped;
// their errors are joined into the result.
func (s *HotkeyService) ApplyBindings(table domain.HotkeyTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = cloneTable(table)
	s.registry.UnregisterAll()

	var errs []error
	for _, action := range domain.AllBindingActions {
		binding, ok := table[action]
		if !ok || !binding.IsGlobal || binding.Hotkey == "" {
			continue
		}

		accel, err := domain.ParseHotkey(binding.Hotkey)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
			continue
		}
		event, ok := domain.EventForAction(action)
		if !ok {
			continue
		}
		if err := s.registry.Register(accel, s.dispatch(event)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
			continue
		}
		s.logger.Debug("registered global hotkey", slog.String("action", string(action)), slog.String("accelerator", accel.String()))
	}

	if err := s.applyMediaKeysLocked(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("some hotkeys could not be bound", slog.Any("error", err))
		return err
	}
	return nil
}

func (s *HotkeyService) applyMediaKeysLocked() error {
	if s.media == nil {
		return nil
	}

	enabled, err := s.settings.GlobalMediaHotkeys()
	if err != nil {
		s.logger.Warn("failed to read media key setting", slog.Any("error", err))
		enabled = true
	}

	if s.media.Enabled() {
		if err := s.media.Disable(); err != nil {
			s.logger.Warn("failed to release media keys", slog.Any("error", err))
		}
	}
	if !enabled {
		return nil
	}

	if err := s.media.Enable(s.onMediaKey); err != nil {
		if errors.Is(err, domain.ErrMediaKeysUnsupported) {
			s.logger.Debug("media keys unsupported on this platform")
			return nil
		}
		return fmt.Errorf("media keys: %w", err)
	}
	s.media.UpdatePlayback(s.state, s.current)
	return nil
}

// Bindings returns the table last applied.
func (s *HotkeyService) Bindings() domain.HotkeyTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTable(s.table)
}

// LocalBindings returns the non-global bindings of the applied table, keyed by
// accelerator, for shortcuts that only work while the window has focus.
func (s *HotkeyService) LocalBindings() map[string]domain.EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.EventType)
	for _, action := range domain.AllBindingActions {
		binding, ok := s.table[action]
		if !ok || binding.IsGlobal || binding.Hotkey == "" {
			continue
		}
		accel, err := domain.ParseHotkey(binding.Hotkey)
		if err != nil {
			continue
		}
		if event, ok := domain.EventForAction(action); ok {
			out[accel.String()] = event
		}
	}
	return out
}

// Shutdown unsubscribes and releases every OS registration.
func (s *HotkeyService) Shutdown() error {
	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.UnregisterAll()
	if s.media != nil && s.media.Enabled() {
		return s.media.Disable()
	}
	return nil
}

func (s *HotkeyService) dispatch(event domain.EventType) func() {
	return func() {
		s.bus.Publish(domain.NewCommandEvent(event))
	}
}

func (s *HotkeyService) onMediaKey(action domain.BindingAction) {
	event, ok := domain.EventForAction(action)
	if !ok {
		s.logger.Warn("unknown media key action", slog.String("action", string(action)))
		return
	}
	s.bus.Publish(domain.NewCommandEvent(event))
}

func (s *HotkeyService) onHotkeysChanged(event domain.Event) {
	if e, ok := event.(domain.HotkeysChangedEvent); ok {
		_ = s.ApplyBindings(e.Table)
	}
}

func (s *HotkeyService) onMediaKeysToggled(domain.Event) {
	_ = s.ApplyBindings(s.Bindings())
}

func (s *HotkeyService) onPlayerState(event domain.Event) {
	e, ok := event.(domain.PlayerStateEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.state = e.New
	song := s.current
	s.mu.Unlock()
	s.updateMedia(e.New, song)
}

func (s *HotkeyService) onCurrentSongChanged(event domain.Event) {
	e, ok := event.(domain.CurrentSongChangedEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.current = e.Current
	state := s.state
	s.mu.Unlock()
	s.updateMedia(state, e.Current)
}

func (s *HotkeyService) updateMedia(state domain.PlayerState, song domain.QueueSong) {
	if s.media != nil && s.media.Enabled() {
		s.media.UpdatePlayback(state, song)
	}
}

func cloneTable(table domain.HotkeyTable) domain.HotkeyTable {
	out := make(domain.HotkeyTable, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

var _ interface {
	ApplyBindings(domain.HotkeyTable) error
	Bindings() domain.HotkeyTable
	LocalBindings() map[string]domain.EventType
	Shutdown() error
} = (*HotkeyService)(nil)
