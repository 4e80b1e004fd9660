package fyne

import (
	"log/slog"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

var fyneKeys = map[string]fyneapp.KeyName{
	"Space":     fyneapp.KeySpace,
	"Enter":     fyneapp.KeyReturn,
	"Tab":       fyneapp.KeyTab,
	"Backspace": fyneapp.KeyBackspace,
	"Delete":    fyneapp.KeyDelete,
	"Insert":    fyneapp.KeyInsert,
	"Escape":    fyneapp.KeyEscape,
	"Home":      fyneapp.KeyHome,
	"End":       fyneapp.KeyEnd,
	"PageUp":    fyneapp.KeyPageUp,
	"PageDown":  fyneapp.KeyPageDown,
	"Up":        fyneapp.KeyUp,
	"Down":      fyneapp.KeyDown,
	"Left":      fyneapp.KeyLeft,
	"Right":     fyneapp.KeyRight,
	"Plus":      fyneapp.KeyPlus,
	",":         fyneapp.KeyComma,
	".":         fyneapp.KeyPeriod,
	"/":         fyneapp.KeySlash,
	"-":         fyneapp.KeyMinus,
	"=":         fyneapp.KeyEqual,
}

var fyneModifiers = map[domain.Modifier]fyneapp.KeyModifier{
	domain.ModCmdOrCtrl: fyneapp.KeyModifierShortcutDefault,
	domain.ModCtrl:      fyneapp.KeyModifierControl,
	domain.ModAlt:       fyneapp.KeyModifierAlt,
	domain.ModShift:     fyneapp.KeyModifierShift,
	domain.ModSuper:     fyneapp.KeyModifierSuper,
}

// localBindings is the source of in-window shortcuts.
type localBindings interface {
	LocalBindings() map[string]domain.EventType
}

// WindowShortcuts installs the non-global hotkeys on a window canvas and
// re-installs them whenever the binding table changes.
type WindowShortcuts struct {
	logger   *slog.Logger
	canvas   fyneapp.Canvas
	bindings localBindings
	bus      ports.EventBus

	mu        sync.Mutex
	installed []fyneapp.Shortcut
	plain     map[fyneapp.KeyName]domain.EventType
	sub       domain.SubscriptionID
}

// NewWindowShortcuts creates the installer. Call Start to apply it.
func NewWindowShortcuts(canvas fyneapp.Canvas, bindings localBindings, bus ports.EventBus, logger *slog.Logger) *WindowShortcuts {
	return &WindowShortcuts{
		logger:   logger.With(slog.String("service", "WindowShortcuts")),
		canvas:   canvas,
		bindings: bindings,
		bus:      bus,
		plain:    make(map[fyneapp.KeyName]domain.EventType),
	}
}

// Start installs the current bindings and follows later changes. The
// hotkey service subscribes first, so its table is already updated when
// the change reaches here.
func (s *WindowShortcuts) Start() {
	s.canvas.SetOnTypedKey(s.onTypedKey)
	s.sub = s.bus.Subscribe(domain.EventHotkeysChanged, func(domain.Event) {
		fyneapp.Do(s.Apply)
	})
	s.Apply()
}

// Stop stops following binding changes.
func (s *WindowShortcuts) Stop() {
	s.bus.Unsubscribe(s.sub)
}

// Apply replaces the installed shortcuts with the current local bindings.
// Must run on the UI thread.
func (s *WindowShortcuts) Apply() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range s.installed {
		s.canvas.RemoveShortcut(sc)
	}
	s.installed = nil
	clear(s.plain)

	for accelerator, event := range s.bindings.LocalBindings() {
		accel, err := domain.ParseAccelerator(accelerator)
		if err != nil {
			continue
		}
		key, mods, ok := fyneShortcut(accel)
		if !ok {
			s.logger.Debug("no window shortcut for key", slog.String("accelerator", accelerator))
			continue
		}
		if mods == 0 {
			s.plain[key] = event
			continue
		}
		sc := &desktop.CustomShortcut{KeyName: key, Modifier: mods}
		s.canvas.AddShortcut(sc, s.publisher(event))
		s.installed = append(s.installed, sc)
	}
}

func (s *WindowShortcuts) publisher(event domain.EventType) func(fyneapp.Shortcut) {
	return func(fyneapp.Shortcut) {
		s.bus.Publish(domain.NewCommandEvent(event))
	}
}

func (s *WindowShortcuts) onTypedKey(e *fyneapp.KeyEvent) {
	s.mu.Lock()
	event, ok := s.plain[e.Name]
	s.mu.Unlock()
	if ok {
		s.bus.Publish(domain.NewCommandEvent(event))
	}
}

// fyneShortcut maps an accelerator to a fyne key and modifier mask. Media
// keys have no fyne key name.
func fyneShortcut(accel domain.Accelerator) (fyneapp.KeyName, fyneapp.KeyModifier, bool) {
	var mods fyneapp.KeyModifier
	for _, m := range accel.Modifiers {
		mods |= fyneModifiers[m]
	}

	if key, ok := fyneKeys[accel.Key]; ok {
		return key, mods, true
	}
	if len(accel.Key) == 1 {
		c := accel.Key[0]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return fyneapp.KeyName(accel.Key), mods, true
		}
	}
	if len(accel.Key) >= 2 && accel.Key[0] == 'F' {
		// fyne names F1 to F12
		switch accel.Key {
		case "F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12":
			return fyneapp.KeyName(accel.Key), mods, true
		}
	}
	return "", 0, false
}
