// Package fyne provides the Fyne UI adapter: the main window, the queue
// table, the tray menu and in-window shortcuts.
package fyne

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
	"github.com/flightmansam/feishin/internal/service"
)

// UIView is the main window as driven by the Presenter.
type UIView interface {
	ports.MainView

	SetVolume(volume float64)
	SetMuted(muted bool)
	SetShuffle(enabled bool)
	SetRepeat(mode domain.RepeatMode)

	// SetStatus shows a short line in the status bar.
	SetStatus(text string)
}

// Presenter implements the Presenter pattern (MVP architecture).
// It maps application events to window updates and turns window actions
// into commands on the bus or coordinator calls.
//
// Thread-safety: All operations are thread-safe via sync.Mutex.
type Presenter struct {
	logger   *slog.Logger
	bus      ports.EventBus
	coord    *service.Coordinator
	library  *service.LibraryService
	settings *service.SettingsService
	view     UIView

	mu   sync.Mutex
	subs []domain.SubscriptionID
}

// NewPresenter creates a presenter. Call Start to subscribe it.
func NewPresenter(
	logger *slog.Logger,
	bus ports.EventBus,
	coord *service.Coordinator,
	library *service.LibraryService,
	settings *service.SettingsService,
	view UIView,
) *Presenter {
	return &Presenter{
		logger:   logger.With(slog.String("service", "Presenter")),
		bus:      bus,
		coord:    coord,
		library:  library,
		settings: settings,
		view:     view,
	}
}

// Start subscribes to the events the window reflects.
func (p *Presenter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.subs) > 0 {
		return
	}

	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventPlayerPlay:         p.onPlay,
		domain.EventPlayerPause:        p.onPause,
		domain.EventPlayerStop:         p.onStop,
		domain.EventPlayerCurrentTime:  p.onCurrentTime,
		domain.EventPlayerError:        p.onPlayerError,
		domain.EventVolumeChanged:      p.onVolumeChanged,
		domain.EventMuteChanged:        p.onMuteChanged,
		domain.EventCurrentSongChanged: p.onCurrentSongChanged,
		domain.EventShuffleChanged:     p.onShuffleChanged,
		domain.EventRepeatChanged:      p.onRepeatChanged,
		domain.EventShowWindow:         func(domain.Event) { p.view.Show() },
		domain.EventAppQuit:            func(domain.Event) { p.view.Quit() },
		domain.EventScanStarted:        p.onScanStarted,
		domain.EventScanCompleted:      p.onScanCompleted,
		domain.EventScanCancelled:      p.onScanCancelled,
	}
	for eventType, handler := range subscriptions {
		p.subs = append(p.subs, p.bus.Subscribe(eventType, handler))
	}
}

// Shutdown unsubscribes. Safe to call more than once.
func (p *Presenter) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.subs {
		p.bus.Unsubscribe(id)
	}
	p.subs = nil
}

func (p *Presenter) onPlay(domain.Event) {
	p.view.SetPlaying(true)
}

func (p *Presenter) onPause(domain.Event) {
	p.view.SetPlaying(false)
}

func (p *Presenter) onStop(domain.Event) {
	p.view.SetPlaying(false)
	p.view.SetCurrentTime(0)
}

func (p *Presenter) onCurrentTime(event domain.Event) {
	if e, ok := event.(domain.CurrentTimeEvent); ok {
		p.view.SetCurrentTime(e.Seconds)
	}
}

func (p *Presenter) onPlayerError(event domain.Event) {
	e, ok := event.(domain.PlayerErrorEvent)
	if !ok {
		return
	}
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	p.view.ShowError("Player error", fmt.Sprintf("%s: %s", e.Op, msg))
}

func (p *Presenter) onVolumeChanged(event domain.Event) {
	if e, ok := event.(domain.VolumeChangedEvent); ok {
		p.view.SetVolume(e.Volume)
	}
}

func (p *Presenter) onMuteChanged(event domain.Event) {
	if e, ok := event.(domain.MuteChangedEvent); ok {
		p.view.SetMuted(e.Muted)
	}
}

func (p *Presenter) onCurrentSongChanged(event domain.Event) {
	if e, ok := event.(domain.CurrentSongChangedEvent); ok {
		p.view.SetNowPlaying(e.Current)
	}
}

func (p *Presenter) onShuffleChanged(event domain.Event) {
	if e, ok := event.(domain.ShuffleChangedEvent); ok {
		p.view.SetShuffle(e.Enabled)
	}
}

func (p *Presenter) onRepeatChanged(event domain.Event) {
	if e, ok := event.(domain.RepeatChangedEvent); ok {
		p.view.SetRepeat(e.Mode)
	}
}

func (p *Presenter) onScanStarted(event domain.Event) {
	if e, ok := event.(domain.ScanStartedEvent); ok {
		p.view.SetStatus("Scanning " + e.Path)
	}
}

func (p *Presenter) onScanCompleted(event domain.Event) {
	if e, ok := event.(domain.ScanCompletedEvent); ok {
		p.view.SetStatus(fmt.Sprintf("Found %d songs", len(e.Songs)))
	}
}

func (p *Presenter) onScanCancelled(domain.Event) {
	p.view.SetStatus("Scan cancelled")
}

// UI actions

// OnCommand publishes a playback command, as a button, menu or tray item does.
func (p *Presenter) OnCommand(command domain.EventType) {
	p.bus.Publish(domain.NewCommandEvent(command))
}

// OnVolumeSet applies a volume chosen on the slider (0-100).
func (p *Presenter) OnVolumeSet(volume float64) {
	p.bus.Publish(domain.NewSetPropertiesEvent(map[string]interface{}{"volume": volume}))
}

// OnFolderOpened scans a folder and appends what it finds to the queue.
func (p *Presenter) OnFolderOpened(ctx context.Context, folderPath string) error {
	songs, err := p.library.ScanFolder(ctx, folderPath)
	if err != nil {
		return err
	}
	return p.coord.AddSongs(songs, service.AddLast)
}

// OnFilesOpened reads the files and inserts them at position.
func (p *Presenter) OnFilesOpened(ctx context.Context, paths []string, position service.AddPosition) error {
	songs, err := p.library.ScanFiles(ctx, paths)
	if err != nil {
		return err
	}
	return p.coord.AddSongs(songs, position)
}

// OnCancelScan stops a running scan.
func (p *Presenter) OnCancelScan() {
	if err := p.library.CancelScan(); err != nil {
		p.logger.Debug("no scan to cancel", slog.Any("error", err))
	}
}

// OnRestartPlayer restarts mpv with the saved parameters and properties.
func (p *Presenter) OnRestartPlayer() {
	_, params, props := p.settings.MpvSettings()
	p.bus.Publish(domain.NewPlayerRestartEvent(params, props))
}

// OnMediaKeysToggled saves the toggle; the hotkey service rebinds.
func (p *Presenter) OnMediaKeysToggled(enabled bool) error {
	return p.settings.SetGlobalMediaHotkeys(enabled)
}

// MediaKeysEnabled reports the saved media-key toggle.
func (p *Presenter) MediaKeysEnabled() bool {
	return p.settings.GlobalMediaHotkeys()
}

// OnQuit asks every component to shut down.
func (p *Presenter) OnQuit() {
	p.bus.Publish(domain.NewCommandEvent(domain.EventAppQuit))
}
