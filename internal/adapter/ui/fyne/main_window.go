package fyne

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/service"
	"github.com/flightmansam/feishin/res"
)

const (
	windowWidth  float32 = 900
	windowHeight float32 = 600
)

// MainWindow is the application window: transport controls, the now
// playing line and the queue table.
//
// The MainWindow follows the MVP pattern: it only displays what the
// Presenter tells it and forwards user actions back to it. Every UIView
// method may be called from any goroutine.
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger

	queue      *QueueView
	extensions []string

	prevButton    *widget.Button
	playButton    *widget.Button
	stopButton    *widget.Button
	nextButton    *widget.Button
	shuffleButton *widget.Button
	repeatButton  *widget.Button
	muteButton    *widget.Button
	volumeSlider  *widget.Slider
	nowPlaying    *widget.Label
	currentTime   *widget.Label
	status        *widget.Label

	mediaKeysItem *fyneapp.MenuItem
	followItem    *fyneapp.MenuItem

	presenter      *Presenter
	queuePresenter *QueuePresenter

	closeOnce sync.Once
}

// NewMainWindow creates the window around a queue view. extensions limits
// the Add File dialog.
func NewMainWindow(app fyneapp.App, title string, queue *QueueView, extensions []string, logger *slog.Logger) *MainWindow {
	w := &MainWindow{
		app:        app,
		window:     app.NewWindow(title),
		logger:     logger.With(slog.String("service", "MainWindow")),
		queue:      queue,
		extensions: extensions,
	}
	w.buildUI()
	w.window.Resize(fyneapp.NewSize(windowWidth, windowHeight))
	return w
}

// SetPresenter connects the presenters to this view.
// This must be called before the window is shown.
func (w *MainWindow) SetPresenter(presenter *Presenter, queuePresenter *QueuePresenter) {
	w.presenter = presenter
	w.queuePresenter = queuePresenter
	w.queue.SetGestures(queuePresenter)
	w.wireHandlers()
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))

	if desk, ok := w.app.(desktop.App); ok {
		desk.SetSystemTrayMenu(trayMenu(presenter))
		w.window.SetCloseIntercept(w.window.Hide)
	} else {
		w.window.SetCloseIntercept(presenter.OnQuit)
	}
}

func (w *MainWindow) buildUI() {
	w.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), nil)
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), nil)
	w.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), nil)
	w.shuffleButton = widget.NewButton("Shuffle", nil)
	w.repeatButton = widget.NewButtonWithIcon("", theme.MediaReplayIcon(), nil)
	w.muteButton = widget.NewButtonWithIcon("", theme.VolumeUpIcon(), nil)

	w.nowPlaying = widget.NewLabel("Not playing")
	w.nowPlaying.Truncation = fyneapp.TextTruncateEllipsis
	w.nowPlaying.TextStyle = fyneapp.TextStyle{Bold: true}
	w.currentTime = widget.NewLabel("00:00")
	w.status = widget.NewLabel("")

	w.volumeSlider = widget.NewSlider(0, 100)
	w.volumeSlider.Value = 100

	buttons := container.NewHBox(
		w.prevButton, w.playButton, w.stopButton, w.nextButton,
		w.shuffleButton, w.repeatButton,
	)
	volume := container.NewBorder(nil, nil, w.muteButton, nil, w.volumeSlider)
	controls := container.NewBorder(nil, nil, buttons, container.NewGridWrap(fyneapp.NewSize(180, 36), volume), w.nowPlaying)
	top := container.NewVBox(controls, container.NewBorder(nil, nil, w.currentTime, nil, widget.NewSeparator()))

	w.window.SetContent(container.NewBorder(top, w.status, nil, nil, w.queue.Widget()))
}

func (w *MainWindow) wireHandlers() {
	command := func(t domain.EventType) func() {
		return func() { w.presenter.OnCommand(t) }
	}
	w.prevButton.OnTapped = command(domain.EventCommandPrevious)
	w.playButton.OnTapped = command(domain.EventCommandPlayPause)
	w.stopButton.OnTapped = command(domain.EventCommandStop)
	w.nextButton.OnTapped = command(domain.EventCommandNext)
	w.shuffleButton.OnTapped = command(domain.EventCommandToggleShuffle)
	w.repeatButton.OnTapped = command(domain.EventCommandToggleRepeat)
	w.muteButton.OnTapped = command(domain.EventCommandVolumeMute)
	w.volumeSlider.OnChangeEnded = w.presenter.OnVolumeSet
}

func (w *MainWindow) createMenu() []*fyneapp.Menu {
	command := func(label string, t domain.EventType) *fyneapp.MenuItem {
		return fyneapp.NewMenuItem(label, func() { w.presenter.OnCommand(t) })
	}
	separator := fyneapp.NewMenuItemSeparator

	file := fyneapp.NewMenu("File",
		fyneapp.NewMenuItem("Add File…", func() { w.handleAddFile(service.AddLast) }),
		fyneapp.NewMenuItem("Play File Next…", func() { w.handleAddFile(service.AddNext) }),
		fyneapp.NewMenuItem("Add Folder…", w.handleAddFolder),
		fyneapp.NewMenuItem("Cancel Scan", w.presenter.OnCancelScan),
		separator(),
		fyneapp.NewMenuItem("Quit", w.presenter.OnQuit),
	)
	file.Items[len(file.Items)-1].IsQuit = true

	playback := fyneapp.NewMenu("Playback",
		command("Play/Pause", domain.EventCommandPlayPause),
		command("Stop", domain.EventCommandStop),
		command("Next", domain.EventCommandNext),
		command("Previous", domain.EventCommandPrevious),
		separator(),
		command("Skip Forward", domain.EventCommandSkipForward),
		command("Skip Backward", domain.EventCommandSkipBackward),
		command("Volume Up", domain.EventCommandVolumeUp),
		command("Volume Down", domain.EventCommandVolumeDown),
		separator(),
		command("Shuffle", domain.EventCommandToggleShuffle),
		command("Repeat", domain.EventCommandToggleRepeat),
	)

	w.mediaKeysItem = fyneapp.NewMenuItem("Global Media Keys", nil)
	w.mediaKeysItem.Checked = w.presenter.MediaKeysEnabled()
	w.mediaKeysItem.Action = func() {
		enabled := !w.mediaKeysItem.Checked
		if err := w.presenter.OnMediaKeysToggled(enabled); err != nil {
			return // the settings service already told the user
		}
		w.mediaKeysItem.Checked = enabled
		w.refreshMenu()
	}

	w.followItem = fyneapp.NewMenuItem("Follow Current Song", nil)
	w.followItem.Checked = w.queuePresenter.Layout().FollowCurrentSong
	w.followItem.Action = func() {
		follow := !w.followItem.Checked
		if err := w.queuePresenter.SetFollowCurrentSong(follow); err != nil {
			return
		}
		w.followItem.Checked = follow
		w.refreshMenu()
	}

	settings := fyneapp.NewMenu("Settings",
		w.mediaKeysItem,
		w.followItem,
		separator(),
		fyneapp.NewMenuItem("Restart Player", w.presenter.OnRestartPlayer),
	)
	help := fyneapp.NewMenu("Help",
		fyneapp.NewMenuItem("About", w.showAbout),
	)
	return []*fyneapp.Menu{file, playback, settings, help}
}

func (w *MainWindow) showAbout() {
	content := widget.NewRichTextFromMarkdown(res.AboutContent)
	content.Wrapping = fyneapp.TextWrapWord
	about := dialog.NewCustom("About Feishin", "Close", content, w.window)
	about.Resize(fyneapp.NewSize(420, 260))
	about.Show()
}

func (w *MainWindow) refreshMenu() {
	if menu := w.window.MainMenu(); menu != nil {
		menu.Refresh()
	}
}

func (w *MainWindow) handleAddFile(position service.AddPosition) {
	NewFileDialog(w.window, w.extensions, func(path string) {
		go w.report("Could not add file", func(ctx context.Context) error {
			return w.presenter.OnFilesOpened(ctx, []string{path}, position)
		})
	}, w.logger).Show()
}

func (w *MainWindow) handleAddFolder() {
	NewFolderDialog(w.window, func(path string) {
		go w.report("Could not add folder", func(ctx context.Context) error {
			return w.presenter.OnFolderOpened(ctx, path)
		})
	}, w.logger).Show()
}

// report runs a slow action off the UI thread and shows its failure.
func (w *MainWindow) report(title string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		w.logger.Warn("action failed", slog.String("action", title), slog.Any("error", err))
		w.ShowError(title, err.Error())
	}
}

// Window returns the underlying Fyne window.
func (w *MainWindow) Window() fyneapp.Window {
	return w.window
}

// UIView implementation

// Run shows the window and blocks until the application quits.
func (w *MainWindow) Run() {
	w.window.ShowAndRun()
}

// Show brings the window to the front.
func (w *MainWindow) Show() {
	fyneapp.Do(func() {
		w.window.Show()
		w.window.RequestFocus()
	})
}

// Quit closes the application. Safe to call more than once.
func (w *MainWindow) Quit() {
	w.closeOnce.Do(func() {
		fyneapp.Do(w.app.Quit)
	})
}

// ShowError displays an error dialog.
func (w *MainWindow) ShowError(title, message string) {
	fyneapp.Do(func() {
		dialog.ShowInformation(title, message, w.window)
	})
}

// SetPlaying updates the play/pause button.
func (w *MainWindow) SetPlaying(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetNowPlaying updates the current song line.
func (w *MainWindow) SetNowPlaying(song domain.QueueSong) {
	text := nowPlayingText(song)
	fyneapp.Do(func() {
		w.nowPlaying.SetText(text)
		w.window.SetTitle(text)
	})
}

// SetCurrentTime updates the elapsed time.
func (w *MainWindow) SetCurrentTime(seconds float64) {
	text := formatClock(seconds)
	fyneapp.Do(func() { w.currentTime.SetText(text) })
}

// SetVolume moves the slider without sending it back to the player.
func (w *MainWindow) SetVolume(volume float64) {
	fyneapp.Do(func() {
		w.volumeSlider.Value = volume
		w.volumeSlider.Refresh()
	})
}

// SetMuted updates the mute button.
func (w *MainWindow) SetMuted(muted bool) {
	fyneapp.Do(func() {
		if muted {
			w.muteButton.SetIcon(theme.VolumeMuteIcon())
		} else {
			w.muteButton.SetIcon(theme.VolumeUpIcon())
		}
	})
}

// SetShuffle updates the shuffle button.
func (w *MainWindow) SetShuffle(enabled bool) {
	fyneapp.Do(func() {
		if enabled {
			w.shuffleButton.Importance = widget.HighImportance
		} else {
			w.shuffleButton.Importance = widget.MediumImportance
		}
		w.shuffleButton.Refresh()
	})
}

// SetRepeat updates the repeat button.
func (w *MainWindow) SetRepeat(mode domain.RepeatMode) {
	fyneapp.Do(func() {
		switch mode {
		case domain.RepeatOne:
			w.repeatButton.SetText("1")
			w.repeatButton.Importance = widget.HighImportance
		case domain.RepeatAll:
			w.repeatButton.SetText("")
			w.repeatButton.Importance = widget.HighImportance
		default:
			w.repeatButton.SetText("")
			w.repeatButton.Importance = widget.MediumImportance
		}
		w.repeatButton.Refresh()
	})
}

// SetStatus shows text in the status bar.
func (w *MainWindow) SetStatus(text string) {
	fyneapp.Do(func() { w.status.SetText(text) })
}

func nowPlayingText(song domain.QueueSong) string {
	switch {
	case song.UniqueID == "":
		return "Not playing"
	case song.Artist != "" && song.Title != "":
		return fmt.Sprintf("%s - %s", song.Artist, song.Title)
	case song.Title != "":
		return song.Title
	default:
		return song.StreamURL
	}
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

var _ UIView = (*MainWindow)(nil)
