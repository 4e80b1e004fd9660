// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/joho/godotenv"

	"github.com/flightmansam/feishin/internal/adapter/eventbus"
	"github.com/flightmansam/feishin/internal/adapter/mediakeys"
	"github.com/flightmansam/feishin/internal/adapter/metadata"
	"github.com/flightmansam/feishin/internal/adapter/notify"
	"github.com/flightmansam/feishin/internal/adapter/player/mock"
	"github.com/flightmansam/feishin/internal/adapter/player/mpv"
	"github.com/flightmansam/feishin/internal/adapter/remote"
	"github.com/flightmansam/feishin/internal/adapter/repository/memory"
	"github.com/flightmansam/feishin/internal/adapter/shortcuts/global"
	shortcutsmem "github.com/flightmansam/feishin/internal/adapter/shortcuts/memory"
	fyneui "github.com/flightmansam/feishin/internal/adapter/ui/fyne"
	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/logger"
	"github.com/flightmansam/feishin/internal/ports"
	"github.com/flightmansam/feishin/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	config    Config
	logger    *slog.Logger
	logCloser io.Closer
	fyneApp   fyne.App

	eventBus ports.EventBus

	settingsRepo *memory.SettingsRepository
	queueRepo    *memory.QueueRepository

	settingsService *service.SettingsService
	queueService    *service.QueueService
	playerService   *service.PlayerService
	libraryService  *service.LibraryService
	hotkeyService   *service.HotkeyService
	coordinator     *service.Coordinator

	mockPlayers *mock.Factory // set with UseMockPlayer
	bridge      *remote.Bridge

	presenter      *fyneui.Presenter
	queuePresenter *fyneui.QueuePresenter
	shortcuts      *fyneui.WindowShortcuts
	mainWindow     *fyneui.MainWindow

	shutdownOnce sync.Once
	shutdownErr  error
}

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier; Fyne keys preferences by it
	AppID string

	// AppName is the window title
	AppName string

	// UseMockPlayer replaces mpv with an in-memory player
	UseMockPlayer bool

	// UseMockShortcuts keeps global shortcuts in memory instead of the OS
	UseMockShortcuts bool

	// MpvPath overrides the mpv binary saved in settings
	MpvPath string

	// SocketDir is where mpv IPC sockets are created
	SocketDir string

	// RemoteAddr starts the websocket event bridge when set, e.g. "127.0.0.1:4333"
	RemoteAddr string

	Logger logger.Config

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration. A .env file
// in the working directory is loaded first; FEISHIN_* variables override
// the defaults.
func DefaultConfig() Config {
	_ = godotenv.Load()

	return Config{
		AppID:            "org.feishin.player",
		AppName:          "Feishin",
		UseMockPlayer:    envBool("FEISHIN_MOCK_PLAYER"),
		UseMockShortcuts: envBool("FEISHIN_MOCK_SHORTCUTS"),
		MpvPath:          os.Getenv("FEISHIN_MPV_PATH"),
		SocketDir:        os.Getenv("FEISHIN_SOCKET_DIR"),
		RemoteAddr:       os.Getenv("FEISHIN_REMOTE_ADDR"),
		Logger:           logger.DefaultConfig(),
	}
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	app := &Application{config: config}

	// Step 1: logger
	app.logger, app.logCloser = logger.NewLogger(config.Logger)
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 2: Fyne application
	if config.TestFyneApp != nil {
		app.fyneApp = config.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	// Step 3: event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger)

	// Step 4: repositories
	prefs := app.fyneApp.Preferences()
	app.settingsRepo = memory.NewSettingsRepository(prefs)
	app.queueRepo = memory.NewQueueRepository(prefs)

	// Step 5: services
	app.settingsService = service.NewSettingsService(app.settingsRepo, app.eventBus, notify.NewNotifier(app.logger), app.logger)
	app.queueService = service.NewQueueService(app.queueRepo, app.eventBus, app.logger)
	app.playerService = service.NewPlayerService(app.playerFactory(), app.settingsRepo, app.eventBus, app.logger, service.DefaultPlayerServiceConfig())
	reader := metadata.NewTagReader()
	app.libraryService = service.NewLibraryService(reader, app.eventBus, app.logger)
	app.coordinator = service.NewCoordinator(app.queueService, app.playerService, app.settingsService, app.eventBus, app.logger)

	var registry ports.ShortcutRegistry
	if config.UseMockShortcuts {
		registry = shortcutsmem.NewRegistry()
	} else {
		registry = global.NewRegistry(app.logger)
	}
	app.hotkeyService = service.NewHotkeyService(registry, mediakeys.NewSession(app.logger), app.settingsRepo, app.eventBus, app.logger)

	// Step 6: optional remote bridge
	if config.RemoteAddr != "" {
		app.bridge = remote.NewBridge(app.eventBus, app.logger)
		if err := app.bridge.Start(config.RemoteAddr); err != nil {
			_ = app.Shutdown()
			return nil, fmt.Errorf("failed to start remote bridge: %w", err)
		}
	}

	// Step 7: restore state
	if err := app.queueService.Load(); err != nil {
		// Non-fatal - just log and continue
		app.logger.Warn("failed to load saved queue", slog.Any("error", err))
	}

	// Step 8: UI
	queueView := fyneui.NewQueueView()
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, config.AppName, queueView, reader.Extensions(), app.logger)
	app.presenter = fyneui.NewPresenter(app.logger, app.eventBus, app.coordinator, app.libraryService, app.settingsService, app.mainWindow)
	app.queuePresenter = fyneui.NewQueuePresenter(app.queueService, app.coordinator, app.settingsService,
		app.eventBus, queueView, domain.TableSideQueue, fyneui.QueueDebounce, app.logger)
	app.mainWindow.SetPresenter(app.presenter, app.queuePresenter)
	app.shortcuts = fyneui.NewWindowShortcuts(app.mainWindow.Window().Canvas(), app.hotkeyService, app.eventBus, app.logger)

	// Step 9: start everything that listens to the bus
	app.coordinator.Start()
	app.presenter.Start()
	app.queuePresenter.Start()
	if err := app.hotkeyService.ApplyBindings(app.settingsService.Hotkeys()); err != nil {
		app.logger.Warn("some hotkeys could not be bound", slog.Any("error", err))
	}
	app.shortcuts.Start()

	return app, nil
}

func (a *Application) playerFactory() ports.PlayerFactory {
	if a.config.UseMockPlayer {
		a.mockPlayers = mock.NewFactory(a.logger)
		return a.mockPlayers.New
	}

	cfg := mpv.DefaultConfig()
	cfg.SocketDir = a.config.SocketDir
	cfg.Logger = a.logger
	factory := mpv.NewFactory(cfg)
	if a.config.MpvPath == "" {
		return factory
	}
	return func(params []string, options domain.ProcessOptions) ports.PlayerProcess {
		options.Binary = a.config.MpvPath
		return factory(params, options)
	}
}

// StartPlayer launches the local player with the saved mpv settings. The
// web backend plays in the remote client, so nothing is started for it.
func (a *Application) StartPlayer() {
	if a.settingsService.PlayerBackend() != domain.BackendLocal {
		a.logger.Info("web backend selected, not starting mpv")
		return
	}
	_, params, props := a.settingsService.MpvSettings()
	a.eventBus.Publish(domain.NewPlayerInitializeEvent(params, props))
}

// Run starts the player and shows the window.
// Blocks until the application quits.
func (a *Application) Run() error {
	a.logger.Info("feishin started")
	a.StartPlayer()
	a.mainWindow.Run()
	return nil
}

// Shutdown gracefully shuts down the application in reverse order of
// construction. Safe to call more than once.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down application")
	var errs []error

	if a.shortcuts != nil {
		a.shortcuts.Stop()
	}
	if a.queuePresenter != nil {
		a.queuePresenter.Shutdown()
	}
	if a.presenter != nil {
		a.presenter.Shutdown()
	}

	if a.bridge != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.bridge.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("remote bridge: %w", err))
		}
		cancel()
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"hotkey service", a.hotkeyService.Shutdown},
		{"coordinator", a.coordinator.Shutdown},
		{"library service", a.libraryService.Shutdown},
		{"player service", a.playerService.Shutdown},
		{"queue service", a.queueService.Shutdown},
		{"event bus", a.eventBus.Close},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			a.logger.Warn("shutdown step failed", slog.String("step", step.name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	a.logger.Info("application shutdown complete")
	if err := a.logCloser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// GetFyneApp returns the Fyne application.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// GetServices returns the core services.
func (a *Application) GetServices() (*service.QueueService, *service.PlayerService, *service.SettingsService, *service.Coordinator) {
	return a.queueService, a.playerService, a.settingsService, a.coordinator
}

// MockPlayers returns the mock player factory, nil unless UseMockPlayer is set.
func (a *Application) MockPlayers() *mock.Factory {
	return a.mockPlayers
}

// RemoteAddr returns the bridge's listening address, empty when disabled.
func (a *Application) RemoteAddr() string {
	if a.bridge == nil {
		return ""
	}
	return a.bridge.Addr()
}
