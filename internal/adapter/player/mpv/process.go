// Package mpv drives an external mpv process over its JSON IPC socket.
package mpv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// Config holds settings shared by every mpv process.
type Config struct {
	// SocketDir is where IPC sockets are created. Empty means os.TempDir().
	SocketDir string

	// SocketTimeout bounds the wait for mpv to open its socket.
	SocketTimeout time.Duration

	// CommandTimeout bounds a single IPC command.
	CommandTimeout time.Duration

	// QuitTimeout is how long Quit waits before killing the process.
	QuitTimeout time.Duration

	// MaxRestarts is how many crashes in a row are recovered. A process that
	// ran for a minute resets the count.
	MaxRestarts int

	Logger *slog.Logger
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		SocketTimeout:  10 * time.Second,
		CommandTimeout: 5 * time.Second,
		QuitTimeout:    5 * time.Second,
		MaxRestarts:    3,
	}
}

// NewFactory returns a ports.PlayerFactory building mpv processes.
func NewFactory(cfg Config) ports.PlayerFactory {
	return func(params []string, options domain.ProcessOptions) ports.PlayerProcess {
		return New(params, options, cfg)
	}
}

const stableRun = time.Minute

// Process is one mpv instance. It is restarted in place after a crash when
// AutoRestart is set, with the last known properties re-applied.
type Process struct {
	cfg    Config
	logger *slog.Logger
	params []string
	opts   domain.ProcessOptions
	launch launcher

	events *dispatcher

	mu         sync.Mutex
	started    bool
	running    bool
	quitting   bool
	handle     processHandle
	conn       *ipcConn
	socket     string
	properties map[string]interface{}
	handlers   []ports.PlayerStatusHandler
	idle       bool
	paused     bool
	lastTime   time.Time
	restarts   int

	done     chan struct{}
	doneOnce sync.Once
}

// New creates an mpv process. Nothing runs until Start.
func New(params []string, options domain.ProcessOptions, cfg Config) *Process {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if options.Binary == "" {
		options.Binary = defaultBinary
	}
	p := &Process{
		cfg:        cfg,
		logger:     logger.With(slog.String("service", "mpv")),
		params:     append([]string(nil), params...),
		opts:       options,
		launch:     execLauncher,
		properties: make(map[string]interface{}),
		idle:       true,
		done:       make(chan struct{}),
	}
	p.events = newDispatcher(p.deliver)
	return p
}

// Start launches mpv, connects to its socket, subscribes to the observed
// properties and applies the properties set so far.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return domain.ErrPlayerAlreadyRunning
	}
	p.started = true
	p.mu.Unlock()

	exited, err := p.spawn(ctx)
	if err != nil {
		p.finish()
		return err
	}
	go p.supervise(exited)
	return nil
}

func (p *Process) spawn(ctx context.Context) (<-chan error, error) {
	socket := newSocketPath(p.cfg.SocketDir)
	_ = os.Remove(socket)
	args := buildArgs(socket, p.opts, p.params)

	handle, err := p.launch(p.opts.Binary, args)
	if err != nil {
		return nil, domain.NewPlayerProcessError("start", p.opts.Binary, "failed to launch", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- handle.Wait() }()

	fail := func(message string, err error) (<-chan error, error) {
		_ = handle.Kill()
		_ = os.Remove(socket)
		return nil, domain.NewPlayerProcessError("start", p.opts.Binary, message, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.SocketTimeout)
	defer cancel()
	if err := waitForSocket(waitCtx, socket, exited); err != nil {
		return fail("ipc socket not ready", err)
	}

	conn, err := dialIPC(waitCtx, socket, p.onMessage)
	if err != nil {
		return fail("ipc connect failed", err)
	}

	for i, name := range observed {
		if _, err := conn.command(waitCtx, "observe_property", i+1, name); err != nil {
			_ = conn.Close()
			return fail("observe "+name, err)
		}
	}

	p.mu.Lock()
	props := make(map[string]interface{}, len(p.properties))
	for k, v := range p.properties {
		props[k] = v
	}
	p.mu.Unlock()

	for k, v := range props {
		if _, err := conn.command(waitCtx, "set_property", k, v); err != nil {
			p.logger.Warn("failed to apply property", slog.String("property", k), slog.Any("error", err))
		}
	}

	p.mu.Lock()
	if p.quitting {
		p.mu.Unlock()
		_ = conn.Close()
		return fail("quit during start", domain.ErrPlayerNotRunning)
	}
	p.handle = handle
	p.conn = conn
	p.socket = socket
	p.running = true
	p.idle = true
	p.mu.Unlock()

	p.logger.Info("mpv started", slog.String("binary", p.opts.Binary), slog.String("socket", socket))
	return exited, nil
}

// supervise waits for mpv to exit and restarts it unless the exit was requested.
func (p *Process) supervise(exited <-chan error) {
	startedAt := time.Now()
	for {
		err := <-exited

		p.mu.Lock()
		conn, socket := p.conn, p.socket
		p.conn = nil
		p.running = false
		quitting := p.quitting
		if time.Since(startedAt) > stableRun {
			p.restarts = 0
		}
		p.restarts++
		restarts := p.restarts
		p.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}
		_ = os.Remove(socket)

		if quitting || !p.opts.AutoRestart {
			p.logger.Debug("mpv exited", slog.Any("error", err))
			p.finish()
			return
		}
		if restarts > p.cfg.MaxRestarts {
			p.logger.Error("mpv keeps crashing, giving up", slog.Int("restarts", restarts-1), slog.Any("error", err))
			p.finish()
			return
		}

		p.logger.Warn("mpv exited unexpectedly, restarting", slog.Any("error", err), slog.Int("attempt", restarts))
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SocketTimeout)
		next, serr := p.spawn(ctx)
		cancel()
		if serr != nil {
			p.logger.Error("mpv restart failed", slog.Any("error", serr))
			p.finish()
			return
		}
		exited = next
		startedAt = time.Now()
	}
}

// Quit asks mpv to quit and waits for it to exit, killing it after the quit
// timeout. Safe to call more than once.
func (p *Process) Quit(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.started = true
		p.mu.Unlock()
		p.finish()
		return nil
	}
	p.quitting = true
	conn, handle := p.conn, p.handle
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	default:
	}

	if conn != nil {
		cmdCtx, cancel := context.WithTimeout(ctx, p.cfg.CommandTimeout)
		if _, err := conn.command(cmdCtx, "quit"); err != nil {
			p.logger.Debug("quit command failed", slog.Any("error", err))
		}
		cancel()
	}

	timer := time.NewTimer(p.cfg.QuitTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	p.logger.Warn("mpv did not quit in time, killing")
	if handle != nil {
		if err := handle.Kill(); err != nil {
			return domain.NewPlayerProcessError("quit", p.opts.Binary, "kill failed", err)
		}
	}
	<-p.done
	return nil
}

// Running reports whether mpv is up and connected.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Done is closed once the process is gone for good.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) finish() {
	p.doneOnce.Do(func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(p.done)
		p.events.close()
	})
}

// Play unpauses.
func (p *Process) Play() error { return p.setRemote("pause", false) }

// Pause pauses.
func (p *Process) Pause() error { return p.setRemote("pause", true) }

// TogglePause flips pause.
func (p *Process) TogglePause() error { return p.command("cycle", "pause") }

// Stop stops playback and clears the playlist.
func (p *Process) Stop() error { return p.command("stop") }

// Next moves to the next playlist entry.
func (p *Process) Next() error { return p.command("playlist-next", "force") }

// Previous moves to the previous playlist entry.
func (p *Process) Previous() error { return p.command("playlist-prev", "force") }

// Seek seeks relative to the current position, in seconds.
func (p *Process) Seek(offset float64) error { return p.command("seek", offset, "relative") }

// SetProperty sets a property, remembering it for restarts. Before Start
// the value is applied once mpv is up.
func (p *Process) SetProperty(key string, value interface{}) error {
	p.mu.Lock()
	p.properties[key] = value
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	return p.send(conn, "set_property", key, value)
}

// SetMultipleProperties sets several properties.
func (p *Process) SetMultipleProperties(properties map[string]interface{}) error {
	var firstErr error
	for k, v := range properties {
		if err := p.SetProperty(k, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SetQueue replaces the playlist with the current song and its successor.
// Without a current song playback stops.
func (p *Process) SetQueue(data *domain.PlayerCommandData) error {
	current, ok := data.Current()
	if !ok {
		return p.command("stop")
	}
	if err := p.command("playlist-clear"); err != nil {
		return err
	}
	if err := p.command("loadfile", current.StreamURL, "replace"); err != nil {
		return err
	}
	if next, ok := data.Next(); ok {
		return p.command("loadfile", next.StreamURL, "append")
	}
	return nil
}

// SetQueueNext drops every entry after the playing one and appends the
// payload's next song.
func (p *Process) SetQueueNext(data *domain.PlayerCommandData) error {
	pos, err := p.intProperty("playlist-pos")
	if err != nil {
		return err
	}
	count, err := p.intProperty("playlist-count")
	if err != nil {
		return err
	}
	for i := count - 1; i > pos; i-- {
		if err := p.command("playlist-remove", i); err != nil {
			return err
		}
	}
	if next, ok := data.Next(); ok {
		return p.command("loadfile", next.StreamURL, "append")
	}
	return nil
}

// Subscribe registers a status handler. Handlers run on one goroutine, in
// the order mpv reported the changes.
func (p *Process) Subscribe(handler ports.PlayerStatusHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

func (p *Process) setRemote(key string, value interface{}) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return domain.ErrPlayerNotRunning
	}
	return p.send(conn, "set_property", key, value)
}

func (p *Process) command(args ...interface{}) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return domain.ErrPlayerNotRunning
	}
	return p.send(conn, args...)
}

func (p *Process) send(conn *ipcConn, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CommandTimeout)
	defer cancel()
	if _, err := conn.command(ctx, args...); err != nil {
		return fmt.Errorf("mpv %v: %w", args[0], err)
	}
	return nil
}

func (p *Process) intProperty(name string) (int, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return 0, domain.ErrPlayerNotRunning
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CommandTimeout)
	defer cancel()
	raw, err := conn.command(ctx, "get_property", name)
	if err != nil {
		return 0, fmt.Errorf("mpv get %s: %w", name, err)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("mpv get %s: %w", name, err)
	}
	return n, nil
}

// onMessage runs on the IPC reader goroutine. It only translates; handlers
// run on the dispatcher so they may call back into the process.
func (p *Process) onMessage(msg message) {
	if msg.Event != "property-change" {
		return
	}

	var value interface{}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &value); err != nil {
			return
		}
	}

	switch msg.Name {
	case "time-pos":
		seconds, ok := value.(float64)
		if !ok {
			return
		}
		p.mu.Lock()
		due := time.Since(p.lastTime) >= p.opts.TimeUpdate
		if due {
			p.lastTime = time.Now()
		}
		p.mu.Unlock()
		if due {
			p.events.push(ports.PlayerStatus{Kind: ports.StatusTimePosition, Seconds: seconds})
		}
		return

	case "idle-active":
		idle, _ := value.(bool)
		p.mu.Lock()
		p.idle = idle
		paused := p.paused
		p.mu.Unlock()
		p.events.push(ports.PlayerStatus{Kind: ports.StatusProperty, Property: msg.Name, Value: value})
		if idle {
			p.events.push(ports.PlayerStatus{Kind: ports.StatusStopped})
		} else if !paused {
			p.events.push(ports.PlayerStatus{Kind: ports.StatusResumed})
		}
		return

	case "pause":
		paused, _ := value.(bool)
		p.mu.Lock()
		p.paused = paused
		idle := p.idle
		p.mu.Unlock()
		p.events.push(ports.PlayerStatus{Kind: ports.StatusProperty, Property: msg.Name, Value: value})
		switch {
		case paused:
			p.events.push(ports.PlayerStatus{Kind: ports.StatusPaused})
		case !idle:
			p.events.push(ports.PlayerStatus{Kind: ports.StatusResumed})
		}
		return
	}

	if value == nil {
		return
	}
	p.events.push(ports.PlayerStatus{Kind: ports.StatusProperty, Property: msg.Name, Value: value})
}

func (p *Process) deliver(status ports.PlayerStatus) {
	p.mu.Lock()
	handlers := append([]ports.PlayerStatusHandler(nil), p.handlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(status)
	}
}

var _ ports.PlayerProcess = (*Process)(nil)
