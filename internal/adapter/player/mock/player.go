// Package mock provides an in-memory PlayerProcess for tests and for running
// the application without mpv installed.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// Call records one method invocation on a Player.
type Call struct {
	Method string
	Args   []interface{}
}

// Player simulates an mpv process: it keeps a property map and a two-entry
// playlist in memory and emits status notifications only when told to.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	logger  *slog.Logger
	factory *Factory

	params  []string
	options domain.ProcessOptions

	mu         sync.RWMutex
	running    bool
	failStart  bool
	done       chan struct{}
	doneOnce   sync.Once
	properties map[string]interface{}
	playlist   []domain.QueueSong
	pos        int
	calls      []Call
	handlers   []ports.PlayerStatusHandler
}

// NewPlayer creates a standalone mock player.
func NewPlayer(params []string, options domain.ProcessOptions) *Player {
	return &Player{
		params:     slices.Clone(params),
		options:    options,
		done:       make(chan struct{}),
		properties: make(map[string]interface{}),
	}
}

// SetLogger sets the logger for this player.
func (p *Player) SetLogger(logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// SetFailStart makes Start fail (for testing).
func (p *Player) SetFailStart(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failStart = fail
}

// Params returns the command line parameters the player was built with.
func (p *Player) Params() []string {
	return slices.Clone(p.params)
}

// Options returns the process options the player was built with.
func (p *Player) Options() domain.ProcessOptions {
	return p.options
}

// Start marks the player as running.
func (p *Player) Start(_ context.Context) error {
	p.mu.Lock()
	p.record("Start")
	if p.failStart {
		p.mu.Unlock()
		return domain.NewPlayerProcessError("start", p.options.Binary, "mock start failure", nil)
	}
	if p.running {
		p.mu.Unlock()
		return domain.ErrPlayerAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()

	if p.factory != nil {
		p.factory.started()
	}
	p.debug("mock player started")
	return nil
}

// Quit stops the player and closes Done. Safe to call more than once.
func (p *Player) Quit(_ context.Context) error {
	p.mu.Lock()
	p.record("Quit")
	wasRunning := p.running
	p.running = false
	p.mu.Unlock()

	p.doneOnce.Do(func() { close(p.done) })
	if wasRunning && p.factory != nil {
		p.factory.stopped()
	}
	return nil
}

// Running reports whether Start succeeded and Quit has not been called.
func (p *Player) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Done is closed by Quit.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Play records the call and sets pause=false.
func (p *Player) Play() error { return p.command("Play", "pause", false) }

// Pause records the call and sets pause=true.
func (p *Player) Pause() error { return p.command("Pause", "pause", true) }

// TogglePause flips the pause property.
func (p *Player) TogglePause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("TogglePause")
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	paused, _ := p.properties["pause"].(bool)
	p.properties["pause"] = !paused
	return nil
}

// Stop records the call and clears the playlist.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Stop")
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	p.playlist = nil
	p.pos = 0
	return nil
}

// Next records the call and advances the playlist position.
func (p *Player) Next() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Next")
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	if p.pos+1 < len(p.playlist) {
		p.pos++
	}
	return nil
}

// Previous records the call and moves the playlist position back.
func (p *Player) Previous() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Previous")
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	if p.pos > 0 {
		p.pos--
	}
	return nil
}

// Seek records the call.
func (p *Player) Seek(offset float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Seek", offset)
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	return nil
}

// SetProperty stores a property.
func (p *Player) SetProperty(key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SetProperty", key, value)
	p.properties[key] = value
	return nil
}

// SetMultipleProperties stores several properties.
func (p *Player) SetMultipleProperties(properties map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SetMultipleProperties", properties)
	for k, v := range properties {
		p.properties[k] = v
	}
	return nil
}

// SetQueue replaces the playlist with the current and next song.
func (p *Player) SetQueue(data *domain.PlayerCommandData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SetQueue", data)
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	p.playlist = p.playlist[:0]
	if cur, ok := data.Current(); ok {
		p.playlist = append(p.playlist, cur)
	}
	if next, ok := data.Next(); ok {
		p.playlist = append(p.playlist, next)
	}
	p.pos = 0
	return nil
}

// SetQueueNext keeps the playlist up to the current entry and appends the next song.
func (p *Player) SetQueueNext(data *domain.PlayerCommandData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SetQueueNext", data)
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	if len(p.playlist) > p.pos+1 {
		p.playlist = p.playlist[:p.pos+1]
	}
	if next, ok := data.Next(); ok {
		p.playlist = append(p.playlist, next)
	}
	return nil
}

// Subscribe registers a status handler.
func (p *Player) Subscribe(handler ports.PlayerStatusHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

// Emit delivers a status notification to every handler, in order.
func (p *Player) Emit(status ports.PlayerStatus) {
	p.mu.RLock()
	handlers := slices.Clone(p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(status)
	}
}

// Property returns a stored property.
func (p *Player) Property(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.properties[key]
	return v, ok
}

// Playlist returns the simulated playlist and position.
func (p *Player) Playlist() ([]domain.QueueSong, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.playlist), p.pos
}

// Calls returns every recorded call.
func (p *Player) Calls() []Call {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.calls)
}

// CallCount returns how many times method was called.
func (p *Player) CallCount(method string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, c := range p.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call to method.
func (p *Player) LastCall(method string) (Call, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.calls) - 1; i >= 0; i-- {
		if p.calls[i].Method == method {
			return p.calls[i], true
		}
	}
	return Call{}, false
}

func (p *Player) command(method, property string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(method)
	if !p.running {
		return domain.ErrPlayerNotRunning
	}
	p.properties[property] = value
	return nil
}

// record callers hold mu.
func (p *Player) record(method string, args ...interface{}) {
	p.calls = append(p.calls, Call{Method: method, Args: args})
}

func (p *Player) debug(msg string) {
	p.mu.RLock()
	logger := p.logger
	p.mu.RUnlock()
	if logger != nil {
		logger.Debug(msg, slog.String("params", fmt.Sprint(p.params)))
	}
}

var _ ports.PlayerProcess = (*Player)(nil)
