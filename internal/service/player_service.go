package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// prefetchPlaylistParams are the spellings that mean the user chose prefetching themselves.
var prefetchPlaylistParams = []string{
	"--prefetch-playlist=no",
	"--prefetch-playlist=yes",
	"--prefetch-playlist",
}

const (
	defaultStartTimeout = 15 * time.Second
	defaultQuitTimeout  = 5 * time.Second
	defaultVolumeStep   = 5.0
	defaultSkipSeconds  = 10.0
)

// BuildParameters returns the deduplicated mpv parameters: the defaults
// first, then extra in order. Prefetching is turned on unless extra already
// says something about it.
func BuildParameters(extra []string) []string {
	defaults := []string{}
	if !lo.SomeBy(extra, func(p string) bool { return lo.Contains(prefetchPlaylistParams, p) }) {
		defaults = append(defaults, "--prefetch-playlist=yes")
	}
	return lo.Uniq(append(defaults, extra...))
}

// PlayerServiceConfig holds tunables for PlayerService.
type PlayerServiceConfig struct {
	StartTimeout time.Duration
	QuitTimeout  time.Duration
	TimeUpdate   time.Duration
	VolumeStep   float64
	SkipSeconds  float64
}

// DefaultPlayerServiceConfig returns the production tunables.
func DefaultPlayerServiceConfig() PlayerServiceConfig {
	return PlayerServiceConfig{
		StartTimeout: defaultStartTimeout,
		QuitTimeout:  defaultQuitTimeout,
		TimeUpdate:   time.Second,
		VolumeStep:   defaultVolumeStep,
		SkipSeconds:  defaultSkipSeconds,
	}
}

// playerInstance is one launched process and its start bookkeeping.
type playerInstance struct {
	proc    ports.PlayerProcess
	cancel  context.CancelFunc
	started chan struct{}
	err     error // start result, valid once started is closed
}

// PlayerService owns the single player process handle.
//
// Lifecycle operations (Initialize, Restart, Quit) are serialized, and the old
// process is always reaped before a new one is constructed, so at most one
// instance is alive. Status notifications from the process are translated
// into application events; notifications from a replaced instance are dropped.
type PlayerService struct {
	logger   *slog.Logger
	bus      ports.EventBus
	settings ports.SettingsRepository
	factory  ports.PlayerFactory
	cfg      PlayerServiceConfig

	// lifecycle serializes Initialize, Restart and Quit
	lifecycle sync.Mutex

	mu         sync.RWMutex
	instance   *playerInstance
	state      domain.PlayerState
	params     []string
	properties map[string]interface{}

	// requests runs bus-driven lifecycle changes one at a time, in order
	requests *lifecycleQueue

	wg   sync.WaitGroup
	subs []domain.SubscriptionID
}

// NewPlayerService creates the player controller and subscribes it to the
// process control requests on the bus.
func NewPlayerService(
	factory ports.PlayerFactory,
	settings ports.SettingsRepository,
	bus ports.EventBus,
	logger *slog.Logger,
	cfg PlayerServiceConfig,
) *PlayerService {
	s := &PlayerService{
		logger:     logger.With(slog.String("service", "PlayerService")),
		bus:        bus,
		settings:   settings,
		factory:    factory,
		cfg:        cfg,
		state:      domain.PlayerUninitialized,
		properties: make(map[string]interface{}),
		requests:   newLifecycleQueue(),
	}

	s.subs = append(s.subs,
		bus.Subscribe(domain.EventSetProperties, s.handleSetProperties),
		bus.Subscribe(domain.EventPlayerInitialize, s.handleLaunch),
		bus.Subscribe(domain.EventPlayerRestart, s.handleLaunch),
		bus.Subscribe(domain.EventPlayerQuit, s.handleQuit),
	)
	return s
}

// Initialize constructs the player with the default-augmented parameters,
// applies properties and starts it in the background. Start failures are
// logged and published as player.error; the controller then has no active
// player until the next Initialize or Restart. An existing instance is
// quit first.
func (s *PlayerService) Initialize(extraParameters []string, properties map[string]interface{}) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.quitLocked(context.Background())
	s.launchLocked(extraParameters, properties, "initialize")
}

// Restart quits the current instance, waits until it has exited, and then
// initializes a new one.
func (s *PlayerService) Restart(extraParameters []string, properties map[string]interface{}) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.quitLocked(context.Background())
	s.launchLocked(extraParameters, properties, "restart")
}

// Quit terminates the player and waits for it to exit.
func (s *PlayerService) Quit(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.quitLocked(ctx)
}

// WaitStarted blocks until the current instance finished starting and returns the start result.
func (s *PlayerService) WaitStarted(ctx context.Context) error {
	s.mu.RLock()
	inst := s.instance
	s.mu.RUnlock()
	if inst == nil {
		return domain.ErrPlayerNotRunning
	}

	select {
	case <-inst.started:
		return inst.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PlayerService) launchLocked(extraParameters []string, properties map[string]interface{}, op string) {
	params := BuildParameters(extraParameters)

	binary, err := s.settings.MpvPath()
	if err != nil {
		s.logger.Warn("failed to read mpv path, using default", slog.Any("error", err))
	}

	proc := s.factory(params, domain.ProcessOptions{
		AudioOnly:   true,
		AutoRestart: true,
		Binary:      binary,
		TimeUpdate:  s.cfg.TimeUpdate,
	})

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StartTimeout)
	inst := &playerInstance{proc: proc, cancel: cancel, started: make(chan struct{})}
	proc.Subscribe(func(status ports.PlayerStatus) { s.handleStatus(inst, status) })

	if len(properties) > 0 {
		if err := proc.SetMultipleProperties(properties); err != nil {
			s.logger.Warn("failed to apply initial properties", slog.Any("error", err))
		}
	}

	s.mu.Lock()
	s.instance = inst
	s.params = params
	for k, v := range properties {
		s.properties[k] = v
	}
	s.mu.Unlock()
	s.setState(inst, domain.PlayerStarting)

	s.logger.Info("starting player", slog.String("op", op), slog.Any("params", params), slog.String("binary", binary))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		err := proc.Start(ctx)
		inst.err = err
		close(inst.started)

		if err != nil {
			s.mu.Lock()
			current := s.instance == inst
			if current {
				s.instance = nil
			}
			s.mu.Unlock()
			if !current {
				// replaced while starting
				s.logger.Debug("abandoned player start", slog.String("op", op), slog.Any("error", err))
				return
			}
			s.logger.Error("failed to start player", slog.String("op", op), slog.Any("error", err))
			s.setState(nil, domain.PlayerTerminated)
			s.bus.Publish(domain.NewPlayerErrorEvent(op, err))
			return
		}
		s.setState(inst, domain.PlayerReady)
		s.watch(inst)
	}()
}

// watch waits for the process to exit on its own.
func (s *PlayerService) watch(inst *playerInstance) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-inst.proc.Done()

		s.mu.Lock()
		current := s.instance == inst
		if current {
			s.instance = nil
		}
		s.mu.Unlock()
		if current {
			s.logger.Warn("player exited")
			s.setState(nil, domain.PlayerTerminated)
		}
	}()
}

func (s *PlayerService) quitLocked(ctx context.Context) {
	s.mu.Lock()
	inst := s.instance
	s.instance = nil
	s.mu.Unlock()

	if inst == nil {
		return
	}

	// abort a start that is still waiting for the process
	inst.cancel()
	<-inst.started

	quitCtx, cancel := context.WithTimeout(ctx, s.cfg.QuitTimeout)
	defer cancel()
	if err := inst.proc.Quit(quitCtx); err != nil {
		s.logger.Warn("player did not quit cleanly", slog.Any("error", err))
	}
	select {
	case <-inst.proc.Done():
	case <-quitCtx.Done():
		s.logger.Error("player still alive after quit timeout")
	}
	s.setState(nil, domain.PlayerTerminated)
}

// SetProperty sets one property. Without a player it only updates the mirror.
func (s *PlayerService) SetProperty(key string, value interface{}) error {
	s.mu.Lock()
	s.properties[key] = value
	inst := s.instance
	s.mu.Unlock()

	if inst == nil {
		return nil
	}
	return inst.proc.SetProperty(key, value)
}

// SetProperties applies a property map: nothing for an empty map, the
// single-property path for one key and the batch path otherwise.
func (s *PlayerService) SetProperties(properties map[string]interface{}) error {
	switch len(properties) {
	case 0:
		return nil
	case 1:
		for k, v := range properties {
			return s.SetProperty(k, v)
		}
	}

	s.mu.Lock()
	for k, v := range properties {
		s.properties[k] = v
	}
	inst := s.instance
	s.mu.Unlock()

	if inst == nil {
		return nil
	}
	return inst.proc.SetMultipleProperties(properties)
}

// SetQueue hands the current and next song to the player.
func (s *PlayerService) SetQueue(data *domain.PlayerCommandData) error {
	return s.withPlayer("SetQueue", func(p ports.PlayerProcess) error { return p.SetQueue(data) })
}

// SetQueueNext replaces the player's upcoming song.
func (s *PlayerService) SetQueueNext(data *domain.PlayerCommandData) error {
	return s.withPlayer("SetQueueNext", func(p ports.PlayerProcess) error { return p.SetQueueNext(data) })
}

// Play resumes playback.
func (s *PlayerService) Play() error {
	return s.withPlayer("Play", ports.PlayerProcess.Play)
}

// Pause pauses playback.
func (s *PlayerService) Pause() error {
	return s.withPlayer("Pause", ports.PlayerProcess.Pause)
}

// TogglePause flips between playing and paused.
func (s *PlayerService) TogglePause() error {
	return s.withPlayer("TogglePause", ports.PlayerProcess.TogglePause)
}

// Stop stops playback and clears the player's playlist.
func (s *PlayerService) Stop() error {
	return s.withPlayer("Stop", ports.PlayerProcess.Stop)
}

// Next skips to the next entry in the player's playlist.
func (s *PlayerService) Next() error {
	return s.withPlayer("Next", ports.PlayerProcess.Next)
}

// Previous goes back to the previous entry in the player's playlist.
func (s *PlayerService) Previous() error {
	return s.withPlayer("Previous", ports.PlayerProcess.Previous)
}

// SkipForward seeks forward by the configured skip.
func (s *PlayerService) SkipForward() error {
	return s.withPlayer("SkipForward", func(p ports.PlayerProcess) error { return p.Seek(s.cfg.SkipSeconds) })
}

// SkipBackward seeks backward by the configured skip.
func (s *PlayerService) SkipBackward() error {
	return s.withPlayer("SkipBackward", func(p ports.PlayerProcess) error { return p.Seek(-s.cfg.SkipSeconds) })
}

// VolumeUp raises the volume by one step, capped at 100.
func (s *PlayerService) VolumeUp() error {
	return s.SetProperty("volume", min(s.Volume()+s.cfg.VolumeStep, 100))
}

// VolumeDown lowers the volume by one step, floored at 0.
func (s *PlayerService) VolumeDown() error {
	return s.SetProperty("volume", max(s.Volume()-s.cfg.VolumeStep, 0))
}

// ToggleMute flips the mute property.
func (s *PlayerService) ToggleMute() error {
	s.mu.RLock()
	muted, _ := s.properties["mute"].(bool)
	s.mu.RUnlock()
	return s.SetProperty("mute", !muted)
}

// Volume returns the mirrored volume (0-100), 100 when unknown.
func (s *PlayerService) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := toFloat(s.properties["volume"]); ok {
		return v
	}
	return 100
}

// Property returns the mirrored value of a property.
func (s *PlayerService) Property(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.properties[key]
	return v, ok
}

// Parameters returns the parameters the current instance was built with.
func (s *PlayerService) Parameters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.params...)
}

// State returns the lifecycle state of the process handle.
func (s *PlayerService) State() domain.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Running reports whether a started instance is alive.
func (s *PlayerService) Running() bool {
	s.mu.RLock()
	inst := s.instance
	s.mu.RUnlock()
	return inst != nil && inst.proc.Running()
}

// Shutdown unsubscribes from the bus and quits the player.
func (s *PlayerService) Shutdown() error {
	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}
	s.requests.close()
	s.Quit(context.Background())
	s.wg.Wait()
	return nil
}

func (s *PlayerService) withPlayer(op string, fn func(ports.PlayerProcess) error) error {
	s.mu.RLock()
	inst := s.instance
	s.mu.RUnlock()

	if inst == nil {
		return domain.ErrPlayerNotRunning
	}
	if err := fn(inst.proc); err != nil {
		s.logger.Debug("player command failed", slog.String("op", op), slog.Any("error", err))
		return err
	}
	return nil
}

// setState changes the state and publishes the transition. A non-nil inst
// must still be the current instance for the change to apply.
func (s *PlayerService) setState(inst *playerInstance, state domain.PlayerState) {
	s.mu.Lock()
	if inst != nil && s.instance != inst {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = state
	s.mu.Unlock()

	if old != state {
		s.bus.Publish(domain.NewPlayerStateEvent(old, state))
	}
}

// handleStatus translates process notifications into application events.
func (s *PlayerService) handleStatus(inst *playerInstance, status ports.PlayerStatus) {
	s.mu.RLock()
	current := s.instance == inst
	s.mu.RUnlock()
	if !current {
		return
	}

	switch status.Kind {
	case ports.StatusResumed:
		s.setState(inst, domain.PlayerPlaying)
		s.bus.Publish(domain.NewPlayerPlayEvent())
	case ports.StatusPaused:
		s.setState(inst, domain.PlayerPaused)
		s.bus.Publish(domain.NewPlayerPauseEvent())
	case ports.StatusStopped:
		s.setState(inst, domain.PlayerStopped)
		s.bus.Publish(domain.NewPlayerStopEvent())
	case ports.StatusTimePosition:
		s.bus.Publish(domain.NewCurrentTimeEvent(status.Seconds))
	case ports.StatusProperty:
		s.handleProperty(status.Property, status.Value)
	}
}

func (s *PlayerService) handleProperty(name string, value interface{}) {
	s.mu.Lock()
	s.properties[name] = value
	s.mu.Unlock()

	switch name {
	case "playlist-pos":
		// 0 is the entry loaded as current; anything else means mpv moved on
		if pos, ok := toFloat(value); ok && pos != 0 {
			s.bus.Publish(domain.NewAutoNextEvent(int(pos)))
		}
	case "volume":
		if v, ok := toFloat(value); ok {
			s.bus.Publish(domain.NewVolumeChangedEvent(v))
		}
	case "mute":
		if muted, ok := value.(bool); ok {
			s.bus.Publish(domain.NewMuteChangedEvent(muted))
		}
	}
}

func (s *PlayerService) handleSetProperties(event domain.Event) {
	e, ok := event.(domain.SetPropertiesEvent)
	if !ok {
		return
	}
	if err := s.SetProperties(e.Properties); err != nil && !errors.Is(err, domain.ErrPlayerNotRunning) {
		s.logger.Warn("failed to set properties", slog.Any("error", err))
	}
}

// handleLaunch queues the request; lifecycle changes block on process exit
// and the publisher must stay responsive.
func (s *PlayerService) handleLaunch(event domain.Event) {
	e, ok := event.(domain.PlayerLaunchEvent)
	if !ok {
		return
	}
	s.requests.push(func() {
		if e.Restart {
			s.Restart(e.ExtraParameters, e.Properties)
		} else {
			s.Initialize(e.ExtraParameters, e.Properties)
		}
	})
}

func (s *PlayerService) handleQuit(domain.Event) {
	s.requests.push(func() { s.Quit(context.Background()) })
}

// lifecycleQueue runs requests on one goroutine in the order they were
// pushed. The queue is unbounded so push never blocks.
type lifecycleQueue struct {
	mu     sync.Mutex
	ops    []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newLifecycleQueue() *lifecycleQueue {
	q := &lifecycleQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *lifecycleQueue) push(op func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.ops = append(q.ops, op)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.mu.Unlock()
}

// close drops requests that have not started and waits for the running one.
func (q *lifecycleQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.ops = nil
	close(q.wake)
	q.mu.Unlock()

	<-q.done
}

func (q *lifecycleQueue) run() {
	defer close(q.done)
	for range q.wake {
		for {
			q.mu.Lock()
			if len(q.ops) == 0 {
				q.mu.Unlock()
				break
			}
			op := q.ops[0]
			q.ops = q.ops[1:]
			q.mu.Unlock()
			op()
		}
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

var _ interface {
	Initialize([]string, map[string]interface{})
	Restart([]string, map[string]interface{})
	SetProperty(string, interface{}) error
	SetProperties(map[string]interface{}) error
	SetQueue(*domain.PlayerCommandData) error
	SetQueueNext(*domain.PlayerCommandData) error
} = (*PlayerService)(nil)
