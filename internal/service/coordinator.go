package service

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// Coordinator turns user gestures and commands into queue mutations and, when
// the local backend is active, hands the resulting payload to the player.
// It is the only component that calls both services.
type Coordinator struct {
	logger   *slog.Logger
	queue    *QueueService
	player   *PlayerService
	settings *SettingsService
	bus      ports.EventBus

	mu   sync.Mutex
	subs []domain.SubscriptionID
}

// NewCoordinator creates the coordinator. Call Start to subscribe it.
func NewCoordinator(queue *QueueService, player *PlayerService, settings *SettingsService, bus ports.EventBus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger:   logger.With(slog.String("service", "Coordinator")),
		queue:    queue,
		player:   player,
		settings: settings,
		bus:      bus,
	}
}

// Start subscribes to commands and player notifications.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) > 0 {
		return
	}

	player := func(op string, fn func() error) func() error {
		return func() error { return c.forward(op, fn) }
	}
	handlers := map[domain.EventType]func() error{
		domain.EventCommandPlay:          c.play,
		domain.EventCommandPause:         player("Pause", c.player.Pause),
		domain.EventCommandPlayPause:     c.playPause,
		domain.EventCommandStop:          player("Stop", c.player.Stop),
		domain.EventCommandNext:          c.Next,
		domain.EventCommandPrevious:      c.Previous,
		domain.EventCommandVolumeUp:      player("VolumeUp", c.player.VolumeUp),
		domain.EventCommandVolumeDown:    player("VolumeDown", c.player.VolumeDown),
		domain.EventCommandVolumeMute:    player("ToggleMute", c.player.ToggleMute),
		domain.EventCommandSkipForward:   player("SkipForward", c.player.SkipForward),
		domain.EventCommandSkipBackward:  player("SkipBackward", c.player.SkipBackward),
		domain.EventCommandToggleShuffle: c.ToggleShuffle,
		domain.EventCommandToggleRepeat:  c.ToggleRepeat,
	}
	for eventType, fn := range handlers {
		c.subs = append(c.subs, c.bus.Subscribe(eventType, c.command(eventType, fn)))
	}
	c.subs = append(c.subs,
		c.bus.Subscribe(domain.EventPlayerAutoNext, c.onAutoNext),
		c.bus.Subscribe(domain.EventPlayerState, c.onPlayerState),
		c.bus.Subscribe(domain.EventSongFavorite, c.onSongFavorite),
		c.bus.Subscribe(domain.EventSongRating, c.onSongRating),
	)
}

// Shutdown unsubscribes from the bus.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.subs {
		c.bus.Unsubscribe(id)
	}
	c.subs = nil
	return nil
}

// PlaySong makes the song current, loads it into the player and unpauses.
// Unknown ids are ignored and send nothing to the player.
func (c *Coordinator) PlaySong(uniqueID string) error {
	data, err := c.queue.SetCurrentTrack(uniqueID)
	if errors.Is(err, domain.ErrSongNotInQueue) {
		c.logger.Debug("ignoring play of unknown song", slog.String("unique_id", uniqueID))
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.forward("SetQueue", func() error { return c.player.SetQueue(data) }); err != nil {
		return err
	}
	return c.forward("Play", c.player.Play)
}

// MoveSongs reorders the queue and refreshes what the player plays next.
// An empty selection is ignored.
func (c *Coordinator) MoveSongs(movedIDs []string, targetID string) error {
	data, err := c.queue.ReorderQueue(movedIDs, targetID)
	if errors.Is(err, domain.ErrEmptySelection) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.forward("SetQueueNext", func() error { return c.player.SetQueueNext(data) })
}

// AddSongs inserts songs. AddNow starts playing the first of them.
func (c *Coordinator) AddSongs(songs []domain.QueueSong, position AddPosition) error {
	data := c.queue.AddSongs(songs, position)
	if position == AddNow {
		if err := c.forward("SetQueue", func() error { return c.player.SetQueue(data) }); err != nil {
			return err
		}
		return c.forward("Play", c.player.Play)
	}
	return c.forward("SetQueueNext", func() error { return c.player.SetQueueNext(data) })
}

// RemoveSongs removes slots. Removing the current song loads its successor.
func (c *Coordinator) RemoveSongs(uniqueIDs []string) error {
	before, _ := c.queue.CurrentSong()
	data := c.queue.RemoveSongs(uniqueIDs)
	after, ok := c.queue.CurrentSong()

	if ok && after.UniqueID != before.UniqueID {
		return c.forward("SetQueue", func() error { return c.player.SetQueue(data) })
	}
	if !ok && before.UniqueID != "" {
		return c.forward("Stop", c.player.Stop)
	}
	return c.forward("SetQueueNext", func() error { return c.player.SetQueueNext(data) })
}

// Next skips to the following song.
func (c *Coordinator) Next() error {
	return c.skip(c.queue.Next)
}

// Previous goes back to the preceding song.
func (c *Coordinator) Previous() error {
	return c.skip(c.queue.Previous)
}

// ToggleShuffle reshuffles what follows the current song.
func (c *Coordinator) ToggleShuffle() error {
	_, data := c.queue.ToggleShuffle()
	return c.forward("SetQueueNext", func() error { return c.player.SetQueueNext(data) })
}

// ToggleRepeat cycles the repeat mode. Repeat one loops the current file in
// the player; repeat all wraps the payload.
func (c *Coordinator) ToggleRepeat() error {
	mode, data := c.queue.ToggleRepeat()
	if err := c.forward("SetProperty", func() error { return c.player.SetProperty("loop-file", loopFile(mode)) }); err != nil {
		return err
	}
	return c.forward("SetQueueNext", func() error { return c.player.SetQueueNext(data) })
}

func (c *Coordinator) skip(step func() (*domain.PlayerCommandData, error)) error {
	data, err := step()
	if errors.Is(err, domain.ErrEndOfQueue) || errors.Is(err, domain.ErrStartOfQueue) || errors.Is(err, domain.ErrQueueEmpty) {
		c.logger.Debug("nothing to skip to", slog.Any("reason", err))
		return nil
	}
	if err != nil {
		return err
	}
	return c.forward("SetQueue", func() error { return c.player.SetQueue(data) })
}

func (c *Coordinator) play() error {
	switch c.player.State() {
	case domain.PlayerReady, domain.PlayerStopped:
		// nothing loaded yet
		data := c.queue.PlayerData()
		if _, ok := data.Current(); ok {
			if err := c.forward("SetQueue", func() error { return c.player.SetQueue(data) }); err != nil {
				return err
			}
		}
	}
	return c.forward("Play", c.player.Play)
}

func (c *Coordinator) playPause() error {
	switch c.player.State() {
	case domain.PlayerReady, domain.PlayerStopped:
		return c.play()
	}
	return c.forward("TogglePause", c.player.TogglePause)
}

// onAutoNext follows the player onto its next playlist entry. A negative
// position means mpv emptied its playlist (stop, or the last entry ended);
// the queue keeps its current song.
func (c *Coordinator) onAutoNext(event domain.Event) {
	if e, ok := event.(domain.AutoNextEvent); ok && e.PlaylistPos < 0 {
		c.logger.Debug("player playlist emptied", slog.Int("playlist_pos", e.PlaylistPos))
		return
	}
	data, err := c.queue.AutoNext()
	if err != nil {
		if !errors.Is(err, domain.ErrEndOfQueue) {
			c.logger.Warn("auto next failed", slog.Any("error", err))
		}
		return
	}
	if err := c.forward("SetQueueNext", func() error { return c.player.SetQueueNext(data) }); err != nil {
		c.logger.Warn("failed to queue next song", slog.Any("error", err))
	}
}

// onPlayerState restores the queue into a freshly started player, paused.
func (c *Coordinator) onPlayerState(event domain.Event) {
	e, ok := event.(domain.PlayerStateEvent)
	if !ok || e.New != domain.PlayerReady || !c.local() {
		return
	}

	if err := c.player.SetProperty("loop-file", loopFile(c.queue.Repeat())); err != nil {
		c.logger.Debug("failed to set loop-file", slog.Any("error", err))
	}
	data := c.queue.PlayerData()
	if _, ok := data.Current(); !ok {
		return
	}
	if err := c.player.SetQueue(data); err != nil {
		c.logger.Warn("failed to restore queue into player", slog.Any("error", err))
		return
	}
	if err := c.player.Pause(); err != nil {
		c.logger.Debug("failed to pause restored queue", slog.Any("error", err))
	}
}

func (c *Coordinator) onSongFavorite(event domain.Event) {
	if e, ok := event.(domain.SongFavoriteEvent); ok {
		c.queue.SetFavorite(e.IDs, e.ServerID, e.Favorite)
	}
}

func (c *Coordinator) onSongRating(event domain.Event) {
	if e, ok := event.(domain.SongRatingEvent); ok {
		c.queue.SetRating(e.IDs, e.ServerID, e.Rating)
	}
}

func (c *Coordinator) command(eventType domain.EventType, fn func() error) domain.EventHandler {
	return func(domain.Event) {
		if err := fn(); err != nil && !errors.Is(err, domain.ErrPlayerNotRunning) {
			c.logger.Warn("command failed", slog.String("command", string(eventType)), slog.Any("error", err))
		}
	}
}

// forward runs a player call only for the local backend. A missing player is
// not an error: the queue already changed and the next start restores it.
func (c *Coordinator) forward(op string, fn func() error) error {
	if !c.local() {
		return nil
	}
	if err := fn(); err != nil {
		if errors.Is(err, domain.ErrPlayerNotRunning) {
			c.logger.Debug("player not running", slog.String("op", op))
			return nil
		}
		return err
	}
	return nil
}

func (c *Coordinator) local() bool {
	return c.settings.PlayerBackend() == domain.BackendLocal
}

func loopFile(mode domain.RepeatMode) string {
	if mode == domain.RepeatOne {
		return "inf"
	}
	return "no"
}
