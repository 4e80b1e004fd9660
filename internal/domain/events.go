// Package domain defines events for the event-driven architecture.
// Events connect the UI, the queue, the player process and the OS shell without direct references.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Player status events, translated from the player process
	EventPlayerPlay        EventType = "player.play"
	EventPlayerPause       EventType = "player.pause"
	EventPlayerStop        EventType = "player.stop"
	EventPlayerCurrentTime EventType = "player.current_time"
	EventPlayerAutoNext    EventType = "player.auto_next"
	EventPlayerState       EventType = "player.state_changed"
	EventPlayerError       EventType = "player.error"
	EventVolumeChanged     EventType = "player.volume_changed"
	EventMuteChanged       EventType = "player.mute_changed"

	// Player commands, raised by hotkeys, media keys, tray and remote clients.
	// They live in their own namespace so a status echo never re-triggers a command.
	EventCommandPlay          EventType = "command.play"
	EventCommandPause         EventType = "command.pause"
	EventCommandStop          EventType = "command.stop"
	EventCommandPlayPause     EventType = "command.play_pause"
	EventCommandNext          EventType = "command.next"
	EventCommandPrevious      EventType = "command.previous"
	EventCommandVolumeUp      EventType = "command.volume_up"
	EventCommandVolumeDown    EventType = "command.volume_down"
	EventCommandVolumeMute    EventType = "command.volume_mute"
	EventCommandSkipForward   EventType = "command.skip_forward"
	EventCommandSkipBackward  EventType = "command.skip_backward"
	EventCommandToggleShuffle EventType = "command.toggle_shuffle"
	EventCommandToggleRepeat  EventType = "command.toggle_repeat"

	// Player process control requests
	EventSetProperties    EventType = "player.set_properties"
	EventPlayerRestart    EventType = "player.restart"
	EventPlayerInitialize EventType = "player.initialize"
	EventPlayerQuit       EventType = "player.quit"

	// Queue events
	EventQueueChanged       EventType = "queue.changed"
	EventCurrentSongChanged EventType = "queue.current_changed"

	// Server-side song metadata changes
	EventSongFavorite EventType = "song.favorite_changed"
	EventSongRating   EventType = "song.rating_changed"

	// Playback mode events
	EventShuffleChanged EventType = "mode.shuffle_changed"
	EventRepeatChanged  EventType = "mode.repeat_changed"

	// Settings events
	EventHotkeysChanged   EventType = "settings.hotkeys_changed"
	EventMediaKeysToggled EventType = "settings.media_keys_toggled"

	// Renderer-only actions; the core only routes them to the window
	EventGlobalSearch           EventType = "ui.global_search"
	EventLocalSearch            EventType = "ui.local_search"
	EventToggleQueue            EventType = "ui.toggle_queue"
	EventToggleFullscreenPlayer EventType = "ui.toggle_fullscreen_player"

	// Shell events
	EventShowWindow EventType = "window.show"
	EventAppQuit    EventType = "app.quit"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
)

// actionEvents maps every bindable action to the event it raises.
var actionEvents = map[BindingAction]EventType{
	ActionGlobalSearch:           EventGlobalSearch,
	ActionLocalSearch:            EventLocalSearch,
	ActionVolumeMute:             EventCommandVolumeMute,
	ActionNext:                   EventCommandNext,
	ActionPause:                  EventCommandPause,
	ActionPlay:                   EventCommandPlay,
	ActionPlayPause:              EventCommandPlayPause,
	ActionPrevious:               EventCommandPrevious,
	ActionToggleShuffle:          EventCommandToggleShuffle,
	ActionSkipBackward:           EventCommandSkipBackward,
	ActionSkipForward:            EventCommandSkipForward,
	ActionStop:                   EventCommandStop,
	ActionToggleFullscreenPlayer: EventToggleFullscreenPlayer,
	ActionToggleQueue:            EventToggleQueue,
	ActionToggleRepeat:           EventCommandToggleRepeat,
	ActionVolumeDown:             EventCommandVolumeDown,
	ActionVolumeUp:               EventCommandVolumeUp,
}

// EventForAction returns the event raised when the action's hotkey fires.
func EventForAction(action BindingAction) (EventType, bool) {
	t, ok := actionEvents[action]
	return t, ok
}

// IsCommandEvent reports whether t is a parameterless command that can be
// published as a CommandEvent.
func IsCommandEvent(t EventType) bool {
	for _, et := range actionEvents {
		if et == t {
			return true
		}
	}
	return t == EventShowWindow || t == EventAppQuit || t == EventPlayerQuit
}

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// CommandEvent is a parameterless player or shell command.
// The same struct carries play, pause, stop, next and the other command types.
type CommandEvent struct {
	baseEvent
	Command EventType
}

// Type returns the command's event type.
func (e CommandEvent) Type() EventType {
	return e.Command
}

// NewCommandEvent creates a new CommandEvent of the given type.
func NewCommandEvent(command EventType) CommandEvent {
	return CommandEvent{
		baseEvent: newBaseEvent(),
		Command:   command,
	}
}

// PlayerStatusEvent reports that the player process resumed, paused or stopped.
type PlayerStatusEvent struct {
	baseEvent
	Status EventType
}

// Type returns EventPlayerPlay, EventPlayerPause or EventPlayerStop.
func (e PlayerStatusEvent) Type() EventType {
	return e.Status
}

// NewPlayerPlayEvent creates the event for a resumed player.
func NewPlayerPlayEvent() PlayerStatusEvent {
	return PlayerStatusEvent{baseEvent: newBaseEvent(), Status: EventPlayerPlay}
}

// NewPlayerPauseEvent creates the event for a paused player.
func NewPlayerPauseEvent() PlayerStatusEvent {
	return PlayerStatusEvent{baseEvent: newBaseEvent(), Status: EventPlayerPause}
}

// NewPlayerStopEvent creates the event for a stopped player.
func NewPlayerStopEvent() PlayerStatusEvent {
	return PlayerStatusEvent{baseEvent: newBaseEvent(), Status: EventPlayerStop}
}

// CurrentTimeEvent is published while playing with the playback position.
type CurrentTimeEvent struct {
	baseEvent
	Seconds float64
}

// Type returns the event type.
func (e CurrentTimeEvent) Type() EventType {
	return EventPlayerCurrentTime
}

// NewCurrentTimeEvent creates a new CurrentTimeEvent.
func NewCurrentTimeEvent(seconds float64) CurrentTimeEvent {
	return CurrentTimeEvent{
		baseEvent: newBaseEvent(),
		Seconds:   seconds,
	}
}

// Position returns the playback position as a duration.
func (e CurrentTimeEvent) Position() time.Duration {
	return time.Duration(e.Seconds * float64(time.Second))
}

// AutoNextEvent is published when the player process advanced its playlist on its own.
type AutoNextEvent struct {
	baseEvent
	PlaylistPos int
}

// Type returns the event type.
func (e AutoNextEvent) Type() EventType {
	return EventPlayerAutoNext
}

// NewAutoNextEvent creates a new AutoNextEvent.
func NewAutoNextEvent(playlistPos int) AutoNextEvent {
	return AutoNextEvent{
		baseEvent:   newBaseEvent(),
		PlaylistPos: playlistPos,
	}
}

// PlayerStateEvent is published on every lifecycle transition of the process handle.
type PlayerStateEvent struct {
	baseEvent
	Old PlayerState
	New PlayerState
}

// Type returns the event type.
func (e PlayerStateEvent) Type() EventType {
	return EventPlayerState
}

// NewPlayerStateEvent creates a new PlayerStateEvent.
func NewPlayerStateEvent(oldState, newState PlayerState) PlayerStateEvent {
	return PlayerStateEvent{
		baseEvent: newBaseEvent(),
		Old:       oldState,
		New:       newState,
	}
}

// PlayerErrorEvent is published when a player operation fails.
type PlayerErrorEvent struct {
	baseEvent
	Op  string
	Err error
}

// Type returns the event type.
func (e PlayerErrorEvent) Type() EventType {
	return EventPlayerError
}

// NewPlayerErrorEvent creates a new PlayerErrorEvent.
func NewPlayerErrorEvent(op string, err error) PlayerErrorEvent {
	return PlayerErrorEvent{
		baseEvent: newBaseEvent(),
		Op:        op,
		Err:       err,
	}
}

// VolumeChangedEvent is published when the player reports a new volume (0-100).
type VolumeChangedEvent struct {
	baseEvent
	Volume float64
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// MuteChangedEvent is published when the player reports a mute change.
type MuteChangedEvent struct {
	baseEvent
	Muted bool
}

// Type returns the event type.
func (e MuteChangedEvent) Type() EventType {
	return EventMuteChanged
}

// NewMuteChangedEvent creates a new MuteChangedEvent.
func NewMuteChangedEvent(muted bool) MuteChangedEvent {
	return MuteChangedEvent{
		baseEvent: newBaseEvent(),
		Muted:     muted,
	}
}

// SetPropertiesEvent asks the player controller to apply properties.
type SetPropertiesEvent struct {
	baseEvent
	Properties map[string]interface{}
}

// Type returns the event type.
func (e SetPropertiesEvent) Type() EventType {
	return EventSetProperties
}

// NewSetPropertiesEvent creates a new SetPropertiesEvent.
func NewSetPropertiesEvent(properties map[string]interface{}) SetPropertiesEvent {
	return SetPropertiesEvent{
		baseEvent:  newBaseEvent(),
		Properties: properties,
	}
}

// PlayerLaunchEvent asks the player controller to initialize or restart the process.
type PlayerLaunchEvent struct {
	baseEvent
	Restart         bool
	ExtraParameters []string
	Properties      map[string]interface{}
}

// Type returns EventPlayerRestart or EventPlayerInitialize.
func (e PlayerLaunchEvent) Type() EventType {
	if e.Restart {
		return EventPlayerRestart
	}
	return EventPlayerInitialize
}

// NewPlayerInitializeEvent creates a request to start the player process.
func NewPlayerInitializeEvent(extraParameters []string, properties map[string]interface{}) PlayerLaunchEvent {
	return PlayerLaunchEvent{
		baseEvent:       newBaseEvent(),
		ExtraParameters: extraParameters,
		Properties:      properties,
	}
}

// NewPlayerRestartEvent creates a request to replace the player process.
func NewPlayerRestartEvent(extraParameters []string, properties map[string]interface{}) PlayerLaunchEvent {
	return PlayerLaunchEvent{
		baseEvent:       newBaseEvent(),
		Restart:         true,
		ExtraParameters: extraParameters,
		Properties:      properties,
	}
}

// QueueChangedEvent is published when the queue contents or order change.
type QueueChangedEvent struct {
	baseEvent
	Songs        []QueueSong
	CurrentIndex int
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(songs []QueueSong, currentIndex int) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent:    newBaseEvent(),
		Songs:        songs,
		CurrentIndex: currentIndex,
	}
}

// CurrentSongChangedEvent is published when the current pointer moves.
// Indexes are -1 when the corresponding pointer is empty.
type CurrentSongChangedEvent struct {
	baseEvent
	Previous      QueueSong
	PreviousIndex int
	Current       QueueSong
	CurrentIndex  int
}

// Type returns the event type.
func (e CurrentSongChangedEvent) Type() EventType {
	return EventCurrentSongChanged
}

// NewCurrentSongChangedEvent creates a new CurrentSongChangedEvent.
func NewCurrentSongChangedEvent(previous QueueSong, previousIndex int, current QueueSong, currentIndex int) CurrentSongChangedEvent {
	return CurrentSongChangedEvent{
		baseEvent:     newBaseEvent(),
		Previous:      previous,
		PreviousIndex: previousIndex,
		Current:       current,
		CurrentIndex:  currentIndex,
	}
}

// ShuffleChangedEvent is published when shuffle is toggled.
type ShuffleChangedEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e ShuffleChangedEvent) Type() EventType {
	return EventShuffleChanged
}

// NewShuffleChangedEvent creates a new ShuffleChangedEvent.
func NewShuffleChangedEvent(enabled bool) ShuffleChangedEvent {
	return ShuffleChangedEvent{
		baseEvent: newBaseEvent(),
		Enabled:   enabled,
	}
}

// RepeatChangedEvent is published when the repeat mode changes.
type RepeatChangedEvent struct {
	baseEvent
	Mode RepeatMode
}

// Type returns the event type.
func (e RepeatChangedEvent) Type() EventType {
	return EventRepeatChanged
}

// NewRepeatChangedEvent creates a new RepeatChangedEvent.
func NewRepeatChangedEvent(mode RepeatMode) RepeatChangedEvent {
	return RepeatChangedEvent{
		baseEvent: newBaseEvent(),
		Mode:      mode,
	}
}

// HotkeysChangedEvent is published after the hotkey table is saved.
type HotkeysChangedEvent struct {
	baseEvent
	Table HotkeyTable
}

// Type returns the event type.
func (e HotkeysChangedEvent) Type() EventType {
	return EventHotkeysChanged
}

// NewHotkeysChangedEvent creates a new HotkeysChangedEvent.
func NewHotkeysChangedEvent(table HotkeyTable) HotkeysChangedEvent {
	return HotkeysChangedEvent{
		baseEvent: newBaseEvent(),
		Table:     table,
	}
}

// MediaKeysToggledEvent is published when the global media hotkeys setting changes.
type MediaKeysToggledEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e MediaKeysToggledEvent) Type() EventType {
	return EventMediaKeysToggled
}

// NewMediaKeysToggledEvent creates a new MediaKeysToggledEvent.
func NewMediaKeysToggledEvent(enabled bool) MediaKeysToggledEvent {
	return MediaKeysToggledEvent{
		baseEvent: newBaseEvent(),
		Enabled:   enabled,
	}
}

// ScanStartedEvent is published when a library scan begins.
type ScanStartedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(path string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// ScanProgressEvent is published for every file examined during a scan.
type ScanProgressEvent struct {
	baseEvent
	FilesScanned int
	CurrentFile  string
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(filesScanned int, currentFile string) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent:    newBaseEvent(),
		FilesScanned: filesScanned,
		CurrentFile:  currentFile,
	}
}

// ScanCompletedEvent is published when a scan finishes.
type ScanCompletedEvent struct {
	baseEvent
	Songs []QueueSong
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(songs []QueueSong) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent: newBaseEvent(),
		Songs:     songs,
	}
}

// ScanCancelledEvent is published when a scan is canceled.
type ScanCancelledEvent struct {
	baseEvent
	FilesScanned int
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(filesScanned int) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent:    newBaseEvent(),
		FilesScanned: filesScanned,
	}
}

// SongFavoriteEvent reports that the server changed the favorite flag of songs.
type SongFavoriteEvent struct {
	baseEvent
	IDs      []string
	ServerID string
	Favorite bool
}

// Type returns the event type.
func (e SongFavoriteEvent) Type() EventType {
	return EventSongFavorite
}

// NewSongFavoriteEvent creates a new SongFavoriteEvent.
func NewSongFavoriteEvent(ids []string, serverID string, favorite bool) SongFavoriteEvent {
	return SongFavoriteEvent{
		baseEvent: newBaseEvent(),
		IDs:       ids,
		ServerID:  serverID,
		Favorite:  favorite,
	}
}

// SongRatingEvent reports that the server changed the rating of songs.
// A rating of 0 clears it.
type SongRatingEvent struct {
	baseEvent
	IDs      []string
	ServerID string
	Rating   int
}

// Type returns the event type.
func (e SongRatingEvent) Type() EventType {
	return EventSongRating
}

// NewSongRatingEvent creates a new SongRatingEvent.
func NewSongRatingEvent(ids []string, serverID string, rating int) SongRatingEvent {
	return SongRatingEvent{
		baseEvent: newBaseEvent(),
		IDs:       ids,
		ServerID:  serverID,
		Rating:    rating,
	}
}
