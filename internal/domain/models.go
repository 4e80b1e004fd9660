// Package domain contains core business models and logic with no external dependencies.
// This package defines the queue, player and hotkey entities of the feishin playback core.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LocalServerID is the server id given to songs imported from the local filesystem.
const LocalServerID = "local"

// QueueSong is one slot of the play queue.
// The same catalog song may appear in several slots; each slot has its own UniqueID.
type QueueSong struct {
	// UniqueID identifies this queue slot. It is stable across reorders.
	UniqueID string

	// ID is the catalog id of the song on its server
	ID string

	// ServerID identifies the server the song came from
	ServerID string

	Title    string
	Artist   string
	Album    string
	Duration time.Duration

	// StreamURL is the locator handed to the player process (URL or file path)
	StreamURL string

	UserFavorite bool
	UserRating   int
}

// NewUniqueID returns a fresh queue slot identifier.
func NewUniqueID() string {
	return uuid.New().String()
}

// WithUniqueID returns a copy of the song with a newly assigned UniqueID.
func (s QueueSong) WithUniqueID() QueueSong {
	s.UniqueID = NewUniqueID()
	return s
}

// SameCatalogSong reports whether two slots refer to the same server song.
func (s QueueSong) SameCatalogSong(other QueueSong) bool {
	return s.ID == other.ID && s.ServerID == other.ServerID
}

// PlayerCommandData is the forward-looking payload sent to the player process.
// Songs holds the queue from the current song onward: Songs[0] is current.
type PlayerCommandData struct {
	Songs []QueueSong

	// CurrentIndex is the index of the current song within the whole queue
	CurrentIndex int
}

// Current returns the song that should be playing, if any.
func (d *PlayerCommandData) Current() (QueueSong, bool) {
	if d == nil || len(d.Songs) == 0 {
		return QueueSong{}, false
	}
	return d.Songs[0], true
}

// Next returns the song that follows the current one, if any.
func (d *PlayerCommandData) Next() (QueueSong, bool) {
	if d == nil || len(d.Songs) < 2 {
		return QueueSong{}, false
	}
	return d.Songs[1], true
}

// PlayerState is the lifecycle state of the player process handle.
type PlayerState int

const (
	PlayerUninitialized PlayerState = iota
	PlayerStarting
	PlayerReady
	PlayerPlaying
	PlayerPaused
	PlayerStopped
	PlayerTerminated
)

// String returns a human-readable state name.
func (s PlayerState) String() string {
	switch s {
	case PlayerUninitialized:
		return "uninitialized"
	case PlayerStarting:
		return "starting"
	case PlayerReady:
		return "ready"
	case PlayerPlaying:
		return "playing"
	case PlayerPaused:
		return "paused"
	case PlayerStopped:
		return "stopped"
	case PlayerTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Alive reports whether a process instance exists in this state.
func (s PlayerState) Alive() bool {
	return s != PlayerUninitialized && s != PlayerTerminated
}

// PlayerBackend selects where audio is rendered.
type PlayerBackend string

const (
	BackendLocal PlayerBackend = "local"
	BackendWeb   PlayerBackend = "web"
)

// RepeatMode controls what happens at the end of the current song or queue.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "none"
	}
}

// Next cycles none -> all -> one -> none.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// ProcessOptions configures the external player process.
type ProcessOptions struct {
	AudioOnly   bool
	AutoRestart bool

	// Binary is the player executable; empty means look it up on PATH
	Binary string

	// TimeUpdate throttles time position notifications
	TimeUpdate time.Duration
}

// TableColumn is one visible column of a table view.
type TableColumn struct {
	Column string  `json:"column"`
	Width  float32 `json:"width"`
}

// TableConfig is the persisted layout of one table view.
type TableConfig struct {
	Columns           []TableColumn `json:"columns"`
	AutoFit           bool          `json:"autoFit"`
	RowHeight         float32       `json:"rowHeight"`
	FollowCurrentSong bool          `json:"followCurrentSong"`
}

// DefaultRowHeight is used when a table config has no row height.
const DefaultRowHeight float32 = 40

// DefaultQueueTableConfig returns the layout used before the user customizes the queue.
func DefaultQueueTableConfig() TableConfig {
	return TableConfig{
		Columns: []TableColumn{
			{Column: "rowIndex", Width: 50},
			{Column: "title", Width: 300},
			{Column: "artist", Width: 200},
			{Column: "album", Width: 200},
			{Column: "duration", Width: 80},
		},
		AutoFit:           true,
		RowHeight:         DefaultRowHeight,
		FollowCurrentSong: true,
	}
}

// TableID names a persisted table view.
type TableID string

const (
	TableNowPlaying  TableID = "nowPlaying"
	TableSideQueue   TableID = "sideQueue"
	TableSideDrawer  TableID = "sideDrawerQueue"
	TableFullQueue   TableID = "fullScreen"
	TableSongs       TableID = "songs"
	TableAlbumDetail TableID = "albumDetail"
)
