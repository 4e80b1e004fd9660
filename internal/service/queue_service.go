// Package service provides the business logic of the feishin playback core.
package service

import (
	"log/slog"
	"math/rand"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// AddPosition says where AddSongs inserts.
type AddPosition int

const (
	// AddLast appends to the end of the queue
	AddLast AddPosition = iota
	// AddNext inserts right after the current song
	AddNext
	// AddNow replaces the queue and makes the first added song current
	AddNow
)

// QueueService is the single source of truth for the play queue.
//
// The current and previous pointers are UniqueIDs, so reordering never
// changes which slot is current. Every mutation returns the forward-looking
// PlayerCommandData for the caller to hand to the player, and publishes
// queue events after the lock is released.
type QueueService struct {
	logger *slog.Logger
	repo   ports.QueueRepository
	bus    ports.EventBus

	mu       sync.RWMutex
	queue    []domain.QueueSong
	current  string
	previous string
	shuffle  bool
	repeat   domain.RepeatMode

	// unshuffled order, kept while shuffle is on
	ordered []string

	shuffleFn func([]domain.QueueSong)
}

// NewQueueService creates a new queue service. repo may be nil to disable persistence.
func NewQueueService(repo ports.QueueRepository, bus ports.EventBus, logger *slog.Logger) *QueueService {
	return &QueueService{
		logger: logger.With(slog.String("service", "QueueService")),
		repo:   repo,
		bus:    bus,
		queue:  make([]domain.QueueSong, 0),
		shuffleFn: func(songs []domain.QueueSong) {
			rand.Shuffle(len(songs), func(i, j int) { songs[i], songs[j] = songs[j], songs[i] })
		},
	}
}

// queueChange describes what a mutation did, for publishing after unlock.
type queueChange struct {
	orderChanged   bool
	currentChanged bool
	snapshot       []domain.QueueSong
	currentIndex   int
	prevSong       domain.QueueSong
	prevIndex      int
	curSong        domain.QueueSong
}

// SetCurrentTrack makes uniqueID the current song; the former current becomes previous.
// An id that is not in the queue changes nothing and returns domain.ErrSongNotInQueue.
func (s *QueueService) SetCurrentTrack(uniqueID string) (*domain.PlayerCommandData, error) {
	s.mu.Lock()
	if s.indexOfLocked(uniqueID) < 0 {
		s.mu.Unlock()
		return nil, domain.ErrSongNotInQueue
	}
	change := s.moveCurrentLocked(uniqueID)
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	return data, nil
}

// ReorderQueue moves the selected slots so they sit immediately before targetID,
// keeping their relative order. The block goes to the end when targetID is
// empty, unknown, or itself part of the selection. Ids missing from the queue
// are ignored. An empty selection returns domain.ErrEmptySelection.
func (s *QueueService) ReorderQueue(movedIDs []string, targetID string) (*domain.PlayerCommandData, error) {
	if len(movedIDs) == 0 {
		return nil, domain.ErrEmptySelection
	}

	moved := lo.SliceToMap(movedIDs, func(id string) (string, bool) { return id, true })

	s.mu.Lock()
	moving := lo.Filter(s.queue, func(song domain.QueueSong, _ int) bool { return moved[song.UniqueID] })
	if len(moving) == 0 {
		data := s.playerDataLocked()
		s.mu.Unlock()
		return data, nil
	}
	rest := lo.Reject(s.queue, func(song domain.QueueSong, _ int) bool { return moved[song.UniqueID] })

	insertAt := len(rest)
	if targetID != "" && !moved[targetID] {
		if i := slices.IndexFunc(rest, func(song domain.QueueSong) bool { return song.UniqueID == targetID }); i >= 0 {
			insertAt = i
		}
	}

	reordered := make([]domain.QueueSong, 0, len(s.queue))
	reordered = append(reordered, rest[:insertAt]...)
	reordered = append(reordered, moving...)
	reordered = append(reordered, rest[insertAt:]...)
	s.queue = reordered
	if s.shuffle {
		// a manual reorder becomes the order shuffle-off returns to
		s.ordered = s.uniqueIDsLocked()
	}

	change := queueChange{orderChanged: true}
	s.fillSnapshotLocked(&change)
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	return data, nil
}

// AddSongs inserts songs into the queue. Songs get a fresh UniqueID when they
// have none. With AddNow the queue is replaced and the first song becomes current.
func (s *QueueService) AddSongs(songs []domain.QueueSong, position AddPosition) *domain.PlayerCommandData {
	added := lo.Map(songs, func(song domain.QueueSong, _ int) domain.QueueSong {
		if song.UniqueID == "" {
			return song.WithUniqueID()
		}
		return song
	})

	s.mu.Lock()
	change := queueChange{orderChanged: true}
	switch position {
	case AddNow:
		s.queue = added
		s.ordered = nil
		if s.shuffle {
			s.ordered = s.uniqueIDsLocked()
		}
		s.current, s.previous = "", ""
		if len(added) > 0 {
			c := s.moveCurrentLocked(added[0].UniqueID)
			change.currentChanged = c.currentChanged
		}
	case AddNext:
		at := s.indexOfLocked(s.current) + 1
		s.queue = slices.Insert(slices.Clone(s.queue), at, added...)
	default:
		s.queue = append(s.queue, added...)
	}
	if s.shuffle && position != AddNow {
		s.ordered = append(s.ordered, lo.Map(added, func(song domain.QueueSong, _ int) string { return song.UniqueID })...)
	}

	s.fillSnapshotLocked(&change)
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	return data
}

// RemoveSongs removes slots by UniqueID. When the current song is removed,
// the song that takes its place becomes current.
func (s *QueueService) RemoveSongs(uniqueIDs []string) *domain.PlayerCommandData {
	remove := lo.SliceToMap(uniqueIDs, func(id string) (string, bool) { return id, true })

	s.mu.Lock()
	curIdx := s.indexOfLocked(s.current)
	s.queue = lo.Reject(s.queue, func(song domain.QueueSong, _ int) bool { return remove[song.UniqueID] })
	s.ordered = lo.Reject(s.ordered, func(id string, _ int) bool { return remove[id] })
	if remove[s.previous] {
		s.previous = ""
	}

	change := queueChange{orderChanged: true}
	if remove[s.current] {
		old := s.current
		s.current = ""
		// the slot that slid into the removed position
		if curIdx >= len(s.queue) {
			curIdx = len(s.queue) - 1
		}
		if curIdx >= 0 {
			s.current = s.queue[curIdx].UniqueID
		}
		s.previous = ""
		change.currentChanged = old != s.current
	}

	s.fillSnapshotLocked(&change)
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	return data
}

// Clear empties the queue.
func (s *QueueService) Clear() {
	s.mu.Lock()
	hadCurrent := s.current != ""
	s.queue = make([]domain.QueueSong, 0)
	s.ordered = nil
	s.current, s.previous = "", ""

	change := queueChange{orderChanged: true, currentChanged: hadCurrent}
	s.fillSnapshotLocked(&change)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
}

// Next moves to the following song. At the end of the queue it wraps when
// repeat is all and otherwise returns domain.ErrEndOfQueue.
func (s *QueueService) Next() (*domain.PlayerCommandData, error) {
	return s.step(1)
}

// Previous moves to the preceding song. At the start of the queue it wraps
// when repeat is all and otherwise returns domain.ErrStartOfQueue.
func (s *QueueService) Previous() (*domain.PlayerCommandData, error) {
	return s.step(-1)
}

// AutoNext follows the player advancing on its own. With repeat one the
// current song is kept.
func (s *QueueService) AutoNext() (*domain.PlayerCommandData, error) {
	s.mu.RLock()
	repeat := s.repeat
	s.mu.RUnlock()

	if repeat == domain.RepeatOne {
		return s.PlayerData(), nil
	}
	return s.step(1)
}

func (s *QueueService) step(delta int) (*domain.PlayerCommandData, error) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return nil, domain.ErrQueueEmpty
	}

	idx := s.indexOfLocked(s.current)
	target := idx + delta
	if idx < 0 {
		target = 0
	}
	if target >= len(s.queue) || target < 0 {
		if s.repeat != domain.RepeatAll {
			s.mu.Unlock()
			if delta > 0 {
				return nil, domain.ErrEndOfQueue
			}
			return nil, domain.ErrStartOfQueue
		}
		target = (target + len(s.queue)) % len(s.queue)
	}

	change := s.moveCurrentLocked(s.queue[target].UniqueID)
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	return data, nil
}

// ToggleShuffle turns shuffle on or off and returns the new state.
// Turning it on shuffles every song after the current one; turning it off
// restores the order the queue had before.
func (s *QueueService) ToggleShuffle() (bool, *domain.PlayerCommandData) {
	s.mu.Lock()
	s.shuffle = !s.shuffle
	if s.shuffle {
		s.ordered = s.uniqueIDsLocked()
		at := s.indexOfLocked(s.current) + 1
		tail := slices.Clone(s.queue[at:])
		s.shuffleFn(tail)
		s.queue = append(slices.Clone(s.queue[:at]), tail...)
	} else if s.ordered != nil {
		byID := lo.KeyBy(s.queue, func(song domain.QueueSong) string { return song.UniqueID })
		restored := make([]domain.QueueSong, 0, len(s.queue))
		for _, id := range s.ordered {
			if song, ok := byID[id]; ok {
				restored = append(restored, song)
				delete(byID, id)
			}
		}
		// anything the order list does not know keeps its relative position at the end
		for _, song := range s.queue {
			if _, ok := byID[song.UniqueID]; ok {
				restored = append(restored, song)
			}
		}
		s.queue = restored
		s.ordered = nil
	}
	enabled := s.shuffle

	change := queueChange{orderChanged: true}
	s.fillSnapshotLocked(&change)
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	s.bus.Publish(domain.NewShuffleChangedEvent(enabled))
	return enabled, data
}

// ToggleRepeat cycles none, all, one and returns the new mode.
func (s *QueueService) ToggleRepeat() (domain.RepeatMode, *domain.PlayerCommandData) {
	s.mu.Lock()
	s.repeat = s.repeat.Next()
	mode := s.repeat
	data := s.playerDataLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewRepeatChangedEvent(mode))
	return mode, data
}

// UpdateSongs applies update to every slot holding the catalog song
// (id, serverID) and returns how many slots changed.
func (s *QueueService) UpdateSongs(id, serverID string, update func(song *domain.QueueSong)) int {
	s.mu.Lock()
	updated := 0
	for i := range s.queue {
		if s.queue[i].ID == id && s.queue[i].ServerID == serverID {
			update(&s.queue[i])
			updated++
		}
	}
	if updated == 0 {
		s.mu.Unlock()
		return 0
	}
	change := queueChange{orderChanged: true}
	s.fillSnapshotLocked(&change)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(change)
	return updated
}

// SetFavorite updates the favorite flag of every slot holding the given songs.
func (s *QueueService) SetFavorite(ids []string, serverID string, favorite bool) int {
	n := 0
	for _, id := range lo.Uniq(ids) {
		n += s.UpdateSongs(id, serverID, func(song *domain.QueueSong) { song.UserFavorite = favorite })
	}
	return n
}

// SetRating updates the rating of every slot holding the given songs.
func (s *QueueService) SetRating(ids []string, serverID string, rating int) int {
	n := 0
	for _, id := range lo.Uniq(ids) {
		n += s.UpdateSongs(id, serverID, func(song *domain.QueueSong) { song.UserRating = rating })
	}
	return n
}

// Queue returns a copy of the queue.
func (s *QueueService) Queue() []domain.QueueSong {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.queue)
}

// CurrentSong returns the current song, if any.
func (s *QueueService) CurrentSong() (domain.QueueSong, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.songLocked(s.current)
}

// PreviousSong returns the song that was current before the current one, if it is still queued.
func (s *QueueService) PreviousSong() (domain.QueueSong, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.songLocked(s.previous)
}

// CurrentIndex returns the index of the current song, or -1.
func (s *QueueService) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(s.current)
}

// PreviousIndex returns the index of the previous song, or -1.
func (s *QueueService) PreviousIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(s.previous)
}

// PlayerData returns the forward-looking payload for the current state.
func (s *QueueService) PlayerData() *domain.PlayerCommandData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerDataLocked()
}

// Shuffle reports whether shuffle is on.
func (s *QueueService) Shuffle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuffle
}

// Repeat returns the repeat mode.
func (s *QueueService) Repeat() domain.RepeatMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repeat
}

// Load restores the queue saved by a previous run.
func (s *QueueService) Load() error {
	if s.repo == nil {
		return nil
	}

	songs, err := s.repo.LoadQueue()
	if err != nil {
		return err
	}
	current, err := s.repo.LoadCurrent()
	if err != nil {
		return err
	}
	shuffle, repeat, err := s.repo.LoadModes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.queue = songs
	s.current, s.previous = "", ""
	if s.indexOfLocked(current) >= 0 {
		s.current = current
	}
	s.shuffle = shuffle
	s.repeat = repeat
	s.ordered = nil
	if shuffle {
		s.ordered = s.uniqueIDsLocked()
	}
	change := queueChange{orderChanged: true, currentChanged: s.current != ""}
	s.fillSnapshotLocked(&change)
	s.mu.Unlock()

	s.logger.Info("queue restored", slog.Int("songs", len(songs)), slog.Int("current", change.currentIndex))
	s.publish(change)
	return nil
}

// Shutdown persists the queue.
func (s *QueueService) Shutdown() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveQueue(s.queue); err != nil {
		return err
	}
	if err := s.repo.SaveCurrent(s.current); err != nil {
		return err
	}
	return s.repo.SaveModes(s.shuffle, s.repeat)
}

// moveCurrentLocked sets current, remembering the former current as previous.
func (s *QueueService) moveCurrentLocked(uniqueID string) queueChange {
	change := queueChange{}
	if uniqueID != s.current {
		s.previous = s.current
		s.current = uniqueID
		change.currentChanged = true
	}
	s.fillSnapshotLocked(&change)
	return change
}

func (s *QueueService) fillSnapshotLocked(change *queueChange) {
	change.currentIndex = s.indexOfLocked(s.current)
	change.prevIndex = s.indexOfLocked(s.previous)
	change.curSong, _ = s.songLocked(s.current)
	change.prevSong, _ = s.songLocked(s.previous)
	if change.orderChanged {
		change.snapshot = slices.Clone(s.queue)
	}
}

// playerDataLocked builds the payload: the queue from the current song on,
// followed by the wrapped-around head when repeat is all.
func (s *QueueService) playerDataLocked() *domain.PlayerCommandData {
	idx := s.indexOfLocked(s.current)
	if idx < 0 {
		return &domain.PlayerCommandData{Songs: []domain.QueueSong{}, CurrentIndex: -1}
	}
	songs := slices.Clone(s.queue[idx:])
	if s.repeat == domain.RepeatAll {
		songs = append(songs, s.queue[:idx]...)
	}
	return &domain.PlayerCommandData{Songs: songs, CurrentIndex: idx}
}

func (s *QueueService) indexOfLocked(uniqueID string) int {
	if uniqueID == "" {
		return -1
	}
	return slices.IndexFunc(s.queue, func(song domain.QueueSong) bool { return song.UniqueID == uniqueID })
}

func (s *QueueService) songLocked(uniqueID string) (domain.QueueSong, bool) {
	if i := s.indexOfLocked(uniqueID); i >= 0 {
		return s.queue[i], true
	}
	return domain.QueueSong{}, false
}

func (s *QueueService) uniqueIDsLocked() []string {
	return lo.Map(s.queue, func(song domain.QueueSong, _ int) string { return song.UniqueID })
}

// persistLocked saves the queue; failures are logged, never returned.
func (s *QueueService) persistLocked() {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveQueue(s.queue); err != nil {
		s.logger.Warn("failed to persist queue", slog.Any("error", err))
	}
	if err := s.repo.SaveCurrent(s.current); err != nil {
		s.logger.Warn("failed to persist current song", slog.Any("error", err))
	}
	if err := s.repo.SaveModes(s.shuffle, s.repeat); err != nil {
		s.logger.Warn("failed to persist queue modes", slog.Any("error", err))
	}
}

func (s *QueueService) publish(change queueChange) {
	if change.orderChanged {
		s.bus.Publish(domain.NewQueueChangedEvent(change.snapshot, change.currentIndex))
	}
	if change.currentChanged {
		s.bus.Publish(domain.NewCurrentSongChangedEvent(change.prevSong, change.prevIndex, change.curSong, change.currentIndex))
	}
}

var _ interface {
	SetCurrentTrack(string) (*domain.PlayerCommandData, error)
	ReorderQueue([]string, string) (*domain.PlayerCommandData, error)
	CurrentSong() (domain.QueueSong, bool)
	PreviousSong() (domain.QueueSong, bool)
	Queue() []domain.QueueSong
	CurrentIndex() int
} = (*QueueService)(nil)
