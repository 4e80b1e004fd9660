package memory

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

const (
	keyQueueSongs   = "queue.songs"
	keyQueueCurrent = "queue.current"
	keyQueueShuffle = "queue.shuffle"
	keyQueueRepeat  = "queue.repeat"
)

// QueueRepository implements ports.QueueRepository using Fyne preferences.
//
// Thread-safe: All operations protected by sync.RWMutex.
type QueueRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewQueueRepository creates a new queue repository.
func NewQueueRepository(prefs fyne.Preferences) *QueueRepository {
	return &QueueRepository{prefs: prefs}
}

// SaveQueue persists the queue.
func (r *QueueRepository) SaveQueue(songs []domain.QueueSong) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(songs)
	if err != nil {
		return domain.NewRepositoryError("SaveQueue", "queue", "failed to marshal songs", err)
	}
	r.prefs.SetString(keyQueueSongs, string(data))
	return nil
}

// LoadQueue returns the saved queue. Slots saved without a UniqueID get a fresh one.
func (r *QueueRepository) LoadQueue() ([]domain.QueueSong, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyQueueSongs)
	if data == "" {
		return []domain.QueueSong{}, nil
	}

	var songs []domain.QueueSong
	if err := json.Unmarshal([]byte(data), &songs); err != nil {
		return nil, domain.NewRepositoryError("LoadQueue", "queue", "failed to unmarshal songs", err)
	}
	for i := range songs {
		if songs[i].UniqueID == "" {
			songs[i].UniqueID = domain.NewUniqueID()
		}
	}
	return songs, nil
}

// SaveCurrent persists the current UniqueID.
func (r *QueueRepository) SaveCurrent(uniqueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if uniqueID == "" {
		r.prefs.RemoveValue(keyQueueCurrent)
		return nil
	}
	r.prefs.SetString(keyQueueCurrent, uniqueID)
	return nil
}

// LoadCurrent returns the saved current UniqueID.
func (r *QueueRepository) LoadCurrent() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefs.String(keyQueueCurrent), nil
}

// SaveModes persists shuffle and repeat.
func (r *QueueRepository) SaveModes(shuffle bool, repeat domain.RepeatMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetBool(keyQueueShuffle, shuffle)
	// stored as mode+1 because Fyne returns 0 for a missing key
	r.prefs.SetInt(keyQueueRepeat, int(repeat)+1)
	return nil
}

// LoadModes returns the saved shuffle and repeat modes.
func (r *QueueRepository) LoadModes() (bool, domain.RepeatMode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shuffle := r.prefs.BoolWithFallback(keyQueueShuffle, false)
	stored := r.prefs.Int(keyQueueRepeat)
	if stored <= 0 || stored > int(domain.RepeatOne)+1 {
		return shuffle, domain.RepeatNone, nil
	}
	return shuffle, domain.RepeatMode(stored - 1), nil
}

// Clear removes all saved queue data.
func (r *QueueRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyQueueSongs)
	r.prefs.RemoveValue(keyQueueCurrent)
	r.prefs.RemoveValue(keyQueueShuffle)
	r.prefs.RemoveValue(keyQueueRepeat)
	return nil
}

var _ ports.QueueRepository = (*QueueRepository)(nil)
