package service

import (
	"slices"
	"sync"
	"testing"

	"github.com/flightmansam/feishin/internal/adapter/eventbus"
	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/logger"
)

// Mock repositories for testing

type mockQueueRepository struct {
	mu      sync.RWMutex
	songs   []domain.QueueSong
	current string
	shuffle bool
	repeat  domain.RepeatMode
	saves   int
}

func newMockQueueRepository() *mockQueueRepository {
	return &mockQueueRepository{songs: []domain.QueueSong{}}
}

func (m *mockQueueRepository) SaveQueue(songs []domain.QueueSong) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.songs = slices.Clone(songs)
	m.saves++
	return nil
}

func (m *mockQueueRepository) LoadQueue() ([]domain.QueueSong, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.songs), nil
}

func (m *mockQueueRepository) SaveCurrent(uniqueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = uniqueID
	return nil
}

func (m *mockQueueRepository) LoadCurrent() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

func (m *mockQueueRepository) SaveModes(shuffle bool, repeat domain.RepeatMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffle, m.repeat = shuffle, repeat
	return nil
}

func (m *mockQueueRepository) LoadModes() (bool, domain.RepeatMode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shuffle, m.repeat, nil
}

func (m *mockQueueRepository) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.songs, m.current = nil, ""
	return nil
}

type mockSettingsRepository struct {
	mu         sync.RWMutex
	backend    domain.PlayerBackend
	mediaKeys  bool
	mpvPath    string
	params     []string
	properties map[string]interface{}
	tables     map[domain.TableID]domain.TableConfig
	hotkeys    domain.HotkeyTable
	failSave   error
}

func newMockSettingsRepository() *mockSettingsRepository {
	return &mockSettingsRepository{
		backend:    domain.BackendLocal,
		mediaKeys:  true,
		properties: map[string]interface{}{},
		tables:     map[domain.TableID]domain.TableConfig{},
		hotkeys:    domain.DefaultHotkeyTable(),
	}
}

func (m *mockSettingsRepository) PlayerBackend() (domain.PlayerBackend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend, nil
}

func (m *mockSettingsRepository) SavePlayerBackend(b domain.PlayerBackend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend = b
	return m.failSave
}

func (m *mockSettingsRepository) GlobalMediaHotkeys() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mediaKeys, nil
}

func (m *mockSettingsRepository) SaveGlobalMediaHotkeys(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.mediaKeys = enabled
	return nil
}

func (m *mockSettingsRepository) MpvPath() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mpvPath, nil
}

func (m *mockSettingsRepository) SaveMpvPath(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mpvPath = path
	return m.failSave
}

func (m *mockSettingsRepository) MpvParameters() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.params), nil
}

func (m *mockSettingsRepository) SaveMpvParameters(params []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = slices.Clone(params)
	return m.failSave
}

func (m *mockSettingsRepository) MpvProperties() (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]interface{}, len(m.properties))
	for k, v := range m.properties {
		out[k] = v
	}
	return out, nil
}

func (m *mockSettingsRepository) SaveMpvProperties(p map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties = p
	return m.failSave
}

func (m *mockSettingsRepository) TableConfig(id domain.TableID) (domain.TableConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cfg, ok := m.tables[id]; ok {
		return cfg, nil
	}
	return domain.DefaultQueueTableConfig(), nil
}

func (m *mockSettingsRepository) SaveTableConfig(id domain.TableID, cfg domain.TableConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.tables[id] = cfg
	return nil
}

func (m *mockSettingsRepository) Hotkeys() (domain.HotkeyTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := domain.HotkeyTable{}
	for k, v := range m.hotkeys {
		out[k] = v
	}
	return out, nil
}

func (m *mockSettingsRepository) SaveHotkeys(table domain.HotkeyTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.hotkeys = table
	return nil
}

// eventRecorder collects every event published on a bus.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) record(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type()
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newRecordedBus(t *testing.T) (*eventbus.SyncEventBus, *eventRecorder) {
	t.Helper()
	bus := eventbus.NewSyncEventBus(logger.NewTestLogger())
	rec := &eventRecorder{}
	bus.SubscribeAll(rec.record)
	t.Cleanup(func() { _ = bus.Close() })
	return bus, rec
}

func makeSongs(ids ...string) []domain.QueueSong {
	out := make([]domain.QueueSong, len(ids))
	for i, id := range ids {
		out[i] = domain.QueueSong{
			UniqueID:  id,
			ID:        "song-" + id,
			ServerID:  "srv",
			Title:     "Title " + id,
			StreamURL: "http://srv/stream/" + id,
		}
	}
	return out
}

func uniqueIDs(songs []domain.QueueSong) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.UniqueID
	}
	return out
}

type mockMediaKeySession struct {
	mu        sync.Mutex
	enabled   bool
	handler   func(domain.BindingAction)
	enables   int
	disables  int
	enableErr error
	lastState domain.PlayerState
	lastSong  domain.QueueSong
}

func (m *mockMediaKeySession) Enable(handler func(domain.BindingAction)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enableErr != nil {
		return m.enableErr
	}
	m.enabled = true
	m.handler = handler
	m.enables++
	return nil
}

func (m *mockMediaKeySession) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.handler = nil
	m.disables++
	return nil
}

func (m *mockMediaKeySession) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *mockMediaKeySession) UpdatePlayback(state domain.PlayerState, song domain.QueueSong) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastState, m.lastSong = state, song
}

func (m *mockMediaKeySession) press(action domain.BindingAction) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(action)
	}
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, title+": "+message)
	return nil
}

func (m *mockNotifier) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}
