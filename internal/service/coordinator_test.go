package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/adapter/player/mock"
	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/logger"
	"github.com/flightmansam/feishin/internal/ports"
)

type coordinatorFixture struct {
	coord    *Coordinator
	queue    *QueueService
	player   *PlayerService
	factory  *mock.Factory
	settings *mockSettingsRepository
	rec      *eventRecorder
}

func newCoordinatorFixture(t *testing.T, ids ...string) *coordinatorFixture {
	t.Helper()
	bus, rec := newRecordedBus(t)
	log := logger.NewTestLogger()

	settingsRepo := newMockSettingsRepository()
	queue := NewQueueService(newMockQueueRepository(), bus, log)
	factory := mock.NewFactory(nil)
	player := NewPlayerService(factory.New, settingsRepo, bus, log, DefaultPlayerServiceConfig())
	settings := NewSettingsService(settingsRepo, bus, nil, log)
	coord := NewCoordinator(queue, player, settings, bus, log)
	coord.Start()

	t.Cleanup(func() {
		_ = coord.Shutdown()
		_ = player.Shutdown()
	})

	if len(ids) > 0 {
		queue.AddSongs(makeSongs(ids...), AddLast)
	}
	return &coordinatorFixture{coord, queue, player, factory, settingsRepo, rec}
}

func (f *coordinatorFixture) start(t *testing.T) *mock.Player {
	t.Helper()
	startPlayer(t, f.player, nil, nil)
	f.rec.reset()
	return f.factory.Last()
}

func playlistIDs(p *mock.Player) []string {
	songs, _ := p.Playlist()
	return uniqueIDs(songs)
}

func TestCoordinator_PlaySong(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C")
	p := f.start(t)

	require.NoError(t, f.coord.PlaySong("B"))

	assert.Equal(t, []string{"B", "C"}, playlistIDs(p))
	assert.Equal(t, 1, p.CallCount("Play"))
	cur, _ := f.queue.CurrentSong()
	assert.Equal(t, "B", cur.UniqueID)
}

func TestCoordinator_PlayUnknownSongSendsNothing(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B")
	p := f.start(t)
	before := p.CallCount("SetQueue")

	require.NoError(t, f.coord.PlaySong("X"))

	assert.Equal(t, before, p.CallCount("SetQueue"))
	assert.Equal(t, 0, p.CallCount("Play"))
	assert.Empty(t, f.rec.ofType(domain.EventCurrentSongChanged))
}

func TestCoordinator_WebBackendLeavesPlayerAlone(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C")
	f.settings.backend = domain.BackendWeb
	p := f.start(t)
	before := len(p.Calls())

	require.NoError(t, f.coord.PlaySong("A"))
	require.NoError(t, f.coord.MoveSongs([]string{"C"}, "B"))
	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandNext))

	assert.Len(t, p.Calls(), before)
	assert.Equal(t, []string{"A", "C", "B"}, uniqueIDs(f.queue.Queue()))
	cur, _ := f.queue.CurrentSong()
	assert.Equal(t, "C", cur.UniqueID)
}

func TestCoordinator_MoveSongs(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C", "D")
	p := f.start(t)
	require.NoError(t, f.coord.PlaySong("A"))

	require.NoError(t, f.coord.MoveSongs([]string{"D"}, "B"))

	assert.Equal(t, []string{"A", "D", "B", "C"}, uniqueIDs(f.queue.Queue()))
	assert.Equal(t, []string{"A", "D"}, playlistIDs(p))

	calls := p.CallCount("SetQueueNext")
	require.NoError(t, f.coord.MoveSongs(nil, "B"))
	assert.Equal(t, calls, p.CallCount("SetQueueNext"))
}

func TestCoordinator_CommandNext(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C")
	p := f.start(t)
	require.NoError(t, f.coord.PlaySong("A"))

	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandNext))
	assert.Equal(t, []string{"B", "C"}, playlistIDs(p))

	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandNext))
	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandNext)) // end of queue: ignored
	assert.Equal(t, []string{"C"}, playlistIDs(p))

	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandPrevious))
	assert.Equal(t, []string{"B", "C"}, playlistIDs(p))
}

func TestCoordinator_AutoNext(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C")
	p := f.start(t)
	require.NoError(t, f.coord.PlaySong("A"))

	// mpv moved onto the prefetched entry
	p.Emit(ports.PlayerStatus{Kind: ports.StatusProperty, Property: "playlist-pos", Value: 1.0})

	cur, _ := f.queue.CurrentSong()
	assert.Equal(t, "B", cur.UniqueID)
	last, ok := p.LastCall("SetQueueNext")
	require.True(t, ok)
	data := last.Args[0].(*domain.PlayerCommandData)
	assert.Equal(t, []string{"B", "C"}, uniqueIDs(data.Songs))
}

func TestCoordinator_EmptiedPlaylistKeepsCurrent(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C")
	p := f.start(t)
	require.NoError(t, f.coord.PlaySong("A"))
	next := p.CallCount("SetQueueNext")

	p.Emit(ports.PlayerStatus{Kind: ports.StatusProperty, Property: "playlist-pos", Value: -1.0})

	require.Len(t, f.rec.ofType(domain.EventPlayerAutoNext), 1)
	cur, _ := f.queue.CurrentSong()
	assert.Equal(t, "A", cur.UniqueID)
	assert.Equal(t, next, p.CallCount("SetQueueNext"))
}

func TestCoordinator_RepeatOne(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B")
	p := f.start(t)
	require.NoError(t, f.coord.PlaySong("A"))

	require.NoError(t, f.coord.ToggleRepeat()) // all
	loop, _ := p.Property("loop-file")
	assert.Equal(t, "no", loop)
	require.NoError(t, f.coord.ToggleRepeat()) // one
	loop, _ = p.Property("loop-file")
	assert.Equal(t, "inf", loop)

	p.Emit(ports.PlayerStatus{Kind: ports.StatusProperty, Property: "playlist-pos", Value: 1.0})
	cur, _ := f.queue.CurrentSong()
	assert.Equal(t, "A", cur.UniqueID)
}

func TestCoordinator_PlayerCommands(t *testing.T) {
	f := newCoordinatorFixture(t, "A")
	p := f.start(t)

	// play on a fresh player loads the current song first
	_, err := f.queue.SetCurrentTrack("A")
	require.NoError(t, err)
	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandPlayPause))
	assert.Equal(t, []string{"A"}, playlistIDs(p))
	assert.Equal(t, 1, p.CallCount("Play"))

	p.Emit(ports.PlayerStatus{Kind: ports.StatusResumed})
	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandPlayPause))
	assert.Equal(t, 1, p.CallCount("TogglePause"))

	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandVolumeDown))
	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandSkipForward))
	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandStop))
	assert.Equal(t, 95.0, f.player.Volume())
	assert.Equal(t, 1, p.CallCount("Seek"))
	assert.Equal(t, 1, p.CallCount("Stop"))
}

func TestCoordinator_RestoresQueueOnStart(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B", "C")
	_, err := f.queue.SetCurrentTrack("B")
	require.NoError(t, err)

	startPlayer(t, f.player, nil, nil)
	p := f.factory.Last()

	require.Eventually(t, func() bool { return p.CallCount("Pause") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"B", "C"}, playlistIDs(p))
	loop, _ := p.Property("loop-file")
	assert.Equal(t, "no", loop)
}

func TestCoordinator_SongMetadataEvents(t *testing.T) {
	f := newCoordinatorFixture(t)
	songs := makeSongs("A", "B", "C")
	songs[0].ID, songs[0].ServerID = "cat-1", "srv"
	songs[1].ID, songs[1].ServerID = "cat-2", "srv"
	songs[2].ID, songs[2].ServerID = "cat-1", "srv"
	f.queue.AddSongs(songs, AddLast)

	f.player.bus.Publish(domain.NewSongFavoriteEvent([]string{"cat-1"}, "srv", true))
	f.player.bus.Publish(domain.NewSongRatingEvent([]string{"cat-2"}, "srv", 3))
	f.player.bus.Publish(domain.NewSongRatingEvent([]string{"cat-2"}, "elsewhere", 1))

	queue := f.queue.Queue()
	assert.True(t, queue[0].UserFavorite)
	assert.False(t, queue[1].UserFavorite)
	assert.True(t, queue[2].UserFavorite)
	assert.Equal(t, 3, queue[1].UserRating)
}

func TestCoordinator_Shutdown(t *testing.T) {
	f := newCoordinatorFixture(t, "A", "B")
	p := f.start(t)
	require.NoError(t, f.coord.Shutdown())

	f.player.bus.Publish(domain.NewCommandEvent(domain.EventCommandNext))
	assert.Equal(t, 0, p.CallCount("SetQueue"))
}
