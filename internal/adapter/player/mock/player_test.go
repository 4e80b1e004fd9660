package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

func songs(ids ...string) []domain.QueueSong {
	out := make([]domain.QueueSong, len(ids))
	for i, id := range ids {
		out[i] = domain.QueueSong{UniqueID: id, ID: id}
	}
	return out
}

func TestPlayer_Lifecycle(t *testing.T) {
	f := NewFactory(nil)
	p := f.New([]string{"--prefetch-playlist=yes"}, domain.ProcessOptions{AudioOnly: true}).(*Player)

	assert.False(t, p.Running())
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	assert.Equal(t, 1, f.Alive())
	assert.ErrorIs(t, p.Start(context.Background()), domain.ErrPlayerAlreadyRunning)

	require.NoError(t, p.Quit(context.Background()))
	require.NoError(t, p.Quit(context.Background()))
	assert.False(t, p.Running())
	assert.Equal(t, 0, f.Alive())
	assert.Equal(t, 1, f.MaxAlive())

	select {
	case <-p.Done():
	default:
		t.Fatal("Done must be closed after Quit")
	}
}

func TestPlayer_FailStart(t *testing.T) {
	f := NewFactory(nil)
	f.SetFailStart(true)
	p := f.New(nil, domain.ProcessOptions{Binary: "mpv"})

	err := p.Start(context.Background())
	var procErr *domain.PlayerProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "start", procErr.Op)
	assert.Equal(t, 0, f.Alive())
}

func TestPlayer_CommandsNeedRunningProcess(t *testing.T) {
	p := NewPlayer(nil, domain.ProcessOptions{})

	assert.ErrorIs(t, p.Play(), domain.ErrPlayerNotRunning)
	assert.ErrorIs(t, p.SetQueue(&domain.PlayerCommandData{}), domain.ErrPlayerNotRunning)
	assert.NoError(t, p.SetProperty("volume", 50), "properties are buffered before start")
	assert.Equal(t, 1, p.CallCount("Play"))
}

func TestPlayer_Queue(t *testing.T) {
	p := NewPlayer(nil, domain.ProcessOptions{})
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.SetQueue(&domain.PlayerCommandData{Songs: songs("a", "b", "c")}))
	playlist, pos := p.Playlist()
	assert.Equal(t, songs("a", "b"), playlist)
	assert.Equal(t, 0, pos)

	require.NoError(t, p.SetQueueNext(&domain.PlayerCommandData{Songs: songs("a", "c")}))
	playlist, _ = p.Playlist()
	assert.Equal(t, songs("a", "c"), playlist)

	require.NoError(t, p.Next())
	require.NoError(t, p.SetQueueNext(&domain.PlayerCommandData{Songs: songs("c")}))
	playlist, pos = p.Playlist()
	assert.Equal(t, songs("a", "c"), playlist)
	assert.Equal(t, 1, pos)
}

func TestPlayer_Emit(t *testing.T) {
	p := NewPlayer(nil, domain.ProcessOptions{})

	var got []ports.PlayerStatusKind
	p.Subscribe(func(s ports.PlayerStatus) { got = append(got, s.Kind) })
	p.Subscribe(func(s ports.PlayerStatus) { got = append(got, s.Kind+100) })

	p.Emit(ports.PlayerStatus{Kind: ports.StatusPaused})

	assert.Equal(t, []ports.PlayerStatusKind{ports.StatusPaused, ports.StatusPaused + 100}, got)
}
