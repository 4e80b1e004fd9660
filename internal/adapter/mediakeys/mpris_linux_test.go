//go:build linux

package mediakeys

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/logger"
)

func TestSession_EnableWithoutBus(t *testing.T) {
	s := NewSession(logger.NewTestLogger())
	s.connect = func() (*dbus.Conn, error) { return nil, errors.New("no session bus") }

	err := s.Enable(func(domain.BindingAction) {})
	require.Error(t, err)
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Disable())

	// no connection: mirrored state is kept for the next enable
	s.UpdatePlayback(domain.PlayerPlaying, domain.QueueSong{UniqueID: "a", Title: "Song"})
	state, song := s.snapshot()
	assert.Equal(t, domain.PlayerPlaying, state)
	assert.Equal(t, "Song", song.Title)
}

func TestPlayerMethodsDispatchActions(t *testing.T) {
	s := NewSession(logger.NewTestLogger())
	var got []domain.BindingAction
	s.handler = func(a domain.BindingAction) { got = append(got, a) }

	p := &mprisPlayer{s: s}
	p.Play()
	p.Pause()
	p.PlayPause()
	p.Stop()
	p.Next()
	p.Previous()
	p.Seek(5_000_000)
	p.Seek(-5_000_000)
	p.Seek(0)

	assert.Equal(t, []domain.BindingAction{
		domain.ActionPlay,
		domain.ActionPause,
		domain.ActionPlayPause,
		domain.ActionStop,
		domain.ActionNext,
		domain.ActionPrevious,
		domain.ActionSkipForward,
		domain.ActionSkipBackward,
	}, got)
}

func TestProperties(t *testing.T) {
	s := NewSession(logger.NewTestLogger())
	s.UpdatePlayback(domain.PlayerPaused, domain.QueueSong{
		UniqueID: "5f0c-11",
		Title:    "Title",
		Artist:   "Artist",
		Duration: 3 * time.Second,
	})
	props := &mprisProperties{s: s}

	status, derr := props.Get(mprisPlayerInterface, "PlaybackStatus")
	require.Nil(t, derr)
	assert.Equal(t, "Paused", status.Value())

	meta, derr := props.Get(mprisPlayerInterface, "Metadata")
	require.Nil(t, derr)
	m := meta.Value().(map[string]dbus.Variant)
	assert.Equal(t, "Title", m["xesam:title"].Value())
	assert.Equal(t, []string{"Artist"}, m["xesam:artist"].Value())
	assert.Equal(t, int64(3_000_000), m["mpris:length"].Value())
	assert.Equal(t, dbus.ObjectPath("/org/feishin/track/5f0c_11"), m["mpris:trackid"].Value())

	identityProp, derr := props.Get(mprisInterface, "Identity")
	require.Nil(t, derr)
	assert.Equal(t, identity, identityProp.Value())

	_, derr = props.Get(mprisPlayerInterface, "Volume")
	assert.NotNil(t, derr)
	_, derr = props.GetAll("org.example.Nope")
	assert.NotNil(t, derr)
	assert.NotNil(t, props.Set(mprisPlayerInterface, "Shuffle", dbus.MakeVariant(true)))
}

func TestPlaybackStatus(t *testing.T) {
	assert.Equal(t, "Playing", playbackStatus(domain.PlayerPlaying))
	assert.Equal(t, "Paused", playbackStatus(domain.PlayerPaused))
	assert.Equal(t, "Stopped", playbackStatus(domain.PlayerReady))
	assert.Equal(t, "Stopped", playbackStatus(domain.PlayerTerminated))
}
