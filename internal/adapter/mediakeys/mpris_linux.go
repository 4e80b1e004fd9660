//go:build linux

package mediakeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	propertiesInterface  = "org.freedesktop.DBus.Properties"
	mprisBusName         = "org.mpris.MediaPlayer2.feishin"
	mprisObjectPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	identity             = "Feishin"
)

// Session publishes an MPRIS player on the session bus while enabled.
//
// Thread-safety: This implementation is thread-safe.
type Session struct {
	logger  *slog.Logger
	connect func() (*dbus.Conn, error)

	mu      sync.Mutex
	conn    *dbus.Conn
	handler func(domain.BindingAction)
	state   domain.PlayerState
	song    domain.QueueSong
}

// NewSession creates a disabled session.
func NewSession(logger *slog.Logger) *Session {
	return &Session{
		logger:  logger.With(slog.String("service", "MPRIS")),
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Enable claims the MPRIS bus name and exports the player objects.
func (s *Session) Enable(handler func(domain.BindingAction)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.handler = handler
		return nil
	}

	conn, err := s.connect()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}

	reply, err := conn.RequestName(mprisBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("request %s: %w", mprisBusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = conn.Close()
		return fmt.Errorf("request %s: name already taken", mprisBusName)
	}

	exports := []struct {
		v     interface{}
		iface string
	}{
		{&mprisRoot{}, mprisInterface},
		{&mprisPlayer{s: s}, mprisPlayerInterface},
		{&mprisProperties{s: s}, propertiesInterface},
	}
	for _, e := range exports {
		if err := conn.Export(e.v, mprisObjectPath, e.iface); err != nil {
			_ = conn.Close()
			return fmt.Errorf("export %s: %w", e.iface, err)
		}
	}

	s.conn = conn
	s.handler = handler
	s.logger.Debug("media keys enabled", slog.String("bus_name", mprisBusName))
	return nil
}

// Disable releases the bus name. Safe to call when not enabled.
func (s *Session) Disable() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.handler = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if _, err := conn.ReleaseName(mprisBusName); err != nil {
		s.logger.Debug("failed to release bus name", slog.Any("error", err))
	}
	return conn.Close()
}

// Enabled reports whether the player is published.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// UpdatePlayback emits PropertiesChanged for the status and metadata.
func (s *Session) UpdatePlayback(state domain.PlayerState, song domain.QueueSong) {
	s.mu.Lock()
	s.state = state
	s.song = song
	conn := s.conn
	changed := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(playbackStatus(state)),
		"Metadata":       dbus.MakeVariant(metadataOf(song)),
	}
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Emit(mprisObjectPath, propertiesInterface+".PropertiesChanged", mprisPlayerInterface, changed, []string{}); err != nil {
		s.logger.Debug("failed to emit PropertiesChanged", slog.Any("error", err))
	}
}

func (s *Session) dispatch(action domain.BindingAction) *dbus.Error {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler != nil {
		handler(action)
	}
	return nil
}

func (s *Session) snapshot() (domain.PlayerState, domain.QueueSong) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.song
}

func metadataOf(song domain.QueueSong) map[string]dbus.Variant {
	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")),
	}
	if song.UniqueID == "" {
		return m
	}
	// object paths allow only [A-Za-z0-9_]
	m["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath("/org/feishin/track/" + trackPathElement(song.UniqueID)))
	if song.Title != "" {
		m["xesam:title"] = dbus.MakeVariant(song.Title)
	}
	if song.Artist != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{song.Artist})
	}
	if song.Album != "" {
		m["xesam:album"] = dbus.MakeVariant(song.Album)
	}
	if song.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(song.Duration.Microseconds())
	}
	return m
}

func trackPathElement(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// mprisRoot serves org.mpris.MediaPlayer2.
type mprisRoot struct{}

func (r *mprisRoot) Raise() *dbus.Error { return nil }

func (r *mprisRoot) Quit() *dbus.Error { return nil }

// mprisPlayer serves org.mpris.MediaPlayer2.Player.
type mprisPlayer struct {
	s *Session
}

func (p *mprisPlayer) Play() *dbus.Error      { return p.s.dispatch(domain.ActionPlay) }
func (p *mprisPlayer) Pause() *dbus.Error     { return p.s.dispatch(domain.ActionPause) }
func (p *mprisPlayer) PlayPause() *dbus.Error { return p.s.dispatch(domain.ActionPlayPause) }
func (p *mprisPlayer) Stop() *dbus.Error      { return p.s.dispatch(domain.ActionStop) }
func (p *mprisPlayer) Next() *dbus.Error      { return p.s.dispatch(domain.ActionNext) }
func (p *mprisPlayer) Previous() *dbus.Error  { return p.s.dispatch(domain.ActionPrevious) }

func (p *mprisPlayer) Seek(offset int64) *dbus.Error {
	switch {
	case offset > 0:
		return p.s.dispatch(domain.ActionSkipForward)
	case offset < 0:
		return p.s.dispatch(domain.ActionSkipBackward)
	}
	return nil
}

// mprisProperties serves org.freedesktop.DBus.Properties.
type mprisProperties struct {
	s *Session
}

func (p *mprisProperties) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	all, derr := p.GetAll(iface)
	if derr != nil {
		return dbus.Variant{}, derr
	}
	v, ok := all[prop]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	return v, nil
}

func (p *mprisProperties) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return map[string]dbus.Variant{
			"CanQuit":             dbus.MakeVariant(false),
			"CanRaise":            dbus.MakeVariant(false),
			"HasTrackList":        dbus.MakeVariant(false),
			"Identity":            dbus.MakeVariant(identity),
			"SupportedUriSchemes": dbus.MakeVariant([]string{}),
			"SupportedMimeTypes":  dbus.MakeVariant([]string{}),
		}, nil
	case mprisPlayerInterface:
		state, song := p.s.snapshot()
		return map[string]dbus.Variant{
			"PlaybackStatus": dbus.MakeVariant(playbackStatus(state)),
			"Metadata":       dbus.MakeVariant(metadataOf(song)),
			"Rate":           dbus.MakeVariant(1.0),
			"MinimumRate":    dbus.MakeVariant(1.0),
			"MaximumRate":    dbus.MakeVariant(1.0),
			"CanGoNext":      dbus.MakeVariant(true),
			"CanGoPrevious":  dbus.MakeVariant(true),
			"CanPlay":        dbus.MakeVariant(true),
			"CanPause":       dbus.MakeVariant(true),
			"CanSeek":        dbus.MakeVariant(true),
			"CanControl":     dbus.MakeVariant(true),
		}, nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

func (p *mprisProperties) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	return dbus.MakeFailedError(fmt.Errorf("property %s is read-only", prop))
}

var _ ports.MediaKeySession = (*Session)(nil)
