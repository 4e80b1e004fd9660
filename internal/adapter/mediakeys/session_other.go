//go:build !linux

package mediakeys

import (
	"log/slog"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// Session is a media-key surface that is never available.
type Session struct{}

// NewSession returns a session whose Enable always fails with
// domain.ErrMediaKeysUnsupported.
func NewSession(*slog.Logger) *Session {
	return &Session{}
}

func (s *Session) Enable(func(domain.BindingAction)) error {
	return domain.ErrMediaKeysUnsupported
}

func (s *Session) Disable() error { return nil }

func (s *Session) Enabled() bool { return false }

func (s *Session) UpdatePlayback(domain.PlayerState, domain.QueueSong) {}

var _ ports.MediaKeySession = (*Session)(nil)
