// Package mediakeys exposes playback to the OS media-key surface. Linux uses
// MPRIS over the D-Bus session bus; other platforms report
// domain.ErrMediaKeysUnsupported.
package mediakeys

import (
	"github.com/flightmansam/feishin/internal/domain"
)

// playbackStatus is the MPRIS spelling of a player state.
func playbackStatus(state domain.PlayerState) string {
	switch state {
	case domain.PlayerPlaying:
		return "Playing"
	case domain.PlayerPaused:
		return "Paused"
	default:
		return "Stopped"
	}
}
