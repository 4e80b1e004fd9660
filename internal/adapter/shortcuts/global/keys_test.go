package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/domain"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		hotkey string
		valid  bool
	}{
		{"mod+shift+p", true},
		{"alt+f5", true},
		{"ctrl+space", true},
		{"mod+right", true},
		{"mediaplaypause", false},
		{"volumeup", false},
		{"ctrl+f24", false},
	}

	for _, tt := range tests {
		t.Run(tt.hotkey, func(t *testing.T) {
			acc, err := domain.ParseHotkey(tt.hotkey)
			require.NoError(t, err)

			_, err = keyFor(acc.Key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidHotkey)
			}
		})
	}
}

func TestModifiersFor(t *testing.T) {
	acc, err := domain.ParseHotkey("mod+ctrl+shift+k")
	require.NoError(t, err)

	mods, err := modifiersFor(acc)
	require.NoError(t, err)
	// mod and ctrl collapse everywhere except macOS
	assert.GreaterOrEqual(t, len(mods), 2)
	assert.LessOrEqual(t, len(mods), 3)

	plain, err := modifiersFor(domain.Accelerator{Key: "F1"})
	require.NoError(t, err)
	assert.Empty(t, plain)
}
