package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/logger"
)

type sent struct{ title, message string }

func newTestNotifier() (*Notifier, *[]sent) {
	n := NewNotifier(logger.NewTestLogger())
	var got []sent
	n.send = func(title, message string) error {
		got = append(got, sent{title, message})
		return nil
	}
	return n, &got
}

func TestNotifier_Notify(t *testing.T) {
	n, got := newTestNotifier()

	require.NoError(t, n.Notify("Could not save hotkeys", "disk full"))
	require.NoError(t, n.Notify("Could not save hotkeys", "disk full"))
	require.NoError(t, n.Notify("Could not save mpv path", "disk full"))

	assert.Equal(t, []sent{
		{"Could not save hotkeys", "disk full"},
		{"Could not save mpv path", "disk full"},
	}, *got)
}

func TestNotifier_RepeatAfterWindow(t *testing.T) {
	n, got := newTestNotifier()
	n.window = 10 * time.Millisecond

	require.NoError(t, n.Notify("a", "b"))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, n.Notify("a", "b"))
	assert.Len(t, *got, 2)
}

func TestNotifier_SendError(t *testing.T) {
	n := NewNotifier(logger.NewTestLogger())
	n.send = func(string, string) error { return errors.New("no notification daemon") }

	err := n.Notify("title", "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no notification daemon")
}
