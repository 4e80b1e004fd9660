// Package notify shows toasts as desktop notifications.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/flightmansam/feishin/internal/ports"
)

// Notifier sends desktop notifications through beeep. Identical messages
// within the repeat window are shown once.
type Notifier struct {
	logger *slog.Logger
	send   func(title, message string) error
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger.With(slog.String("service", "Notifier")),
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		window: 5 * time.Second,
		last:   make(map[string]time.Time),
	}
}

// Notify shows a notification.
func (n *Notifier) Notify(title, message string) error {
	key := title + "\x00" + message

	n.mu.Lock()
	if at, ok := n.last[key]; ok && time.Since(at) < n.window {
		n.mu.Unlock()
		n.logger.Debug("suppressed repeated notification", slog.String("title", title))
		return nil
	}
	n.last[key] = time.Now()
	n.mu.Unlock()

	if err := n.send(title, message); err != nil {
		return fmt.Errorf("notify %q: %w", title, err)
	}
	return nil
}

var _ ports.Notifier = (*Notifier)(nil)
