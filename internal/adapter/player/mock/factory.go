package mock

import (
	"log/slog"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// Factory builds mock players and counts how many are alive at once.
type Factory struct {
	logger *slog.Logger

	mu        sync.Mutex
	players   []*Player
	alive     int
	maxAlive  int
	failStart bool
}

// NewFactory creates a factory. A nil logger is allowed.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

// SetFailStart makes every player built afterwards fail to start.
func (f *Factory) SetFailStart(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStart = fail
}

// New builds a player; its signature matches ports.PlayerFactory.
func (f *Factory) New(params []string, options domain.ProcessOptions) ports.PlayerProcess {
	p := NewPlayer(params, options)
	p.factory = f
	p.logger = f.logger

	f.mu.Lock()
	defer f.mu.Unlock()
	p.failStart = f.failStart
	f.players = append(f.players, p)
	return p
}

// Players returns every player built so far.
func (f *Factory) Players() []*Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Player(nil), f.players...)
}

// Last returns the most recently built player, or nil.
func (f *Factory) Last() *Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.players) == 0 {
		return nil
	}
	return f.players[len(f.players)-1]
}

// Alive returns how many players are running now.
func (f *Factory) Alive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

// MaxAlive returns the highest number of players that were running at the same time.
func (f *Factory) MaxAlive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxAlive
}

func (f *Factory) started() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive++
	if f.alive > f.maxAlive {
		f.maxAlive = f.alive
	}
}

func (f *Factory) stopped() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive--
}

var _ ports.PlayerFactory = (*Factory)(nil).New
