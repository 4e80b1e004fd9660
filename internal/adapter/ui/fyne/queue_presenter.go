package fyne

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/flightmansam/feishin/internal/debounce"
	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
	"github.com/flightmansam/feishin/internal/service"
)

// QueueDebounce is the quiet period for drag redraws and column persistence.
const QueueDebounce = 250 * time.Millisecond

// QueuePresenter drives a QueueView from the queue store and turns row
// gestures into coordinator calls.
//
// Thread-safety: All operations are thread-safe.
type QueuePresenter struct {
	logger   *slog.Logger
	queue    *service.QueueService
	coord    *service.Coordinator
	settings *service.SettingsService
	bus      ports.EventBus
	view     ports.QueueView
	tableID  domain.TableID

	redraw  *debounce.Debouncer
	persist *debounce.Debouncer

	mu     sync.Mutex
	layout *domain.TableConfig
	subs   []domain.SubscriptionID
}

// NewQueuePresenter creates a presenter for one queue table. Call Start to
// bind it to the queue.
func NewQueuePresenter(
	queue *service.QueueService,
	coord *service.Coordinator,
	settings *service.SettingsService,
	bus ports.EventBus,
	view ports.QueueView,
	tableID domain.TableID,
	delay time.Duration,
	logger *slog.Logger,
) *QueuePresenter {
	return &QueuePresenter{
		logger:   logger.With(slog.String("service", "QueuePresenter"), slog.String("table", string(tableID))),
		queue:    queue,
		coord:    coord,
		settings: settings,
		bus:      bus,
		view:     view,
		tableID:  tableID,
		redraw:   debounce.New(delay),
		persist:  debounce.New(delay),
	}
}

// Start subscribes to queue changes and renders the current projection.
func (p *QueuePresenter) Start() {
	p.mu.Lock()
	if len(p.subs) > 0 {
		p.mu.Unlock()
		return
	}
	p.subs = append(p.subs,
		p.bus.Subscribe(domain.EventQueueChanged, p.onQueueChanged),
		p.bus.Subscribe(domain.EventCurrentSongChanged, p.onCurrentSongChanged),
	)
	p.mu.Unlock()

	layout := p.Layout()
	p.view.ApplyLayout(layout.Columns, layout.RowHeight)
	p.view.SetRows(p.queue.Queue(), p.queue.CurrentIndex())
	if layout.FollowCurrentSong {
		if idx := p.queue.CurrentIndex(); idx >= 0 {
			p.view.ScrollTo(idx)
		}
	}
}

// Layout returns the table layout, read from settings on first use.
func (p *QueuePresenter) Layout() domain.TableConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layoutLocked()
}

func (p *QueuePresenter) layoutLocked() domain.TableConfig {
	if p.layout == nil {
		cfg := p.settings.TableConfig(p.tableID)
		if cfg.RowHeight <= 0 {
			cfg.RowHeight = domain.DefaultRowHeight
		}
		p.layout = &cfg
	}
	out := *p.layout
	out.Columns = slices.Clone(p.layout.Columns)
	return out
}

// OnRowDoubleTapped plays the song in that row.
func (p *QueuePresenter) OnRowDoubleTapped(uniqueID string) {
	if err := p.coord.PlaySong(uniqueID); err != nil {
		p.logger.Warn("failed to play song", slog.String("unique_id", uniqueID), slog.Any("error", err))
	}
}

// OnDragEnd moves the dragged rows before targetID and schedules a full
// redraw once dragging has settled.
func (p *QueuePresenter) OnDragEnd(movedIDs []string, targetID string) {
	if err := p.coord.MoveSongs(movedIDs, targetID); err != nil {
		p.logger.Warn("failed to move songs", slog.Any("error", err))
	}
	p.redraw.Trigger(p.view.RefreshAll)
}

// OnColumnsChanged records a resize or reorder and persists it once the
// user stops adjusting.
func (p *QueuePresenter) OnColumnsChanged(columns []domain.TableColumn) {
	columns = slices.Clone(columns)

	p.mu.Lock()
	cfg := p.layoutLocked()
	cfg.Columns = columns
	p.layout = &cfg
	p.mu.Unlock()

	p.persist.Trigger(func() {
		_ = p.settings.SaveTableColumns(p.tableID, columns)
		// stored widths may differ for auto-fit tables
		p.mu.Lock()
		p.layout = nil
		p.mu.Unlock()
	})
}

// SetFollowCurrentSong toggles scrolling to the current song.
func (p *QueuePresenter) SetFollowCurrentSong(follow bool) error {
	err := p.settings.UpdateTableConfig(p.tableID, func(cfg *domain.TableConfig) {
		cfg.FollowCurrentSong = follow
	})
	p.mu.Lock()
	p.layout = nil
	p.mu.Unlock()
	return err
}

// Shutdown writes any pending column change and unsubscribes.
func (p *QueuePresenter) Shutdown() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	for _, id := range subs {
		p.bus.Unsubscribe(id)
	}
	p.persist.Flush()
	p.persist.Stop()
	p.redraw.Stop()
}

func (p *QueuePresenter) onQueueChanged(event domain.Event) {
	e, ok := event.(domain.QueueChangedEvent)
	if !ok {
		return
	}
	p.view.SetRows(e.Songs, e.CurrentIndex)
}

// onCurrentSongChanged redraws only the rows whose highlight changed.
func (p *QueuePresenter) onCurrentSongChanged(event domain.Event) {
	e, ok := event.(domain.CurrentSongChangedEvent)
	if !ok {
		return
	}

	p.view.SetCurrent(e.CurrentIndex)
	rows := dirtyRows(e.PreviousIndex, e.CurrentIndex)
	if len(rows) > 0 {
		p.view.RefreshRows(rows)
	}
	if e.CurrentIndex >= 0 && p.Layout().FollowCurrentSong {
		p.view.ScrollTo(e.CurrentIndex)
	}
}

func dirtyRows(indexes ...int) []int {
	out := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && !slices.Contains(out, i) {
			out = append(out, i)
		}
	}
	return out
}
