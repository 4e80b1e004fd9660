package fyne

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"github.com/flightmansam/feishin/internal/adapter/ui/fyne/widgets"
	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

const (
	minColumnWidth  float32 = 40
	columnWidthStep float32 = 40
)

var columnTitles = map[string]string{
	"rowIndex": "#",
	"title":    "Title",
	"artist":   "Artist",
	"album":    "Album",
	"duration": "Time",
	"favorite": "♥",
	"rating":   "Rating",
}

// queueGestures receives what the user does to the table.
type queueGestures interface {
	OnRowDoubleTapped(uniqueID string)
	OnDragEnd(movedIDs []string, targetID string)
	OnColumnsChanged(columns []domain.TableColumn)
}

// QueueView renders the play queue in a virtualized fyne table. A click
// selects a row, Ctrl (Cmd on macOS) toggles one and Shift extends from the
// last clicked row. Dragging a selected row moves the whole selection; header
// right clicks reorder and resize columns.
type QueueView struct {
	table *widget.Table

	mu        sync.RWMutex
	songs     []domain.QueueSong
	current   int
	columns   []domain.TableColumn
	rowHeight float32
	selected  map[string]bool
	anchor    string
	gestures  queueGestures
}

// NewQueueView creates an empty queue table.
func NewQueueView() *QueueView {
	v := &QueueView{
		current:   -1,
		columns:   domain.DefaultQueueTableConfig().Columns,
		rowHeight: domain.DefaultRowHeight,
		selected:  make(map[string]bool),
	}

	v.table = widget.NewTableWithHeaders(v.size, v.createCell, v.updateCell)
	v.table.ShowHeaderColumn = false
	v.table.CreateHeader = func() fyne.CanvasObject {
		return widgets.NewHeaderCell(v.showColumnMenu)
	}
	v.table.UpdateHeader = v.updateHeader
	return v
}

// SetGestures routes row and header gestures to g.
func (v *QueueView) SetGestures(g queueGestures) {
	v.mu.Lock()
	v.gestures = g
	v.mu.Unlock()
}

// Widget returns the canvas object to place in a window.
func (v *QueueView) Widget() fyne.CanvasObject {
	return v.table
}

// SetRows implements ports.QueueView.
func (v *QueueView) SetRows(songs []domain.QueueSong, currentIndex int) {
	v.mu.Lock()
	v.songs = slices.Clone(songs)
	v.current = currentIndex
	for id := range v.selected {
		if !slices.ContainsFunc(v.songs, func(s domain.QueueSong) bool { return s.UniqueID == id }) {
			delete(v.selected, id)
		}
	}
	v.mu.Unlock()

	fyne.Do(v.table.Refresh)
}

// SetCurrent implements ports.QueueView.
func (v *QueueView) SetCurrent(index int) {
	v.mu.Lock()
	v.current = index
	v.mu.Unlock()
}

// RefreshRows implements ports.QueueView.
func (v *QueueView) RefreshRows(indexes []int) {
	v.mu.RLock()
	cols := len(v.columns)
	v.mu.RUnlock()

	fyne.Do(func() {
		for _, row := range indexes {
			for col := 0; col < cols; col++ {
				v.table.RefreshItem(widget.TableCellID{Row: row, Col: col})
			}
		}
	})
}

// RefreshAll implements ports.QueueView.
func (v *QueueView) RefreshAll() {
	fyne.Do(v.table.Refresh)
}

// ScrollTo implements ports.QueueView.
func (v *QueueView) ScrollTo(index int) {
	fyne.Do(func() {
		v.table.ScrollTo(widget.TableCellID{Row: index, Col: 0})
	})
}

// ApplyLayout implements ports.QueueView.
func (v *QueueView) ApplyLayout(columns []domain.TableColumn, rowHeight float32) {
	if rowHeight <= 0 {
		rowHeight = domain.DefaultRowHeight
	}
	v.mu.Lock()
	v.columns = slices.Clone(columns)
	v.rowHeight = rowHeight
	v.mu.Unlock()

	fyne.Do(func() {
		v.applyWidths(columns)
		v.table.Refresh()
	})
}

func (v *QueueView) applyWidths(columns []domain.TableColumn) {
	for i, col := range columns {
		width := col.Width
		if width < minColumnWidth {
			width = minColumnWidth
		}
		v.table.SetColumnWidth(i, width)
	}
}

func (v *QueueView) size() (rows int, cols int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.songs), len(v.columns)
}

func (v *QueueView) createCell() fyne.CanvasObject {
	cell := widgets.NewQueueCell()
	cell.OnTapped = v.onRowTapped
	cell.OnDoubleTapped = v.onRowDoubleTapped
	cell.OnDragEnd = v.onRowDragged
	return cell
}

func (v *QueueView) updateCell(id widget.TableCellID, obj fyne.CanvasObject) {
	cell, ok := obj.(*widgets.QueueCell)
	if !ok {
		return
	}
	v.mu.RLock()
	if id.Row < 0 || id.Row >= len(v.songs) || id.Col < 0 || id.Col >= len(v.columns) {
		v.mu.RUnlock()
		cell.Bind(-1, "", false, false)
		return
	}
	song := v.songs[id.Row]
	column := v.columns[id.Col].Column
	current := id.Row == v.current
	selected := v.selected[song.UniqueID]
	v.mu.RUnlock()

	cell.Bind(id.Row, cellText(column, id.Row, song), current, selected)
}

func (v *QueueView) updateHeader(id widget.TableCellID, obj fyne.CanvasObject) {
	header, ok := obj.(*widgets.HeaderCell)
	if !ok {
		return
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if id.Col < 0 || id.Col >= len(v.columns) {
		header.Bind(-1, "")
		return
	}
	header.Bind(id.Col, columnTitle(v.columns[id.Col].Column))
}

func (v *QueueView) onRowTapped(row int, modifier fyne.KeyModifier) {
	v.mu.Lock()
	if row < 0 || row >= len(v.songs) {
		v.mu.Unlock()
		return
	}
	v.selected, v.anchor = selectRows(v.songs, v.selected, v.anchor, row, modifier)
	v.mu.Unlock()

	v.table.Refresh()
}

func (v *QueueView) onRowDoubleTapped(row int) {
	v.mu.RLock()
	g := v.gestures
	var id string
	if row >= 0 && row < len(v.songs) {
		id = v.songs[row].UniqueID
	}
	v.mu.RUnlock()

	if g != nil && id != "" {
		g.OnRowDoubleTapped(id)
	}
}

func (v *QueueView) onRowDragged(row int, dy float32) {
	v.mu.RLock()
	g := v.gestures
	songs := v.songs
	offset := rowOffset(dy, v.rowHeight)
	moved := movedIDs(songs, row, v.selected)
	v.mu.RUnlock()

	if g == nil {
		return
	}
	target, ok := dropTarget(songs, row, offset)
	if !ok {
		return
	}
	g.OnDragEnd(moved, target)
}

func (v *QueueView) showColumnMenu(column int, pos fyne.Position) {
	canvas := fyne.CurrentApp().Driver().CanvasForObject(v.table)
	if canvas == nil {
		return
	}
	change := func(fn func([]domain.TableColumn, int) []domain.TableColumn) func() {
		return func() { v.changeColumns(column, fn) }
	}
	menu := fyne.NewMenu("",
		fyne.NewMenuItem("Move left", change(func(cols []domain.TableColumn, i int) []domain.TableColumn { return moveColumn(cols, i, -1) })),
		fyne.NewMenuItem("Move right", change(func(cols []domain.TableColumn, i int) []domain.TableColumn { return moveColumn(cols, i, 1) })),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Wider", change(func(cols []domain.TableColumn, i int) []domain.TableColumn { return resizeColumn(cols, i, columnWidthStep) })),
		fyne.NewMenuItem("Narrower", change(func(cols []domain.TableColumn, i int) []domain.TableColumn { return resizeColumn(cols, i, -columnWidthStep) })),
	)
	widget.ShowPopUpMenuAtPosition(menu, canvas, pos)
}

func (v *QueueView) changeColumns(column int, fn func([]domain.TableColumn, int) []domain.TableColumn) {
	v.mu.Lock()
	columns := fn(v.columns, column)
	v.columns = columns
	g := v.gestures
	v.mu.Unlock()

	v.applyWidths(columns)
	v.table.Refresh()
	if g != nil {
		g.OnColumnsChanged(slices.Clone(columns))
	}
}

// cellText formats one cell. Unknown columns are blank.
func cellText(column string, index int, song domain.QueueSong) string {
	switch column {
	case "rowIndex":
		return strconv.Itoa(index + 1)
	case "title":
		return song.Title
	case "artist":
		return song.Artist
	case "album":
		return song.Album
	case "duration":
		return formatDuration(song.Duration)
	case "favorite":
		if song.UserFavorite {
			return "♥"
		}
		return ""
	case "rating":
		if song.UserRating > 0 {
			return strconv.Itoa(song.UserRating) + "/5"
		}
		return ""
	}
	return ""
}

func columnTitle(column string) string {
	if t, ok := columnTitles[column]; ok {
		return t
	}
	return column
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int(d.Round(time.Second) / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func rowOffset(dy, rowHeight float32) int {
	if rowHeight <= 0 {
		rowHeight = domain.DefaultRowHeight
	}
	return int(math.Round(float64(dy / rowHeight)))
}

// movedIDs returns the selection when the dragged row is part of it, else
// just the dragged row.
func movedIDs(songs []domain.QueueSong, row int, selected map[string]bool) []string {
	if row < 0 || row >= len(songs) {
		return nil
	}
	id := songs[row].UniqueID
	if !selected[id] {
		return []string{id}
	}
	var out []string
	for _, s := range songs {
		if selected[s.UniqueID] {
			out = append(out, s.UniqueID)
		}
	}
	return out
}

// selectRows applies a click on row to the selection. Ctrl or Super toggles
// the row, Shift selects the range from anchor, a plain click selects only
// the row. It returns the new selection and anchor.
func selectRows(songs []domain.QueueSong, selected map[string]bool, anchor string, row int, modifier fyne.KeyModifier) (map[string]bool, string) {
	id := songs[row].UniqueID
	out := make(map[string]bool, len(selected)+1)

	switch {
	case modifier&fyne.KeyModifierShift != 0:
		from := slices.IndexFunc(songs, func(s domain.QueueSong) bool { return s.UniqueID == anchor })
		if from < 0 {
			from = row
		}
		first, last := min(from, row), max(from, row)
		for _, s := range songs[first : last+1] {
			out[s.UniqueID] = true
		}
		if from == row {
			anchor = id
		}
		return out, anchor

	case modifier&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0:
		for k := range selected {
			out[k] = true
		}
		if out[id] {
			delete(out, id)
		} else {
			out[id] = true
		}
		return out, id
	}

	out[id] = true
	return out, id
}

// dropTarget converts a drag of offset rows starting at from into the id the
// moved rows are inserted before. An empty id means the end of the queue.
// ok is false when the drag did not leave its row.
func dropTarget(songs []domain.QueueSong, from, offset int) (string, bool) {
	if offset == 0 || from < 0 || from >= len(songs) {
		return "", false
	}
	to := from + offset
	if offset > 0 {
		to++
	}
	if to < 0 {
		to = 0
	}
	if to >= len(songs) {
		return "", true
	}
	return songs[to].UniqueID, true
}

func moveColumn(columns []domain.TableColumn, index, delta int) []domain.TableColumn {
	out := slices.Clone(columns)
	to := index + delta
	if index < 0 || index >= len(out) || to < 0 || to >= len(out) {
		return out
	}
	out[index], out[to] = out[to], out[index]
	return out
}

func resizeColumn(columns []domain.TableColumn, index int, delta float32) []domain.TableColumn {
	out := slices.Clone(columns)
	if index < 0 || index >= len(out) {
		return out
	}
	out[index].Width = max(out[index].Width+delta, minColumnWidth)
	return out
}

var _ ports.QueueView = (*QueueView)(nil)
