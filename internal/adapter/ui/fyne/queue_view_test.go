package fyne

import (
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/adapter/ui/fyne/widgets"
	"github.com/flightmansam/feishin/internal/domain"
)

type recordingGestures struct {
	played  []string
	moved   [][]string
	targets []string
	columns [][]domain.TableColumn
}

func (g *recordingGestures) OnRowDoubleTapped(id string) { g.played = append(g.played, id) }

func (g *recordingGestures) OnDragEnd(moved []string, target string) {
	g.moved = append(g.moved, moved)
	g.targets = append(g.targets, target)
}

func (g *recordingGestures) OnColumnsChanged(cols []domain.TableColumn) {
	g.columns = append(g.columns, cols)
}

func songsOf(ids ...string) []domain.QueueSong {
	out := make([]domain.QueueSong, len(ids))
	for i, id := range ids {
		out[i] = domain.QueueSong{UniqueID: id, Title: "T" + id}
	}
	return out
}

func TestCellText(t *testing.T) {
	song := domain.QueueSong{
		Title:        "Blue",
		Artist:       "Joni",
		Album:        "Blue",
		Duration:     3*time.Minute + 5*time.Second,
		UserFavorite: true,
		UserRating:   4,
	}
	tests := []struct {
		column string
		want   string
	}{
		{"rowIndex", "8"},
		{"title", "Blue"},
		{"artist", "Joni"},
		{"album", "Blue"},
		{"duration", "3:05"},
		{"favorite", "♥"},
		{"rating", "4/5"},
		{"bpm", ""},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.want, cellText(tt.column, 7, song))
		})
	}
	assert.Equal(t, "1:01:01", formatDuration(time.Hour+61*time.Second))
	assert.Empty(t, formatDuration(0))
}

func TestDropTarget(t *testing.T) {
	songs := songsOf("a", "b", "c", "d", "e")
	tests := []struct {
		name   string
		from   int
		offset int
		want   string
		ok     bool
	}{
		{"no movement", 1, 0, "", false},
		{"down two", 1, 2, "e", true},
		{"up two", 3, -2, "b", true},
		{"past the top", 2, -9, "a", true},
		{"past the end", 1, 9, "", true},
		{"onto the last row", 1, 3, "", true},
		{"bad row", 7, 1, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dropTarget(songs, tt.from, tt.offset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowOffset(t *testing.T) {
	assert.Equal(t, 0, rowOffset(15, 40))
	assert.Equal(t, 1, rowOffset(25, 40))
	assert.Equal(t, -2, rowOffset(-75, 40))
	assert.Equal(t, 1, rowOffset(40, 0))
}

func TestMovedIDs(t *testing.T) {
	songs := songsOf("a", "b", "c")
	assert.Equal(t, []string{"b"}, movedIDs(songs, 1, map[string]bool{"c": true}))
	assert.Equal(t, []string{"a", "c"}, movedIDs(songs, 2, map[string]bool{"c": true, "a": true}))
	assert.Nil(t, movedIDs(songs, 5, nil))
}

func TestSelectRows(t *testing.T) {
	songs := songsOf("a", "b", "c", "d", "e")

	sel, anchor := selectRows(songs, nil, "", 1, 0)
	assert.Equal(t, map[string]bool{"b": true}, sel)
	assert.Equal(t, "b", anchor)

	sel, anchor = selectRows(songs, sel, anchor, 3, fyne.KeyModifierControl)
	assert.Equal(t, map[string]bool{"b": true, "d": true}, sel)
	assert.Equal(t, "d", anchor)

	sel, anchor = selectRows(songs, sel, anchor, 1, fyne.KeyModifierSuper)
	assert.Equal(t, map[string]bool{"d": true}, sel, "toggling a selected row removes it")
	assert.Equal(t, "b", anchor)

	sel, anchor = selectRows(songs, sel, anchor, 4, fyne.KeyModifierShift)
	assert.Equal(t, map[string]bool{"b": true, "c": true, "d": true, "e": true}, sel)
	assert.Equal(t, "b", anchor, "a range keeps its anchor")

	sel, anchor = selectRows(songs, sel, anchor, 0, fyne.KeyModifierShift)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, sel)

	// a stale anchor starts the range at the clicked row
	sel, anchor = selectRows(songs, sel, "gone", 2, fyne.KeyModifierShift)
	assert.Equal(t, map[string]bool{"c": true}, sel)
	assert.Equal(t, "c", anchor)

	sel, _ = selectRows(songs, sel, anchor, 0, 0)
	assert.Equal(t, map[string]bool{"a": true}, sel)
}

func TestColumnEdits(t *testing.T) {
	cols := domain.DefaultQueueTableConfig().Columns

	moved := moveColumn(cols, 1, 1)
	assert.Equal(t, "artist", moved[1].Column)
	assert.Equal(t, "title", moved[2].Column)
	assert.Equal(t, "title", cols[1].Column, "input is not modified")
	assert.Equal(t, cols, moveColumn(cols, 0, -1))

	wider := resizeColumn(cols, 0, 40)
	assert.Equal(t, float32(90), wider[0].Width)
	assert.Equal(t, minColumnWidth, resizeColumn(cols, 0, -500)[0].Width)
}

func TestQueueView_RendersAndRoutesGestures(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	view := NewQueueView()
	g := &recordingGestures{}
	view.SetGestures(g)
	w := test.NewWindow(view.Widget())
	defer w.Close()

	view.SetRows(songsOf("a", "b", "c"), 1)
	view.ApplyLayout([]domain.TableColumn{{Column: "rowIndex", Width: 50}, {Column: "title", Width: 200}}, 30)

	rows, cols := view.size()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	cell := widgets.NewQueueCell()
	view.updateCell(widgetCell(1, 1), cell)
	assert.Equal(t, "Tb", cell.Text)
	assert.True(t, cell.TextStyle.Bold)

	view.SetCurrent(2)
	view.updateCell(widgetCell(1, 1), cell)
	assert.False(t, cell.TextStyle.Bold)

	view.onRowDoubleTapped(2)
	assert.Equal(t, []string{"c"}, g.played)

	view.onRowDragged(0, 65) // two rows down
	require.Len(t, g.moved, 1)
	assert.Equal(t, []string{"a"}, g.moved[0])
	assert.Equal(t, "", g.targets[0])

	view.onRowDragged(0, 5) // stayed on its row
	assert.Len(t, g.moved, 1)

	// dragging a row of a multi-row selection moves all of it
	view.onRowTapped(0, 0)
	view.onRowTapped(2, fyne.KeyModifierShortcutDefault)
	view.updateCell(widgetCell(2, 1), cell)
	assert.True(t, cell.TextStyle.Italic)
	view.updateCell(widgetCell(1, 1), cell)
	assert.False(t, cell.TextStyle.Italic)

	view.onRowDragged(2, -65) // two rows up
	require.Len(t, g.moved, 2)
	assert.Equal(t, []string{"a", "c"}, g.moved[1])
	assert.Equal(t, "a", g.targets[1])

	view.changeColumns(0, func(c []domain.TableColumn, i int) []domain.TableColumn { return moveColumn(c, i, 1) })
	require.Len(t, g.columns, 1)
	assert.Equal(t, "title", g.columns[0][0].Column)
}

func widgetCell(row, col int) widget.TableCellID {
	return widget.TableCellID{Row: row, Col: col}
}
