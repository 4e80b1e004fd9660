package widgets

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestQueueCell_Gestures(t *testing.T) {
	test.NewApp()
	cell := NewQueueCell()

	var tapped, dragRow, menuRow = -1, -1, -1
	var dragDY float32
	cell.OnDoubleTapped = func(row int) { tapped = row }
	cell.OnSecondaryTapped = func(row int, _ fyne.Position) { menuRow = row }
	cell.OnDragEnd = func(row int, dy float32) { dragRow, dragDY = row, dy }

	// unbound cells ignore gestures
	cell.DoubleTapped(&fyne.PointEvent{})
	assert.Equal(t, -1, tapped)

	cell.Bind(4, "Song", true, false)
	assert.Equal(t, "Song", cell.Text)
	assert.True(t, cell.TextStyle.Bold)

	cell.DoubleTapped(&fyne.PointEvent{})
	cell.TappedSecondary(&fyne.PointEvent{})
	assert.Equal(t, 4, tapped)
	assert.Equal(t, 4, menuRow)

	cell.Dragged(&fyne.DragEvent{Dragged: fyne.Delta{DY: 30}})
	cell.Dragged(&fyne.DragEvent{Dragged: fyne.Delta{DY: 15}})
	assert.True(t, cell.Dragging())
	cell.DragEnd()
	assert.False(t, cell.Dragging())
	assert.Equal(t, 4, dragRow)
	assert.InDelta(t, 45, dragDY, 0.001)

	cell.Bind(5, "Other", false, true)
	assert.False(t, cell.TextStyle.Bold)
	assert.True(t, cell.TextStyle.Italic)
	assert.Equal(t, 5, cell.Row())
}

func TestQueueCell_TapCarriesModifier(t *testing.T) {
	test.NewApp()
	cell := NewQueueCell()

	var rows []int
	var mods []fyne.KeyModifier
	cell.OnTapped = func(row int, modifier fyne.KeyModifier) {
		rows = append(rows, row)
		mods = append(mods, modifier)
	}

	cell.Tapped(&fyne.PointEvent{})
	assert.Empty(t, rows, "unbound cells ignore taps")

	cell.Bind(2, "Song", false, false)
	cell.MouseDown(&desktop.MouseEvent{Modifier: fyne.KeyModifierShift})
	cell.MouseUp(&desktop.MouseEvent{})
	cell.Tapped(&fyne.PointEvent{})
	cell.Tapped(&fyne.PointEvent{})

	assert.Equal(t, []int{2, 2}, rows)
	assert.Equal(t, []fyne.KeyModifier{fyne.KeyModifierShift, 0}, mods)
}

func TestHeaderCell_SecondaryTap(t *testing.T) {
	test.NewApp()
	var got = -1
	h := NewHeaderCell(func(column int, _ fyne.Position) { got = column })

	h.TappedSecondary(&fyne.PointEvent{})
	assert.Equal(t, -1, got)

	h.Bind(2, "Album")
	h.TappedSecondary(&fyne.PointEvent{})
	assert.Equal(t, 2, got)
	assert.Equal(t, "Album", h.Text())
}
