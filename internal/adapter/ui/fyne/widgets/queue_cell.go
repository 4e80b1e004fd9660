// Package widgets provides custom Fyne widgets for the feishin queue table.
package widgets

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

var (
	_ fyne.Tappable          = (*QueueCell)(nil)
	_ desktop.Mouseable      = (*QueueCell)(nil)
	_ fyne.DoubleTappable    = (*QueueCell)(nil)
	_ fyne.SecondaryTappable = (*QueueCell)(nil)
	_ fyne.Draggable         = (*QueueCell)(nil)
)

// QueueCell is one cell of the queue table. It reports taps (with the
// modifiers held when the button went down), double taps, right clicks and
// vertical drags against the row it currently shows, since the table
// recycles cells as it scrolls.
type QueueCell struct {
	widget.Label

	row      int
	modifier fyne.KeyModifier

	OnTapped          func(row int, modifier fyne.KeyModifier)
	OnDoubleTapped    func(row int)
	OnSecondaryTapped func(row int, pos fyne.Position)

	// OnDragEnd receives the row the drag began on and the total vertical
	// distance travelled.
	OnDragEnd func(row int, dy float32)

	dragging bool
	dragDY   float32
}

// NewQueueCell creates an empty cell.
func NewQueueCell() *QueueCell {
	c := &QueueCell{row: -1}
	c.Truncation = fyne.TextTruncateEllipsis
	c.ExtendBaseWidget(c)
	return c
}

// Bind points the cell at a row and sets its text and highlight. The current
// song is bold, selected rows are italic.
func (c *QueueCell) Bind(row int, text string, current, selected bool) {
	c.row = row
	c.TextStyle = fyne.TextStyle{Bold: current, Italic: selected}
	if current {
		c.Importance = widget.HighImportance
	} else {
		c.Importance = widget.MediumImportance
	}
	c.Label.SetText(text)
}

// Row returns the row the cell currently shows.
func (c *QueueCell) Row() int {
	return c.row
}

// MouseDown implements desktop.Mouseable.
func (c *QueueCell) MouseDown(e *desktop.MouseEvent) {
	c.modifier = e.Modifier
}

// MouseUp implements desktop.Mouseable.
func (c *QueueCell) MouseUp(*desktop.MouseEvent) {}

// Tapped implements fyne.Tappable.
func (c *QueueCell) Tapped(_ *fyne.PointEvent) {
	modifier := c.modifier
	c.modifier = 0
	if c.OnTapped != nil && c.row >= 0 {
		c.OnTapped(c.row, modifier)
	}
}

// DoubleTapped implements fyne.DoubleTappable.
func (c *QueueCell) DoubleTapped(_ *fyne.PointEvent) {
	if c.OnDoubleTapped != nil && c.row >= 0 {
		c.OnDoubleTapped(c.row)
	}
}

// TappedSecondary implements fyne.SecondaryTappable.
func (c *QueueCell) TappedSecondary(pe *fyne.PointEvent) {
	if c.OnSecondaryTapped != nil && c.row >= 0 {
		c.OnSecondaryTapped(c.row, pe.AbsolutePosition)
	}
}

// Dragged implements fyne.Draggable.
func (c *QueueCell) Dragged(e *fyne.DragEvent) {
	c.dragging = true
	c.dragDY += e.Dragged.DY
}

// DragEnd implements fyne.Draggable.
func (c *QueueCell) DragEnd() {
	dy := c.dragDY
	c.dragging, c.dragDY = false, 0
	if c.OnDragEnd != nil && c.row >= 0 {
		c.OnDragEnd(c.row, dy)
	}
}

// Dragging reports whether a drag is in progress on this cell.
func (c *QueueCell) Dragging() bool {
	return c.dragging
}
