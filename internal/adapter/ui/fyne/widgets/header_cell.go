package widgets

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// HeaderCell is a column header that opens a context menu on right click.
type HeaderCell struct {
	widget.BaseWidget

	label  *widget.Label
	column int

	onSecondaryTap func(column int, pos fyne.Position)
}

// NewHeaderCell creates a header; onSecondaryTap may be nil.
func NewHeaderCell(onSecondaryTap func(column int, pos fyne.Position)) *HeaderCell {
	h := &HeaderCell{
		label:          widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		column:         -1,
		onSecondaryTap: onSecondaryTap,
	}
	h.label.Truncation = fyne.TextTruncateEllipsis
	h.ExtendBaseWidget(h)
	return h
}

// CreateRenderer implements fyne.Widget.
func (h *HeaderCell) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(h.label)
}

// Bind points the header at a column.
func (h *HeaderCell) Bind(column int, title string) {
	h.column = column
	h.label.SetText(title)
}

// Text returns the shown title.
func (h *HeaderCell) Text() string {
	return h.label.Text
}

// Tapped implements fyne.Tappable. Primary taps do nothing.
func (h *HeaderCell) Tapped(*fyne.PointEvent) {}

// TappedSecondary implements fyne.SecondaryTappable.
func (h *HeaderCell) TappedSecondary(pe *fyne.PointEvent) {
	if h.onSecondaryTap != nil && h.column >= 0 {
		h.onSecondaryTap(h.column, pe.AbsolutePosition)
	}
}

// MouseIn implements desktop.Hoverable.
func (h *HeaderCell) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (h *HeaderCell) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable.
func (h *HeaderCell) MouseOut() {}

var _ fyne.Tappable = (*HeaderCell)(nil)
var _ fyne.SecondaryTappable = (*HeaderCell)(nil)
var _ desktop.Hoverable = (*HeaderCell)(nil)
