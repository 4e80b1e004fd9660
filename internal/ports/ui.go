// Package ports define the UI interfaces for view abstraction.
// These interfaces allow presenters to drive views without depending on Fyne directly.
package ports

import (
	"github.com/flightmansam/feishin/internal/domain"
)

// QueueView is a virtualized table showing the play queue.
//
// Thread-safety: implementations marshal every call onto the UI thread.
type QueueView interface {
	// SetRows replaces the rows shown by the view.
	SetRows(songs []domain.QueueSong, currentIndex int)

	// SetCurrent moves the current-song highlight without redrawing.
	SetCurrent(index int)

	// RefreshRows redraws only the given row indexes.
	RefreshRows(indexes []int)

	// RefreshAll redraws every visible row.
	RefreshAll()

	// ScrollTo makes the row visible.
	ScrollTo(index int)

	// ApplyLayout applies column order, widths and row height.
	ApplyLayout(columns []domain.TableColumn, rowHeight float32)
}

// MainView is the application window as seen by the shell integration.
type MainView interface {
	// Show brings the window to the front.
	Show()

	// ShowError displays an error dialog.
	ShowError(title, message string)

	// SetPlaying updates the play/pause control.
	SetPlaying(playing bool)

	// SetNowPlaying updates the current song display.
	SetNowPlaying(song domain.QueueSong)

	// SetCurrentTime updates the elapsed time display in seconds.
	SetCurrentTime(seconds float64)

	// Run starts the UI event loop. Blocks until the application quits.
	Run()

	// Quit closes the application.
	Quit()
}
