package fyne

import (
	fyneapp "fyne.io/fyne/v2"

	"github.com/flightmansam/feishin/internal/domain"
)

// trayMenu builds the system tray menu. Items publish the same commands as
// the window controls.
func trayMenu(p *Presenter) *fyneapp.Menu {
	item := func(label string, command domain.EventType) *fyneapp.MenuItem {
		return fyneapp.NewMenuItem(label, func() { p.OnCommand(command) })
	}
	quit := fyneapp.NewMenuItem("Quit", p.OnQuit)
	quit.IsQuit = true

	return fyneapp.NewMenu("feishin",
		item("Play/Pause", domain.EventCommandPlayPause),
		item("Next", domain.EventCommandNext),
		item("Previous", domain.EventCommandPrevious),
		item("Stop", domain.EventCommandStop),
		fyneapp.NewMenuItemSeparator(),
		item("Open Window", domain.EventShowWindow),
		quit,
	)
}
