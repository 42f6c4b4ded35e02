package trayapp

import (
	"log/slog"
	"sync/atomic"
)

// Window is the platform integration an [Application] drives. It owns the
// tray icon and context menu along with the native loop that observes user
// input.
//
// Implementations report menu activations exclusively through the events
// channel received at construction (see [WindowFunc]); no other state is
// shared with the core.
type Window interface {
	// AddMenuEntry creates a native menu entry labeled label that reports
	// activations under id.
	AddMenuEntry(id MenuID, label string) error

	// AddMenuSeparator creates a native separator under id. Separators are
	// never activated, but consume IDs like regular entries.
	AddMenuSeparator(id MenuID) error

	// SetIconFromFile sets the tray icon from an image file on disk.
	SetIconFromFile(path string) error

	// SetIconFromResource sets the tray icon from a named resource: a module
	// resource on Windows, a freedesktop icon theme name on Linux.
	SetIconFromResource(name string) error

	// SetTooltip sets the tooltip shown for the tray icon.
	SetTooltip(text string) error

	// Shutdown tears the window down: the icon disappears and the native loop
	// terminates, closing the events channel. It is synchronous and tolerates
	// repeated calls.
	Shutdown() error

	// Quit requests the same teardown as Shutdown without waiting for it and
	// without reporting failure.
	Quit()
}

// WindowConfig carries the settings a platform window is constructed with.
type WindowConfig struct {
	// Title identifies the application to the platform: the item title on
	// Linux, the window name on Windows.
	Title string

	// Logger receives the window's diagnostics. It is never nil.
	Logger *slog.Logger
}

// WindowFunc constructs the platform window backing an [Application].
//
// The window takes ownership of the events channel: it publishes one [Event]
// per menu activation in activation order and closes the channel exactly once
// when its native loop terminates. On construction failure the channel must
// be left untouched so the caller can reclaim it.
type WindowFunc func(cfg WindowConfig, events chan<- Event) (Window, error)

// windowInstance distinguishes platform windows when one process creates
// several applications.
var windowInstance atomic.Uint32
