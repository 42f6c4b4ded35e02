package trayapp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Callback runs when the menu entry it was registered with is activated. It
// receives the owning [Application], so it can add entries, change the icon,
// or quit from inside the handler.
type Callback func(app *Application)

// Application is a program living in the system tray: an icon and a context
// menu, plus an event pump that dispatches menu activations to registered
// callbacks.
//
// An Application is single-consumer. All methods must be called from one
// goroutine (conventionally the one running the pump loop); the only thing
// crossing goroutines is the internal event channel fed by the platform
// window.
type Application struct {
	window    Window
	events    *events
	callbacks map[MenuID]Callback
	nextID    MenuID
	logger    *slog.Logger
	closeOnce sync.Once
}

// Option configures an [Application] during [New].
type Option func(*config)

type config struct {
	title     string
	logger    *slog.Logger
	newWindow WindowFunc
}

// WithTitle sets the name the platform window identifies itself with.
// Defaults to the name of the running executable.
func WithTitle(title string) Option {
	return func(cfg *config) {
		cfg.title = title
	}
}

// WithLogger sets the logger diagnostics are written to. Defaults to
// [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithWindowFunc replaces the platform window constructor. The default
// constructor is chosen by GOOS; this option plugs in custom tray backends.
func WithWindowFunc(fn WindowFunc) Option {
	return func(cfg *config) {
		cfg.newWindow = fn
	}
}

// New returns a new [Application] with its icon in the system tray.
//
// The returned Application holds platform resources; release them with
// [Application.Close] when done. On platforms without a tray implementation
// the error matches [ErrNotImplemented].
func New(opts ...Option) (*Application, error) {
	cfg := config{
		title:     filepath.Base(os.Args[0]),
		logger:    slog.Default(),
		newWindow: newPlatformWindow,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	ev := newEvents()

	window, err := cfg.newWindow(WindowConfig{Title: cfg.title, Logger: cfg.logger}, ev.in)
	if err != nil {
		// The window never took ownership of the channel.
		close(ev.in)
		return nil, fmt.Errorf("create platform window: %w", err)
	}

	app := &Application{
		window:    window,
		events:    ev,
		callbacks: make(map[MenuID]Callback),
		logger:    cfg.logger,
	}

	return app, nil
}

// AddMenuItem appends an entry labeled label to the context menu and
// registers callback for it. It returns the ID the entry was created under.
//
// IDs count up from 0 in creation order and are never reused. When the
// platform layer fails to create the entry, the error is propagated, no ID is
// consumed and no callback is registered. A nil callback is replaced with a
// no-op.
func (app *Application) AddMenuItem(label string, callback Callback) (MenuID, error) {
	id := app.nextID

	if err := app.window.AddMenuEntry(id, label); err != nil {
		return 0, fmt.Errorf("add menu item: %w", err)
	}

	if callback == nil {
		callback = func(*Application) {}
	}

	app.callbacks[id] = callback
	app.nextID++

	return id, nil
}

// AddMenuSeparator appends a separator to the context menu. Separators
// consume IDs exactly like items, but never dispatch.
func (app *Application) AddMenuSeparator() (MenuID, error) {
	id := app.nextID

	if err := app.window.AddMenuSeparator(id); err != nil {
		return 0, fmt.Errorf("add menu separator: %w", err)
	}

	app.nextID++

	return id, nil
}

// SetIconFromFile sets the tray icon from an image file on disk.
func (app *Application) SetIconFromFile(path string) error {
	if err := app.window.SetIconFromFile(path); err != nil {
		return fmt.Errorf("set icon: %w", err)
	}

	return nil
}

// SetIconFromResource sets the tray icon from a named resource: a module
// resource on Windows, a freedesktop icon theme name on Linux.
func (app *Application) SetIconFromResource(name string) error {
	if err := app.window.SetIconFromResource(name); err != nil {
		return fmt.Errorf("set icon: %w", err)
	}

	return nil
}

// SetTooltip sets the tooltip shown for the tray icon.
func (app *Application) SetTooltip(text string) error {
	if err := app.window.SetTooltip(text); err != nil {
		return fmt.Errorf("set tooltip: %w", err)
	}

	return nil
}

// WaitForMessage blocks until the next menu activation arrives and dispatches
// it. Activations without a registered callback (separators, IDs that were
// never allocated) are discarded, still reporting success.
//
// Once the platform window has terminated and the queue is drained, the error
// matches [ErrDisconnected] and the pump loop should stop.
func (app *Application) WaitForMessage() error {
	e, err := app.events.recv()
	if err != nil {
		return fmt.Errorf("wait for message: %w", err)
	}

	app.dispatch(e)

	return nil
}

// WaitForMessageTimeout behaves like [Application.WaitForMessage], but gives
// up after d. An elapsed timeout is not an error: it returns nil without
// dispatching anything.
func (app *Application) WaitForMessageTimeout(d time.Duration) error {
	e, err := app.events.recvTimeout(d)

	switch {
	case errors.Is(err, ErrTimeout):
		return nil
	case err != nil:
		return fmt.Errorf("wait for message: %w", err)
	}

	app.dispatch(e)

	return nil
}

// dispatch runs the callback registered for the activated entry.
//
// The entry is removed from the registry for the duration of the call and
// reinserted afterwards: a nested activation of the same ID during dispatch
// is discarded, and a panicking callback loses its registry entry.
func (app *Application) dispatch(e Event) {
	callback, ok := app.callbacks[e.ID]
	if !ok {
		app.logger.Debug("discarding activation without a registered callback", "id", e.ID)
		return
	}

	delete(app.callbacks, e.ID)
	callback(app)
	app.callbacks[e.ID] = callback
}

// Quit requests teardown of the platform window without waiting for it.
// The Application is not usable afterwards; pending pumps end with
// [ErrDisconnected] once the window is gone.
func (app *Application) Quit() {
	app.window.Quit()
}

// Shutdown tears the platform window down synchronously: the icon disappears
// and the event channel is closed. Repeated calls are tolerated.
func (app *Application) Shutdown() error {
	if err := app.window.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// Close runs [Application.Shutdown] exactly once across all Close calls and
// reports its result; later calls return nil. It is safe to defer right after
// [New].
func (app *Application) Close() error {
	var err error

	app.closeOnce.Do(func() {
		err = app.Shutdown()
		if err != nil {
			app.logger.Warn("shutdown failed during close", "error", err)
		}
	})

	return err
}
