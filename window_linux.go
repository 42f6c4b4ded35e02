//go:build linux

package trayapp

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	statusNotifierItemInterface = "org.kde.StatusNotifierItem"
	statusNotifierItemPath      = "/StatusNotifierItem"

	statusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	statusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// pixmap is the (iiay) icon structure of the StatusNotifierItem protocol.
type pixmap struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// tooltip is the (sa(iiay)ss) tooltip structure of the StatusNotifierItem
// protocol.
type tooltip struct {
	IconName    string
	IconPixmap  []pixmap
	Title       string
	Description string
}

// sniWindow implements [Window] on Linux. It publishes a StatusNotifierItem
// on the session bus and serves com.canonical.dbusmenu for the context menu,
// registering itself with the StatusNotifierWatcher of the running desktop.
type sniWindow struct {
	name    string
	conn    *dbus.Conn
	events  chan<- Event
	menu    *dbusMenu
	props   *prop.Properties
	signals chan *dbus.Signal
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// newPlatformWindow connects to the session bus and publishes the tray item.
func newPlatformWindow(cfg WindowConfig, events chan<- Event) (Window, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, &OSError{Detail: "connect to session bus", Err: err}
	}

	w := &sniWindow{
		name:    fmt.Sprintf("org.kde.StatusNotifierItem-%d-%d", os.Getpid(), windowInstance.Add(1)),
		conn:    conn,
		events:  events,
		menu:    newDBusMenu(conn, events, cfg.Logger),
		signals: make(chan *dbus.Signal, 64),
		logger:  cfg.Logger.With("component", "statusnotifier"),
	}

	if err := w.export(cfg.Title); err != nil {
		conn.Close()
		return nil, err
	}

	if err := w.register(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := w.subscribe(); err != nil {
		conn.Close()
		return nil, err
	}

	return w, nil
}

// export requests the item name on the session bus and exports the item and
// menu objects.
func (w *sniWindow) export(title string) error {
	reply, err := w.conn.RequestName(w.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return &OSError{Detail: fmt.Sprintf("request name %s", w.name), Err: err}
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return &OSError{Detail: fmt.Sprintf("name %s already taken", w.name)}
	}

	item := &sniObject{logger: w.logger}

	if err := w.conn.Export(item, statusNotifierItemPath, statusNotifierItemInterface); err != nil {
		return &OSError{Detail: "export status notifier item", Err: err}
	}

	props, err := prop.Export(w.conn, statusNotifierItemPath, prop.Map{
		statusNotifierItemInterface: map[string]*prop.Prop{
			"Category":          {Value: "ApplicationStatus", Writable: false, Emit: prop.EmitTrue},
			"Id":                {Value: title, Writable: false, Emit: prop.EmitTrue},
			"Title":             {Value: title, Writable: false, Emit: prop.EmitTrue},
			"Status":            {Value: "Active", Writable: false, Emit: prop.EmitTrue},
			"WindowId":          {Value: uint32(0), Writable: false, Emit: prop.EmitTrue},
			"IconName":          {Value: "", Writable: false, Emit: prop.EmitTrue},
			"IconPixmap":        {Value: []pixmap{}, Writable: false, Emit: prop.EmitTrue},
			"OverlayIconName":   {Value: "", Writable: false, Emit: prop.EmitTrue},
			"AttentionIconName": {Value: "", Writable: false, Emit: prop.EmitTrue},
			"ToolTip":           {Value: tooltip{}, Writable: false, Emit: prop.EmitTrue},
			"ItemIsMenu":        {Value: true, Writable: false, Emit: prop.EmitTrue},
			"Menu":              {Value: dbus.ObjectPath(menuPath), Writable: false, Emit: prop.EmitTrue},
		},
	})
	if err != nil {
		return &OSError{Detail: "export status notifier item properties", Err: err}
	}
	w.props = props

	node := &introspect.Node{
		Name: statusNotifierItemPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:    statusNotifierItemInterface,
				Methods: introspect.Methods(item),
			},
		},
	}

	if err := w.conn.Export(
		introspect.NewIntrospectable(node),
		statusNotifierItemPath,
		"org.freedesktop.DBus.Introspectable",
	); err != nil {
		return &OSError{Detail: "export status notifier item introspection", Err: err}
	}

	return w.menu.export()
}

// register announces the item to the StatusNotifierWatcher.
func (w *sniWindow) register() error {
	call := w.conn.Object(
		statusNotifierWatcherInterface,
		statusNotifierWatcherPath,
	).Call(statusNotifierWatcherInterface+".RegisterStatusNotifierItem", 0, w.name)
	if call.Err != nil {
		return &OSError{Detail: "register with status notifier watcher", Err: call.Err}
	}

	return nil
}

// subscribe watches the watcher's bus name.
//
// Whenever the name changes hands with a non-empty NewOwner, a new watcher
// appeared (typically because the desktop shell restarted) and the item must
// register again to stay visible.
func (w *sniWindow) subscribe() error {
	err := w.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, statusNotifierWatcherInterface),
	)
	if err != nil {
		return &OSError{Detail: "subscribe to NameOwnerChanged", Err: err}
	}

	w.conn.Signal(w.signals)

	go func() {
		for signal := range w.signals {
			if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" {
				continue
			}

			w.handleNameOwnerChanged(signal)
		}
	}()

	return nil
}

// handleNameOwnerChanged handles the org.freedesktop.DBus.NameOwnerChanged
// signal for the watcher name.
func (w *sniWindow) handleNameOwnerChanged(signal *dbus.Signal) {
	if len(signal.Body) < 3 {
		return
	}

	name, ok := signal.Body[0].(string)
	if !ok || name != statusNotifierWatcherInterface {
		return
	}

	newOwner, ok := signal.Body[2].(string)
	if !ok || newOwner == "" {
		return
	}

	w.logger.Debug("status notifier watcher changed owner", "owner", newOwner)

	if err := w.register(); err != nil {
		w.logger.Warn("re-registration with status notifier watcher failed", "error", err)
	}
}

func (w *sniWindow) AddMenuEntry(id MenuID, label string) error {
	return w.menu.addEntry(id, label)
}

func (w *sniWindow) AddMenuSeparator(id MenuID) error {
	return w.menu.addSeparator(id)
}

// SetIconFromFile publishes the image file as the item's icon pixmap.
func (w *sniWindow) SetIconFromFile(path string) error {
	icon, err := NewIconFromFile(path)
	if err != nil {
		return &OSError{Detail: "set icon", Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	w.props.SetMust(statusNotifierItemInterface, "IconPixmap", []pixmap{
		{Width: icon.Width, Height: icon.Height, Bytes: icon.Bytes},
	})
	w.props.SetMust(statusNotifierItemInterface, "IconName", "")

	return w.emit("NewIcon")
}

// SetIconFromResource publishes a freedesktop icon theme name as the item's
// icon.
func (w *sniWindow) SetIconFromResource(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	w.props.SetMust(statusNotifierItemInterface, "IconName", name)
	w.props.SetMust(statusNotifierItemInterface, "IconPixmap", []pixmap{})

	return w.emit("NewIcon")
}

func (w *sniWindow) SetTooltip(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	w.props.SetMust(statusNotifierItemInterface, "ToolTip", tooltip{Title: text})

	return w.emit("NewToolTip")
}

// emit must be called with mu held.
func (w *sniWindow) emit(signal string) error {
	if err := w.conn.Emit(statusNotifierItemPath, statusNotifierItemInterface+"."+signal); err != nil {
		return &OSError{Detail: "emit " + signal, Err: err}
	}

	return nil
}

// Shutdown releases the bus name and closes the connection.
func (w *sniWindow) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.teardown()
}

// Quit requests teardown without waiting for it.
func (w *sniWindow) Quit() {
	go func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		if err := w.teardown(); err != nil {
			w.logger.Warn("teardown after quit failed", "error", err)
		}
	}()
}

// teardown must be called with mu held. Every step runs regardless of
// earlier failures; the events channel is closed last so the consumer still
// observes everything sent before the disconnect.
func (w *sniWindow) teardown() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, releaseErr := w.conn.ReleaseName(w.name)

	w.conn.RemoveMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, statusNotifierWatcherInterface),
	)
	w.conn.RemoveSignal(w.signals)
	close(w.signals)

	closeErr := w.conn.Close()

	w.menu.close()
	close(w.events)

	if releaseErr != nil {
		return &OSError{Detail: fmt.Sprintf("release name %s", w.name), Err: releaseErr}
	}

	if closeErr != nil {
		return &OSError{Detail: "close session bus connection", Err: closeErr}
	}

	return nil
}

// sniObject receives the method calls of the org.kde.StatusNotifierItem
// interface. The item is menu-only (ItemIsMenu), so activations carry no
// behavior of their own; hosts open the menu through com.canonical.dbusmenu
// instead.
type sniObject struct {
	logger *slog.Logger
}

// Activate handles a primary activation, typically a mouse left click over
// the item.
func (o *sniObject) Activate(x, y int32) *dbus.Error {
	o.logger.Debug("item activated", "x", x, "y", y)
	return nil
}

// SecondaryActivate handles a secondary activation, typically a mouse middle
// click over the item.
func (o *sniObject) SecondaryActivate(x, y int32) *dbus.Error {
	o.logger.Debug("item secondary-activated", "x", x, "y", y)
	return nil
}

// ContextMenu handles a context menu request, typically a mouse right click
// over the item.
func (o *sniObject) ContextMenu(x, y int32) *dbus.Error {
	o.logger.Debug("item context menu requested", "x", x, "y", y)
	return nil
}

// Scroll handles a scroll event over the item. Valid orientation values are
// "horizontal" and "vertical".
func (o *sniObject) Scroll(delta int32, orientation string) *dbus.Error {
	o.logger.Debug("item scrolled", "delta", delta, "orientation", orientation)
	return nil
}
