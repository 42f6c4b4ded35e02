//go:build linux

package trayapp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	menuInterface = "com.canonical.dbusmenu"
	menuPath      = "/MenuBar"
)

// wireNode is the (ia{sv}av) layout structure of com.canonical.dbusmenu.
type wireNode struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// wireProperties is the (ia{sv}) element returned by GetGroupProperties.
type wireProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// wireEvent is the (isvu) element received by EventGroup.
type wireEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// wireLayout converts a layout tree to its wire representation.
func wireLayout(node *layoutNode) wireNode {
	wire := wireNode{
		ID:         node.ID,
		Properties: wireProps(node.Properties),
		Children:   make([]dbus.Variant, 0, len(node.Children)),
	}

	for _, child := range node.Children {
		wire.Children = append(wire.Children, dbus.MakeVariant(wireLayout(child)))
	}

	return wire
}

func wireProps(props map[string]any) map[string]dbus.Variant {
	wire := make(map[string]dbus.Variant, len(props))

	for key, value := range props {
		wire[key] = dbus.MakeVariant(value)
	}

	return wire
}

// dbusMenu serves the com.canonical.dbusmenu interface for the context menu
// of an [sniWindow]. Its exported methods are the D-Bus surface; hosts call
// them to read the layout and to report user input.
type dbusMenu struct {
	conn   *dbus.Conn
	events chan<- Event
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	model  menu
}

func newDBusMenu(conn *dbus.Conn, events chan<- Event, logger *slog.Logger) *dbusMenu {
	return &dbusMenu{
		conn:   conn,
		events: events,
		logger: logger.With("component", "dbusmenu"),
	}
}

// export publishes the menu object on the session bus.
func (m *dbusMenu) export() error {
	if err := m.conn.Export(m, menuPath, menuInterface); err != nil {
		return &OSError{Detail: "export menu", Err: err}
	}

	if _, err := prop.Export(m.conn, menuPath, prop.Map{
		menuInterface: map[string]*prop.Prop{
			"Version":       {Value: uint32(3), Writable: false, Emit: prop.EmitTrue},
			"TextDirection": {Value: "ltr", Writable: false, Emit: prop.EmitTrue},
			"Status":        {Value: "normal", Writable: false, Emit: prop.EmitTrue},
		},
	}); err != nil {
		return &OSError{Detail: "export menu properties", Err: err}
	}

	node := &introspect.Node{
		Name: menuPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:    menuInterface,
				Methods: introspect.Methods(m),
			},
		},
	}

	if err := m.conn.Export(
		introspect.NewIntrospectable(node),
		menuPath,
		"org.freedesktop.DBus.Introspectable",
	); err != nil {
		return &OSError{Detail: "export menu introspection", Err: err}
	}

	return nil
}

// addEntry appends a labeled entry to the menu and announces the new layout.
func (m *dbusMenu) addEntry(id MenuID, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &OSError{Detail: "menu is closed"}
	}

	// Announce first: if the signal cannot be emitted, the entry is not added
	// and the layout revision does not advance.
	if err := m.layoutUpdated(m.model.revision + 1); err != nil {
		return err
	}

	m.model.add(menuEntry{id: id, label: label})

	return nil
}

// addSeparator appends a separator to the menu and announces the new layout.
func (m *dbusMenu) addSeparator(id MenuID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &OSError{Detail: "menu is closed"}
	}

	if err := m.layoutUpdated(m.model.revision + 1); err != nil {
		return err
	}

	m.model.add(menuEntry{id: id, separator: true})

	return nil
}

// layoutUpdated must be called with mu held.
func (m *dbusMenu) layoutUpdated(revision uint32) error {
	if err := m.conn.Emit(menuPath, menuInterface+".LayoutUpdated", revision, rootNodeID); err != nil {
		return &OSError{Detail: "emit LayoutUpdated", Err: err}
	}

	return nil
}

// close stops the menu from publishing further activations.
func (m *dbusMenu) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
}

// GetLayout implements com.canonical.dbusmenu.GetLayout.
func (m *dbusMenu) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, wireNode, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.model.layout(parentID, recursionDepth, propertyNames)
	if !ok {
		return 0, wireNode{}, dbus.MakeFailedError(fmt.Errorf("unknown menu node %d", parentID))
	}

	return m.model.revision, wireLayout(node), nil
}

// GetGroupProperties implements com.canonical.dbusmenu.GetGroupProperties.
// Unknown IDs are skipped.
func (m *dbusMenu) GetGroupProperties(ids []int32, propertyNames []string) ([]wireProperties, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	group := make([]wireProperties, 0, len(ids))

	for _, id := range ids {
		props, ok := m.nodeProperties(id, propertyNames)
		if !ok {
			continue
		}

		group = append(group, wireProperties{ID: id, Properties: wireProps(props)})
	}

	return group, nil
}

// GetProperty implements com.canonical.dbusmenu.GetProperty.
func (m *dbusMenu) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props, ok := m.nodeProperties(id, nil)
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown menu node %d", id))
	}

	value, ok := props[name]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property %s of menu node %d", name, id))
	}

	return dbus.MakeVariant(value), nil
}

// nodeProperties must be called with mu held.
func (m *dbusMenu) nodeProperties(id int32, propertyNames []string) (map[string]any, bool) {
	if id == rootNodeID {
		return filterProperties(rootProperties(), propertyNames), true
	}

	e, ok := m.model.find(id)
	if !ok {
		return nil, false
	}

	return e.properties(propertyNames), true
}

// Event implements com.canonical.dbusmenu.Event. Clicks translate to
// activation records; other event kinds are acknowledged and dropped.
func (m *dbusMenu) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handleEvent(id, eventID)

	return nil
}

// EventGroup implements com.canonical.dbusmenu.EventGroup. It returns the
// IDs of layout nodes the events could not be delivered to; activations are
// accepted for every translatable node, so the list is always empty.
func (m *dbusMenu) EventGroup(events []wireEvent) ([]int32, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range events {
		m.handleEvent(e.ID, e.EventID)
	}

	return []int32{}, nil
}

// handleEvent must be called with mu held.
//
// The record is published for every node that maps back to a menu entry ID,
// including separators and IDs that were never allocated; deciding what is
// dispatchable is the consumer's job.
func (m *dbusMenu) handleEvent(id int32, eventID string) {
	if m.closed || eventID != "clicked" {
		return
	}

	menuID, ok := menuIDFromNode(id)
	if !ok {
		return
	}

	m.logger.Debug("menu entry clicked", "id", menuID)
	m.events <- Event{ID: menuID}
}

// AboutToShow implements com.canonical.dbusmenu.AboutToShow. The layout is
// always announced eagerly through LayoutUpdated, so hosts never need a
// refresh here.
func (m *dbusMenu) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

// AboutToShowGroup implements com.canonical.dbusmenu.AboutToShowGroup.
func (m *dbusMenu) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	return []int32{}, []int32{}, nil
}
