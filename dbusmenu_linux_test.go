//go:build linux

package trayapp

import (
	"io"
	"log/slog"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMenu builds a dbusMenu without a bus connection. Methods that emit
// signals are exercised elsewhere; everything else works connection-free.
func newTestMenu(events chan<- Event) *dbusMenu {
	return newDBusMenu(nil, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDBusMenuEventForwardsClicks(t *testing.T) {
	ch := make(chan Event, 8)
	m := newTestMenu(ch)
	m.model.add(menuEntry{id: 0, label: "Open"})

	require.Nil(t, m.Event(layoutNodeID(0), "clicked", dbus.Variant{}, 0))
	require.Nil(t, m.Event(layoutNodeID(0), "hovered", dbus.Variant{}, 0))
	require.Nil(t, m.Event(rootNodeID, "clicked", dbus.Variant{}, 0))

	require.Len(t, ch, 1)
	assert.Equal(t, Event{ID: 0}, <-ch)
}

func TestDBusMenuEventTranslatesNodeIDs(t *testing.T) {
	ch := make(chan Event, 8)
	m := newTestMenu(ch)

	// Unallocated entry IDs still translate; filtering them out is up to the
	// record consumer.
	require.Nil(t, m.Event(8, "clicked", dbus.Variant{}, 0))

	require.Len(t, ch, 1)
	assert.Equal(t, Event{ID: 7}, <-ch)
}

func TestDBusMenuEventDroppedWhenClosed(t *testing.T) {
	ch := make(chan Event, 8)
	m := newTestMenu(ch)
	m.model.add(menuEntry{id: 0, label: "Open"})

	m.close()

	require.Nil(t, m.Event(layoutNodeID(0), "clicked", dbus.Variant{}, 0))
	assert.Empty(t, ch)
}

func TestDBusMenuEventGroup(t *testing.T) {
	ch := make(chan Event, 8)
	m := newTestMenu(ch)
	m.model.add(menuEntry{id: 0, label: "Open"})
	m.model.add(menuEntry{id: 1, label: "Quit"})

	failed, dErr := m.EventGroup([]wireEvent{
		{ID: layoutNodeID(1), EventID: "clicked"},
		{ID: layoutNodeID(0), EventID: "hovered"},
		{ID: layoutNodeID(0), EventID: "clicked"},
	})
	require.Nil(t, dErr)
	assert.Empty(t, failed)

	require.Len(t, ch, 2)
	assert.Equal(t, Event{ID: 1}, <-ch)
	assert.Equal(t, Event{ID: 0}, <-ch)
}

func TestDBusMenuGetLayout(t *testing.T) {
	m := newTestMenu(make(chan Event, 1))
	m.model.add(menuEntry{id: 0, label: "Open"})
	m.model.add(menuEntry{id: 1, separator: true})

	revision, wire, dErr := m.GetLayout(rootNodeID, -1, nil)
	require.Nil(t, dErr)

	assert.Equal(t, uint32(2), revision)
	assert.Equal(t, rootNodeID, wire.ID)
	assert.Equal(t, dbus.MakeVariant("submenu"), wire.Properties["children-display"])
	require.Len(t, wire.Children, 2)

	open, ok := wire.Children[0].Value().(wireNode)
	require.True(t, ok)
	assert.Equal(t, int32(1), open.ID)
	assert.Equal(t, dbus.MakeVariant("Open"), open.Properties["label"])

	sep, ok := wire.Children[1].Value().(wireNode)
	require.True(t, ok)
	assert.Equal(t, dbus.MakeVariant("separator"), sep.Properties["type"])
}

func TestDBusMenuGetLayoutUnknownParent(t *testing.T) {
	m := newTestMenu(make(chan Event, 1))

	_, _, dErr := m.GetLayout(99, -1, nil)
	require.NotNil(t, dErr)
}

func TestDBusMenuGetGroupProperties(t *testing.T) {
	m := newTestMenu(make(chan Event, 1))
	m.model.add(menuEntry{id: 0, label: "Open"})

	group, dErr := m.GetGroupProperties([]int32{rootNodeID, layoutNodeID(0), 99}, nil)
	require.Nil(t, dErr)

	require.Len(t, group, 2)
	assert.Equal(t, rootNodeID, group[0].ID)
	assert.Equal(t, dbus.MakeVariant("submenu"), group[0].Properties["children-display"])
	assert.Equal(t, layoutNodeID(0), group[1].ID)
	assert.Equal(t, dbus.MakeVariant("Open"), group[1].Properties["label"])
}

func TestDBusMenuGetProperty(t *testing.T) {
	m := newTestMenu(make(chan Event, 1))
	m.model.add(menuEntry{id: 0, label: "Open"})

	value, dErr := m.GetProperty(layoutNodeID(0), "label")
	require.Nil(t, dErr)
	assert.Equal(t, dbus.MakeVariant("Open"), value)

	_, dErr = m.GetProperty(99, "label")
	require.NotNil(t, dErr)

	_, dErr = m.GetProperty(layoutNodeID(0), "shortcut")
	require.NotNil(t, dErr)
}

func TestDBusMenuAboutToShow(t *testing.T) {
	m := newTestMenu(make(chan Event, 1))

	refresh, dErr := m.AboutToShow(rootNodeID)
	require.Nil(t, dErr)
	assert.False(t, refresh)

	updates, idErrors, dErr := m.AboutToShowGroup([]int32{rootNodeID})
	require.Nil(t, dErr)
	assert.Empty(t, updates)
	assert.Empty(t, idErrors)
}

func TestDBusMenuAddEntryClosed(t *testing.T) {
	m := newTestMenu(make(chan Event, 1))
	m.close()

	var osErr *OSError
	require.ErrorAs(t, m.addEntry(0, "Open"), &osErr)
	require.ErrorAs(t, m.addSeparator(1), &osErr)
	assert.Zero(t, m.model.revision)
}

func TestWireLayout(t *testing.T) {
	wire := wireLayout(&layoutNode{
		ID:         rootNodeID,
		Properties: map[string]any{"children-display": "submenu"},
		Children: []*layoutNode{
			{ID: 1, Properties: map[string]any{"label": "Open", "enabled": true}},
		},
	})

	assert.Equal(t, rootNodeID, wire.ID)
	assert.Equal(t, dbus.MakeVariant("submenu"), wire.Properties["children-display"])
	require.Len(t, wire.Children, 1)

	child, ok := wire.Children[0].Value().(wireNode)
	require.True(t, ok)
	assert.Equal(t, int32(1), child.ID)
	assert.Equal(t, dbus.MakeVariant(true), child.Properties["enabled"])
	assert.Empty(t, child.Children)
}
