package trayapp

// MenuID identifies a menu entry of an [Application].
//
// IDs are allocated by [Application.AddMenuItem] and
// [Application.AddMenuSeparator], counting up from 0 in creation order.
// Separators consume IDs the same way items do, and an ID is never reused.
type MenuID uint32

// menuEntry is one row of the context menu.
type menuEntry struct {
	id        MenuID
	label     string
	separator bool
}

// menu is the ordered context-menu state behind a platform backend. The menu
// is flat: every entry is a direct child of the root layout node.
//
// Revision starts at 0 and increments on every layout change, as required by
// com.canonical.dbusmenu.
type menu struct {
	entries  []menuEntry
	revision uint32
}

// add appends an entry and returns the new revision.
func (m *menu) add(e menuEntry) uint32 {
	m.entries = append(m.entries, e)
	m.revision++

	return m.revision
}

// find returns the entry behind a layout node ID.
func (m *menu) find(nodeID int32) (menuEntry, bool) {
	for _, e := range m.entries {
		if layoutNodeID(e.id) == nodeID {
			return e, true
		}
	}

	return menuEntry{}, false
}

// layout builds the layout tree below parentID.
//
// recursionDepth follows the com.canonical.dbusmenu convention:
//   - -1: deliver all nodes (no recursion limit).
//   - 0: disable recursion (children slice will be empty).
//
// propertyNames filters node properties; an empty slice keeps all of them.
// The second return value reports whether parentID names a known node.
func (m *menu) layout(parentID int32, recursionDepth int32, propertyNames []string) (*layoutNode, bool) {
	if parentID == rootNodeID {
		root := &layoutNode{
			ID:         rootNodeID,
			Properties: filterProperties(rootProperties(), propertyNames),
		}

		if recursionDepth == 0 {
			return root, true
		}

		for _, e := range m.entries {
			root.Children = append(root.Children, &layoutNode{
				ID:         layoutNodeID(e.id),
				Properties: e.properties(propertyNames),
			})
		}

		return root, true
	}

	e, ok := m.find(parentID)
	if !ok {
		return nil, false
	}

	return &layoutNode{
		ID:         parentID,
		Properties: e.properties(propertyNames),
	}, true
}
