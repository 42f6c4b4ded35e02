package trayapp

// rootNodeID is the reserved ID of the menu root in a layout tree.
const rootNodeID int32 = 0

// layoutNode mirrors the node structure of com.canonical.dbusmenu: a numeric
// ID with a property map and child nodes.
type layoutNode struct {
	ID         int32
	Properties map[string]any
	Children   []*layoutNode
}

// layoutNodeID translates a menu entry ID to its layout node ID. Node 0 is
// reserved for the root, so entries are shifted by one.
func layoutNodeID(id MenuID) int32 {
	return int32(id) + 1
}

// menuIDFromNode is the reverse of [layoutNodeID].
func menuIDFromNode(nodeID int32) (MenuID, bool) {
	if nodeID < 1 {
		return 0, false
	}

	return MenuID(nodeID - 1), true
}

// rootProperties returns the properties of the menu root.
func rootProperties() map[string]any {
	return map[string]any{
		"children-display": "submenu",
	}
}

// properties returns the com.canonical.dbusmenu properties of the entry,
// restricted to propertyNames when it is non-empty.
func (e menuEntry) properties(propertyNames []string) map[string]any {
	props := make(map[string]any)

	if e.separator {
		props["type"] = "separator"
	} else {
		props["label"] = e.label
		props["enabled"] = true
		props["visible"] = true
	}

	return filterProperties(props, propertyNames)
}

// filterProperties restricts props to the listed names. An empty (or nil)
// list keeps every property.
func filterProperties(props map[string]any, propertyNames []string) map[string]any {
	if len(propertyNames) == 0 {
		return props
	}

	filtered := make(map[string]any, len(propertyNames))

	for _, name := range propertyNames {
		if value, ok := props[name]; ok {
			filtered[name] = value
		}
	}

	return filtered
}
