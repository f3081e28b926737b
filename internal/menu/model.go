// Package menu builds the application menu bar and the page context menu
// as plain data, and converts them to Wails native menus.
package menu

import "strings"

// Role is a built-in editing or window operation
type Role int

const (
	RoleUndo Role = iota
	RoleRedo
	RoleCut
	RoleCopy
	RolePaste
	RoleDelete
	RoleSelectAll
	RoleReload
	RoleZoomIn
	RoleZoomOut
	RoleResetZoom
	RoleToggleFullscreen
	RoleToggleDevTools
	RoleQuit
)

var roleLabels = map[Role]string{
	RoleUndo:             "Undo",
	RoleRedo:             "Redo",
	RoleCut:              "Cut",
	RoleCopy:             "Copy",
	RolePaste:            "Paste",
	RoleDelete:           "Delete",
	RoleSelectAll:        "Select All",
	RoleReload:           "Reload",
	RoleZoomIn:           "Zoom In",
	RoleZoomOut:          "Zoom Out",
	RoleResetZoom:        "Actual Size",
	RoleToggleFullscreen: "Toggle Full Screen",
	RoleToggleDevTools:   "Toggle Developer Tools",
	RoleQuit:             "Quit",
}

// String returns the role's default label
func (r Role) String() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return "Unknown"
}

// HandledByWebview reports whether the webview already reacts to the role's
// keyboard shortcut. Binding those keys natively would take them away from the page.
func (r Role) HandledByWebview() bool {
	switch r {
	case RoleUndo, RoleRedo, RoleCut, RoleCopy, RolePaste, RoleDelete, RoleSelectAll:
		return true
	}
	return false
}

// Modifier is a key held with an accelerator's key
type Modifier string

const (
	CmdOrCtrl   Modifier = "cmdorctrl"
	OptionOrAlt Modifier = "optionoralt"
	Shift       Modifier = "shift"
	Control     Modifier = "ctrl"
)

// Accelerator is a keyboard shortcut
type Accelerator struct {
	Key       string
	Modifiers []Modifier
}

// Accel builds an Accelerator
func Accel(key string, mods ...Modifier) *Accelerator {
	return &Accelerator{Key: key, Modifiers: mods}
}

// String renders the shortcut for display, e.g. "Ctrl+Shift+O"
func (a *Accelerator) String() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, len(a.Modifiers)+1)
	for _, m := range a.Modifiers {
		switch m {
		case CmdOrCtrl, Control:
			parts = append(parts, "Ctrl")
		case OptionOrAlt:
			parts = append(parts, "Alt")
		case Shift:
			parts = append(parts, "Shift")
		}
	}
	key := a.Key
	if len(key) == 1 {
		key = strings.ToUpper(key)
	} else if key != "" {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	return strings.Join(append(parts, key), "+")
}

// Item is one entry of a Menu: RoleItem, ActionItem, SeparatorItem or Submenu
type Item interface {
	isItem()
}

// RoleItem performs a built-in Role
type RoleItem struct {
	Role        Role
	Label       string // empty means Role.String()
	Accelerator *Accelerator
}

// ActionItem runs Action when chosen
type ActionItem struct {
	Label       string
	Accelerator *Accelerator
	Action      func()
}

// SeparatorItem draws a divider
type SeparatorItem struct{}

// Submenu nests items under a label
type Submenu struct {
	Label string
	Items []Item
}

func (RoleItem) isItem()      {}
func (ActionItem) isItem()    {}
func (SeparatorItem) isItem() {}
func (Submenu) isItem()       {}

// DisplayLabel returns Label or the role's default
func (r RoleItem) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Role.String()
}

// Menu is an ordered list of items
type Menu struct {
	Items []Item
}

// Labels lists the top-level labels, "-" for separators
func (m *Menu) Labels() []string {
	labels := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		labels = append(labels, itemLabel(it))
	}
	return labels
}

// Find returns the top-level submenu called label
func (m *Menu) Find(label string) (Submenu, bool) {
	for _, it := range m.Items {
		if sm, ok := it.(Submenu); ok && sm.Label == label {
			return sm, true
		}
	}
	return Submenu{}, false
}

func itemLabel(it Item) string {
	switch v := it.(type) {
	case RoleItem:
		return v.DisplayLabel()
	case ActionItem:
		return v.Label
	case Submenu:
		return v.Label
	default:
		return "-"
	}
}

// Walk calls fn for every non-submenu item, depth first
func (m *Menu) Walk(fn func(Item)) {
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, it := range items {
			if sm, ok := it.(Submenu); ok {
				walk(sm.Items)
				continue
			}
			fn(it)
		}
	}
	walk(m.Items)
}
