package menu

import "sync"

// PopupEntry is a context menu row as the page renders it
type PopupEntry struct {
	ID          int    `json:"id"`
	Label       string `json:"label,omitempty"`
	Accelerator string `json:"accelerator,omitempty"`
	Separator   bool   `json:"separator,omitempty"`
}

// Popup is sent to the page to draw a context menu at X, Y
type Popup struct {
	X       int          `json:"x"`
	Y       int          `json:"y"`
	Entries []PopupEntry `json:"entries"`
}

// Registry holds the callbacks of the popup currently on screen.
// Showing a new popup invalidates the ids of the previous one.
type Registry struct {
	mu      sync.Mutex
	next    int
	actions map[int]func()
}

// NewRegistry returns an empty Registry
func NewRegistry() *Registry {
	return &Registry{actions: make(map[int]func())}
}

// Replace registers m's items under fresh ids and returns the popup to render
func (r *Registry) Replace(m *Menu, x, y int, performRole func(Role)) Popup {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions = make(map[int]func())
	popup := Popup{X: x, Y: y, Entries: make([]PopupEntry, 0, len(m.Items))}

	m.Walk(func(it Item) {
		r.next++
		id := r.next
		switch v := it.(type) {
		case SeparatorItem:
			popup.Entries = append(popup.Entries, PopupEntry{ID: id, Separator: true})
		case ActionItem:
			r.actions[id] = v.Action
			popup.Entries = append(popup.Entries, PopupEntry{ID: id, Label: v.Label, Accelerator: v.Accelerator.String()})
		case RoleItem:
			role := v.Role
			r.actions[id] = func() {
				if performRole != nil {
					performRole(role)
				}
			}
			popup.Entries = append(popup.Entries, PopupEntry{ID: id, Label: v.DisplayLabel(), Accelerator: v.Accelerator.String()})
		}
	})
	return popup
}

// Invoke runs the callback registered under id. It reports false for stale or unknown ids.
// The callback runs after the registry lock is released.
func (r *Registry) Invoke(id int) bool {
	r.mu.Lock()
	fn, ok := r.actions[id]
	if ok {
		r.actions = make(map[int]func())
	}
	r.mu.Unlock()

	if !ok || fn == nil {
		return false
	}
	fn()
	return true
}

// Dismiss forgets the current popup
func (r *Registry) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = make(map[int]func())
}
