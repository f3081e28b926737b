package menu

import (
	wailsmenu "github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
)

// WailsOptions adjusts the native conversion per platform
type WailsOptions struct {
	// PrependAppMenu adds the macOS application menu role in front. That
	// menu owns CmdOrCtrl+Q, so the Quit item loses its accelerator.
	PrependAppMenu bool
}

// ToWails converts m into a native Wails menu. Roles dispatch to performRole.
func ToWails(m *Menu, performRole func(Role), opts WailsOptions) *wailsmenu.Menu {
	out := wailsmenu.NewMenu()
	if opts.PrependAppMenu {
		out.Append(wailsmenu.AppMenu())
	}
	appendItems(out, m.Items, performRole, opts)
	return out
}

func appendItems(out *wailsmenu.Menu, items []Item, performRole func(Role), opts WailsOptions) {
	for _, it := range items {
		switch v := it.(type) {
		case Submenu:
			sub := out.AddSubmenu(v.Label)
			appendItems(sub, v.Items, performRole, opts)
		case SeparatorItem:
			out.AddSeparator()
		case ActionItem:
			action := v.Action
			out.AddText(v.Label, toKeys(v.Accelerator), func(*wailsmenu.CallbackData) {
				if action != nil {
					action()
				}
			})
		case RoleItem:
			role := v.Role
			var accel *keys.Accelerator
			if !role.HandledByWebview() && !(role == RoleQuit && opts.PrependAppMenu) {
				accel = toKeys(v.Accelerator)
			}
			out.AddText(v.DisplayLabel(), accel, func(*wailsmenu.CallbackData) {
				if performRole != nil {
					performRole(role)
				}
			})
		}
	}
}

func toKeys(a *Accelerator) *keys.Accelerator {
	if a == nil {
		return nil
	}
	mods := make([]keys.Modifier, 0, len(a.Modifiers))
	for _, m := range a.Modifiers {
		switch m {
		case CmdOrCtrl:
			mods = append(mods, keys.CmdOrCtrlKey)
		case OptionOrAlt:
			mods = append(mods, keys.OptionOrAltKey)
		case Shift:
			mods = append(mods, keys.ShiftKey)
		case Control:
			mods = append(mods, keys.ControlKey)
		}
	}
	return &keys.Accelerator{Key: a.Key, Modifiers: mods}
}
