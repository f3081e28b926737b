package menu

// Actions are the operations menu items trigger. Every menu built here binds
// to one Actions value; the lifecycle controller implements it against the window.
type Actions interface {
	PerformRole(role Role)
	OpenCurrentInBrowser()
	CopyPlainText()
	CopyCurrentURL()
	GoBack()
	GoForward()
	ResetApplication()
	ShowAbout()
	ReportIssue()
	ReplaceMisspelling(suggestion string)
	AddToDictionary(word string)
}

// ContextParams describes where and on what the user right-clicked
type ContextParams struct {
	IsEditable            bool     `json:"isEditable"`
	MisspelledWord        string   `json:"misspelledWord"`
	DictionarySuggestions []string `json:"dictionarySuggestions"`
	X                     int      `json:"x"`
	Y                     int      `json:"y"`
}

// BuildApplicationMenu returns the File, Edit, View, Tools and Help menus.
// actions must not be nil.
func BuildApplicationMenu(actions Actions) *Menu {
	if actions == nil {
		panic("menu: BuildApplicationMenu called with nil actions")
	}

	return &Menu{Items: []Item{
		Submenu{Label: "File", Items: []Item{
			ActionItem{Label: "Open App in Default Browser", Accelerator: Accel("o", CmdOrCtrl, Shift), Action: actions.OpenCurrentInBrowser},
			RoleItem{Role: RoleQuit, Accelerator: Accel("q", CmdOrCtrl)},
		}},
		Submenu{Label: "Edit", Items: []Item{
			RoleItem{Role: RoleUndo, Accelerator: Accel("z", CmdOrCtrl)},
			RoleItem{Role: RoleRedo, Accelerator: Accel("z", CmdOrCtrl, Shift)},
			SeparatorItem{},
			RoleItem{Role: RoleCut, Accelerator: Accel("x", CmdOrCtrl)},
			RoleItem{Role: RoleCopy, Accelerator: Accel("c", CmdOrCtrl)},
			ActionItem{Label: "Copy as Plain Text", Accelerator: Accel("c", CmdOrCtrl, Shift), Action: actions.CopyPlainText},
			ActionItem{Label: "Copy Current URL", Accelerator: Accel("l", CmdOrCtrl), Action: actions.CopyCurrentURL},
			RoleItem{Role: RolePaste, Accelerator: Accel("v", CmdOrCtrl)},
			SeparatorItem{},
			RoleItem{Role: RoleSelectAll, Accelerator: Accel("a", CmdOrCtrl)},
		}},
		Submenu{Label: "View", Items: []Item{
			ActionItem{Label: "Back", Accelerator: Accel("left", OptionOrAlt), Action: actions.GoBack},
			ActionItem{Label: "Forward", Accelerator: Accel("right", OptionOrAlt), Action: actions.GoForward},
			RoleItem{Role: RoleReload, Accelerator: Accel("r", CmdOrCtrl)},
			SeparatorItem{},
			RoleItem{Role: RoleZoomIn, Accelerator: Accel("=", CmdOrCtrl)},
			RoleItem{Role: RoleZoomOut, Accelerator: Accel("-", CmdOrCtrl)},
			RoleItem{Role: RoleResetZoom, Accelerator: Accel("0", CmdOrCtrl)},
			SeparatorItem{},
			RoleItem{Role: RoleToggleFullscreen, Accelerator: Accel("f11")},
		}},
		Submenu{Label: "Tools", Items: []Item{
			ActionItem{Label: "Reset Application", Accelerator: Accel("r", CmdOrCtrl, Shift), Action: actions.ResetApplication},
			RoleItem{Role: RoleToggleDevTools, Accelerator: Accel("i", CmdOrCtrl, Shift)},
		}},
		Submenu{Label: "Help", Items: []Item{
			ActionItem{Label: "About", Action: actions.ShowAbout},
			ActionItem{Label: "Report an Issue", Action: actions.ReportIssue},
		}},
	}}
}

// BuildContextMenu returns the right-click menu for params. Suggestions and
// "Add to Dictionary" appear only for a misspelled word the user has not
// already added; inDictionary may be nil.
func BuildContextMenu(params ContextParams, actions Actions, inDictionary func(word string) bool) *Menu {
	if actions == nil {
		panic("menu: BuildContextMenu called with nil actions")
	}

	var items []Item

	if params.IsEditable {
		word := params.MisspelledWord
		if word != "" && (inDictionary == nil || !inDictionary(word)) {
			for _, suggestion := range params.DictionarySuggestions {
				items = append(items, ActionItem{Label: suggestion, Action: func() { actions.ReplaceMisspelling(suggestion) }})
			}
			items = append(items,
				ActionItem{Label: "Add to Dictionary", Action: func() { actions.AddToDictionary(word) }},
				SeparatorItem{},
			)
		}
		items = append(items,
			RoleItem{Role: RoleUndo, Accelerator: Accel("z", CmdOrCtrl)},
			RoleItem{Role: RoleRedo, Accelerator: Accel("y", CmdOrCtrl)},
			SeparatorItem{},
			RoleItem{Role: RoleCut, Accelerator: Accel("x", CmdOrCtrl)},
			RoleItem{Role: RoleCopy, Accelerator: Accel("c", CmdOrCtrl)},
			RoleItem{Role: RolePaste, Accelerator: Accel("v", CmdOrCtrl)},
			RoleItem{Role: RoleDelete},
			RoleItem{Role: RoleSelectAll, Accelerator: Accel("a", CmdOrCtrl)},
		)
		return &Menu{Items: items}
	}

	items = append(items,
		ActionItem{Label: "Back", Accelerator: Accel("left", OptionOrAlt), Action: actions.GoBack},
		ActionItem{Label: "Forward", Accelerator: Accel("right", OptionOrAlt), Action: actions.GoForward},
		RoleItem{Role: RoleReload, Accelerator: Accel("r", CmdOrCtrl)},
		SeparatorItem{},
		RoleItem{Role: RoleCopy, Accelerator: Accel("c", CmdOrCtrl)},
		ActionItem{Label: "Copy Link", Action: actions.CopyCurrentURL},
		ActionItem{Label: "Open Link in Browser", Action: actions.OpenCurrentInBrowser},
		ActionItem{Label: "Open Page in Browser", Action: actions.OpenCurrentInBrowser},
	)
	return &Menu{Items: items}
}
