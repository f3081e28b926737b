package app

import (
	_ "embed"
	"fmt"

	"github.com/bytedance/sonic"
)

// Events exchanged with bridge.js
const (
	eventNavigated          = "ewebapp:navigated"
	eventCopyText           = "ewebapp:copy-text"
	eventContextMenu        = "ewebapp:context-menu"
	eventContextMenuShow    = "ewebapp:context-menu:show"
	eventContextMenuSelect  = "ewebapp:context-menu:select"
	eventContextMenuDismiss = "ewebapp:context-menu:dismiss"
	eventStorageCleared     = "ewebapp:storage-cleared"
)

//go:embed bridge.js
var bridgeSource string

type bridgeOptions struct {
	ContextMenu bool   `json:"contextMenu"`
	UserAgent   string `json:"userAgent,omitempty"` // reported by navigator when set
}

// contextMenuPayload is what the page reports on right click. SelectedWord is
// the single word selected in an editable field; webviews do not expose their
// spell checker, so it is only a candidate for the spelling entries.
type contextMenuPayload struct {
	IsEditable   bool   `json:"isEditable"`
	SelectedWord string `json:"selectedWord"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
}

type navigatedPayload struct {
	URL string `json:"url"`
}

type copyTextPayload struct {
	Text string `json:"text"`
}

type selectPayload struct {
	ID int `json:"id"`
}

// bridgeScript returns the page script that reports navigation and,
// when ContextMenu is set, replaces the browser context menu
func bridgeScript(options bridgeOptions) (string, error) {
	opts, err := sonic.MarshalString(options)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s);", bridgeSource, opts), nil
}

// decodePayload unpacks the JSON string the bridge sends as the first event argument
func decodePayload(data []interface{}, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("event carried no payload")
	}
	raw, ok := data[0].(string)
	if !ok {
		return fmt.Errorf("event payload is %T, want string", data[0])
	}
	return sonic.UnmarshalString(raw, v)
}

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	quoted, err := sonic.MarshalString(s)
	if err != nil {
		return `""`
	}
	return quoted
}
