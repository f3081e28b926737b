package app

import (
	"strings"
	"testing"
)

func TestBridgeScript(t *testing.T) {
	tests := []struct {
		contextMenu bool
		suffix      string
	}{
		{true, `({"contextMenu":true});`},
		{false, `({"contextMenu":false});`},
	}
	for _, tt := range tests {
		script, err := bridgeScript(bridgeOptions{ContextMenu: tt.contextMenu})
		if err != nil {
			t.Fatalf("bridgeScript failed: %v", err)
		}
		if !strings.HasPrefix(script, "(function (options)") || !strings.HasSuffix(script, tt.suffix) {
			t.Errorf("Unexpected script framing for contextMenu=%v", tt.contextMenu)
		}
		for _, event := range []string{eventNavigated, eventCopyText, eventContextMenu, eventContextMenuShow, eventContextMenuSelect, eventContextMenuDismiss, eventStorageCleared} {
			if !strings.Contains(script, "'"+event+"'") {
				t.Errorf("Bridge does not use event %s", event)
			}
		}
	}
}

func TestBridgeScript_ReportsSelectedWord(t *testing.T) {
	script, err := bridgeScript(bridgeOptions{ContextMenu: true, UserAgent: "Agent/1"})
	if err != nil {
		t.Fatalf("bridgeScript failed: %v", err)
	}
	if !strings.Contains(script, "selectedWord: editable ? selectedWord(target)") {
		t.Error("Expected the bridge to report the selected word")
	}
	if strings.Contains(script, "misspelledWord") {
		t.Error("The bridge cannot know whether a word is misspelled")
	}
	if !strings.HasSuffix(script, `({"contextMenu":true,"userAgent":"Agent/1"});`) {
		t.Errorf("Unexpected options suffix in %q", script[len(script)-60:])
	}

	var payload contextMenuPayload
	if err := decodePayload([]interface{}{`{"isEditable":true,"selectedWord":"helo","x":3,"y":4}`}, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.SelectedWord != "helo" || payload.X != 3 || payload.Y != 4 {
		t.Errorf("Unexpected payload %+v", payload)
	}
}

func TestDecodePayload(t *testing.T) {
	var nav navigatedPayload
	if err := decodePayload([]interface{}{`{"url":"wails://wails/x"}`}, &nav); err != nil || nav.URL != "wails://wails/x" {
		t.Errorf("Unexpected decode result %+v, %v", nav, err)
	}

	tests := []struct {
		name string
		data []interface{}
	}{
		{"empty", nil},
		{"not a string", []interface{}{map[string]interface{}{"url": "x"}}},
		{"invalid json", []interface{}{`{"url":`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := decodePayload(tt.data, &nav); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestJSString(t *testing.T) {
	if got := jsString("a\"b\n</script>"); !strings.HasPrefix(got, `"a\"b\n`) {
		t.Errorf("Unexpected quoting %q", got)
	}
}
