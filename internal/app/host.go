package app

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Host is the native window and webview as the controller drives them
type Host interface {
	Window

	Reload()
	IsFullscreen() bool
	Fullscreen()
	Unfullscreen()
	IsMaximised() bool
	Maximise()
	Position() (x, y int)
	SetPosition(x, y int)
	Size() (width, height int)

	ExecJS(js string)
	On(event string, fn func(data ...interface{}))
	Emit(event string, data ...interface{})

	SetClipboard(text string) error
	Clipboard() (string, error)
	OpenURL(url string)
	Message(title, message string)
}

// wailsHost implements Host with the Wails runtime bound to the startup context
type wailsHost struct {
	ctx context.Context
}

func newWailsHost(ctx context.Context) Host {
	return &wailsHost{ctx: ctx}
}

func (h *wailsHost) Show() { runtime.WindowShow(h.ctx) }
func (h *wailsHost) Hide() { runtime.WindowHide(h.ctx) }

// Focus raises the window; WindowShow on a visible window brings it to front
func (h *wailsHost) Focus() { runtime.WindowShow(h.ctx) }

func (h *wailsHost) IsMinimised() bool    { return runtime.WindowIsMinimised(h.ctx) }
func (h *wailsHost) Unminimise()          { runtime.WindowUnminimise(h.ctx) }
func (h *wailsHost) Quit()                { runtime.Quit(h.ctx) }
func (h *wailsHost) Reload()              { runtime.WindowReload(h.ctx) }
func (h *wailsHost) IsFullscreen() bool   { return runtime.WindowIsFullscreen(h.ctx) }
func (h *wailsHost) Fullscreen()          { runtime.WindowFullscreen(h.ctx) }
func (h *wailsHost) Unfullscreen()        { runtime.WindowUnfullscreen(h.ctx) }
func (h *wailsHost) IsMaximised() bool    { return runtime.WindowIsMaximised(h.ctx) }
func (h *wailsHost) Maximise()            { runtime.WindowMaximise(h.ctx) }
func (h *wailsHost) Position() (int, int) { return runtime.WindowGetPosition(h.ctx) }
func (h *wailsHost) SetPosition(x, y int) { runtime.WindowSetPosition(h.ctx, x, y) }
func (h *wailsHost) Size() (int, int)     { return runtime.WindowGetSize(h.ctx) }
func (h *wailsHost) ExecJS(js string)     { runtime.WindowExecJS(h.ctx, js) }

func (h *wailsHost) On(event string, fn func(data ...interface{})) {
	runtime.EventsOn(h.ctx, event, fn)
}

func (h *wailsHost) Emit(event string, data ...interface{}) {
	runtime.EventsEmit(h.ctx, event, data...)
}

func (h *wailsHost) SetClipboard(text string) error { return runtime.ClipboardSetText(h.ctx, text) }
func (h *wailsHost) Clipboard() (string, error)     { return runtime.ClipboardGetText(h.ctx) }
func (h *wailsHost) OpenURL(url string)             { runtime.BrowserOpenURL(h.ctx, url) }

func (h *wailsHost) Message(title, message string) {
	_, _ = runtime.MessageDialog(h.ctx, runtime.MessageDialogOptions{
		Type:    runtime.InfoDialog,
		Title:   title,
		Message: message,
	})
}

