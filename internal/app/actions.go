package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ewebapp/internal/infrastructure/logging"
	"ewebapp/internal/menu"
	"ewebapp/internal/pageinfo"
	"ewebapp/internal/platform"
)

const (
	zoomStep = 0.1
	minZoom  = 0.3
	maxZoom  = 3.0
)

// clearStorageScript asks the bridge to clear the page's storage; it answers with eventStorageCleared
const clearStorageScript = `window.__ewebappClearStorage && window.__ewebappClearStorage();`

var editCommands = map[menu.Role]string{
	menu.RoleUndo:      "undo",
	menu.RoleRedo:      "redo",
	menu.RoleCut:       "cut",
	menu.RoleCopy:      "copy",
	menu.RoleDelete:    "delete",
	menu.RoleSelectAll: "selectAll",
}

func execCommand(command string) string {
	return fmt.Sprintf("document.execCommand(%s);", jsString(command))
}

func insertText(text string) string {
	return fmt.Sprintf("document.execCommand('insertText', false, %s);", jsString(text))
}

func zoomScript(zoom float64) string {
	return fmt.Sprintf("document.documentElement.style.zoom = %s;", jsString(strconv.FormatFloat(zoom, 'f', 2, 64)))
}

// PerformRole runs a built-in menu role against the window
func (a *App) PerformRole(role menu.Role) {
	host := a.currentHost()
	if host == nil {
		a.logger.Warn("Menu role ignored before startup", "role", role.String())
		return
	}

	if command, ok := editCommands[role]; ok {
		host.ExecJS(execCommand(command))
		return
	}

	switch role {
	case menu.RolePaste:
		text, err := host.Clipboard()
		if err != nil {
			logging.LogError(a.logger, err, "app.Paste", nil)
			return
		}
		host.ExecJS(insertText(text))
	case menu.RoleReload:
		host.Reload()
	case menu.RoleZoomIn:
		a.setZoom(host, func(z float64) float64 { return z + zoomStep })
	case menu.RoleZoomOut:
		a.setZoom(host, func(z float64) float64 { return z - zoomStep })
	case menu.RoleResetZoom:
		a.setZoom(host, func(float64) float64 { return 1 })
	case menu.RoleToggleFullscreen:
		if host.IsFullscreen() {
			host.Unfullscreen()
		} else {
			host.Fullscreen()
		}
	case menu.RoleToggleDevTools:
		if a.cfg.DevTools {
			a.logger.Info("Developer tools are enabled; open the inspector from the page context or its shortcut")
		} else {
			a.logger.Warn("Developer tools are disabled; set devTools in the configuration and rebuild with -devtools")
		}
	case menu.RoleQuit:
		if lifecycle := a.currentLifecycle(); lifecycle != nil {
			lifecycle.Quit()
		}
	default:
		a.logger.Warn("Unhandled menu role", "role", role.String())
	}
}

func (a *App) setZoom(host Host, next func(float64) float64) {
	a.mu.Lock()
	z := next(a.zoom)
	if z < minZoom {
		z = minZoom
	}
	if z > maxZoom {
		z = maxZoom
	}
	a.zoom = z
	a.mu.Unlock()

	host.ExecJS(zoomScript(z))
}

// OpenCurrentInBrowser opens the shown page in the default browser
func (a *App) OpenCurrentInBrowser() {
	if host := a.currentHost(); host != nil {
		host.OpenURL(a.remoteURL())
	}
}

// CopyPlainText copies the page selection without formatting
func (a *App) CopyPlainText() {
	if host := a.currentHost(); host != nil {
		host.ExecJS("window.__ewebappCopySelection && window.__ewebappCopySelection();")
	}
}

// CopyCurrentURL puts the shown page's website address on the clipboard
func (a *App) CopyCurrentURL() {
	a.setClipboard(a.remoteURL())
}

func (a *App) GoBack() {
	if host := a.currentHost(); host != nil {
		host.ExecJS("history.back();")
	}
}

func (a *App) GoForward() {
	if host := a.currentHost(); host != nil {
		host.ExecJS("history.forward();")
	}
}

// ResetApplication clears the site's storage, waits for the page to confirm,
// then starts a fresh process that wipes the webview profile and quits this one
func (a *App) ResetApplication() {
	host := a.currentHost()
	if host == nil {
		return
	}

	a.mu.Lock()
	if a.resetAck != nil {
		a.mu.Unlock()
		a.logger.Warn("Reset already in progress")
		return
	}
	ack := make(chan struct{})
	a.resetAck = ack
	a.mu.Unlock()

	host.ExecJS(clearStorageScript)
	go a.finishReset(ack)
}

func (a *App) finishReset(ack chan struct{}) {
	select {
	case <-ack:
		a.logger.Debug("Page storage cleared")
	case <-time.After(a.resetTimeout):
		a.logger.Warn("Page did not confirm storage clearing, relaunching anyway", "timeout", a.resetTimeout.String())
		a.mu.Lock()
		if a.resetAck == ack {
			a.resetAck = nil
		}
		a.mu.Unlock()
	}

	if err := a.relaunch(platform.RelaunchEnv + "=1"); err != nil {
		logging.LogError(a.logger, err, "app.ResetApplication", nil)
		return
	}
	a.logger.Info("Relaunching after reset")
	if lifecycle := a.currentLifecycle(); lifecycle != nil {
		lifecycle.Quit()
	}
}

// ShowAbout shows the application name, address and the site's own description
func (a *App) ShowAbout() {
	host := a.currentHost()
	if host == nil {
		return
	}
	go func() {
		info, err := a.fetchInfo()
		if err != nil {
			logging.LogError(a.logger, err, "app.ShowAbout", map[string]interface{}{"url": a.cfg.WebPath})
		}
		host.Message("About "+a.cfg.AppName, aboutMessage(a.cfg, info, err))
	}()
}

func (a *App) fetchInfo() (pageinfo.Info, error) {
	if a.fetcher == nil {
		return pageinfo.Info{}, nil
	}
	parent := a.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, aboutTimeout)
	defer cancel()
	return a.fetcher.Fetch(ctx, a.cfg.WebPath)
}

func (a *App) ReportIssue() {
	if host := a.currentHost(); host != nil && a.cfg.IssueURL != "" {
		host.OpenURL(a.cfg.IssueURL)
	}
}

// ReplaceMisspelling replaces the selected word in the focused field
func (a *App) ReplaceMisspelling(suggestion string) {
	if host := a.currentHost(); host != nil {
		host.ExecJS(insertText(suggestion))
	}
}

// AddToDictionary stores word in the user dictionary
func (a *App) AddToDictionary(word string) {
	if a.dictionary == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := a.dictionary.AddWord(ctx, word); err != nil {
		logging.LogError(a.logger, err, "app.AddToDictionary", map[string]interface{}{"word": word})
		return
	}
	a.logger.Info("Word added to dictionary", "word", word)
}
