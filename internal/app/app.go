package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/wailsapp/wails/v2/pkg/options"

	"ewebapp/internal/config"
	"ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/infrastructure/logging"
	"ewebapp/internal/injection"
	"ewebapp/internal/menu"
	"ewebapp/internal/pageinfo"
	"ewebapp/internal/platform"
	"ewebapp/internal/session"
	"ewebapp/internal/store"
	"ewebapp/internal/tray"
)

const (
	// injectionWaitTime bounds how long shutdown waits for pending custom file reads
	injectionWaitTime = 2 * time.Second
	storeTimeout      = 5 * time.Second
	aboutTimeout      = 10 * time.Second
	// resetTimeout bounds the wait for the page to confirm its storage is cleared
	resetTimeout      = 3 * time.Second
)

// trayController is the part of tray.Tray the controller uses
type trayController interface {
	Start()
	Stop()
	Running() bool
}

// Options are the collaborators of an App
type Options struct {
	Config     *config.Config
	OS         platform.OS
	Store      store.StateStore
	Dictionary store.Dictionary
	Proxy      *session.Proxy // maps in-window URLs back to the website
	Fetcher    *pageinfo.Fetcher
	UserAgent  string // reported by navigator, empty keeps the webview's own
	TrayIcon   []byte
	Closers    []io.Closer // closed at shutdown
	Logger     logging.Logger
}

// App is the window and lifecycle controller. Its exported methods are the
// Wails lifecycle hooks; it also implements menu.Actions.
type App struct {
	cfg        *config.Config
	os         platform.OS
	states     store.StateStore
	dictionary store.Dictionary
	proxy      *session.Proxy
	fetcher    *pageinfo.Fetcher
	userAgent  string
	trayIcon   []byte
	closers    []io.Closer
	logger     logging.Logger

	appMenu *menu.Menu
	popups  *menu.Registry

	newHost      func(ctx context.Context) Host
	newTray      func(callbacks tray.Callbacks) trayController
	relaunch     func(env ...string) error
	resetTimeout time.Duration

	ctx       context.Context
	host      Host
	lifecycle *Lifecycle
	tray      trayController
	injector  *injection.Injector

	mu         sync.Mutex
	geometry   store.WindowState
	currentURL string
	zoom       float64
	resetAck   chan struct{} // non-nil while a reset waits for the page
}

var _ menu.Actions = (*App)(nil)

// NewApp creates the controller. Nothing touches the window until Startup.
func NewApp(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.HandleValidationError("app.NewApp", "config", "", "configuration is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	osys := opts.OS
	if osys == nil {
		osys = platform.New()
	}
	states := opts.Store
	if states == nil {
		states = store.NewMemoryStore()
	}

	a := &App{
		cfg:        opts.Config,
		os:         osys,
		states:     states,
		dictionary: opts.Dictionary,
		proxy:      opts.Proxy,
		fetcher:    opts.Fetcher,
		userAgent:  opts.UserAgent,
		trayIcon:   opts.TrayIcon,
		closers:    opts.Closers,
		logger:     logger,
		popups:     menu.NewRegistry(),
		newHost:    newWailsHost,
		relaunch:   platform.Relaunch,
		zoom:       1,
		geometry: store.WindowState{
			Width:  opts.Config.DefaultWidth,
			Height: opts.Config.DefaultHeight,
		},
	}
	a.resetTimeout = resetTimeout
	a.newTray = func(callbacks tray.Callbacks) trayController {
		icon := tray.LoadIcon(a.cfg.ResourcePath(a.cfg.TrayIconName), a.trayIcon, a.logger)
		return tray.New(a.cfg.AppName, icon, callbacks, a.logger)
	}
	a.appMenu = menu.BuildApplicationMenu(a)
	return a, nil
}

// ApplicationMenu is the menu bar handed to Wails before the window is shown
func (a *App) ApplicationMenu() *menu.Menu {
	return a.appMenu
}

// RestoreGeometry loads the saved window state, keeping the configured
// size when none is stored. It runs before the window exists so the
// initial size can be passed to Wails.
func (a *App) RestoreGeometry(ctx context.Context) store.WindowState {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	state, found, err := a.states.LoadWindowState(ctx, a.cfg.AppID())
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case err != nil:
		logging.LogError(a.logger, err, "app.RestoreGeometry", map[string]interface{}{"app_id": a.cfg.AppID()})
	case found && state.Valid():
		a.geometry = state
		a.logger.Debug("Window state restored", "width", state.Width, "height", state.Height, "maximised", state.Maximised)
	}
	return a.geometry
}

// Startup is called by Wails once the window exists
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	host := a.newHost(ctx)
	lifecycle := NewLifecycle(host, a.os.KeepsRunningWithoutWindows(), a.logger)
	injector := injection.New(injection.Options{
		InjectCSS: a.cfg.InjectCustomCSS,
		CSSPath:   a.cfg.ResourcePath(config.CustomCSSFile),
		InjectJS:  a.cfg.InjectCustomJS,
		JSPath:    a.cfg.ResourcePath(config.CustomJSFile),
	}, host.ExecJS, a.logger)

	a.mu.Lock()
	a.host = host
	a.lifecycle = lifecycle
	a.injector = injector
	geometry := a.geometry
	a.mu.Unlock()

	if geometry.Valid() && (geometry.X != 0 || geometry.Y != 0) {
		host.SetPosition(geometry.X, geometry.Y)
	}
	if geometry.Maximised {
		host.Maximise()
	}

	host.On(eventNavigated, a.onNavigated)
	host.On(eventCopyText, a.onCopyText)
	host.On(eventStorageCleared, a.onStorageCleared)
	if a.cfg.ShouldShowContextMenu {
		host.On(eventContextMenu, a.onContextMenu)
		host.On(eventContextMenuSelect, a.onContextMenuSelect)
		host.On(eventContextMenuDismiss, func(...interface{}) { a.popups.Dismiss() })
	}

	injector.Start()

	if a.cfg.TrayEnabled() {
		a.tray = a.newTray(tray.Callbacks{
			Toggle: lifecycle.TrayClicked,
			Show:   lifecycle.ShowApp,
			Quit:   lifecycle.Quit,
		})
		a.tray.Start()
	}

	if err := lifecycle.Ready(a.tray != nil); err != nil {
		logging.LogError(a.logger, err, "app.Startup", nil)
		return
	}

	a.logger.Info("Application started",
		"app", a.cfg.AppName,
		"web_path", a.cfg.WebPath,
		"platform", a.os.Name(),
		"tray", a.tray != nil,
		"context_menu", a.cfg.ShouldShowContextMenu)
}

// DomReady is called each time a page in the window finishes loading
func (a *App) DomReady(ctx context.Context) {
	host := a.currentHost()
	if host == nil {
		return
	}

	script, err := bridgeScript(bridgeOptions{ContextMenu: a.cfg.ShouldShowContextMenu, UserAgent: a.userAgent})
	if err != nil {
		logging.LogError(a.logger, err, "app.DomReady", nil)
	} else {
		host.ExecJS(script)
	}

	a.mu.Lock()
	zoom := a.zoom
	injector := a.injector
	a.mu.Unlock()
	if zoom != 1 {
		host.ExecJS(zoomScript(zoom))
	}

	if injector != nil {
		injector.PageLoaded()
	}
}

// BeforeClose is called by Wails on every close request. Returning true keeps the window.
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	lifecycle := a.currentLifecycle()
	if lifecycle == nil {
		return false
	}
	if lifecycle.State() == StateRunning {
		a.saveGeometry(ctx)
	}
	return lifecycle.RequestClose()
}

// Shutdown is called at application termination
func (a *App) Shutdown(ctx context.Context) {
	a.logger.Info("Starting application shutdown sequence")

	if a.tray != nil {
		a.tray.Stop()
	}

	a.mu.Lock()
	injector := a.injector
	a.mu.Unlock()
	if injector != nil {
		done := make(chan struct{})
		go func() {
			injector.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(injectionWaitTime):
			a.logger.Warn("Custom content reads still pending at shutdown")
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logging.LogError(a.logger, err, "app.Shutdown", nil)
		}
	}

	if lifecycle := a.currentLifecycle(); lifecycle != nil {
		lifecycle.Terminate()
	}
	a.logger.Info("Application shutdown completed")
}

// SecondInstance handles a refused launch of another process
func (a *App) SecondInstance(data options.SecondInstanceData) {
	a.logger.Info("Second instance launched", "args", data.Args, "working_directory", data.WorkingDirectory)
	if lifecycle := a.currentLifecycle(); lifecycle != nil {
		lifecycle.SecondInstance()
	}
}

// State returns the lifecycle state, StateUninitialized before Startup
func (a *App) State() State {
	if lifecycle := a.currentLifecycle(); lifecycle != nil {
		return lifecycle.State()
	}
	return StateUninitialized
}

func (a *App) currentHost() Host {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.host
}

func (a *App) currentLifecycle() *Lifecycle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lifecycle
}

func (a *App) saveGeometry(ctx context.Context) {
	host := a.currentHost()
	if host == nil {
		return
	}

	a.mu.Lock()
	state := a.geometry
	a.mu.Unlock()

	if host.IsMaximised() {
		state.Maximised = true
	} else {
		state.X, state.Y = host.Position()
		state.Width, state.Height = host.Size()
		state.Maximised = false
	}
	if !state.Valid() {
		return
	}

	a.mu.Lock()
	a.geometry = state
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := a.states.SaveWindowState(ctx, a.cfg.AppID(), state); err != nil {
		logging.LogError(a.logger, err, "app.saveGeometry", map[string]interface{}{"app_id": a.cfg.AppID()})
	}
}

func (a *App) onNavigated(data ...interface{}) {
	var payload navigatedPayload
	if err := decodePayload(data, &payload); err != nil {
		a.logger.Warn("Malformed navigation event", "error", err.Error())
		return
	}
	a.mu.Lock()
	a.currentURL = payload.URL
	a.mu.Unlock()
}

func (a *App) onCopyText(data ...interface{}) {
	var payload copyTextPayload
	if err := decodePayload(data, &payload); err != nil {
		a.logger.Warn("Malformed copy event", "error", err.Error())
		return
	}
	a.setClipboard(payload.Text)
}

func (a *App) onContextMenu(data ...interface{}) {
	host := a.currentHost()
	if host == nil {
		return
	}

	var payload contextMenuPayload
	if err := decodePayload(data, &payload); err != nil {
		a.logger.Warn("Malformed context menu event", "error", err.Error())
		return
	}
	params := menu.ContextParams{IsEditable: payload.IsEditable, X: payload.X, Y: payload.Y}
	if payload.IsEditable && payload.SelectedWord != "" {
		params.MisspelledWord = payload.SelectedWord
		params.DictionarySuggestions = a.suggestions(payload.SelectedWord)
	}

	m := menu.BuildContextMenu(params, a, a.inDictionary)
	popup := a.popups.Replace(m, params.X, params.Y, a.PerformRole)

	encoded, err := sonic.MarshalString(popup)
	if err != nil {
		logging.LogError(a.logger, err, "app.onContextMenu", nil)
		return
	}
	host.Emit(eventContextMenuShow, encoded)
}

func (a *App) onContextMenuSelect(data ...interface{}) {
	var payload selectPayload
	if err := decodePayload(data, &payload); err != nil {
		a.logger.Warn("Malformed context menu selection", "error", err.Error())
		return
	}
	if !a.popups.Invoke(payload.ID) {
		a.logger.Debug("Ignoring stale context menu selection", "id", payload.ID)
	}
}

func (a *App) onStorageCleared(...interface{}) {
	a.mu.Lock()
	ack := a.resetAck
	a.resetAck = nil
	a.mu.Unlock()
	if ack == nil {
		a.logger.Debug("Ignoring storage cleared event without a pending reset")
		return
	}
	close(ack)
}

func (a *App) inDictionary(word string) bool {
	if a.dictionary == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	ok, err := a.dictionary.HasWord(ctx, word)
	if err != nil {
		logging.LogError(a.logger, err, "app.inDictionary", map[string]interface{}{"word": word})
		return false
	}
	return ok
}

func (a *App) suggestions(word string) []string {
	if a.dictionary == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	words, err := a.dictionary.Words(ctx)
	if err != nil {
		logging.LogError(a.logger, err, "app.suggestions", nil)
		return nil
	}
	return suggestFrom(word, words)
}

// remoteURL is the website address of the page currently shown
func (a *App) remoteURL() string {
	a.mu.Lock()
	current := a.currentURL
	a.mu.Unlock()

	if current == "" {
		return a.cfg.WebPath
	}
	if a.proxy == nil {
		return current
	}
	return a.proxy.UpstreamURL(current)
}

func (a *App) setClipboard(text string) {
	host := a.currentHost()
	if host == nil {
		return
	}
	if err := host.SetClipboard(text); err != nil {
		logging.LogError(a.logger, errors.Wrap("app.setClipboard", err), "app.setClipboard", nil)
	}
}

func aboutMessage(cfg *config.Config, info pageinfo.Info, fetchErr error) string {
	msg := fmt.Sprintf("%s\n%s", cfg.AppName, cfg.WebPath)
	if fetchErr != nil {
		return msg
	}
	if name := info.DisplayName(); name != "" && name != cfg.AppName && name != info.URL {
		msg += "\n\n" + name
	}
	if info.Description != "" {
		msg += "\n" + info.Description
	}
	return msg
}
