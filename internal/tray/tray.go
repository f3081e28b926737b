// Package tray owns the optional system tray icon.
package tray

import (
	"os"
	"sync"

	"github.com/energye/systray"

	"ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/infrastructure/logging"
)

// Callbacks are invoked from the tray's own goroutine
type Callbacks struct {
	Toggle func() // left click
	Show   func() // double click and "Show App"
	Quit   func() // "Quit"
}

// backend is the subset of systray the Tray drives
type backend interface {
	runWithExternalLoop(onReady, onExit func()) (start, end func())
	setIcon(icon []byte)
	setTooltip(tooltip string)
	setOnClick(fn func())
	setOnDClick(fn func())
	setOnRClick()
	addMenuItem(title, tooltip string, click func())
}

type systrayBackend struct{}

func (systrayBackend) runWithExternalLoop(onReady, onExit func()) (func(), func()) {
	return systray.RunWithExternalLoop(onReady, onExit)
}
func (systrayBackend) setIcon(icon []byte)       { systray.SetIcon(icon) }
func (systrayBackend) setTooltip(tooltip string) { systray.SetTooltip(tooltip) }
func (systrayBackend) setOnClick(fn func()) {
	systray.SetOnClick(func(systray.IMenu) { fn() })
}
func (systrayBackend) setOnDClick(fn func()) {
	systray.SetOnDClick(func(systray.IMenu) { fn() })
}
func (systrayBackend) setOnRClick() {
	systray.SetOnRClick(func(menu systray.IMenu) { menu.ShowMenu() })
}
func (systrayBackend) addMenuItem(title, tooltip string, click func()) {
	systray.AddMenuItem(title, tooltip).Click(click)
}

// Tray is the tray icon with its "Show App" and "Quit" menu
type Tray struct {
	name      string
	icon      []byte
	callbacks Callbacks
	logger    logging.Logger
	b         backend

	mu      sync.Mutex
	end     func()
	running bool
}

// New creates a Tray tooltipped with appName
func New(appName string, icon []byte, callbacks Callbacks, logger logging.Logger) *Tray {
	return &Tray{
		name:      appName,
		icon:      icon,
		callbacks: callbacks,
		logger:    logger,
		b:         systrayBackend{},
	}
}

// LoadIcon reads the tray icon at path, falling back to fallback
func LoadIcon(path string, fallback []byte, logger logging.Logger) []byte {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.LogError(logger, errors.HandleResourceError("tray.LoadIcon", path, err), "tray.LoadIcon", map[string]interface{}{
			"path": path,
		})
		return fallback
	}
	return data
}

// Start shows the icon. Calling Start on a running tray does nothing.
func (t *Tray) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}

	start, end := t.b.runWithExternalLoop(t.onReady, t.onExit)
	start()
	t.end = end
	t.running = true
	t.logger.Info("Tray started", "app", t.name)
}

// Stop removes the icon
func (t *Tray) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.end()
	t.running = false
}

// Running reports whether the icon is shown
func (t *Tray) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tray) onReady() {
	if len(t.icon) > 0 {
		t.b.setIcon(t.icon)
	}
	t.b.setTooltip(t.name)

	t.b.setOnClick(call(t.callbacks.Toggle))
	t.b.setOnDClick(call(t.callbacks.Show))
	t.b.setOnRClick()

	t.b.addMenuItem("Show App", "Show "+t.name, call(t.callbacks.Show))
	t.b.addMenuItem("Quit", "Quit "+t.name, call(t.callbacks.Quit))
}

func (t *Tray) onExit() {
	t.logger.Debug("Tray exited")
}

func call(fn func()) func() {
	return func() {
		if fn != nil {
			fn()
		}
	}
}
