package app

import (
	"fmt"
	"sync"

	"ewebapp/internal/infrastructure/logging"
)

// State is the lifecycle state of the main window
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateHidden
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateHidden:
		return "hidden"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Window is what the lifecycle needs to move the main window between states
type Window interface {
	Show()
	Hide()
	Focus()
	IsMinimised() bool
	Unminimise()
	Quit()
}

// Lifecycle owns the window state, the tray flag and the quit flag.
// Every transition runs under one mutex, so signals arriving from Wails,
// the tray and page events are applied one at a time.
type Lifecycle struct {
	mu         sync.Mutex
	state      State
	window     Window
	trayActive bool
	quitting   bool
	hostHides  bool
	logger     logging.Logger
}

// NewLifecycle creates a controller in StateUninitialized. hostHides is
// true when the host already hides the window on its close button (macOS),
// so every close request that still arrives is a quit from the system.
func NewLifecycle(window Window, hostHides bool, logger logging.Logger) *Lifecycle {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Lifecycle{window: window, hostHides: hostHides, logger: logger}
}

// State returns the current state
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Quitting reports whether an explicit quit is in progress
func (l *Lifecycle) Quitting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quitting
}

// Ready moves an uninitialized window to StateRunning
func (l *Lifecycle) Ready(trayActive bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateUninitialized {
		return fmt.Errorf("lifecycle: ready received in state %s", l.state)
	}
	l.trayActive = trayActive
	l.transition(StateRunning, "ready")
	return nil
}

// RequestClose decides what a close request does. It returns true when the
// close must be prevented because the window was hidden instead.
func (l *Lifecycle) RequestClose() (prevent bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateTerminated:
		return false
	case StateUninitialized:
		l.transition(StateTerminated, "close")
		return false
	}

	if !l.quitting && l.trayActive && !l.hostHides {
		l.window.Hide()
		l.transition(StateHidden, "close")
		return true
	}

	l.transition(StateTerminated, "close")
	return false
}

// TrayClicked toggles the window between shown and hidden
func (l *Lifecycle) TrayClicked() {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateRunning:
		l.window.Hide()
		l.transition(StateHidden, "tray click")
	case StateHidden:
		l.window.Show()
		l.window.Focus()
		l.transition(StateRunning, "tray click")
	}
}

// ShowApp shows and focuses the window without reloading it
func (l *Lifecycle) ShowApp() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bringToFront("show app")
}

// SecondInstance brings the existing window to front when another launch was refused
func (l *Lifecycle) SecondInstance() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bringToFront("second instance")
}

func (l *Lifecycle) bringToFront(reason string) {
	switch l.state {
	case StateHidden:
		l.window.Show()
		l.transition(StateRunning, reason)
	case StateRunning:
	default:
		return
	}
	if l.window.IsMinimised() {
		l.window.Unminimise()
	}
	l.window.Focus()
}

// Quit sets the quit flag and closes the window for good.
// The window's Quit is called without the lock held because it re-enters
// RequestClose.
func (l *Lifecycle) Quit() {
	l.mu.Lock()
	if l.state == StateTerminated {
		l.mu.Unlock()
		return
	}
	l.quitting = true
	l.logger.Info("Quit requested", "state", l.state.String())
	l.mu.Unlock()

	l.window.Quit()
}

// Terminate records that the window is gone
func (l *Lifecycle) Terminate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateTerminated {
		l.transition(StateTerminated, "shutdown")
	}
}

func (l *Lifecycle) transition(to State, reason string) {
	l.logger.Debug("Window state changed", "from", l.state.String(), "to", to.String(), "reason", reason)
	l.state = to
}
