package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/wailsapp/wails/v2/pkg/options"

	"ewebapp/internal/config"
	apperrors "ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/menu"
	"ewebapp/internal/session"
	"ewebapp/internal/store"
	"ewebapp/internal/testutils"
	"ewebapp/internal/tray"
)

type emitted struct {
	event string
	data  []interface{}
}

type fakeHost struct {
	fakeWindow

	hmu        sync.Mutex
	handlers   map[string]func(data ...interface{})
	emitted    []emitted
	scripts    []string
	opened     []string
	clipboard  string
	fullscreen bool
	maximised  bool
	x, y       int
	w, h       int
	reloads    int
	messages   chan string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		handlers: make(map[string]func(data ...interface{})),
		messages: make(chan string, 4),
		x:        40,
		y:        50,
		w:        1200,
		h:        900,
	}
}

func (f *fakeHost) Reload() {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.reloads++
}

func (f *fakeHost) IsFullscreen() bool {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	return f.fullscreen
}

func (f *fakeHost) Fullscreen() {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.fullscreen = true
}

func (f *fakeHost) Unfullscreen() {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.fullscreen = false
}

func (f *fakeHost) IsMaximised() bool    { return f.maximised }
func (f *fakeHost) Maximise()            { f.record("maximise") }
func (f *fakeHost) Position() (int, int) { return f.x, f.y }
func (f *fakeHost) SetPosition(x, y int) { f.record("position") }
func (f *fakeHost) Size() (int, int)     { return f.w, f.h }

func (f *fakeHost) ExecJS(js string) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.scripts = append(f.scripts, js)
}

func (f *fakeHost) On(event string, fn func(data ...interface{})) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.handlers[event] = fn
}

func (f *fakeHost) Emit(event string, data ...interface{}) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.emitted = append(f.emitted, emitted{event, data})
}

func (f *fakeHost) SetClipboard(text string) error {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.clipboard = text
	return nil
}

func (f *fakeHost) Clipboard() (string, error) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	return f.clipboard, nil
}

func (f *fakeHost) OpenURL(url string) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.opened = append(f.opened, url)
}

func (f *fakeHost) Message(title, message string) {
	f.messages <- title + "\n" + message
}

// send delivers a page event the way bridge.js does
func (f *fakeHost) send(t *testing.T, event string, payload interface{}) {
	t.Helper()
	raw, err := sonic.MarshalString(payload)
	if err != nil {
		t.Fatal(err)
	}
	f.hmu.Lock()
	fn, ok := f.handlers[event]
	f.hmu.Unlock()
	if !ok {
		t.Fatalf("No handler for %s", event)
	}
	fn(raw)
}

func (f *fakeHost) Scripts() []string {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	return append([]string(nil), f.scripts...)
}

func (f *fakeHost) lastScript() string {
	s := f.Scripts()
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func (f *fakeHost) waitForScript(t *testing.T, substr string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, s := range f.Scripts() {
			if strings.Contains(s, substr) {
				return s
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("No script containing %q was executed", substr)
	return ""
}

func (f *fakeHost) lastPopup(t *testing.T) menu.Popup {
	t.Helper()
	f.hmu.Lock()
	defer f.hmu.Unlock()
	for i := len(f.emitted) - 1; i >= 0; i-- {
		if f.emitted[i].event == eventContextMenuShow {
			var popup menu.Popup
			if err := sonic.UnmarshalString(f.emitted[i].data[0].(string), &popup); err != nil {
				t.Fatal(err)
			}
			return popup
		}
	}
	t.Fatal("No popup was shown")
	return menu.Popup{}
}

type fakeOS struct {
	keepsRunning bool
}

func (o fakeOS) KeepsRunningWithoutWindows() bool { return o.keepsRunning }
func (o fakeOS) PrepareProcess(string) error      { return nil }
func (o fakeOS) Name() string                     { return "test" }

type fakeTray struct {
	callbacks tray.Callbacks
	started   int
	stopped   int
}

func (f *fakeTray) Start()        { f.started++ }
func (f *fakeTray) Stop()         { f.stopped++ }
func (f *fakeTray) Running() bool { return f.started > f.stopped }

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

type harness struct {
	app      *App
	host     *fakeHost
	tray     *fakeTray
	store    *store.MemoryStore
	logger   *testutils.RecordingLogger
	relaunch chan []string
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.AppName = "Example"
	cfg.WebPath = "https://example.com/app"
	cfg.ResourcesDir = t.TempDir()
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config, keepsRunning bool) *harness {
	t.Helper()
	h := &harness{
		host:     newFakeHost(),
		store:    store.NewMemoryStore(),
		logger:   testutils.NewRecordingLogger(),
		relaunch: make(chan []string, 2),
	}
	proxy := session.New(session.Options{Target: cfg.Origin(), StartPath: cfg.StartPath(), Logger: h.logger})

	a, err := NewApp(Options{
		Config:     cfg,
		OS:         fakeOS{keepsRunning: keepsRunning},
		Store:      h.store,
		Dictionary: h.store,
		Proxy:      proxy,
		Logger:     h.logger,
	})
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	a.newHost = func(context.Context) Host { return h.host }
	a.newTray = func(callbacks tray.Callbacks) trayController {
		h.tray = &fakeTray{callbacks: callbacks}
		return h.tray
	}
	a.relaunch = func(env ...string) error {
		h.relaunch <- env
		return nil
	}
	h.host.onQuit = func() { a.BeforeClose(context.Background()) }
	h.app = a
	return h
}

func (h *harness) start() *harness {
	h.app.RestoreGeometry(context.Background())
	h.app.Startup(context.Background())
	return h
}

func TestNewApp_RequiresConfig(t *testing.T) {
	_, err := NewApp(Options{})
	if !apperrors.IsValidation(err) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestApp_ApplicationMenuBuiltBeforeStartup(t *testing.T) {
	h := newHarness(t, testConfig(t), false)
	if got := h.app.ApplicationMenu().Labels(); len(got) != 5 {
		t.Errorf("Expected 5 menu groups, got %v", got)
	}
	if h.app.State() != StateUninitialized {
		t.Errorf("Expected uninitialized, got %s", h.app.State())
	}

	h.app.PerformRole(menu.RoleReload)
	if _, ok := h.logger.Find("Menu role ignored before startup"); !ok {
		t.Error("Expected roles before startup to be ignored")
	}
}

func TestApp_RestoreGeometry(t *testing.T) {
	cfg := testConfig(t)

	h := newHarness(t, cfg, false)
	if got := h.app.RestoreGeometry(context.Background()); got.Width != 1000 || got.Height != 800 {
		t.Errorf("Expected configured defaults, got %+v", got)
	}

	saved := store.WindowState{X: 10, Y: 20, Width: 640, Height: 480, Maximised: true}
	if err := h.store.SaveWindowState(context.Background(), cfg.AppID(), saved); err != nil {
		t.Fatal(err)
	}
	if got := h.app.RestoreGeometry(context.Background()); got != saved {
		t.Errorf("Expected %+v, got %+v", saved, got)
	}

	h.app.Startup(context.Background())
	calls := h.host.Calls()
	if len(calls) != 2 || calls[0] != "position" || calls[1] != "maximise" {
		t.Errorf("Expected position then maximise, got %v", calls)
	}
}

func TestApp_StartupWithoutTray(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()

	if h.app.State() != StateRunning {
		t.Fatalf("Expected running, got %s", h.app.State())
	}
	if h.tray != nil {
		t.Error("Expected no tray without an icon")
	}
	for _, event := range []string{eventNavigated, eventCopyText, eventContextMenu, eventContextMenuSelect, eventContextMenuDismiss} {
		if _, ok := h.host.handlers[event]; !ok {
			t.Errorf("Expected a handler for %s", event)
		}
	}

	if prevent := h.app.BeforeClose(context.Background()); prevent {
		t.Error("Closing without a tray must not be prevented")
	}
	if h.app.State() != StateTerminated {
		t.Errorf("Expected terminated, got %s", h.app.State())
	}
}

func TestApp_ContextMenuDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.ShouldShowContextMenu = false
	h := newHarness(t, cfg, false).start()

	if _, ok := h.host.handlers[eventContextMenu]; ok {
		t.Error("Expected no context menu handler")
	}

	h.app.DomReady(context.Background())
	if script := h.host.waitForScript(t, "__ewebappBridge"); !strings.HasSuffix(script, `({"contextMenu":false});`) {
		t.Errorf("Expected the bridge with the context menu off, got suffix %q", script[len(script)-30:])
	}
}

func TestApp_TrayHidesAndRestores(t *testing.T) {
	cfg := testConfig(t)
	cfg.TrayIconName = "tray.png"
	h := newHarness(t, cfg, false).start()

	if h.tray == nil || h.tray.started != 1 {
		t.Fatal("Expected the tray to start")
	}

	if prevent := h.app.BeforeClose(context.Background()); !prevent {
		t.Fatal("Expected the close to be prevented")
	}
	if h.app.State() != StateHidden {
		t.Fatalf("Expected hidden, got %s", h.app.State())
	}

	saved, found, _ := h.store.LoadWindowState(context.Background(), cfg.AppID())
	if !found || saved != (store.WindowState{X: 40, Y: 50, Width: 1200, Height: 900}) {
		t.Errorf("Expected geometry to be saved on close, got %+v", saved)
	}

	h.tray.callbacks.Toggle()
	if h.app.State() != StateRunning {
		t.Errorf("Expected running after tray click, got %s", h.app.State())
	}
	if h.host.reloads != 0 {
		t.Error("Restoring from the tray must not reload")
	}

	h.tray.callbacks.Quit()
	if h.app.State() != StateTerminated {
		t.Errorf("Expected terminated after quit, got %s", h.app.State())
	}

	h.app.Shutdown(context.Background())
	if h.tray.stopped != 1 {
		t.Error("Expected the tray to stop at shutdown")
	}
}

func TestApp_SecondInstanceShowsHiddenWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.TrayIconName = "tray.png"
	h := newHarness(t, cfg, false).start()

	h.app.BeforeClose(context.Background())
	h.app.SecondInstance(options.SecondInstanceData{Args: []string{"--x"}})

	if h.app.State() != StateRunning {
		t.Errorf("Expected running, got %s", h.app.State())
	}
}

func TestApp_PageContextMenu(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()

	h.host.send(t, eventContextMenu, contextMenuPayload{X: 5, Y: 6})
	popup := h.host.lastPopup(t)

	if popup.X != 5 || popup.Y != 6 || len(popup.Entries) != 8 {
		t.Fatalf("Unexpected popup %+v", popup)
	}
	if popup.Entries[2].Label != "Reload" {
		t.Fatalf("Expected Reload third, got %q", popup.Entries[2].Label)
	}

	h.host.send(t, eventContextMenuSelect, selectPayload{ID: popup.Entries[2].ID})
	if h.host.reloads != 1 {
		t.Errorf("Expected one reload, got %d", h.host.reloads)
	}

	h.host.send(t, eventContextMenuSelect, selectPayload{ID: popup.Entries[2].ID})
	if h.host.reloads != 1 {
		t.Error("A stale selection must not run again")
	}
}

func TestApp_EditableContextMenuSpelling(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()
	ctx := context.Background()
	if err := h.store.AddWord(ctx, "hello"); err != nil {
		t.Fatal(err)
	}

	h.host.send(t, eventContextMenu, contextMenuPayload{IsEditable: true, SelectedWord: "helo"})
	popup := h.host.lastPopup(t)

	if popup.Entries[0].Label != "hello" || popup.Entries[1].Label != "Add to Dictionary" || !popup.Entries[2].Separator {
		t.Fatalf("Unexpected spelling entries %+v", popup.Entries[:3])
	}

	h.host.send(t, eventContextMenuSelect, selectPayload{ID: popup.Entries[0].ID})
	if got := h.host.lastScript(); !strings.Contains(got, `insertText', false, "hello"`) {
		t.Errorf("Expected the suggestion to be inserted, got %q", got)
	}

	h.host.send(t, eventContextMenu, contextMenuPayload{IsEditable: true, SelectedWord: "helo"})
	popup = h.host.lastPopup(t)
	h.host.send(t, eventContextMenuSelect, selectPayload{ID: popup.Entries[1].ID})

	if ok, _ := h.store.HasWord(ctx, "helo"); !ok {
		t.Fatal("Expected the word to be added to the dictionary")
	}

	h.host.send(t, eventContextMenu, contextMenuPayload{IsEditable: true, SelectedWord: "helo"})
	if popup = h.host.lastPopup(t); popup.Entries[0].Label != "Undo" {
		t.Errorf("Known words must not offer spelling entries, got %q", popup.Entries[0].Label)
	}
}

func TestApp_MalformedEventsAreLogged(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()

	h.host.handlers[eventContextMenu](42)
	h.host.handlers[eventNavigated]()

	if len(h.logger.ByLevel("warn")) != 2 {
		t.Errorf("Expected two warnings, got %+v", h.logger.ByLevel("warn"))
	}
}

func TestApp_CurrentURLActions(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()

	h.app.CopyCurrentURL()
	if h.host.clipboard != "https://example.com/app" {
		t.Errorf("Expected webPath before any navigation, got %q", h.host.clipboard)
	}

	h.host.send(t, eventNavigated, navigatedPayload{URL: "wails://wails/docs/page?q=1#top"})
	h.app.CopyCurrentURL()
	if want := "https://example.com/docs/page?q=1#top"; h.host.clipboard != want {
		t.Errorf("Expected %q, got %q", want, h.host.clipboard)
	}

	h.app.OpenCurrentInBrowser()
	h.app.ReportIssue()
	want := []string{"https://example.com/docs/page?q=1#top", "https://github.com/AI-ien/nativefier"}
	if len(h.host.opened) != 2 || h.host.opened[0] != want[0] || h.host.opened[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, h.host.opened)
	}

	h.host.send(t, eventCopyText, copyTextPayload{Text: "plain"})
	if h.host.clipboard != "plain" {
		t.Errorf("Expected the page selection on the clipboard, got %q", h.host.clipboard)
	}
}

func TestApp_PerformRole(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()

	tests := []struct {
		role menu.Role
		want string
	}{
		{menu.RoleUndo, `document.execCommand("undo");`},
		{menu.RoleSelectAll, `document.execCommand("selectAll");`},
		{menu.RoleZoomIn, `document.documentElement.style.zoom = "1.10";`},
		{menu.RoleZoomIn, `document.documentElement.style.zoom = "1.20";`},
		{menu.RoleZoomOut, `document.documentElement.style.zoom = "1.10";`},
		{menu.RoleResetZoom, `document.documentElement.style.zoom = "1.00";`},
	}
	for _, tt := range tests {
		h.app.PerformRole(tt.role)
		if got := h.host.lastScript(); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.role, tt.want, got)
		}
	}

	h.host.clipboard = `say "hi"`
	h.app.PerformRole(menu.RolePaste)
	if got := h.host.lastScript(); got != `document.execCommand('insertText', false, "say \"hi\"");` {
		t.Errorf("Unexpected paste script %q", got)
	}

	h.app.PerformRole(menu.RoleToggleFullscreen)
	if !h.host.IsFullscreen() {
		t.Error("Expected fullscreen")
	}
	h.app.PerformRole(menu.RoleToggleFullscreen)
	if h.host.IsFullscreen() {
		t.Error("Expected fullscreen off")
	}

	h.app.PerformRole(menu.RoleQuit)
	if h.app.State() != StateTerminated {
		t.Errorf("Expected quit to terminate, got %s", h.app.State())
	}
}

func TestApp_ZoomClamped(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()
	for i := 0; i < 20; i++ {
		h.app.PerformRole(menu.RoleZoomOut)
	}
	if got := h.host.lastScript(); got != `document.documentElement.style.zoom = "0.30";` {
		t.Errorf("Expected the minimum zoom, got %q", got)
	}

	h.app.DomReady(context.Background())
	h.host.waitForScript(t, `zoom = "0.30"`)
}

func TestApp_ResetApplication(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()
	h.app.resetTimeout = time.Minute

	h.app.ResetApplication()

	if !strings.Contains(strings.Join(h.host.Scripts(), "\n"), "__ewebappClearStorage") {
		t.Error("Expected the page to be asked to clear its storage")
	}
	select {
	case env := <-h.relaunch:
		t.Fatalf("Relaunched before the page confirmed: %v", env)
	case <-time.After(50 * time.Millisecond):
	}
	if h.app.State() != StateRunning {
		t.Fatalf("Expected running while waiting, got %s", h.app.State())
	}

	h.host.send(t, eventStorageCleared, struct{}{})

	select {
	case env := <-h.relaunch:
		if len(env) != 1 || env[0] != "EWEBAPP_RELAUNCH=1" {
			t.Errorf("Expected a relaunch with the reset marker, got %v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a relaunch after the page confirmed")
	}
	if _, ok := h.logger.WaitFor("Relaunching after reset", 2*time.Second); !ok {
		t.Fatal("Expected the relaunch to be logged")
	}
	waitForState(t, h.app, StateTerminated)
}

func TestApp_ResetApplicationWithoutConfirmation(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()
	h.app.resetTimeout = 20 * time.Millisecond

	h.app.ResetApplication()

	select {
	case <-h.relaunch:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a relaunch after the timeout")
	}
	if _, ok := h.logger.Find("Page did not confirm storage clearing, relaunching anyway"); !ok {
		t.Error("Expected the missing confirmation to be logged")
	}
	waitForState(t, h.app, StateTerminated)

	// a late confirmation is ignored
	h.host.send(t, eventStorageCleared, struct{}{})
}

func TestApp_ResetApplicationRelaunchFails(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()
	h.app.resetTimeout = time.Minute
	h.app.relaunch = func(...string) error { return errors.New("exec failed") }

	h.app.ResetApplication()
	h.app.ResetApplication()
	if _, ok := h.logger.Find("Reset already in progress"); !ok {
		t.Error("Expected a second reset to be refused while waiting")
	}
	h.host.send(t, eventStorageCleared, struct{}{})

	if _, ok := h.logger.WaitFor("Unexpected error: exec failed", 2*time.Second); !ok {
		t.Fatal("Expected the failure to be logged")
	}
	if h.app.State() != StateRunning {
		t.Errorf("Expected the app to keep running, got %s", h.app.State())
	}
}

func waitForState(t *testing.T, a *App, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %s, got %s", want, a.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApp_ShowAbout(t *testing.T) {
	h := newHarness(t, testConfig(t), false).start()

	h.app.ShowAbout()

	select {
	case msg := <-h.host.messages:
		if !strings.HasPrefix(msg, "About Example\nExample\nhttps://example.com/app") {
			t.Errorf("Unexpected about message %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the about panel")
	}
}

func TestApp_DomReadyInjectsCustomContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.InjectCustomCSS = true
	cfg.InjectCustomJS = true
	if err := os.WriteFile(filepath.Join(cfg.ResourcesDir, config.CustomCSSFile), []byte("body{color:red}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.ResourcesDir, config.CustomJSFile), []byte("throw new Error('boom')"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, cfg, false).start()
	h.host.waitForScript(t, "throw new Error('boom')")

	h.app.DomReady(context.Background())
	h.host.waitForScript(t, "__ewebappBridge")
	h.host.waitForScript(t, "body{color:red}")
}

func TestApp_DomReadyPassesUserAgentOverride(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"override", "Mozilla/5.0 Test", `"userAgent":"Mozilla/5.0 Test"`},
		{"honest", "", `({"contextMenu":true});`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig(t), false)
			h.app.userAgent = tt.ua
			h.start()

			h.app.DomReady(context.Background())
			script := h.host.waitForScript(t, "__ewebappBridge")
			if !strings.Contains(script, tt.want) {
				t.Errorf("Expected %s in the bridge options", tt.want)
			}
		})
	}
}

func TestApp_ShutdownClosesResources(t *testing.T) {
	h := newHarness(t, testConfig(t), false)
	closed := 0
	h.app.closers = []io.Closer{
		closerFunc(func() error { closed++; return nil }),
		closerFunc(func() error { closed++; return errors.New("close failed") }),
	}
	h.start()

	h.app.Shutdown(context.Background())

	if closed != 2 {
		t.Errorf("Expected both closers to run, got %d", closed)
	}
	if h.app.State() != StateTerminated {
		t.Errorf("Expected terminated, got %s", h.app.State())
	}
	if _, ok := h.logger.Find("Unexpected error: close failed"); !ok {
		t.Error("Expected the close failure to be logged")
	}
}

func TestApp_MacOSSystemQuitTerminates(t *testing.T) {
	tests := []struct {
		name string
		tray bool
	}{
		{"without tray", false},
		{"with tray", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.tray {
				cfg.TrayIconName = "tray.png"
			}
			h := newHarness(t, cfg, true).start()

			// Cmd+Q, Dock Quit and logout reach BeforeClose without Lifecycle.Quit
			if h.app.BeforeClose(context.Background()) {
				t.Error("Expected a system quit to be allowed")
			}
			if h.app.State() != StateTerminated {
				t.Errorf("Expected terminated, got %s", h.app.State())
			}
			if got := h.host.Calls(); len(got) != 0 {
				t.Errorf("Expected no window calls, got %v", got)
			}
		})
	}
}
