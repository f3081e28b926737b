package main

import (
	"context"
	_ "embed"
	"flag"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2"
	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"
	wailsmenu "github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"ewebapp/internal/app"
	"ewebapp/internal/config"
	"ewebapp/internal/database"
	"ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/infrastructure/logging"
	"ewebapp/internal/menu"
	"ewebapp/internal/pageinfo"
	"ewebapp/internal/platform"
	"ewebapp/internal/session"
	"ewebapp/internal/store"
	"ewebapp/internal/useragent"
)

//go:embed build/appicon.png
var icon []byte

const (
	// relaunchDelay lets the process that asked for a reset release the
	// single-instance lock and the webview profile first
	relaunchDelay  = 1500 * time.Millisecond
	startupTimeout = 10 * time.Second
	aboutTimeout   = 10 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the application configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.LogError(logging.NewDefaultLogger(), err, "config.Load", map[string]interface{}{"path": *configPath})
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stderr, cfg.LogLevel)
	errors.SetDefaultRetryLogger(logger)

	if err := run(cfg, logger); err != nil {
		logging.LogError(logger, err, "main.run", nil)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	osys := platform.New()
	if err := osys.PrepareProcess(cfg.AppID()); err != nil {
		logging.LogError(logger, err, "platform.PrepareProcess", nil)
	}

	dataDir, err := platform.DataDir(cfg.AppID())
	if err != nil {
		return err
	}
	reset := platform.IsRelaunch()
	if reset {
		resetProfile(dataDir, logger)
	}

	states, dictionary, closers := openStore(ctx, cfg, dataDir, logger)

	ua, override := useragent.Resolve(cfg.UserAgentString)
	if override {
		logger.Info("User agent override active", "user_agent", cfg.UserAgentString)
	}

	proxy := session.New(session.Options{
		Target:        cfg.Origin(),
		StartPath:     cfg.StartPath(),
		UserAgent:     ua,
		OverrideUA:    override,
		Blocker:       loadBlocker(cfg, logger),
		ClearSiteData: reset,
		Logger:        logger,
	})

	var overrideUA string
	if override {
		overrideUA = ua
	}

	application, err := app.NewApp(app.Options{
		Config:     cfg,
		OS:         osys,
		Store:      states,
		Dictionary: dictionary,
		Proxy:      proxy,
		Fetcher:    pageinfo.NewFetcher(overrideUA, aboutTimeout),
		UserAgent:  overrideUA,
		TrayIcon:   icon,
		Closers:    closers,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	geometry := application.RestoreGeometry(ctx)

	var appMenu *wailsmenu.Menu
	if goruntime.GOOS == "darwin" || !cfg.MainMenuHidden {
		appMenu = menu.ToWails(application.ApplicationMenu(), application.PerformRole, menu.WailsOptions{
			PrependAppMenu: goruntime.GOOS == "darwin",
		})
	}

	var lock *options.SingleInstanceLock
	if cfg.SingleInstanceEnforced() {
		lock = &options.SingleInstanceLock{
			UniqueId:               cfg.AppID(),
			OnSecondInstanceLaunch: application.SecondInstance,
		}
	}

	return wails.Run(&options.App{
		Title:     cfg.AppName,
		Width:     geometry.Width,
		Height:    geometry.Height,
		MinWidth:  320,
		MinHeight: 240,
		AssetServer: &assetserver.Options{
			Handler: proxy,
		},
		Menu:                     appMenu,
		HideWindowOnClose:        osys.KeepsRunningWithoutWindows(),
		Logger:                   logging.NewWailsLoggerAdapter(logger),
		LogLevel:                 wailsLogLevel(cfg.LogLevel),
		LogLevelProduction:       wailsLogLevel(cfg.LogLevel),
		OnStartup:                application.Startup,
		OnDomReady:               application.DomReady,
		OnBeforeClose:            application.BeforeClose,
		OnShutdown:               application.Shutdown,
		SingleInstanceLock:       lock,
		EnableDefaultContextMenu: cfg.DevTools && !cfg.ShouldShowContextMenu,
		Debug: options.Debug{
			OpenInspectorOnStartup: cfg.DevTools,
		},
		Windows: &windows.Options{
			WebviewUserDataPath: platform.WebviewDir(dataDir),
			ZoomFactor:          1.0,
		},
		Linux: &linux.Options{
			Icon:        icon,
			ProgramName: cfg.AppID(),
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   cfg.AppName,
				Message: cfg.WebPath,
				Icon:    icon,
			},
		},
	})
}

// defaultConfigPath prefers a config.yaml next to the executable
func defaultConfigPath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "config.yaml"
}

// resetProfile finishes a Reset Application started by the previous process
func resetProfile(dataDir string, logger logging.Logger) {
	time.Sleep(relaunchDelay)
	if err := platform.ResetProfile(dataDir); err != nil {
		logging.LogError(logger, err, "platform.ResetProfile", nil)
	} else {
		logger.Info("Webview profile cleared after reset", "data_dir", dataDir)
	}
	os.Unsetenv(platform.RelaunchEnv)
}

// openStore opens the state database, falling back to memory when it cannot be used
func openStore(ctx context.Context, cfg *config.Config, dataDir string, logger logging.Logger) (store.StateStore, store.Dictionary, []io.Closer) {
	dbConfig := database.DefaultConfig(filepath.Join(dataDir, config.StateDBFile))
	dbConfig.LoadFromEnvironment()

	dbService, err := database.Open(ctx, dbConfig, logger)
	if err != nil {
		logging.LogError(logger, err, "database.Open", map[string]interface{}{"db_path": dbConfig.Path})
		logger.Warn("Continuing without persistence - window state will not be saved")
		mem := store.NewMemoryStore()
		return mem, mem, nil
	}

	s := store.NewSQLiteStore(dbService, cfg.AppID(), logger)
	return s, s, []io.Closer{dbService}
}

func loadBlocker(cfg *config.Config, logger logging.Logger) *session.Blocker {
	if !cfg.EnableAdBlocker {
		return nil
	}
	path := cfg.ResourcePath(config.AdBlockList)
	blocker, err := session.LoadBlocker(path)
	if err != nil {
		logging.LogError(logger, err, "session.LoadBlocker", map[string]interface{}{"path": path})
		return nil
	}
	logger.Info("Ad blocker enabled", "rules", blocker.Len(), "skipped", blocker.Skipped())
	return blocker
}

func wailsLogLevel(level string) wailslogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return wailslogger.DEBUG
	case "warn", "warning":
		return wailslogger.WARNING
	case "error":
		return wailslogger.ERROR
	default:
		return wailslogger.INFO
	}
}
