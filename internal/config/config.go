package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "ewebapp/internal/infrastructure/errors"
)

// Resource file names looked up under ResourcesDir
const (
	CustomCSSFile = "custom.css"
	CustomJSFile  = "custom.js"
	AdBlockList   = "easylist.txt"
	StateDBFile   = "state.db"
)

const (
	appIDPrefix     = "e-webapp-"
	defaultIssueURL = "https://github.com/AI-ien/nativefier"
	defaultWidth    = 1000
	defaultHeight   = 800
)

// ParseBoolEnv reads an environment variable and parses it as a boolean.
// Returns the parsed value and a boolean indicating if the variable was present.
// Supports true/false, 1/0, yes/no, on/off, t/f, y/n (case-insensitive).
func ParseBoolEnv(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}

	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed, true
	}

	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// Config is the packaged application's settings. It is populated once by Load
// and treated as read-only afterwards.
type Config struct {
	AppName               string `json:"appName" yaml:"appName"`
	WebPath               string `json:"webPath" yaml:"webPath"`
	TrayIconName          string `json:"trayIconName" yaml:"trayIconName"`                   // Optional, relative to ResourcesDir
	EnforceSingleInstance bool   `json:"enforceSingleInstance" yaml:"enforceSingleInstance"` // Forced on when a tray icon is set
	MainMenuHidden        bool   `json:"mainMenuHidden" yaml:"mainMenuHidden"`
	ShouldShowContextMenu bool   `json:"shouldShowContextMenu" yaml:"shouldShowContextMenu"`
	EnableAdBlocker       bool   `json:"enableAdBlocker" yaml:"enableAdBlocker"`
	InjectCustomCSS       bool   `json:"injectCustomCSS" yaml:"injectCustomCSS"`
	InjectCustomJS        bool   `json:"injectCustomJS" yaml:"injectCustomJS"`
	UserAgentString       string `json:"userAgentString" yaml:"userAgentString"` // honest, chrome, edge, firefox, safari

	ResourcesDir  string `json:"resourcesDir" yaml:"resourcesDir"`
	IssueURL      string `json:"issueURL" yaml:"issueURL"`
	DefaultWidth  int    `json:"defaultWidth" yaml:"defaultWidth"`
	DefaultHeight int    `json:"defaultHeight" yaml:"defaultHeight"`
	LogLevel      string `json:"logLevel" yaml:"logLevel"`
	DevTools      bool   `json:"devTools" yaml:"devTools"`
}

// Default returns a configuration with every optional field filled in
func Default() *Config {
	return &Config{
		ShouldShowContextMenu: true,
		UserAgentString:       "honest",
		ResourcesDir:          "resources",
		IssueURL:              defaultIssueURL,
		DefaultWidth:          defaultWidth,
		DefaultHeight:         defaultHeight,
		LogLevel:              "info",
	}
}

// Load reads the YAML file at path, applies EWEBAPP_* overrides and validates the result.
// A relative resourcesDir is resolved against the directory holding the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.HandleResourceError(op, path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.NewWithContext(op, err, apperrors.ErrCodeValidation, map[string]string{"path": path})
	}

	if cfg.ResourcesDir != "" && !filepath.IsAbs(cfg.ResourcesDir) {
		cfg.ResourcesDir = filepath.Join(filepath.Dir(path), cfg.ResourcesDir)
	}

	cfg.LoadFromEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnvironment overrides fields from EWEBAPP_* environment variables
func (c *Config) LoadFromEnvironment() {
	if v := os.Getenv("EWEBAPP_APP_NAME"); v != "" {
		c.AppName = v
	}
	if v := os.Getenv("EWEBAPP_WEB_PATH"); v != "" {
		c.WebPath = v
	}
	if v := os.Getenv("EWEBAPP_TRAY_ICON"); v != "" {
		c.TrayIconName = v
	}
	if v := os.Getenv("EWEBAPP_USER_AGENT"); v != "" {
		c.UserAgentString = v
	}
	if v := os.Getenv("EWEBAPP_RESOURCES_DIR"); v != "" {
		c.ResourcesDir = v
	}
	if v := os.Getenv("EWEBAPP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"EWEBAPP_SINGLE_INSTANCE", &c.EnforceSingleInstance},
		{"EWEBAPP_MENU_HIDDEN", &c.MainMenuHidden},
		{"EWEBAPP_CONTEXT_MENU", &c.ShouldShowContextMenu},
		{"EWEBAPP_AD_BLOCKER", &c.EnableAdBlocker},
		{"EWEBAPP_INJECT_CSS", &c.InjectCustomCSS},
		{"EWEBAPP_INJECT_JS", &c.InjectCustomJS},
		{"EWEBAPP_DEVTOOLS", &c.DevTools},
	}
	for _, b := range bools {
		if v, present := ParseBoolEnv(b.key); present {
			*b.dst = v
		}
	}
}

// Validate checks the required fields. Any failure is a fatal startup error.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if strings.TrimSpace(c.AppName) == "" {
		return apperrors.HandleValidationError(op, "appName", c.AppName, "required")
	}
	if strings.TrimSpace(c.WebPath) == "" {
		return apperrors.HandleValidationError(op, "webPath", c.WebPath, "required")
	}

	u, err := url.Parse(c.WebPath)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.HandleValidationError(op, "webPath", c.WebPath, "must be an absolute http(s) URL")
	}

	if c.DefaultWidth <= 0 || c.DefaultHeight <= 0 {
		return apperrors.HandleValidationError(op, "defaultWidth/defaultHeight",
			fmt.Sprintf("%dx%d", c.DefaultWidth, c.DefaultHeight), "must be positive")
	}

	return nil
}

// AppID identifies the application to the OS: lock name, data directory and taskbar identity
func (c *Config) AppID() string {
	return appIDPrefix + strings.ToLower(c.AppName)
}

// TrayEnabled reports whether a tray icon is configured
func (c *Config) TrayEnabled() bool {
	return c.TrayIconName != ""
}

// SingleInstanceEnforced is true when configured, and always when a tray icon is set
func (c *Config) SingleInstanceEnforced() bool {
	return c.EnforceSingleInstance || c.TrayEnabled()
}

// ResourcePath resolves a resource file name against ResourcesDir
func (c *Config) ResourcePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ResourcesDir, name)
}

// Origin returns scheme://host of WebPath
func (c *Config) Origin() *url.URL {
	u, err := url.Parse(c.WebPath)
	if err != nil {
		return &url.URL{}
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}
}

// StartPath returns the path, query and fragment of WebPath, relative to its origin
func (c *Config) StartPath() string {
	u, err := url.Parse(c.WebPath)
	if err != nil {
		return "/"
	}
	start := u.EscapedPath()
	if start == "" {
		start = "/"
	}
	if u.RawQuery != "" {
		start += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		start += "#" + u.EscapedFragment()
	}
	return start
}
