package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ewebapp/internal/config"
)

// Config holds the state database options
type Config struct {
	Path            string        `json:"path" yaml:"path"`                       // Database file path
	MaxConnections  int           `json:"maxConnections" yaml:"maxConnections"`   // Maximum number of open connections
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`       // Maximum number of idle connections
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"` // Maximum connection lifetime
	AutoMigrate     bool          `json:"autoMigrate" yaml:"autoMigrate"`         // Run embedded migrations on Open

	JournalMode     string `json:"journalMode" yaml:"journalMode"`         // SQLite journal mode (WAL, DELETE, etc.)
	SynchronousMode string `json:"synchronousMode" yaml:"synchronousMode"` // SQLite synchronous mode (FULL, NORMAL, OFF)
	BusyTimeout     int    `json:"busyTimeout" yaml:"busyTimeout"`         // SQLite busy timeout in milliseconds
	ForeignKeys     bool   `json:"foreignKeys" yaml:"foreignKeys"`
}

// DefaultConfig returns a configuration for a state database at path
func DefaultConfig(path string) *Config {
	return &Config{
		Path:            path,
		MaxConnections:  4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		BusyTimeout:     5000,
		ForeignKeys:     true,
	}
}

// LoadFromEnvironment applies EWEBAPP_DB_* overrides
func (c *Config) LoadFromEnvironment() {
	if path := os.Getenv("EWEBAPP_DB_PATH"); path != "" {
		c.Path = path
	}

	if journalMode := os.Getenv("EWEBAPP_DB_JOURNAL_MODE"); journalMode != "" {
		c.JournalMode = journalMode
	}

	if syncMode := os.Getenv("EWEBAPP_DB_SYNCHRONOUS_MODE"); syncMode != "" {
		c.SynchronousMode = syncMode
	}

	if busyTimeout := os.Getenv("EWEBAPP_DB_BUSY_TIMEOUT"); busyTimeout != "" {
		if val, err := strconv.Atoi(busyTimeout); err == nil && val >= 0 {
			c.BusyTimeout = val
		}
	}

	if autoMigrate, present := config.ParseBoolEnv("EWEBAPP_DB_AUTO_MIGRATE"); present {
		c.AutoMigrate = autoMigrate
	}
}

// Validate validates the configuration, creating the database directory when missing
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if !c.IsInMemory() {
		dir := filepath.Dir(c.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	if c.MaxConnections <= 0 {
		return fmt.Errorf("maxConnections must be positive, got %d", c.MaxConnections)
	}

	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxConnections {
		return fmt.Errorf("maxIdleConns must be between 0 and maxConnections (%d), got %d", c.MaxConnections, c.MaxIdleConns)
	}

	validJournalModes := []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	journalModeValid := false
	for _, mode := range validJournalModes {
		if strings.EqualFold(c.JournalMode, mode) {
			journalModeValid = true
			break
		}
	}
	if !journalModeValid {
		return fmt.Errorf("invalid journalMode: %s", c.JournalMode)
	}

	if c.IsInMemory() && strings.EqualFold(c.JournalMode, "WAL") {
		return fmt.Errorf("journalMode cannot be WAL when using in-memory database")
	}

	switch strings.ToUpper(c.SynchronousMode) {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid synchronousMode: %s", c.SynchronousMode)
	}

	if c.BusyTimeout < 0 {
		return fmt.Errorf("busyTimeout cannot be negative, got %d", c.BusyTimeout)
	}

	return nil
}

// GetConnectionString builds the go-sqlite3 DSN; only characters that break query parsing are escaped in the path
func (c *Config) GetConnectionString() string {
	values := url.Values{}

	if c.ForeignKeys {
		values.Set("_foreign_keys", "on")
	} else {
		values.Set("_foreign_keys", "off")
	}
	values.Set("_journal_mode", c.JournalMode)
	values.Set("_synchronous", c.SynchronousMode)
	values.Set("_busy_timeout", strconv.Itoa(c.BusyTimeout))

	path := c.Path
	if strings.ContainsAny(path, "?&") {
		path = strings.ReplaceAll(path, "?", "%3F")
		path = strings.ReplaceAll(path, "&", "%26")
	}

	return path + "?" + values.Encode()
}

// IsInMemory returns true if the database is configured to use in-memory storage
func (c *Config) IsInMemory() bool {
	return c.Path == ":memory:"
}
