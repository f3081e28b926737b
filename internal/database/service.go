package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	apperrors "ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/infrastructure/logging"
)

// SQLiteService implements Service for the per-app state database.
//
// Lifecycle: NewSQLiteService, Connect, Migrate (or Open for both), use DB, Close.
type SQLiteService struct {
	db              *sql.DB
	config          *Config
	migrationRunner MigrationManager
	logger          logging.Logger
}

var _ Service = (*SQLiteService)(nil)

// NewSQLiteService creates a new SQLite database service
func NewSQLiteService(logger logging.Logger) *SQLiteService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteService{
		logger: logger,
	}
}

// Open validates config, connects and runs migrations when AutoMigrate is set
func Open(ctx context.Context, config *Config, logger logging.Logger) (*SQLiteService, error) {
	if err := config.Validate(); err != nil {
		return nil, apperrors.New("database.Open", err, apperrors.ErrCodeValidation)
	}

	service := NewSQLiteService(logger)
	if err := service.Connect(ctx, config); err != nil {
		return nil, err
	}

	if config.AutoMigrate {
		if err := service.Migrate(ctx); err != nil {
			service.Close()
			return nil, err
		}
	}
	return service, nil
}

// Connect establishes a connection to the SQLite database, replacing any existing one
func (s *SQLiteService) Connect(ctx context.Context, config *Config) error {
	s.config = config

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close existing database connection", "error", err)
		}
		s.db = nil
		s.migrationRunner = nil
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return apperrors.HandleConnectionError("Connect", fmt.Sprintf("failed to open database: %v", err))
	}

	s.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return apperrors.HandleConnectionError("Connect", fmt.Sprintf("failed to ping database: %v", err))
	}

	s.db = db
	s.migrationRunner = NewMigrationRunner(db, s.logger)

	s.logger.Debug("Connected to state database", "path", config.Path)
	return nil
}

// Close closes the database connection
func (s *SQLiteService) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return apperrors.HandleConnectionError("Close", fmt.Sprintf("failed to close database: %v", err))
	}

	s.db = nil
	s.migrationRunner = nil
	return nil
}

// Migrate validates and runs the embedded migrations
func (s *SQLiteService) Migrate(ctx context.Context) error {
	if s.db == nil {
		return apperrors.HandleConnectionError("Migrate", "database not connected")
	}

	if err := s.migrationRunner.ValidateMigrations(); err != nil {
		return apperrors.WrapWithContext("Migrate", err, map[string]string{
			"phase": "validation",
		})
	}

	if err := s.migrationRunner.RunMigrations(ctx); err != nil {
		return apperrors.WrapWithContext("Migrate", err, map[string]string{
			"phase": "execution",
		})
	}

	return nil
}

// Health pings the database and runs a trivial query
func (s *SQLiteService) Health(ctx context.Context) error {
	if s.db == nil {
		return apperrors.HandleConnectionError("Health", "database not connected")
	}

	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.WrapWithContext("Health", err, map[string]string{
			"phase": "ping",
		})
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return apperrors.WrapWithContext("Health", err, map[string]string{
			"phase": "query",
		})
	}

	return nil
}

// DB returns the underlying database connection
func (s *SQLiteService) DB() *sql.DB {
	return s.db
}

// GetMigrationVersion returns the current migration version
func (s *SQLiteService) GetMigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, apperrors.HandleConnectionError("GetMigrationVersion", "database not connected")
	}

	version, err := s.migrationRunner.GetCurrentVersion(ctx)
	if err != nil {
		return 0, apperrors.Wrap("GetMigrationVersion", err)
	}
	return version, nil
}

// configureConnectionPool limits SQLite to one connection unless WAL is enabled
func (s *SQLiteService) configureConnectionPool(db *sql.DB, config *Config) {
	if config.IsInMemory() || !strings.EqualFold(config.JournalMode, "WAL") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		maxConns := min(max(config.MaxConnections, 1), 4)
		idleConns := max(min(config.MaxIdleConns, maxConns), 1)
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(idleConns)
	}

	db.SetConnMaxLifetime(config.ConnMaxLifetime)
}
