package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"ewebapp/internal/testutils"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "migrations.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_RunMigrations(t *testing.T) {
	db := openRawDB(t)
	runner := NewMigrationRunner(db, testutils.NewRecordingLogger())
	ctx := context.Background()

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	for _, table := range []string{"window_state", "dictionary_words", "goose_db_version"} {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected version 2, got %d", version)
	}
}

func TestMigrationRunner_MultipleRuns(t *testing.T) {
	db := openRawDB(t)
	runner := NewMigrationRunner(db, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := runner.RunMigrations(ctx); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}
}

func TestMigrationRunner_ContextCancellation(t *testing.T) {
	db := openRawDB(t)
	runner := NewMigrationRunner(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runner.RunMigrations(ctx); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}

func TestMigrationRunner_ValidateMigrations(t *testing.T) {
	runner := NewMigrationRunner(nil, nil)
	if err := runner.ValidateMigrations(); err != nil {
		t.Errorf("Expected embedded migrations to validate, got %v", err)
	}
}

func TestMigrations_Schema(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()
	if err := NewMigrationRunner(db, nil).RunMigrations(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"window size must be positive", "INSERT INTO window_state (app_id, width, height) VALUES ('a', 0, 10)", "CHECK constraint failed"},
		{"one row per app", "INSERT INTO window_state (app_id, width, height) VALUES ('dup', 10, 10)", "UNIQUE constraint failed"},
		{"dictionary words ignore case", "INSERT INTO dictionary_words (app_id, word) VALUES ('a', 'HELLO')", "UNIQUE constraint failed"},
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO window_state (app_id, width, height) VALUES ('dup', 10, 10)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO dictionary_words (app_id, word) VALUES ('a', 'hello')"); err != nil {
		t.Fatal(err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ExecContext(ctx, tt.query)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMigrationRunner_ConcurrentAccess(t *testing.T) {
	db := openRawDB(t)
	runner := NewMigrationRunner(db, nil)
	if err := runner.RunMigrations(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := runner.GetCurrentVersion(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent version read failed: %v", err)
	}
}
