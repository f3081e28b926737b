// Package store persists per-app window geometry and the user spelling dictionary.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ewebapp/internal/database"
	apperrors "ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/infrastructure/logging"
)

// WindowState is the last known geometry of the main window
type WindowState struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Maximised bool `json:"maximised"`
}

// Valid reports whether the geometry can be applied to a window
func (s WindowState) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// StateStore is what the lifecycle controller needs from persistence
type StateStore interface {
	LoadWindowState(ctx context.Context, appID string) (WindowState, bool, error)
	SaveWindowState(ctx context.Context, appID string, state WindowState) error
}

// Dictionary holds words the user added from the context menu
type Dictionary interface {
	AddWord(ctx context.Context, word string) error
	HasWord(ctx context.Context, word string) (bool, error)
	Words(ctx context.Context) ([]string, error)
}

// SQLiteStore implements StateStore and Dictionary over the state database
type SQLiteStore struct {
	db          *sql.DB
	appID       string
	retryConfig *apperrors.RetryConfig
	logger      logging.Logger
}

var (
	_ StateStore = (*SQLiteStore)(nil)
	_ Dictionary = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a store bound to appID for dictionary operations
func NewSQLiteStore(dbService database.Service, appID string, logger logging.Logger) *SQLiteStore {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SQLiteStore{
		db:          dbService.DB(),
		appID:       appID,
		retryConfig: apperrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

// classify wraps err with op and its classification; nil stays nil
func (s *SQLiteStore) classify(op string, err error, ctxMap map[string]string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.WrapWithContext(op, err, ctxMap)
}

// LoadWindowState returns the saved geometry; found is false when nothing was saved yet
func (s *SQLiteStore) LoadWindowState(ctx context.Context, appID string) (WindowState, bool, error) {
	const op = "LoadWindowState"
	var state WindowState
	found := false

	err := apperrors.WithRetryContext(ctx, s.retryConfig, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT x, y, width, height, maximised FROM window_state WHERE app_id = ?`, appID)

		var maximised int
		err := row.Scan(&state.X, &state.Y, &state.Width, &state.Height, &maximised)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return s.classify(op, err, map[string]string{"app_id": appID})
		}
		state.Maximised = maximised != 0
		found = true
		return nil
	}, op)
	if err != nil {
		return WindowState{}, false, err
	}

	return state, found, nil
}

// SaveWindowState upserts the geometry for appID
func (s *SQLiteStore) SaveWindowState(ctx context.Context, appID string, state WindowState) error {
	const op = "SaveWindowState"
	start := time.Now()

	if !state.Valid() {
		return apperrors.HandleValidationError(op, "size", "", "width and height must be positive")
	}

	err := apperrors.WithRetryContext(ctx, s.retryConfig, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO window_state (app_id, x, y, width, height, maximised, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(app_id) DO UPDATE SET
				x = excluded.x,
				y = excluded.y,
				width = excluded.width,
				height = excluded.height,
				maximised = excluded.maximised,
				updated_at = excluded.updated_at`,
			appID, state.X, state.Y, state.Width, state.Height, boolToInt(state.Maximised))
		return s.classify(op, err, map[string]string{"app_id": appID})
	}, op)
	if err != nil {
		return err
	}

	logging.LogOperation(s.logger, op, time.Since(start), map[string]interface{}{
		"width":  state.Width,
		"height": state.Height,
	})
	return nil
}

// AddWord records word in the user dictionary; adding an existing word is a no-op
func (s *SQLiteStore) AddWord(ctx context.Context, word string) error {
	const op = "AddWord"

	word = normaliseWord(word)
	if word == "" {
		return apperrors.HandleValidationError(op, "word", word, "must not be empty")
	}

	return apperrors.WithRetryContext(ctx, s.retryConfig, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO dictionary_words (app_id, word) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			s.appID, word)
		return s.classify(op, err, map[string]string{"word": word})
	}, op)
}

// HasWord reports whether word was added, ignoring case
func (s *SQLiteStore) HasWord(ctx context.Context, word string) (bool, error) {
	const op = "HasWord"

	word = normaliseWord(word)
	if word == "" {
		return false, nil
	}

	var n int
	err := apperrors.WithRetryContext(ctx, s.retryConfig, func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM dictionary_words WHERE app_id = ? AND word = ?`,
			s.appID, word).Scan(&n)
		return s.classify(op, err, map[string]string{"word": word})
	}, op)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Words lists the dictionary in alphabetical order
func (s *SQLiteStore) Words(ctx context.Context) ([]string, error) {
	const op = "Words"
	var words []string

	err := apperrors.WithRetryContext(ctx, s.retryConfig, func() error {
		words = words[:0]
		rows, err := s.db.QueryContext(ctx,
			`SELECT word FROM dictionary_words WHERE app_id = ? ORDER BY word`, s.appID)
		if err != nil {
			return s.classify(op, err, nil)
		}
		defer rows.Close()

		for rows.Next() {
			var w string
			if err := rows.Scan(&w); err != nil {
				return s.classify(op, err, nil)
			}
			words = append(words, w)
		}
		return s.classify(op, rows.Err(), nil)
	}, op)
	if err != nil {
		return nil, err
	}
	return words, nil
}

func normaliseWord(word string) string {
	return strings.TrimSpace(word)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
