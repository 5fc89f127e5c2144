package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// SQLiteRepository implements Repository on a local SQLite file
type SQLiteRepository struct {
	db    *sql.DB
	appID string
	now   func() time.Time
}

// NewSQLiteRepository opens (or creates) the database at path and ensures the schema
func NewSQLiteRepository(ctx context.Context, path, appID string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; keeps per-connection pragmas in effect
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS assessments (
			app_id   TEXT NOT NULL,
			user_id  TEXT NOT NULL,
			answers  TEXT NOT NULL,
			revision INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (app_id, user_id)
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRepository{db: db, appID: appID, now: time.Now}, nil
}

func (r *SQLiteRepository) SaveAssessment(ctx context.Context, userID string, answers models.Answers, revision int64) error {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	query := `
		INSERT INTO assessments (app_id, user_id, answers, revision, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (app_id, user_id) DO UPDATE
		SET answers = excluded.answers, revision = excluded.revision, saved_at = excluded.saved_at
		WHERE assessments.revision < excluded.revision
	`

	savedAt := r.now().UTC().Format(time.RFC3339Nano)
	result, err := r.db.ExecContext(ctx, query, r.appID, userID, string(answersJSON), revision, savedAt)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s revision %d", ErrStaleRevision, userID, revision)
	}

	return nil
}

func (r *SQLiteRepository) LoadAssessment(ctx context.Context, userID string) (*models.StoredAssessment, error) {
	query := `SELECT answers, revision, saved_at FROM assessments WHERE app_id = ? AND user_id = ?`

	var answersJSON, savedAt string
	doc := models.StoredAssessment{UserID: userID}

	err := r.db.QueryRowContext(ctx, query, r.appID, userID).Scan(&answersJSON, &doc.Revision, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}

	if err := json.Unmarshal([]byte(answersJSON), &doc.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	if doc.Answers == nil {
		doc.Answers = models.Answers{}
	}

	doc.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse saved_at: %w", err)
	}

	return &doc, nil
}

func (r *SQLiteRepository) DeleteAssessment(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE app_id = ? AND user_id = ?`, r.appID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
