package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool  *pgxpool.Pool
	appID string
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	AppID        string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool, appID: cfg.AppID}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveAssessment upserts the answer document; older revisions never overwrite newer ones
func (r *PostgresRepository) SaveAssessment(ctx context.Context, userID string, answers models.Answers, revision int64) error {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	query := `
		INSERT INTO assessments (app_id, user_id, answers, revision, saved_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (app_id, user_id) DO UPDATE
		SET answers = EXCLUDED.answers, revision = EXCLUDED.revision, saved_at = EXCLUDED.saved_at
		WHERE assessments.revision < EXCLUDED.revision
	`

	result, err := r.pool.Exec(ctx, query, r.appID, userID, answersJSON, revision)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s revision %d", ErrStaleRevision, userID, revision)
	}

	return nil
}

// LoadAssessment retrieves the answer document of a user
func (r *PostgresRepository) LoadAssessment(ctx context.Context, userID string) (*models.StoredAssessment, error) {
	query := `
		SELECT answers, revision, saved_at
		FROM assessments
		WHERE app_id = $1 AND user_id = $2
	`

	doc := models.StoredAssessment{UserID: userID}
	var answersJSON []byte

	err := r.pool.QueryRow(ctx, query, r.appID, userID).Scan(&answersJSON, &doc.Revision, &doc.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}

	if err := json.Unmarshal(answersJSON, &doc.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	if doc.Answers == nil {
		doc.Answers = models.Answers{}
	}

	return &doc, nil
}

// DeleteAssessment removes the answer document of a user
func (r *PostgresRepository) DeleteAssessment(ctx context.Context, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE app_id = $1 AND user_id = $2`, r.appID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}

	return nil
}
