package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/iso-assessment/internal/models"
)

var (
	// ErrStaleRevision is returned when a save carries a revision not newer than the stored one
	ErrStaleRevision = errors.New("stale revision")
	// ErrNotFound is returned by deletes of missing documents
	ErrNotFound = errors.New("assessment not found")
)

// Repository persists one answer document per user
type Repository interface {
	// SaveAssessment stores answers under userID unless a newer revision is already stored
	SaveAssessment(ctx context.Context, userID string, answers models.Answers, revision int64) error
	// LoadAssessment returns the stored document, or nil when none exists
	LoadAssessment(ctx context.Context, userID string) (*models.StoredAssessment, error)
	DeleteAssessment(ctx context.Context, userID string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
