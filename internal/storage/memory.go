package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// MemoryRepository implements Repository in process memory
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*models.StoredAssessment
	now  func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs: make(map[string]*models.StoredAssessment),
		now:  time.Now,
	}
}

func (r *MemoryRepository) SaveAssessment(ctx context.Context, userID string, answers models.Answers, revision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.docs[userID]; ok && existing.Revision >= revision {
		return fmt.Errorf("%w: stored %d, got %d", ErrStaleRevision, existing.Revision, revision)
	}

	r.docs[userID] = &models.StoredAssessment{
		UserID:   userID,
		Answers:  answers.Clone(),
		Revision: revision,
		SavedAt:  r.now().UTC(),
	}
	return nil
}

func (r *MemoryRepository) LoadAssessment(ctx context.Context, userID string) (*models.StoredAssessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[userID]
	if !ok {
		return nil, nil
	}

	out := *doc
	out.Answers = doc.Answers.Clone()
	return &out, nil
}

func (r *MemoryRepository) DeleteAssessment(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[userID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	delete(r.docs, userID)
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
