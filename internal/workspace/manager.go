package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/iso-assessment/internal/models"
	"github.com/terra-clan/iso-assessment/internal/scoring"
	"github.com/terra-clan/iso-assessment/internal/storage"
)

// Common errors
var (
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrInvalidValue        = errors.New("invalid answer value")
	ErrNoResult            = errors.New("no result calculated")
	ErrResultStale         = errors.New("result is stale")
	ErrPersistenceDisabled = errors.New("persistence disabled")
	ErrNoSavedAssessment   = errors.New("no saved assessment")
	ErrLoadSuperseded      = errors.New("load superseded by newer local state")
)

// Manager defines the interface for per-user assessment workspaces
type Manager interface {
	Catalog() *models.Catalog
	SetAnswer(ctx context.Context, userID, questionID, value string) (models.Progress, error)
	Answers(ctx context.Context, userID string) models.Answers
	Progress(ctx context.Context, userID string) models.Progress
	Reset(ctx context.Context, userID string)
	Calculate(ctx context.Context, userID string) *models.CalculationResult
	Result(ctx context.Context, userID string) (*models.CalculationResult, error)
	Save(ctx context.Context, identity *models.Identity) (int64, error)
	Load(ctx context.Context, identity *models.Identity) (*models.StoredAssessment, error)
	PersistenceEnabled() bool
	EvictIdle(ctx context.Context, idleFor time.Duration) []string
	Count() int
	Ping(ctx context.Context) error
	Close() error
}

// workspace is the in-memory assessment state of one user
type workspace struct {
	mu         sync.Mutex
	answers    models.Answers
	editSeq    uint64 // bumped by every local edit
	revision   int64  // revision of the last document saved or loaded
	result     *models.CalculationResult
	stale      bool
	lastAccess time.Time
}

// AssessmentManager implements Manager over a catalog and an optional repository
type AssessmentManager struct {
	catalog *models.Catalog
	repo    storage.Repository // nil when persistence is disabled

	mu           sync.Mutex
	workspaces   map[string]*workspace
	lastRevision int64

	now func() time.Time
}

// NewManager creates a workspace manager. repo may be nil.
func NewManager(catalog *models.Catalog, repo storage.Repository) *AssessmentManager {
	return &AssessmentManager{
		catalog:    catalog,
		repo:       repo,
		workspaces: make(map[string]*workspace),
		now:        time.Now,
	}
}

// Catalog returns the questionnaire served by this manager
func (m *AssessmentManager) Catalog() *models.Catalog {
	return m.catalog
}

// PersistenceEnabled reports whether a repository is configured
func (m *AssessmentManager) PersistenceEnabled() bool {
	return m.repo != nil
}

// get returns the workspace of userID, creating it on first use
func (m *AssessmentManager) get(userID string) *workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.workspaces[userID]
	if !ok {
		ws = &workspace{answers: models.Answers{}}
		m.workspaces[userID] = ws
	}
	ws.mu.Lock()
	ws.lastAccess = m.now()
	ws.mu.Unlock()
	return ws
}

// nextRevision returns a monotonic timestamp, strictly increasing across calls
func (m *AssessmentManager) nextRevision() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	rev := m.now().UnixNano()
	if rev <= m.lastRevision {
		rev = m.lastRevision + 1
	}
	m.lastRevision = rev
	return rev
}

// SetAnswer records an answer and marks any calculated result stale
func (m *AssessmentManager) SetAnswer(ctx context.Context, userID, questionID, value string) (models.Progress, error) {
	if !m.catalog.HasQuestion(questionID) {
		return models.Progress{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if m.catalog.Option(value) == nil {
		return models.Progress{}, fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}

	ws := m.get(userID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.answers = models.SetAnswer(ws.answers, questionID, value)
	ws.editSeq++
	if ws.result != nil {
		ws.stale = true
	}

	return scoring.Progress(m.catalog, ws.answers), nil
}

// Answers returns a copy of the current answers
func (m *AssessmentManager) Answers(ctx context.Context, userID string) models.Answers {
	ws := m.get(userID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.answers.Clone()
}

// Progress returns the answered share of the questionnaire
func (m *AssessmentManager) Progress(ctx context.Context, userID string) models.Progress {
	ws := m.get(userID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return scoring.Progress(m.catalog, ws.answers)
}

// Reset clears answers and result
func (m *AssessmentManager) Reset(ctx context.Context, userID string) {
	ws := m.get(userID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.answers = models.Answers{}
	ws.editSeq++
	ws.result = nil
	ws.stale = false
}

// Calculate scores the current answers and caches the result as fresh
func (m *AssessmentManager) Calculate(ctx context.Context, userID string) *models.CalculationResult {
	ws := m.get(userID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	result := scoring.Calculate(m.catalog, ws.answers)
	ws.result = &result
	ws.stale = false

	if len(result.MalformedAnswers) > 0 {
		slog.Warn("malformed answers excluded from scoring",
			"user_id", userID,
			"questions", result.MalformedAnswers,
		)
	}

	out := result
	return &out
}

// Result returns the last calculated result while it is still fresh
func (m *AssessmentManager) Result(ctx context.Context, userID string) (*models.CalculationResult, error) {
	ws := m.get(userID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.result == nil {
		return nil, ErrNoResult
	}
	if ws.stale {
		return nil, ErrResultStale
	}
	out := *ws.result
	return &out, nil
}

// Save persists a snapshot of the answers taken at call time.
// Edits made while the save is in flight are not part of it.
func (m *AssessmentManager) Save(ctx context.Context, identity *models.Identity) (int64, error) {
	if m.repo == nil || !identity.CanPersist() {
		return 0, ErrPersistenceDisabled
	}

	ws := m.get(identity.UserID)
	ws.mu.Lock()
	snapshot := ws.answers.Clone()
	ws.mu.Unlock()

	revision := m.nextRevision()
	if err := m.repo.SaveAssessment(ctx, identity.UserID, snapshot, revision); err != nil {
		return 0, fmt.Errorf("failed to save assessment: %w", err)
	}

	ws.mu.Lock()
	if revision > ws.revision {
		ws.revision = revision
	}
	ws.mu.Unlock()

	slog.Info("assessment saved",
		"user_id", identity.MaskedUserID(),
		"answers", len(snapshot),
		"revision", revision,
	)
	return revision, nil
}

// Load replaces the answers wholesale with the stored document. The load is
// discarded when local edits happened while it was in flight, or when the
// stored document is older than what the workspace already holds. A loaded
// document never reveals a result: any cached result becomes stale.
func (m *AssessmentManager) Load(ctx context.Context, identity *models.Identity) (*models.StoredAssessment, error) {
	if m.repo == nil || !identity.CanPersist() {
		return nil, ErrPersistenceDisabled
	}

	ws := m.get(identity.UserID)
	ws.mu.Lock()
	seq := ws.editSeq
	ws.mu.Unlock()

	doc, err := m.repo.LoadAssessment(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	if doc == nil {
		return nil, ErrNoSavedAssessment
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.editSeq != seq {
		slog.Warn("discarding load, answers changed while loading", "user_id", identity.MaskedUserID())
		return nil, ErrLoadSuperseded
	}
	if doc.Revision < ws.revision {
		slog.Warn("discarding load of older revision",
			"user_id", identity.MaskedUserID(),
			"loaded", doc.Revision,
			"current", ws.revision,
		)
		return nil, ErrLoadSuperseded
	}

	ws.answers = doc.Answers.Clone()
	ws.revision = doc.Revision
	if ws.result != nil {
		ws.stale = true
	}

	slog.Info("assessment loaded",
		"user_id", identity.MaskedUserID(),
		"answers", len(doc.Answers),
		"revision", doc.Revision,
	)
	return doc, nil
}

// EvictIdle drops workspaces not touched for idleFor and returns their user ids
func (m *AssessmentManager) EvictIdle(ctx context.Context, idleFor time.Duration) []string {
	cutoff := m.now().Add(-idleFor)

	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for userID, ws := range m.workspaces {
		ws.mu.Lock()
		idle := ws.lastAccess.Before(cutoff)
		ws.mu.Unlock()

		if idle {
			delete(m.workspaces, userID)
			evicted = append(evicted, userID)
		}
	}
	return evicted
}

// Count returns the number of live workspaces
func (m *AssessmentManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Ping checks the repository when one is configured
func (m *AssessmentManager) Ping(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	if err := m.repo.Ping(ctx); err != nil {
		return fmt.Errorf("storage ping failed: %w", err)
	}
	return nil
}

// Close releases the repository
func (m *AssessmentManager) Close() error {
	if m.repo == nil {
		return nil
	}
	return m.repo.Close()
}
