package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// RedisRepository implements Repository with one JSON document per key
type RedisRepository struct {
	client *redis.Client
	appID  string
	now    func() time.Time
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	AppID    string
}

// NewRedisRepository connects to Redis and verifies the connection
func NewRedisRepository(ctx context.Context, cfg RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisRepository(client, cfg.AppID), nil
}

func newRedisRepository(client *redis.Client, appID string) *RedisRepository {
	return &RedisRepository{client: client, appID: appID, now: time.Now}
}

// assessmentKey namespaces documents by application and user
func assessmentKey(appID, userID string) string {
	return fmt.Sprintf("assessment:%s:%s", appID, userID)
}

// SaveAssessment writes the document inside a WATCH transaction so a
// concurrent newer save is never overwritten
func (r *RedisRepository) SaveAssessment(ctx context.Context, userID string, answers models.Answers, revision int64) error {
	key := assessmentKey(r.appID, userID)

	payload, err := json.Marshal(models.StoredAssessment{
		UserID:   userID,
		Answers:  answers,
		Revision: revision,
		SavedAt:  r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		existing, err := r.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing != nil && existing.Revision >= revision {
			return fmt.Errorf("%w: stored %d, got %d", ErrStaleRevision, existing.Revision, revision)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("%w: concurrent save for user %s", ErrStaleRevision, userID)
		}
		if errors.Is(err, ErrStaleRevision) {
			return err
		}
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	return nil
}

func (r *RedisRepository) LoadAssessment(ctx context.Context, userID string) (*models.StoredAssessment, error) {
	doc, err := r.get(ctx, r.client, assessmentKey(r.appID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	return doc, nil
}

func (r *RedisRepository) DeleteAssessment(ctx context.Context, userID string) error {
	n, err := r.client.Del(ctx, assessmentKey(r.appID, userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return nil
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// get decodes the document at key, or returns nil when the key is absent
func (r *RedisRepository) get(ctx context.Context, c stringGetter, key string) (*models.StoredAssessment, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var doc models.StoredAssessment
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	if doc.Answers == nil {
		doc.Answers = models.Answers{}
	}
	return &doc, nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
