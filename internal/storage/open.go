package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/iso-assessment/internal/config"
)

// Open connects the configured backend. A nil Repository with a nil error
// means persistence is disabled (backend "none").
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := MigrateFromDSN(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		repo, err := NewPostgresRepository(ctx, PostgresConfig{
			DSN:          cfg.Database.DSN,
			AppID:        cfg.AppID,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendSQLite:
		repo, err := NewSQLiteRepository(ctx, cfg.SQLite.Path, cfg.AppID)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendRedis:
		repo, err := NewRedisRepository(ctx, RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			AppID:    cfg.AppID,
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendMemory:
		return NewMemoryRepository(), nil
	case config.BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
