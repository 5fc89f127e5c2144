package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Evictor drops workspaces that have been idle for longer than a TTL
type Evictor interface {
	EvictIdle(ctx context.Context, idleFor time.Duration) []string
}

// Cleaner handles periodic eviction of idle assessment workspaces
type Cleaner struct {
	manager  Evictor
	interval time.Duration
	idleTTL  time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(manager Evictor, interval, idleTTL time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}

	return &Cleaner{
		manager:  manager,
		interval: interval,
		idleTTL:  idleTTL,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "idle_ttl", c.idleTTL)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup evicts idle workspaces and returns how many were dropped
func (c *Cleaner) cleanup(ctx context.Context) int {
	slog.Debug("running cleanup cycle")

	evicted := c.manager.EvictIdle(ctx, c.idleTTL)
	if len(evicted) == 0 {
		slog.Debug("no idle workspaces found")
		return 0
	}

	for _, userID := range evicted {
		slog.Debug("idle workspace evicted", "user_id", maskUserID(userID))
	}
	slog.Info("evicted idle workspaces", "count", len(evicted))
	return len(evicted)
}

func maskUserID(id string) string {
	if len(id) < 6 {
		return "***"
	}
	return id[:6] + "..."
}
