// Package sourcecache keeps an in-memory set of active source chat ids,
// refreshed periodically from storage. The ingest path consults it to cheaply
// discard messages from chats that are not configured sources.
package sourcecache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/telegram-filter-bot/internal/core/errors"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/worker"
	db "github.com/lueurxax/telegram-filter-bot/internal/storage"
)

// Repository is the storage surface the cache needs.
type Repository interface {
	GetActiveSourceChatIDs(ctx context.Context) ([]int64, error)
}

var _ Repository = (*db.DB)(nil)

// Cache is a periodically refreshed set of active source chat ids. All reads
// and writes go through one mutex so a refresh is observed atomically.
type Cache struct {
	repo   Repository
	logger *zerolog.Logger

	mu                  sync.Mutex
	allowed             map[int64]struct{}
	schemaMissingLogged bool
}

// New creates an empty cache. Call Refresh or Run to populate it.
func New(repo Repository, logger *zerolog.Logger) *Cache {
	return &Cache{
		repo:    repo,
		logger:  logger,
		allowed: map[int64]struct{}{},
	}
}

// Refresh loads the current active set and atomically replaces the cached
// one. A schema-not-ready storage state degrades to an empty set, logged only
// once, so the ingest path keeps running while migrations catch up.
func (c *Cache) Refresh(ctx context.Context) error {
	ids, err := c.repo.GetActiveSourceChatIDs(ctx)
	if err != nil {
		if errors.Is(err, coreerrors.ErrSchemaNotReady) {
			c.replaceEmptyOnSchemaMissing()

			return nil
		}

		return err
	}

	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}

	c.mu.Lock()
	c.allowed = allowed
	c.schemaMissingLogged = false
	c.mu.Unlock()

	observability.SourceCacheSize.Set(float64(len(allowed)))

	return nil
}

func (c *Cache) replaceEmptyOnSchemaMissing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.allowed = map[int64]struct{}{}

	if !c.schemaMissingLogged {
		c.schemaMissingLogged = true

		if c.logger != nil {
			c.logger.Warn().Msg("sources table missing, treating nothing as a source until schema is ready")
		}
	}

	observability.SourceCacheSize.Set(0)
}

// IsAllowed reports whether the chat id belongs to an active source.
func (c *Cache) IsAllowed(chatID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.allowed[chatID]

	return ok
}

// Size returns the number of cached chat ids.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.allowed)
}

// Run refreshes the cache on the given interval until ctx is canceled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "source-cache",
		PollInterval: interval,
		Process:      c.Refresh,
		Logger:       c.logger,
	})
}
