package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

type backend interface {
	FetchRoster(ctx context.Context) ([]domain.RosterEntry, error)
	FetchSnapshot(ctx context.Context, snapshot string) ([]domain.Task, error)
	SaveSnapshot(ctx context.Context, snapshot string, tasks []domain.Task) error
	EnqueueCommands(ctx context.Context, userID string, cmds []domain.Command) error
}

// Cache wraps a Storage instance with Redis-backed caching for read operations.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) FetchRoster(ctx context.Context) ([]domain.RosterEntry, error) {
	if entries, ok := c.loadRosterFromCache(ctx); ok {
		return entries, nil
	}

	entries, err := c.base.FetchRoster(ctx)
	if err != nil {
		return nil, err
	}

	c.storeRoster(ctx, entries)
	return entries, nil
}

func (c *Cache) FetchSnapshot(ctx context.Context, snapshot string) ([]domain.Task, error) {
	if tasks, ok := c.loadSnapshotFromCache(ctx, snapshot); ok {
		return tasks, nil
	}

	tasks, err := c.base.FetchSnapshot(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	c.storeSnapshot(ctx, snapshot, tasks)
	return tasks, nil
}

func (c *Cache) SaveSnapshot(ctx context.Context, snapshot string, tasks []domain.Task) error {
	if err := c.base.SaveSnapshot(ctx, snapshot, tasks); err != nil {
		return err
	}

	c.evictSnapshot(ctx, snapshot)
	return nil
}

func (c *Cache) EnqueueCommands(ctx context.Context, userID string, cmds []domain.Command) error {
	return c.base.EnqueueCommands(ctx, userID, cmds)
}

func (c *Cache) loadRosterFromCache(ctx context.Context) ([]domain.RosterEntry, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, rosterCacheKey()).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, rosterCacheKey()).Err()
		}
		return nil, false
	}
	var entries []domain.RosterEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		_ = c.redis.Del(ctx, rosterCacheKey()).Err()
		return nil, false
	}
	return entries, true
}

func (c *Cache) loadSnapshotFromCache(ctx context.Context, snapshot string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, snapshotCacheKey(snapshot)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, snapshotCacheKey(snapshot)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, snapshotCacheKey(snapshot)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeRoster(ctx context.Context, entries []domain.RosterEntry) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, rosterCacheKey(), data, c.ttl).Err()
}

func (c *Cache) storeSnapshot(ctx context.Context, snapshot string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, snapshotCacheKey(snapshot), data, c.ttl).Err()
}

func (c *Cache) evictSnapshot(ctx context.Context, snapshot string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, snapshotCacheKey(snapshot)).Result()
}

func rosterCacheKey() string {
	return "roster:all"
}

func snapshotCacheKey(snapshot string) string {
	return "snapshot:" + snapshot
}
