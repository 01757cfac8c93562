package events

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator remembers delivery ids so re-sent webhooks are queued once.
type Deduplicator interface {
	// FirstSeen records id and reports whether it had not been seen before.
	FirstSeen(ctx context.Context, id string) (bool, error)
	// Forget drops id so a delivery that could not be queued is accepted again.
	Forget(ctx context.Context, id string) error
}

type RedisDeduplicator struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduplicator(rdb *redis.Client, prefix string, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduplicator) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
}

func (d *RedisDeduplicator) Forget(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, d.prefix+id).Err()
}

// MemoryDeduplicator is the single-process fallback when Redis is not configured.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (d *MemoryDeduplicator) FirstSeen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}

	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduplicator) Forget(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}
