package billing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/subsync/pkg/cache"
)

// EventLog remembers webhook event ids that were fully applied so a
// redelivered event is acknowledged without being processed again.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID string) error
}

const eventKeyPrefix = "subsync:event:"

// RedisEventLog shares the processed-event log between instances.
type RedisEventLog struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisEventLog creates a RedisEventLog keeping ids for ttl.
func NewRedisEventLog(client redis.Cmdable, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{client: client, ttl: ttl}
}

func (l *RedisEventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, eventKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisEventLog) Record(ctx context.Context, eventID string) error {
	return l.client.SetNX(ctx, eventKeyPrefix+eventID, 1, l.ttl).Err()
}

// MemoryEventLog is a per-process, size-bounded EventLog.
type MemoryEventLog struct {
	seen *cache.LRU[string, struct{}]
}

// NewMemoryEventLog creates a MemoryEventLog holding up to size ids for ttl.
func NewMemoryEventLog(size int, ttl time.Duration, opts ...cache.Option[string, struct{}]) *MemoryEventLog {
	if size <= 0 {
		size = 10000
	}
	opts = append([]cache.Option[string, struct{}]{cache.WithTTL[string, struct{}](ttl)}, opts...)
	return &MemoryEventLog{seen: cache.NewLRU(size, opts...)}
}

func (l *MemoryEventLog) Seen(_ context.Context, eventID string) (bool, error) {
	_, ok := l.seen.Get(eventID)
	return ok, nil
}

func (l *MemoryEventLog) Record(_ context.Context, eventID string) error {
	l.seen.Add(eventID, struct{}{})
	return nil
}
