package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/kdimtricp/movierank/internal/ranking"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "movierank:session:"

// RedisStore keeps session snapshots in Redis. Expiry is left to Redis key
// TTLs, so Sweep has nothing to do.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Save(ctx context.Context, id string, session ranking.Session) error {
	data, err := json.Marshal(session.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+id, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (ranking.Session, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return ranking.Session{}, false, nil
	}
	if err != nil {
		return ranking.Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}

	var snap ranking.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ranking.Session{}, false, fmt.Errorf("failed to decode session: %w", err)
	}
	session, err := ranking.Restore(snap)
	if err != nil {
		return ranking.Session{}, false, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return session, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (r *RedisStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
