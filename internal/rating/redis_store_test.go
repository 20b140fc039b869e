package rating

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/kdimtricp/movierank/internal/ranking"
	"github.com/redis/go-redis/v9"
)

// Requires Redis on localhost:6379; skipped otherwise.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Minute)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	id := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	t.Cleanup(func() { store.Delete(context.Background(), id) })

	session := testSession().Apply(ranking.CandidateWins)
	if err := store.Save(ctx, id, session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	got, ok, err := store.Load(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Expected session, got ok=%v err=%v", ok, err)
	}
	if got.Candidate().Score != session.Candidate().Score {
		t.Errorf("Expected score %d, got %d", session.Candidate().Score, got.Candidate().Score)
	}
	if got.Comparisons() != 1 {
		t.Errorf("Expected 1 comparison, got %d", got.Comparisons())
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, ok, _ := store.Load(ctx, id); ok {
		t.Error("Expected session to be deleted")
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	id := "ttl-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	t.Cleanup(func() { store.Delete(context.Background(), id) })

	if err := store.Save(ctx, id, testSession()); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	ttl, err := store.client.TTL(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		t.Fatalf("Failed to read TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected TTL within one minute, got %s", ttl)
	}
}
