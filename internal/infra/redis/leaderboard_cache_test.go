package redis

import (
	"context"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type countingSource struct {
	store *memory.ResultStore
	calls int
}

func (s *countingSource) QueryTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.calls++
	return s.store.QueryTop(ctx, n)
}

func newCacheFixture(t *testing.T) (*miniredis.Miniredis, *countingSource, *LeaderboardCache) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := memory.NewResultStore()
	if err := store.Record(context.Background(), domain.ResultRecord{Name: "Alice", Score: 3, ElapsedSeconds: 4}); err != nil {
		t.Fatalf("record: %v", err)
	}
	source := &countingSource{store: store}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, source, NewLeaderboardCache(client, source, time.Minute)
}

func TestLeaderboardCacheFillsRedis(t *testing.T) {
	ctx := context.Background()
	mr, source, cache := newCacheFixture(t)

	entries, err := cache.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Alice" {
		t.Fatalf("unexpected board %+v", entries)
	}
	if source.calls != 1 {
		t.Fatalf("expected one source query, got %d", source.calls)
	}
	if !mr.Exists("quiz:leaderboard:10") {
		t.Fatalf("expected board key in redis")
	}

	if _, err := cache.Top(ctx, 10); err != nil {
		t.Fatalf("top 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected redis hit, got %d source queries", source.calls)
	}
}

func TestLeaderboardCacheInvalidateDropsKeys(t *testing.T) {
	ctx := context.Background()
	mr, source, cache := newCacheFixture(t)

	if _, err := cache.Top(ctx, 10); err != nil {
		t.Fatalf("top: %v", err)
	}
	if _, err := cache.Top(ctx, 3); err != nil {
		t.Fatalf("top 3: %v", err)
	}

	cache.Invalidate(ctx)
	if mr.Exists("quiz:leaderboard:10") || mr.Exists("quiz:leaderboard:3") {
		t.Fatalf("expected board keys removed")
	}

	if _, err := cache.Top(ctx, 10); err != nil {
		t.Fatalf("top after invalidate: %v", err)
	}
	if source.calls != 3 {
		t.Fatalf("expected re-query after invalidate, got %d calls", source.calls)
	}
}
