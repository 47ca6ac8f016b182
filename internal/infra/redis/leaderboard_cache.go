package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"trivia-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TopSource is the read side the cache wraps (typically a result store).
type TopSource interface {
	QueryTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache memoizes the top query in Redis with a fixed TTL.
// Boards are stored as: SET quiz:leaderboard:{n} <json>, and every live
// key is tracked in quiz:leaderboard:keys so invalidation can drop them
// without a SCAN.
type LeaderboardCache struct {
	client *redis.Client
	source TopSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, source TopSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	key := c.boardKey(n)

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var entries []domain.LeaderboardEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var entries []domain.LeaderboardEntry
			if err := json.Unmarshal(cached, &entries); err == nil {
				return entries, nil
			}
		}

		entries, err := c.source.QueryTop(ctx, n)
		if err != nil {
			return nil, err
		}

		if payload, err := json.Marshal(entries); err == nil {
			pipe := c.client.Pipeline()
			pipe.Set(ctx, key, payload, c.ttlWithJitter())
			pipe.SAdd(ctx, c.keysKey(), key)
			// Cache fill is best-effort; a failed pipeline only costs a re-query.
			_, _ = pipe.Exec(ctx)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// Invalidate drops every memoized board, e.g. after a new result row.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	keys, err := c.client.SMembers(ctx, c.keysKey()).Result()
	if err != nil {
		return
	}
	keys = append(keys, c.keysKey())
	_ = c.client.Del(ctx, keys...).Err()
}

func (c *LeaderboardCache) boardKey(n int) string {
	return "quiz:leaderboard:" + strconv.Itoa(n)
}

func (c *LeaderboardCache) keysKey() string {
	return "quiz:leaderboard:keys"
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
