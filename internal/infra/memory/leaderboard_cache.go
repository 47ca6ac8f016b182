package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TopSource is the read side the cache wraps (typically a result store).
type TopSource interface {
	QueryTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache memoizes the top query with a fixed TTL to avoid
// hitting the store on every render, keyed by requested size.
type LeaderboardCache struct {
	source TopSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedBoard
}

type cachedBoard struct {
	entries   []domain.LeaderboardEntry
	expiresAt time.Time
}

func NewLeaderboardCache(source TopSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedBoard),
	}
}

func (c *LeaderboardCache) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[n]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return cloneEntries(entry.entries), nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key(n), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[n]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.entries, nil
		}
		c.mu.RUnlock()

		entries, err := c.source.QueryTop(ctx, n)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[n] = cachedBoard{
			entries:   entries,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneEntries(result.([]domain.LeaderboardEntry)), nil
}

// Invalidate drops every memoized board, e.g. after a new result row.
func (c *LeaderboardCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	c.cache = make(map[int]cachedBoard)
	c.mu.Unlock()
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func key(n int) string {
	return "top:" + strconv.Itoa(n)
}

// cloneEntries keeps the memoized board out of callers' hands: a caller
// mutating its result must not corrupt later reads.
func cloneEntries(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	return append([]domain.LeaderboardEntry(nil), entries...)
}
