package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/session"
)

// BatchCache is a read-through cache in front of a question source, keyed by
// requested amount. It exists to shield a rate-limited upstream from a burst
// of connecting clients; concurrent misses for the same key collapse into a
// single upstream fetch.
type BatchCache struct {
	upstream session.Source
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand
	rndMu    sync.Mutex

	mu    sync.RWMutex
	cache map[int]cachedBatch
}

type cachedBatch struct {
	records   []domain.RawQuestion
	expiresAt time.Time
}

func NewBatchCache(upstream session.Source, ttl time.Duration) *BatchCache {
	return &BatchCache{
		upstream: upstream,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[int]cachedBatch),
	}
}

func (c *BatchCache) Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[amount]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.records, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(fmt.Sprintf("batch:%d", amount), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[amount]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.records, nil
		}
		c.mu.RUnlock()

		records, err := c.upstream.Fetch(ctx, amount)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[amount] = cachedBatch{
			records:   records,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

func (c *BatchCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
