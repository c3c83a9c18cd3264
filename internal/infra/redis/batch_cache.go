package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/session"
)

// BatchCache caches question batches in Redis (JSON-encoded per amount key)
// and falls back to the upstream source on a miss. Stored as:
// SET trivia:batch:{amount} {json} EX {ttl}
type BatchCache struct {
	client   *redis.Client
	upstream session.Source
	ttl      time.Duration
	sf       singleflight.Group
	rnd      *rand.Rand
	rndMu    sync.Mutex
}

func NewBatchCache(client *redis.Client, upstream session.Source, ttl time.Duration) *BatchCache {
	return &BatchCache{
		client:   client,
		upstream: upstream,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BatchCache) Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	key := c.key(amount)

	if records, ok := c.lookup(ctx, key); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if records, ok := c.lookup(ctx, key); ok {
			return records, nil
		}

		records, err := c.upstream.Fetch(ctx, amount)
		if err != nil {
			return nil, err
		}

		if encoded, err := json.Marshal(records); err == nil {
			// best-effort: a failed cache write only costs the next caller a
			// fetch
			_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

func (c *BatchCache) lookup(ctx context.Context, key string) ([]domain.RawQuestion, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var records []domain.RawQuestion
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *BatchCache) key(amount int) string {
	return fmt.Sprintf("trivia:batch:%d", amount)
}

func (c *BatchCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
