package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"radrush-quiz-service/internal/domain"
)

// PoolSource is the backing store behind a PoolCache (e.g. Postgres).
type PoolSource interface {
	FetchPool(ctx context.Context) ([]domain.Question, error)
	FetchDailyQuestions(ctx context.Context, day domain.Day, count int) ([]domain.Question, error)
	ReplacePool(ctx context.Context, questions []domain.Question) error
}

const poolKeyPrefix = "radrush:pool"

// PoolCache caches question sets in Redis as JSON and falls back to the
// source on a miss.
// Full pool:  SET radrush:pool [...]
// Daily set:  SET radrush:pool:daily:{YYYY-MM-DD} [...]
type PoolCache struct {
	client *redis.Client
	source PoolSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPoolCache(client *redis.Client, source PoolSource, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) FetchPool(ctx context.Context) ([]domain.Question, error) {
	return c.load(ctx, poolKeyPrefix, func() ([]domain.Question, error) {
		return c.source.FetchPool(ctx)
	})
}

func (c *PoolCache) FetchDailyQuestions(ctx context.Context, day domain.Day, count int) ([]domain.Question, error) {
	return c.load(ctx, dailyKey(day), func() ([]domain.Question, error) {
		return c.source.FetchDailyQuestions(ctx, day, count)
	})
}

// ReplacePool writes through to the source and evicts every cached set.
func (c *PoolCache) ReplacePool(ctx context.Context, questions []domain.Question) error {
	if err := c.source.ReplacePool(ctx, questions); err != nil {
		return err
	}
	keys := []string{poolKeyPrefix}
	iter := c.client.Scan(ctx, 0, poolKeyPrefix+":daily:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *PoolCache) load(ctx context.Context, key string, fetch func() ([]domain.Question, error)) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx, key); ok {
			return qs, nil
		}
		qs, err := fetch()
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(qs); err == nil {
			// best-effort fill; the source stays authoritative
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *PoolCache) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func dailyKey(day domain.Day) string {
	return poolKeyPrefix + ":daily:" + day.String()
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
