package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"radrush-quiz-service/internal/domain"
)

// PoolSource is the backing store behind a PoolCache.
type PoolSource interface {
	FetchPool(ctx context.Context) ([]domain.Question, error)
	FetchDailyQuestions(ctx context.Context, day domain.Day, count int) ([]domain.Question, error)
	ReplacePool(ctx context.Context, questions []domain.Question) error
}

// PoolCache caches the question pool and daily sets with TTL to avoid
// repeated backing-store hits. Concurrent misses share one load.
type PoolCache struct {
	source PoolSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
	// gen is bumped by ReplacePool; loads started before a bump are not cached.
	gen uint64
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

const poolKey = "pool"

func NewPoolCache(source PoolSource, ttl time.Duration) *PoolCache {
	return &PoolCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (c *PoolCache) FetchPool(ctx context.Context) ([]domain.Question, error) {
	return c.load(poolKey, func() ([]domain.Question, error) {
		return c.source.FetchPool(ctx)
	})
}

// FetchDailyQuestions caches the day's set under its date. The source stamps
// questions on first request, so repeated calls for a day agree.
func (c *PoolCache) FetchDailyQuestions(ctx context.Context, day domain.Day, count int) ([]domain.Question, error) {
	return c.load("daily:"+day.String(), func() ([]domain.Question, error) {
		return c.source.FetchDailyQuestions(ctx, day, count)
	})
}

// ReplacePool writes through to the source and drops every cached entry.
func (c *PoolCache) ReplacePool(ctx context.Context, questions []domain.Question) error {
	if err := c.source.ReplacePool(ctx, questions); err != nil {
		return err
	}
	c.mu.Lock()
	c.cache = make(map[string]cachedPool)
	c.gen++
	c.mu.Unlock()
	return nil
}

func (c *PoolCache) load(key string, fetch func() ([]domain.Question, error)) ([]domain.Question, error) {
	if qs, ok := c.cached(key); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if qs, ok := c.cached(key); ok {
			return qs, nil
		}
		now := c.clock()
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()
		qs, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.cache[key] = cachedPool{
				questions: qs,
				expiresAt: now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (c *PoolCache) cached(key string) ([]domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return cloneQuestions(entry.questions), true
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
