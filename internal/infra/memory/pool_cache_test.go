package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"radrush-quiz-service/internal/domain"
)

func TestPoolCacheCaches(t *testing.T) {
	source := &countingSource{PoolSource: NewQuestionPool(sampleQuestions(3))}
	cache := NewPoolCache(source, time.Minute)

	if _, err := cache.FetchPool(context.Background()); err != nil {
		t.Fatalf("fetch pool: %v", err)
	}
	if source.poolCalls() != 1 {
		t.Fatalf("expected source once, got %d", source.poolCalls())
	}

	qs, err := cache.FetchPool(context.Background())
	if err != nil {
		t.Fatalf("fetch pool 2: %v", err)
	}
	if source.poolCalls() != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.poolCalls())
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}
}

func TestPoolCacheExpires(t *testing.T) {
	source := &countingSource{PoolSource: NewQuestionPool(sampleQuestions(1))}
	cache := NewPoolCache(source, time.Minute)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.FetchPool(context.Background())
	now = now.Add(2 * time.Minute)
	_, _ = cache.FetchPool(context.Background())

	if source.poolCalls() != 2 {
		t.Fatalf("expected reload after ttl, source calls %d", source.poolCalls())
	}
}

func TestPoolCacheReplaceInvalidates(t *testing.T) {
	source := &countingSource{PoolSource: NewQuestionPool(sampleQuestions(2))}
	cache := NewPoolCache(source, time.Hour)
	ctx := context.Background()

	_, _ = cache.FetchPool(ctx)
	if err := cache.ReplacePool(ctx, sampleQuestions(5)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	qs, err := cache.FetchPool(ctx)
	if err != nil {
		t.Fatalf("fetch after replace: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("expected replaced pool of 5, got %d", len(qs))
	}
}

func TestPoolCacheReplaceDuringLoadIsNotOverwritten(t *testing.T) {
	source := &blockingSource{
		PoolSource: NewQuestionPool(sampleQuestions(2)),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	cache := NewPoolCache(source, time.Hour)
	ctx := context.Background()

	loaded := make(chan []domain.Question)
	go func() {
		qs, _ := cache.FetchPool(ctx)
		loaded <- qs
	}()
	<-source.entered
	if err := cache.ReplacePool(ctx, sampleQuestions(5)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	close(source.release)
	if stale := <-loaded; len(stale) != 2 {
		t.Fatalf("expected in-flight load to return the old pool, got %d", len(stale))
	}

	qs, err := cache.FetchPool(ctx)
	if err != nil {
		t.Fatalf("fetch after replace: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("expected replaced pool of 5, got %d", len(qs))
	}
}

func TestPoolCacheReturnsCopies(t *testing.T) {
	cache := NewPoolCache(NewQuestionPool(sampleQuestions(1)), time.Hour)
	ctx := context.Background()

	first, _ := cache.FetchPool(ctx)
	first[0].Options[0] = "mutated"
	second, _ := cache.FetchPool(ctx)
	if second[0].Options[0] == "mutated" {
		t.Fatalf("cache leaked a shared slice")
	}
}

func TestQuestionPoolDailyStamping(t *testing.T) {
	pool := NewQuestionPool(sampleQuestions(5))
	ctx := context.Background()

	day1, _ := pool.FetchDailyQuestions(ctx, "2025-03-01", 2)
	again, _ := pool.FetchDailyQuestions(ctx, "2025-03-01", 2)
	if len(day1) != 2 || len(again) != 2 || day1[0].ID != again[0].ID || day1[1].ID != again[1].ID {
		t.Fatalf("expected stable daily set, got %v then %v", ids(day1), ids(again))
	}

	day2, _ := pool.FetchDailyQuestions(ctx, "2025-03-02", 2)
	for _, q := range day2 {
		if q.ID == day1[0].ID || q.ID == day1[1].ID {
			t.Fatalf("question %s reused on a later day", q.ID)
		}
	}

	day3, _ := pool.FetchDailyQuestions(ctx, "2025-03-03", 2)
	if len(day3) != 1 {
		t.Fatalf("expected the single remaining unused question, got %d", len(day3))
	}
}

type countingSource struct {
	PoolSource
	mu    sync.Mutex
	calls int
}

func (s *countingSource) FetchPool(ctx context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.PoolSource.FetchPool(ctx)
}

// blockingSource holds the first FetchPool inside the source until released.
type blockingSource struct {
	PoolSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) FetchPool(ctx context.Context) ([]domain.Question, error) {
	qs, err := s.PoolSource.FetchPool(ctx)
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return qs, err
}

func (s *countingSource) poolCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, domain.Question{
			ID:                 string(rune('a' + i)),
			Prompt:             "Which parameter controls beam penetration?",
			Options:            []string{"mAs", "FFD", "kVp", "Focal spot"},
			CorrectOptionIndex: 2,
		})
	}
	return qs
}

func ids(qs []domain.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
