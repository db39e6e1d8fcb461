package app

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"radrush-quiz-service/internal/domain"
)

// sampler draws questions without replacement. *rand.Rand is not safe for
// concurrent use, so draws are serialized.
type sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newSampler(seed int64) *sampler {
	return &sampler{rnd: rand.New(rand.NewSource(seed))}
}

// shuffle returns a uniformly random permutation of qs (Fisher-Yates from the
// last index down). The input is not modified.
func (s *sampler) shuffle(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	copy(out, qs)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// sample returns up to n questions. A smaller pool yields a shorter session.
func (s *sampler) sample(pool []domain.Question, n int) []domain.Question {
	shuffled := s.shuffle(pool)
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	return shuffled
}

// preparePool validates, de-duplicates and ids a raw pool.
func preparePool(raw []domain.Question) ([]domain.Question, int) {
	valid, rejected := domain.FilterQuestions(raw)
	for i := range valid {
		if valid[i].ID == "" {
			valid[i].ID = uuid.NewString()
		}
	}
	return valid, rejected
}
