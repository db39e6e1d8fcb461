package memory

import (
	"context"
	"sync"

	"radrush-quiz-service/internal/domain"
)

// Store keeps the leaderboard and play history in process memory.
type Store struct {
	mu          sync.RWMutex
	leaderboard []domain.LeaderboardEntry
	history     domain.PlayHistory
}

func NewStore() *Store {
	return &Store{history: domain.PlayHistory{}}
}

func (s *Store) LoadLeaderboard(_ context.Context) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LeaderboardEntry, len(s.leaderboard))
	copy(out, s.leaderboard)
	return out, nil
}

func (s *Store) SaveLeaderboard(_ context.Context, entries []domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard = make([]domain.LeaderboardEntry, len(entries))
	copy(s.leaderboard, entries)
	return nil
}

func (s *Store) LoadPlayHistory(_ context.Context) (domain.PlayHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.PlayHistory, len(s.history))
	for k, v := range s.history {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SavePlayHistory(_ context.Context, history domain.PlayHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(domain.PlayHistory, len(history))
	for k, v := range history {
		s.history[k] = v
	}
	return nil
}
