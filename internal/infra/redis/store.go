package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"radrush-quiz-service/internal/domain"
)

const (
	leaderboardKey = "radrush:leaderboard"
	historyKey     = "radrush:history"
)

// Store persists the leaderboard and play history in Redis.
// The leaderboard is one JSON document:  SET radrush:leaderboard [...]
// Play history is a hash:                HSET radrush:history {normalizedName} {YYYY-MM-DD}
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) LoadLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	raw, err := s.client.Get(ctx, leaderboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal leaderboard: %w", err)
	}
	return entries, nil
}

func (s *Store) SaveLeaderboard(ctx context.Context, entries []domain.LeaderboardEntry) error {
	stored := make([]domain.LeaderboardEntry, len(entries))
	for i, e := range entries {
		e.IsCurrentUser = false
		stored[i] = e
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	if err := s.client.Set(ctx, leaderboardKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save leaderboard: %w", err)
	}
	return nil
}

func (s *Store) LoadPlayHistory(ctx context.Context) (domain.PlayHistory, error) {
	raw, err := s.client.HGetAll(ctx, historyKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load play history: %w", err)
	}
	history := make(domain.PlayHistory, len(raw))
	for name, day := range raw {
		history[name] = domain.Day(day)
	}
	return history, nil
}

// SavePlayHistory replaces the hash atomically.
func (s *Store) SavePlayHistory(ctx context.Context, history domain.PlayHistory) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, historyKey)
	if len(history) > 0 {
		values := make(map[string]interface{}, len(history))
		for name, day := range history {
			values[name] = day.String()
		}
		pipe.HSet(ctx, historyKey, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save play history: %w", err)
	}
	return nil
}
