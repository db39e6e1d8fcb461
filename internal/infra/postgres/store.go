package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"radrush-quiz-service/internal/domain"
)

// Store persists the leaderboard and play history in Postgres. Board order
// is kept in the position column so equal scores round-trip stably.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, score, avatar FROM leaderboard_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Score, &e.AvatarRef); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return entries, nil
}

// SaveLeaderboard replaces the board in one transaction.
func (s *Store) SaveLeaderboard(ctx context.Context, entries []domain.LeaderboardEntry) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries`); err != nil {
			return fmt.Errorf("clear leaderboard: %w", err)
		}
		batch := &pgx.Batch{}
		for i, e := range entries {
			batch.Queue(`INSERT INTO leaderboard_entries (id, name, score, avatar, position) VALUES ($1, $2, $3, $4, $5)`,
				e.ID, e.Name, e.Score, e.AvatarRef, i)
		}
		br := tx.SendBatch(ctx, batch)
		for range entries {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert leaderboard entry: %w", err)
			}
		}
		return br.Close()
	})
}

func (s *Store) LoadPlayHistory(ctx context.Context) (domain.PlayHistory, error) {
	rows, err := s.pool.Query(ctx, `SELECT player, to_char(last_played, 'YYYY-MM-DD') FROM play_history`)
	if err != nil {
		return nil, fmt.Errorf("load play history: %w", err)
	}
	defer rows.Close()

	history := domain.PlayHistory{}
	for rows.Next() {
		var player, day string
		if err := rows.Scan(&player, &day); err != nil {
			return nil, fmt.Errorf("scan play history: %w", err)
		}
		history[player] = domain.Day(day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load play history: %w", err)
	}
	return history, nil
}

// SavePlayHistory upserts every entry and removes players no longer present.
func (s *Store) SavePlayHistory(ctx context.Context, history domain.PlayHistory) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		players := make([]string, 0, len(history))
		for player, day := range history {
			players = append(players, player)
			if _, err := tx.Exec(ctx, `
				INSERT INTO play_history (player, last_played) VALUES ($1, $2::date)
				ON CONFLICT (player) DO UPDATE SET last_played = EXCLUDED.last_played`,
				player, day.String()); err != nil {
				return fmt.Errorf("upsert play history: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM play_history WHERE NOT (player = ANY($1))`, players); err != nil {
			return fmt.Errorf("prune play history: %w", err)
		}
		return nil
	})
}
