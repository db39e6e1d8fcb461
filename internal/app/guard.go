package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/domain"
)

// HistoryStore persists the per-player date of the last ranked run.
type HistoryStore interface {
	LoadPlayHistory(ctx context.Context) (domain.PlayHistory, error)
	SavePlayHistory(ctx context.Context, history domain.PlayHistory) error
}

// PlayGuard enforces one ranked run per player per calendar day.
type PlayGuard struct {
	store  HistoryStore
	logger zerolog.Logger

	mu sync.Mutex
}

func NewPlayGuard(store HistoryStore, logger zerolog.Logger) *PlayGuard {
	return &PlayGuard{store: store, logger: logger}
}

// CanPlay reports whether name may start a ranked run on day. An unreadable
// history is treated as empty so a storage outage never locks players out.
func (g *PlayGuard) CanPlay(ctx context.Context, name string, day domain.Day) (bool, error) {
	key := domain.NormalizeName(name)
	if key == "" {
		return false, domain.ErrEmptyPlayerName
	}
	history, err := g.store.LoadPlayHistory(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Str("player", key).Msg("play history unavailable, allowing run")
		return true, nil
	}
	return history[key] != day, nil
}

// RecordPlay stamps day as the player's last ranked run. Calling it twice for
// the same day leaves the history unchanged.
func (g *PlayGuard) RecordPlay(ctx context.Context, name string, day domain.Day) error {
	key := domain.NormalizeName(name)
	if key == "" {
		return domain.ErrEmptyPlayerName
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	history, err := g.store.LoadPlayHistory(ctx)
	if err != nil {
		return fmt.Errorf("%w: load play history: %v", domain.ErrScoreNotSaved, err)
	}
	if history == nil {
		history = domain.PlayHistory{}
	}
	if history[key] == day {
		return nil
	}
	history[key] = day
	if err := g.store.SavePlayHistory(ctx, history); err != nil {
		return fmt.Errorf("%w: save play history: %v", domain.ErrScoreNotSaved, err)
	}
	return nil
}
