package app

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/metrics"
)

// LeaderboardStore persists the ranked board as a whole.
type LeaderboardStore interface {
	LoadLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	SaveLeaderboard(ctx context.Context, entries []domain.LeaderboardEntry) error
}

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// AvatarFor derives a deterministic avatar reference from a player name.
func AvatarFor(name string) string {
	return avatarBaseURL + url.QueryEscape(name)
}

// MergeLeaderboard folds one finished ranked run into entries and returns a
// new board sorted by score descending. A returning player (by normalized
// name) accumulates onto their entry; a new player is appended with newID.
// Exactly the merged entry is flagged as the current user. Equal scores keep
// their previous relative order, with a new entry placed last among them.
func MergeLeaderboard(entries []domain.LeaderboardEntry, playerName, avatarRef string, sessionScore int, newID string) []domain.LeaderboardEntry {
	key := domain.NormalizeName(playerName)
	out := make([]domain.LeaderboardEntry, 0, len(entries)+1)
	found := false
	for _, e := range entries {
		e.IsCurrentUser = false
		if !found && domain.NormalizeName(e.Name) == key {
			e.Score += sessionScore
			e.IsCurrentUser = true
			found = true
		}
		out = append(out, e)
	}
	if !found {
		out = append(out, domain.LeaderboardEntry{
			ID:            newID,
			Name:          playerName,
			Score:         sessionScore,
			AvatarRef:     avatarRef,
			IsCurrentUser: true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Leaderboard serializes read-merge-write cycles against a LeaderboardStore.
// An empty store presents the seed board.
type Leaderboard struct {
	store  LeaderboardStore
	seed   []domain.LeaderboardEntry
	newID  func() string
	logger zerolog.Logger

	mu sync.Mutex
}

func NewLeaderboard(store LeaderboardStore, seed []domain.LeaderboardEntry, logger zerolog.Logger) *Leaderboard {
	return &Leaderboard{
		store:  store,
		seed:   cloneEntries(seed),
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Entries returns the current board with playerName's entry flagged as the
// current user (none when playerName is empty). Storage errors fall back to
// the seed.
func (l *Leaderboard) Entries(ctx context.Context, playerName string) []domain.LeaderboardEntry {
	entries, err := l.store.LoadLeaderboard(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("leaderboard unavailable, serving seed")
		entries = cloneEntries(l.seed)
	} else if len(entries) == 0 {
		entries = cloneEntries(l.seed)
	}
	return FlagCurrentUser(entries, playerName)
}

// FlagCurrentUser marks the first entry whose normalized name matches
// playerName and clears the flag everywhere else, in place.
func FlagCurrentUser(entries []domain.LeaderboardEntry, playerName string) []domain.LeaderboardEntry {
	key := domain.NormalizeName(playerName)
	found := false
	for i := range entries {
		match := key != "" && !found && domain.NormalizeName(entries[i].Name) == key
		entries[i].IsCurrentUser = match
		found = found || match
	}
	return entries
}

// Merge adds sessionScore to playerName's entry and persists the board.
// When the stored board cannot be read nothing is written, so an outage
// never replaces real standings with the seed.
func (l *Leaderboard) Merge(ctx context.Context, playerName string, sessionScore int) ([]domain.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.store.LoadLeaderboard(ctx)
	if err != nil {
		metrics.LeaderboardMerges.WithLabelValues("load_error").Inc()
		return nil, fmt.Errorf("%w: load leaderboard: %v", domain.ErrScoreNotSaved, err)
	}
	if len(current) == 0 {
		current = cloneEntries(l.seed)
	}

	merged := MergeLeaderboard(current, playerName, AvatarFor(playerName), sessionScore, l.newID())
	if err := l.store.SaveLeaderboard(ctx, merged); err != nil {
		metrics.LeaderboardMerges.WithLabelValues("save_error").Inc()
		return nil, fmt.Errorf("%w: save leaderboard: %v", domain.ErrScoreNotSaved, err)
	}
	metrics.LeaderboardMerges.WithLabelValues("ok").Inc()
	l.logger.Info().Str("player", playerName).Int("score", sessionScore).Int("entries", len(merged)).Msg("leaderboard merged")
	return merged, nil
}

func cloneEntries(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	if entries == nil {
		return nil
	}
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out
}
