package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radrush-quiz-service/internal/app"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/infra/memory"
)

func seedBoard() []domain.LeaderboardEntry {
	return []domain.LeaderboardEntry{
		{ID: "m1", Name: "KTV. Trần Bình", Score: 950, AvatarRef: app.AvatarFor("Binh")},
		{ID: "m2", Name: "KTV. Lê Hoàng", Score: 880, AvatarRef: app.AvatarFor("Hoang")},
		{ID: "m3", Name: "KTV. Nguyễn Thu", Score: 820, AvatarRef: app.AvatarFor("Thu")},
	}
}

func TestMergeLeaderboardAccumulates(t *testing.T) {
	entries := seedBoard()
	entries[1].Score = 920

	merged := app.MergeLeaderboard(entries, "  ktv. lê hoàng", "ignored", 80, "new-id")

	require.Len(t, merged, 3)
	assert.Equal(t, "m2", merged[0].ID)
	assert.Equal(t, 1000, merged[0].Score)
	assert.Equal(t, "KTV. Lê Hoàng", merged[0].Name, "stored display name is kept")
	assert.True(t, merged[0].IsCurrentUser)
	assert.Equal(t, 920, entries[1].Score, "input must not be mutated")
}

func TestMergeLeaderboardInsertsNewPlayer(t *testing.T) {
	entries := seedBoard()

	merged := app.MergeLeaderboard(entries, "KTV. An", app.AvatarFor("KTV. An"), 900, "new-id")

	require.Len(t, merged, len(entries)+1)
	assert.Equal(t, []int{950, 900, 880, 820}, scores(merged))
	assert.Equal(t, "new-id", merged[1].ID)
	assert.Equal(t, app.AvatarFor("KTV. An"), merged[1].AvatarRef)

	current := 0
	for _, e := range merged {
		if e.IsCurrentUser {
			current++
			assert.Equal(t, "KTV. An", e.Name)
		}
	}
	assert.Equal(t, 1, current)
}

func TestMergeLeaderboardClearsPreviousCurrentUser(t *testing.T) {
	entries := seedBoard()
	entries[0].IsCurrentUser = true

	merged := app.MergeLeaderboard(entries, "KTV. Nguyễn Thu", "", 10, "x")
	for _, e := range merged {
		assert.Equal(t, e.ID == "m3", e.IsCurrentUser, e.Name)
	}
}

func TestMergeLeaderboardStableTies(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{ID: "a", Name: "A", Score: 500},
		{ID: "b", Name: "B", Score: 500},
	}

	merged := app.MergeLeaderboard(entries, "C", "", 500, "c")

	assert.Equal(t, []string{"a", "b", "c"}, entryIDs(merged))
}

func TestLeaderboardMergeSeedsEmptyStore(t *testing.T) {
	store := memory.NewStore()
	board := app.NewLeaderboard(store, seedBoard(), zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, []string{"m1", "m2", "m3"}, entryIDs(board.Entries(ctx, "")))

	merged, err := board.Merge(ctx, "KTV. An", 263)
	require.NoError(t, err)
	assert.Len(t, merged, 4)

	stored, _ := store.LoadLeaderboard(ctx)
	assert.Equal(t, []int{950, 880, 820, 263}, scores(stored))
	assert.Equal(t, 4, len(board.Entries(ctx, "")))
}

func TestLeaderboardEntriesFlagsNamedPlayer(t *testing.T) {
	store := memory.NewStore()
	board := app.NewLeaderboard(store, seedBoard(), zerolog.Nop())
	ctx := context.Background()

	_, err := board.Merge(ctx, "KTV. An", 100)
	require.NoError(t, err)

	var flagged []string
	for _, e := range board.Entries(ctx, "  ktv. an ") {
		if e.IsCurrentUser {
			flagged = append(flagged, e.Name)
		}
	}
	assert.Equal(t, []string{"KTV. An"}, flagged)

	for _, e := range board.Entries(ctx, "") {
		assert.False(t, e.IsCurrentUser, e.Name)
	}
}

func TestLeaderboardMergeDoesNotWriteOnLoadFailure(t *testing.T) {
	store := &brokenBoard{loadErr: errors.New("timeout")}
	board := app.NewLeaderboard(store, seedBoard(), zerolog.Nop())

	_, err := board.Merge(context.Background(), "KTV. An", 100)

	assert.ErrorIs(t, err, domain.ErrScoreNotSaved)
	assert.False(t, store.saved)
	assert.Len(t, board.Entries(context.Background(), ""), 3, "reads fall back to the seed")
}

func TestLeaderboardMergeReportsSaveFailure(t *testing.T) {
	store := &brokenBoard{saveErr: errors.New("read-only")}
	board := app.NewLeaderboard(store, nil, zerolog.Nop())

	_, err := board.Merge(context.Background(), "KTV. An", 100)
	assert.ErrorIs(t, err, domain.ErrScoreNotSaved)
}

type brokenBoard struct {
	loadErr error
	saveErr error
	saved   bool
}

func (b *brokenBoard) LoadLeaderboard(context.Context) ([]domain.LeaderboardEntry, error) {
	return nil, b.loadErr
}

func (b *brokenBoard) SaveLeaderboard(context.Context, []domain.LeaderboardEntry) error {
	b.saved = true
	return b.saveErr
}

func scores(entries []domain.LeaderboardEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Score
	}
	return out
}

func entryIDs(entries []domain.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
