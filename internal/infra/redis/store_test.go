package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radrush-quiz-service/internal/domain"
)

func TestStoreLeaderboardRoundTrip(t *testing.T) {
	mr, client := startRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	empty, err := store.LoadLeaderboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	entries := []domain.LeaderboardEntry{
		{ID: "m1", Name: "KTV. Trần Bình", Score: 950, AvatarRef: "a"},
		{ID: "u1", Name: "KTV. An", Score: 263, IsCurrentUser: true},
	}
	require.NoError(t, store.SaveLeaderboard(ctx, entries))
	assert.True(t, mr.Exists(leaderboardKey))

	loaded, err := store.LoadLeaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "KTV. Trần Bình", loaded[0].Name)
	assert.Equal(t, 263, loaded[1].Score)
	assert.False(t, loaded[1].IsCurrentUser, "current-user flag is per response, not stored")
}

func TestStorePlayHistoryReplacesHash(t *testing.T) {
	mr, client := startRedis(t)
	store := NewStore(client)
	ctx := context.Background()

	require.NoError(t, store.SavePlayHistory(ctx, domain.PlayHistory{"an": "2025-03-01", "bình": "2025-03-01"}))
	require.NoError(t, store.SavePlayHistory(ctx, domain.PlayHistory{"an": "2025-03-02"}))

	history, err := store.LoadPlayHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayHistory{"an": "2025-03-02"}, history)
	assert.Equal(t, "2025-03-02", mr.HGet(historyKey, "an"))
}

func TestStoreSurfacesConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	store := NewStore(client)
	mr.Close()

	_, err = store.LoadLeaderboard(context.Background())
	assert.Error(t, err)
	_, err = store.LoadPlayHistory(context.Background())
	assert.Error(t, err)
}

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
