package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"radrush-quiz-service/internal/app"
	"radrush-quiz-service/internal/cli"
	"radrush-quiz-service/internal/clock"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/infra/postgres"
	infraredis "radrush-quiz-service/internal/infra/redis"
)

func TestRankedSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if err := cli.RunMigrations(ctx, pgURL, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	questions := postgres.NewQuestionPool(pool)
	if err := questions.ReplacePool(ctx, sampleQuestions(4)); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewStore(pool)
	fake := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewPoolCache(redisClient, questions, 5*time.Minute),
		app.NewPlayGuard(store, zerolog.Nop()),
		app.NewLeaderboard(store, []domain.LeaderboardEntry{{ID: "m1", Name: "KTV. Trần Bình", Score: 950}}, zerolog.Nop()),
		app.Options{Clock: fake, Logger: zerolog.Nop()},
	)

	cfg := domain.SessionConfig{Mode: domain.ModeRanked, TimeLimit: 20 * time.Second, QuestionCount: 2}
	session, err := service.StartSession(ctx, "KTV. An", cfg, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		fake.Advance(10 * time.Second)
		if err := session.SubmitAnswer(1); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		fake.Advance(2500 * time.Millisecond)
	}

	st := session.State()
	if st.Phase != domain.PhaseFinished || st.Result == nil || !st.Result.Saved {
		t.Fatalf("expected saved finished run, got %+v", st)
	}
	if st.Result.TotalScore != 150 || st.Result.CorrectCount != 2 {
		t.Fatalf("expected 2 correct answers worth 150, got %+v", st.Result)
	}

	board, err := store.LoadLeaderboard(ctx)
	if err != nil {
		t.Fatalf("load leaderboard: %v", err)
	}
	if len(board) != 2 || board[1].Name != "KTV. An" || board[1].Score != 150 {
		t.Fatalf("expected persisted board with player, got %+v", board)
	}

	daily, err := questions.FetchDailyQuestions(ctx, "2025-03-01", 2)
	if err != nil || len(daily) != 2 {
		t.Fatalf("expected stable daily set of 2, got %d (%v)", len(daily), err)
	}

	if _, err := service.StartSession(ctx, "ktv. an", cfg, nil); !errors.Is(err, domain.ErrDailyLimitReached) {
		t.Fatalf("expected daily limit, got %v", err)
	}
}

func TestPostgresStoreKeepsOrderAndPrunesHistory(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	if err := cli.RunMigrations(ctx, pgURL, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	entries := []domain.LeaderboardEntry{
		{ID: "a", Name: "A", Score: 500},
		{ID: "b", Name: "B", Score: 500},
		{ID: "c", Name: "C", Score: 100},
	}
	if err := store.SaveLeaderboard(ctx, entries); err != nil {
		t.Fatalf("save leaderboard: %v", err)
	}
	loaded, err := store.LoadLeaderboard(ctx)
	if err != nil {
		t.Fatalf("load leaderboard: %v", err)
	}
	for i, e := range loaded {
		if e.ID != entries[i].ID {
			t.Fatalf("expected order a,b,c, got %+v", loaded)
		}
	}

	if err := store.SavePlayHistory(ctx, domain.PlayHistory{"an": "2025-03-01", "bình": "2025-03-01"}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := store.SavePlayHistory(ctx, domain.PlayHistory{"an": "2025-03-02"}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history, err := store.LoadPlayHistory(ctx)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 1 || history["an"] != "2025-03-02" {
		t.Fatalf("expected pruned history, got %+v", history)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "radrush", "POSTGRES_PASSWORD": "radrush", "POSTGRES_DB": "radrush"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://radrush:radrush@%s:%s/radrush?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, domain.Question{
			ID:                 fmt.Sprintf("q%d", i+1),
			Prompt:             fmt.Sprintf("Imaging question %d", i+1),
			Options:            []string{"A", "B", "C", "D"},
			CorrectOptionIndex: 1,
		})
	}
	return qs
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
