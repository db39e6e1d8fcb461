package cli

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"radrush-quiz-service/internal/app"
	"radrush-quiz-service/internal/config"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/generator"
	"radrush-quiz-service/internal/infra/memory"
	"radrush-quiz-service/internal/infra/postgres"
	redisinfra "radrush-quiz-service/internal/infra/redis"
	"radrush-quiz-service/internal/logging"
	transport "radrush-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	return logging.New("radrush-quiz-service", cfg.Env, cfg.Log.Level)
}

// backends holds the storage chosen from config: Postgres when configured,
// then Redis, then process memory.
type backends struct {
	sessions app.SessionRepository
	data     interface {
		app.LeaderboardStore
		app.HistoryStore
	}
	pool    app.PoolProvider
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, err
		}
	}

	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL, logger); err != nil {
			b.close()
			return nil, err
		}
		var err error
		pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pgPool.Close)
	}

	var source redisinfra.PoolSource
	switch {
	case pgPool != nil:
		source = postgres.NewQuestionPool(pgPool)
		b.data = postgres.NewStore(pgPool)
	default:
		source = memory.NewQuestionPool(loadStarterQuestions(cfg.Quiz.QuestionsFile, logger))
		if redisClient != nil {
			b.data = redisinfra.NewStore(redisClient)
		} else {
			b.data = memory.NewStore()
		}
	}

	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)
	if redisClient != nil {
		b.pool = redisinfra.NewPoolCache(redisClient, source, poolTTL)
		b.sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		b.pool = memory.NewPoolCache(source, poolTTL)
		b.sessions = memory.NewSessionStore()
	}

	logger.Info().
		Bool("postgres", pgPool != nil).
		Bool("redis", redisClient != nil).
		Msg("storage backends ready")
	return b, nil
}

func loadStarterQuestions(path string, logger zerolog.Logger) []domain.Question {
	if path == "" {
		return nil
	}
	questions, err := memory.LoadQuestionsFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("file", path).Msg("questions file not found, starting with an empty pool")
		return nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("questions file unreadable, starting with an empty pool")
		return nil
	}
	return questions
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx = logging.IntoContext(ctx, logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	service := app.NewQuizService(
		b.sessions,
		b.pool,
		app.NewPlayGuard(b.data, logger.With().Str("component", "guard").Logger()),
		app.NewLeaderboard(b.data, cfg.Leaderboard.SeedEntries(), logger.With().Str("component", "leaderboard").Logger()),
		app.Options{
			Scorer:               app.Scorer{Base: cfg.Quiz.BasePoints, MaxBonus: cfg.Quiz.MaxTimeBonus},
			Location:             cfg.Quiz.Location(),
			RankedAdvanceDelay:   config.TTLDuration(cfg.Quiz.RankedAdvanceDelay, 2500*time.Millisecond),
			PracticeAdvanceDelay: config.TTLDuration(cfg.Quiz.PracticeAdvanceDelay, 4*time.Second),
			Logger:               logger.With().Str("component", "quiz").Logger(),
		},
	)

	if cfg.AI.GeminiAPIKey != "" {
		gen, err := generator.NewGemini(ctx, generator.Config{
			APIKey:       cfg.AI.GeminiAPIKey,
			Model:        cfg.AI.Model,
			Timeout:      config.TTLDuration(cfg.AI.Timeout, 60*time.Second),
			MaxQuestions: cfg.AI.MaxQuestions,
		}, logger)
		if err != nil {
			return err
		}
		service.SetGenerator(gen)
	} else {
		logger.Info().Msg("no Gemini API key, question generation disabled")
	}

	wsHandler := transport.NewWSHandler(service, cfg.Quiz.SessionConfig, logger.With().Str("component", "ws").Logger())
	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, wsHandler, transport.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
