package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/clock"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/metrics"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// PoolProvider loads question content from a cache or backing store.
type PoolProvider interface {
	FetchPool(ctx context.Context) ([]domain.Question, error)
	// FetchDailyQuestions returns the ranked set for day, stamping up to count
	// unused questions on the first request of the day.
	FetchDailyQuestions(ctx context.Context, day domain.Day, count int) ([]domain.Question, error)
	ReplacePool(ctx context.Context, questions []domain.Question) error
}

// QuestionGenerator turns plain document text into candidate questions.
type QuestionGenerator interface {
	Generate(ctx context.Context, documentText string) ([]domain.Question, error)
}

// Options tunes a QuizService. Zero values fall back to production defaults.
type Options struct {
	Clock                clock.Clock
	Scorer               Scorer
	Location             *time.Location
	RankedAdvanceDelay   time.Duration
	PracticeAdvanceDelay time.Duration
	// Seed drives question sampling; zero seeds from the clock.
	Seed   int64
	Logger zerolog.Logger
}

// QuizService owns the collaborators every session needs and hands out sessions.
type QuizService struct {
	sessions  SessionRepository
	pool      PoolProvider
	guard     *PlayGuard
	board     *Leaderboard
	generator QuestionGenerator

	clock                clock.Clock
	scorer               Scorer
	location             *time.Location
	rankedAdvanceDelay   time.Duration
	practiceAdvanceDelay time.Duration
	sampler              *sampler
	logger               zerolog.Logger

	generating atomic.Bool
}

func NewQuizService(sessions SessionRepository, pool PoolProvider, guard *PlayGuard, board *Leaderboard, opts Options) *QuizService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Scorer == (Scorer{}) {
		opts.Scorer = DefaultScorer()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RankedAdvanceDelay <= 0 {
		opts.RankedAdvanceDelay = 2500 * time.Millisecond
	}
	if opts.PracticeAdvanceDelay <= 0 {
		opts.PracticeAdvanceDelay = 4 * time.Second
	}
	if opts.Seed == 0 {
		opts.Seed = opts.Clock.Now().UnixNano()
	}
	return &QuizService{
		sessions:             sessions,
		pool:                 pool,
		guard:                guard,
		board:                board,
		clock:                opts.Clock,
		scorer:               opts.Scorer,
		location:             opts.Location,
		rankedAdvanceDelay:   opts.RankedAdvanceDelay,
		practiceAdvanceDelay: opts.PracticeAdvanceDelay,
		sampler:              newSampler(opts.Seed),
		logger:               opts.Logger,
	}
}

// SetGenerator enables GenerateQuestions.
func (s *QuizService) SetGenerator(g QuestionGenerator) {
	s.generator = g
}

// NewSession creates an idle session and registers it.
func (s *QuizService) NewSession() *Session {
	session := newSession(uuid.NewString(), s)
	s.sessions.Put(session)
	return session
}

// Session looks up a registered session.
func (s *QuizService) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// CloseSession exits the session and forgets it. Unknown ids are ignored.
func (s *QuizService) CloseSession(id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Exit()
	s.sessions.Delete(id)
}

// StartSession prepares a fresh session and starts it for player.
func (s *QuizService) StartSession(ctx context.Context, player string, cfg domain.SessionConfig, pool []domain.Question) (*Session, error) {
	session := s.NewSession()
	if err := session.Prepare(cfg, pool); err != nil {
		s.sessions.Delete(session.ID())
		return nil, err
	}
	if err := session.Start(ctx, player); err != nil {
		s.sessions.Delete(session.ID())
		return nil, err
	}
	return session, nil
}

// Leaderboard returns the ranked board, flagging player's entry when given.
func (s *QuizService) Leaderboard(ctx context.Context, player string) []domain.LeaderboardEntry {
	return s.board.Entries(ctx, player)
}

// CanPlayRanked reports whether player may start a ranked run today.
func (s *QuizService) CanPlayRanked(ctx context.Context, player string) (bool, error) {
	return s.guard.CanPlay(ctx, player, s.today())
}

// GenerateQuestions asks the generator for questions from documentText and,
// when replacePool is set, stores them as the new pool. Only one generation
// runs at a time; a concurrent request fails fast.
func (s *QuizService) GenerateQuestions(ctx context.Context, documentText string, replacePool bool) ([]domain.Question, error) {
	if s.generator == nil {
		return nil, domain.ErrGeneratorDisabled
	}
	if strings.TrimSpace(documentText) == "" {
		return nil, domain.ErrEmptyDocument
	}
	if !s.generating.CompareAndSwap(false, true) {
		metrics.Generations.WithLabelValues("busy").Inc()
		return nil, domain.ErrGenerationInProgress
	}
	defer s.generating.Store(false)

	raw, err := s.generator.Generate(ctx, documentText)
	if err != nil {
		metrics.Generations.WithLabelValues("error").Inc()
		return nil, err
	}
	questions, rejected := preparePool(raw)
	if len(questions) == 0 {
		metrics.Generations.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("%w: generator returned no usable questions", domain.ErrEmptyPool)
	}
	if rejected > 0 {
		s.logger.Warn().Int("rejected", rejected).Int("kept", len(questions)).Msg("dropped invalid generated questions")
	}
	if replacePool {
		if err := s.pool.ReplacePool(ctx, questions); err != nil {
			metrics.Generations.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("replace pool: %w", err)
		}
	}
	metrics.Generations.WithLabelValues("ok").Inc()
	s.logger.Info().Int("questions", len(questions)).Bool("replaced", replacePool).Msg("questions generated")
	return questions, nil
}

func (s *QuizService) today() domain.Day {
	return domain.DayOf(s.clock.Now(), s.location)
}

func (s *QuizService) advanceDelay(cfg domain.SessionConfig) time.Duration {
	if cfg.Ranked() {
		return s.rankedAdvanceDelay
	}
	return s.practiceAdvanceDelay
}

// loadQuestions resolves and samples the questions for a run.
func (s *QuizService) loadQuestions(ctx context.Context, cfg domain.SessionConfig, custom []domain.Question, day domain.Day) ([]domain.Question, error) {
	raw := custom
	if raw == nil {
		var err error
		if cfg.Ranked() {
			raw, err = s.pool.FetchDailyQuestions(ctx, day, cfg.QuestionCount)
			if err == nil && len(raw) == 0 {
				raw, err = s.pool.FetchPool(ctx)
			}
		} else {
			raw, err = s.pool.FetchPool(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
	}

	valid, rejected := preparePool(raw)
	if rejected > 0 {
		s.logger.Warn().Int("rejected", rejected).Msg("skipped invalid questions")
	}
	if len(valid) == 0 {
		return nil, domain.ErrEmptyPool
	}
	return s.sampler.sample(valid, cfg.QuestionCount), nil
}

// complete persists a finished ranked run: the play stamp first, then the
// leaderboard merge. Both are attempted; the merged board is returned with
// the first failure.
func (s *QuizService) complete(ctx context.Context, player string, day domain.Day, score int) ([]domain.LeaderboardEntry, error) {
	recordErr := s.guard.RecordPlay(ctx, player, day)
	if recordErr != nil {
		s.logger.Error().Err(recordErr).Str("player", player).Msg("record play failed")
	}
	board, err := s.board.Merge(ctx, player, score)
	if err != nil {
		s.logger.Error().Err(err).Str("player", player).Msg("leaderboard merge failed")
		return nil, err
	}
	return board, recordErr
}
