package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/clock"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/logging"
	"radrush-quiz-service/internal/metrics"
)

const completionTimeout = 10 * time.Second

// Session is one player's run through the quiz. Every transition happens
// under mu, so an answer and a timer expiry racing for the same question
// resolve it exactly once.
type Session struct {
	id     string
	svc    *QuizService
	logger zerolog.Logger

	mu          sync.Mutex
	phase       domain.Phase
	cfg         domain.SessionConfig
	custom      []domain.Question
	player      string
	day         domain.Day
	questions   []domain.Question
	current     int
	selected    *int
	totalScore  int
	correct     int
	lastAwarded int
	result      *domain.Result
	lastErr     string
	starting    bool
	// run changes on every reset so callbacks scheduled by an abandoned run
	// are ignored.
	run          uint64
	countdown    *Countdown
	advanceTimer clock.Timer
	subscribers  map[chan domain.Snapshot]struct{}
}

func newSession(id string, svc *QuizService) *Session {
	return &Session{
		id:          id,
		svc:         svc,
		logger:      svc.logger.With().Str("session", id).Logger(),
		phase:       domain.PhaseIdle,
		countdown:   NewCountdown(svc.clock),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Prepare selects the rules for the next run and waits for a player name.
// A nil or empty pool means questions come from the pool provider.
func (s *Session) Prepare(cfg domain.SessionConfig, pool []domain.Question) error {
	if cfg.Mode != domain.ModeRanked && cfg.Mode != domain.ModePractice {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMode, cfg.Mode)
	}
	if cfg.TimeLimit <= 0 || cfg.QuestionCount <= 0 {
		return fmt.Errorf("%w: time limit %s, question count %d", domain.ErrInvalidConfig, cfg.TimeLimit, cfg.QuestionCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseIdle, domain.PhaseAwaitingName, domain.PhaseFinished:
	default:
		return fmt.Errorf("%w: prepare from %s", domain.ErrInvalidTransition, s.phase)
	}
	if s.starting {
		return fmt.Errorf("%w: start in progress", domain.ErrInvalidTransition)
	}

	s.resetLocked()
	s.cfg = cfg
	if len(pool) > 0 {
		s.custom = append([]domain.Question(nil), pool...)
	}
	s.phase = domain.PhaseAwaitingName
	s.broadcastLocked()
	return nil
}

// Start validates the player, checks the daily limit for ranked runs, draws
// the questions and shows the first one. Failures leave the session waiting
// for a name.
func (s *Session) Start(ctx context.Context, playerName string) error {
	name := strings.TrimSpace(playerName)

	s.mu.Lock()
	if s.phase != domain.PhaseAwaitingName || s.starting {
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", domain.ErrInvalidTransition, phase)
	}
	if name == "" {
		s.lastErr = domain.ErrEmptyPlayerName.Error()
		s.broadcastLocked()
		s.mu.Unlock()
		return domain.ErrEmptyPlayerName
	}
	s.starting = true
	run := s.run
	cfg, custom := s.cfg, s.custom
	s.mu.Unlock()

	questions, day, err := s.prepareRun(ctx, name, cfg, custom)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != run {
		return fmt.Errorf("%w: session reset during start", domain.ErrInvalidTransition)
	}
	s.starting = false
	if err != nil {
		s.lastErr = err.Error()
		s.broadcastLocked()
		return err
	}

	s.player = name
	s.day = day
	s.questions = questions
	s.current = 0
	s.lastErr = ""
	s.beginQuestionLocked()
	metrics.SessionsStarted.WithLabelValues(string(cfg.Mode)).Inc()
	s.logger.Info().Str("player", name).Str("mode", string(cfg.Mode)).Int("questions", len(questions)).Msg("session started")
	s.broadcastLocked()
	return nil
}

func (s *Session) prepareRun(ctx context.Context, name string, cfg domain.SessionConfig, custom []domain.Question) ([]domain.Question, domain.Day, error) {
	day := s.svc.today()
	if cfg.Ranked() {
		ok, err := s.svc.guard.CanPlay(ctx, name, day)
		if err != nil {
			return nil, day, err
		}
		if !ok {
			return nil, day, domain.ErrDailyLimitReached
		}
	}
	questions, err := s.svc.loadQuestions(ctx, cfg, custom, day)
	if err != nil {
		return nil, day, err
	}
	return questions, day, nil
}

// SubmitAnswer resolves the live question with option (NoAnswer allowed).
// Only the first resolution of a question counts.
func (s *Session) SubmitAnswer(option int) error {
	if option < domain.NoAnswer || option >= domain.OptionCount {
		return fmt.Errorf("%w: %d", domain.ErrInvalidOption, option)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseActive:
	case domain.PhaseResolved:
		return domain.ErrAlreadyAnswered
	default:
		return fmt.Errorf("%w: answer in %s", domain.ErrInvalidTransition, s.phase)
	}
	s.resolveLocked(option)
	return nil
}

// Exit abandons the session from any phase. Nothing is persisted.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseIdle {
		s.logger.Debug().Str("phase", string(s.phase)).Msg("session exited")
	}
	s.resetLocked()
	s.cfg = domain.SessionConfig{}
	s.phase = domain.PhaseIdle
	s.broadcastLocked()
}

// State returns a snapshot of the session.
func (s *Session) State() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot on every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) beginQuestionLocked() {
	run, index := s.run, s.current
	s.phase = domain.PhaseActive
	s.selected = nil
	s.lastAwarded = 0
	s.countdown.Start(s.cfg.TimeLimit, func() {
		s.expire(run, index)
	})
}

func (s *Session) expire(run uint64, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != run || s.phase != domain.PhaseActive || s.current != index {
		return
	}
	s.resolveLocked(domain.NoAnswer)
}

// resolveLocked scores the live question and schedules the advance. An
// answer arriving after the deadline counts as no answer.
func (s *Session) resolveLocked(option int) {
	if s.countdown.Expired() {
		option = domain.NoAnswer
	}
	remaining := s.countdown.Stop()
	q := s.questions[s.current]

	selected := option
	s.selected = &selected
	correct := option != domain.NoAnswer && option == q.CorrectOptionIndex
	awarded := s.svc.scorer.Score(remaining, s.cfg.TimeLimit, correct)
	s.totalScore += awarded
	s.lastAwarded = awarded
	if correct {
		s.correct++
	}
	s.phase = domain.PhaseResolved

	outcome := "incorrect"
	switch {
	case option == domain.NoAnswer:
		outcome = "timeout"
	case correct:
		outcome = "correct"
	}
	metrics.Answers.WithLabelValues(outcome).Inc()
	s.logger.Debug().Int("question", s.current).Str("outcome", outcome).Int("awarded", awarded).Dur("remaining", remaining).Msg("question resolved")

	run, index := s.run, s.current
	s.advanceTimer = s.svc.clock.AfterFunc(s.svc.advanceDelay(s.cfg), func() {
		s.advance(run, index)
	})
	s.broadcastLocked()
}

func (s *Session) advance(run uint64, index int) {
	s.mu.Lock()
	if s.run != run || s.phase != domain.PhaseResolved || s.current != index {
		s.mu.Unlock()
		return
	}
	s.advanceTimer = nil

	if s.current+1 < len(s.questions) {
		s.current++
		s.beginQuestionLocked()
		s.broadcastLocked()
		s.mu.Unlock()
		return
	}

	s.phase = domain.PhaseFinished
	s.result = &domain.Result{
		TotalScore:     s.totalScore,
		CorrectCount:   s.correct,
		TotalQuestions: len(s.questions),
		Ranked:         s.cfg.Ranked(),
	}
	metrics.SessionsFinished.WithLabelValues(string(s.cfg.Mode)).Inc()
	s.logger.Info().Str("player", s.player).Int("score", s.totalScore).Int("correct", s.correct).Msg("session finished")
	ranked := s.cfg.Ranked()
	player, day, score := s.player, s.day, s.totalScore
	s.broadcastLocked()
	s.mu.Unlock()

	if !ranked {
		return
	}

	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), s.logger), completionTimeout)
	defer cancel()
	board, err := s.svc.complete(ctx, player, day, score)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != run || s.result == nil {
		return
	}
	s.result.Leaderboard = board
	if err != nil {
		s.result.SaveError = err.Error()
	} else {
		s.result.Saved = true
	}
	s.broadcastLocked()
}

func (s *Session) resetLocked() {
	s.run++
	s.countdown.Stop()
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	s.starting = false
	s.custom = nil
	s.player = ""
	s.day = ""
	s.questions = nil
	s.current = 0
	s.selected = nil
	s.totalScore = 0
	s.correct = 0
	s.lastAwarded = 0
	s.result = nil
	s.lastErr = ""
}

func (s *Session) broadcastLocked() domain.Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow reader: replace its oldest pending snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:      s.id,
		Phase:          s.phase,
		Mode:           s.cfg.Mode,
		Player:         s.player,
		CurrentIndex:   s.current,
		TotalQuestions: len(s.questions),
		TimeLimit:      s.cfg.TimeLimit,
		TotalScore:     s.totalScore,
		CorrectCount:   s.correct,
		LastAwarded:    s.lastAwarded,
		Error:          s.lastErr,
	}

	if (s.phase == domain.PhaseActive || s.phase == domain.PhaseResolved) && s.current < len(s.questions) {
		q := s.questions[s.current]
		view := &domain.QuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
		if s.phase == domain.PhaseResolved {
			correct := q.CorrectOptionIndex
			view.CorrectOptionIndex = &correct
			view.Explanation = q.Explanation
		}
		snap.Question = view
		snap.TimeRemaining = s.countdown.Remaining()
	}
	if s.selected != nil {
		selected := *s.selected
		snap.SelectedOptionIndex = &selected
	}
	if s.result != nil {
		result := *s.result
		result.Leaderboard = cloneEntries(s.result.Leaderboard)
		snap.Result = &result
	}
	snap.RemainingSeconds = snap.TimeRemaining.Seconds()
	snap.LimitSeconds = snap.TimeLimit.Seconds()
	return snap
}
