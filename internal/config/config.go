package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"radrush-quiz-service/internal/domain"
)

type Config struct {
	Env string `yaml:"env" env:"APP_ENV"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
	Server struct {
		Port           string   `yaml:"port" env:"PORT"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz        Quiz        `yaml:"quiz"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
	AI          AI          `yaml:"ai"`
}

// Quiz holds the gameplay rules.
type Quiz struct {
	PoolTTL              string `yaml:"pool_ttl" env:"QUIZ_POOL_TTL"`
	QuestionsFile        string `yaml:"questions_file" env:"QUIZ_QUESTIONS_FILE"`
	Timezone             string `yaml:"timezone" env:"QUIZ_TIMEZONE"`
	QuestionCount        int    `yaml:"question_count" env:"QUIZ_QUESTION_COUNT"`
	RankedTimeLimit      string `yaml:"ranked_time_limit" env:"QUIZ_RANKED_TIME_LIMIT"`
	PracticeTimeLimit    string `yaml:"practice_time_limit" env:"QUIZ_PRACTICE_TIME_LIMIT"`
	RankedAdvanceDelay   string `yaml:"ranked_advance_delay" env:"QUIZ_RANKED_ADVANCE_DELAY"`
	PracticeAdvanceDelay string `yaml:"practice_advance_delay" env:"QUIZ_PRACTICE_ADVANCE_DELAY"`
	BasePoints           int    `yaml:"base_points" env:"QUIZ_BASE_POINTS"`
	MaxTimeBonus         int    `yaml:"max_time_bonus" env:"QUIZ_MAX_TIME_BONUS"`
}

// Leaderboard configures the ranked board shown before anyone has played.
type Leaderboard struct {
	Seed []SeedEntry `yaml:"seed"`
}

type SeedEntry struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Score  int    `yaml:"score"`
	Avatar string `yaml:"avatar"`
}

// AI configures question generation. Generation is disabled without a key.
type AI struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model" env:"GEMINI_MODEL"`
	Timeout      string `yaml:"timeout" env:"AI_TIMEOUT"`
	MaxQuestions int    `yaml:"max_questions" env:"AI_MAX_QUESTIONS"`
}

// Default returns the configuration used when no file or env override is present.
func Default() Config {
	cfg := Config{Env: "development"}
	cfg.Log.Level = "info"
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Quiz = Quiz{
		PoolTTL:              "10m",
		QuestionsFile:        "config/questions.json",
		Timezone:             "UTC",
		QuestionCount:        10,
		RankedTimeLimit:      "20s",
		PracticeTimeLimit:    "60s",
		RankedAdvanceDelay:   "2500ms",
		PracticeAdvanceDelay: "4s",
		BasePoints:           50,
		MaxTimeBonus:         50,
	}
	cfg.AI.Model = "gemini-2.0-flash"
	cfg.AI.Timeout = "60s"
	cfg.AI.MaxQuestions = 50
	return cfg
}

// Load reads YAML config from path on top of Default, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the quiz engine cannot run with.
func (c Config) Validate() error {
	if c.Quiz.QuestionCount <= 0 {
		return fmt.Errorf("%w: quiz.question_count must be positive, got %d", domain.ErrInvalidConfig, c.Quiz.QuestionCount)
	}
	if c.Quiz.BasePoints < 0 || c.Quiz.MaxTimeBonus < 0 {
		return fmt.Errorf("%w: quiz scoring constants must not be negative", domain.ErrInvalidConfig)
	}
	if c.Quiz.BasePoints == 0 && c.Quiz.MaxTimeBonus == 0 {
		return fmt.Errorf("%w: quiz.base_points and quiz.max_time_bonus are both zero", domain.ErrInvalidConfig)
	}
	durations := []struct{ name, raw string }{
		{"quiz.ranked_time_limit", c.Quiz.RankedTimeLimit},
		{"quiz.practice_time_limit", c.Quiz.PracticeTimeLimit},
		{"quiz.ranked_advance_delay", c.Quiz.RankedAdvanceDelay},
		{"quiz.practice_advance_delay", c.Quiz.PracticeAdvanceDelay},
	}
	for _, d := range durations {
		if err := positiveDuration(d.raw); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, d.name, err)
		}
	}
	if _, err := ParseTimezoneLocation(c.Quiz.Timezone); err != nil {
		return fmt.Errorf("%w: quiz.timezone: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

func positiveDuration(raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

// SessionConfig returns the rules for mode.
func (q Quiz) SessionConfig(mode domain.Mode) domain.SessionConfig {
	limit := TTLDuration(q.PracticeTimeLimit, 60*time.Second)
	if mode == domain.ModeRanked {
		limit = TTLDuration(q.RankedTimeLimit, 20*time.Second)
	}
	return domain.SessionConfig{
		Mode:          mode,
		TimeLimit:     limit,
		QuestionCount: q.QuestionCount,
	}
}

// Location returns the reference time zone for daily limits. Invalid values
// fall back to UTC; Validate reports them at load time.
func (q Quiz) Location() *time.Location {
	loc, err := ParseTimezoneLocation(q.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SeedEntries converts the configured seed board to domain entries. Rows
// without an id get a fresh UUID.
func (l Leaderboard) SeedEntries() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(l.Seed))
	for _, s := range l.Seed {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		entries = append(entries, domain.LeaderboardEntry{
			ID:        id,
			Name:      s.Name,
			Score:     s.Score,
			AvatarRef: s.Avatar,
		})
	}
	return entries
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
