package domain

import (
	"fmt"
	"time"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// NoAnswer is the selection recorded when the countdown expires.
const NoAnswer = -1

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	ID                 string   `json:"id"`
	Prompt             string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctAnswer"`
	Explanation        string   `json:"explanation"`
}

// Mode selects the rules a session runs under.
type Mode string

const (
	ModeRanked   Mode = "ranked"
	ModePractice Mode = "practice"
)

// ParseMode accepts the mode names used by clients, including the legacy aliases.
func ParseMode(raw string) (Mode, error) {
	switch raw {
	case "ranked", "challenge", "RANKED", "CHALLENGE":
		return ModeRanked, nil
	case "practice", "training", "PRACTICE", "TRAINING":
		return ModePractice, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
}

// SessionConfig fixes the rules of one run.
type SessionConfig struct {
	Mode          Mode
	TimeLimit     time.Duration
	QuestionCount int
}

// Ranked reports whether the run counts towards the leaderboard.
func (c SessionConfig) Ranked() bool {
	return c.Mode == ModeRanked
}

// Phase is the state of the session state machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAwaitingName Phase = "awaiting_name"
	PhaseActive       Phase = "active"
	PhaseResolved     Phase = "resolved"
	PhaseFinished     Phase = "finished"
)

// QuestionView is what a player sees of the live question. The correct
// option and explanation are only filled once the question is resolved.
type QuestionView struct {
	ID                 string   `json:"id"`
	Prompt             string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex *int     `json:"correctAnswer,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

// Result summarizes a finished run.
type Result struct {
	TotalScore     int    `json:"totalScore"`
	CorrectCount   int    `json:"correctCount"`
	TotalQuestions int    `json:"totalQuestions"`
	Ranked         bool   `json:"ranked"`
	Saved          bool   `json:"saved"`
	SaveError      string `json:"saveError,omitempty"`
	// Leaderboard is the board after a saved ranked run, with the player's
	// entry flagged as the current user.
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// Snapshot is a read-only view of a session at one instant.
type Snapshot struct {
	SessionID           string        `json:"sessionId"`
	Phase               Phase         `json:"phase"`
	Mode                Mode          `json:"mode,omitempty"`
	Player              string        `json:"player,omitempty"`
	CurrentIndex        int           `json:"currentIndex"`
	TotalQuestions      int           `json:"totalQuestions"`
	Question            *QuestionView `json:"currentQuestion,omitempty"`
	SelectedOptionIndex *int          `json:"selectedOption,omitempty"`
	TimeRemaining       time.Duration `json:"-"`
	TimeLimit           time.Duration `json:"-"`
	RemainingSeconds    float64       `json:"timeRemaining"`
	LimitSeconds        float64       `json:"timeLimit"`
	TotalScore          int           `json:"totalScore"`
	CorrectCount        int           `json:"correctCount"`
	LastAwarded         int           `json:"lastAwarded"`
	Result              *Result       `json:"result,omitempty"`
	Error               string        `json:"error,omitempty"`
}

// LeaderboardEntry is one ranked player. Name uniqueness is by NormalizeName.
type LeaderboardEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	AvatarRef     string `json:"avatar"`
	IsCurrentUser bool   `json:"isCurrentUser,omitempty"`
}

// PlayHistory maps a normalized player name to the day of their last ranked run.
type PlayHistory map[string]Day
