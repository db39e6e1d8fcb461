package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("operation not allowed in current session phase")
	// ErrAlreadyAnswered is returned when the current question has already been resolved.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrEmptyPlayerName rejects a start without a usable player name.
	ErrEmptyPlayerName = errors.New("player name is required")
	// ErrDailyLimitReached blocks a second ranked run on the same day.
	ErrDailyLimitReached = errors.New("ranked challenge already completed today")
	// ErrEmptyPool indicates there are no usable questions to start a session with.
	ErrEmptyPool = errors.New("no questions available")
	// ErrInvalidOption indicates a selected option index is out of range.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrUnknownMode indicates an unsupported session mode.
	ErrUnknownMode = errors.New("unknown session mode")
	// ErrInvalidQuestion indicates a question failed structural validation.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrScoreNotSaved indicates the leaderboard or play history could not be persisted.
	ErrScoreNotSaved = errors.New("score not saved")
	// ErrGenerationInProgress rejects a question generation while another is running.
	ErrGenerationInProgress = errors.New("question generation already in progress")
	// ErrEmptyDocument rejects generation from blank text.
	ErrEmptyDocument = errors.New("document text is empty")
	// ErrGeneratorDisabled is returned when no question generator is configured.
	ErrGeneratorDisabled = errors.New("question generation is not configured")
	// ErrInvalidConfig rejects session rules that cannot be played.
	ErrInvalidConfig = errors.New("invalid session config")
)
