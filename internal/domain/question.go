package domain

import (
	"fmt"
	"strings"
)

// ValidateQuestion checks the structural rules every question must satisfy
// before it may enter a session.
func ValidateQuestion(q Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: want %d options, got %d", ErrInvalidQuestion, OptionCount, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i)
		}
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= OptionCount {
		return fmt.Errorf("%w: correct option %d out of range", ErrInvalidQuestion, q.CorrectOptionIndex)
	}
	return nil
}

// FilterQuestions keeps the valid questions, dropping duplicates by id (first
// occurrence wins). It returns how many entries were rejected.
func FilterQuestions(questions []Question) ([]Question, int) {
	seen := make(map[string]struct{}, len(questions))
	valid := make([]Question, 0, len(questions))
	rejected := 0
	for _, q := range questions {
		if err := ValidateQuestion(q); err != nil {
			rejected++
			continue
		}
		if q.ID != "" {
			if _, dup := seen[q.ID]; dup {
				rejected++
				continue
			}
			seen[q.ID] = struct{}{}
		}
		valid = append(valid, q)
	}
	return valid, rejected
}
