package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"radrush-quiz-service/internal/domain"
)

// QuestionPool is an in-memory PoolSource. Questions handed out as a daily
// set are stamped with the day and not reused for later days.
type QuestionPool struct {
	mu        sync.Mutex
	questions []pooledQuestion
}

type pooledQuestion struct {
	question domain.Question
	dateUsed domain.Day
}

func NewQuestionPool(questions []domain.Question) *QuestionPool {
	p := &QuestionPool{}
	p.set(questions)
	return p
}

// LoadQuestionsFile reads a JSON array of questions.
func LoadQuestionsFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions %s: %w", path, err)
	}
	return questions, nil
}

func (p *QuestionPool) FetchPool(_ context.Context) ([]domain.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Question, 0, len(p.questions))
	for _, pq := range p.questions {
		out = append(out, pq.question)
	}
	return cloneQuestions(out), nil
}

// FetchDailyQuestions returns the questions stamped with day, stamping up to
// count unused ones if the day has none yet.
func (p *QuestionPool) FetchDailyQuestions(_ context.Context, day domain.Day, count int) ([]domain.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var daily []domain.Question
	for _, pq := range p.questions {
		if pq.dateUsed == day {
			daily = append(daily, pq.question)
		}
	}
	if len(daily) > 0 {
		return cloneQuestions(daily), nil
	}
	for i := range p.questions {
		if len(daily) >= count {
			break
		}
		if p.questions[i].dateUsed != "" {
			continue
		}
		p.questions[i].dateUsed = day
		daily = append(daily, p.questions[i].question)
	}
	return cloneQuestions(daily), nil
}

func (p *QuestionPool) ReplacePool(_ context.Context, questions []domain.Question) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(questions)
	return nil
}

func (p *QuestionPool) set(questions []domain.Question) {
	p.questions = make([]pooledQuestion, 0, len(questions))
	for _, q := range cloneQuestions(questions) {
		p.questions = append(p.questions, pooledQuestion{question: q})
	}
}
