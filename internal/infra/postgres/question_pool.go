package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"radrush-quiz-service/internal/domain"
)

// QuestionPool loads question JSONB from Postgres. Questions handed out as a
// daily set are stamped with the day and never handed out again.
type QuestionPool struct {
	pool *pgxpool.Pool
}

func NewQuestionPool(pool *pgxpool.Pool) *QuestionPool {
	return &QuestionPool{pool: pool}
}

func (p *QuestionPool) FetchPool(ctx context.Context) ([]domain.Question, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM questions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return scanQuestions(rows)
}

func (p *QuestionPool) FetchDailyQuestions(ctx context.Context, day domain.Day, count int) ([]domain.Question, error) {
	var questions []domain.Question
	err := p.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT data FROM questions WHERE date_used = $1::date ORDER BY seq`, day.String())
		if err != nil {
			return fmt.Errorf("load daily questions: %w", err)
		}
		questions, err = scanQuestions(rows)
		if err != nil || len(questions) > 0 {
			return err
		}

		rows, err = tx.Query(ctx, `
			UPDATE questions SET used = TRUE, date_used = $1::date
			WHERE id IN (
				SELECT id FROM questions WHERE NOT used ORDER BY seq LIMIT $2 FOR UPDATE SKIP LOCKED
			)
			RETURNING data`, day.String(), count)
		if err != nil {
			return fmt.Errorf("stamp daily questions: %w", err)
		}
		questions, err = scanQuestions(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// ReplacePool swaps the whole pool in one transaction.
func (p *QuestionPool) ReplacePool(ctx context.Context, questions []domain.Question) error {
	return p.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		for _, q := range questions {
			raw, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("marshal question %s: %w", q.ID, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO questions (id, data) VALUES ($1, $2)`, q.ID, raw); err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	defer rows.Close()
	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
