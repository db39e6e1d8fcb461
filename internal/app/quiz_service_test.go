package app_test

import (
	"context"
	"errors"
	"testing"

	"radrush-quiz-service/internal/domain"
)

func TestGenerateQuestionsRequiresGenerator(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.service.GenerateQuestions(context.Background(), "text", false); !errors.Is(err, domain.ErrGeneratorDisabled) {
		t.Fatalf("expected generator disabled, got %v", err)
	}
}

func TestGenerateQuestionsFiltersAndReplacesPool(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, questionBank(3))
	generated := questionBank(2)
	generated[1].ID = ""
	generated = append(generated, domain.Question{Prompt: "three options", Options: []string{"A", "B", "C"}})
	h.service.SetGenerator(&stubGenerator{questions: generated})

	got, err := h.service.GenerateQuestions(ctx, "kVp controls penetration.", true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid questions, got %d", len(got))
	}
	if got[1].ID == "" {
		t.Fatalf("expected generated question to get an id")
	}

	pool, _ := h.pool.FetchPool(ctx)
	if len(pool) != 2 {
		t.Fatalf("expected pool replaced with 2 questions, got %d", len(pool))
	}
}

func TestGenerateQuestionsKeepsPoolWithoutReplace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, questionBank(3))
	h.service.SetGenerator(&stubGenerator{questions: questionBank(1)})

	if _, err := h.service.GenerateQuestions(ctx, "text", false); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pool, _ := h.pool.FetchPool(ctx); len(pool) != 3 {
		t.Fatalf("expected original pool of 3, got %d", len(pool))
	}
}

func TestGenerateQuestionsRejectsEmptyBatch(t *testing.T) {
	h := newHarness(t, questionBank(3))
	h.service.SetGenerator(&stubGenerator{questions: []domain.Question{{Prompt: "bad"}}})

	if _, err := h.service.GenerateQuestions(context.Background(), "text", true); !errors.Is(err, domain.ErrEmptyPool) {
		t.Fatalf("expected empty pool error, got %v", err)
	}
	if pool, _ := h.pool.FetchPool(context.Background()); len(pool) != 3 {
		t.Fatalf("failed generation must not replace the pool")
	}
}

func TestGenerateQuestionsOneAtATime(t *testing.T) {
	h := newHarness(t, nil)
	gen := &stubGenerator{
		questions: questionBank(1),
		started:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	h.service.SetGenerator(gen)

	done := make(chan error, 1)
	go func() {
		_, err := h.service.GenerateQuestions(context.Background(), "first", false)
		done <- err
	}()
	<-gen.started

	if _, err := h.service.GenerateQuestions(context.Background(), "second", false); !errors.Is(err, domain.ErrGenerationInProgress) {
		t.Fatalf("expected generation in progress, got %v", err)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("first generation: %v", err)
	}
	if _, err := h.service.GenerateQuestions(context.Background(), "third", false); err != nil {
		t.Fatalf("expected generation allowed after the first finished, got %v", err)
	}
}

func TestSessionLookup(t *testing.T) {
	h := newHarness(t, nil)
	session := h.service.NewSession()

	got, err := h.service.Session(session.ID())
	if err != nil || got != session {
		t.Fatalf("expected registered session, got %v", err)
	}
	h.service.CloseSession(session.ID())
	if _, err := h.service.Session(session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found after close, got %v", err)
	}
}

type stubGenerator struct {
	questions []domain.Question
	err       error
	started   chan struct{}
	release   chan struct{}
}

func (g *stubGenerator) Generate(ctx context.Context, _ string) ([]domain.Question, error) {
	if g.started != nil {
		select {
		case g.started <- struct{}{}:
		default:
		}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.questions, g.err
}
