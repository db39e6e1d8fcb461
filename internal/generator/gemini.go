package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"radrush-quiz-service/internal/domain"
)

// Config configures the Gemini generator.
type Config struct {
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxQuestions int
}

// Gemini generates multiple-choice questions from document text with the
// Gemini API, asking for structured JSON output.
type Gemini struct {
	client       *genai.Client
	model        string
	timeout      time.Duration
	maxQuestions int
	logger       zerolog.Logger
}

func NewGemini(ctx context.Context, cfg Config, logger zerolog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 50
	}
	return &Gemini{
		client:       client,
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		maxQuestions: cfg.MaxQuestions,
		logger:       logger.With().Str("component", "generator").Str("model", cfg.Model).Logger(),
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, documentText string) ([]domain.Question, error) {
	text := strings.TrimSpace(documentText)
	if text == "" {
		return nil, domain.ErrEmptyDocument
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   batchSchema(),
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: userPrompt(text, g.maxQuestions)}},
	}}

	started := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	questions, rejected, err := ParseBatch(result.Text())
	if err != nil {
		return nil, err
	}
	g.logger.Info().
		Int("questions", len(questions)).
		Int("rejected", rejected).
		Dur("took", time.Since(started)).
		Msg("generated questions")
	return questions, nil
}

const systemPrompt = "You write multiple-choice exam questions for medical imaging technicians. " +
	"Every question has exactly four distinct options and exactly one correct answer. " +
	"Questions must be answerable from the supplied document alone and must not repeat."

func userPrompt(text string, count int) string {
	return fmt.Sprintf("Document:\n%s\n\nWrite %d questions. Reply with a JSON array of objects "+
		`{"question": "...", "options": ["A", "B", "C", "D"], "correctAnswer": 0, "explanation": "..."}`+
		" where correctAnswer is the zero-based index of the correct option.", text, count)
}

func batchSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question":      {Type: genai.TypeString},
				"options":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"correctAnswer": {Type: genai.TypeInteger},
				"explanation":   {Type: genai.TypeString},
			},
			Required: []string{"question", "options", "correctAnswer"},
		},
	}
}

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
		return fmt.Errorf("gemini rejected request: %w", err)
	}
	return &UnavailableError{Err: err}
}
