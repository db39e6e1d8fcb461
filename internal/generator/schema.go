package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"radrush-quiz-service/internal/domain"
)

// questionSchema describes one generated entry. The batch itself is a JSON
// array; entries are validated one by one so a single bad entry does not
// sink the batch.
var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question": map[string]any{"type": "string", "minLength": 1},
		"options": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string", "minLength": 1},
			"minItems": domain.OptionCount,
			"maxItems": domain.OptionCount,
		},
		"correctAnswer": map[string]any{"type": "integer", "minimum": 0, "maximum": domain.OptionCount - 1},
		"explanation":   map[string]any{"type": "string"},
	},
	"required": []any{"question", "options", "correctAnswer"},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func itemSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a plain decoded JSON value, not Go ints.
		raw, err := json.Marshal(questionSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(raw, &def); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://question.json"
		if err := c.AddResource(url, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// ParseBatch decodes a model reply into questions. Entries that fail the
// schema are dropped and counted; a reply with no valid entry is an error.
func ParseBatch(reply string) ([]domain.Question, int, error) {
	content := json.RawMessage(stripFences(reply))

	var entries []json.RawMessage
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, 0, &ValidationError{Content: content, Err: fmt.Errorf("expected a JSON array: %w", err)}
	}

	schema, err := itemSchema()
	if err != nil {
		return nil, 0, &ValidationError{Content: content, Err: err}
	}

	questions := make([]domain.Question, 0, len(entries))
	rejected := 0
	for _, entry := range entries {
		var parsed any
		if err := json.Unmarshal(entry, &parsed); err != nil {
			rejected++
			continue
		}
		if err := schema.Validate(parsed); err != nil {
			rejected++
			continue
		}
		var q domain.Question
		if err := json.Unmarshal(entry, &q); err != nil {
			rejected++
			continue
		}
		q.ID = ""
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, rejected, &ValidationError{Content: content, Err: errors.New("no entry matched the question schema")}
	}
	return questions, rejected, nil
}

// stripFences removes a Markdown code fence around the reply, if any.
func stripFences(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
