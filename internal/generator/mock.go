package generator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"radrush-quiz-service/internal/domain"
)

// MockReply is a canned reply for Mock: raw model text or an error.
type MockReply struct {
	Text string
	Err  error
}

// Mock is a deterministic generator for tests and offline runs. Replies are
// consumed in FIFO order and every document is recorded.
type Mock struct {
	mu      sync.Mutex
	replies []MockReply
	Calls   []string
}

func NewMock(replies ...MockReply) *Mock {
	return &Mock{replies: replies}
}

func (m *Mock) Generate(_ context.Context, documentText string) ([]domain.Question, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, domain.ErrEmptyDocument
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, documentText)
	if len(m.replies) == 0 {
		m.mu.Unlock()
		return nil, &UnavailableError{Err: errors.New("no canned reply")}
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	if reply.Err != nil {
		return nil, reply.Err
	}
	questions, _, err := ParseBatch(reply.Text)
	return questions, err
}

// CallCount returns the number of Generate calls made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
