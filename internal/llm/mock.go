package llm

import (
	"context"

	"advisor/internal/domain"
)

// Mock is a scripted Generator for tests. It replays Replies in order
// (repeating the last one) or returns Err on every call when set.
// With Echo set the raw backend output includes the prompt, exercising
// the gateway's prefix stripping.
type Mock struct {
	Replies []string
	Err     error
	Echo    bool

	Calls   []string
	Options []domain.GenerateOptions
}

// NewMock creates a mock that always answers with reply.
func NewMock(reply string) *Mock {
	return &Mock{Replies: []string{reply}}
}

func (m *Mock) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	m.Calls = append(m.Calls, prompt)
	m.Options = append(m.Options, opts)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return FallbackAnswer, nil
	}
	idx := len(m.Calls) - 1
	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}
	raw := m.Replies[idx]
	if m.Echo {
		raw = prompt + " " + raw
	}
	return finalize(prompt, raw), nil
}
