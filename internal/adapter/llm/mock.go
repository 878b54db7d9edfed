package llm

import (
	"context"
	"fmt"

	"ragpipe/internal/port"
)

// MockCall records one Complete invocation.
type MockCall struct {
	System string
	User   string
}

// MockChat replays scripted responses in order. Useful for testing
// generation logic without network calls.
type MockChat struct {
	Responses []string
	Err       error
	Calls     []MockCall

	next int
}

var _ port.ChatModel = (*MockChat)(nil)

func (m *MockChat) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.Calls = append(m.Calls, MockCall{System: systemPrompt, User: userPrompt})

	if m.Err != nil {
		return "", m.Err
	}
	if m.next >= len(m.Responses) {
		return "", fmt.Errorf("mock chat: no scripted response for call %d", m.next+1)
	}

	resp := m.Responses[m.next]
	m.next++
	return resp, nil
}

func (m *MockChat) ModelName() string {
	return "mock"
}
