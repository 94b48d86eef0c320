package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/bilgisen/illustrate/internal/errs"
)

// MockModel replays scripted replies in order and records every prompt, for tests.
// A reply with a non-nil Err fails that call.
type MockModel struct {
	mu      sync.Mutex
	replies []MockReply
	prompts []string
}

type MockReply struct {
	Text string
	Err  error
}

func NewMockModel(replies ...MockReply) *MockModel {
	return &MockModel{replies: replies}
}

// Reply is shorthand for a successful MockReply.
func Reply(text string) MockReply {
	return MockReply{Text: text}
}

// Push appends replies to the script.
func (m *MockModel) Push(replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

func (m *MockModel) Complete(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, req.Prompt)
	if len(m.replies) == 0 {
		return "", fmt.Errorf("mock: no scripted reply: %w", errs.ErrModelCall)
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	if next.Err != nil {
		return "", next.Err
	}
	return next.Text, nil
}

// Prompts returns the prompts received so far.
func (m *MockModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls is the number of Complete calls received.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
