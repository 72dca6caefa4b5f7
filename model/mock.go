package model

import (
	"context"
	"sync"
	"time"
)

// MockChatModel is a test implementation of ChatModel.
//
// It returns scripted responses in order, can inject errors globally or for
// specific calls, can simulate a slow provider, and records every invocation
// so tests can assert on prompts and call counts.
//
// Example:
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{{Text: `[]`}},
//	    ErrOn:     map[int]error{2: errors.New("boom")}, // second call fails
//	}
type MockChatModel struct {
	// Responses is the sequence of responses to return. When the sequence
	// is exhausted the last response repeats.
	Responses []ChatOut

	// Err, if set, is returned by every call instead of a response.
	Err error

	// ErrOn maps 1-based call numbers to errors, for scripting failures on
	// specific calls only.
	ErrOn map[int]error

	// Delay makes each call sleep before responding, honoring context
	// cancellation. Used to exercise deadline handling.
	Delay time.Duration

	// Calls records every invocation.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records a single Chat invocation.
type MockChatCall struct {
	Messages []Message
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ChatOut{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages})
	call := len(m.Calls)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if err, ok := m.ErrOn[call]; ok {
		return ChatOut{}, err
	}

	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears the call history and response cursor so the mock can be
// reused across test cases.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Chat has been called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
