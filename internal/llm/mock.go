package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// CannedResult is one scripted response for the MockClient.
type CannedResult struct {
	Content json.RawMessage
	Err     error
}

// MockClient is a deterministic Client for tests. It returns canned
// responses in FIFO order and records every request it sees.
type MockClient struct {
	mu       sync.Mutex
	queue    []CannedResult
	Requests []Request
}

func NewMockClient(canned ...CannedResult) *MockClient {
	return &MockClient{queue: canned}
}

func (m *MockClient) Complete(_ context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.queue) == 0 {
		return nil, &UnavailableError{}
	}
	next := m.queue[0]
	m.queue = m.queue[1:]

	if next.Err != nil {
		return nil, next.Err
	}
	return &Result{Content: next.Content, Model: "mock"}, nil
}

func (m *MockClient) Model() string { return "mock" }

// Enqueue appends a canned response.
func (m *MockClient) Enqueue(r CannedResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, r)
}

// CallCount returns how many Complete calls were made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
