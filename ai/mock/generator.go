package mock

import (
	"context"
	"sync"

	"github.com/poiesic/vidchat/ai"
)

// DefaultResponse is what MockGenerator returns without injected behavior.
const DefaultResponse = "mock response"

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, req ai.GenerateRequest) (string, error)

	mu       sync.Mutex
	requests []ai.GenerateRequest
}

// NewMockGenerator creates a generator that returns DefaultResponse.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records req and returns the injected or default response.
func (m *MockGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return DefaultResponse, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request seen so far.
func (m *MockGenerator) Requests() []ai.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.GenerateRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockGenerator) LastRequest() ai.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ai.GenerateRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.GenerateFunc = nil
}
