package ai

import (
	"context"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Err          error
}

// MockProvider is a deterministic Provider for tests. It returns canned
// responses in FIFO order and records every request. When the queue runs
// dry the last response is repeated.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	last      *MockResponse
	Calls     []CompletionRequest
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewMockText creates a MockProvider that always answers with content.
func NewMockText(content string) *MockProvider {
	return NewMockProvider(MockResponse{Content: content, InputTokens: 10, OutputTokens: len(content)})
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	var resp MockResponse
	switch {
	case len(m.responses) > 0:
		resp = m.responses[0]
		m.responses = m.responses[1:]
		m.last = &resp
	case m.last != nil:
		resp = *m.last
	default:
		return CompletionResponse{}, &ErrProviderUnavailable{Provider: "mock"}
	}

	if resp.Err != nil {
		return CompletionResponse{}, resp.Err
	}
	return CompletionResponse{
		Content:      resp.Content,
		Model:        "mock",
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string { return "mock" }

// CallCount returns the number of Complete calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastRequest returns the most recent request, or nil before the first call.
func (m *MockProvider) LastRequest() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	req := m.Calls[len(m.Calls)-1]
	return &req
}
