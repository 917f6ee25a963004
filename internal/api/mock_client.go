package api

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a scripted Client for tests and offline runs
type MockClient struct {
	// Mock return values
	Response  string
	Chunks    []string // streamed pieces; Response is used when empty
	Err       error    // returned before any chunk
	StreamErr error    // returned after all chunks were delivered
	Title     string
	TitleErr  error
	PanicWith any // panics inside SendOnce/SendStream when set

	// Call recorders
	mu          sync.Mutex
	OnceCalls   []Request
	StreamCalls []Request
	TitleCalls  []Request
	sends       []Request
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) SendOnce(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.OnceCalls = append(m.OnceCalls, req)
	m.sends = append(m.sends, req)
	m.mu.Unlock()

	if m.PanicWith != nil {
		panic(m.PanicWith)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response == "" && len(m.Chunks) > 0 {
		return strings.Join(m.Chunks, ""), nil
	}
	return m.Response, nil
}

func (m *MockClient) SendStream(ctx context.Context, req Request, onChunk func(string)) error {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, req)
	m.sends = append(m.sends, req)
	m.mu.Unlock()

	if m.PanicWith != nil {
		panic(m.PanicWith)
	}
	if m.Err != nil {
		return m.Err
	}

	chunks := m.Chunks
	if len(chunks) == 0 && m.Response != "" {
		chunks = []string{m.Response}
	}
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return Classify(err)
		}
		onChunk(c)
	}
	return m.StreamErr
}

func (m *MockClient) GenerateTitle(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.TitleCalls = append(m.TitleCalls, req)
	m.mu.Unlock()

	if m.TitleErr != nil {
		return "", m.TitleErr
	}
	return m.Title, nil
}

// Calls returns how many sends of each kind were made.
func (m *MockClient) Calls() (once, stream, title int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.OnceCalls), len(m.StreamCalls), len(m.TitleCalls)
}

// LastRequest returns the most recent SendOnce or SendStream request.
func (m *MockClient) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		return Request{}, false
	}
	return m.sends[len(m.sends)-1], true
}
