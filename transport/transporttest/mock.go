// Package transporttest provides an in-memory stand-in for the backend client.
package transporttest

import (
	"context"
	"sync"

	"jarvis/transport"
)

// MockClient satisfies every consumer-side client interface (model, monitor,
// speech, cmd). Each call is counted so tests can assert that no request was made.
type MockClient struct {
	SendChatFunc         func(ctx context.Context, text, sessionID string) (*transport.ChatReply, error)
	HealthCheckFunc      func(ctx context.Context) error
	TranscribeFunc       func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error)
	TranscriptStatusFunc func(ctx context.Context, id string) (*transport.TranscriptJob, error)
	SendContactFunc      func(ctx context.Context, form transport.ContactForm) error

	mu    sync.Mutex
	calls map[string]int
}

// NewMockClient returns a mock that answers every call successfully.
func NewMockClient() *MockClient {
	m := &MockClient{calls: make(map[string]int)}
	m.SendChatFunc = func(ctx context.Context, text, sessionID string) (*transport.ChatReply, error) {
		return &transport.ChatReply{Response: "Mock response", SessionID: sessionID}, nil
	}
	m.HealthCheckFunc = func(ctx context.Context) error { return nil }
	m.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return &transport.TranscribeResult{Transcript: "mock transcript"}, nil
	}
	m.TranscriptStatusFunc = func(ctx context.Context, id string) (*transport.TranscriptJob, error) {
		return &transport.TranscriptJob{ID: id, Status: transport.JobCompleted, Transcript: "mock transcript"}, nil
	}
	m.SendContactFunc = func(ctx context.Context, form transport.ContactForm) error { return nil }
	return m
}

func (m *MockClient) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *MockClient) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// TotalCalls counts every invocation across all methods.
func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockClient) SendChat(ctx context.Context, text, sessionID string) (*transport.ChatReply, error) {
	m.record("SendChat")
	return m.SendChatFunc(ctx, text, sessionID)
}

func (m *MockClient) HealthCheck(ctx context.Context) error {
	m.record("HealthCheck")
	return m.HealthCheckFunc(ctx)
}

func (m *MockClient) Transcribe(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
	m.record("Transcribe")
	return m.TranscribeFunc(ctx, audio)
}

func (m *MockClient) TranscriptStatus(ctx context.Context, id string) (*transport.TranscriptJob, error) {
	m.record("TranscriptStatus")
	return m.TranscriptStatusFunc(ctx, id)
}

func (m *MockClient) SendContact(ctx context.Context, form transport.ContactForm) error {
	m.record("SendContact")
	return m.SendContactFunc(ctx, form)
}

// BlockingChat returns a SendChatFunc that waits for ctx to end or release to
// be closed, returning transport.ErrAborted on cancellation.
func BlockingChat(release <-chan struct{}, reply *transport.ChatReply) func(ctx context.Context, text, sessionID string) (*transport.ChatReply, error) {
	return func(ctx context.Context, text, sessionID string) (*transport.ChatReply, error) {
		select {
		case <-ctx.Done():
			return nil, transport.ErrAborted
		case <-release:
			return reply, nil
		}
	}
}
