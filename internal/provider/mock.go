package provider

import (
	"context"
	"sync"
)

// MockResponse is one scripted assistant turn.
type MockResponse struct {
	Content   string
	Reasoning string
	ToolCalls []ToolCall
}

// MockProvider replays scripted responses, one per ChatStream call. When
// the script runs out it keeps returning the last response (or an empty
// one). Safe for concurrent use.
type MockProvider struct {
	mu sync.Mutex

	name      string
	script    []MockResponse
	calls     int
	streamErr error

	// Requests records the message history passed to each ChatStream call.
	Requests [][]Message
}

// NewMock creates a mock provider that replays the given responses.
func NewMock(name string, script ...MockResponse) *MockProvider {
	return &MockProvider{name: name, script: script}
}

// WithStreamError makes ChatStream fail with err.
func (p *MockProvider) WithStreamError(err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamErr = err
	return p
}

// Calls returns how many times ChatStream was invoked.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) ChatStream(ctx context.Context, messages []Message, tools []Tool) (<-chan StreamEvent, error) {
	p.mu.Lock()
	if p.streamErr != nil {
		err := p.streamErr
		p.mu.Unlock()
		return nil, err
	}
	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	p.Requests = append(p.Requests, snapshot)

	var resp MockResponse
	if len(p.script) > 0 {
		idx := p.calls
		if idx >= len(p.script) {
			idx = len(p.script) - 1
		}
		resp = p.script[idx]
	}
	p.calls++
	p.mu.Unlock()

	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		if resp.Reasoning != "" {
			if !trySend(ctx, ch, StreamEvent{Type: EventReasoningDelta, Content: resp.Reasoning}) {
				return
			}
		}
		if resp.Content != "" {
			if !trySend(ctx, ch, StreamEvent{Type: EventContentDelta, Content: resp.Content}) {
				return
			}
		}
		for i, tc := range resp.ToolCalls {
			if !trySend(ctx, ch, StreamEvent{
				Type: EventToolCallBegin, ToolCallIndex: i,
				ToolCallID: tc.ID, ToolCallName: tc.Name,
			}) {
				return
			}
			if len(tc.Arguments) > 0 {
				if !trySend(ctx, ch, StreamEvent{
					Type: EventToolCallDelta, ToolCallIndex: i,
					ToolCallArgs: string(tc.Arguments),
				}) {
					return
				}
			}
		}
		trySend(ctx, ch, StreamEvent{Type: EventDone})
	}()
	return ch, nil
}

func (p *MockProvider) Close() error { return nil }
