// Package provider defines the LLM provider interface used by the
// orchestration loop, plus an OpenAI-compatible implementation and a mock
// for tests.
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// Message represents a chat message.
type Message struct {
	Role       string
	Content    string
	Reasoning  string     // model reasoning/thinking content (optional)
	ToolCalls  []ToolCall // for assistant messages with tool calls
	ToolCallID string     // for tool result messages
	CreatedAt  time.Time
}

// Tool represents a tool/function definition for the LLM.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ToolCall represents a tool call made by the LLM.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// EventType discriminates stream events.
type EventType int

const (
	EventContentDelta EventType = iota
	EventReasoningDelta
	EventToolCallBegin
	EventToolCallDelta
	EventUsage
	EventError
	EventDone
)

// StreamEvent is one unit of a streamed chat completion.
type StreamEvent struct {
	Type          EventType
	Content       string
	ToolCallIndex int
	ToolCallID    string
	ToolCallName  string
	ToolCallArgs  string
	InputTokens   int
	OutputTokens  int
	Err           error
}

// Provider is a streaming chat backend.
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// ChatStream sends messages with available tools and returns a channel
	// of stream events. The channel is closed when the stream ends.
	ChatStream(ctx context.Context, messages []Message, tools []Tool) (<-chan StreamEvent, error)

	// Close closes idle connections and cleans up resources.
	Close() error
}
