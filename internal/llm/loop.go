// Package llm implements the orchestration loop that turns a user message
// into a sequence of draft edit commands via tool calling.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xonecas/drafter/internal/provider"
)

// MessageCallback is called when a complete message should be added to history.
type MessageCallback func(msg provider.Message)

// DeltaCallback is called for each streaming event (content/reasoning deltas).
type DeltaCallback func(evt provider.StreamEvent)

// ProcessTurnOptions holds configuration for processing a turn.
type ProcessTurnOptions struct {
	Provider      provider.Provider
	Dispatcher    *Dispatcher
	History       []provider.Message
	OnMessage     MessageCallback
	OnDelta       DeltaCallback // optional: called for each stream event
	MaxToolRounds int
}

// ProcessTurn handles one conversation turn, which may involve several
// rounds of tool calls against the draft buffer. Edits are applied strictly
// in call order; the buffer is never touched concurrently.
func ProcessTurn(ctx context.Context, opts ProcessTurnOptions) error {
	if opts.MaxToolRounds == 0 {
		opts.MaxToolRounds = 20
	}
	tools := Tools()
	history := opts.History

	for round := 0; round < opts.MaxToolRounds; round++ {
		stream, err := opts.Provider.ChatStream(ctx, history, tools)
		if err != nil {
			return fmt.Errorf("LLM call failed: %w", err)
		}

		resp, err := collectWithDeltas(stream, opts.OnDelta)
		if err != nil {
			return fmt.Errorf("LLM stream failed: %w", err)
		}

		assistantMsg := provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			Reasoning: resp.Reasoning,
			ToolCalls: resp.ToolCalls,
			CreatedAt: time.Now(),
		}
		if opts.OnMessage != nil {
			opts.OnMessage(assistantMsg)
		}
		history = append(history, assistantMsg)

		if len(resp.ToolCalls) == 0 {
			return nil
		}

		for _, call := range resp.ToolCalls {
			reply := opts.Dispatcher.Apply(call)
			toolMsg := provider.Message{
				Role:       "tool",
				Content:    reply,
				ToolCallID: call.ID,
				CreatedAt:  time.Now(),
			}
			if opts.OnMessage != nil {
				opts.OnMessage(toolMsg)
			}
			history = append(history, toolMsg)
		}
	}

	return fmt.Errorf("turn exceeded %d tool rounds", opts.MaxToolRounds)
}

type collected struct {
	Content   string
	Reasoning string
	ToolCalls []provider.ToolCall
}

// collectWithDeltas drains the stream, forwarding each event to onDelta and
// accumulating the complete response. Tool call arguments arrive as
// fragments keyed by index and are reassembled here.
func collectWithDeltas(stream <-chan provider.StreamEvent, onDelta DeltaCallback) (collected, error) {
	var c collected
	var content, reasoning strings.Builder

	type partialCall struct {
		id   string
		name string
		args strings.Builder
	}
	parts := make(map[int]*partialCall)

	partFor := func(idx int) *partialCall {
		p, ok := parts[idx]
		if !ok {
			p = &partialCall{}
			parts[idx] = p
		}
		return p
	}

	for evt := range stream {
		if onDelta != nil {
			onDelta(evt)
		}
		switch evt.Type {
		case provider.EventContentDelta:
			content.WriteString(evt.Content)
		case provider.EventReasoningDelta:
			reasoning.WriteString(evt.Content)
		case provider.EventToolCallBegin:
			p := partFor(evt.ToolCallIndex)
			p.id = evt.ToolCallID
			p.name = evt.ToolCallName
		case provider.EventToolCallDelta:
			partFor(evt.ToolCallIndex).args.WriteString(evt.ToolCallArgs)
		case provider.EventError:
			return c, evt.Err
		}
	}

	c.Content = content.String()
	c.Reasoning = reasoning.String()

	indexes := make([]int, 0, len(parts))
	for idx := range parts {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)
	for _, idx := range indexes {
		p := parts[idx]
		args := p.args.String()
		if args == "" {
			args = "{}"
		}
		c.ToolCalls = append(c.ToolCalls, provider.ToolCall{
			ID:        p.id,
			Name:      p.name,
			Arguments: json.RawMessage(args),
		})
	}
	return c, nil
}
