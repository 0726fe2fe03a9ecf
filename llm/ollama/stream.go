package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aschepis/switchboard/llm"
	"github.com/ollama/ollama/api"
)

// chatFunc matches api.Client.Chat so tests can drive the stream with a
// scripted chunk source.
type chatFunc func(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error

// ollamaStream implements the llm.Stream interface for Ollama streaming responses.
type ollamaStream struct {
	ctx     context.Context
	chat    chatFunc
	req     *api.ChatRequest
	events  []*llm.StreamEvent
	current int
	mu      sync.Mutex
	cond    *sync.Cond // Condition variable to wait for events
	err     error
	done    bool
	started bool
}

// newOllamaStream creates a new ollamaStream.
func newOllamaStream(ctx context.Context, chat chatFunc, req *api.ChatRequest) *ollamaStream {
	stream := &ollamaStream{
		ctx:     ctx,
		chat:    chat,
		req:     req,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
	}
	stream.cond = sync.NewCond(&stream.mu)
	return stream
}

// Next advances to the next event in the stream.
func (s *ollamaStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// If we haven't started, start the stream in a goroutine
	if !s.started {
		s.started = true
		go s.startStream()
	}

	// Move to next event
	s.current++

	// Wait for events to be available if we've consumed all current events
	// and the stream isn't done yet
	for s.current >= len(s.events) && !s.done && s.err == nil {
		s.cond.Wait()
	}

	if s.err != nil {
		return false
	}
	if s.done && s.current >= len(s.events) {
		return false
	}

	return s.current < len(s.events)
}

// Event returns the current event.
func (s *ollamaStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *ollamaStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the stream and releases resources.
func (s *ollamaStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	return nil
}

// startStream starts the streaming request and processes responses.
func (s *ollamaStream) startStream() {
	s.mu.Lock()
	s.events = append(s.events, &llm.StreamEvent{
		Type: llm.StreamEventTypeStart,
	})
	s.cond.Broadcast()
	s.mu.Unlock()

	// Ollama sends incremental deltas (new tokens), not cumulative content
	var currentToolCall *llm.ToolUseBlock
	isFirstContentBlock := true

	err := s.chat(s.ctx, s.req, func(resp api.ChatResponse) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.done {
			return nil
		}

		if delta := resp.Message.Content; delta != "" {
			eventType := llm.StreamEventTypeContentDelta
			if isFirstContentBlock {
				eventType = llm.StreamEventTypeContentBlock
				isFirstContentBlock = false
			}
			s.events = append(s.events, &llm.StreamEvent{
				Type: eventType,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeText,
					Text: delta,
				},
			})
			s.cond.Broadcast()
		}

		for _, toolCall := range resp.Message.ToolCalls {
			if currentToolCall == nil || currentToolCall.Name != toolCall.Function.Name {
				currentToolCall = &llm.ToolUseBlock{
					ID:    fmt.Sprintf("tool_%s_%d", toolCall.Function.Name, len(s.events)),
					Name:  toolCall.Function.Name,
					Input: make(map[string]interface{}),
				}

				s.events = append(s.events, &llm.StreamEvent{
					Type: llm.StreamEventTypeContentBlock,
					Delta: &llm.StreamDelta{
						Type:    llm.StreamDeltaTypeToolUse,
						ToolUse: currentToolCall,
					},
				})
				s.cond.Broadcast()
			}

			// Arguments arrive as incremental map updates, merge them in
			if len(toolCall.Function.Arguments) > 0 {
				for k, v := range toolCall.Function.Arguments {
					currentToolCall.Input[k] = v
				}

				if argsBytes, err := json.Marshal(currentToolCall.Input); err == nil {
					s.events = append(s.events, &llm.StreamEvent{
						Type: llm.StreamEventTypeContentDelta,
						Delta: &llm.StreamDelta{
							Type:      llm.StreamDeltaTypeToolInput,
							ToolInput: string(argsBytes),
						},
					})
					s.cond.Broadcast()
				}
			}
		}

		if resp.Done {
			usage := &llm.Usage{
				InputTokens:  int64(resp.PromptEvalCount),
				OutputTokens: int64(resp.EvalCount),
			}
			finishReason := fromDoneReason(resp.DoneReason, currentToolCall != nil)

			s.events = append(s.events, &llm.StreamEvent{
				Type:         llm.StreamEventTypeMessageDelta,
				Usage:        usage,
				FinishReason: finishReason,
			})
			s.cond.Broadcast()

			s.events = append(s.events, &llm.StreamEvent{
				Type:         llm.StreamEventTypeStop,
				Usage:        usage,
				FinishReason: finishReason,
				Done:         true,
			})

			s.done = true
			s.cond.Broadcast()
		}

		return nil
	})

	s.mu.Lock()
	if err != nil && !s.done {
		s.err = err
	}
	// Mark done even when the callback ended without a final chunk so
	// consumers unblock
	s.done = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

var _ llm.Stream = (*ollamaStream)(nil)
