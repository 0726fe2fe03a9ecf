package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/aschepis/switchboard/llm"
	openai "github.com/sashabaranov/go-openai"
)

// chatStream is the subset of the SDK stream the wrapper consumes.
type chatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// openaiStream implements the llm.Stream interface for OpenAI streaming
// responses. Chunks are converted to neutral events as they arrive from the
// SDK, so consumers see deltas before the response is complete.
type openaiStream struct {
	ctx     context.Context
	stream  chatStream
	events  []*llm.StreamEvent
	current int
	mu      sync.Mutex
	cond    *sync.Cond
	err     error
	done    bool
	started bool
}

// newOpenAIStream creates a new openaiStream.
func newOpenAIStream(ctx context.Context, stream chatStream) *openaiStream {
	s := &openaiStream{
		ctx:     ctx,
		stream:  stream,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Next advances to the next event in the stream.
func (s *openaiStream) Next() bool {
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
func (s *openaiStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *openaiStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the stream and releases resources.
func (s *openaiStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}

// startStream reads SDK chunks and buffers neutral events as they arrive.
func (s *openaiStream) startStream() {
	s.mu.Lock()
	s.events = append(s.events, &llm.StreamEvent{
		Type: llm.StreamEventTypeStart,
	})
	s.cond.Broadcast()
	s.mu.Unlock()

	var currentToolCall *llm.ToolUseBlock
	var toolInputBuilder strings.Builder
	var usage *llm.Usage
	finishReason := llm.FinishReason("")

	finishToolCall := func() {
		if currentToolCall == nil {
			return
		}
		input := make(map[string]interface{})
		if toolInputBuilder.Len() > 0 {
			if err := json.Unmarshal([]byte(toolInputBuilder.String()), &input); err != nil {
				input = make(map[string]interface{})
			}
		}
		currentToolCall.Input = input
		toolInputBuilder.Reset()
		currentToolCall = nil
	}

	for {
		response, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.mu.Lock()
			if !s.done {
				s.err = err
			}
			s.done = true
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}

		s.mu.Lock()

		if s.done {
			// Consumer closed early, stop pushing events
			s.mu.Unlock()
			return
		}

		// Usage arrives on the final chunk when stream options request it
		if response.Usage != nil {
			usage = fromUsage(*response.Usage)
		}

		if len(response.Choices) == 0 {
			s.mu.Unlock()
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.Content != "" {
			s.events = append(s.events, &llm.StreamEvent{
				Type: llm.StreamEventTypeContentDelta,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeText,
					Text: choice.Delta.Content,
				},
			})
			s.cond.Broadcast()
		}

		for _, toolCallDelta := range choice.Delta.ToolCalls {
			// A populated ID means a new tool call is starting
			if toolCallDelta.ID != "" && (currentToolCall == nil || currentToolCall.ID != toolCallDelta.ID) {
				finishToolCall()
				currentToolCall = &llm.ToolUseBlock{
					ID:    toolCallDelta.ID,
					Name:  toolCallDelta.Function.Name,
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

			if toolCallDelta.Function.Arguments != "" {
				toolInputBuilder.WriteString(toolCallDelta.Function.Arguments)
				s.events = append(s.events, &llm.StreamEvent{
					Type: llm.StreamEventTypeContentDelta,
					Delta: &llm.StreamDelta{
						Type:      llm.StreamDeltaTypeToolInput,
						ToolInput: toolCallDelta.Function.Arguments,
					},
				})
				s.cond.Broadcast()
			}
		}

		if choice.FinishReason != "" {
			finishToolCall()
			finishReason = fromFinishReason(choice.FinishReason)
		}

		s.mu.Unlock()
	}

	s.mu.Lock()
	if !s.done {
		finishToolCall()
		s.events = append(s.events, &llm.StreamEvent{
			Type:         llm.StreamEventTypeMessageDelta,
			Usage:        usage,
			FinishReason: finishReason,
		}, &llm.StreamEvent{
			Type:         llm.StreamEventTypeStop,
			Usage:        usage,
			FinishReason: finishReason,
			Done:         true,
		})
		s.done = true
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

var _ llm.Stream = (*openaiStream)(nil)
