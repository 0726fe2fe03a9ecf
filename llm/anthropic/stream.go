package anthropic

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/aschepis/switchboard/llm"
	"github.com/rs/zerolog"
)

// anthropicStream implements the llm.Stream interface for Anthropic streaming responses.
type anthropicStream struct {
	ctx     context.Context
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	events  []*llm.StreamEvent
	current int
	mu      sync.Mutex
	cond    *sync.Cond // Condition variable to wait for events
	err     error
	done    bool
	started bool
	logger  zerolog.Logger
}

// newAnthropicStream creates a new anthropicStream.
func newAnthropicStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], logger zerolog.Logger) *anthropicStream {
	as := &anthropicStream{
		ctx:     ctx,
		stream:  stream,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
		logger:  logger,
	}
	as.cond = sync.NewCond(&as.mu)
	return as
}

// Next advances to the next event in the stream.
func (s *anthropicStream) Next() bool {
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
func (s *anthropicStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *anthropicStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the stream and releases resources.
func (s *anthropicStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}

// startStream starts the streaming request and processes responses.
func (s *anthropicStream) startStream() {
	// Emit start event
	s.mu.Lock()
	s.events = append(s.events, &llm.StreamEvent{
		Type: llm.StreamEventTypeStart,
	})
	s.cond.Broadcast()
	s.mu.Unlock()

	// Track accumulated content for tool calls
	var currentToolCall *llm.ToolUseBlock
	var toolInputBuilder strings.Builder
	var usage *llm.Usage
	finishReason := llm.FinishReasonUnknown

	finishToolCall := func() {
		if currentToolCall == nil {
			return
		}
		var input map[string]interface{}
		if toolInputBuilder.Len() > 0 {
			if err := json.Unmarshal([]byte(toolInputBuilder.String()), &input); err != nil {
				input = make(map[string]interface{})
			}
		} else {
			input = make(map[string]interface{})
		}
		currentToolCall.Input = input
		toolInputBuilder.Reset()
		currentToolCall = nil
	}

	for s.stream.Next() {
		event := s.stream.Current()

		s.mu.Lock()

		switch evt := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			// Start event already emitted

		case anthropic.ContentBlockStartEvent:
			if contentBlock := evt.ContentBlock.AsAny(); contentBlock != nil {
				switch block := contentBlock.(type) {
				case anthropic.TextBlock:
					// Text block starting, deltas follow
				case anthropic.ToolUseBlock:
					currentToolCall = &llm.ToolUseBlock{
						ID:    block.ID,
						Name:  block.Name,
						Input: make(map[string]interface{}),
					}
					toolInputBuilder.Reset()

					s.events = append(s.events, &llm.StreamEvent{
						Type: llm.StreamEventTypeContentBlock,
						Delta: &llm.StreamDelta{
							Type:    llm.StreamDeltaTypeToolUse,
							ToolUse: currentToolCall,
						},
					})
					s.cond.Broadcast()
				}
			}

		case anthropic.ContentBlockDeltaEvent:
			if delta := evt.Delta.AsAny(); delta != nil {
				switch d := delta.(type) {
				case anthropic.TextDelta:
					if d.Text != "" {
						s.events = append(s.events, &llm.StreamEvent{
							Type: llm.StreamEventTypeContentDelta,
							Delta: &llm.StreamDelta{
								Type: llm.StreamDeltaTypeText,
								Text: d.Text,
							},
						})
						s.cond.Broadcast()
					}
				case anthropic.InputJSONDelta:
					if currentToolCall != nil && d.PartialJSON != "" {
						toolInputBuilder.WriteString(d.PartialJSON)
						s.events = append(s.events, &llm.StreamEvent{
							Type: llm.StreamEventTypeContentDelta,
							Delta: &llm.StreamDelta{
								Type:      llm.StreamDeltaTypeToolInput,
								ToolInput: d.PartialJSON,
							},
						})
						s.cond.Broadcast()
					}
				}
			}

		case anthropic.ContentBlockStopEvent:
			finishToolCall()

		case anthropic.MessageDeltaEvent:
			// Message delta carries final usage and the stop reason
			usage = &llm.Usage{
				InputTokens:              evt.Usage.InputTokens,
				OutputTokens:             evt.Usage.OutputTokens,
				CacheCreationInputTokens: evt.Usage.CacheCreationInputTokens,
				CacheReadInputTokens:     evt.Usage.CacheReadInputTokens,
			}
			if evt.Delta.StopReason != "" {
				finishReason = fromStopReason(anthropic.StopReason(evt.Delta.StopReason))
			}

			if usage.CacheCreationInputTokens > 0 || usage.CacheReadInputTokens > 0 {
				cacheEfficiency := float64(0)
				if usage.InputTokens > 0 {
					cacheEfficiency = float64(usage.CacheReadInputTokens) / float64(usage.InputTokens) * 100
				}
				s.logger.Debug().
					Int64("input_tokens", usage.InputTokens).
					Int64("cache_creation_tokens", usage.CacheCreationInputTokens).
					Int64("cache_read_tokens", usage.CacheReadInputTokens).
					Float64("cache_efficiency", cacheEfficiency).
					Msg("Prompt cache stats (stream)")
			}

		case anthropic.MessageStopEvent:
			finishToolCall()

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
			s.mu.Unlock()
			return
		}

		s.mu.Unlock()
	}

	// Check for stream errors after loop ends
	if err := s.stream.Err(); err != nil {
		s.mu.Lock()
		s.err = convertAnthropicError(err)
		s.done = true
		s.cond.Broadcast()
		s.mu.Unlock()
		return
	}

	// Loop ended without a stop event; mark done so consumers unblock
	s.mu.Lock()
	if !s.done {
		s.done = true
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

var _ llm.Stream = (*anthropicStream)(nil)
