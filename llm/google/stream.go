package google

import (
	"context"
	"iter"
	"sync"

	"github.com/aschepis/switchboard/llm"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// googleStream implements the llm.Stream interface for Gemini streaming
// responses. Gemini delivers function calls whole rather than as partial
// JSON, so tool events arrive complete with their input already parsed.
type googleStream struct {
	ctx     context.Context
	seq     iter.Seq2[*genai.GenerateContentResponse, error]
	events  []*llm.StreamEvent
	current int
	mu      sync.Mutex
	cond    *sync.Cond
	err     error
	done    bool
	started bool
	logger  zerolog.Logger
}

func newGoogleStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error], logger zerolog.Logger) *googleStream {
	gs := &googleStream{
		ctx:     ctx,
		seq:     seq,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
		logger:  logger,
	}
	gs.cond = sync.NewCond(&gs.mu)
	return gs
}

// Next advances to the next event in the stream.
func (s *googleStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		go s.startStream()
	}

	s.current++

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
func (s *googleStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *googleStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close marks the stream as done. The underlying iterator stops when its
// context is cancelled, so there is no handle to release here.
func (s *googleStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	return nil
}

func (s *googleStream) startStream() {
	s.mu.Lock()
	s.events = append(s.events, &llm.StreamEvent{
		Type: llm.StreamEventTypeStart,
	})
	s.cond.Broadcast()
	s.mu.Unlock()

	var usage *llm.Usage
	finishReason := llm.FinishReasonUnknown
	sawToolUse := false

	for result, err := range s.seq {
		if err != nil {
			s.mu.Lock()
			s.err = llm.NewProviderError("Gemini stream error", err)
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

		if text := result.Text(); text != "" {
			s.events = append(s.events, &llm.StreamEvent{
				Type: llm.StreamEventTypeContentDelta,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeText,
					Text: text,
				},
			})
			s.cond.Broadcast()
		}

		for _, fc := range result.FunctionCalls() {
			sawToolUse = true
			s.events = append(s.events, &llm.StreamEvent{
				Type: llm.StreamEventTypeContentBlock,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeToolUse,
					ToolUse: &llm.ToolUseBlock{
						ID:    fc.Name,
						Name:  fc.Name,
						Input: fc.Args,
					},
				},
			})
			s.cond.Broadcast()
		}

		if result.UsageMetadata != nil {
			usage = fromUsageMetadata(result.UsageMetadata)
		}
		if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
			finishReason = fromFinishReason(result.Candidates[0].FinishReason, sawToolUse)
		}

		s.mu.Unlock()
	}

	s.mu.Lock()
	if !s.done {
		s.events = append(s.events, &llm.StreamEvent{
			Type:         llm.StreamEventTypeMessageDelta,
			Usage:        usage,
			FinishReason: finishReason,
		})
		s.events = append(s.events, &llm.StreamEvent{
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

var _ llm.Stream = (*googleStream)(nil)
