// Package extract pulls typed values out of model responses.
//
// Extraction works by presenting the target type's JSON schema to the model
// as a forced tool call, then decoding the call's arguments into the Go
// value. Providers without forced tool calls can use JSON mode instead,
// where the schema rides along as a response instruction. Failed decodes
// and validation failures retry with exponential backoff, re-running the
// prompt each attempt.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aschepis/switchboard/llm"
	"github.com/aschepis/switchboard/tools"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// toolDescription is the description attached to the synthetic extraction
// tool when the target type provides none of its own.
const toolDescription = "Correctly formatted and typed parameters extracted from the completion. " +
	"Must include required parameters and may exclude optional parameters unless present in the text."

// Validator lets extracted types reject structurally valid but semantically
// wrong values. Returning an error triggers a retry.
type Validator interface {
	Validate() error
}

// Result carries an extracted value alongside the response it came from.
type Result[T any] struct {
	Value    T
	Response *llm.Response
}

// Options configures an extraction.
type Options struct {
	// CallOptions select the provider, model, and parameters. Tools,
	// JSONMode, and ForceToolUse are managed by the extractor and must be
	// left unset.
	CallOptions llm.CallOptions

	// JSONMode extracts from a JSON-mode text response instead of a forced
	// tool call. Use it with providers or models whose tool calling is
	// unreliable.
	JSONMode bool

	// MaxAttempts bounds total tries, including the first. Zero means one
	// attempt with no retries.
	MaxAttempts uint64

	// ToolName overrides the synthetic tool's name. Defaults to "extract".
	ToolName string

	Logger zerolog.Logger
}

// Extract runs the prompt and decodes the model's output into T.
func Extract[T any](ctx context.Context, client llm.Client, opts Options, prompt llm.PromptFunc) (*Result[T], error) {
	schema, err := tools.SchemaFor[T]()
	if err != nil {
		return nil, llm.NewConfigurationError("failed to derive extraction schema", err)
	}

	toolName := opts.ToolName
	if toolName == "" {
		toolName = "extract"
	}

	callOpts := opts.CallOptions
	if opts.JSONMode {
		callOpts.JSONMode = true
		callOpts.Tools = nil
	} else {
		callOpts.Tools = []llm.ToolSpec{{
			Name:        toolName,
			Description: toolDescription,
			Schema:      schema,
		}}
		callOpts.ForceToolUse = true
	}

	attempts := opts.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	var result *Result[T]
	operation := func() error {
		resp, err := llm.Call(ctx, client, callOpts, prompt)
		if err != nil {
			if llm.IsConfigurationError(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		value, err := decode[T](resp, toolName, opts.JSONMode)
		if err != nil {
			opts.Logger.Debug().Err(err).Msg("Extraction attempt failed, retrying")
			return err
		}

		if v, ok := any(value).(Validator); ok {
			if err := v.Validate(); err != nil {
				opts.Logger.Debug().Err(err).Msg("Extracted value failed validation, retrying")
				return fmt.Errorf("validation failed: %w", err)
			}
		}

		result = &Result[T]{Value: value, Response: resp}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), attempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return result, nil
}

// decode pulls the typed value out of a response, from the forced tool
// call's input or from JSON-mode text.
func decode[T any](resp *llm.Response, toolName string, jsonMode bool) (T, error) {
	var value T

	if jsonMode {
		text := strings.TrimSpace(resp.Text())
		text = trimCodeFence(text)
		if text == "" {
			return value, fmt.Errorf("response contained no text to extract from")
		}
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return value, fmt.Errorf("failed to decode JSON response: %w", err)
		}
		return value, nil
	}

	var toolUse *llm.ToolUseBlock
	for _, use := range resp.ToolUses() {
		if use.Name == toolName {
			u := use
			toolUse = &u
			break
		}
	}
	if toolUse == nil {
		return value, fmt.Errorf("response contained no %s tool call", toolName)
	}
	raw, err := json.Marshal(toolUse.Input)
	if err != nil {
		return value, fmt.Errorf("failed to encode tool input: %w", err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("failed to decode tool input: %w", err)
	}
	return value, nil
}

// trimCodeFence strips a markdown code fence if the model wrapped its JSON
// in one despite instructions.
func trimCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// ExtractStream collects a full response from a stream and then decodes it.
// Streaming extraction still needs the complete payload before parsing, so
// this is a convenience over CollectResponse rather than incremental
// decoding.
func ExtractStream[T any](stream llm.Stream, provider, model, toolName string, jsonMode bool) (*Result[T], error) {
	resp, err := llm.CollectResponse(stream, provider, model)
	if err != nil {
		return nil, err
	}
	if toolName == "" {
		toolName = "extract"
	}
	value, err := decode[T](resp, toolName, jsonMode)
	if err != nil {
		return nil, err
	}
	return &Result[T]{Value: value, Response: resp}, nil
}
