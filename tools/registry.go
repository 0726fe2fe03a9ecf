// Package tools defines typed tool declarations and a dispatch registry.
//
// A tool has two halves: the spec the model sees (name, description, JSON
// schema for its arguments) and the handler that runs when the model calls
// it. Define derives both halves from a Go struct, so argument schemas stay
// in one place.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aschepis/switchboard/llm"
	"github.com/rs/zerolog"
)

// Handler executes a tool call with raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Definition pairs a tool spec with its handler.
type Definition struct {
	Spec    llm.ToolSpec
	Handler Handler
}

// Registry maps tool names to definitions.
type Registry struct {
	defs   map[string]Definition
	order  []string
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		defs:   make(map[string]Definition),
		logger: logger.With().Str("component", "tool_registry").Logger(),
	}
}

// Register registers a tool definition. Re-registering a name replaces the
// previous definition.
func (r *Registry) Register(def Definition) error {
	if def.Spec.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Spec.Name)
	}
	r.logger.Debug().Str("name", def.Spec.Name).Msg("Registering tool")
	if _, exists := r.defs[def.Spec.Name]; !exists {
		r.order = append(r.order, def.Spec.Name)
	}
	r.defs[def.Spec.Name] = def
	return nil
}

// Specs returns the specs of all registered tools in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.defs[name].Spec)
	}
	return specs
}

// Lookup returns the definition for a tool name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Dispatch executes the tool named by a model's tool use block and returns
// a tool result block ready to send back. Handler errors become error
// results rather than failing the call, so the model can see what went
// wrong and retry.
func (r *Registry) Dispatch(ctx context.Context, toolUse *llm.ToolUseBlock) llm.ToolResultBlock {
	r.logger.Info().Str("tool", toolUse.Name).Str("id", toolUse.ID).Msg("Dispatching tool call")

	def, ok := r.defs[toolUse.Name]
	if !ok {
		r.logger.Error().Str("tool", toolUse.Name).Msg("Unknown tool requested")
		return llm.ToolResultBlock{
			ID:      toolUse.ID,
			Content: fmt.Sprintf("unknown tool: %s", toolUse.Name),
			IsError: true,
		}
	}

	args, err := json.Marshal(toolUse.Input)
	if err != nil {
		return llm.ToolResultBlock{
			ID:      toolUse.ID,
			Content: fmt.Sprintf("failed to encode arguments: %v", err),
			IsError: true,
		}
	}

	result, err := def.Handler(ctx, args)
	if err != nil {
		r.logger.Warn().Str("tool", toolUse.Name).Err(err).Msg("Tool returned error")
		return llm.ToolResultBlock{
			ID:      toolUse.ID,
			Content: err.Error(),
			IsError: true,
		}
	}

	content, err := json.Marshal(result)
	if err != nil {
		return llm.ToolResultBlock{
			ID:      toolUse.ID,
			Content: fmt.Sprintf("failed to encode result: %v", err),
			IsError: true,
		}
	}

	r.logger.Debug().Str("tool", toolUse.Name).RawJSON("result", content).Msg("Tool returned result")
	return llm.ToolResultBlock{
		ID:      toolUse.ID,
		Content: string(content),
	}
}

// DispatchAll executes every tool use block in a response and returns the
// tool result message to append to the conversation.
func (r *Registry) DispatchAll(ctx context.Context, resp *llm.Response) llm.Message {
	var blocks []llm.ContentBlock
	for _, toolUse := range resp.ToolUses() {
		use := toolUse
		result := r.Dispatch(ctx, &use)
		blocks = append(blocks, llm.ContentBlock{
			Type:       llm.ContentBlockTypeToolResult,
			ToolResult: &result,
		})
	}
	return llm.Message{Role: llm.RoleTool, Content: blocks}
}
