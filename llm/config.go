package llm

import (
	"context"
	"fmt"

	"dario.cat/mergo"
)

// CallOptions is the static half of call configuration: everything known at
// the point a call is declared, before the prompt runs.
type CallOptions struct {
	Provider string
	Model    string
	Params   CallParams
	Tools    []ToolSpec

	// JSONMode asks the provider for a JSON object response.
	JSONMode bool

	// ForceToolUse requires the model to call a tool. Resolution fails if no
	// tools survive to the final request.
	ForceToolUse bool

	// Client overrides the client the call is executed against.
	Client Client
}

// DynamicConfig is the dynamic half of call configuration, produced by a
// PromptFunc at call time. Any field set here takes precedence over the
// static CallOptions.
type DynamicConfig struct {
	Messages []Message
	Tools    []ToolSpec
	Params   *CallParams
	Client   Client

	// ComputedFields are values derived at call time for template rendering.
	// The library passes them through untouched; the prompt package consumes
	// them as template variables.
	ComputedFields map[string]interface{}
}

// PromptFunc produces the prompt for a call. It may return:
//   - a string: shorthand for a single user message
//   - a Message or []Message: the full conversation
//   - a DynamicConfig or *DynamicConfig: messages plus call-time overrides
type PromptFunc func(ctx context.Context) (interface{}, error)

// StaticPrompt returns a PromptFunc that always yields the given value.
func StaticPrompt(v interface{}) PromptFunc {
	return func(context.Context) (interface{}, error) {
		return v, nil
	}
}

// BuildRequest resolves static options and a prompt result into a complete
// Request plus the client to execute it against (nil when neither side
// supplied one).
//
// Resolution starts from the static options and shallow-merges any dynamic
// values on top, with dynamic values winning.
func BuildRequest(opts CallOptions, promptResult interface{}) (*Request, Client, error) {
	var dyn *DynamicConfig
	var messages []Message

	switch v := promptResult.(type) {
	case string:
		messages = []Message{NewTextMessage(RoleUser, v)}
	case Message:
		messages = []Message{v}
	case []Message:
		messages = v
	case DynamicConfig:
		dyn = &v
	case *DynamicConfig:
		dyn = v
	case nil:
		return nil, nil, NewConfigurationError("prompt produced no messages", nil)
	default:
		return nil, nil, NewConfigurationError(fmt.Sprintf("unsupported prompt result type %T", promptResult), nil)
	}

	params := opts.Params
	tools := opts.Tools
	client := opts.Client

	if dyn != nil {
		messages = dyn.Messages
		if dyn.Tools != nil {
			tools = dyn.Tools
		}
		if dyn.Params != nil {
			if err := mergo.Merge(&params, *dyn.Params, mergo.WithOverride); err != nil {
				return nil, nil, NewConfigurationError("failed to merge call params", err)
			}
		}
		if dyn.Client != nil {
			client = dyn.Client
		}
	}

	if len(messages) == 0 {
		return nil, nil, NewConfigurationError("prompt produced no messages", nil)
	}
	if opts.Model == "" {
		return nil, nil, NewConfigurationError("model is required", nil)
	}
	if err := ValidateMessages(messages); err != nil {
		return nil, nil, err
	}
	if opts.ForceToolUse && len(tools) == 0 {
		return nil, nil, NewConfigurationError("forced tool use requires at least one tool", nil)
	}

	system, rest := SplitSystem(messages)

	return &Request{
		Model:        opts.Model,
		Messages:     rest,
		System:       system,
		Tools:        tools,
		Params:       params,
		JSONMode:     opts.JSONMode,
		ForceToolUse: opts.ForceToolUse,
	}, client, nil
}

// Call runs the full pipeline: execute the prompt, resolve configuration,
// dispatch to the client, and return the wrapped response. The client
// argument is used unless the options or dynamic config override it.
func Call(ctx context.Context, client Client, opts CallOptions, prompt PromptFunc) (*Response, error) {
	req, resolved, err := Resolve(ctx, client, opts, prompt)
	if err != nil {
		return nil, err
	}
	if req.Params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Params.Timeout)
		defer cancel()
	}
	return resolved.Call(ctx, req)
}

// CallStream runs the pipeline in streaming mode. The Params.Timeout field is
// not applied here: a stream's lifetime is owned by the caller's context.
func CallStream(ctx context.Context, client Client, opts CallOptions, prompt PromptFunc) (Stream, error) {
	req, resolved, err := Resolve(ctx, client, opts, prompt)
	if err != nil {
		return nil, err
	}
	return resolved.Stream(ctx, req)
}

// Resolve executes the prompt and resolves the full configuration into a
// Request plus the client to run it against. Call and CallStream use it
// internally; callers that need the request before dispatch (tool loops,
// request logging) can use it directly.
func Resolve(ctx context.Context, client Client, opts CallOptions, prompt PromptFunc) (*Request, Client, error) {
	if prompt == nil {
		return nil, nil, NewConfigurationError("prompt function is required", nil)
	}
	result, err := prompt(ctx)
	if err != nil {
		return nil, nil, err
	}
	req, override, err := BuildRequest(opts, result)
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		client = override
	}
	if client == nil {
		return nil, nil, NewConfigurationError("no client configured for call", nil)
	}
	return req, client, nil
}
