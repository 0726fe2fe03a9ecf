package switchboard

import (
	"context"
	"fmt"

	"github.com/aschepis/switchboard/llm"
	"github.com/aschepis/switchboard/tools"
)

// defaultMaxRounds bounds tool-calling loops that never converge.
const defaultMaxRounds = 5

// ToolLoop runs a call and keeps executing requested tools until the model
// answers without calling any, feeding each round's results back into the
// conversation. The registry supplies both the tool specs the model sees
// and the handlers that run.
func ToolLoop(ctx context.Context, client llm.Client, opts llm.CallOptions, registry *tools.Registry, prompt llm.PromptFunc, maxRounds int) (*llm.Response, error) {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	opts.Tools = registry.Specs()

	req, resolved, err := llm.Resolve(ctx, client, opts, prompt)
	if err != nil {
		return nil, err
	}

	for round := 0; round < maxRounds; round++ {
		resp, err := resolved.Call(ctx, req)
		if err != nil {
			return nil, err
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			return resp, nil
		}

		resultMsg := registry.DispatchAll(ctx, resp)
		req.Messages = append(req.Messages, resp.AssistantMessage(), resultMsg)
	}

	return nil, fmt.Errorf("exceeded maximum tool call rounds (%d)", maxRounds)
}
