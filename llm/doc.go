// Package llm provides a provider-neutral calling convention for Large
// Language Model (LLM) APIs.
//
// A caller describes an invocation once -- messages, tuning parameters,
// tools, output mode -- and executes it against any supported provider
// (OpenAI, Anthropic, Google Gemini, Ollama) through the common Client
// interface. Provider subpackages translate to and from each SDK's wire
// types; this package owns everything that is the same across them.
//
// # Core Concepts
//
//  1. Messages: the Message type represents a conversation message with a
//     role (system, user, assistant, tool) and typed content blocks (text,
//     image, audio, document, tool use, tool result, thinking). At most one
//     system message is permitted and it must come first.
//
//  2. Call configuration: CallOptions is the static half of a call,
//     DynamicConfig the half a PromptFunc produces at call time. BuildRequest
//     merges the two (dynamic wins) into a Request.
//
//  3. Responses: Response wraps the raw provider payload with derived views:
//     Text(), ToolUses(), Usage, FinishReason, Cost() from the static pricing
//     table, and AssistantMessage() for conversation chaining.
//
//  4. Streaming: the Stream interface yields StreamEvents; the Accumulator
//     and CollectResponse synthesize a complete Response after consumption
//     for parity with the non-streaming path.
//
//  5. Middleware: LoggingMiddleware and RetryMiddleware add cross-cutting
//     behavior without touching provider implementations; WrapWithMiddleware
//     composes arbitrary hooks.
//
//  6. Errors: the Error type classifies provider failures (rate limit,
//     request too large, invalid request, configuration, provider, network,
//     timeout) with retryability and retry-after hints.
//
// Usage:
//
//	client, err := openai.NewClient(apiKey, "", "", "")
//	// ...
//	resp, err := llm.Call(ctx, client,
//	    llm.CallOptions{Provider: llm.ProviderOpenAI, Model: "gpt-4o-mini"},
//	    llm.StaticPrompt("Recommend a fantasy book"),
//	)
//	fmt.Println(resp.Text())
//
// To add a provider: implement Client in a subpackage, translate between the
// SDK's types and this package's types, and classify the SDK's errors into
// the Error taxonomy.
package llm
