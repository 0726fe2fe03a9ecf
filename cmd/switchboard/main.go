// Command switchboard sends a one-shot prompt to a configured LLM provider.
//
// The prompt comes from the command line arguments, or from stdin when no
// arguments are given. Provider credentials come from the config file and
// environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aschepis/switchboard"
	"github.com/aschepis/switchboard/config"
	"github.com/aschepis/switchboard/llm"
	"github.com/aschepis/switchboard/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", config.GetConfigPath(), "Path to config file")
		provider    = flag.String("provider", "", "Provider to use (anthropic, google, ollama, openai)")
		model       = flag.String("model", "", "Model to use (defaults to the provider's default)")
		system      = flag.String("system", "", "System prompt")
		temperature = flag.Float64("temperature", -1, "Sampling temperature")
		maxTokens   = flag.Int64("max-tokens", 0, "Maximum completion tokens")
		stream      = flag.Bool("stream", false, "Stream the response")
		jsonMode    = flag.Bool("json", false, "Request a JSON object response")
		showCost    = flag.Bool("cost", false, "Print token usage and cost to stderr")
		logFile     = flag.String("logfile", "", "Path to log file. If not set, logs to stderr")
		pretty      = flag.Bool("pretty", false, "Use pretty console log output")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.InitWithOptions(*logFile, *pretty, cfg.LogLevel)
	if err != nil {
		return err
	}

	userPrompt, err := readPrompt(flag.Args())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sb := switchboard.New(cfg, log)

	opts := llm.CallOptions{
		Provider: *provider,
		Model:    *model,
		JSONMode: *jsonMode,
	}
	if *temperature >= 0 {
		opts.Params.Temperature = temperature
	}
	if *maxTokens > 0 {
		opts.Params.MaxTokens = *maxTokens
	}

	messages := []llm.Message{}
	if *system != "" {
		messages = append(messages, llm.NewSystemMessage(*system))
	}
	messages = append(messages, llm.NewTextMessage(llm.RoleUser, userPrompt))
	promptFn := llm.StaticPrompt(messages)

	if *stream {
		return runStream(ctx, sb, opts, promptFn, *showCost)
	}

	resp, err := sb.Call(ctx, opts, promptFn)
	if err != nil {
		return err
	}
	fmt.Println(resp.Text())
	if *showCost {
		printCost(resp)
	}
	return nil
}

func runStream(ctx context.Context, sb *switchboard.Switchboard, opts llm.CallOptions, promptFn llm.PromptFunc, showCost bool) error {
	stream, key, err := sb.Stream(ctx, opts, promptFn)
	if err != nil {
		return err
	}
	defer stream.Close()

	acc := llm.NewAccumulator(key.Provider, key.Model)
	for stream.Next() {
		event := stream.Event()
		acc.Add(event)
		if event.Delta != nil && event.Delta.Type == llm.StreamDeltaTypeText {
			fmt.Print(event.Delta.Text)
		}
	}
	fmt.Println()
	if err := stream.Err(); err != nil {
		return err
	}
	if showCost {
		printCost(acc.Response())
	}
	return nil
}

func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no prompt given")
	}
	return text, nil
}

func printCost(resp *llm.Response) {
	fmt.Fprintf(os.Stderr, "tokens: %d in, %d out", resp.InputTokens(), resp.OutputTokens())
	if cost := resp.Cost(); cost != nil {
		fmt.Fprintf(os.Stderr, ", cost: $%.6f", *cost)
	}
	fmt.Fprintln(os.Stderr)
}
