package llm

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestCalculateCost(t *testing.T) {
	usage := &Usage{InputTokens: 1000, OutputTokens: 500}
	cost := CalculateCost(ProviderOpenAI, "gpt-4o-mini", usage)

	if cost == nil {
		t.Fatal("Expected a cost for a known model")
	}
	want := 1000*0.15e-6 + 500*0.60e-6
	if !almostEqual(*cost, want) {
		t.Errorf("Expected cost %v, got %v", want, *cost)
	}
}

func TestCalculateCostCachedTokens(t *testing.T) {
	usage := &Usage{
		InputTokens:          1000,
		OutputTokens:         100,
		CacheReadInputTokens: 400,
	}
	cost := CalculateCost(ProviderAnthropic, "claude-3-5-haiku", usage)

	if cost == nil {
		t.Fatal("Expected a cost for a known model")
	}
	want := 600*0.80e-6 + 400*0.08e-6 + 100*4.00e-6
	if !almostEqual(*cost, want) {
		t.Errorf("Expected cost %v, got %v", want, *cost)
	}
}

func TestCalculateCostCachedExceedsInput(t *testing.T) {
	usage := &Usage{
		InputTokens:          100,
		CacheReadInputTokens: 500,
	}
	cost := CalculateCost(ProviderGoogle, "gemini-2.0-flash", usage)

	if cost == nil {
		t.Fatal("Expected a cost for a known model")
	}
	want := 100 * 0.025e-6
	if !almostEqual(*cost, want) {
		t.Errorf("Expected cost %v, got %v", want, *cost)
	}
}

func TestCalculateCostUnknownModel(t *testing.T) {
	usage := &Usage{InputTokens: 10, OutputTokens: 10}

	if cost := CalculateCost(ProviderOpenAI, "no-such-model", usage); cost != nil {
		t.Errorf("Expected nil cost for unknown model, got %v", *cost)
	}
	if cost := CalculateCost(ProviderOllama, "llama3.2", usage); cost != nil {
		t.Errorf("Expected nil cost for local provider, got %v", *cost)
	}
	if cost := CalculateCost(ProviderOpenAI, "gpt-4o", nil); cost != nil {
		t.Errorf("Expected nil cost for nil usage, got %v", *cost)
	}
}

func TestResponseCost(t *testing.T) {
	resp := &Response{
		Provider: ProviderOpenAI,
		Model:    "gpt-4o",
		Usage:    &Usage{InputTokens: 100, OutputTokens: 50},
	}
	cost := resp.Cost()
	if cost == nil {
		t.Fatal("Expected a cost")
	}
	want := 100*2.50e-6 + 50*10.00e-6
	if !almostEqual(*cost, want) {
		t.Errorf("Expected cost %v, got %v", want, *cost)
	}
}
