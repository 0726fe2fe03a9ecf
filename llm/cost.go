package llm

// modelPricing holds per-token dollar rates for a model.
type modelPricing struct {
	prompt     float64
	completion float64
	cached     float64 // cache-read rate; 0 when the provider offers no caching discount
}

// Pricing tables keyed by provider then model. Rates are dollars per token.
// Models not listed here yield a nil cost rather than an error: pricing drifts
// and an unknown model must not fail a call.
var pricing = map[string]map[string]modelPricing{
	ProviderOpenAI: {
		"gpt-4.5-preview":        {prompt: 75.00e-6, completion: 150.00e-6, cached: 37.50e-6},
		"gpt-4o":                 {prompt: 2.50e-6, completion: 10.00e-6, cached: 1.25e-6},
		"gpt-4o-2024-11-20":      {prompt: 2.50e-6, completion: 10.00e-6, cached: 1.25e-6},
		"gpt-4o-2024-08-06":      {prompt: 2.50e-6, completion: 10.00e-6, cached: 1.25e-6},
		"gpt-4o-2024-05-13":      {prompt: 5.00e-6, completion: 15.00e-6},
		"gpt-4o-mini":            {prompt: 0.15e-6, completion: 0.60e-6, cached: 0.075e-6},
		"gpt-4o-mini-2024-07-18": {prompt: 0.15e-6, completion: 0.60e-6, cached: 0.075e-6},
		"o1":                     {prompt: 15.00e-6, completion: 60.00e-6, cached: 7.50e-6},
		"o1-preview":             {prompt: 15.00e-6, completion: 60.00e-6, cached: 7.50e-6},
		"o1-mini":                {prompt: 1.10e-6, completion: 4.40e-6, cached: 0.55e-6},
		"o3-mini":                {prompt: 1.10e-6, completion: 4.40e-6, cached: 0.55e-6},
		"chatgpt-4o-latest":      {prompt: 5.00e-6, completion: 15.00e-6},
		"gpt-4-turbo":            {prompt: 10.00e-6, completion: 30.00e-6},
		"gpt-4-turbo-2024-04-09": {prompt: 10.00e-6, completion: 30.00e-6},
		"gpt-4":                  {prompt: 30.00e-6, completion: 60.00e-6},
		"gpt-3.5-turbo":          {prompt: 0.50e-6, completion: 1.50e-6},
	},
	ProviderAnthropic: {
		"claude-3-5-haiku":           {prompt: 0.80e-6, completion: 4.00e-6, cached: 0.08e-6},
		"claude-3-5-haiku-20241022":  {prompt: 0.80e-6, completion: 4.00e-6, cached: 0.08e-6},
		"claude-3-5-sonnet":          {prompt: 3.00e-6, completion: 15.00e-6, cached: 0.30e-6},
		"claude-3-5-sonnet-20241022": {prompt: 3.00e-6, completion: 15.00e-6, cached: 0.30e-6},
		"claude-3-5-sonnet-20240620": {prompt: 3.00e-6, completion: 15.00e-6, cached: 0.30e-6},
		"claude-3-7-sonnet":          {prompt: 3.00e-6, completion: 15.00e-6, cached: 0.30e-6},
		"claude-3-haiku":             {prompt: 0.80e-6, completion: 4.00e-6, cached: 0.08e-6},
		"claude-3-haiku-20240307":    {prompt: 0.80e-6, completion: 4.00e-6, cached: 0.08e-6},
		"claude-3-opus":              {prompt: 15.00e-6, completion: 75.00e-6, cached: 1.50e-6},
		"claude-3-opus-20240229":     {prompt: 15.00e-6, completion: 75.00e-6, cached: 1.50e-6},
		"claude-2.1":                 {prompt: 8.00e-6, completion: 24.00e-6},
		"claude-2.0":                 {prompt: 8.00e-6, completion: 24.00e-6},
	},
	ProviderGoogle: {
		"gemini-2.0-flash":      {prompt: 0.10e-6, completion: 0.40e-6, cached: 0.025e-6},
		"gemini-2.0-flash-lite": {prompt: 0.075e-6, completion: 0.30e-6},
		"gemini-1.5-pro":        {prompt: 1.25e-6, completion: 5.00e-6, cached: 0.3125e-6},
		"gemini-1.5-flash":      {prompt: 0.075e-6, completion: 0.30e-6, cached: 0.01875e-6},
		"gemini-1.5-flash-8b":   {prompt: 0.0375e-6, completion: 0.15e-6, cached: 0.01e-6},
		"gemini-1.0-pro":        {prompt: 0.50e-6, completion: 1.50e-6},
	},
	// Ollama runs locally; there is deliberately no pricing entry for it.
}

// CalculateCost returns the dollar cost of a call given its usage, or nil
// when the provider/model combination is not in the pricing table.
//
// Cache-read tokens are billed at the cached rate and subtracted from the
// prompt-rate tokens, matching how the providers themselves itemize usage.
func CalculateCost(provider, model string, usage *Usage) *float64 {
	if usage == nil {
		return nil
	}
	models, ok := pricing[provider]
	if !ok {
		return nil
	}
	rates, ok := models[model]
	if !ok {
		return nil
	}

	promptTokens := usage.InputTokens
	cachedTokens := usage.CacheReadInputTokens
	if cachedTokens > promptTokens {
		cachedTokens = promptTokens
	}

	cost := float64(promptTokens-cachedTokens)*rates.prompt +
		float64(cachedTokens)*rates.cached +
		float64(usage.OutputTokens)*rates.completion
	return &cost
}
