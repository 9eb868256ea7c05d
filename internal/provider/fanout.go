package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/config"
	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// Coordinator fans one prompt out to every adapter concurrently and waits
// for all of them to settle. The system's value is comparative — six
// providers judged together — so a partial result set is still useful and
// one vendor's failure must never abort or delay the others.
type Coordinator struct {
	adapters []*Adapter
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator over the given adapters. The adapter
// slice order is the canonical output order.
func NewCoordinator(adapters []*Adapter, logger *zap.Logger) *Coordinator {
	return &Coordinator{adapters: adapters, logger: logger}
}

// NewCoordinatorFromConfig wires up the six vendor clients and their
// adapters in canonical provider order.
func NewCoordinatorFromConfig(cfg *config.Config, logger *zap.Logger) *Coordinator {
	shared := Options{Timeout: cfg.LLM.Timeout(), Backoff: cfg.LLM.Backoff()}

	build := func(p model.Provider, client llm.Client, pc config.ProviderConfig) *Adapter {
		opts := shared
		opts.MaxRetries = pc.MaxRetries
		return NewAdapter(p, client, opts, logger)
	}

	adapters := []*Adapter{
		build(model.ProviderChatGPT,
			llm.NewOpenAIClient("chatgpt", cfg.LLM.ChatGPT.APIKey, cfg.LLM.ChatGPT.Model, cfg.LLM.ChatGPT.BaseURL),
			cfg.LLM.ChatGPT),
		build(model.ProviderGemini,
			llm.NewGeminiClient(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model, cfg.LLM.Gemini.BaseURL),
			cfg.LLM.Gemini),
		build(model.ProviderMistral,
			llm.NewMistralClient(cfg.LLM.Mistral.APIKey, cfg.LLM.Mistral.Model, cfg.LLM.Mistral.BaseURL),
			cfg.LLM.Mistral),
		build(model.ProviderGrok,
			llm.NewOpenAIClient("grok", cfg.LLM.Grok.APIKey, cfg.LLM.Grok.Model, cfg.LLM.Grok.BaseURL),
			cfg.LLM.Grok),
		build(model.ProviderClaude,
			llm.NewAnthropicClient(cfg.LLM.Claude.APIKey, cfg.LLM.Claude.Model),
			cfg.LLM.Claude),
		build(model.ProviderPerplexity,
			llm.NewPerplexityClient(cfg.LLM.Perplexity.APIKey, cfg.LLM.Perplexity.Model, cfg.LLM.Perplexity.BaseURL),
			cfg.LLM.Perplexity),
	}

	return NewCoordinator(adapters, logger)
}

// Providers returns the canonical provider order of this coordinator.
func (c *Coordinator) Providers() []model.Provider {
	out := make([]model.Provider, len(c.adapters))
	for i, a := range c.adapters {
		out[i] = a.Provider()
	}
	return out
}

// QueryAll issues the prompt to every adapter concurrently and returns one
// response per adapter in canonical order, regardless of completion order.
// It only returns once every call has reached a terminal state; a panic in
// any adapter goroutine is converted into an error-only response.
func (c *Coordinator) QueryAll(ctx context.Context, prompt string) []model.ProviderResponse {
	results := make([]model.ProviderResponse, len(c.adapters))

	var wg sync.WaitGroup
	for i, adapter := range c.adapters {
		wg.Add(1)
		// Each goroutine writes only its own index — no shared mutable state.
		go func(i int, adapter *Adapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errMsg := fmt.Sprintf("panic: %v", r)
					c.logger.Error("provider adapter panicked",
						zap.String("provider", string(adapter.Provider())),
						zap.String("panic", errMsg),
					)
					results[i] = model.ProviderResponse{Provider: adapter.Provider(), Err: &errMsg}
				}
			}()
			results[i] = adapter.Query(ctx, prompt)
		}(i, adapter)
	}
	wg.Wait()

	return results
}
