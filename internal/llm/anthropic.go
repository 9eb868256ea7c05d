package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicClient implements the Client interface using Claude. It is used
// twice with different configurations: as the monitored "claude" provider
// (web search enabled, user-sized token budget) and as the judge for
// analysis and recommendations (no tools, larger budget).
type AnthropicClient struct {
	client    *anthropic.Client
	name      string
	model     string
	apiKey    string
	maxTokens int64
	webSearch bool
}

// NewAnthropicClient creates the monitored claude provider client.
// Web search is capped at two uses per call to keep latency inside the
// adapter deadline.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return newAnthropic("claude", apiKey, model, 1024, true)
}

// NewJudgeClient creates the judge-role client. Same vendor, different job:
// it classifies mentions and drafts recommendations, so it gets a bigger
// output budget and no tools.
func NewJudgeClient(apiKey, model string) *AnthropicClient {
	return newAnthropic("judge", apiKey, model, 2000, false)
}

func newAnthropic(name, apiKey, model string, maxTokens int64, webSearch bool) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{
		client:    &client,
		name:      name,
		model:     model,
		apiKey:    apiKey,
		maxTokens: maxTokens,
		webSearch: webSearch,
	}
}

func (a *AnthropicClient) Name() string     { return a.name }
func (a *AnthropicClient) Configured() bool { return a.apiKey != "" }

func (a *AnthropicClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if a.webSearch {
		// Web search is a built-in tool — the SDK has a dedicated struct for it.
		params.Tools = []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: param.NewOpt(int64(2)),
			}},
		}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// With web search the response interleaves tool_use / tool_result blocks
	// with text blocks. Collect every text block.
	var parts []string
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}

	return &Completion{
		Text:         strings.Join(parts, "\n"),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}
