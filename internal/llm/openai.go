package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the Client interface against any OpenAI-compatible
// chat-completions API. It serves two of the monitored vendors: ChatGPT
// (default base URL) and Grok (xAI exposes the same wire protocol at
// api.x.ai). Which one it is, is purely configuration — name, model, base URL.
type OpenAIClient struct {
	client *openai.Client
	name   string
	model  string
	apiKey string
}

// NewOpenAIClient creates a client for an OpenAI-compatible vendor.
// baseURL may be empty for api.openai.com itself.
func NewOpenAIClient(name, apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		name:   name,
		model:  model,
		apiKey: apiKey,
	}
}

func (o *OpenAIClient) Name() string     { return o.name }
func (o *OpenAIClient) Configured() bool { return o.apiKey != "" }

// Complete sends the prompt as a single user message. The search-preview
// models run their web search server-side, so the request itself is plain.
func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: 800,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API call: %w", o.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", o.name)
	}

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
