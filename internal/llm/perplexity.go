package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PerplexityClient calls the Perplexity chat-completions API with a plain
// http.Client. The endpoint is OpenAI-shaped, but going through the OpenAI
// SDK gets the requests flagged by Perplexity's Cloudflare frontend, so we
// send them ourselves with an explicit User-Agent.
type PerplexityClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewPerplexityClient creates a Perplexity client.
func NewPerplexityClient(apiKey, model, baseURL string) *PerplexityClient {
	return &PerplexityClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *PerplexityClient) Name() string     { return "perplexity" }
func (p *PerplexityClient) Configured() bool { return p.apiKey != "" }

func (p *PerplexityClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  800,
		"temperature": 0.3,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("User-Agent", "arianeegeo-monitor/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perplexity API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("perplexity API returned %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("perplexity returned no choices")
	}

	return &Completion{
		Text:         result.Choices[0].Message.Content,
		OutputTokens: result.Usage.CompletionTokens,
	}, nil
}
