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

// MistralClient calls the Mistral REST API directly. The primary path uses
// the conversations endpoint with the web_search tool; CompleteFallback uses
// plain chat completions. The adapter decides when to fall back — this type
// only knows how to make both calls.
type MistralClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewMistralClient creates a Mistral client.
func NewMistralClient(apiKey, model, baseURL string) *MistralClient {
	return &MistralClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (m *MistralClient) Name() string     { return "mistral" }
func (m *MistralClient) Configured() bool { return m.apiKey != "" }

// Complete is the feature-rich path: a conversation with web search.
func (m *MistralClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	body := map[string]any{
		"inputs": prompt,
		"model":  m.model,
		"tools":  []map[string]string{{"type": "web_search"}},
		"store":  false,
	}

	raw, err := m.post(ctx, "/v1/conversations", body)
	if err != nil {
		return nil, err
	}

	// The conversation response interleaves tool entries with the assistant
	// message; content is either a plain string or a list of typed chunks.
	var result struct {
		Outputs []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding conversation response: %w", err)
	}

	for _, out := range result.Outputs {
		if out.Role != "assistant" || len(out.Content) == 0 {
			continue
		}

		var text string
		if err := json.Unmarshal(out.Content, &text); err == nil {
			return &Completion{Text: text}, nil
		}

		var chunks []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(out.Content, &chunks); err == nil {
			for _, c := range chunks {
				if c.Type == "text" {
					text += c.Text
				}
			}
			if text != "" {
				return &Completion{Text: text}, nil
			}
		}
	}

	return nil, fmt.Errorf("mistral conversation returned no assistant text")
}

// CompleteFallback is the reduced path: plain chat completion, no web search.
func (m *MistralClient) CompleteFallback(ctx context.Context, prompt string) (*Completion, error) {
	body := map[string]any{
		"model": m.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": 800,
	}

	raw, err := m.post(ctx, "/v1/chat/completions", body)
	if err != nil {
		return nil, err
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
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("mistral returned no choices")
	}

	return &Completion{
		Text:         result.Choices[0].Message.Content,
		OutputTokens: result.Usage.CompletionTokens,
	}, nil
}

func (m *MistralClient) post(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mistral API error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Status code first so the retry classifier can match on "429"/"503".
		return nil, fmt.Errorf("mistral API returned %d: %s", resp.StatusCode, truncateBody(raw))
	}

	return raw, nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
