package provider

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// slowClient answers after a delay, to prove output order does not depend
// on completion order.
type slowClient struct {
	fakeClient
	delay time.Duration
}

func (s *slowClient) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	time.Sleep(s.delay)
	return s.fakeClient.Complete(ctx, prompt)
}

// panicClient simulates a client bug.
type panicClient struct {
	fakeClient
}

func (p *panicClient) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	panic("nil pointer in vendor SDK")
}

func TestQueryAllSettlesEverything(t *testing.T) {
	adapters := []*Adapter{
		NewAdapter(model.ProviderChatGPT, &slowClient{
			fakeClient: fakeClient{name: "chatgpt", configured: true,
				script: []func() (*llm.Completion, error){success("slow answer")}},
			delay: 50 * time.Millisecond,
		}, testOptions(0), zap.NewNop()),
		NewAdapter(model.ProviderGemini, &fakeClient{
			name: "gemini", configured: true,
			script: []func() (*llm.Completion, error){failure("boom")},
		}, testOptions(0), zap.NewNop()),
		NewAdapter(model.ProviderClaude, &fakeClient{
			name: "claude", configured: false,
		}, testOptions(0), zap.NewNop()),
	}
	c := NewCoordinator(adapters, zap.NewNop())

	results := c.QueryAll(context.Background(), "test prompt")

	if len(results) != 3 {
		t.Fatalf("expected one result per adapter, got %d", len(results))
	}

	// Canonical adapter order, not completion order: the slow success is
	// still first.
	wantOrder := []model.Provider{model.ProviderChatGPT, model.ProviderGemini, model.ProviderClaude}
	for i, want := range wantOrder {
		if results[i].Provider != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].Provider)
		}
	}

	if !results[0].Valid() {
		t.Error("expected the slow provider to succeed")
	}
	if results[1].Valid() || results[1].Err == nil {
		t.Error("expected the failing provider to carry an error")
	}
	if results[2].Valid() || !strings.Contains(*results[2].Err, "not configured") {
		t.Error("expected the unconfigured provider to carry a credential error")
	}
}

func TestQueryAllRecoversPanics(t *testing.T) {
	adapters := []*Adapter{
		NewAdapter(model.ProviderGrok, &panicClient{
			fakeClient: fakeClient{name: "grok", configured: true},
		}, testOptions(0), zap.NewNop()),
		NewAdapter(model.ProviderPerplexity, &fakeClient{
			name: "perplexity", configured: true,
			script: []func() (*llm.Completion, error){success("fine")},
		}, testOptions(0), zap.NewNop()),
	}
	c := NewCoordinator(adapters, zap.NewNop())

	results := c.QueryAll(context.Background(), "test prompt")

	if results[0].Err == nil || !strings.Contains(*results[0].Err, "panic") {
		t.Errorf("expected panic converted to error response, got %v", results[0].Err)
	}
	if !results[1].Valid() {
		t.Error("a sibling panic must not affect other providers")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"openai API returned 429: Too Many Requests", true},
		{"RESOURCE_EXHAUSTED: quota exceeded", true},
		{"rate limit hit", true},
		{"mistral API returned 503: overloaded", true},
		{"monthly quota exhausted", true},
		{"invalid model name", false},
		{"connection refused", false},
	}

	for _, tt := range tests {
		client := &fakeClient{name: "x", configured: true,
			script: []func() (*llm.Completion, error){failure(tt.msg)}}
		a := NewAdapter(model.ProviderChatGPT, client, testOptions(1), zap.NewNop())
		a.Query(context.Background(), "p")

		wantCalls := 1
		if tt.want {
			wantCalls = 2
		}
		if got := client.callCount(); got != wantCalls {
			t.Errorf("%q: expected %d calls, got %d", tt.msg, wantCalls, got)
		}
	}
}
