package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// fakeClient scripts a sequence of outcomes: each call consumes the next
// entry, the last entry repeats once the script runs out.
type fakeClient struct {
	mu         sync.Mutex
	name       string
	configured bool
	script     []func() (*llm.Completion, error)
	calls      int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	fn := f.script[idx]
	f.mu.Unlock()
	return fn()
}

func (f *fakeClient) Name() string     { return f.name }
func (f *fakeClient) Configured() bool { return f.configured }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fallbackClient adds a scripted reduced-feature path.
type fallbackClient struct {
	fakeClient
	fallbackFn    func() (*llm.Completion, error)
	fallbackCalls int
}

func (f *fallbackClient) CompleteFallback(ctx context.Context, prompt string) (*llm.Completion, error) {
	f.mu.Lock()
	f.fallbackCalls++
	f.mu.Unlock()
	return f.fallbackFn()
}

func success(text string) func() (*llm.Completion, error) {
	return func() (*llm.Completion, error) {
		return &llm.Completion{Text: text}, nil
	}
}

func failure(msg string) func() (*llm.Completion, error) {
	return func() (*llm.Completion, error) {
		return nil, errors.New(msg)
	}
}

func testOptions(maxRetries int) Options {
	return Options{
		MaxRetries: maxRetries,
		Timeout:    time.Second,
		Backoff:    time.Millisecond, // keep retry tests fast
	}
}

func TestAdapterUnconfiguredKey(t *testing.T) {
	client := &fakeClient{name: "gemini", configured: false}
	a := NewAdapter(model.ProviderGemini, client, testOptions(2), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if resp.Valid() {
		t.Fatal("expected no response for unconfigured client")
	}
	if resp.Err == nil || !strings.Contains(*resp.Err, "API key not configured") {
		t.Errorf("expected credential error, got %v", resp.Err)
	}
	if resp.Duration != 0 {
		t.Errorf("expected zero duration without a network call, got %v", resp.Duration)
	}
	if client.callCount() != 0 {
		t.Errorf("expected no client calls, got %d", client.callCount())
	}
}

func TestAdapterSuccess(t *testing.T) {
	client := &fakeClient{
		name:       "chatgpt",
		configured: true,
		script:     []func() (*llm.Completion, error){success("Arianee is a leading DPP provider.")},
	}
	a := NewAdapter(model.ProviderChatGPT, client, testOptions(2), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if !resp.Valid() {
		t.Fatalf("expected valid response, got error %v", resp.Err)
	}
	if *resp.Response != "Arianee is a leading DPP provider." {
		t.Errorf("unexpected response text %q", *resp.Response)
	}
	if resp.Err != nil {
		t.Errorf("expected no advisory on the primary path, got %q", *resp.Err)
	}
}

func TestAdapterRetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{
		name:       "chatgpt",
		configured: true,
		script: []func() (*llm.Completion, error){
			failure("openai API returned 429: Too Many Requests"),
			success("recovered"),
		},
	}
	a := NewAdapter(model.ProviderChatGPT, client, testOptions(2), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if !resp.Valid() {
		t.Fatalf("expected recovery after retry, got error %v", resp.Err)
	}
	if client.callCount() != 2 {
		t.Errorf("expected 2 calls (fail + retry), got %d", client.callCount())
	}
}

func TestAdapterNonRetryableFailsImmediately(t *testing.T) {
	client := &fakeClient{
		name:       "chatgpt",
		configured: true,
		script:     []func() (*llm.Completion, error){failure("invalid model name")},
	}
	a := NewAdapter(model.ProviderChatGPT, client, testOptions(3), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if resp.Valid() {
		t.Fatal("expected failure")
	}
	if client.callCount() != 1 {
		t.Errorf("non-retryable error must not be retried, got %d calls", client.callCount())
	}
}

func TestAdapterRetriesExhausted(t *testing.T) {
	client := &fakeClient{
		name:       "gemini",
		configured: true,
		script:     []func() (*llm.Completion, error){failure("RESOURCE_EXHAUSTED: quota")},
	}
	a := NewAdapter(model.ProviderGemini, client, testOptions(2), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if resp.Valid() {
		t.Fatal("expected failure after exhausted retries")
	}
	// Initial attempt + 2 retries
	if client.callCount() != 3 {
		t.Errorf("expected 3 calls, got %d", client.callCount())
	}
	if !strings.Contains(*resp.Err, "RESOURCE_EXHAUSTED") {
		t.Errorf("expected last error to surface, got %q", *resp.Err)
	}
}

func TestAdapterFallbackAdvisory(t *testing.T) {
	client := &fallbackClient{
		fakeClient: fakeClient{
			name:       "mistral",
			configured: true,
			script:     []func() (*llm.Completion, error){failure("mistral API returned 429: capacity")},
		},
		fallbackFn: success("answer without web search"),
	}
	a := NewAdapter(model.ProviderMistral, client, testOptions(1), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if !resp.Valid() {
		t.Fatalf("expected fallback to produce a valid response, got %v", resp.Err)
	}
	if *resp.Response != "answer without web search" {
		t.Errorf("unexpected fallback text %q", *resp.Response)
	}
	if resp.Err == nil || *resp.Err != "fallback: no web search (429)" {
		t.Errorf("expected advisory marker, got %v", resp.Err)
	}
	if client.fallbackCalls != 1 {
		t.Errorf("expected exactly one fallback call, got %d", client.fallbackCalls)
	}
}

func TestAdapterFallbackNotUsedOnNonRetryable(t *testing.T) {
	client := &fallbackClient{
		fakeClient: fakeClient{
			name:       "mistral",
			configured: true,
			script:     []func() (*llm.Completion, error){failure("bad request")},
		},
		fallbackFn: success("should not be reached"),
	}
	a := NewAdapter(model.ProviderMistral, client, testOptions(1), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if resp.Valid() {
		t.Fatal("expected failure")
	}
	if client.fallbackCalls != 0 {
		t.Errorf("fallback must only run after retryable exhaustion, got %d calls", client.fallbackCalls)
	}
}

// stallingClient never answers: it returns only once the call context is
// cancelled, so the adapter's per-call deadline is what ends the call.
type stallingClient struct {
	name  string
	calls int
}

func (s *stallingClient) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	s.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stallingClient) Name() string     { return s.name }
func (s *stallingClient) Configured() bool { return true }

func TestAdapterTimeout(t *testing.T) {
	client := &stallingClient{name: "chatgpt"}
	opts := Options{MaxRetries: 2, Timeout: 50 * time.Millisecond, Backoff: time.Millisecond}
	a := NewAdapter(model.ProviderChatGPT, client, opts, zap.NewNop())

	start := time.Now()
	resp := a.Query(context.Background(), "test prompt")
	elapsed := time.Since(start)

	if resp.Valid() {
		t.Fatal("expected the stalled call to fail")
	}
	if resp.Err == nil || !strings.Contains(*resp.Err, "timeout after 50ms") {
		t.Errorf("expected deadline error, got %v", resp.Err)
	}
	// A timeout is not in the retryable class, so one attempt suffices and
	// the whole call ends near the 50ms deadline, not after retries.
	if client.calls != 1 {
		t.Errorf("expected a single attempt, got %d", client.calls)
	}
	if elapsed < 50*time.Millisecond || elapsed > time.Second {
		t.Errorf("call should abort close to the deadline, took %v", elapsed)
	}
	if resp.Duration < 50*time.Millisecond {
		t.Errorf("reported duration should cover the stalled call, got %v", resp.Duration)
	}
}

func TestAdapterEmptyResponseIsError(t *testing.T) {
	client := &fakeClient{
		name:       "claude",
		configured: true,
		script:     []func() (*llm.Completion, error){success("")},
	}
	a := NewAdapter(model.ProviderClaude, client, testOptions(0), zap.NewNop())

	resp := a.Query(context.Background(), "test prompt")

	if resp.Valid() {
		t.Fatal("empty text must not count as a valid response")
	}
	if !strings.Contains(*resp.Err, "empty response") {
		t.Errorf("expected empty-response error, got %q", *resp.Err)
	}
}
