// Package provider turns raw vendor clients into uniform, failure-proof
// adapters and fans a prompt out to all of them at once. An Adapter never
// returns a Go error: every failure mode — missing credential, timeout,
// exhausted retries, panic in the client — is captured into the error field
// of the ProviderResponse it hands back.
package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// Options is the per-adapter call policy. Retry caps differ by vendor;
// timeout and backoff are shared.
type Options struct {
	MaxRetries int
	Timeout    time.Duration
	Backoff    time.Duration
}

// Adapter wraps one vendor client with deadline, retry and fallback
// handling. Contract: Query always returns a ProviderResponse, never panics
// through, never blocks past its retries and deadline.
type Adapter struct {
	provider model.Provider
	client   llm.Client
	opts     Options
	logger   *zap.Logger
}

// NewAdapter creates an adapter for one monitored provider.
func NewAdapter(p model.Provider, client llm.Client, opts Options, logger *zap.Logger) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &Adapter{
		provider: p,
		client:   client,
		opts:     opts,
		logger:   logger,
	}
}

// Provider returns the canonical name of the wrapped vendor.
func (a *Adapter) Provider() model.Provider { return a.provider }

// Query issues one prompt to the vendor and normalizes the outcome.
func (a *Adapter) Query(ctx context.Context, prompt string) model.ProviderResponse {
	// Fail fast on a missing credential: no network call, zero latency.
	// This is configuration, not a retryable condition.
	if !a.client.Configured() {
		errMsg := fmt.Sprintf("%s API key not configured", a.provider)
		return model.ProviderResponse{Provider: a.provider, Err: &errMsg}
	}

	start := time.Now()
	comp, advisory, err := a.callWithRetry(ctx, prompt)
	duration := time.Since(start)

	if err != nil {
		errMsg := err.Error()
		a.logger.Warn("provider call failed",
			zap.String("provider", string(a.provider)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return model.ProviderResponse{Provider: a.provider, Err: &errMsg, Duration: duration}
	}

	resp := model.ProviderResponse{Provider: a.provider, Response: &comp.Text, Duration: duration}
	if advisory != "" {
		// Non-fatal: text was obtained, but through the degraded path.
		resp.Err = &advisory
	}
	return resp
}

// callWithRetry runs the primary call path under the retry policy, then — if
// retries exhausted on a rate-limit class error — gives a Fallbacker client
// one reduced-feature attempt.
func (a *Adapter) callWithRetry(ctx context.Context, prompt string) (*llm.Completion, string, error) {
	var lastErr error

	for attempt := 0; attempt <= a.opts.MaxRetries; attempt++ {
		comp, err := a.callOnce(ctx, a.client.Complete, prompt)
		if err == nil {
			return comp, "", nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, "", err
		}

		if attempt < a.opts.MaxRetries {
			delay := a.opts.Backoff << attempt // 2s, 4s, 8s...
			a.logger.Info("retryable provider error, backing off",
				zap.String("provider", string(a.provider)),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", a.opts.MaxRetries),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
		}
	}

	// Still throttled after every retry. A two-tier client gets one shot at
	// its reduced path; the result is valid but carries an advisory marker.
	if fb, ok := a.client.(llm.Fallbacker); ok {
		a.logger.Warn("primary path rate limited, trying fallback path",
			zap.String("provider", string(a.provider)),
		)
		comp, err := a.callOnce(ctx, fb.CompleteFallback, prompt)
		if err == nil {
			return comp, "fallback: no web search (429)", nil
		}
		return nil, "", err
	}

	return nil, "", lastErr
}

// callOnce wraps a single vendor call in the per-call deadline.
func (a *Adapter) callOnce(ctx context.Context, fn func(context.Context, string) (*llm.Completion, error), prompt string) (*llm.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	comp, err := fn(callCtx, prompt)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timeout after %s", a.provider, a.opts.Timeout)
		}
		return nil, err
	}
	if comp == nil || comp.Text == "" {
		return nil, fmt.Errorf("%s returned an empty response", a.provider)
	}
	return comp, nil
}
