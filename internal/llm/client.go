// Package llm provides a provider-agnostic interface for querying LLM
// vendors with a plain-user prompt. Each monitored vendor (ChatGPT, Gemini,
// Mistral, Grok, Claude, Perplexity) implements the same small contract, and
// the Claude judge reuses it for analysis and recommendation calls.
//
// No system prompt is sent on monitoring calls: the point is to see the
// answer an ordinary user would get.
package llm

import "context"

// Completion is the raw outcome of one vendor call.
type Completion struct {
	Text         string // The assistant's free-text answer
	OutputTokens int    // Output token count when the vendor reports it, else 0
}

// Client is the interface every vendor client implements.
//
// Go interface design tip: keep interfaces small. One call method plus two
// cheap accessors is enough here — retry, timeout and failure normalization
// live one layer up, in the provider adapter.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Name() string
	// Configured reports whether the credential is present. Unconfigured
	// clients are never called — the adapter fails fast without network I/O.
	Configured() bool
}

// Fallbacker is an optional second-tier call path. A client that implements
// it gets exactly one reduced-feature attempt after its primary path has
// exhausted retries on a rate-limit class error. Only Mistral needs this:
// its web-search endpoint throttles far more aggressively than plain chat.
type Fallbacker interface {
	CompleteFallback(ctx context.Context, prompt string) (*Completion, error)
}
