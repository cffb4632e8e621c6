// Package oracle sends batches of function descriptions to an external
// LLM and parses back rename suggestions. It never touches the scheduler
// or renamer directly — its contract is narrow: a list of (custom_id,
// system_prompt, user_prompt) triples in, a map of custom_id to raw
// response text out, either synchronously or via a submit/poll/fetch
// deferred job.
package oracle

import "context"

// Request is one unit of oracle work: a function's prompt payload, keyed
// by a caller-chosen custom ID (the function's jsast ID).
type Request struct {
	CustomID     string
	SystemPrompt string
	UserPrompt   string
}

// Oracle is the abstract LLM-calling contract. Concrete bindings
// (OpenAI-family, Anthropic-family) implement it over raw HTTP; the rest
// of the pipeline depends on nothing beyond this interface.
type Oracle interface {
	// Complete sends requests synchronously and returns as soon as the
	// provider responds (interactive mode).
	Complete(ctx context.Context, model string, requests []Request) (map[string]string, error)

	// Submit uploads requests as a single deferred batch job and returns a
	// provider-assigned batch ID immediately, without waiting for
	// completion (deferred mode, step 1 of 3).
	Submit(ctx context.Context, model string, requests []Request) (batchID string, err error)

	// Poll reports whether the deferred job identified by batchID has
	// reached a terminal state.
	Poll(ctx context.Context, batchID string) (done bool, err error)

	// Fetch downloads results for a completed deferred job (deferred
	// mode, step 3 of 3). Calling Fetch before Poll reports done is an
	// error.
	Fetch(ctx context.Context, batchID string) (map[string]string, error)
}
