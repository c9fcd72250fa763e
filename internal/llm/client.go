// Package llm wraps the chat-completion provider behind a small client
// interface so callers can pick temperature and token limits per request.
package llm

import "context"

type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Client produces a completion for a prompt. Implementations must honor
// ctx cancellation.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}
