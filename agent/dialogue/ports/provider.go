package ports

import "context"

// PromptInput aggregates everything the text backend needs for one reply.
type PromptInput struct {
	System  string   // system instructions
	Query   string   // the user's raw text
	Context []string // retrieved snippets and history digests, already bounded
}

// Provider is the abstraction for the text-generation backend.
type Provider interface {
	Complete(ctx context.Context, in PromptInput) (string, error)
}
