package upstream

import (
	"context"
	"iter"
)

// Provider is one generative-language backend.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	// Stream yields text fragments in order. A non-nil error ends the
	// sequence.
	Stream(ctx context.Context, model, prompt string) iter.Seq2[string, error]
}

// ProviderFactory builds a provider for a resolved API key.
type ProviderFactory func(ctx context.Context, apiKey string) (Provider, error)

// KeyFunc resolves the API key at call time.
type KeyFunc func() string
