package upstream

import (
	"context"
	"errors"
	"iter"
	"sync"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client}, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, contents(prompt), nil)
	if err != nil {
		return "", wrapAPIError(err)
	}
	return resp.Text(), nil
}

func (g *GeminiProvider) Stream(ctx context.Context, model, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents(prompt), nil) {
			if err != nil {
				yield("", wrapAPIError(err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

func contents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

// wrapAPIError lifts the HTTP status out of genai errors so Classify does not
// depend on the SDK.
func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Status: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return err
}

// GeminiFactory returns a ProviderFactory that reuses one client per key.
func GeminiFactory() ProviderFactory {
	var (
		mu      sync.Mutex
		clients = map[string]*GeminiProvider{}
	)
	return func(ctx context.Context, apiKey string) (Provider, error) {
		mu.Lock()
		defer mu.Unlock()

		if p, ok := clients[apiKey]; ok {
			return p, nil
		}
		p, err := NewGeminiProvider(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		clients[apiKey] = p
		return p, nil
	}
}
