// Package providers holds text completers backed by hosted LLM APIs. They
// are used to paraphrase environment text, never to choose actions.
package providers

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrEmptyCompletion = errors.New("empty completion")
	ErrUnknownProvider = errors.New("unknown provider")
)

const (
	providerNameOpenAI = "openai"
	providerNameGemini = "gemini"

	defaultOpenAIURL = "https://api.openai.com/v1/"
	envOpenAIKey     = "OPENAI_API_KEY"
	envOpenAIBaseURL = "OPENAI_API_BASE_URL"
	envGeminiKey     = "GEMINI_API_KEY"
)

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	// Provider names the backing API for logs and metrics.
	Provider() string
}

type ProviderParams struct {
	BaseURL string
	APIKey  string
}

type ProviderOption func(*ProviderParams)

func WithBaseURL(baseURL string) ProviderOption {
	return func(p *ProviderParams) {
		p.BaseURL = baseURL
	}
}

func WithAPIKey(apiKey string) ProviderOption {
	return func(p *ProviderParams) {
		p.APIKey = apiKey
	}
}

// New builds the completer named by provider: "openai" or "gemini".
func New(ctx context.Context, provider string, opts ...ProviderOption) (Completer, error) {
	switch provider {
	case providerNameOpenAI:
		return OpenAI(opts...), nil
	case providerNameGemini:
		return Gemini(ctx, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}
