package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
}

// Gemini creates a Gemini API client. The key falls back to GEMINI_API_KEY.
func Gemini(ctx context.Context, opts ...ProviderOption) (*GeminiClient, error) {
	params := &ProviderParams{}
	for _, opt := range opts {
		opt(params)
	}
	if params.APIKey == "" {
		params.APIKey = os.Getenv(envGeminiKey)
	}
	if params.APIKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, envGeminiKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  params.APIKey,
		Backend: genai.BackendGoogleAI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	parts := []*genai.Part{
		{Text: prompt},
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{{Parts: parts, Role: "user"}}, nil)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	return candidateText(resp)
}

func (c *GeminiClient) Provider() string {
	return providerNameGemini
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return sb.String(), nil
}
