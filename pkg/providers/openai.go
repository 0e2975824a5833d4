package providers

import (
	"context"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClient struct {
	client  *openai.Client
	baseURL string
}

// OpenAI creates a chat completion client. The base URL and key fall back to
// OPENAI_API_BASE_URL and OPENAI_API_KEY, so any OpenAI-compatible server
// works.
func OpenAI(opts ...ProviderOption) *OpenAIClient {
	params := &ProviderParams{}
	for _, opt := range opts {
		opt(params)
	}

	if params.BaseURL == "" {
		params.BaseURL = os.Getenv(envOpenAIBaseURL)
		if params.BaseURL == "" {
			params.BaseURL = defaultOpenAIURL
		}
	}
	if params.APIKey == "" {
		params.APIKey = os.Getenv(envOpenAIKey)
	}

	reqOpts := []option.RequestOption{option.WithBaseURL(params.BaseURL)}
	// Local servers often run without a key.
	if params.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(params.APIKey))
	}
	slog.Debug("openai client created", "base_url", params.BaseURL)

	return &OpenAIClient{
		client:  openai.NewClient(reqOpts...),
		baseURL: params.BaseURL,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(model),
	})
	if err != nil {
		return "", err
	}
	if len(chatCompletion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return chatCompletion.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Provider() string {
	return providerNameOpenAI
}

// BaseURL returns the endpoint the client talks to.
func (c *OpenAIClient) BaseURL() string {
	return c.baseURL
}
