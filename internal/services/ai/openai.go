package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAICandidate calls one model on an OpenAI-compatible endpoint
type OpenAICandidate struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient creates a chat completions client. An empty base URL
// targets the OpenAI API. The SDK's own retries are off; the Invoker moves
// on to the next candidate instead.
func NewOpenAIClient(apiKey, baseURL string) (*openai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client, nil
}

// NewOpenAICandidate binds a model name to a shared client
func NewOpenAICandidate(client *openai.Client, model string, maxTokens int) *OpenAICandidate {
	return &OpenAICandidate{
		client:    client,
		model:     strings.TrimSpace(model),
		maxTokens: maxTokens,
	}
}

func (o *OpenAICandidate) Name() string {
	return o.model
}

func (o *OpenAICandidate) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
