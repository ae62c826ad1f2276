package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiCandidate calls one Gemini model through the genai SDK
type GeminiCandidate struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiClient creates a client for the Gemini API. An empty base URL
// targets the public endpoint.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// NewGeminiCandidate binds a model name to a shared client
func NewGeminiCandidate(client *genai.Client, model string, maxTokens int) *GeminiCandidate {
	return &GeminiCandidate{
		client:    client,
		model:     strings.TrimPrefix(strings.TrimSpace(model), "models/"),
		maxTokens: maxTokens,
	}
}

func (g *GeminiCandidate) Name() string {
	return g.model
}

func (g *GeminiCandidate) Generate(ctx context.Context, prompt string) (string, error) {
	var config *genai.GenerateContentConfig
	if g.maxTokens > 0 {
		config = &genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxTokens),
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}
