package ai

import (
	"context"
	"fmt"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/sirupsen/logrus"
)

// NewCandidates builds the ordered candidate list from the configured
// endpoints. Endpoints are tried in order, and within an endpoint its
// models are tried in order.
func NewCandidates(ctx context.Context, cfg *config.ModelsConfig, logger *logrus.Logger) ([]Candidate, error) {
	var candidates []Candidate

	logger.WithField("endpointCount", len(cfg.Endpoints)).Info("Loading AI endpoints")

	for _, endpoint := range cfg.Endpoints {
		if endpoint.APIKey == "" {
			logger.WithField("endpoint", endpoint.Name).Warn("Skipping endpoint without API key")
			continue
		}

		logger.WithFields(logrus.Fields{
			"endpoint": endpoint.Name,
			"provider": endpoint.Provider,
			"models":   len(endpoint.Models),
		}).Info("Loading endpoint")

		switch endpoint.Provider {
		case config.ProviderGemini:
			client, err := NewGeminiClient(ctx, endpoint.APIKey, endpoint.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("endpoint %s: %w", endpoint.Name, err)
			}
			for _, model := range endpoint.Models {
				candidates = append(candidates, NewGeminiCandidate(client, model.ID, model.MaxTokens))
			}
		case config.ProviderOpenAI:
			client, err := NewOpenAIClient(endpoint.APIKey, endpoint.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("endpoint %s: %w", endpoint.Name, err)
			}
			for _, model := range endpoint.Models {
				candidates = append(candidates, NewOpenAICandidate(client, model.ID, model.MaxTokens))
			}
		default:
			return nil, fmt.Errorf("endpoint %s: unsupported provider %q", endpoint.Name, endpoint.Provider)
		}
	}

	for _, candidate := range candidates {
		logger.WithField("model", candidate.Name()).Debug("Loaded model")
	}
	return candidates, nil
}
