package ai

import (
	"context"
	"fmt"
)

// AnthropicConfig placeholder for anthropic integration configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicAdjudicator is a stub implementation that can be expanded once the
// SDK is available.
type AnthropicAdjudicator struct{}

// NewAnthropicAdjudicator constructs a new stub adjudicator.
func NewAnthropicAdjudicator(cfg AnthropicConfig) (*AnthropicAdjudicator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return &AnthropicAdjudicator{}, nil
}

// Classify is not yet implemented for Anthropic models.
func (a *AnthropicAdjudicator) Classify(ctx context.Context, input AdjudicationInput) (AdjudicationResult, error) {
	return AdjudicationResult{}, fmt.Errorf("anthropic adjudicator not implemented")
}
