package llm

import (
	"context"
	"fmt"

	"github.com/anirudhsk/prepsprint/internal/config"
)

// NewClient builds the configured provider client, wrapped with retry.
func NewClient(ctx context.Context, cfg config.AI) (Client, error) {
	var base Client
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel)
	case "anthropic":
		base, err = NewAnthropicClient(cfg.AnthropicKey, cfg.AnthropicModel)
	case "gemini":
		base, err = NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s client: %w", cfg.Provider, err)
	}

	return WithRetry(base, DefaultRetryPolicy()), nil
}
