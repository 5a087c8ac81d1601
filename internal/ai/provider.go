package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/v0xg/gcursor/internal/config"
)

// Provider is a text completion service: one prompt in, one text response out.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider creates a provider for cfg.Provider. The credential must already
// be resolved; providers never read the environment.
func NewProvider(cfg config.LLMConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key for provider %s", config.ErrConfiguration, cfg.Provider)
	}

	switch config.NormalizeProvider(cfg.Provider) {
	case config.ProviderGemini:
		p, err := NewGeminiProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderClaude:
		return NewClaudeProvider(cfg, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: gemini, claude, openai)", cfg.Provider)
	}
}
